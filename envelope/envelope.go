// Package envelope defines the JSON message that carries one request,
// response, or callback event through the adapter.
//
// An envelope is mutated in place while a call is dispatched: exactly one of
// the return slot ("r") and the error slot ("e") is set before it travels
// back to the host.
package envelope

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Envelope is the wire shape consumed and produced by the adapter.
//
// "c" names the context (a class for static and constructor calls, an
// instance id for member calls), "f" the method base name, and "a" the
// positional arguments. "i" is only present on callback-fire events and
// echoes the token the caller supplied for that callback position.
type Envelope struct {
	Context    string            `json:"c"`
	Method     string            `json:"f"`
	Args       []json.RawMessage `json:"a"`
	Ret        json.RawMessage   `json:"r,omitempty"`
	Err        string            `json:"e,omitempty"`
	CallbackID string            `json:"i,omitempty"`
}

// Parse decodes and validates one envelope. A missing or mistyped "c", "f",
// or "a" is a host error: there is no valid envelope to carry it, so it
// surfaces as a Go error instead of an "e" slot.
func Parse(data []byte) (*Envelope, error) {
	var raw struct {
		Context    *string            `json:"c"`
		Method     *string            `json:"f"`
		Args       *[]json.RawMessage `json:"a"`
		CallbackID string             `json:"i"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if raw.Context == nil || *raw.Context == "" {
		return nil, fmt.Errorf("malformed envelope: missing non-empty context field %q", "c")
	}
	if raw.Method == nil || *raw.Method == "" {
		return nil, fmt.Errorf("malformed envelope: missing non-empty method field %q", "f")
	}
	if raw.Args == nil {
		return nil, fmt.Errorf("malformed envelope: missing argument array field %q", "a")
	}
	return &Envelope{
		Context:    *raw.Context,
		Method:     *raw.Method,
		Args:       *raw.Args,
		CallbackID: raw.CallbackID,
	}, nil
}

// Dump serializes the envelope back to its wire form.
func (e *Envelope) Dump() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to serialize envelope: %w", err)
	}
	return string(data), nil
}

// SetResult stores the JSON encoding of v in the return slot and clears the
// error slot. A nil v encodes the void return ("r": null).
func (e *Envelope) SetResult(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		e.SetError(fmt.Sprintf("failed to encode return value: %v", err))
		return
	}
	e.Ret = data
	e.Err = ""
}

// SetError stores msg in the error slot and clears the return slot.
func (e *Envelope) SetError(msg string) {
	e.Err = msg
	e.Ret = nil
}

// PackArgs encodes an ordered list of Go values into a positional argument
// array. A value of func kind packs as the empty string: callbacks travel as
// string tokens, and the real token is filled in by the sender.
func PackArgs(vals ...any) ([]json.RawMessage, error) {
	args := make([]json.RawMessage, 0, len(vals))
	for i, v := range vals {
		if v != nil && reflect.TypeOf(v).Kind() == reflect.Func {
			args = append(args, json.RawMessage(`""`))
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument %d: %w", i, err)
		}
		args = append(args, data)
	}
	return args, nil
}
