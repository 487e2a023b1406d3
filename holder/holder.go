// Package holder provides a type-tagged cell for parking arbitrary instance
// handles in a uniform table. The payload is shared, never deep-copied:
// copying a Value copies the reference. Holders never cross the wire.
package holder

import "reflect"

// Value stores one payload together with its runtime type.
// The zero Value is empty.
type Value struct {
	rt      reflect.Type
	payload any
}

// New wraps v. The payload is expected to be a shared handle (a pointer);
// every copy of the returned Value aliases the same underlying object.
func New(v any) Value {
	return Value{rt: reflect.TypeOf(v), payload: v}
}

// Empty reports whether the cell holds no payload.
func (v Value) Empty() bool { return v.payload == nil }

// Type returns the runtime type of the payload, or nil when empty.
func (v Value) Type() reflect.Type { return v.rt }

// Interface returns the payload untyped.
func (v Value) Interface() any { return v.payload }

// Get returns the payload as T. Asking for the wrong type is a programmer
// error and panics; it is never surfaced as a runtime call failure.
func Get[T any](v Value) T {
	return v.payload.(T)
}
