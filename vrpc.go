// Package vrpc non-intrusively exposes plain Go types and functions as
// remotely callable endpoints.
//
// Bindings are declared once at startup through the Class builder; from
// then on the host hands JSON envelopes to Call and receives them back with
// the return slot or the error slot filled in. Function-typed parameters
// travel as string tokens and fire back asynchronously through the
// callback sink. The package is transport-agnostic: it only consumes and
// produces envelopes.
package vrpc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"plugin"

	"github.com/heisenware/vrpc-go/callback"
	"github.com/heisenware/vrpc-go/envelope"
	"github.com/heisenware/vrpc-go/registry"
)

// The process-wide binding universe: empty tables at init, a single
// registration phase at startup, then a read-heavy call phase.
var (
	defaultBridge   = callback.New()
	defaultRegistry = registry.New(defaultBridge)
)

// Default returns the process-wide registry, for embedding hosts and
// transport agents that need direct access.
func Default() *registry.Registry { return defaultRegistry }

// Call dispatches one envelope, given and returned as a JSON string. A
// malformed envelope (missing or mistyped "c", "f", or "a") is reported as
// a Go error; every in-call failure travels in the envelope's "e" slot.
func Call(envelopeJSON string) (string, error) {
	return defaultRegistry.CallJSON(envelopeJSON)
}

// GetClasses returns the registered class names as a JSON array.
func GetClasses() string {
	return mustMarshal(defaultRegistry.Classes())
}

// GetInstances returns the shared instances of a class as a JSON array.
func GetInstances(class string) string {
	return mustMarshal(defaultRegistry.Instances(class))
}

// GetMemberFunctions returns the full lookup names of a class's member
// functions as a JSON array.
func GetMemberFunctions(class string) string {
	return mustMarshal(defaultRegistry.MemberFunctions(class))
}

// GetStaticFunctions returns the full lookup names registered under the
// class name as a JSON array.
func GetStaticFunctions(class string) string {
	return mustMarshal(defaultRegistry.StaticFunctions(class))
}

// GetMetaData returns the metadata registered for a class as a JSON object
// keyed by full lookup name.
func GetMetaData(class string) string {
	return mustMarshal(defaultRegistry.MetaData(class))
}

// OnCallback adds a sink to the fan-out bank. Every callback event is
// delivered to each registered sink as its JSON wire string, one event at a
// time in queue order. The bank holds at most 32 sinks; exceeding it fails.
func OnCallback(fn func(event string)) error {
	return defaultBridge.OnCallback(func(ev *envelope.Envelope) {
		out, err := ev.Dump()
		if err != nil {
			slog.Error("Failed to serialize callback event.", "error", err)
			return
		}
		fn(out)
	})
}

// LoadBindings opens a plugin that self-registers its classes on load.
func LoadBindings(path string) error {
	if _, err := plugin.Open(path); err != nil {
		return fmt.Errorf("problem loading bindings: %w", err)
	}
	return nil
}

func mustMarshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("vrpc: failed to encode introspection result: %v", err))
	}
	return string(data)
}
