// Package testutil provides shared fixtures and helpers for the adapter's
// test suites.
package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heisenware/vrpc-go/callback"
	"github.com/heisenware/vrpc-go/envelope"
	"github.com/heisenware/vrpc-go/registry"
)

// Crazy is the zero-argument overload of the TestClass fixture.
func Crazy() string {
	return "who is crazy?"
}

// CrazyWho is the one-argument overload of the TestClass fixture.
func CrazyWho(who string) string {
	return fmt.Sprintf("%s is crazy!", who)
}

// RegisterTestClass registers the overloaded static fixture.
func RegisterTestClass(r *registry.Registry) {
	r.RegisterStaticFunction("TestClass", "crazy", Crazy)
	r.RegisterStaticFunction("TestClass", "crazy", CrazyWho)
}

// CallJSON dispatches one wire envelope and fails the test on host errors.
func CallJSON(t *testing.T, r *registry.Registry, env string) string {
	t.Helper()
	resp, err := r.CallJSON(env)
	require.NoError(t, err)
	return resp
}

// EventRecorder is a callback sink that captures events for later
// assertions, safely across goroutines.
type EventRecorder struct {
	mu     sync.Mutex
	events []*envelope.Envelope
}

// Sink returns the recording sink.
func (er *EventRecorder) Sink() callback.Sink {
	return func(ev *envelope.Envelope) {
		er.mu.Lock()
		defer er.mu.Unlock()
		er.events = append(er.events, ev)
	}
}

// Events returns a snapshot of the captured events in delivery order.
func (er *EventRecorder) Events() []*envelope.Envelope {
	er.mu.Lock()
	defer er.mu.Unlock()
	out := make([]*envelope.Envelope, len(er.events))
	copy(out, er.events)
	return out
}

// Len returns the number of captured events.
func (er *EventRecorder) Len() int {
	er.mu.Lock()
	defer er.mu.Unlock()
	return len(er.events)
}
