// Package callback transports function-typed arguments across the wire.
//
// A callback parameter arrives as a string token. At unpack time the bridge
// synthesizes a real Go function of the declared type. Whenever the target
// invokes it, immediately or long after the originating call returned, the
// bridge builds a callback event that echoes the token in "i" and delivers
// it to the registered sinks.
//
// Delivery is decoupled from the firing goroutine: producers append to a
// mutex-guarded FIFO and signal a wake primitive, and a single dispatcher
// drains the queue with a swap-and-release and invokes the sinks one event
// at a time without holding the lock. Per producer goroutine, events are
// delivered in submission order.
package callback

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/heisenware/vrpc-go/envelope"
)

// Sink receives one callback event.
type Sink func(event *envelope.Envelope)

// MaxSinks bounds the fan-out bank a host may register.
const MaxSinks = 32

// Bridge owns the event queue and the sink bank.
type Bridge struct {
	mu    sync.Mutex
	queue []*envelope.Envelope

	wake   chan struct{}
	notify func()

	sinkMu sync.RWMutex
	sinks  []Sink

	startOnce sync.Once
	done      chan struct{}
}

// New creates a bridge with an empty queue and no sinks.
func New() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// OnCallback adds a sink to the bank and, on first use, starts the
// dispatcher that owns delivery. The bank is fixed-size; exceeding it fails.
func (b *Bridge) OnCallback(s Sink) error {
	b.sinkMu.Lock()
	if len(b.sinks) >= MaxSinks {
		b.sinkMu.Unlock()
		return fmt.Errorf("callback sink bank is full (%d sinks)", MaxSinks)
	}
	b.sinks = append(b.sinks, s)
	b.sinkMu.Unlock()

	b.startOnce.Do(func() { go b.dispatch() })
	return nil
}

// OnCallbackWithNotifier is for hosts that own their event loop: instead of
// the internal dispatcher, notify is invoked after each enqueue and the host
// is expected to call Drain from its loop.
func (b *Bridge) OnCallbackWithNotifier(s Sink, notify func()) error {
	b.sinkMu.Lock()
	if len(b.sinks) >= MaxSinks {
		b.sinkMu.Unlock()
		return fmt.Errorf("callback sink bank is full (%d sinks)", MaxSinks)
	}
	b.sinks = append(b.sinks, s)
	b.sinkMu.Unlock()

	b.mu.Lock()
	b.notify = notify
	b.mu.Unlock()
	return nil
}

// Emit enqueues one event and wakes the dispatcher. With no sinks
// registered the event is dropped: the host is gone, nobody is listening.
func (b *Bridge) Emit(ev *envelope.Envelope) {
	b.sinkMu.RLock()
	listening := len(b.sinks) > 0
	b.sinkMu.RUnlock()
	if !listening {
		slog.Debug("Dropping callback event, no sink registered.", "context", ev.Context, "callback", ev.CallbackID)
		return
	}

	b.mu.Lock()
	b.queue = append(b.queue, ev)
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify()
		return
	}
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Drain delivers every queued event in FIFO order. The queue is swapped out
// under the lock and the sinks run without it, so a target may fire again
// from within a sink.
func (b *Bridge) Drain() {
	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	for _, ev := range pending {
		b.sinkMu.RLock()
		sinks := make([]Sink, len(b.sinks))
		copy(sinks, b.sinks)
		b.sinkMu.RUnlock()
		for _, s := range sinks {
			s(ev)
		}
	}
}

// Close stops the dispatcher. Events emitted afterwards stay in the queue.
func (b *Bridge) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}

func (b *Bridge) dispatch() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
			b.Drain()
		}
	}
}

// Callable synthesizes a function of type t that emits a callback event on
// every invocation. The event preserves the originating context and method
// and carries token in "i". The callable outlives the call that produced
// it; targets commonly stash it and fire from background goroutines.
//
// t must be a func type without results: callbacks deliver values, they do
// not return them.
func (b *Bridge) Callable(t reflect.Type, context, method, token string) reflect.Value {
	if t.Kind() != reflect.Func || t.NumOut() != 0 {
		panic(fmt.Sprintf("callback: %s is not a valid callback type, want a func with no results", t))
	}
	return reflect.MakeFunc(t, func(args []reflect.Value) []reflect.Value {
		ev := &envelope.Envelope{
			Context:    context,
			Method:     method,
			Args:       make([]json.RawMessage, 0, len(args)),
			CallbackID: token,
		}
		for _, a := range args {
			data, err := json.Marshal(a.Interface())
			if err != nil {
				data = json.RawMessage("null")
			}
			ev.Args = append(ev.Args, data)
		}
		b.Emit(ev)
		return nil
	})
}
