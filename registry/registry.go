// Package registry holds the dispatch tables that map (context,
// method+signature) to invokers, plus the instance factory built on top of
// them.
//
// Two tables carry functions: class templates (unbound member invokers,
// cloned and bound whenever an instance is created) and per-target
// invokers (statics and injected constructors under a class name, bound
// members under an instance id). Two side tables carry the instances
// themselves and the shared-instance index; a third carries optional
// per-method metadata.
//
// The registry is not internally synchronized. Registration runs at process
// startup on a single goroutine, and Call executes synchronously on the
// caller's goroutine; hosts that dispatch from several goroutines must
// serialize. The callback bridge owns the only cross-goroutine path.
package registry

import (
	"log/slog"

	"github.com/heisenware/vrpc-go/callback"
	"github.com/heisenware/vrpc-go/envelope"
	"github.com/heisenware/vrpc-go/holder"
	"github.com/heisenware/vrpc-go/invoker"
	"github.com/heisenware/vrpc-go/signature"
)

// Registry is one independent binding universe. Most programs use a single
// process-wide instance; tests create their own.
type Registry struct {
	bridge *callback.Bridge

	// class name → method+signature → unbound member template
	classFunctions map[string]map[string]*invoker.Invoker
	// context (class or instance id) → method+signature → ready invoker
	functions map[string]map[string]*invoker.Invoker
	// instance id → shared handle keeping the object alive
	instances map[string]holder.Value
	// instance id → class name, shared instances only
	sharedInstances map[string]string
	// class name → method+signature → metadata
	metaData map[string]map[string]*FunctionMeta

	// invoked after every instance creation or deletion
	onChange func()
}

// New creates an empty registry whose callback parameters report through b.
func New(b *callback.Bridge) *Registry {
	return &Registry{
		bridge:          b,
		classFunctions:  make(map[string]map[string]*invoker.Invoker),
		functions:       make(map[string]map[string]*invoker.Invoker),
		instances:       make(map[string]holder.Value),
		sharedInstances: make(map[string]string),
		metaData:        make(map[string]map[string]*FunctionMeta),
	}
}

// Bridge returns the callback bridge this registry reports through.
func (r *Registry) Bridge() *callback.Bridge { return r.bridge }

// SetChangeListener installs a hook invoked after instance creation and
// deletion. Transport agents use it to republish instance info.
func (r *Registry) SetChangeListener(fn func()) { r.onChange = fn }

func (r *Registry) notifyChange() {
	if r.onChange != nil {
		r.onChange()
	}
}

// RegisterMemberFunction places the template invoker for a method under its
// class. The returned key is the full lookup name (base name plus
// signature). A duplicate key replaces the previous registration; last
// registration wins.
func (r *Registry) RegisterMemberFunction(class, name string, fn any) string {
	iv := invoker.NewMember(fn, r.bridge)
	key := name + iv.Signature()
	if r.classFunctions[class] == nil {
		r.classFunctions[class] = make(map[string]*invoker.Invoker)
	}
	if _, exists := r.classFunctions[class][key]; exists {
		slog.Warn("Replacing previously registered member function.", "class", class, "function", key)
	}
	r.classFunctions[class][key] = iv
	slog.Debug("Registered member function.", "class", class, "function", key)
	return key
}

// RegisterStaticFunction places a static invoker under the class name.
func (r *Registry) RegisterStaticFunction(class, name string, fn any) string {
	iv := invoker.NewStatic(fn, r.bridge)
	key := name + iv.Signature()
	r.putFunction(class, key, iv)
	slog.Debug("Registered static function.", "class", class, "function", key)
	return key
}

func (r *Registry) putFunction(context, key string, iv *invoker.Invoker) {
	if r.functions[context] == nil {
		r.functions[context] = make(map[string]*invoker.Invoker)
	}
	if _, exists := r.functions[context][key]; exists {
		slog.Warn("Replacing previously registered function.", "context", context, "function", key)
	}
	r.functions[context][key] = iv
}

// Call dispatches one envelope in place. The effective lookup key is the
// method base name concatenated with the signature of the argument array.
// Exactly one of the return and error slots is set on return; the argument
// array is left intact on failure.
func (r *Registry) Call(env *envelope.Envelope) {
	key := env.Method + signature.FromArgs(env.Args)
	targets, ok := r.functions[env.Context]
	if !ok {
		env.SetError("Could not find context: " + env.Context)
		return
	}
	iv, ok := targets[key]
	if !ok {
		env.SetError("Could not find function: " + key)
		return
	}
	slog.Debug("Calling function.", "context", env.Context, "function", key)
	iv.Invoke(env)
}

// CallJSON dispatches one envelope given and returned as its wire string.
// A malformed envelope is a host error and surfaces as a Go error; every
// other failure travels in the envelope's error slot.
func (r *Registry) CallJSON(data string) (string, error) {
	env, err := envelope.Parse([]byte(data))
	if err != nil {
		return "", err
	}
	r.Call(env)
	return env.Dump()
}
