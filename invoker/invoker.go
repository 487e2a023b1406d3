// Package invoker wraps concrete Go functions as uniform, envelope-in
// envelope-out adapters.
//
// Registration hands over a plain function value; reflection derives the
// wire-visible parameter list (and with it the lookup signature), and every
// call funnels through Invoke, which unpacks the positional arguments,
// substitutes callback tokens, runs the target, and writes exactly one of
// the return and error slots back into the envelope.
package invoker

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/heisenware/vrpc-go/callback"
	"github.com/heisenware/vrpc-go/envelope"
	"github.com/heisenware/vrpc-go/holder"
	"github.com/heisenware/vrpc-go/signature"
)

// Kind discriminates the invoker variants.
type Kind int

const (
	// Static wraps a free function; no instance binding.
	Static Kind = iota
	// Member wraps a method; a shared instance handle is bound before use.
	Member
	// ConstructorIsolated creates instances that are private to their creator.
	ConstructorIsolated
	// ConstructorShared creates instances enumerable by class.
	ConstructorShared
	// Destructor removes an instance and its bound invokers.
	Destructor
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Invoker adapts one registered function. Member invokers obtained from a
// class template are cloned and bound per instance; all other kinds are
// ready to call as registered.
type Invoker struct {
	kind     Kind
	fn       reflect.Value
	params   []reflect.Type // wire-visible parameters, receiver excluded
	retIdx   int
	errIdx   int
	instance holder.Value
	bridge   *callback.Bridge
}

// NewStatic adapts a free function.
func NewStatic(fn any, b *callback.Bridge) *Invoker {
	return fromValue(Static, reflect.ValueOf(fn), 0, b)
}

// NewMember adapts a method expression such as (*Bar).AddBottle: the first
// parameter is the receiver and is supplied by the bound instance, the rest
// form the wire parameter list.
func NewMember(fn any, b *callback.Bridge) *Invoker {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.Type().NumIn() == 0 {
		panic(fmt.Sprintf("invoker: member binding requires a method expression, got %T", fn))
	}
	return fromValue(Member, v, 1, b)
}

// NewSynthetic adapts a reflect-built function for the factory's injected
// constructor and destructor endpoints.
func NewSynthetic(kind Kind, fn reflect.Value, b *callback.Bridge) *Invoker {
	return fromValue(kind, fn, 0, b)
}

func fromValue(kind Kind, fn reflect.Value, skip int, b *callback.Bridge) *Invoker {
	t := fn.Type()
	if t.Kind() != reflect.Func {
		panic(fmt.Sprintf("invoker: binding requires a function, got %s", t))
	}
	if t.IsVariadic() {
		panic(fmt.Sprintf("invoker: variadic functions cannot be registered: %s", t))
	}
	params := make([]reflect.Type, 0, t.NumIn()-skip)
	for i := skip; i < t.NumIn(); i++ {
		p := t.In(i)
		if p.Kind() == reflect.Func && p.NumOut() != 0 {
			panic(fmt.Sprintf("invoker: callback parameter %s must not return values", p))
		}
		// Validates that the parameter has a wire representation.
		signature.JSONTypeOf(p)
		params = append(params, p)
	}
	retIdx, errIdx := analyzeResults(t)
	return &Invoker{
		kind:   kind,
		fn:     fn,
		params: params,
		retIdx: retIdx,
		errIdx: errIdx,
		bridge: b,
	}
}

// analyzeResults accepts the four idiomatic shapes: no results, a single
// value, a single error, or a value and a trailing error.
func analyzeResults(t reflect.Type) (retIdx, errIdx int) {
	switch t.NumOut() {
	case 0:
		return -1, -1
	case 1:
		if t.Out(0) == errType {
			return -1, 0
		}
		return 0, -1
	case 2:
		if t.Out(1) != errType {
			panic(fmt.Sprintf("invoker: second result of %s must be error", t))
		}
		return 0, 1
	default:
		panic(fmt.Sprintf("invoker: %s returns too many values", t))
	}
}

// Kind returns the invoker variant.
func (iv *Invoker) Kind() Kind { return iv.kind }

// Signature returns the registration-time lookup signature derived from the
// wire parameter list.
func (iv *Invoker) Signature() string {
	return signature.FromTypes(iv.params)
}

// ReturnTypeName reports the JSON type name of the value result, or "void"
// when the function returns nothing (or only an error).
func (iv *Invoker) ReturnTypeName() string {
	if iv.retIdx < 0 {
		return "void"
	}
	return signature.JSONTypeOf(iv.fn.Type().Out(iv.retIdx))
}

// Clone copies the adapter without its instance binding, so a class
// template can be stamped out once per created instance.
func (iv *Invoker) Clone() *Invoker {
	c := *iv
	c.instance = holder.Value{}
	return &c
}

// Bind attaches the shared instance handle a member invoker will call on.
func (iv *Invoker) Bind(instance holder.Value) {
	iv.instance = instance
}

// Invoke runs the target against the envelope, in place. On success the
// return slot is set (null for void returns); a decode failure, a non-nil
// trailing error, or a panic inside the target sets the error slot instead.
func (iv *Invoker) Invoke(env *envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			env.SetError(panicMessage(r))
		}
	}()

	args := make([]reflect.Value, 0, len(iv.params)+1)
	if iv.kind == Member {
		if iv.instance.Empty() {
			env.SetError(fmt.Sprintf("function %s is not bound to an instance", env.Method))
			return
		}
		args = append(args, reflect.ValueOf(iv.instance.Interface()))
	}

	unpacked, err := iv.unpack(env)
	if err != nil {
		env.SetError(err.Error())
		return
	}
	args = append(args, unpacked...)

	results := iv.fn.Call(args)
	if iv.errIdx >= 0 {
		if e, _ := results[iv.errIdx].Interface().(error); e != nil {
			env.SetError(e.Error())
			return
		}
	}
	if iv.retIdx >= 0 {
		env.SetResult(results[iv.retIdx].Interface())
		return
	}
	env.SetResult(nil)
}

// unpack decodes the positional arguments into the static parameter list.
// Callback positions capture the string token and synthesize a local
// callable that emits events carrying it.
func (iv *Invoker) unpack(env *envelope.Envelope) ([]reflect.Value, error) {
	if len(env.Args) != len(iv.params) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(iv.params), len(env.Args))
	}
	out := make([]reflect.Value, len(iv.params))
	for i, p := range iv.params {
		if p.Kind() == reflect.Func {
			var token string
			if err := json.Unmarshal(env.Args[i], &token); err != nil {
				return nil, fmt.Errorf("argument %d: callback token must be a string", i+1)
			}
			out[i] = iv.bridge.Callable(p, env.Context, env.Method, token)
			continue
		}
		v := reflect.New(p)
		if err := json.Unmarshal(env.Args[i], v.Interface()); err != nil {
			return nil, fmt.Errorf("argument %d: cannot decode %s as %s", i+1, signature.TypeNameOf(env.Args[i]), p)
		}
		out[i] = v.Elem()
	}
	return out, nil
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(r)
}
