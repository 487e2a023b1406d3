package registry

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	"github.com/heisenware/vrpc-go/holder"
	"github.com/heisenware/vrpc-go/invoker"
	"github.com/heisenware/vrpc-go/signature"
)

var stringType = reflect.TypeOf("")

// RegisterConstructor injects the three synthetic lifecycle endpoints for a
// class: __createIsolated__ and __createShared__ matching the constructor's
// parameter list (prefixed by the instance id), and a single
// __delete__(string). ctor must be a function returning a pointer to the
// instance, optionally with a trailing error.
//
// Registering several constructors (overloads) injects one create pair per
// parameter-list signature; __delete__ is injected once.
func (r *Registry) RegisterConstructor(class string, ctor any) {
	v := reflect.ValueOf(ctor)
	t := v.Type()
	if t.Kind() != reflect.Func || t.NumOut() == 0 || t.Out(0).Kind() != reflect.Ptr {
		panic(fmt.Sprintf("registry: constructor for %q must be a function returning a pointer, got %T", class, ctor))
	}

	// Creating the class entry here keeps a constructor-only class
	// enumerable even before any member function is registered.
	if r.classFunctions[class] == nil {
		r.classFunctions[class] = make(map[string]*invoker.Invoker)
	}

	isolated := invoker.NewSynthetic(invoker.ConstructorIsolated, r.makeCreateFunc(class, v, false), r.bridge)
	isolatedKey := "__createIsolated__" + isolated.Signature()
	r.putFunction(class, isolatedKey, isolated)
	slog.Debug("Registered constructor endpoint.", "class", class, "function", isolatedKey)

	shared := invoker.NewSynthetic(invoker.ConstructorShared, r.makeCreateFunc(class, v, true), r.bridge)
	sharedKey := "__createShared__" + shared.Signature()
	r.putFunction(class, sharedKey, shared)
	slog.Debug("Registered constructor endpoint.", "class", class, "function", sharedKey)

	deleteKey := "__delete__" + signature.FromTypes([]reflect.Type{stringType})
	if _, exists := r.functions[class][deleteKey]; !exists {
		del := invoker.NewSynthetic(invoker.Destructor, reflect.ValueOf(func(instanceID string) bool {
			return r.deleteInstance(instanceID)
		}), r.bridge)
		r.putFunction(class, deleteKey, del)
		slog.Debug("Registered destructor endpoint.", "class", class, "function", deleteKey)
	}
}

// makeCreateFunc synthesizes func(instanceID string, ctorArgs...) string.
// Creation is idempotent in the id: an existing id is returned unchanged.
// An empty id is replaced by a generated one, the wire stand-in for ids
// derived from the address of the new object.
func (r *Registry) makeCreateFunc(class string, ctor reflect.Value, shared bool) reflect.Value {
	ctorT := ctor.Type()
	in := make([]reflect.Type, 0, ctorT.NumIn()+1)
	in = append(in, stringType)
	for i := 0; i < ctorT.NumIn(); i++ {
		in = append(in, ctorT.In(i))
	}
	fnT := reflect.FuncOf(in, []reflect.Type{stringType}, false)

	return reflect.MakeFunc(fnT, func(args []reflect.Value) []reflect.Value {
		instanceID := args[0].String()
		if instanceID == "" {
			instanceID = uuid.NewString()
		}
		if _, exists := r.instances[instanceID]; exists {
			return []reflect.Value{reflect.ValueOf(instanceID)}
		}

		results := ctor.Call(args[1:])
		if len(results) == 2 {
			if err, _ := results[1].Interface().(error); err != nil {
				// Surfaces through the invoker's recover as a target error.
				panic(err)
			}
		}
		instance := holder.New(results[0].Interface())

		for key, template := range r.classFunctions[class] {
			bound := template.Clone()
			bound.Bind(instance)
			if r.functions[instanceID] == nil {
				r.functions[instanceID] = make(map[string]*invoker.Invoker)
			}
			r.functions[instanceID][key] = bound
		}
		r.instances[instanceID] = instance
		if shared {
			r.sharedInstances[instanceID] = class
		}
		slog.Debug("Created instance.", "class", class, "instance", instanceID, "shared", shared)
		r.notifyChange()
		return []reflect.Value{reflect.ValueOf(instanceID)}
	})
}

// deleteInstance removes the instance entry, its shared-instance record,
// and every bound invoker, atomically with respect to a single dispatch
// goroutine. The object itself lives on until the last external reference
// (such as a pending callback capturing it) is dropped.
func (r *Registry) deleteInstance(instanceID string) bool {
	if _, exists := r.instances[instanceID]; !exists {
		return false
	}
	delete(r.functions, instanceID)
	delete(r.instances, instanceID)
	delete(r.sharedInstances, instanceID)
	slog.Debug("Deleted instance.", "instance", instanceID)
	r.notifyChange()
	return true
}
