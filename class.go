package vrpc

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/heisenware/vrpc-go/registry"
	"github.com/heisenware/vrpc-go/signature"
)

type required struct{}

// Required is the default-value sentinel marking a parameter as mandatory
// in metadata. It is distinct from every JSON value, including null.
var Required required

// Param carries the extended metadata for one declared parameter. Default
// is either Required or any JSON-encodable value; defaults are served
// through GetMetaData but never applied on behalf of absent arguments.
type Param struct {
	Name        string
	Default     any
	Description string
}

// Class accumulates the bindings of one class and applies them to a
// registry in declaration order.
type Class struct {
	name string
	ops  []func(*registry.Registry)
}

// NewClass starts a binding declaration for the named class.
func NewClass(name string) *Class {
	return &Class{name: name}
}

// Constructor declares a constructor. fn must return a pointer to the
// instance, optionally with a trailing error. Each declared constructor
// injects a __createIsolated__ and a __createShared__ endpoint matching its
// parameter signature; __delete__ is injected once per class.
func (c *Class) Constructor(fn any) *Class {
	c.ops = append(c.ops, func(r *registry.Registry) {
		r.RegisterConstructor(c.name, fn)
	})
	return c
}

// ConstructorX is Constructor plus metadata, attached to the shared-create
// endpoint.
func (c *Class) ConstructorX(fn any, description string, params ...Param) *Class {
	c.ops = append(c.ops, func(r *registry.Registry) {
		r.RegisterConstructor(c.name, fn)
		t := reflect.TypeOf(fn)
		in := make([]reflect.Type, 0, t.NumIn()+1)
		in = append(in, reflect.TypeOf(""))
		for i := 0; i < t.NumIn(); i++ {
			in = append(in, t.In(i))
		}
		key := "__createShared__" + signature.FromTypes(in)
		r.RegisterMetaData(c.name, key, &registry.FunctionMeta{
			Description: description,
			Params:      metaParams(params),
			Ret:         registry.RetMeta{Type: signature.String, Description: "the id of the created instance"},
		})
	})
	return c
}

// Member declares a member function from a method expression, for example
// (*Bar).AddBottle.
func (c *Class) Member(name string, fn any) *Class {
	c.ops = append(c.ops, func(r *registry.Registry) {
		r.RegisterMemberFunction(c.name, name, fn)
	})
	return c
}

// MemberX is Member plus metadata.
func (c *Class) MemberX(name string, fn any, description, retDescription string, params ...Param) *Class {
	c.ops = append(c.ops, func(r *registry.Registry) {
		key := r.RegisterMemberFunction(c.name, name, fn)
		r.RegisterMetaData(c.name, key, &registry.FunctionMeta{
			Description: description,
			Params:      metaParams(params),
			Ret:         registry.RetMeta{Description: retDescription},
		})
	})
	return c
}

// Static declares a free function callable with the class as context.
func (c *Class) Static(name string, fn any) *Class {
	c.ops = append(c.ops, func(r *registry.Registry) {
		r.RegisterStaticFunction(c.name, name, fn)
	})
	return c
}

// StaticX is Static plus metadata.
func (c *Class) StaticX(name string, fn any, description, retDescription string, params ...Param) *Class {
	c.ops = append(c.ops, func(r *registry.Registry) {
		key := r.RegisterStaticFunction(c.name, name, fn)
		r.RegisterMetaData(c.name, key, &registry.FunctionMeta{
			Description: description,
			Params:      metaParams(params),
			Ret:         registry.RetMeta{Description: retDescription},
		})
	})
	return c
}

// Register applies the accumulated bindings to the process-wide registry.
func (c *Class) Register() {
	c.RegisterInto(defaultRegistry)
}

// RegisterInto applies the accumulated bindings to r.
func (c *Class) RegisterInto(r *registry.Registry) {
	for _, op := range c.ops {
		op(r)
	}
}

func metaParams(params []Param) []registry.ParamMeta {
	metas := make([]registry.ParamMeta, 0, len(params))
	for _, p := range params {
		meta := registry.ParamMeta{Name: p.Name, Description: p.Description}
		if _, isRequired := p.Default.(required); isRequired {
			meta.Optional = false
			meta.Default = json.RawMessage("null")
		} else {
			data, err := json.Marshal(p.Default)
			if err != nil {
				panic(fmt.Sprintf("vrpc: default value for parameter %q is not JSON-encodable: %v", p.Name, err))
			}
			meta.Optional = true
			meta.Default = data
		}
		metas = append(metas, meta)
	}
	return metas
}
