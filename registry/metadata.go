package registry

import "encoding/json"

// ParamMeta describes one declared parameter for introspection. Default is
// JSON null for required parameters; it carries the JSON-encoded default
// value otherwise. Defaults are informative only; the adapter never applies them
// on behalf of absent arguments.
type ParamMeta struct {
	Name        string          `json:"name"`
	Optional    bool            `json:"optional"`
	Default     json.RawMessage `json:"default"`
	Description string          `json:"description"`
}

// RetMeta describes a function's return value.
type RetMeta struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// FunctionMeta is the per-method metadata blob served by MetaData.
type FunctionMeta struct {
	Description string      `json:"description"`
	Params      []ParamMeta `json:"params"`
	Ret         RetMeta     `json:"ret"`
}

// RegisterMetaData attaches metadata to the full lookup name of an already
// registered function. The return type name is filled in from the bound
// invoker when the caller left it empty.
func (r *Registry) RegisterMetaData(class, function string, meta *FunctionMeta) {
	if meta.Ret.Type == "" {
		if iv, ok := r.functions[class][function]; ok {
			meta.Ret.Type = iv.ReturnTypeName()
		} else if iv, ok := r.classFunctions[class][function]; ok {
			meta.Ret.Type = iv.ReturnTypeName()
		}
	}
	for i := range meta.Params {
		if meta.Params[i].Default == nil {
			meta.Params[i].Default = json.RawMessage("null")
		}
	}
	if r.metaData[class] == nil {
		r.metaData[class] = make(map[string]*FunctionMeta)
	}
	r.metaData[class][function] = meta
}

// MetaData returns the metadata registered for a class, keyed by full
// lookup name. Classes without metadata yield an empty map.
func (r *Registry) MetaData(class string) map[string]*FunctionMeta {
	meta := make(map[string]*FunctionMeta, len(r.metaData[class]))
	for key, m := range r.metaData[class] {
		meta[key] = m
	}
	return meta
}
