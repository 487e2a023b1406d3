// Package manifest loads class metadata from HCL files and attaches it to a
// registry.
//
// Manifests are the declarative counterpart of the X-form binding calls:
// they carry function descriptions, per-parameter defaults, and return
// descriptions. Applying a manifest performs a strict parity check (every
// function a manifest describes must actually be registered) so that the
// public-facing documentation cannot drift from the compiled bindings.
package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/heisenware/vrpc-go/registry"
)

// File is the decoded form of one or more manifest files.
type File struct {
	Classes []*ClassDef `hcl:"class,block"`
}

// ClassDef describes the functions of one class.
type ClassDef struct {
	Name      string         `hcl:"name,label"`
	Functions []*FunctionDef `hcl:"function,block"`
}

// FunctionDef describes one function. Signature is only needed to pick a
// single overload; without it the metadata attaches to every overload of
// the base name.
type FunctionDef struct {
	Name        string      `hcl:"name,label"`
	Signature   string      `hcl:"signature,optional"`
	Description string      `hcl:"description,optional"`
	Params      []*ParamDef `hcl:"param,block"`
	Ret         *RetDef     `hcl:"ret,block"`
}

// ParamDef describes one parameter. A parameter is required when it says so
// or when it has no valid default.
type ParamDef struct {
	Name        string         `hcl:"name,label"`
	Default     hcl.Expression `hcl:"default,optional"`
	Required    bool           `hcl:"required,optional"`
	Description string         `hcl:"description,optional"`
}

// RetDef describes the return value.
type RetDef struct {
	Description string `hcl:"description,optional"`
}

// Load parses one manifest file.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}
	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, diags)
	}
	slog.Debug("Loaded manifest file.", "path", path, "classes", len(f.Classes))
	return &f, nil
}

// Apply validates the manifest against the registry and attaches the
// metadata. Validation is strict per function: a described function must be
// registered under the class; mismatches are collected into a single error.
// Registered functions that no manifest describes are not reported.
func (f *File) Apply(r *registry.Registry) error {
	var errs []string
	for _, class := range f.Classes {
		keys := append(r.MemberFunctions(class.Name), r.StaticFunctions(class.Name)...)
		if len(keys) == 0 {
			errs = append(errs, fmt.Sprintf("class '%s': not registered", class.Name))
			continue
		}
		for _, fn := range class.Functions {
			matched := matchKeys(keys, fn)
			if len(matched) == 0 {
				errs = append(errs, fmt.Sprintf("class '%s': manifest describes function '%s%s' which is not registered", class.Name, fn.Name, fn.Signature))
				continue
			}
			meta, err := fn.toMeta()
			if err != nil {
				errs = append(errs, fmt.Sprintf("class '%s', function '%s': %v", class.Name, fn.Name, err))
				continue
			}
			for _, key := range matched {
				r.RegisterMetaData(class.Name, key, meta)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("manifest validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// matchKeys selects the registered lookup names a function definition
// refers to: the exact name+signature when a signature is given, every
// overload of the base name otherwise.
func matchKeys(keys []string, fn *FunctionDef) []string {
	var matched []string
	for _, key := range keys {
		if fn.Signature != "" {
			if key == fn.Name+fn.Signature {
				matched = append(matched, key)
			}
			continue
		}
		base := key
		if i := strings.Index(key, "-"); i >= 0 {
			base = key[:i]
		}
		if base == fn.Name {
			matched = append(matched, key)
		}
	}
	return matched
}

func (fn *FunctionDef) toMeta() (*registry.FunctionMeta, error) {
	meta := &registry.FunctionMeta{Description: fn.Description}
	if fn.Ret != nil {
		meta.Ret.Description = fn.Ret.Description
	}
	for _, p := range fn.Params {
		pm := registry.ParamMeta{Name: p.Name, Description: p.Description}
		defaultVal, err := evalDefault(p)
		if err != nil {
			return nil, err
		}
		if defaultVal != nil && !p.Required {
			pm.Optional = true
			pm.Default = defaultVal
		} else {
			pm.Default = json.RawMessage("null")
		}
		meta.Params = append(meta.Params, pm)
	}
	return meta, nil
}

// evalDefault evaluates a default expression to its wire JSON. A default is
// only valid if it evaluates without error and is not null.
func evalDefault(p *ParamDef) (json.RawMessage, error) {
	if p.Default == nil {
		return nil, nil
	}
	val, diags := p.Default.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid default value for param '%s': %w", p.Name, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	data, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to encode default value for param '%s': %w", p.Name, err)
	}
	return data, nil
}
