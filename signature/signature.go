// Package signature derives the canonical string that disambiguates method
// overloads.
//
// A signature is the ":"-joined list of JSON type names of the positional
// arguments, prefixed with "-" when non-empty. The type names form the
// closed set {null, boolean, string, number, array, object}. A callback
// parameter is transported as a string token, so it contributes "string";
// this lets the server decide whether a position is a callback from the
// registered parameter list alone, never from the incoming value.
package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// JSON type names.
const (
	Null    = "null"
	Boolean = "boolean"
	String  = "string"
	Number  = "number"
	Array   = "array"
	Object  = "object"
)

// FromArgs computes the signature of a raw positional argument array.
func FromArgs(args []json.RawMessage) string {
	if len(args) == 0 {
		return ""
	}
	names := make([]string, 0, len(args))
	for _, a := range args {
		names = append(names, TypeNameOf(a))
	}
	return "-" + strings.Join(names, ":")
}

// FromTypes computes the registration-time signature of a declared
// parameter list. It must agree with FromArgs for every argument array
// whose elements decode as the declared types.
func FromTypes(params []reflect.Type) string {
	if len(params) == 0 {
		return ""
	}
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, JSONTypeOf(p))
	}
	return "-" + strings.Join(names, ":")
}

// TypeNameOf reports the JSON type name of one raw value. The first
// non-space byte is decisive; anything that is not an object, array,
// string, boolean, or null must be a number.
func TypeNameOf(raw json.RawMessage) string {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return Null
	}
	switch trimmed[0] {
	case '{':
		return Object
	case '[':
		return Array
	case '"':
		return String
	case 't', 'f':
		return Boolean
	case 'n':
		return Null
	default:
		return Number
	}
}

// JSONTypeOf maps a Go parameter type to its JSON type name, the way the
// standard encoder would serialize a value of that type. Func parameters
// are callbacks and map to "string". Types with no stable wire encoding
// (interfaces, channels, complex numbers) cannot be registered and panic.
func JSONTypeOf(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Func:
		return String
	case reflect.String:
		return String
	case reflect.Bool:
		return Boolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number
	case reflect.Slice, reflect.Array:
		// []byte serializes as a base64 string.
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return String
		}
		return Array
	case reflect.Map, reflect.Struct:
		return Object
	case reflect.Ptr:
		return JSONTypeOf(t.Elem())
	default:
		panic(fmt.Sprintf("signature: parameter type %s has no JSON wire representation", t))
	}
}
