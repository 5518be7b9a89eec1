// Package schema derives and cleans the JSON-Schema of tool inputs.
package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const defsPrefix = "#/$defs/"

// cache of *Schema by reflect.Type
var cache sync.Map

// Schema is the input schema of a Go type, used to describe tools
// implemented in process.
type Schema struct {
	// Parameters is the function parameters object, without references
	Parameters *jsonschema.Schema

	params map[string]any
}

// New returns the schema of the struct type t, or of the struct t points to.
// Schemas are built once per type.
func New(t reflect.Type) (*Schema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := cache.Load(t); ok {
		return s.(*Schema), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Newf("tool input must be a struct, got %s", t.Kind())
	}

	params, err := ToFunctionSchema(Reflect(t))
	if err != nil {
		return nil, errors.WithMessagef(err, "schema for %s", t.Name())
	}

	js, err := json.Marshal(params)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var m map[string]any
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.WithStack(err)
	}

	s, _ := cache.LoadOrStore(t, &Schema{
		Parameters: params,
		params:     CleanMap(m),
	})
	return s.(*Schema), nil
}

func (s *Schema) String() string {
	js, _ := json.MarshalIndent(s.Parameters, "", "\t")
	return string(js)
}

// Map returns a copy of Parameters as a generic JSON-Schema map, reduced to
// the keywords function-calling APIs accept.
func (s *Schema) Map() map[string]any {
	return CleanMap(s.params)
}

// Reflect returns the JSON-Schema of the type, with struct names qualified
// by a hash of their package path.
func Reflect(t reflect.Type) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
		Namer: func(t reflect.Type) string {
			if t.Kind() != reflect.Struct {
				return t.Name()
			}
			return t.Name() + "@" + strconv.FormatUint(xxhash.Sum64String(t.PkgPath()+"/"+t.Name()), 10)
		},
	}
	return r.ReflectFromType(t)
}

// ToFunctionSchema returns the root object of the reflected schema,
// with references to definitions resolved in place.
func ToFunctionSchema(reflected *jsonschema.Schema) (*jsonschema.Schema, error) {
	root := reflected
	if def, ok := reflected.Definitions[strings.TrimPrefix(reflected.Ref, defsPrefix)]; ok && reflected.Ref != "" {
		root = def
	}

	res := &jsonschema.Schema{
		Type:       root.Type,
		Properties: root.Properties,
		Required:   root.Required,
	}
	if res.Type == "" {
		res.Type = "object"
	}
	if res.Properties == nil {
		res.Properties = orderedmap.New[string, *jsonschema.Schema]()
	}

	defs := make(jsonschema.Definitions, len(reflected.Definitions))
	for name, def := range reflected.Definitions {
		if def != root {
			defs[name] = def
		}
	}
	if err := resolveRefs(res.Properties, defs); err != nil {
		return nil, err
	}
	return res, nil
}

func resolveRefs(props *orderedmap.OrderedMap[string, *jsonschema.Schema], defs jsonschema.Definitions) error {
	if props == nil {
		return nil
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Ref != "" {
			def, err := lookupRef(pair.Value.Ref, defs)
			if err != nil {
				return errors.WithMessagef(err, "property %q", pair.Key)
			}
			pair.Value = def
		}
		child := pair.Value
		if err := resolveRefs(child.Properties, defs); err != nil {
			return err
		}
		if child.Items != nil && child.Items.Ref != "" {
			def, err := lookupRef(child.Items.Ref, defs)
			if err != nil {
				return errors.WithMessagef(err, "items of %q", pair.Key)
			}
			child.Items = def
		}
	}
	return nil
}

func lookupRef(ref string, defs jsonschema.Definitions) (*jsonschema.Schema, error) {
	if def, ok := defs[strings.TrimPrefix(ref, defsPrefix)]; ok {
		return def, nil
	}
	return nil, errors.Newf("definition not found: %s", ref)
}
