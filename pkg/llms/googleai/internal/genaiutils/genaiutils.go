package genaiutils

import (
	"fmt"
	"slices"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"google.golang.org/genai"
)

// ConvertTools converts function definitions to a single genai tool
// carrying all the function declarations. No tools returns nil.
func ConvertTools(tools []llms.Tool) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for i, tool := range tools {
		if tool.Type != "function" || tool.Function == nil {
			return nil, errors.Newf("tool [%d]: unsupported type %q, want 'function'", i, tool.Type)
		}

		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  ConvertSchema(tool.Function.Parameters),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

// ConvertSchema converts a JSON-Schema map to a genai.Schema.
// Only the keywords supported by function declarations are read. A keyword
// of an unexpected shape is dropped, never failing the conversion.
// Enum is kept on string schemas only.
func ConvertSchema(m map[string]any) *genai.Schema {
	if len(m) == 0 {
		return nil
	}

	s := &genai.Schema{}

	switch typ := m["type"].(type) {
	case string:
		s.Type = ConvertJSONSchemaType(typ)
	case []any:
		// ["string", "null"]
		for _, v := range typ {
			name, _ := v.(string)
			if name == "null" {
				s.Nullable = genai.Ptr(true)
				continue
			}
			if s.Type == "" {
				s.Type = ConvertJSONSchemaType(name)
			}
		}
	}

	s.Description, _ = m["description"].(string)
	s.Format, _ = m["format"].(string)
	if title, ok := m["name"].(string); ok {
		s.Title = title
	}

	if props, ok := m["properties"].(map[string]any); ok && len(props) > 0 {
		if s.Type == "" {
			s.Type = genai.TypeObject
		}
		names := make([]string, 0, len(props))
		for name, v := range props {
			if _, ok := v.(map[string]any); ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		s.Properties = make(map[string]*genai.Schema, len(names))
		s.PropertyOrdering = names
		for _, name := range names {
			ps := ConvertSchema(props[name].(map[string]any))
			if ps == nil {
				ps = &genai.Schema{}
			}
			s.Properties[name] = ps
		}
	}

	s.Required = stringList(m["required"])
	if s.Properties != nil {
		s.Required = slices.DeleteFunc(slices.Clone(s.Required), func(name string) bool {
			_, ok := s.Properties[name]
			return !ok
		})
	}
	if len(s.Required) == 0 {
		s.Required = nil
	}

	if s.Type == genai.TypeString {
		s.Enum = stringList(m["enum"])
	}

	if items, ok := m["items"].(map[string]any); ok {
		s.Items = ConvertSchema(items)
	}

	return s
}

// stringList returns the items of a JSON list as strings.
// Other values are formatted with fmt.Sprint, nil items are skipped.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		res := make([]string, 0, len(list))
		for _, item := range list {
			switch val := item.(type) {
			case nil:
			case string:
				res = append(res, val)
			default:
				res = append(res, fmt.Sprint(val))
			}
		}
		return res
	}
	return nil
}

// ConvertJSONSchemaType converts a JSON-Schema type name to a genai.Type.
func ConvertJSONSchemaType(dt string) genai.Type {
	switch dt {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

// ConvertToolChoice converts the function call behavior to a tool config.
// The default behavior returns nil.
func ConvertToolChoice(choice llms.FunctionCallBehavior) *genai.ToolConfig {
	var mode genai.FunctionCallingConfigMode
	switch choice {
	case llms.FunctionCallBehaviorNone:
		mode = genai.FunctionCallingConfigModeNone
	case llms.FunctionCallBehaviorAny:
		mode = genai.FunctionCallingConfigModeAny
	case llms.FunctionCallBehaviorAuto:
		mode = genai.FunctionCallingConfigModeAuto
	default:
		return nil
	}
	return &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
	}
}

func Float32Ptr(f float32) *float32 {
	if f == 0 {
		return nil
	}
	return &f
}

func Int32Ptr(i int32) *int32 {
	if i == 0 {
		return nil
	}
	return &i
}
