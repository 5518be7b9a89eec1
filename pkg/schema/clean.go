package schema

// allowedKeys is the subset of JSON-Schema keywords accepted by
// function-calling APIs.
var allowedKeys = map[string]struct{}{
	"name":        {},
	"type":        {},
	"properties":  {},
	"required":    {},
	"description": {},
	"enum":        {},
	"items":       {},
	"format":      {},
}

// IsAllowedKey returns true if the keyword survives Clean.
func IsAllowedKey(key string) bool {
	_, ok := allowedKeys[key]
	return ok
}

// Clean returns a copy of the schema with every keyword outside of the
// allowed list removed, at every nesting level reached through
// "properties" values and "items".
//
// Property names are not keywords and are kept as is.
// Values that are not maps are returned unchanged, so a malformed schema
// is passed through rather than rejected. Clean is idempotent.
func Clean(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	return CleanMap(m)
}

// CleanMap is Clean for a map schema. A nil map returns nil.
func CleanMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	res := make(map[string]any, len(m))
	for k, v := range m {
		if !IsAllowedKey(k) {
			continue
		}
		switch k {
		case "properties":
			res[k] = cleanProperties(v)
		case "items":
			res[k] = Clean(v)
		default:
			res[k] = v
		}
	}
	return res
}

func cleanProperties(v any) any {
	props, ok := v.(map[string]any)
	if !ok {
		return v
	}
	res := make(map[string]any, len(props))
	for name, prop := range props {
		res[name] = Clean(prop)
	}
	return res
}
