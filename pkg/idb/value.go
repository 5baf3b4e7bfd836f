package idb

import (
	"encoding/json"
	"strings"
)

// clone makes the stored form of v: a JSON round trip into plain maps,
// slices, float64, string, bool and nil.
func clone(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, wrapError(NameDataClone, err, "value cannot be cloned")
	}
	return decodeValue(raw)
}

func decodeValue(raw []byte) (any, error) {
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, wrapError(NameUnknown, err, "stored value is corrupt")
	}
	return out, nil
}

func encodeValue(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", wrapError(NameDataClone, err, "value cannot be serialized")
	}
	return string(raw), nil
}

// ValidKeyPath reports whether path is a dotted sequence of identifiers.
// The empty path is valid and names the value itself.
func ValidKeyPath(path string) bool {
	if path == "" {
		return true
	}
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			ok := r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 0x7f
			if i > 0 {
				ok = ok || (r >= '0' && r <= '9')
			}
			if !ok {
				return false
			}
		}
	}
	return true
}

// evaluateKeyPath returns the value found at path inside v.
func evaluateKeyPath(v any, path string) (any, bool) {
	if path == "" {
		return v, v != nil
	}
	cur := v
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			if s, isStr := cur.(string); isStr && part == "length" {
				return float64(len([]rune(s))), true
			}
			if a, isArr := cur.([]any); isArr && part == "length" {
				return float64(len(a)), true
			}
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// injectKey writes key at path inside v, creating intermediate objects.
func injectKey(v any, path string, key Key) error {
	m, ok := v.(map[string]any)
	if !ok {
		return newError(NameData, "cannot inject a generated key into a %s value", kindOf(v))
	}
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, exists := m[part]
		if !exists {
			child := map[string]any{}
			m[part] = child
			m = child
			continue
		}
		if m, ok = next.(map[string]any); !ok {
			return newError(NameData, "key path %q crosses a non-object value", path)
		}
	}
	m[parts[len(parts)-1]] = key
	return nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	}
	return "unknown"
}
