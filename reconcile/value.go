package reconcile

import (
	"strconv"
	"strings"
)

// The server encodes document fields as typed-value wrappers
// ({stringValue: "..."}, {arrayValue: {values: [...]}}, and so on). These
// helpers unwrap them to plain Go scalars and lists. Plain values pass
// through unchanged so hand-written payloads keep working.

// unwrapValue converts a possibly-wrapped value to its plain form.
func unwrapValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if s, ok := m["stringValue"]; ok {
		return s
	}
	if b, ok := m["booleanValue"]; ok {
		return b
	}
	if d, ok := m["doubleValue"]; ok {
		return d
	}
	if n, ok := m["integerValue"]; ok {
		// integerValue arrives as a decimal string
		if s, ok := n.(string); ok {
			if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
				return parsed
			}
		}
		return n
	}
	if arr, ok := m["arrayValue"].(map[string]any); ok {
		values, _ := arr["values"].([]any)
		out := make([]any, 0, len(values))
		for _, item := range values {
			out = append(out, unwrapValue(item))
		}
		return out
	}
	if mv, ok := m["mapValue"].(map[string]any); ok {
		fields, _ := mv["fields"].(map[string]any)
		out := make(map[string]any, len(fields))
		for k, item := range fields {
			out[k] = unwrapValue(item)
		}
		return out
	}
	return v
}

// unwrapString unwraps v and returns it as a string if it is one.
func unwrapString(v any) (string, bool) {
	s, ok := unwrapValue(v).(string)
	return s, ok
}

// unwrapStringList unwraps v and returns it as a list of strings, dropping
// any non-string elements.
func unwrapStringList(v any) ([]string, bool) {
	switch plain := unwrapValue(v).(type) {
	case []any:
		out := make([]string, 0, len(plain))
		for _, item := range plain {
			if s, ok := unwrapValue(item).(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case []string:
		return plain, true
	default:
		return nil, false
	}
}

// lastPathSegment resolves an entity id from a fully-qualified resource
// name such as "projects/p/databases/d/documents/sessions/xyz123".
func lastPathSegment(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	return parts[len(parts)-1]
}
