package domain

import "encoding/json"

// Args is the argument document of a single command: the JSON object found
// under the command name key. Values are as decoded by encoding/json with
// UseNumber, so numeric literals keep their textual form.
type Args map[string]any

// String returns the argument under key coerced to a string. Strings pass
// through, numbers and booleans stringify; missing keys and values of any
// other shape coerce to the empty string, which the per-command validation
// then treats as an absent argument.
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	}
	return ""
}

// AnyEmpty reports whether any of the given argument values is empty.
func AnyEmpty(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return true
		}
	}
	return false
}
