package parser

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotObject is returned when a model response cannot be coerced into a
// JSON object.
var ErrNotObject = errors.New("response is not a valid JSON object")

// StripCodeFences removes a markdown code fence wrapper, with or without a
// "json" language tag, and returns the inner text. Unfenced input passes
// through trimmed.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 3 {
		return s
	}
	inner := parts[1]
	if strings.HasPrefix(strings.ToLower(inner), "json") {
		inner = inner[4:]
	}
	return strings.TrimSpace(inner)
}

// CoerceToObject turns a raw model response into a JSON object. Models
// sometimes wrap the object in a list, a fenced block, or a quoted string;
// each shape is unwrapped in turn. A response that is none of these fails
// with ErrNotObject.
func CoerceToObject(raw string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &v); err != nil {
		return nil, ErrNotObject
	}
	return coerceValue(v, true)
}

func coerceValue(v any, allowString bool) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case []any:
		obj, ok := bestObjectFromList(t)
		if !ok {
			return nil, ErrNotObject
		}
		return obj, nil
	case string:
		if !allowString {
			return nil, ErrNotObject
		}
		var inner any
		if err := json.Unmarshal([]byte(StripCodeFences(t)), &inner); err != nil {
			return nil, ErrNotObject
		}
		return coerceValue(inner, false)
	default:
		return nil, ErrNotObject
	}
}

// bestObjectFromList picks the object with the most meaningful values, where
// meaningful means not null, not the empty string, and not an empty
// collection. Ties keep the first. An empty list yields an empty object; a
// non-empty list holding no objects falls back to its first element, which is
// never an object, so the second return is false.
func bestObjectFromList(lst []any) (map[string]any, bool) {
	if len(lst) == 0 {
		return map[string]any{}, true
	}
	var best map[string]any
	bestScore := -1
	for _, item := range lst {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		score := 0
		for _, v := range obj {
			if meaningful(v) {
				score++
			}
		}
		if score > bestScore {
			best = obj
			bestScore = score
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

func meaningful(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
