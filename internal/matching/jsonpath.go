package matching

import (
	"encoding/json"
	"reflect"

	"github.com/ohler55/ojg/jp"
)

// MatchJSONPath evaluates JSONPath conditions against a JSON request body.
// All conditions must hold. The expected value "*" is an existence check.
// A body that is not valid JSON never matches; an unparsable path is
// treated as an unmet condition rather than an error.
func MatchJSONPath(conditions map[string]any, body []byte) bool {
	if len(conditions) == 0 {
		return true
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return false
	}

	for path, expected := range conditions {
		if !matchSingleJSONPath(path, expected, data) {
			return false
		}
	}
	return true
}

func matchSingleJSONPath(path string, expected, data any) bool {
	x, err := jp.ParseString(path)
	if err != nil {
		return false
	}

	results := x.Get(data)
	if len(results) == 0 {
		return false
	}

	// Existence check
	if s, ok := expected.(string); ok && s == "*" {
		return true
	}

	// Wildcard paths can yield several values; any equal value matches.
	for _, result := range results {
		if valuesEqual(result, expected) {
			return true
		}
	}
	return false
}

// valuesEqual compares an extracted value with an expected one, coercing
// numeric types so YAML ints compare equal to JSON float64s.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == expected
	}

	if af, aok := toFloat(actual); aok {
		if ef, eok := toFloat(expected); eok {
			return af == ef
		}
		return false
	}

	return reflect.DeepEqual(actual, expected)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
