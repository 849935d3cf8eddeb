// Package nodes holds helpers shared by the node implementations.
package nodes

import (
	"fmt"
	"strconv"
)

// String reads an optional string field.
func String(config map[string]any, key string) (string, bool) {
	value, ok := config[key].(string)

	return value, ok
}

// RequiredString reads a string field that must be present.
func RequiredString(config map[string]any, key string) (string, error) {
	value, ok := String(config, key)
	if !ok {
		return "", fmt.Errorf("missing required field '%s'", key)
	}

	return value, nil
}

// Float reads a numeric field. JSON documents decode numbers as float64 and
// YAML documents as int, so both are accepted.
func Float(config map[string]any, key string) (float64, bool, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false, fmt.Errorf("field '%s' must be a number: %w", key, err)
		}

		return f, true, nil
	default:
		return 0, false, fmt.Errorf("field '%s' must be a number, got %T", key, raw)
	}
}

// Strings reads a list of strings.
func Strings(config map[string]any, key string) ([]string, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		values := make([]string, len(v))

		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				values[i] = fmt.Sprintf("%v", item)

				continue
			}

			values[i] = s
		}

		return values, nil
	default:
		return nil, fmt.Errorf("field '%s' must be a list", key)
	}
}
