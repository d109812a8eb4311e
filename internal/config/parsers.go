// Package config provides configuration loading and parsing for surge.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Config file values arrive as whatever the JSON or YAML decoder produced:
// string, bool, int, int64, float64, []interface{} or map[string]interface{}.
// The helpers below coerce those shapes and nothing else.

// lookupSetting returns the first candidate key present in settings.
// Keys are compared in lowercase, which is how viper stores them.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %T", value)
	}
}

// asInt accepts whole numbers written as numbers or strings. JSON decodes
// every number as float64, so fractional values are rejected explicitly.
func asInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected a whole number, got %v", v)
		}
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		return strconv.ParseBool(s)
	default:
		return false, fmt.Errorf("expected true or false, got %T", value)
	}
}

// asDuration parses Go duration strings ("15s", "1m30s"). Bare numbers are
// seconds, so `duration: 15` means fifteen seconds.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return time.ParseDuration(s)
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected a duration, got %T", value)
	}
}

// asSection returns a nested mapping such as tracing or environments.
func asSection(value interface{}) (map[string]interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return v, nil
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", value)
	}
}

// asStringMap flattens a mapping of scalars. Keys are kept exactly as the
// decoder returned them; callers decide whether case matters.
func asStringMap(value interface{}) (map[string]string, error) {
	section, err := asSection(value)
	if err != nil || section == nil {
		return nil, err
	}
	out := make(map[string]string, len(section))
	for key, raw := range section {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("empty key")
		}
		val, err := asString(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = val
	}
	return out, nil
}

// asStringSlice accepts a list of scalars, or a single string as a one-item list.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			s, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
}
