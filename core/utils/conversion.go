package utils

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ToInt converts various types to int using explicit type switching.
// Unparseable values convert to 0.
func ToInt(val any) int {
	switch v := val.(type) {
	case nil:
		return 0
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint:
		return int(v)
	case uint64:
		return int(v)
	case uint32:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if ferr != nil {
				return 0
			}
			return int(f)
		}
		return i
	case []byte:
		return ToInt(string(v))
	default:
		return ToInt(fmt.Sprintf("%v", v))
	}
}

// ToString converts various types to string. A nil value converts to "".
// Whole floats render without a fractional part so that 12 and 12.0 compare equal.
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, ToString(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToBool converts various types to bool.
// It handles bool, numeric types (1=true), and strings ("1", "true", "yes").
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int, int64, int32, uint, uint64, uint32, float64, float32:
		return ToInt(v) == 1
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "true" || s == "yes"
	case []byte:
		return ToBool(string(v))
	default:
		return false
	}
}

// ToStringSlice converts a scalar or a list into a list of trimmed, non-empty
// strings. A scalar string becomes a single element even when it holds commas.
// A nil value converts to nil.
func ToStringSlice(val any) []string {
	var raw []string
	switch v := val.(type) {
	case nil:
		return nil
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			raw = append(raw, ToString(item))
		}
	default:
		raw = []string{ToString(v)}
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsBlank reports whether val carries no usable value: nil, an empty or
// whitespace-only string, or an empty list.
func IsBlank(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// SameValue reports whether a and b hold the same value. Lists compare element by
// element and a scalar equals the one-element list holding it. nil equals blank.
func SameValue(a, b any) bool {
	if isList(a) || isList(b) {
		return slices.Equal(ToStringSlice(a), ToStringSlice(b))
	}
	return ToString(a) == ToString(b)
}

// FormatValue renders a value for display. Lists keep their element boundaries.
func FormatValue(val any) string {
	if isList(val) {
		return fmt.Sprintf("%q", ToStringSlice(val))
	}
	return ToString(val)
}

func isList(val any) bool {
	switch val.(type) {
	case []string, []any:
		return true
	}
	return false
}
