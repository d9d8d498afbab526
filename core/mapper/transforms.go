package mapper

import (
	"strings"

	"exercise-sync/core/utils"
)

// AsList normalizes scalars and lists into a []string. Empty results are absent.
func AsList(v any) any {
	list := utils.ToStringSlice(v)
	if len(list) == 0 {
		return nil
	}
	return list
}

// AsString converts to a trimmed string. Blank strings are absent.
func AsString(v any) any {
	s := strings.TrimSpace(utils.ToString(v))
	if s == "" {
		return nil
	}
	return s
}

// AsInt converts to an int.
func AsInt(v any) any {
	if utils.IsBlank(v) {
		return nil
	}
	return utils.ToInt(v)
}

// AsBool converts to a bool.
func AsBool(v any) any {
	if utils.IsBlank(v) {
		return nil
	}
	return utils.ToBool(v)
}

// Lower converts to a lower-cased trimmed string. Blank strings are absent.
func Lower(v any) any {
	s, ok := AsString(v).(string)
	if !ok {
		return nil
	}
	return strings.ToLower(s)
}

// Chain applies transforms left to right, stopping at the first absent value.
func Chain(ts ...Transform) Transform {
	return func(v any) any {
		for _, t := range ts {
			if v = t(v); v == nil {
				return nil
			}
		}
		return v
	}
}
