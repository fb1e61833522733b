package criteria

import (
	"github.com/viant/opsagent/service/dao"
)

// Matches reports whether every parameter the field accessor understands
// matches; a parameter value may be a string or a []string (any of).
func Matches(field func(name string) (string, bool), parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || field == nil {
			continue
		}
		value, ok := field(parameter.Name)
		if !ok {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			if value != actual {
				return false
			}
		case []string:
			if len(actual) == 0 {
				continue
			}
			matched := false
			for _, candidate := range actual {
				if value == candidate {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// Filter returns the items matching parameters.
func Filter[K comparable, T any](accessor *dao.Accessor[K, T], items []*T, parameters []*dao.Parameter) []*T {
	if len(parameters) == 0 || accessor.Field == nil {
		return items
	}
	var ret []*T
	for _, item := range items {
		field := func(name string) (string, bool) { return accessor.Field(item, name) }
		if Matches(field, parameters) {
			ret = append(ret, item)
		}
	}
	return ret
}
