package model

// CloneMap returns a deep copy of a context map; nested maps and slices are copied.
func CloneMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(src))
	for k, v := range src {
		ret[k] = cloneValue(v)
	}
	return ret
}

func cloneValue(v interface{}) interface{} {
	switch actual := v.(type) {
	case map[string]interface{}:
		return CloneMap(actual)
	case []interface{}:
		ret := make([]interface{}, len(actual))
		for i, item := range actual {
			ret[i] = cloneValue(item)
		}
		return ret
	case []string:
		return append([]string{}, actual...)
	}
	return v
}

// Merge copies src into dst (last write wins) and returns dst.
func Merge(dst map[string]interface{}, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

// CloneStrings copies a string slice.
func CloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	return append([]string{}, src...)
}
