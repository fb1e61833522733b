package dao

// Accessor describes how a store handles entities of type T keyed by K.
type Accessor[K comparable, T any] struct {
	// Key extracts the entity key.
	Key func(*T) K
	// Clone returns a deep copy; stores clone on both save and load.
	Clone func(*T) *T
	// Field returns a filterable attribute by parameter name.
	Field func(*T, string) (string, bool)
	// Less orders List results; nil leaves the order unspecified.
	Less func(a, b *T) bool
}

// Copy clones v when a Clone function is set.
func (a *Accessor[K, T]) Copy(v *T) *T {
	if a.Clone == nil || v == nil {
		return v
	}
	return a.Clone(v)
}
