package middleware

// Value is either a fixed value or one computed from the token being written.
// The zero Value resolves to the zero T.
type Value[T any] struct {
	static   T
	computed func(token string) T
}

// Static returns a Value that always resolves to v.
func Static[T any](v T) Value[T] {
	return Value[T]{static: v}
}

// Computed returns a Value resolved by calling fn with the token.
func Computed[T any](fn func(token string) T) Value[T] {
	return Value[T]{computed: fn}
}

// Resolve returns the value for token.
func (v Value[T]) Resolve(token string) T {
	if v.computed != nil {
		return v.computed(token)
	}
	return v.static
}
