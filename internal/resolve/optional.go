package resolve

// Optional wraps an overridable settings field. The zero value is unset.
// An unset field inherits from the next layer down; a set field wins even
// when its value is blank or false.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a set Optional holding value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, set: true}
}

// None returns an unset Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// FromPtr converts a pointer into an Optional: nil maps to unset.
func FromPtr[T any](ptr *T) Optional[T] {
	if ptr == nil {
		return Optional[T]{}
	}
	return Some(*ptr)
}

// IsSet reports whether the field carries an explicit value.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// Get returns the value and whether it is set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// Or returns the value when set, fallback otherwise.
func (o Optional[T]) Or(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// overlay returns the higher-priority Optional when it is set, otherwise
// the receiver.
func (o Optional[T]) overlay(higher Optional[T]) Optional[T] {
	if higher.set {
		return higher
	}
	return o
}
