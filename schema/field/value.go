package field

import (
	"reflect"
)

// Normalize dereferences pointer values and maps nil pointers, nil
// interfaces and zero values to nil, so that a value read from any property
// can be compared against a key read from another.
func Normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.IsZero() {
		return nil
	}
	return rv.Interface()
}

// IsUnset reports whether v represents an absent value.
func IsUnset(v any) bool {
	return Normalize(v) == nil
}

// Convert adapts v to the Go type V. Unset values become the zero value of V,
// pointer types are allocated when v holds the element value, and numeric
// values are converted between integer widths.
func Convert[V any](v any) V {
	var zero V
	if v == nil {
		return zero
	}
	if tv, ok := v.(V); ok {
		return tv
	}
	target := reflect.TypeFor[V]()
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return zero
		}
		rv = rv.Elem()
	}
	if target.Kind() == reflect.Pointer {
		if !convertible(rv.Type(), target.Elem()) {
			return zero
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(rv.Convert(target.Elem()))
		return ptr.Interface().(V)
	}
	if convertible(rv.Type(), target) {
		return rv.Convert(target).Interface().(V)
	}
	return zero
}

// convertible permits conversions within one kind (named types) and between
// numeric kinds, but not e.g. int to string.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	return from.Kind() == to.Kind() || (isNumeric(from.Kind()) && isNumeric(to.Kind()))
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
