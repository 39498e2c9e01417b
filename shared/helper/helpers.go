package helper

import (
	"fmt"
	"reflect"
)

// TypedValue asserts raw to T.
// A nil raw value yields the zero T when T can hold nil (interfaces, pointers, maps, ...).
func TypedValue[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		if nilable(reflect.TypeFor[T]()) {
			return zero, nil
		}
		return zero, fmt.Errorf("unexpected nil for %v", reflect.TypeFor[T]())
	}

	val, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type: %T, want %v", raw, reflect.TypeFor[T]())
	}
	return val, nil
}

// GetTypedValueOf runs getFn and asserts its value to T.
// An error of getFn is returned wrapped, so errors.Is still matches it.
func GetTypedValueOf[T any](getFn func() (any, error)) (T, error) {
	raw, err := getFn()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%v: %w", reflect.TypeFor[T](), err)
	}
	return TypedValue[T](raw)
}

// GetTypedValueOf2 is the comma-ok variant of GetTypedValueOf.
func GetTypedValueOf2[T any](getFn func() (any, bool)) (res T, ok bool) {
	var raw any
	if raw, ok = getFn(); ok {
		var err error
		res, err = TypedValue[T](raw)
		ok = err == nil
	}
	return
}

// MustGetTypedValue panics with the error GetTypedValueOf would return.
func MustGetTypedValue[T any](getFn func() (any, error)) T {
	res, err := GetTypedValueOf[T](getFn)
	if err != nil {
		panic(err)
	}
	return res
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}
