package equality

import (
	"reflect"
	"unsafe"
)

// Identical reports whether a and b are the same value by identity.
//
// Comparable dynamic values compare with ==, which for pointers, channels and
// unsafe pointers is address identity. Maps compare by address, slices by backing
// array and length, functions by closure. Arrays and structs that cannot be
// compared with == are walked element by element or field by field, unexported
// fields included, with the same rule.
func Identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return identical(addressable(reflect.ValueOf(a)), addressable(reflect.ValueOf(b)))
}

// addressable copies v into a fresh variable. v must not be read-only.
func addressable(v reflect.Value) reflect.Value {
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp
}

// writable views the addressable v through a fresh pointer, dropping the
// read-only flag reflect puts on unexported fields.
func writable(v reflect.Value) reflect.Value {
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// word reads the single pointer word stored at the addressable v.
func word(v reflect.Value) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(v.UnsafeAddr()))
}

// identical expects both values addressable and writable.
func identical(va, vb reflect.Value) bool {
	if va.Type() != vb.Type() {
		return false
	}
	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}

	switch va.Kind() {
	case reflect.Func:
		return word(va) == word(vb)
	case reflect.Map:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Slice:
		return va.Len() == vb.Len() && va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		ea, eb := va.Elem(), vb.Elem()
		if ea.Type() != eb.Type() {
			return false
		}
		return identical(addressable(ea), addressable(eb))
	case reflect.Array:
		for i := 0; i < va.Len(); i++ {
			if !identical(writable(va.Index(i)), writable(vb.Index(i))) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !identical(writable(va.Field(i)), writable(vb.Field(i))) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
