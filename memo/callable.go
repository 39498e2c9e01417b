package memo

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/on-the-ground/memo_ive_go/shared/helper"
)

// Args is the ordered argument list of one invocation.
// It is held by reference; the cache never copies it.
type Args []any

// anyArity marks a callable that accepts argument lists of any length.
const anyArity = -1

// identity is the heap object whose address identifies a callable.
// The cache only ever holds weak pointers to it.
type identity struct {
	id   string
	name string
}

// Key is implemented by every *Callable and identifies its cache slot.
type Key interface {
	identity() *identity
}

// Callable is a memoizable unit of behavior.
//
// Identity, not behavior, keys the cache: two Callables built from the same Go
// function occupy two slots, while the same *Callable always maps to one slot.
// Once a Callable is unreachable its slot is dropped by the garbage collector.
type Callable[R any] struct {
	key   *identity
	arity int
	bind  func(this any, args Args) (func() (R, error), error)
}

func newCallable[R any](arity int, bind func(this any, args Args) (func() (R, error), error)) *Callable[R] {
	return &Callable[R]{
		key:   &identity{id: uuid.New().String()},
		arity: arity,
		bind:  bind,
	}
}

// Named sets the name used for fn in logs. Call it before fn is shared.
func (fn *Callable[R]) Named(name string) *Callable[R] {
	fn.key.name = name
	return fn
}

// ID returns the unique id assigned to fn at construction.
func (fn *Callable[R]) ID() string { return fn.key.id }

// Name returns the name given with Named, or the id.
func (fn *Callable[R]) Name() string { return fn.key.label() }

// Arity returns the number of arguments fn declares, or -1 for Variadic callables.
func (fn *Callable[R]) Arity() int { return fn.arity }

func (fn *Callable[R]) String() string {
	return fmt.Sprintf("memo.Callable(%s/%d)", fn.key.label(), fn.arity)
}

// Call invokes fn directly, bypassing every cache.
func (fn *Callable[R]) Call(this any, args Args) (R, error) {
	thunk, err := fn.prepare(this, args)
	if err != nil {
		var zero R
		return zero, err
	}
	return thunk()
}

func (fn *Callable[R]) identity() *identity {
	if fn == nil {
		return nil
	}
	return fn.key
}

// prepare checks the shape of the invocation and returns the bound call.
func (fn *Callable[R]) prepare(this any, args Args) (func() (R, error), error) {
	if fn.arity != anyArity && len(args) != fn.arity {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d",
			ErrMalformedInvocation, fn.key.label(), fn.arity, len(args))
	}
	thunk, err := fn.bind(this, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInvocation, fn.key.label(), err)
	}
	return thunk, nil
}

func (i *identity) label() string {
	if i.name != "" {
		return i.name
	}
	return i.id
}

func argAt[T any](args Args, i int) (T, error) {
	v, err := helper.TypedValue[T](args[i])
	if err != nil {
		return v, fmt.Errorf("argument %d: %w", i, err)
	}
	return v, nil
}

func receiver[T any](this any) (T, error) {
	v, err := helper.TypedValue[T](this)
	if err != nil {
		return v, fmt.Errorf("receiver: %w", err)
	}
	return v, nil
}

// Func0 makes a memoizable callable of a function without arguments.
func Func0[R any](fn func() (R, error)) *Callable[R] {
	return newCallable(0, func(_ any, _ Args) (func() (R, error), error) {
		return fn, nil
	})
}

// Func1 makes a memoizable callable of a one-argument function.
func Func1[A1, R any](fn func(A1) (R, error)) *Callable[R] {
	return newCallable(1, func(_ any, args Args) (func() (R, error), error) {
		a1, err := argAt[A1](args, 0)
		if err != nil {
			return nil, err
		}
		return func() (R, error) { return fn(a1) }, nil
	})
}

// Func2 makes a memoizable callable of a two-argument function.
func Func2[A1, A2, R any](fn func(A1, A2) (R, error)) *Callable[R] {
	return newCallable(2, func(_ any, args Args) (func() (R, error), error) {
		a1, err := argAt[A1](args, 0)
		if err != nil {
			return nil, err
		}
		a2, err := argAt[A2](args, 1)
		if err != nil {
			return nil, err
		}
		return func() (R, error) { return fn(a1, a2) }, nil
	})
}

// Func3 makes a memoizable callable of a three-argument function.
func Func3[A1, A2, A3, R any](fn func(A1, A2, A3) (R, error)) *Callable[R] {
	return newCallable(3, func(_ any, args Args) (func() (R, error), error) {
		a1, err := argAt[A1](args, 0)
		if err != nil {
			return nil, err
		}
		a2, err := argAt[A2](args, 1)
		if err != nil {
			return nil, err
		}
		a3, err := argAt[A3](args, 2)
		if err != nil {
			return nil, err
		}
		return func() (R, error) { return fn(a1, a2, a3) }, nil
	})
}

// Pure0 makes a memoizable callable of a function that cannot fail.
func Pure0[R any](fn func() R) *Callable[R] {
	return Func0(func() (R, error) { return fn(), nil })
}

// Pure1 makes a memoizable callable of a one-argument function that cannot fail.
func Pure1[A1, R any](fn func(A1) R) *Callable[R] {
	return Func1(func(a1 A1) (R, error) { return fn(a1), nil })
}

// Pure2 makes a memoizable callable of a two-argument function that cannot fail.
func Pure2[A1, A2, R any](fn func(A1, A2) R) *Callable[R] {
	return Func2(func(a1 A1, a2 A2) (R, error) { return fn(a1, a2), nil })
}

// Method0 makes a memoizable callable whose receiver is the bound context.
func Method0[T, R any](fn func(T) (R, error)) *Callable[R] {
	return newCallable(0, func(this any, _ Args) (func() (R, error), error) {
		recv, err := receiver[T](this)
		if err != nil {
			return nil, err
		}
		return func() (R, error) { return fn(recv) }, nil
	})
}

// Method1 is Method0 for one-argument methods.
func Method1[T, A1, R any](fn func(T, A1) (R, error)) *Callable[R] {
	return newCallable(1, func(this any, args Args) (func() (R, error), error) {
		recv, err := receiver[T](this)
		if err != nil {
			return nil, err
		}
		a1, err := argAt[A1](args, 0)
		if err != nil {
			return nil, err
		}
		return func() (R, error) { return fn(recv, a1) }, nil
	})
}

// Method2 is Method0 for two-argument methods.
func Method2[T, A1, A2, R any](fn func(T, A1, A2) (R, error)) *Callable[R] {
	return newCallable(2, func(this any, args Args) (func() (R, error), error) {
		recv, err := receiver[T](this)
		if err != nil {
			return nil, err
		}
		a1, err := argAt[A1](args, 0)
		if err != nil {
			return nil, err
		}
		a2, err := argAt[A2](args, 1)
		if err != nil {
			return nil, err
		}
		return func() (R, error) { return fn(recv, a1, a2) }, nil
	})
}

// Variadic makes a memoizable callable that receives the bound context and the raw
// argument list. It accepts argument lists of any length.
func Variadic[R any](fn func(this any, args Args) (R, error)) *Callable[R] {
	return newCallable(anyArity, func(this any, args Args) (func() (R, error), error) {
		return func() (R, error) { return fn(this, args) }, nil
	})
}

var _ Key = (*Callable[any])(nil)
