// Package registry keeps named, exclusively claimed values, such as the live
// router of each presented view.
package registry

import "github.com/alphadose/haxmap"

type Registry[T comparable] interface {
	Get(name string) (T, bool)
	// Claim stores value under name unless another value holds it. It
	// returns the value that holds the name afterwards.
	Claim(name string, value T) (T, bool)
	// Release removes name only while value still holds it.
	Release(name string, value T) bool
	Values() []T
}

type registry[T comparable] struct {
	values *haxmap.Map[string, T]
}

func New[T comparable]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(name string) (T, bool) {
	return r.values.Get(name)
}

func (r *registry[T]) Claim(name string, value T) (T, bool) {
	actual, loaded := r.values.GetOrCompute(name, func() T { return value })
	return actual, !loaded || actual == value
}

func (r *registry[T]) Release(name string, value T) bool {
	cur, ok := r.values.Get(name)
	if !ok || cur != value {
		return false
	}
	r.values.Del(name)
	return true
}

func (r *registry[T]) Values() []T {
	var out []T
	r.values.ForEach(func(_ string, v T) bool {
		out = append(out, v)
		return true
	})
	return out
}
