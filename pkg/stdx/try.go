package stdx

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// PanicError carries a value recovered from a panicking callback together
// with the stack captured at the point of recovery.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic reports whether err, or anything it wraps, came from a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// Try runs fn and converts a panic into a *PanicError.
// The error returned by fn is passed through unchanged.
func Try(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// Try1 is Try for callbacks that produce a value. On panic the zero value is returned.
func Try1[T any](fn func() T) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(), nil
}
