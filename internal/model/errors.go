package model

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Forward after Close.
var ErrClosed = errors.New("model handle closed")

// LoadError reports a model artifact that cannot be resolved or is incompatible
// with the selected runtime. It is fatal to session construction.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ShapeMismatchError reports a tensor the model cannot accept (or an output it
// produced that does not match the input). It is fatal to one invocation only.
type ShapeMismatchError struct {
	Want []int
	Got  []int
	Err  error
}

func (e *ShapeMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shape mismatch: want %v, got %v: %v", e.Want, e.Got, e.Err)
	}
	return fmt.Sprintf("shape mismatch: want %v, got %v", e.Want, e.Got)
}

func (e *ShapeMismatchError) Unwrap() error { return e.Err }

// DeviceUnavailableError reports a requested accelerator that is missing. The
// loader recovers from it by falling back to the CPU.
type DeviceUnavailableError struct {
	Device Device
	Err    error
}

func (e *DeviceUnavailableError) Error() string {
	return fmt.Sprintf("device %s unavailable: %v", e.Device, e.Err)
}

func (e *DeviceUnavailableError) Unwrap() error { return e.Err }
