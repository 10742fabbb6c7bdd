// Package simerr holds the error taxonomy shared by the detector, the velocity
// builder, the wave engine and the compositor.
package simerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks degenerate numeric input that must be rejected
	// before any heavy computation starts.
	ErrConfiguration = errors.New("configuration error")

	// ErrNumericalInstability marks a run aborted because the time step broke
	// the stability bound or the field stopped being finite.
	ErrNumericalInstability = errors.New("numerical instability")

	// ErrShapeMismatch marks a recoverable disagreement between the topography
	// image and the wavefield grid.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// ConfigError reports which parameter was rejected and why.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// Config is shorthand for building a *ConfigError with a formatted reason.
func Config(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InstabilityError reports the step at which the solver gave up.
// Step is -1 when the run was rejected before stepping began.
type InstabilityError struct {
	Step   int
	Reason string
}

func (e *InstabilityError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("numerical instability: %s", e.Reason)
	}
	return fmt.Sprintf("numerical instability at step %d: %s", e.Step, e.Reason)
}

func (e *InstabilityError) Is(target error) bool { return target == ErrNumericalInstability }

// ShapeMismatchWarning is returned next to a usable result when the
// compositor had to crop or resample the wavefield.
type ShapeMismatchWarning struct {
	WantW, WantH int
	GotW, GotH   int
	Policy       string
}

func (e *ShapeMismatchWarning) Error() string {
	return fmt.Sprintf("shape mismatch: topography %dx%d, wavefield %dx%d (%s)",
		e.WantW, e.WantH, e.GotW, e.GotH, e.Policy)
}

func (e *ShapeMismatchWarning) Is(target error) bool { return target == ErrShapeMismatch }
