package sim

import (
	"errors"
	"fmt"
)

// Domain errors for simulation runs.
var (
	// ErrInvalidConfig is wrapped by every configuration problem detected
	// before workers start.
	ErrInvalidConfig = errors.New("sim: invalid configuration")

	// ErrInvalidState indicates a non-finite position or velocity.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrCanceled indicates the run was interrupted through its context.
	ErrCanceled = errors.New("sim: simulation canceled by context")

	// ErrWorkerPanic indicates a worker goroutine panicked.
	ErrWorkerPanic = errors.New("sim: worker panicked")
)

// ConfigError describes a rejected run parameter.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sim: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// SimulationError wraps a worker failure with its position in the run.
type SimulationError struct {
	Worker  int
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("sim: worker %d, step %d (t=%g): %v", e.Worker, e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
