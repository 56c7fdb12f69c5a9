package agent

import (
	"errors"
	"fmt"
)

// Phases of a health check during which a failure can surface
const (
	PhasePreprocess = "preprocess"
	PhaseInference  = "inference"
	PhaseLearning   = "learning"
)

// HealthCheckError describes a failure of one phase of an agent's
// pre-training health check. Health check failures are fatal: the
// agent's wiring is broken and training it would waste the run.
type HealthCheckError struct {
	Phase string
	Err   error
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("health check failed during %v: %v", e.Phase, e.Err)
}

func (e *HealthCheckError) Unwrap() error {
	return e.Err
}

// IsHealthCheckError returns whether err was caused by a failed
// health check
func IsHealthCheckError(err error) bool {
	var hcErr *HealthCheckError
	return errors.As(err, &hcErr)
}
