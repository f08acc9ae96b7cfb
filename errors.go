package tomsychapel

import (
	"errors"
	"fmt"

	"github.com/TomsyPaul/tomsychapel/takeover"
)

var (
	// ErrConfig is returned when the shared heap description is unusable,
	// e.g. an address without a size.
	ErrConfig = errors.New("shared heap misconfigured")

	// ErrBootstrap is returned when arenas cannot be materialized.
	ErrBootstrap = errors.New("arena bootstrap failed")

	// ErrInstall is returned when chunk hooks cannot be installed on every arena.
	ErrInstall = errors.New("chunk hook installation failed")

	// ErrIntrospection is returned when the allocator cannot describe itself.
	ErrIntrospection = errors.New("allocator introspection failed")

	// ErrDrain is returned when pre-existing memory cannot be drained.
	ErrDrain = errors.New("heap purification failed")

	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("layer already initialized")
)

// Phase names the step of Init that failed.
type Phase string

const (
	PhaseConfig        Phase = "config"
	PhaseWarmUp        Phase = "warm-up"
	PhaseBootstrap     Phase = "bootstrap"
	PhaseInstall       Phase = "install"
	PhaseIntrospection Phase = "introspection"
	PhaseDrain         Phase = "drain"
)

// InitError reports a failed Init.
//
// The sentinel for the failing phase and the underlying error can be
// matched with errors.Is.
type InitError struct {
	Phase Phase
	cause error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("layer init failed during %s: %v", e.Phase, e.cause)
}

func (e *InitError) Unwrap() error { return e.cause }

func initError(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	return &InitError{Phase: phase, cause: translateError(err)}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, takeover.ErrIntrospection):
		return fmt.Errorf("%w: %w", ErrIntrospection, err)
	case errors.Is(err, takeover.ErrBootstrap):
		return fmt.Errorf("%w: %w", ErrBootstrap, err)
	case errors.Is(err, takeover.ErrInstall):
		return fmt.Errorf("%w: %w", ErrInstall, err)
	case errors.Is(err, takeover.ErrDrain):
		return fmt.Errorf("%w: %w", ErrDrain, err)
	}
	return err
}

// configError reports an unusable shared heap description. Every problem
// with the description is a configuration error, whatever its cause.
func configError(err error) error {
	return &InitError{Phase: PhaseConfig, cause: fmt.Errorf("%w: %w", ErrConfig, err)}
}
