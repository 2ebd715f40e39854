package manipulation

import (
	"errors"
	"fmt"
)

// Error implements errors unique to the manipulation environment.
type Error struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause of the error
func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// errInvalidConfig reports a malformed or unsupported
	// configuration value. Fatal at construction, never retried.
	errInvalidConfig = errors.New("invalid configuration")

	// errInvalidRegion reports a degenerate sampling box with
	// min > max on some axis. Fatal at construction.
	errInvalidRegion = errors.New("invalid sampling region")

	// errUnsupportedObservationKind reports an observation encoding
	// outside the supported enumeration. Fatal at construction.
	errUnsupportedObservationKind = errors.New("unsupported observation kind")

	// errPerceptionMiss reports that a perception collaborator found
	// nothing. Recoverable; the observation composer substitutes a
	// zero vector.
	errPerceptionMiss = errors.New("perception found no detection")

	// errPhysicsDesync reports that an object pose was unavailable
	// mid-episode. The episode is aborted and reported as failed.
	errPhysicsDesync = errors.New("object pose unavailable")
)

// InvalidConfig builds a construction-time configuration error for
// which IsInvalidConfig reports true. The detail should name the
// offending configuration key.
func InvalidConfig(op, detail string) error {
	return &Error{
		Op:  op,
		Err: fmt.Errorf("%w: %v", errInvalidConfig, detail),
	}
}

func cause(err error) error {
	var envErr *Error
	if errors.As(err, &envErr) {
		return envErr.Err
	}
	return err
}

// IsInvalidConfig returns whether an error reports a malformed or
// unsupported configuration value
func IsInvalidConfig(err error) bool {
	return errors.Is(cause(err), errInvalidConfig)
}

// IsInvalidRegion returns whether an error reports a degenerate
// sampling region
func IsInvalidRegion(err error) bool {
	return errors.Is(cause(err), errInvalidRegion)
}

// IsUnsupportedObservationKind returns whether an error reports an
// observation encoding outside the supported enumeration
func IsUnsupportedObservationKind(err error) bool {
	return errors.Is(cause(err), errUnsupportedObservationKind)
}

// IsPerceptionMiss returns whether an error reports that a perception
// collaborator found nothing
func IsPerceptionMiss(err error) bool {
	return errors.Is(cause(err), errPerceptionMiss)
}

// IsPhysicsDesync returns whether an error reports that an object pose
// was unavailable mid-episode
func IsPhysicsDesync(err error) bool {
	return errors.Is(cause(err), errPhysicsDesync)
}
