package gcmutility

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable is wrapped by every error caused by a failed
	// availability check.
	ErrServiceUnavailable = errors.New("this device is not supported")

	// ErrEmptySenderID is returned when Register is called without a sender ID.
	ErrEmptySenderID = errors.New("sender ID is required")

	// ErrAppVersion is wrapped when the running application's version code
	// cannot be determined. It is an internal fault, not a user error.
	ErrAppVersion = errors.New("could not determine application version")

	// ErrEmptyToken is returned when the registration endpoint answers
	// without a token.
	ErrEmptyToken = errors.New("registration returned empty token")
)

// ServiceError reports an unusable push service.
type ServiceError struct {
	Status ServiceStatus
}

func (e *ServiceError) Error() string {
	return ErrServiceUnavailable.Error()
}

// Detail includes the raw status, for logs.
func (e *ServiceError) Detail() string {
	return fmt.Sprintf("%s (status %s, recoverable=%t)", ErrServiceUnavailable, e.Status, e.Status.UserRecoverable())
}

func (e *ServiceError) Unwrap() error { return ErrServiceUnavailable }
