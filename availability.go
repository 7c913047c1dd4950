package gcmutility

import (
	"context"
	"fmt"
)

// ServiceStatus is the result of a push-service availability query.
type ServiceStatus int

const (
	ServiceSuccess ServiceStatus = iota
	// ServiceMissing means the push service is not installed on the device.
	ServiceMissing
	// ServiceVersionUpdateRequired means the installed service is too old.
	ServiceVersionUpdateRequired
	// ServiceDisabled means the service is installed but turned off.
	ServiceDisabled
	// ServiceInvalid means the device can never run the service.
	ServiceInvalid
)

func (s ServiceStatus) String() string {
	switch s {
	case ServiceSuccess:
		return "SUCCESS"
	case ServiceMissing:
		return "SERVICE_MISSING"
	case ServiceVersionUpdateRequired:
		return "SERVICE_VERSION_UPDATE_REQUIRED"
	case ServiceDisabled:
		return "SERVICE_DISABLED"
	case ServiceInvalid:
		return "SERVICE_INVALID"
	default:
		return fmt.Sprintf("ServiceStatus(%d)", int(s))
	}
}

// UserRecoverable reports whether the user can fix the status, for example
// by updating or enabling the service.
func (s ServiceStatus) UserRecoverable() bool {
	switch s {
	case ServiceMissing, ServiceVersionUpdateRequired, ServiceDisabled:
		return true
	default:
		return false
	}
}

// Availability reports whether the push service can be used right now.
type Availability interface {
	Availability(ctx context.Context) ServiceStatus
}

// AvailabilityFunc adapts a function to Availability.
type AvailabilityFunc func(ctx context.Context) ServiceStatus

func (f AvailabilityFunc) Availability(ctx context.Context) ServiceStatus { return f(ctx) }

// AlwaysAvailable reports ServiceSuccess unconditionally.
var AlwaysAvailable Availability = AvailabilityFunc(func(context.Context) ServiceStatus {
	return ServiceSuccess
})
