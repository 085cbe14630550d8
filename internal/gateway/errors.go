package gateway

import (
	"errors"
	"fmt"

	"github.com/sells-group/churn-cli/internal/resilience"
)

// Kind classifies a failed call.
type Kind string

const (
	// KindTransport means no usable response arrived: the service was
	// unreachable, the call timed out, or the body could not be read.
	KindTransport Kind = "transport"
	// KindRejection means the service answered with a failure status, an
	// explicit failure flag, or a body that is not JSON.
	KindRejection Kind = "rejection"
)

// ServiceError is the single failure shape returned by Call.
type ServiceError struct {
	Endpoint   Endpoint
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway: %s: %s (status %d): %s", e.Endpoint, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway: %s: %s: %s", e.Endpoint, e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Transient reports whether repeating the call might succeed.
func (e *ServiceError) Transient() bool {
	if e.Kind == KindRejection {
		return resilience.IsTransientHTTPStatus(e.StatusCode)
	}
	return resilience.IsTransient(e.Err)
}

// AsServiceError extracts a *ServiceError from err's chain.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	se, ok := AsServiceError(err)
	return ok && se.Kind == KindTransport
}

// IsRejection reports whether err is an explicit rejection by the service.
func IsRejection(err error) bool {
	se, ok := AsServiceError(err)
	return ok && se.Kind == KindRejection
}
