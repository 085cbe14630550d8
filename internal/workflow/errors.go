package workflow

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/churn-cli/internal/gateway"
	"github.com/sells-group/churn-cli/internal/params"
	"github.com/sells-group/churn-cli/internal/pipeline"
)

var (
	// ErrStaleResult is returned when a trend response arrives after the
	// response to a later request has already been applied.
	ErrStaleResult = eris.New("workflow: stale result discarded")

	// ErrInvalidResponse is returned when a service response does not have
	// the shape the operation expects.
	ErrInvalidResponse = eris.New("workflow: invalid service response")
)

// OpError ties a failure to the operation that produced it.
type OpError struct {
	Op  Op
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("workflow: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// IsStageOrder reports whether err is a stage-order rejection.
func IsStageOrder(err error) bool {
	var soe *pipeline.StageOrderError
	return errors.As(err, &soe)
}

// UserMessage renders err as a single line for the analyst.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	title := "Request"
	var oe *OpError
	if errors.As(err, &oe) {
		title = oe.Op.Title()
	}

	var soe *pipeline.StageOrderError
	var ie *params.InvalidError
	var se *gateway.ServiceError
	switch {
	case params.IsCancelled(err):
		return title + " cancelled"
	case errors.As(err, &soe):
		return fmt.Sprintf("%s unavailable: %s has not completed", title, soe.Missing)
	case errors.As(err, &ie):
		return fmt.Sprintf("%s Failed: invalid %s %q (%s)", title, ie.Name, ie.Value, ie.Reason)
	case errors.As(err, &se):
		if se.Message != "" {
			return title + " Failed: " + se.Message
		}
		if se.Err != nil {
			return title + " Failed: " + se.Err.Error()
		}
		return title + " Failed"
	case errors.Is(err, ErrStaleResult):
		return title + " superseded by a newer request"
	case errors.Is(err, ErrInvalidResponse):
		return title + " Failed: unexpected response from the analytics service"
	default:
		if oe != nil {
			return title + " Failed: " + oe.Err.Error()
		}
		return title + " Failed: " + err.Error()
	}
}
