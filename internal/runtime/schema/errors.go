package schema

import (
	"fmt"

	goskema "github.com/reoring/goskema"
)

// RequestValidationError reports an inbound payload that failed validation
// before the handler was invoked.
type RequestValidationError struct {
	Event string
	Err   error
}

func (e *RequestValidationError) Error() string {
	return fmt.Sprintf("asyncflow: invalid request payload for event %q: %v", e.Event, e.Err)
}

func (e *RequestValidationError) Unwrap() error { return e.Err }

// Issues returns the structured validation issues when the underlying
// validator produced them.
func (e *RequestValidationError) Issues() goskema.Issues {
	iss, _ := goskema.AsIssues(e.Err)
	return iss
}

// ResponseValidationError reports a handler return value that failed
// validation before it was sent as the acknowledgement.
type ResponseValidationError struct {
	Event string
	Err   error
}

func (e *ResponseValidationError) Error() string {
	return fmt.Sprintf("asyncflow: invalid acknowledgement for event %q: %v", e.Event, e.Err)
}

func (e *ResponseValidationError) Unwrap() error { return e.Err }

// Issues returns the structured validation issues when available.
func (e *ResponseValidationError) Issues() goskema.Issues {
	iss, _ := goskema.AsIssues(e.Err)
	return iss
}

// EmitValidationError reports an outbound emit payload that did not match the
// schema registered for its event.
type EmitValidationError struct {
	Event string
	Err   error
}

func (e *EmitValidationError) Error() string {
	return fmt.Sprintf("asyncflow: invalid emit payload for event %q: %v", e.Event, e.Err)
}

func (e *EmitValidationError) Unwrap() error { return e.Err }

// Issues returns the structured validation issues when available.
func (e *EmitValidationError) Issues() goskema.Issues {
	iss, _ := goskema.AsIssues(e.Err)
	return iss
}
