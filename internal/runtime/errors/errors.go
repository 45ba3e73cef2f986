package errors

import sterrors "errors"

var (
	ErrServiceRequired             = sterrors.New("asyncflow: event service is required")
	ErrHandlerRequired             = sterrors.New("asyncflow: handler function is required")
	ErrEventNameRequired           = sterrors.New("asyncflow: event name is required")
	ErrHandlerNameRequired         = sterrors.New("asyncflow: handler name is required")
	ErrConsumeMessageTypeRequired  = sterrors.New("asyncflow: consume message type is required")
	ErrConsumeMessagePointerNeeded = sterrors.New("asyncflow: consume message type must be a pointer")
	ErrPublisherRequired           = sterrors.New("asyncflow: publisher is required")
	ErrTopicRequired               = sterrors.New("asyncflow: topic is required")
	ErrEventPayloadRequired        = sterrors.New("asyncflow: event payload is required")
	ErrEmitterConflict             = sterrors.New("asyncflow: emitter already registered with a different payload schema")
)
