package runtime

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	handlerpkg "github.com/asyncflow/asyncflow/internal/runtime/handlers"
	loggingpkg "github.com/asyncflow/asyncflow/internal/runtime/logging"
)

// HookContext provides information about an event delivery to hooks.
type HookContext struct {
	// HandlerName is the name of the handler processing the event.
	HandlerName string
	// Event is the event name carried in the message metadata, if any.
	Event string
	// Topic is the topic the message was received from.
	Topic string
	// MessageUUID is the unique identifier of the message.
	MessageUUID string
	// Metadata contains the message metadata.
	Metadata message.Metadata
	// Context is the context associated with the message.
	Context context.Context
	// StartedAt is when processing started.
	StartedAt time.Time
	// Duration is how long processing took (only set in OnEventDone and OnEventError).
	Duration time.Duration
}

// EventHooks defines callbacks for the event delivery lifecycle.
// All hooks are optional - nil hooks are simply not called.
type EventHooks struct {
	// OnEventStart is called when a handler begins processing an event.
	// This is called before the handler function is invoked.
	OnEventStart func(ctx HookContext)

	// OnEventDone is called when a handler successfully completes processing.
	// Duration will be set to how long the handler took.
	OnEventDone func(ctx HookContext)

	// OnEventError is called when a handler returns an error.
	// The error is passed as the second argument.
	// Duration will be set to how long the handler took before failing.
	OnEventError func(ctx HookContext, err error)
}

// Merge combines two EventHooks, creating a new EventHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h EventHooks) Merge(other EventHooks) EventHooks {
	return EventHooks{
		OnEventStart: chainStartHooks(h.OnEventStart, other.OnEventStart),
		OnEventDone:  chainDoneHooks(h.OnEventDone, other.OnEventDone),
		OnEventError: chainErrorHooks(h.OnEventError, other.OnEventError),
	}
}

func chainStartHooks(a, b func(HookContext)) func(HookContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx HookContext) {
		a(ctx)
		b(ctx)
	}
}

func chainDoneHooks(a, b func(HookContext)) func(HookContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx HookContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(HookContext, error)) func(HookContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx HookContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// EventHooksMiddleware creates a middleware that invokes the provided hooks
// at appropriate points in the delivery lifecycle. Register it through
// ServiceDependencies.Middlewares. Typed event handlers absorb validation
// failures into the error handler's acknowledgement before middleware sees
// them, so OnEventError only observes errors that reach the router; use
// OnValidationError and the per-event statistics for validation visibility.
func EventHooksMiddleware(hooks EventHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "event_hooks",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return eventHooksMiddleware(hooks), nil
		},
	}
}

func eventHooksMiddleware(hooks EventHooks) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			startTime := time.Now()

			hookCtx := HookContext{
				HandlerName: message.HandlerNameFromCtx(msg.Context()),
				Event:       msg.Metadata.Get(handlerpkg.MetadataKeyEvent),
				Topic:       message.SubscribeTopicFromCtx(msg.Context()),
				MessageUUID: msg.UUID,
				Metadata:    msg.Metadata,
				Context:     msg.Context(),
				StartedAt:   startTime,
			}

			if hooks.OnEventStart != nil {
				hooks.OnEventStart(hookCtx)
			}

			msgs, err := h(msg)

			hookCtx.Duration = time.Since(startTime)

			if err != nil {
				if hooks.OnEventError != nil {
					hooks.OnEventError(hookCtx, err)
				}
			} else {
				if hooks.OnEventDone != nil {
					hooks.OnEventDone(hookCtx)
				}
			}

			return msgs, err
		}
	}
}

// LoggingHooks returns pre-built hooks that log delivery lifecycle events.
func LoggingHooks(logger loggingpkg.ServiceLogger) EventHooks {
	return EventHooks{
		OnEventStart: func(ctx HookContext) {
			logger.Info("Event processing started", loggingpkg.LogFields{
				"handler":      ctx.HandlerName,
				"event":        ctx.Event,
				"topic":        ctx.Topic,
				"message_uuid": ctx.MessageUUID,
			})
		},
		OnEventDone: func(ctx HookContext) {
			logger.Info("Event processing completed", loggingpkg.LogFields{
				"handler":      ctx.HandlerName,
				"event":        ctx.Event,
				"topic":        ctx.Topic,
				"message_uuid": ctx.MessageUUID,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
		OnEventError: func(ctx HookContext, err error) {
			logger.Error("Event processing failed", err, loggingpkg.LogFields{
				"handler":      ctx.HandlerName,
				"event":        ctx.Event,
				"topic":        ctx.Topic,
				"message_uuid": ctx.MessageUUID,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
	}
}

// MetricsHooks returns pre-built hooks that record delivery metrics.
func MetricsHooks(onStart, onDone, onError func(handlerName, topic string)) EventHooks {
	return EventHooks{
		OnEventStart: func(ctx HookContext) {
			if onStart != nil {
				onStart(ctx.HandlerName, ctx.Topic)
			}
		},
		OnEventDone: func(ctx HookContext) {
			if onDone != nil {
				onDone(ctx.HandlerName, ctx.Topic)
			}
		},
		OnEventError: func(ctx HookContext, err error) {
			if onError != nil {
				onError(ctx.HandlerName, ctx.Topic)
			}
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on delivery errors.
func AlertingHooks(alertFunc func(ctx HookContext, err error)) EventHooks {
	return EventHooks{
		OnEventError: alertFunc,
	}
}
