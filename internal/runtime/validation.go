package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	handlerpkg "github.com/asyncflow/asyncflow/internal/runtime/handlers"
	"github.com/asyncflow/asyncflow/internal/runtime/ids"
	"github.com/asyncflow/asyncflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/asyncflow/asyncflow/internal/runtime/logging"
)

// ValidationErrorHandler decides what a failed event delivers back to its sender.
// It receives every error raised while processing an event: request validation
// failures, the handler's own errors, and ack validation failures. A non-nil
// return value is encoded and published as the acknowledgement, skipping ack
// validation. A nil return drops the message without an acknowledgement.
type ValidationErrorHandler func(ctx context.Context, event string, err error) any

type errorHandlerState struct {
	mu      sync.RWMutex
	handler ValidationErrorHandler
}

func (e *errorHandlerState) set(handler ValidationErrorHandler) {
	e.mu.Lock()
	e.handler = handler
	e.mu.Unlock()
}

func (e *errorHandlerState) get() ValidationErrorHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handler
}

// OnValidationError installs the handler consulted when event processing fails.
// Without one, failures are logged and the message is dropped so the transport
// does not redeliver payloads that can never validate.
func (s *Service) OnValidationError(handler ValidationErrorHandler) {
	s.errorHandler.set(handler)
}

// validationBarrier converts processing errors into the configured error
// handler's acknowledgement. It sits outside the stats wrapper so failures are
// still counted before they are absorbed.
func (s *Service) validationBarrier(event string) func(message.HandlerFunc) message.HandlerFunc {
	return func(next message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			msgs, err := next(msg)
			if err == nil {
				return msgs, nil
			}

			handler := s.errorHandler.get()
			if handler == nil {
				s.Logger.Error("Event processing failed", err, loggingpkg.LogFields{"event": event})
				return nil, nil
			}

			ack := handler(msg.Context(), event, err)
			if ack == nil {
				return nil, nil
			}

			payload, encErr := jsoncodec.Marshal(ack)
			if encErr != nil {
				s.Logger.Error("Failed to encode error acknowledgement", encErr, loggingpkg.LogFields{"event": event})
				return nil, nil
			}

			out := message.NewMessage(ids.CreateULID(), payload)
			out.Metadata.Set(handlerpkg.MetadataKeyAckFor, event)
			out.Metadata.Set(handlerpkg.MetadataKeyEventSchema, fmt.Sprintf("%T", ack))
			if cid := msg.Metadata.Get(handlerpkg.MetadataKeyCorrelationID); cid != "" {
				out.Metadata.Set(handlerpkg.MetadataKeyCorrelationID, cid)
			}
			return []*message.Message{out}, nil
		}
	}
}
