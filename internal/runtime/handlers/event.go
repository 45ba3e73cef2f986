package handlers

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ThreeDotsLabs/watermill/message"
	goskema "github.com/reoring/goskema"

	errspkg "github.com/asyncflow/asyncflow/internal/runtime/errors"
	"github.com/asyncflow/asyncflow/internal/runtime/ids"
	loggingpkg "github.com/asyncflow/asyncflow/internal/runtime/logging"
	metadatapkg "github.com/asyncflow/asyncflow/internal/runtime/metadata"
	schemapkg "github.com/asyncflow/asyncflow/internal/runtime/schema"
)

// EventHandlerRegistration configures a typed event handler. The payload type T is
// decoded (and optionally validated) before the handler runs; the ack type A is the
// value returned to the sender. Use schema.NoPayload for either side to declare it
// absent, or schema.RawPayload to accept bytes without a schema.
type EventHandlerRegistration[T any, A any] struct {
	// Event is the event name. It doubles as the consume topic unless Topic is set.
	Event string
	// Namespace scopes the event channel in the generated document. Defaults to "/".
	Namespace string
	// Name identifies the handler on the router. Defaults to the event name.
	Name string
	// Topic overrides the consume topic. Defaults to the event name.
	Topic string
	// AckTopic overrides where acknowledgements are published.
	// Defaults to "<event>.ack" when an ack type is declared.
	AckTopic string
	// Summary is a short human description used in the generated document.
	Summary string
	// MessageName overrides the document message key for this event.
	MessageName string
	// Request validates the inbound payload. When nil a schema is inferred from T.
	Request goskema.Schema[T]
	// Ack validates the handler return value. When nil a schema is inferred from A.
	Ack goskema.Schema[A]
	// Handler processes the decoded payload.
	Handler EventHandler[T, A]
}

// EventContext provides strongly typed access to the incoming event payload.
type EventContext[T any] struct {
	MessageContextBase
	// Event is the name the payload arrived under.
	Event string
	// Raw holds the payload bytes as received.
	Raw []byte
	// Payload is the decoded payload.
	Payload T
}

// EventHandler processes a decoded event payload. The returned value becomes the
// acknowledgement sent back to the caller; for handlers without an ack declare
// A as schema.NoPayload and return its zero value.
type EventHandler[T any, A any] func(ctx context.Context, event EventContext[T]) (A, error)

// BuildEventHandler converts the typed handler into a Watermill handler. Inbound
// payloads are decoded through request; when validate is set, decoding enforces the
// schema and failures surface as *schema.RequestValidationError. Handler return
// values pass through ack the same way, surfacing *schema.ResponseValidationError.
func BuildEventHandler[T any, A any](
	event string,
	handler EventHandler[T, A],
	request schemapkg.Payload[T],
	ack schemapkg.Payload[A],
	validate bool,
	logger loggingpkg.ServiceLogger,
) (message.HandlerFunc, error) {
	if handler == nil {
		return nil, errspkg.ErrHandlerRequired
	}
	if event == "" {
		return nil, errspkg.ErrEventNameRequired
	}
	if request == nil {
		request = schemapkg.For[T]()
	}
	if ack == nil {
		ack = schemapkg.For[A]()
	}

	hasAck := !schemapkg.Absent[A]()

	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := msg.Context()

		payload, err := decodePayload(ctx, request, msg.Payload, validate)
		if err != nil {
			return nil, &schemapkg.RequestValidationError{Event: event, Err: err}
		}

		eventCtx := EventContext[T]{
			MessageContextBase: MessageContextBase{
				Metadata: metadatapkg.FromWatermill(msg.Metadata),
				Logger:   logger,
			},
			Event:   event,
			Raw:     msg.Payload,
			Payload: payload,
		}

		ackValue, err := handler(ctx, eventCtx)
		if err != nil {
			return nil, err
		}

		if !hasAck || isNilValue(ackValue) {
			return nil, nil
		}

		if validate {
			if err := ack.Check(ctx, ackValue); err != nil {
				return nil, &schemapkg.ResponseValidationError{Event: event, Err: err}
			}
		}

		return buildAckMessages(event, ackValue, ack, eventCtx.Metadata)
	}, nil
}

func decodePayload[T any](ctx context.Context, request schemapkg.Payload[T], raw []byte, validate bool) (T, error) {
	if validate {
		return request.Decode(ctx, raw)
	}
	return request.DecodeLenient(ctx, raw)
}

func buildAckMessages[A any](event string, value A, ack schemapkg.Payload[A], incoming metadatapkg.Metadata) ([]*message.Message, error) {
	payload, err := ack.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q acknowledgement: %w", event, err)
	}

	out := newAckMessage(event, payload, fmt.Sprintf("%T", value), incoming)
	return []*message.Message{out}, nil
}

// newAckMessage wraps an encoded acknowledgement in a message that carries the
// incoming metadata plus the ack markers, so correlation IDs survive the round trip.
func newAckMessage(event string, payload []byte, schemaLabel string, incoming metadatapkg.Metadata) *message.Message {
	out := message.NewMessage(ids.CreateULID(), payload)
	meta := metadatapkg.Clone(incoming)
	meta[MetadataKeyAckFor] = event
	meta[MetadataKeyEventSchema] = schemaLabel
	for key, val := range meta {
		out.Metadata.Set(key, val)
	}
	return out
}

// isNilValue reports whether the ack value carries no payload. Nil pointers,
// maps, slices and interfaces mean the handler chose not to acknowledge.
func isNilValue(v any) bool {
	val := reflect.ValueOf(v)
	if !val.IsValid() {
		return true
	}
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}
