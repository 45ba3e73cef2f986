package handlers

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	errspkg "github.com/asyncflow/asyncflow/internal/runtime/errors"
	loggingpkg "github.com/asyncflow/asyncflow/internal/runtime/logging"
	metadatapkg "github.com/asyncflow/asyncflow/internal/runtime/metadata"
	schemapkg "github.com/asyncflow/asyncflow/internal/runtime/schema"
)

// ProtoEventHandlerRegistration configures a typed protobuf event handler. The
// payload type T is unmarshalled from protojson before the handler runs; the ack
// type A is marshalled back and published as the acknowledgement. Returning a nil
// ack skips the acknowledgement for that message.
type ProtoEventHandlerRegistration[T proto.Message, A proto.Message] struct {
	// Event is the event name. It doubles as the consume topic unless Topic is set.
	Event string
	// Namespace scopes the event channel in the generated document. Defaults to "/".
	Namespace string
	// Name identifies the handler on the router. Defaults to the event name.
	Name string
	// Topic overrides the consume topic. Defaults to the event name.
	Topic string
	// AckTopic overrides where acknowledgements are published.
	// Defaults to "<event>.ack".
	AckTopic string
	// Summary is a short human description used in the generated document.
	Summary string
	// MessageName overrides the document message key for this event.
	MessageName string
	// Handler processes the unmarshalled payload.
	Handler ProtoEventHandler[T, A]
}

// ProtoEventContext provides strongly typed access to the incoming event payload.
type ProtoEventContext[T proto.Message] struct {
	MessageContextBase
	// Event is the name the payload arrived under.
	Event string
	// Raw holds the payload bytes as received.
	Raw []byte
	// Payload is the unmarshalled payload.
	Payload T
}

// ProtoEventHandler processes a typed protobuf payload. The returned message
// becomes the acknowledgement sent back to the caller; return nil to skip it.
type ProtoEventHandler[T proto.Message, A proto.Message] func(ctx context.Context, event ProtoEventContext[T]) (A, error)

// BuildProtoEventHandler converts the typed handler into a Watermill handler.
// When validate is set, unmarshalling rejects unknown fields and check (if
// non-nil) runs against both the inbound payload and the ack; failures surface
// as *schema.RequestValidationError and *schema.ResponseValidationError. With
// validate unset, unknown fields are discarded and check is skipped.
func BuildProtoEventHandler[T proto.Message, A proto.Message](
	event string,
	prototype T,
	handler ProtoEventHandler[T, A],
	check func(proto.Message) error,
	validate bool,
	logger loggingpkg.ServiceLogger,
) (message.HandlerFunc, error) {
	if handler == nil {
		return nil, errspkg.ErrHandlerRequired
	}
	if event == "" {
		return nil, errspkg.ErrEventNameRequired
	}
	if isNilProto(prototype) {
		return nil, errspkg.ErrConsumeMessageTypeRequired
	}

	unmarshal := protojson.UnmarshalOptions{}
	if !validate {
		unmarshal.DiscardUnknown = true
	}
	marshal := protojson.MarshalOptions{EmitUnpopulated: true}

	return func(msg *message.Message) ([]*message.Message, error) {
		typed, err := clonePrototype(prototype)
		if err != nil {
			return nil, err
		}

		if err := unmarshal.Unmarshal(msg.Payload, typed); err != nil {
			return nil, &schemapkg.RequestValidationError{Event: event, Err: err}
		}
		if validate && check != nil {
			if err := check(typed); err != nil {
				return nil, &schemapkg.RequestValidationError{Event: event, Err: err}
			}
		}

		eventCtx := ProtoEventContext[T]{
			MessageContextBase: MessageContextBase{
				Metadata: metadatapkg.FromWatermill(msg.Metadata),
				Logger:   logger,
			},
			Event:   event,
			Raw:     msg.Payload,
			Payload: typed,
		}

		ackValue, err := handler(msg.Context(), eventCtx)
		if err != nil {
			return nil, err
		}
		if isNilProto(ackValue) {
			return nil, nil
		}

		if validate && check != nil {
			if err := check(ackValue); err != nil {
				return nil, &schemapkg.ResponseValidationError{Event: event, Err: err}
			}
		}

		payload, err := marshal.Marshal(ackValue)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %q acknowledgement: %w", event, err)
		}

		out := newAckMessage(event, payload, fmt.Sprintf("%T", ackValue), eventCtx.Metadata)
		return []*message.Message{out}, nil
	}, nil
}

func clonePrototype[T proto.Message](prototype T) (T, error) {
	if isNilProto(prototype) {
		var zero T
		return zero, errspkg.ErrConsumeMessageTypeRequired
	}

	cloned := proto.Clone(prototype)
	proto.Reset(cloned)

	typed, ok := cloned.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected prototype type %T", cloned)
	}

	return typed, nil
}

func EnsureProtoPrototype[T proto.Message](candidate T) (T, error) {
	if !isNilProto(candidate) {
		return candidate, nil
	}

	var zero T
	typ := reflect.TypeOf(candidate)
	if typ == nil {
		return zero, errspkg.ErrConsumeMessageTypeRequired
	}
	if typ.Kind() != reflect.Ptr {
		return zero, errspkg.ErrConsumeMessagePointerNeeded
	}

	inst := reflect.New(typ.Elem()).Interface()
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected prototype type %s", typ)
	}
	return typed, nil
}

func isNilProto[T proto.Message](prototype T) bool {
	msg := proto.Message(prototype)
	if msg == nil {
		return true
	}

	val := reflect.ValueOf(msg)
	switch val.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}
