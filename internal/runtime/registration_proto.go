package runtime

import (
	"google.golang.org/protobuf/proto"

	"github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
	errspkg "github.com/asyncflow/asyncflow/internal/runtime/errors"
	handlerpkg "github.com/asyncflow/asyncflow/internal/runtime/handlers"
	schemapkg "github.com/asyncflow/asyncflow/internal/runtime/schema"
)

// RegisterProtoEventHandler converts the typed protobuf handler into a Watermill
// handler, documents the event with schemas derived from the message descriptors,
// and registers it on the Service router. When the service validates, inbound
// payloads reject unknown fields and the configured ProtoValidator (if any) runs
// against both the payload and the acknowledgement.
func RegisterProtoEventHandler[T proto.Message, A proto.Message](svc *Service, cfg handlerpkg.ProtoEventHandlerRegistration[T, A]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Event == "" {
		return errspkg.ErrEventNameRequired
	}

	var zeroT T
	prototype, err := handlerpkg.EnsureProtoPrototype(zeroT)
	if err != nil {
		return err
	}
	var zeroA A
	ackPrototype, err := handlerpkg.EnsureProtoPrototype(zeroA)
	if err != nil {
		return err
	}

	var check func(proto.Message) error
	if svc.validator != nil {
		check = func(msg proto.Message) error {
			return svc.validator.Validate(msg)
		}
	}

	wrapped, err := handlerpkg.BuildProtoEventHandler(cfg.Event, prototype, cfg.Handler, check, svc.validationEnabled(), svc.Logger)
	if err != nil {
		return err
	}

	topic := cfg.Topic
	if topic == "" {
		topic = cfg.Event
	}
	ackTopic := cfg.AckTopic
	if ackTopic == "" {
		ackTopic = cfg.Event + ".ack"
	}

	if err := svc.docBuilder().AddReceiver(asyncapi.MessageDraft{
		Event:       cfg.Event,
		Namespace:   cfg.Namespace,
		MessageName: cfg.MessageName,
		Description: cfg.Summary,
		Payload:     schemapkg.InferProtoMessage(prototype.ProtoReflect().Descriptor()),
		Ack:         schemapkg.InferProtoMessage(ackPrototype.ProtoReflect().Descriptor()),
	}); err != nil {
		return err
	}

	if err := svc.registerHandler(handlerRegistration{
		Name:               cfg.Name,
		Event:              cfg.Event,
		Topic:              topic,
		AckTopic:           ackTopic,
		Handler:            wrapped,
		ErrorBarrier:       svc.validationBarrier(cfg.Event),
		consumeMessageType: prototype,
	}); err != nil {
		return err
	}

	svc.registerProtoType(ackPrototype)
	return nil
}
