package runtime

import (
	"github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
	errspkg "github.com/asyncflow/asyncflow/internal/runtime/errors"
	handlerpkg "github.com/asyncflow/asyncflow/internal/runtime/handlers"
	schemapkg "github.com/asyncflow/asyncflow/internal/runtime/schema"
)

// RegisterEventHandler converts the typed event handler into a Watermill handler,
// documents the event, and registers it on the Service router. The inbound payload
// is validated before the handler runs when the service has validation enabled;
// the handler return value is validated before it is published as the
// acknowledgement. Validation failures are routed to the handler registered with
// OnValidationError instead of failing the message.
func RegisterEventHandler[T any, A any](svc *Service, cfg handlerpkg.EventHandlerRegistration[T, A]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Event == "" {
		return errspkg.ErrEventNameRequired
	}

	var request schemapkg.Payload[T]
	if cfg.Request != nil {
		request = schemapkg.FromGoskema(cfg.Request)
	} else {
		request = schemapkg.For[T]()
	}

	var ack schemapkg.Payload[A]
	if cfg.Ack != nil {
		ack = schemapkg.FromGoskema(cfg.Ack)
	} else {
		ack = schemapkg.For[A]()
	}

	wrapped, err := handlerpkg.BuildEventHandler(cfg.Event, cfg.Handler, request, ack, svc.validationEnabled(), svc.Logger)
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
		Payload:     request.Doc(),
		Ack:         ack.Doc(),
	}); err != nil {
		return err
	}

	return svc.registerHandler(handlerRegistration{
		Name:         cfg.Name,
		Event:        cfg.Event,
		Topic:        topic,
		AckTopic:     ackTopic,
		Handler:      wrapped,
		ErrorBarrier: svc.validationBarrier(cfg.Event),
	})
}
