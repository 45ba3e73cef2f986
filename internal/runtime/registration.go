package runtime

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/proto"

	errspkg "github.com/asyncflow/asyncflow/internal/runtime/errors"
)

type handlerRegistration struct {
	Name               string
	Event              string
	Topic              string
	AckTopic           string
	Subscriber         message.Subscriber
	Publisher          message.Publisher
	Handler            message.HandlerFunc
	ErrorBarrier       func(message.HandlerFunc) message.HandlerFunc
	consumeMessageType proto.Message
}

// MessageHandlerRegistration wires a raw Watermill handler without typed helpers.
// Messages returned by the handler are published to PublishTopic; leave it empty
// for handlers that never publish.
type MessageHandlerRegistration struct {
	Name         string
	Topic        string
	PublishTopic string
	Handler      message.HandlerFunc
	Subscriber   message.Subscriber
	Publisher    message.Publisher
}

// RegisterMessageHandler attaches the provided handler to the service router.
func RegisterMessageHandler(svc *Service, cfg MessageHandlerRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}

	return svc.registerHandler(handlerRegistration{
		Name:       cfg.Name,
		Topic:      cfg.Topic,
		AckTopic:   cfg.PublishTopic,
		Subscriber: cfg.Subscriber,
		Publisher:  cfg.Publisher,
		Handler:    cfg.Handler,
	})
}

func (s *Service) registerHandler(cfg handlerRegistration) error {
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	if cfg.Topic == "" {
		return errspkg.ErrTopicRequired
	}
	if cfg.Subscriber == nil {
		cfg.Subscriber = s.subscriber
	}
	if cfg.Publisher == nil {
		cfg.Publisher = s.publisher
	}
	if cfg.consumeMessageType != nil {
		s.registerProtoType(cfg.consumeMessageType)
		if cfg.Name == "" {
			cfg.Name = fmt.Sprintf("%T-Handler", cfg.consumeMessageType)
		}
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Event
	}
	if cfg.Name == "" {
		return errspkg.ErrHandlerNameRequired
	}

	stats := newEventStats(cfg.Name, cfg.Topic, cfg.AckTopic, s.getResourceTracker())
	info := &EventInfo{
		Name:     cfg.Name,
		Event:    cfg.Event,
		Topic:    cfg.Topic,
		AckTopic: cfg.AckTopic,
		Stats:    stats,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, info)
	s.eventsMu.Unlock()

	cfg.Handler = wrapHandlerWithStats(cfg.Handler, stats, s.getErrorClassifier())
	if cfg.ErrorBarrier != nil {
		cfg.Handler = cfg.ErrorBarrier(cfg.Handler)
	}

	if cfg.AckTopic == "" {
		s.router.AddNoPublisherHandler(
			cfg.Name,
			cfg.Topic,
			cfg.Subscriber,
			discardOutput(cfg.Handler),
		)
		return nil
	}

	s.router.AddHandler(
		cfg.Name,
		cfg.Topic,
		cfg.Subscriber,
		cfg.AckTopic,
		cfg.Publisher,
		cfg.Handler,
	)

	return nil
}

// RegisterProtoMessage exposes a proto message type for validation without registering a handler.
func (s *Service) RegisterProtoMessage(msg proto.Message) {
	s.registerProtoType(msg)
}

func (s *Service) registerProtoType(msg proto.Message) {
	if msg == nil {
		return
	}

	typeName := fmt.Sprintf("%T", msg)

	s.protoRegistryMu.Lock()
	s.protoRegistry[typeName] = func() proto.Message {
		return msg.ProtoReflect().New().Interface()
	}
	s.protoRegistryMu.Unlock()
}

func wrapHandlerWithStats(handler message.HandlerFunc, stats *EventStats, classifier ErrorClassifier) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		invocation := stats.onMessageStart(msg)
		start := time.Now()
		msgs, err := handler(msg)
		duration := time.Since(start)

		stats.onMessageFinish(invocation, duration, err, classifier)

		return msgs, err
	}
}

func discardOutput(handler message.HandlerFunc) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		_, err := handler(msg)
		return err
	}
}
