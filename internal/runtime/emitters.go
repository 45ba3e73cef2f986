package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	goskema "github.com/reoring/goskema"

	"github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
	errspkg "github.com/asyncflow/asyncflow/internal/runtime/errors"
	"github.com/asyncflow/asyncflow/internal/runtime/jsoncodec"
	schemapkg "github.com/asyncflow/asyncflow/internal/runtime/schema"
)

// EmitterRegistration declares a server-to-client event: it lands in the
// generated document as a subscribe message and binds the event name to a
// payload schema that Emit calls are checked against.
type EmitterRegistration[T any] struct {
	// Event is the event name. It doubles as the publish topic unless Topic is set.
	Event string
	// Namespace scopes the event channel in the generated document. Defaults to "/".
	Namespace string
	// Topic overrides the publish topic. Defaults to the event name.
	Topic string
	// Summary is a short human description used in the generated document.
	Summary string
	// MessageName overrides the document message key for this event.
	MessageName string
	// Schema validates outgoing payloads. When nil a schema is inferred from T.
	Schema goskema.Schema[T]
}

// Emitter publishes payloads for one declared event.
type Emitter[T any] struct {
	svc     *Service
	record  *emitterRecord
	payload schemapkg.Payload[T]
}

// emitterRecord is the untyped view of a registered emitter, shared between the
// typed Emitter and the event-name based Service.Emit.
type emitterRecord struct {
	event     string
	namespace string
	topic     string
	typeName  string
	check     func(ctx context.Context, v any) error
}

// RegisterEmitter declares an outgoing event and returns the typed emitter for
// it. Registering the same event twice with the same payload type returns an
// emitter bound to the existing registration; a different payload type fails
// with ErrEmitterConflict.
func RegisterEmitter[T any](svc *Service, cfg EmitterRegistration[T]) (*Emitter[T], error) {
	if svc == nil {
		return nil, errspkg.ErrServiceRequired
	}
	if cfg.Event == "" {
		return nil, errspkg.ErrEventNameRequired
	}

	var payload schemapkg.Payload[T]
	if cfg.Schema != nil {
		payload = schemapkg.FromGoskema(cfg.Schema)
	} else {
		payload = schemapkg.For[T]()
	}

	typeName := reflect.TypeOf((*T)(nil)).Elem().String()

	svc.emittersMu.Lock()
	if svc.emitters == nil {
		svc.emitters = make(map[string]*emitterRecord)
	}
	if existing, ok := svc.emitters[cfg.Event]; ok {
		svc.emittersMu.Unlock()
		if existing.typeName != typeName {
			return nil, fmt.Errorf("%w: event %q is bound to %s", errspkg.ErrEmitterConflict, cfg.Event, existing.typeName)
		}
		return &Emitter[T]{svc: svc, record: existing, payload: payload}, nil
	}

	topic := cfg.Topic
	if topic == "" {
		topic = cfg.Event
	}

	record := &emitterRecord{
		event:     cfg.Event,
		namespace: cfg.Namespace,
		topic:     topic,
		typeName:  typeName,
		check: func(ctx context.Context, v any) error {
			typed, ok := v.(T)
			if !ok {
				return fmt.Errorf("payload type %T does not match the registered type %s", v, typeName)
			}
			return payload.Check(ctx, typed)
		},
	}
	svc.emitters[cfg.Event] = record
	svc.emittersMu.Unlock()

	if err := svc.docBuilder().AddSender(asyncapi.MessageDraft{
		Event:       cfg.Event,
		Namespace:   cfg.Namespace,
		MessageName: cfg.MessageName,
		Description: cfg.Summary,
		Payload:     payload.Doc(),
	}); err != nil {
		return nil, err
	}

	return &Emitter[T]{svc: svc, record: record, payload: payload}, nil
}

// Emit checks the payload against the registered schema (when the service
// validates) and publishes it. Validation failures surface as
// *schema.EmitValidationError before anything reaches the transport.
func (e *Emitter[T]) Emit(ctx context.Context, payload T) error {
	if e == nil || e.svc == nil {
		return errspkg.ErrServiceRequired
	}

	if e.svc.validationEnabled() {
		if err := e.payload.Check(ctx, payload); err != nil {
			return &schemapkg.EmitValidationError{Event: e.record.event, Err: err}
		}
	}

	data, err := e.payload.Encode(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %q payload: %w", e.record.event, err)
	}

	return e.svc.publishEvent(ctx, e.record.event, e.record.namespace, e.record.topic, data, fmt.Sprintf("%T", payload))
}

// Event returns the event name this emitter publishes.
func (e *Emitter[T]) Event() string {
	return e.record.event
}

// Emit publishes an event by name. Events declared through RegisterEmitter are
// checked against their schema when the service validates; undeclared events
// pass through untouched.
func (s *Service) Emit(ctx context.Context, event string, payload any) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	if event == "" {
		return errspkg.ErrEventNameRequired
	}

	s.emittersMu.RLock()
	record, ok := s.emitters[event]
	s.emittersMu.RUnlock()

	topic := event
	namespace := ""
	if ok {
		topic = record.topic
		namespace = record.namespace
		if s.validationEnabled() {
			if err := record.check(ctx, payload); err != nil {
				return &schemapkg.EmitValidationError{Event: event, Err: err}
			}
		}
	}

	data, err := encodeEmitPayload(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %q payload: %w", event, err)
	}

	return s.publishEvent(ctx, event, namespace, topic, data, fmt.Sprintf("%T", payload))
}

// encodeEmitPayload marshals an untyped emit payload, passing already encoded
// bytes through untouched.
func encodeEmitPayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return []byte(p), nil
	case schemapkg.RawPayload:
		return []byte(p), nil
	default:
		return jsoncodec.Marshal(payload)
	}
}
