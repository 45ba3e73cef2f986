package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	goskema "github.com/reoring/goskema"
	js "github.com/reoring/goskema/jsonschema"

	errspkg "github.com/asyncflow/asyncflow/internal/runtime/errors"
	handlerpkg "github.com/asyncflow/asyncflow/internal/runtime/handlers"
	schemapkg "github.com/asyncflow/asyncflow/internal/runtime/schema"
)

type noticePayload struct {
	Text string `json:"text"`
}

type tickPayload struct {
	Seq int `json:"seq"`
}

// vetoSchema parses everything and rejects values with the configured error.
type vetoSchema[T any] struct {
	err error
}

func (s vetoSchema[T]) Parse(ctx context.Context, v any) (T, error) {
	var zero T
	return zero, nil
}

func (s vetoSchema[T]) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[T], error) {
	var zero goskema.Decoded[T]
	return zero, nil
}

func (s vetoSchema[T]) TypeCheck(ctx context.Context, v any) error   { return nil }
func (s vetoSchema[T]) RuleCheck(ctx context.Context, v any) error   { return nil }
func (s vetoSchema[T]) Validate(ctx context.Context, v any) error    { return nil }
func (s vetoSchema[T]) ValidateValue(ctx context.Context, v T) error { return s.err }

func (s vetoSchema[T]) JSONSchema() (*js.Schema, error) {
	return &js.Schema{Type: "object"}, nil
}

func TestRegisterEmitterValidations(t *testing.T) {
	if _, err := RegisterEmitter(nil, EmitterRegistration[noticePayload]{Event: "server_notice"}); !errors.Is(err, errspkg.ErrServiceRequired) {
		t.Fatalf("expected service required error, got %v", err)
	}

	svc := newTestService(t)
	if _, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{}); !errors.Is(err, errspkg.ErrEventNameRequired) {
		t.Fatalf("expected event name required error, got %v", err)
	}
}

func TestRegisterEmitterDocumentsSender(t *testing.T) {
	svc := newTestService(t)

	emitter, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{
		Event:   "server_notice",
		Summary: "Broadcast a notice to every client.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emitter.Event() != "server_notice" {
		t.Fatalf("unexpected emitter event: %q", emitter.Event())
	}

	doc, err := svc.AsyncAPIDoc()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, ok := doc.Components.Messages["server_notice"]
	if !ok {
		t.Fatalf("sender message missing, have %v", doc.Components.Messages)
	}
	if msg.Name != "server_notice" {
		t.Fatalf("unexpected message name: %q", msg.Name)
	}
	if msg.Payload == nil || msg.Payload.Ref != "#/components/schemas/noticePayload" {
		t.Fatalf("unexpected payload: %+v", msg.Payload)
	}
	if msg.XAck != nil {
		t.Fatal("senders must not carry an ack schema")
	}
	if _, ok := doc.Components.Schemas["noticePayload"]; !ok {
		t.Fatal("payload schema was not lifted into components")
	}

	root := doc.Channels["/"]
	if len(root.Subscribe.Message.OneOf) != 1 || root.Subscribe.Message.OneOf[0].Ref != "#/components/messages/server_notice" {
		t.Fatalf("unexpected subscribe refs: %v", root.Subscribe.Message.OneOf)
	}
	if len(root.Publish.Message.OneOf) != 0 {
		t.Fatalf("publish side should stay empty, got %v", root.Publish.Message.OneOf)
	}
}

func TestRegisterEmitterSameTypeReusesRegistration(t *testing.T) {
	svc := newTestService(t)

	first, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{Event: "server_notice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{Event: "server_notice"})
	if err != nil {
		t.Fatalf("re-registration with the same type should succeed, got %v", err)
	}
	if second.Event() != first.Event() {
		t.Fatalf("expected emitters to share the registration, got %q and %q", first.Event(), second.Event())
	}

	doc, err := svc.AsyncAPIDoc()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oneOf := doc.Channels["/"].Subscribe.Message.OneOf; len(oneOf) != 1 {
		t.Fatalf("event should be documented once, got %v", oneOf)
	}
}

func TestRegisterEmitterConflictingType(t *testing.T) {
	svc := newTestService(t)

	if _, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{Event: "server_notice"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := RegisterEmitter(svc, EmitterRegistration[tickPayload]{Event: "server_notice"})
	if !errors.Is(err, errspkg.ErrEmitterConflict) {
		t.Fatalf("expected emitter conflict error, got %v", err)
	}
	if !strings.Contains(err.Error(), "runtime.noticePayload") {
		t.Fatalf("conflict error should name the bound type, got %v", err)
	}
}

func TestEmitterEmitPublishes(t *testing.T) {
	svc := newTestService(t)
	emitter, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{Event: "server_notice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := emitter.Emit(context.Background(), noticePayload{Text: "maintenance at noon"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := testPublisherOf(t, svc).Records()
	if len(records) != 1 {
		t.Fatalf("expected one published message, got %d", len(records))
	}
	rec := records[0]
	if rec.topic != "server_notice" {
		t.Fatalf("unexpected topic: %q", rec.topic)
	}
	if string(rec.msg.Payload) != `{"text":"maintenance at noon"}` {
		t.Fatalf("unexpected payload: %s", rec.msg.Payload)
	}
	if rec.msg.UUID == "" {
		t.Fatal("expected a message UUID")
	}
	if got := rec.msg.Metadata.Get(handlerpkg.MetadataKeyEvent); got != "server_notice" {
		t.Fatalf("unexpected event metadata: %q", got)
	}
	if got := rec.msg.Metadata.Get(handlerpkg.MetadataKeyEventSchema); got != "runtime.noticePayload" {
		t.Fatalf("unexpected schema metadata: %q", got)
	}
	if got := rec.msg.Metadata.Get(handlerpkg.MetadataKeyNamespace); got != "" {
		t.Fatalf("namespace metadata should be absent, got %q", got)
	}
}

func TestEmitterEmitTopicOverride(t *testing.T) {
	svc := newTestService(t)
	emitter, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{
		Event: "server_notice",
		Topic: "broadcast.notices",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := emitter.Emit(context.Background(), noticePayload{Text: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	topics := testPublisherOf(t, svc).Topics()
	if len(topics) != 1 || topics[0] != "broadcast.notices" {
		t.Fatalf("unexpected topics: %v", topics)
	}
}

func TestEmitterEmitChecksWhenValidating(t *testing.T) {
	svc := newValidatingTestService(t)
	rejected := errors.New("value rejected")
	emitter, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{
		Event:  "server_notice",
		Schema: vetoSchema[noticePayload]{err: rejected},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = emitter.Emit(context.Background(), noticePayload{Text: "hi"})
	var emitErr *schemapkg.EmitValidationError
	if !errors.As(err, &emitErr) {
		t.Fatalf("expected an emit validation error, got %v", err)
	}
	if emitErr.Event != "server_notice" {
		t.Fatalf("unexpected event on error: %q", emitErr.Event)
	}
	if !errors.Is(err, rejected) {
		t.Fatalf("expected the schema error to be wrapped, got %v", err)
	}
	if records := testPublisherOf(t, svc).Records(); len(records) != 0 {
		t.Fatalf("rejected payloads must not reach the transport, got %d messages", len(records))
	}
}

func TestEmitterEmitSkipsCheckWithoutValidation(t *testing.T) {
	svc := newTestService(t)
	emitter, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{
		Event:  "server_notice",
		Schema: vetoSchema[noticePayload]{err: errors.New("value rejected")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := emitter.Emit(context.Background(), noticePayload{Text: "hi"}); err != nil {
		t.Fatalf("expected the check to be skipped, got %v", err)
	}
	if records := testPublisherOf(t, svc).Records(); len(records) != 1 {
		t.Fatalf("expected one published message, got %d", len(records))
	}
}

func TestEmitterEmitNilReceiver(t *testing.T) {
	var emitter *Emitter[noticePayload]
	if err := emitter.Emit(context.Background(), noticePayload{}); !errors.Is(err, errspkg.ErrServiceRequired) {
		t.Fatalf("expected service required error, got %v", err)
	}
}

func TestServiceEmitValidations(t *testing.T) {
	var nilSvc *Service
	if err := nilSvc.Emit(context.Background(), "server_notice", nil); !errors.Is(err, errspkg.ErrServiceRequired) {
		t.Fatalf("expected service required error, got %v", err)
	}

	svc := newTestService(t)
	if err := svc.Emit(context.Background(), "", nil); !errors.Is(err, errspkg.ErrEventNameRequired) {
		t.Fatalf("expected event name required error, got %v", err)
	}
}

func TestServiceEmitUnregisteredPassesThrough(t *testing.T) {
	svc := newValidatingTestService(t)

	if err := svc.Emit(context.Background(), "adhoc_event", map[string]int{"n": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := testPublisherOf(t, svc).Records()
	if len(records) != 1 {
		t.Fatalf("expected one published message, got %d", len(records))
	}
	rec := records[0]
	if rec.topic != "adhoc_event" {
		t.Fatalf("undeclared events should publish to the event topic, got %q", rec.topic)
	}
	if string(rec.msg.Payload) != `{"n":1}` {
		t.Fatalf("unexpected payload: %s", rec.msg.Payload)
	}
	if got := rec.msg.Metadata.Get(handlerpkg.MetadataKeyEvent); got != "adhoc_event" {
		t.Fatalf("unexpected event metadata: %q", got)
	}
}

func TestServiceEmitChecksRegisteredEvents(t *testing.T) {
	svc := newValidatingTestService(t)
	if _, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{
		Event:  "server_notice",
		Schema: vetoSchema[noticePayload]{err: errors.New("value rejected")},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := svc.Emit(context.Background(), "server_notice", noticePayload{Text: "hi"})
	var emitErr *schemapkg.EmitValidationError
	if !errors.As(err, &emitErr) {
		t.Fatalf("expected an emit validation error, got %v", err)
	}

	err = svc.Emit(context.Background(), "server_notice", 42)
	if !errors.As(err, &emitErr) {
		t.Fatalf("expected an emit validation error for the wrong type, got %v", err)
	}
	if !strings.Contains(err.Error(), "does not match the registered type") {
		t.Fatalf("expected a type mismatch message, got %v", err)
	}

	if records := testPublisherOf(t, svc).Records(); len(records) != 0 {
		t.Fatalf("rejected payloads must not reach the transport, got %d messages", len(records))
	}
}

func TestServiceEmitUsesRegisteredTopicAndNamespace(t *testing.T) {
	svc := newTestService(t)
	if _, err := RegisterEmitter(svc, EmitterRegistration[noticePayload]{
		Event:     "server_notice",
		Namespace: "/ops",
		Topic:     "broadcast.notices",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Emit(context.Background(), "server_notice", noticePayload{Text: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := testPublisherOf(t, svc).Records()
	if len(records) != 1 {
		t.Fatalf("expected one published message, got %d", len(records))
	}
	rec := records[0]
	if rec.topic != "broadcast.notices" {
		t.Fatalf("unexpected topic: %q", rec.topic)
	}
	if got := rec.msg.Metadata.Get(handlerpkg.MetadataKeyNamespace); got != "/ops" {
		t.Fatalf("unexpected namespace metadata: %q", got)
	}
}

func TestEncodeEmitPayload(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    string
	}{
		{name: "bytes pass through", payload: []byte(`{"raw":true}`), want: `{"raw":true}`},
		{name: "raw json passes through", payload: json.RawMessage(`[1,2]`), want: `[1,2]`},
		{name: "raw payload passes through", payload: schemapkg.RawPayload(`"x"`), want: `"x"`},
		{name: "values marshal", payload: map[string]int{"n": 1}, want: `{"n":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := encodeEmitPayload(tc.payload)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("unexpected encoding: %s", got)
			}
		})
	}

	got, err := encodeEmitPayload(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("nil payloads should stay nil, got %q", got)
	}
}
