// Package schema binds Go payload types to their document schemas and to
// runtime validation. Payloads come in three flavors: schemas built with the
// goskema DSL, schemas inferred from the payload type by reflection, and
// protobuf schemas derived from message descriptors.
package schema

import (
	"context"
	"reflect"

	goskema "github.com/reoring/goskema"

	"github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
	"github.com/asyncflow/asyncflow/internal/runtime/jsoncodec"
)

// NoPayload marks an absent payload side. A handler whose request type is
// NoPayload takes no payload; an ack type of NoPayload means the handler sends
// no acknowledgement. The side is omitted from the document.
type NoPayload struct{}

// RawPayload carries JSON that is passed through without validation. The
// document describes the side with the NoSpec schema.
type RawPayload []byte

// Payload binds a payload type to its document rendering and its wire
// behavior. Decode parses and validates inbound bytes; DecodeLenient parses
// without validating, for services running with validation disabled; Check
// validates a value before it is sent; Encode marshals a checked value onto
// the wire.
type Payload[T any] interface {
	Doc() *asyncapi.Payload
	Decode(ctx context.Context, data []byte) (T, error)
	DecodeLenient(ctx context.Context, data []byte) (T, error)
	Check(ctx context.Context, v T) error
	Encode(v T) ([]byte, error)
}

// For returns the payload binding inferred from the type parameter. NoPayload
// and RawPayload select their sentinels; every other type gets a
// reflection-derived schema.
func For[T any]() Payload[T] {
	var zero T
	switch any(zero).(type) {
	case NoPayload:
		return nonePayload[T]{}
	case RawPayload:
		return rawPassthrough[T]{}
	default:
		return newInferredPayload[T]()
	}
}

// FromGoskema wraps an explicit goskema schema. The document schema comes
// from the schema's JSON Schema projection; inbound bytes are parsed through
// the goskema pipeline and outbound values run through ValidateValue.
func FromGoskema[T any](s goskema.Schema[T]) Payload[T] {
	return goskemaPayload[T]{schema: s, name: componentName[T]()}
}

// Absent reports whether the payload type opts out of its side entirely.
func Absent[T any]() bool {
	var zero T
	_, ok := any(zero).(NoPayload)
	return ok
}

type nonePayload[T any] struct{}

func (nonePayload[T]) Doc() *asyncapi.Payload { return nil }

func (nonePayload[T]) Decode(ctx context.Context, data []byte) (T, error) {
	var zero T
	return zero, nil
}

func (p nonePayload[T]) DecodeLenient(ctx context.Context, data []byte) (T, error) {
	return p.Decode(ctx, data)
}

func (nonePayload[T]) Check(ctx context.Context, v T) error { return nil }

func (nonePayload[T]) Encode(v T) ([]byte, error) { return nil, nil }

type rawPassthrough[T any] struct{}

func (rawPassthrough[T]) Doc() *asyncapi.Payload { return asyncapi.UnspecifiedPayload() }

func (rawPassthrough[T]) Decode(ctx context.Context, data []byte) (T, error) {
	var v T
	if raw, ok := any(&v).(*RawPayload); ok {
		*raw = RawPayload(data)
	}
	return v, nil
}

func (p rawPassthrough[T]) DecodeLenient(ctx context.Context, data []byte) (T, error) {
	return p.Decode(ctx, data)
}

func (rawPassthrough[T]) Check(ctx context.Context, v T) error { return nil }

func (rawPassthrough[T]) Encode(v T) ([]byte, error) {
	if raw, ok := any(v).(RawPayload); ok {
		return []byte(raw), nil
	}
	return nil, nil
}

type goskemaPayload[T any] struct {
	schema goskema.Schema[T]
	name   string
}

func (p goskemaPayload[T]) Doc() *asyncapi.Payload {
	exported, err := p.schema.JSONSchema()
	if err != nil {
		return asyncapi.UnspecifiedPayload()
	}

	converted := FromJSONSchema(exported)
	if p.name == "" {
		return asyncapi.InlinePayload(converted)
	}
	if converted.Title == "" {
		converted.Title = p.name
	}
	return asyncapi.NamedPayload(p.name, converted, nil)
}

func (p goskemaPayload[T]) Decode(ctx context.Context, data []byte) (T, error) {
	return goskema.ParseFrom(ctx, p.schema, goskema.JSONBytes(data))
}

func (p goskemaPayload[T]) DecodeLenient(ctx context.Context, data []byte) (T, error) {
	var v T
	if err := jsoncodec.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

func (p goskemaPayload[T]) Check(ctx context.Context, v T) error {
	return p.schema.ValidateValue(ctx, v)
}

func (p goskemaPayload[T]) Encode(v T) ([]byte, error) {
	return jsoncodec.Marshal(v)
}

// componentName derives the components.schemas key for T: the name of the
// (possibly pointed-to) named struct type, or empty when the schema should
// inline.
func componentName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct && t.Name() != "" {
		return t.Name()
	}
	return ""
}
