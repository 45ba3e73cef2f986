package schema

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	goskema "github.com/reoring/goskema"

	"github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
	"github.com/asyncflow/asyncflow/internal/runtime/jsoncodec"
)

var (
	timeType       = reflect.TypeOf(time.Time{})
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
)

// inferredPayload derives the document schema from the payload type itself.
// Decoding checks top-level required keys and then relies on the JSON codec's
// type checking; constraint-level validation needs an explicit goskema schema.
type inferredPayload[T any] struct {
	doc      *asyncapi.Payload
	required []string
}

func newInferredPayload[T any]() Payload[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return inferredPayload[T]{
		doc:      InferType(t),
		required: topLevelRequired(t),
	}
}

func (p inferredPayload[T]) Doc() *asyncapi.Payload { return p.doc }

func (p inferredPayload[T]) Decode(ctx context.Context, data []byte) (T, error) {
	var v T

	if len(p.required) > 0 {
		var probe map[string]json.RawMessage
		if err := jsoncodec.Unmarshal(data, &probe); err != nil {
			return v, goskema.Issues{{
				Path:    "",
				Code:    goskema.CodeParseError,
				Message: err.Error(),
				Cause:   err,
			}}
		}

		var issues goskema.Issues
		for _, key := range p.required {
			if _, ok := probe[key]; !ok {
				issues = goskema.AppendIssues(issues, goskema.Issue{
					Path:    "/" + key,
					Code:    goskema.CodeRequired,
					Message: "required property is missing",
				})
			}
		}
		if len(issues) > 0 {
			return v, issues
		}
	}

	if err := jsoncodec.Unmarshal(data, &v); err != nil {
		return v, goskema.Issues{{
			Path:    "",
			Code:    goskema.CodeInvalidType,
			Message: err.Error(),
			Cause:   err,
		}}
	}
	return v, nil
}

func (p inferredPayload[T]) DecodeLenient(ctx context.Context, data []byte) (T, error) {
	var v T
	if err := jsoncodec.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// Check is a no-op: a typed Go value cannot miss fields, and inferred schemas
// carry no value constraints.
func (p inferredPayload[T]) Check(ctx context.Context, v T) error { return nil }

func (p inferredPayload[T]) Encode(v T) ([]byte, error) {
	return jsoncodec.Marshal(v)
}

// InferType derives the document payload for a Go type. Named struct types
// become component schemas with their nested named structs lifted into
// definitions; primitives, maps, and slices inline.
func InferType(t reflect.Type) *asyncapi.Payload {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() == reflect.Struct && t.Name() != "" && t != timeType {
		defs := map[string]*asyncapi.SchemaObject{}
		root := structSchema(t, defs)
		delete(defs, t.Name())
		if len(defs) == 0 {
			defs = nil
		}
		return asyncapi.NamedPayload(t.Name(), root, defs)
	}

	inline := typeSchema(t, map[string]*asyncapi.SchemaObject{})
	if inline == nil {
		return asyncapi.UnspecifiedPayload()
	}
	return asyncapi.InlinePayload(inline)
}

// topLevelRequired lists the JSON keys that must be present when decoding
// into the type: exported non-pointer fields without an omitempty tag.
func topLevelRequired(t reflect.Type) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType {
		return nil
	}

	var required []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, opts, ok := jsonFieldName(field)
		if !ok {
			continue
		}
		if field.Type.Kind() == reflect.Pointer || opts.omitempty {
			continue
		}
		required = append(required, name)
	}
	return required
}

// structSchema builds the object schema for a struct type, recording nested
// named structs in defs keyed by type name.
func structSchema(t reflect.Type, defs map[string]*asyncapi.SchemaObject) *asyncapi.SchemaObject {
	obj := &asyncapi.SchemaObject{
		Type:       "object",
		Title:      t.Name(),
		Properties: map[string]*asyncapi.SchemaObject{},
	}
	if name := t.Name(); name != "" {
		defs[name] = obj
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, opts, ok := jsonFieldName(field)
		if !ok {
			continue
		}

		prop := typeSchema(field.Type, defs)
		if prop == nil {
			prop = &asyncapi.SchemaObject{}
		}
		if prop.Ref == "" && prop.Title == "" {
			prop.Title = fieldTitle(name)
		}
		obj.Properties[name] = prop

		if field.Type.Kind() != reflect.Pointer && !opts.omitempty {
			obj.Required = append(obj.Required, name)
		}
	}
	return obj
}

// typeSchema maps one Go type onto a schema node. Named structs return a
// local definitions reference that the document builder re-prefixes.
func typeSchema(t reflect.Type, defs map[string]*asyncapi.SchemaObject) *asyncapi.SchemaObject {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch {
	case t == timeType:
		return &asyncapi.SchemaObject{Type: "string", Format: "date-time"}
	case t == rawMessageType:
		return &asyncapi.SchemaObject{}
	}

	switch t.Kind() {
	case reflect.String:
		return &asyncapi.SchemaObject{Type: "string"}
	case reflect.Bool:
		return &asyncapi.SchemaObject{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &asyncapi.SchemaObject{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &asyncapi.SchemaObject{Type: "number"}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &asyncapi.SchemaObject{Type: "string", Format: "binary"}
		}
		return &asyncapi.SchemaObject{Type: "array", Items: typeSchema(t.Elem(), defs)}
	case reflect.Map:
		return &asyncapi.SchemaObject{Type: "object", AdditionalProperties: typeSchema(t.Elem(), defs)}
	case reflect.Struct:
		if t.Name() == "" {
			return structSchema(t, defs)
		}
		if _, seen := defs[t.Name()]; !seen {
			structSchema(t, defs)
		}
		return &asyncapi.SchemaObject{Ref: "#/definitions/" + t.Name()}
	case reflect.Interface:
		return &asyncapi.SchemaObject{}
	default:
		return nil
	}
}

type jsonTagOptions struct {
	omitempty bool
}

// jsonFieldName resolves the wire name of a struct field, honoring json tags.
// The third return is false for unexported and json:"-" fields.
func jsonFieldName(field reflect.StructField) (string, jsonTagOptions, bool) {
	if field.PkgPath != "" {
		return "", jsonTagOptions{}, false
	}

	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", jsonTagOptions{}, false
	}

	name, rest, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}

	var opts jsonTagOptions
	for rest != "" {
		var opt string
		opt, rest, _ = strings.Cut(rest, ",")
		if opt == "omitempty" {
			opts.omitempty = true
		}
	}
	return name, opts, true
}

// fieldTitle capitalizes the first rune of a wire name for the property title.
func fieldTitle(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
