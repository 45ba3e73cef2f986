package schema

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	goskema "github.com/reoring/goskema"

	"github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
)

type chatProfile struct {
	Age int `json:"age"`
}

type chatMessage struct {
	User     string      `json:"user"`
	Text     string      `json:"text"`
	SentAt   time.Time   `json:"sent_at"`
	Nickname *string     `json:"nickname,omitempty"`
	Profile  chatProfile `json:"profile"`
	Tags     []string    `json:"tags,omitempty"`
	hidden   string
	Ignored  string      `json:"-"`
}

func TestInferTypePrimitives(t *testing.T) {
	tests := []struct {
		name       string
		typ        reflect.Type
		wantType   string
		wantFormat string
	}{
		{"string", reflect.TypeOf(""), "string", ""},
		{"bool", reflect.TypeOf(true), "boolean", ""},
		{"int32", reflect.TypeOf(int32(0)), "integer", ""},
		{"uint", reflect.TypeOf(uint(0)), "integer", ""},
		{"float64", reflect.TypeOf(float64(0)), "number", ""},
		{"bytes", reflect.TypeOf([]byte(nil)), "string", "binary"},
		{"time", reflect.TypeOf(time.Time{}), "string", "date-time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := InferType(tt.typ)
			if p == nil || p.Unspecified || p.SchemaName != "" {
				t.Fatalf("expected an inline payload, got %+v", p)
			}
			if p.Schema.Type != tt.wantType || p.Schema.Format != tt.wantFormat {
				t.Fatalf("got type %q format %q, want %q %q",
					p.Schema.Type, p.Schema.Format, tt.wantType, tt.wantFormat)
			}
		})
	}
}

func TestInferTypeCollections(t *testing.T) {
	p := InferType(reflect.TypeOf([]string(nil)))
	if p.Schema.Type != "array" || p.Schema.Items.Type != "string" {
		t.Fatalf("unexpected slice schema: %+v", p.Schema)
	}

	p = InferType(reflect.TypeOf(map[string]int(nil)))
	if p.Schema.Type != "object" {
		t.Fatalf("unexpected map schema: %+v", p.Schema)
	}
	value, ok := p.Schema.AdditionalProperties.(*asyncapi.SchemaObject)
	if !ok || value.Type != "integer" {
		t.Fatalf("unexpected map value schema: %+v", p.Schema.AdditionalProperties)
	}
}

func TestInferTypeUnsupported(t *testing.T) {
	p := InferType(reflect.TypeOf(make(chan int)))
	if p == nil || !p.Unspecified {
		t.Fatalf("unsupported types should document as unspecified, got %+v", p)
	}
}

func TestInferTypeStruct(t *testing.T) {
	p := InferType(reflect.TypeOf(chatMessage{}))

	if p.SchemaName != "chatMessage" {
		t.Fatalf("unexpected schema name: %q", p.SchemaName)
	}
	root := p.Schema
	if root.Type != "object" || root.Title != "chatMessage" {
		t.Fatalf("unexpected root schema: %+v", root)
	}

	if root.Properties["user"].Type != "string" || root.Properties["user"].Title != "User" {
		t.Fatalf("unexpected user property: %+v", root.Properties["user"])
	}
	if root.Properties["sent_at"].Format != "date-time" {
		t.Fatalf("unexpected sent_at property: %+v", root.Properties["sent_at"])
	}
	if root.Properties["profile"].Ref != "#/definitions/chatProfile" {
		t.Fatalf("unexpected profile property: %+v", root.Properties["profile"])
	}
	if _, ok := root.Properties["hidden"]; ok {
		t.Fatal("unexported fields must not be documented")
	}
	if _, ok := root.Properties["Ignored"]; ok {
		t.Fatal("json:\"-\" fields must not be documented")
	}

	wantRequired := []string{"user", "text", "sent_at", "profile"}
	if !reflect.DeepEqual(root.Required, wantRequired) {
		t.Fatalf("unexpected required list: %v, want %v", root.Required, wantRequired)
	}

	nested, ok := p.Definitions["chatProfile"]
	if !ok {
		t.Fatalf("nested struct should land in definitions, got %v", p.Definitions)
	}
	if nested.Properties["age"].Type != "integer" {
		t.Fatalf("unexpected nested schema: %+v", nested)
	}
	if _, ok := p.Definitions["chatMessage"]; ok {
		t.Fatal("the root type must not appear in its own definitions")
	}
}

func TestInferTypeDereferencesPointers(t *testing.T) {
	p := InferType(reflect.TypeOf((*chatProfile)(nil)))
	if p.SchemaName != "chatProfile" {
		t.Fatalf("unexpected schema name: %q", p.SchemaName)
	}
}

func TestInferTypeRawMessage(t *testing.T) {
	p := InferType(reflect.TypeOf(json.RawMessage(nil)))
	if p.Unspecified || p.Schema == nil || p.Schema.Type != "" {
		t.Fatalf("raw JSON should document as an unconstrained schema, got %+v", p)
	}
}

func TestTopLevelRequired(t *testing.T) {
	got := topLevelRequired(reflect.TypeOf(chatMessage{}))
	want := []string{"user", "text", "sent_at", "profile"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if got := topLevelRequired(reflect.TypeOf("")); got != nil {
		t.Fatalf("non-structs have no required keys, got %v", got)
	}
	if got := topLevelRequired(reflect.TypeOf(time.Time{})); got != nil {
		t.Fatalf("time.Time has no required keys, got %v", got)
	}
}

func TestInferredPayloadDecode(t *testing.T) {
	p := For[chatProfile]()

	v, err := p.Decode(context.Background(), []byte(`{"age":30}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Age != 30 {
		t.Fatalf("unexpected value: %+v", v)
	}
}

func TestInferredPayloadDecodeMissingRequired(t *testing.T) {
	p := For[chatProfile]()

	_, err := p.Decode(context.Background(), []byte(`{}`))
	if err == nil {
		t.Fatal("expected a validation error")
	}
	issues, ok := goskema.AsIssues(err)
	if !ok {
		t.Fatalf("expected structured issues, got %T", err)
	}
	if len(issues) != 1 || issues[0].Code != goskema.CodeRequired || issues[0].Path != "/age" {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestInferredPayloadDecodeParseError(t *testing.T) {
	p := For[chatProfile]()

	_, err := p.Decode(context.Background(), []byte(`[1,2,3]`))
	if err == nil {
		t.Fatal("expected a parse error")
	}
	issues, ok := goskema.AsIssues(err)
	if !ok || issues[0].Code != goskema.CodeParseError {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInferredPayloadDecodeLenient(t *testing.T) {
	p := For[chatProfile]()

	v, err := p.DecodeLenient(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("lenient decode should not check required keys, got %v", err)
	}
	if v.Age != 0 {
		t.Fatalf("unexpected value: %+v", v)
	}
}

func TestInferredPayloadEncode(t *testing.T) {
	p := For[chatProfile]()

	out, err := p.Encode(chatProfile{Age: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"age":30}` {
		t.Fatalf("unexpected encoding: %s", out)
	}
}
