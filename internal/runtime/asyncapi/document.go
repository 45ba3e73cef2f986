// Package asyncapi holds the AsyncAPI 2.5.0 document object model and the
// builder that assembles a document from event registrations.
package asyncapi

// SpecVersion is the AsyncAPI specification version this package emits.
const SpecVersion = "2.5.0"

// Socket.IO server binding values used in the servers section.
const (
	DefaultProtocol        = "socketio"
	DefaultProtocolVersion = "5"
)

// NoSpecSchemaName is the components.schemas entry used for payloads whose
// schema was not declared.
const NoSpecSchemaName = "NoSpec"

// NoSpecRef points at the NoSpec component schema.
const NoSpecRef = "#/components/schemas/" + NoSpecSchemaName

// descriptionCaveat is appended to the info description of every document.
// AsyncAPI has no Socket.IO binding, so acknowledgements are expressed through
// the x-ack extension and the document warns readers about it.
const descriptionCaveat = "\n<br/> AsyncAPI currently does not support Socket.IO binding and Web Socket like syntax used for now.\n" +
	"In order to add support for Socket.IO ACK value, AsyncAPI is extended with with x-ack keyword.\n" +
	"This documentation should **NOT** be used for generating code due to these limitations.\n"

// Document is the root AsyncAPI object. Field order and naming follow the
// 2.5.0 specification; YAML output is produced from the JSON form so a single
// set of tags drives both encodings.
type Document struct {
	AsyncAPI   string                  `json:"asyncapi"`
	Info       Info                    `json:"info"`
	Servers    map[string]Server       `json:"servers,omitempty"`
	Channels   map[string]*ChannelItem `json:"channels"`
	Components *Components             `json:"components,omitempty"`
}

// Info describes the documented application.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Server describes one server entry.
type Server struct {
	URL             string `json:"url"`
	Protocol        string `json:"protocol"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
	Description     string `json:"description,omitempty"`
}

// ChannelItem holds the operations of a single channel. Channels are keyed by
// namespace; the root namespace "/" always exists.
type ChannelItem struct {
	Publish   *Operation        `json:"publish,omitempty"`
	Subscribe *Operation        `json:"subscribe,omitempty"`
	XHandlers map[string]string `json:"x-handlers,omitempty"`
}

// Operation wraps the message set of one direction of a channel.
type Operation struct {
	OperationID string      `json:"operationId,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	Message     *MessageSet `json:"message,omitempty"`
}

// MessageSet lists the messages of an operation as component references.
type MessageSet struct {
	OneOf []Ref `json:"oneOf"`
}

// Ref is a JSON reference.
type Ref struct {
	Ref string `json:"$ref"`
}

// Message is a components.messages entry. XAck carries the acknowledgement
// schema; it is an extension because AsyncAPI 2.x has no native ack concept.
type Message struct {
	Name        string        `json:"name,omitempty"`
	Title       string        `json:"title,omitempty"`
	Summary     string        `json:"summary,omitempty"`
	Description string        `json:"description,omitempty"`
	Payload     *SchemaObject `json:"payload,omitempty"`
	XAck        *SchemaObject `json:"x-ack,omitempty"`
}

// Components holds the reusable objects of the document.
type Components struct {
	Messages map[string]*Message      `json:"messages,omitempty"`
	Schemas  map[string]*SchemaObject `json:"schemas,omitempty"`
}

// SchemaObject is a JSON-Schema-shaped node. It carries either a $ref or an
// inline schema; both converted validator schemas and reflection-derived
// schemas are expressed with it.
type SchemaObject struct {
	Ref                  string                   `json:"$ref,omitempty"`
	Type                 string                   `json:"type,omitempty"`
	Format               string                   `json:"format,omitempty"`
	Title                string                   `json:"title,omitempty"`
	Description          string                   `json:"description,omitempty"`
	Default              any                      `json:"default,omitempty"`
	Enum                 []any                    `json:"enum,omitempty"`
	Const                any                      `json:"const,omitempty"`
	Properties           map[string]*SchemaObject `json:"properties,omitempty"`
	Required             []string                 `json:"required,omitempty"`
	Items                *SchemaObject            `json:"items,omitempty"`
	AdditionalProperties any                      `json:"additionalProperties,omitempty"`
	OneOf                []*SchemaObject          `json:"oneOf,omitempty"`
	AnyOf                []*SchemaObject          `json:"anyOf,omitempty"`
	AllOf                []*SchemaObject          `json:"allOf,omitempty"`
	Minimum              *float64                 `json:"minimum,omitempty"`
	Maximum              *float64                 `json:"maximum,omitempty"`
	MinLength            *int                     `json:"minLength,omitempty"`
	MaxLength            *int                     `json:"maxLength,omitempty"`
	MinItems             *int                     `json:"minItems,omitempty"`
	MaxItems             *int                     `json:"maxItems,omitempty"`
	Pattern              string                   `json:"pattern,omitempty"`
	Definitions          map[string]*SchemaObject `json:"definitions,omitempty"`
}

// RefTo returns a schema object that only references the named component
// schema.
func RefTo(name string) *SchemaObject {
	return &SchemaObject{Ref: "#/components/schemas/" + name}
}

// MessageRef returns a reference to the named component message.
func MessageRef(name string) Ref {
	return Ref{Ref: "#/components/messages/" + name}
}
