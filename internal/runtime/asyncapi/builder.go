package asyncapi

import (
	"strings"
	"sync"
	"unicode"

	errspkg "github.com/asyncflow/asyncflow/internal/runtime/errors"
)

// Options configures the skeleton document produced by NewBuilder.
type Options struct {
	Title       string
	Version     string
	Description string
	ServerName  string
	ServerURL   string
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Demo Chat API"
	}
	if o.Version == "" {
		o.Version = "1.0.0"
	}
	if o.Description == "" {
		o.Description = "Demo Chat API"
	}
	if o.ServerName == "" {
		o.ServerName = "BACKEND"
	}
	if o.ServerURL == "" {
		o.ServerURL = "http://localhost:5000"
	}
	return o
}

// Payload describes one side of a message before it lands in the document.
// A nil *Payload means the side is absent and is omitted entirely.
type Payload struct {
	// SchemaName names the components.schemas entry the message references.
	// Empty with Schema set means the schema inlines into the message.
	SchemaName string
	// Schema is the schema node. Nil with Unspecified set maps to NoSpec.
	Schema *SchemaObject
	// Definitions holds named schemas referenced from Schema; they are lifted
	// into components.schemas alongside the main entry.
	Definitions map[string]*SchemaObject
	// Unspecified marks a payload that exists but has no declared schema.
	Unspecified bool
}

// UnspecifiedPayload returns the payload marker that renders as a NoSpec
// reference.
func UnspecifiedPayload() *Payload {
	return &Payload{Unspecified: true}
}

// InlinePayload wraps a schema that inlines into the message instead of
// landing in components.schemas. Used for primitive payload types.
func InlinePayload(schema *SchemaObject) *Payload {
	return &Payload{Schema: schema}
}

// NamedPayload wraps a model schema that lands in components.schemas under
// name and is referenced from the message.
func NamedPayload(name string, schema *SchemaObject, definitions map[string]*SchemaObject) *Payload {
	return &Payload{SchemaName: name, Schema: schema, Definitions: definitions}
}

// MessageDraft carries everything the builder needs to add one message.
type MessageDraft struct {
	// Event is the wire event name; it becomes the message name field.
	Event string
	// Namespace selects the channel; empty means the root channel "/".
	Namespace string
	// MessageName overrides the components.messages key. Receivers default to
	// the title-cased event name, senders to the event name itself.
	MessageName string
	// Description becomes the message description after whitespace cleanup.
	Description string
	// Payload describes the event payload, Ack the acknowledgement value.
	Payload *Payload
	Ack     *Payload
}

// Builder assembles an AsyncAPI document incrementally. Safe for concurrent
// use; registrations normally happen during startup and rendering afterwards.
type Builder struct {
	mu  sync.Mutex
	doc *Document
}

// NewBuilder creates a builder holding the skeleton document: spec version,
// info with the x-ack caveat, one server entry, the root channel with its
// disconnect handler note, and the NoSpec component schema.
func NewBuilder(opts Options) *Builder {
	opts = opts.withDefaults()

	doc := &Document{
		AsyncAPI: SpecVersion,
		Info: Info{
			Title:       opts.Title,
			Version:     opts.Version,
			Description: opts.Description + descriptionCaveat,
		},
		Servers: map[string]Server{
			opts.ServerName: {
				URL:             opts.ServerURL,
				Protocol:        DefaultProtocol,
				ProtocolVersion: DefaultProtocolVersion,
			},
		},
		Channels: map[string]*ChannelItem{
			"/": {
				Publish:   &Operation{Message: &MessageSet{OneOf: []Ref{}}},
				Subscribe: &Operation{Message: &MessageSet{OneOf: []Ref{}}},
				XHandlers: map[string]string{"disconnect": "disconnect"},
			},
		},
		Components: &Components{
			Messages: map[string]*Message{},
			Schemas: map[string]*SchemaObject{
				NoSpecSchemaName: {Description: "Specification is not provided"},
			},
		},
	}

	return &Builder{doc: doc}
}

// AddReceiver documents a client-to-server event: the message joins the
// channel's publish operation.
func (b *Builder) AddReceiver(draft MessageDraft) error {
	if draft.Event == "" {
		return errspkg.ErrEventNameRequired
	}

	name := draft.MessageName
	if name == "" {
		name = TitleCase(draft.Event)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	msg := &Message{
		Name:        draft.Event,
		Description: normalizeDescription(draft.Description),
		Payload:     b.resolvePayload(draft.Payload),
		XAck:        b.resolvePayload(draft.Ack),
	}
	b.doc.Components.Messages[name] = msg

	ch := b.channel(draft.Namespace)
	ch.Publish.Message.OneOf = append(ch.Publish.Message.OneOf, MessageRef(name))
	return nil
}

// AddSender documents a server-to-client event: the message joins the
// channel's subscribe operation. Senders have no acknowledgement side.
func (b *Builder) AddSender(draft MessageDraft) error {
	if draft.Event == "" {
		return errspkg.ErrEventNameRequired
	}

	name := draft.MessageName
	if name == "" {
		name = draft.Event
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	msg := &Message{
		Name:        draft.Event,
		Description: normalizeDescription(draft.Description),
		Payload:     b.resolvePayload(draft.Payload),
	}
	b.doc.Components.Messages[name] = msg

	ch := b.channel(draft.Namespace)
	ch.Subscribe.Message.OneOf = append(ch.Subscribe.Message.OneOf, MessageRef(name))
	return nil
}

// resolvePayload registers the payload's schemas and returns the node embedded
// into the message. Callers hold b.mu.
func (b *Builder) resolvePayload(p *Payload) *SchemaObject {
	if p == nil {
		return nil
	}
	if p.Unspecified {
		return RefTo(NoSpecSchemaName)
	}
	if p.Schema == nil {
		return nil
	}

	for defName, defSchema := range p.Definitions {
		PrefixRefs(defSchema)
		b.doc.Components.Schemas[defName] = defSchema
	}

	PrefixRefs(p.Schema)
	if p.SchemaName == "" {
		return p.Schema
	}
	b.doc.Components.Schemas[p.SchemaName] = p.Schema
	return RefTo(p.SchemaName)
}

// channel returns the channel for the namespace, creating it on demand.
// Callers hold b.mu.
func (b *Builder) channel(namespace string) *ChannelItem {
	id := namespace
	if id == "" {
		id = "/"
	}
	ch, ok := b.doc.Channels[id]
	if !ok {
		ch = &ChannelItem{
			Publish:   &Operation{Message: &MessageSet{OneOf: []Ref{}}},
			Subscribe: &Operation{Message: &MessageSet{OneOf: []Ref{}}},
		}
		b.doc.Channels[id] = ch
	}
	return ch
}

// Document returns a deep copy of the current document so introspection
// cannot race with later registrations.
func (b *Builder) Document() (*Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.Clone()
}

// YAML renders the current document as YAML.
func (b *Builder) YAML() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.YAML()
}

// JSON renders the current document as indented JSON.
func (b *Builder) JSON() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.JSON()
}

// TitleCase upper-cases the first letter of every word and lower-cases the
// rest, treating any non-letter as a word boundary. "user_signup" becomes
// "User_Signup", matching the default message naming of the document.
func TitleCase(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
			out.WriteRune(r)
			prevLetter = false
		case prevLetter:
			out.WriteRune(unicode.ToLower(r))
		default:
			out.WriteRune(unicode.ToUpper(r))
			prevLetter = true
		}
	}
	return out.String()
}

// normalizeDescription prefixes a single space and strips the common leading
// whitespace so multi-line descriptions do not force YAML escaping.
func normalizeDescription(text string) string {
	if text == "" {
		return ""
	}
	if !strings.HasPrefix(text, " ") {
		text = " " + text
	}
	return dedent(text)
}

// dedent removes the longest common leading whitespace from all non-blank
// lines; lines that are entirely whitespace collapse to empty lines.
func dedent(text string) string {
	lines := strings.Split(text, "\n")

	var prefix string
	havePrefix := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !havePrefix {
			prefix = indent
			havePrefix = true
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if !havePrefix {
		return text
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
