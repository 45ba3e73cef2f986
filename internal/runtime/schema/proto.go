package schema

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
)

// InferProtoMessage derives the document payload for a protobuf message from
// its descriptor. Field names follow the protojson wire form.
func InferProtoMessage(md protoreflect.MessageDescriptor) *asyncapi.Payload {
	name := string(md.Name())
	defs := map[string]*asyncapi.SchemaObject{}
	root := protoObjectSchema(md, defs)
	delete(defs, name)
	if len(defs) == 0 {
		defs = nil
	}
	return asyncapi.NamedPayload(name, root, defs)
}

func protoObjectSchema(md protoreflect.MessageDescriptor, defs map[string]*asyncapi.SchemaObject) *asyncapi.SchemaObject {
	obj := &asyncapi.SchemaObject{
		Type:       "object",
		Title:      string(md.Name()),
		Properties: map[string]*asyncapi.SchemaObject{},
	}
	defs[string(md.Name())] = obj

	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		obj.Properties[fd.JSONName()] = protoFieldSchema(fd, defs)
	}
	return obj
}

func protoFieldSchema(fd protoreflect.FieldDescriptor, defs map[string]*asyncapi.SchemaObject) *asyncapi.SchemaObject {
	switch {
	case fd.IsMap():
		return &asyncapi.SchemaObject{
			Type:                 "object",
			AdditionalProperties: protoValueSchema(fd.MapValue(), defs),
		}
	case fd.IsList():
		return &asyncapi.SchemaObject{Type: "array", Items: protoValueSchema(fd, defs)}
	default:
		return protoValueSchema(fd, defs)
	}
}

func protoValueSchema(fd protoreflect.FieldDescriptor, defs map[string]*asyncapi.SchemaObject) *asyncapi.SchemaObject {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return &asyncapi.SchemaObject{Type: "boolean"}
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return &asyncapi.SchemaObject{Type: "integer"}
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return &asyncapi.SchemaObject{Type: "number"}
	case protoreflect.StringKind:
		return &asyncapi.SchemaObject{Type: "string"}
	case protoreflect.BytesKind:
		return &asyncapi.SchemaObject{Type: "string", Format: "byte"}
	case protoreflect.EnumKind:
		values := fd.Enum().Values()
		names := make([]any, 0, values.Len())
		for i := 0; i < values.Len(); i++ {
			names = append(names, string(values.Get(i).Name()))
		}
		return &asyncapi.SchemaObject{Type: "string", Enum: names}
	case protoreflect.MessageKind, protoreflect.GroupKind:
		nested := fd.Message()
		switch nested.FullName() {
		case "google.protobuf.Timestamp":
			return &asyncapi.SchemaObject{Type: "string", Format: "date-time"}
		case "google.protobuf.Duration":
			return &asyncapi.SchemaObject{Type: "string"}
		case "google.protobuf.Struct":
			return &asyncapi.SchemaObject{Type: "object"}
		}
		if _, seen := defs[string(nested.Name())]; !seen {
			protoObjectSchema(nested, defs)
		}
		return &asyncapi.SchemaObject{Ref: "#/definitions/" + string(nested.Name())}
	default:
		return &asyncapi.SchemaObject{}
	}
}
