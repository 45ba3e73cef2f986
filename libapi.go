package asyncflow

import (
	runtimepkg "github.com/asyncflow/asyncflow/internal/runtime"
	asyncapipkg "github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
	configpkg "github.com/asyncflow/asyncflow/internal/runtime/config"
	errspkg "github.com/asyncflow/asyncflow/internal/runtime/errors"
	handlerpkg "github.com/asyncflow/asyncflow/internal/runtime/handlers"
	idspkg "github.com/asyncflow/asyncflow/internal/runtime/ids"
	jsoncodec "github.com/asyncflow/asyncflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/asyncflow/asyncflow/internal/runtime/logging"
	metadatapkg "github.com/asyncflow/asyncflow/internal/runtime/metadata"
	schemapkg "github.com/asyncflow/asyncflow/internal/runtime/schema"
	runtimetransport "github.com/asyncflow/asyncflow/internal/runtime/transport"
	newtransport "github.com/asyncflow/asyncflow/transport"
	"google.golang.org/protobuf/proto"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	ProtoValidator      = runtimepkg.ProtoValidator
	Transport           = runtimetransport.Transport
	TransportFactory    = runtimetransport.Factory

	MessageHandlerRegistration = runtimepkg.MessageHandlerRegistration
	MessageContextBase         = handlerpkg.MessageContextBase

	// Schema-checked event handlers
	EventHandlerRegistration[T any, A any] = handlerpkg.EventHandlerRegistration[T, A]
	EventContext[T any]                    = handlerpkg.EventContext[T]
	EventHandler[T any, A any]             = handlerpkg.EventHandler[T, A]

	// Protobuf event handlers
	ProtoEventHandlerRegistration[T proto.Message, A proto.Message] = handlerpkg.ProtoEventHandlerRegistration[T, A]
	ProtoEventContext[T proto.Message]                              = handlerpkg.ProtoEventContext[T]
	ProtoEventHandler[T proto.Message, A proto.Message]             = handlerpkg.ProtoEventHandler[T, A]

	// Documented outbound events
	EmitterRegistration[T any] = runtimepkg.EmitterRegistration[T]
	Emitter[T any]             = runtimepkg.Emitter[T]

	ValidationErrorHandler = runtimepkg.ValidationErrorHandler

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration

	Producer = runtimepkg.Producer

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Event statistics and health reporting
	EventInfo         = runtimepkg.EventInfo
	EventStats        = runtimepkg.EventStats
	LatencyMetrics    = runtimepkg.LatencyMetrics
	ThroughputMetrics = runtimepkg.ThroughputMetrics
	ErrorBreakdown    = runtimepkg.ErrorBreakdown
	ResourceUsage     = runtimepkg.ResourceUsage
	BacklogMetrics    = runtimepkg.BacklogMetrics
	DependencyHealth  = runtimepkg.DependencyHealth

	// Error classification
	ErrorClassifier = runtimepkg.ErrorClassifier
	ErrorCategory   = runtimepkg.ErrorCategory

	// Event lifecycle hooks
	HookContext = runtimepkg.HookContext
	EventHooks  = runtimepkg.EventHooks

	// Payload markers for handlers that consume nothing or pass bytes through
	NoPayload  = schemapkg.NoPayload
	RawPayload = schemapkg.RawPayload

	// Validation failure types, exposed so callers can errors.As against them
	RequestValidationError  = schemapkg.RequestValidationError
	ResponseValidationError = schemapkg.ResponseValidationError
	EmitValidationError     = schemapkg.EmitValidationError

	// AsyncAPI document model
	Document     = asyncapipkg.Document
	Info         = asyncapipkg.Info
	Server       = asyncapipkg.Server
	ChannelItem  = asyncapipkg.ChannelItem
	Operation    = asyncapipkg.Operation
	MessageSet   = asyncapipkg.MessageSet
	Ref          = asyncapipkg.Ref
	Message      = asyncapipkg.Message
	Components   = asyncapipkg.Components
	SchemaObject = asyncapipkg.SchemaObject

	// Transport capabilities
	Capabilities = newtransport.Capabilities

	// Modular transport types
	TransportBuilder  = newtransport.Builder
	TransportConfig   = newtransport.Config
	TransportRegistry = newtransport.Registry
)

var (
	NewService     = runtimepkg.NewService
	LoadConfig     = configpkg.LoadConfig
	ValidateConfig = configpkg.ValidateConfig

	RegisterMessageHandler = runtimepkg.RegisterMessageHandler

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	// Event lifecycle hooks
	EventHooksMiddleware = runtimepkg.EventHooksMiddleware
	LoggingHooks         = runtimepkg.LoggingHooks
	MetricsHooks         = runtimepkg.MetricsHooks
	AlertingHooks        = runtimepkg.AlertingHooks

	// Transport capabilities
	GetCapabilities = newtransport.GetCapabilities

	// Modular transport registry.
	// Use RegisterTransport and BuildTransport to work with the modular transport packages.
	// Import individual transports via: _ "github.com/asyncflow/asyncflow/transport/kafka"
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build
	DefaultTransportFactory  = runtimetransport.DefaultFactory

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrServiceRequired             = errspkg.ErrServiceRequired
	ErrHandlerRequired             = errspkg.ErrHandlerRequired
	ErrEventNameRequired           = errspkg.ErrEventNameRequired
	ErrHandlerNameRequired         = errspkg.ErrHandlerNameRequired
	ErrConsumeMessageTypeRequired  = errspkg.ErrConsumeMessageTypeRequired
	ErrConsumeMessagePointerNeeded = errspkg.ErrConsumeMessagePointerNeeded
	ErrPublisherRequired           = errspkg.ErrPublisherRequired
	ErrTopicRequired               = errspkg.ErrTopicRequired
	ErrEventPayloadRequired        = errspkg.ErrEventPayloadRequired
	ErrEmitterConflict             = errspkg.ErrEmitterConflict

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewWatermillAdapter       = loggingpkg.NewWatermillAdapter

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID

	// NewEventID generates a unique event ID using ULID.
	NewEventID = idspkg.CreateULID
)

// Metadata keys - use these constants for standard metadata fields.
const (
	MetadataKeyCorrelationID = handlerpkg.MetadataKeyCorrelationID
	MetadataKeyEvent         = handlerpkg.MetadataKeyEvent
	MetadataKeyNamespace     = handlerpkg.MetadataKeyNamespace
	MetadataKeyEventSchema   = handlerpkg.MetadataKeyEventSchema
	MetadataKeyAckFor        = handlerpkg.MetadataKeyAckFor
	MetadataKeyTraceID       = handlerpkg.MetadataKeyTraceID
	MetadataKeySpanID        = handlerpkg.MetadataKeySpanID
	MetadataKeyQueueDepth    = handlerpkg.MetadataKeyQueueDepth
	MetadataKeyEnqueuedAt    = handlerpkg.MetadataKeyEnqueuedAt
)

// SpecVersion is the AsyncAPI version generated documents declare.
const SpecVersion = asyncapipkg.SpecVersion

// Error category constants for ErrorClassifier.
const (
	ErrorCategoryNone               = runtimepkg.ErrorCategoryNone
	ErrorCategoryRequestValidation  = runtimepkg.ErrorCategoryRequestValidation
	ErrorCategoryResponseValidation = runtimepkg.ErrorCategoryResponseValidation
	ErrorCategoryEmitValidation     = runtimepkg.ErrorCategoryEmitValidation
	ErrorCategoryDownstream         = runtimepkg.ErrorCategoryDownstream
	ErrorCategoryOther              = runtimepkg.ErrorCategoryOther
)

func RegisterEventHandler[T any, A any](svc *Service, cfg EventHandlerRegistration[T, A]) error {
	return runtimepkg.RegisterEventHandler(svc, cfg)
}

func RegisterProtoEventHandler[T proto.Message, A proto.Message](svc *Service, cfg ProtoEventHandlerRegistration[T, A]) error {
	return runtimepkg.RegisterProtoEventHandler(svc, cfg)
}

func RegisterEmitter[T any](svc *Service, cfg EmitterRegistration[T]) (*Emitter[T], error) {
	return runtimepkg.RegisterEmitter(svc, cfg)
}

func NewProtoMessage[T proto.Message]() (T, error) {
	return runtimepkg.NewProtoMessage[T]()
}

func MustProtoMessage[T proto.Message]() T {
	return runtimepkg.MustProtoMessage[T]()
}
