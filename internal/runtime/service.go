package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"google.golang.org/protobuf/proto"

	"github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
	configpkg "github.com/asyncflow/asyncflow/internal/runtime/config"
	loggingpkg "github.com/asyncflow/asyncflow/internal/runtime/logging"
	transportpkg "github.com/asyncflow/asyncflow/internal/runtime/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ProtoValidator validates unmarshalled proto payloads. Implementations
// typically forward to protovalidate or a custom struct validator.
type ProtoValidator interface {
	Validate(value any) error
}

// ServiceDependencies holds the optional collaborators that the Service can use.
// Leave fields nil to skip the related middleware.
type ServiceDependencies struct {
	Validator                 ProtoValidator
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory
	ErrorClassifier           ErrorClassifier
}

// Service wires a Watermill router, publisher, subscriber, and middleware chain,
// and maintains the AsyncAPI document describing every registered event.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	validator ProtoValidator

	doc *asyncapi.Builder

	events   []*EventInfo
	eventsMu sync.RWMutex

	emitters   map[string]*emitterRecord
	emittersMu sync.RWMutex

	errorHandler errorHandlerState

	protoRegistry   map[string]func() proto.Message
	protoRegistryMu sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex

	errorClassifier ErrorClassifier
	resourceTracker *resourceTracker
}

// NewService constructs a Service for the supplied configuration. Register handlers
// and emitters on the returned Service before calling Start.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating event service",
		loggingpkg.LogFields{
			"pubsub_system": conf.PubSubSystem,
			"config":        conf,
		})

	s := &Service{
		Conf:      conf,
		Logger:    log,
		validator: deps.Validator,
		doc: asyncapi.NewBuilder(asyncapi.Options{
			Title:       conf.DocTitle,
			Version:     conf.DocVersion,
			Description: conf.DocDescription,
			ServerName:  conf.DocServerName,
			ServerURL:   conf.DocServerURL,
		}),
		emitters:        make(map[string]*emitterRecord),
		protoRegistry:   make(map[string]func() proto.Message),
		resourceTracker: newResourceTracker(),
	}

	if deps.ErrorClassifier != nil {
		s.errorClassifier = deps.ErrorClassifier
	} else {
		s.errorClassifier = defaultErrorClassifier
	}

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		panic(err)
	}

	s.publisher = transport.Publisher
	s.subscriber = transport.Subscriber

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		panic(err)
	}

	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	s.registerConfiguredMiddlewares(deps)

	return s
}

// Start runs the underlying Watermill router until the provided context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.StartDocsServer()
	s.startHTTPServers()
	return routerRun(s.router, ctx)
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			panic(fmt.Sprintf("failed to register middleware %s: %v", name, err))
		}
	}
}

// Events returns a snapshot of the registered handlers and their statistics.
func (s *Service) Events() []*EventInfo {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()

	out := make([]*EventInfo, len(s.events))
	copy(out, s.events)
	return out
}

// AsyncAPIDoc returns a deep copy of the generated AsyncAPI document.
func (s *Service) AsyncAPIDoc() (*asyncapi.Document, error) {
	return s.docBuilder().Document()
}

// AsyncAPIYAML renders the generated AsyncAPI document as YAML.
func (s *Service) AsyncAPIYAML() ([]byte, error) {
	return s.docBuilder().YAML()
}

// AsyncAPIJSON renders the generated AsyncAPI document as indented JSON.
func (s *Service) AsyncAPIJSON() ([]byte, error) {
	return s.docBuilder().JSON()
}

func (s *Service) docBuilder() *asyncapi.Builder {
	if s.doc == nil {
		s.doc = asyncapi.NewBuilder(asyncapi.Options{})
	}
	return s.doc
}

func (s *Service) validationEnabled() bool {
	return s.Conf != nil && s.Conf.ValidationEnabled
}

func (s *Service) getErrorClassifier() ErrorClassifier {
	if s.errorClassifier == nil {
		return defaultErrorClassifier
	}
	return s.errorClassifier
}

func (s *Service) getResourceTracker() *resourceTracker {
	if s.resourceTracker == nil {
		s.resourceTracker = newResourceTracker()
	}
	return s.resourceTracker
}

func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
