// Package asyncflow is a small layer on top of Watermill that attaches
// AsyncAPI 2.5.0 documentation and runtime payload validation to event-driven
// services. It reads the target transport (Kafka, RabbitMQ, NATS, NATS
// JetStream, HTTP, or Go Channels) from Config, bootstraps the Watermill
// router, and registers the default middleware chain for correlation IDs,
// logging, tracing, Prometheus metrics, and panic recovery.
//
// Service hosts the router and exposes typed helpers: RegisterEventHandler
// binds an event name to a handler together with goskema schemas for the
// inbound payload and the acknowledgement the handler returns, while
// RegisterEmitter declares and documents outbound events. Every registration
// feeds the AsyncAPI document that Service.AsyncAPIYAML and
// Service.AsyncAPIJSON render, so the documentation can never drift from the
// handlers actually running. A minimal setup therefore involves filling
// Config, creating a Service, registering handlers and emitters, and calling
// Start; see README.md for a copy/paste quick start snippet.
//
// # Validation
//
// When Config.ValidationEnabled is set, inbound payloads are checked against
// the registered request schema before the handler runs, and handler return
// values are checked against the acknowledgement schema before they are sent
// back. Failures surface as RequestValidationError, ResponseValidationError,
// or EmitValidationError; Service.OnValidationError installs a callback whose
// return value becomes the acknowledgement for the failed event.
//
// # Transports
//
// Asyncflow supports 6 message transports out of the box:
//   - channel: In-memory Go channels for testing
//   - kafka: High-throughput streaming with consumer groups
//   - rabbitmq: AMQP-based durable queues
//   - nats: High-performance messaging
//   - nats-jetstream: Durable NATS streams with explicit acknowledgement
//   - http: Request/response messaging
//
// # Middleware
//
// The default middleware chain includes correlation ID injection, structured
// logging, OpenTelemetry tracing, Prometheus metrics, and panic recovery.
// Custom middleware can be added via ServiceDependencies.Middlewares.
//
// # Event Hooks
//
// EventHooksMiddleware provides OnEventStart, OnEventDone, and OnEventError
// callbacks for custom logging, metrics collection, and alerting around
// handler execution.
//
// When you need more control, ServiceDependencies exposes well-scoped hooks:
// bring your own ProtoValidator, middleware registrations, error classifier,
// or even an entire TransportFactory to plug in custom brokers. The README
// organises these knobs by topic so you can dive into the exact setting you
// want to adjust without rereading the whole guide.
package asyncflow
