/*
Package runtime provides the core event processing infrastructure for asyncflow.

# Architecture Overview

The runtime package implements a message-driven architecture built on top of
Watermill. Event handlers declare the payload they consume and the
acknowledgement they return; the runtime validates payloads against the
declared schemas and records every registration in an AsyncAPI 2.5.0 document.

# Package Structure

The runtime package is organized into the following components:

## Core Service (service.go)

The Service struct is the central orchestrator that wires together:
  - Message router (Watermill)
  - Publisher and subscriber connections
  - Middleware chain
  - HTTP servers for metrics and the generated documentation
  - Proto message registry for acknowledgement prototypes
  - The AsyncAPI document builder fed by every registration

## Handler Registration (registration*.go)

Handler registration files provide typed wrappers for message handlers:
  - registration.go: Raw Watermill handlers and base registration logic
  - registration_event.go: Schema-checked event handlers for JSON payloads
  - registration_proto.go: Typed Protocol Buffer event handlers

## Outbound Events (emitters.go)

Emitters document and validate server-initiated events. Registering an
emitter adds the event to the generated document; Emit checks the payload
against the declared schema before publishing when validation is enabled.

## Validation Barrier (validation.go)

Inbound payloads that fail their request schema never reach the handler.
The barrier absorbs the failure, reports it to the per-event statistics,
and builds an error acknowledgement when an OnValidationError handler is
installed.

## Middleware (middleware.go)

The middleware system provides composable message processing stages:
  - CorrelationID: Ensures message traceability
  - LogMessages: Debug logging of message payloads
  - Tracer: OpenTelemetry distributed tracing
  - Metrics: Prometheus metrics collection
  - Recoverer: Panic recovery

## Lifecycle Hooks (hooks.go)

EventHooks observe delivery start, completion, and failure. Pre-built
logging, metrics, and alerting hooks cover the common cases.

## Stats & Monitoring (models.go, resources.go)

Extended metrics collection for handler performance:
  - Latency percentiles (p50, p95, p99)
  - Throughput tracking
  - Error categorization
  - Resource usage sampling
  - Backlog estimation

## Publishing (publisher.go)

Utilities for emitting proto-based events with proper metadata.

## Docs Server (docserver.go)

HTTP endpoints serving the AsyncAPI document as YAML or JSON and the
event registry with live statistics.

# Sub-packages

  - asyncapi/: AsyncAPI 2.5.0 document model, builder, and rendering
  - config/: Service configuration with TOML loading and validation
  - errors/: Sentinel errors
  - handlers/: Event context types and typed handler building
  - ids/: ULID generation for message IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - metadata/: Message metadata utilities
  - schema/: Payload schema declaration, inference, and validation errors
  - transport/: Pub/sub transport factory (Kafka, RabbitMQ, NATS, etc.)

# Usage Example

	cfg := &asyncflow.Config{
		PubSubSystem:      "nats",
		NATSURL:           "nats://localhost:4222",
		ValidationEnabled: true,
		DocsEnabled:       true,
	}

	svc := asyncflow.NewService(cfg, logger, ctx, asyncflow.ServiceDependencies{})

	asyncflow.RegisterEventHandler(svc, asyncflow.EventHandlerRegistration[SignUpRequest, SignUpAck]{
		Event:   "user_sign_up",
		Handler: handleSignUp,
	})

	svc.Start(ctx)
*/
package runtime
