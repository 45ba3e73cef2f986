// Package transports imports all built-in transports for auto-registration.
// Import this package to have all transports registered with the default registry.
package transports

import (
	// Import all transports for side-effect registration
	_ "github.com/asyncflow/asyncflow/transport/channel"
	_ "github.com/asyncflow/asyncflow/transport/http"
	_ "github.com/asyncflow/asyncflow/transport/jetstream"
	_ "github.com/asyncflow/asyncflow/transport/kafka"
	_ "github.com/asyncflow/asyncflow/transport/nats"
	_ "github.com/asyncflow/asyncflow/transport/rabbitmq"
)
