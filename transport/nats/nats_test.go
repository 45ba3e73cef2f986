package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asyncflow/asyncflow/transport"
)

func TestRegistered(t *testing.T) {
	// init() registers the transport on import
	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "nats", caps.Name)
	assert.True(t, caps.SupportsTracing)
	assert.False(t, caps.SupportsAck)
}

func TestCapabilities(t *testing.T) {
	caps := Capabilities()
	assert.Equal(t, transport.NATSCapabilities, caps)
	assert.Equal(t, "nats", caps.Name)
}

func TestTransportName(t *testing.T) {
	assert.Equal(t, "nats", TransportName)
}

func TestConnectionOptions(t *testing.T) {
	t.Run("empty config produces no options", func(t *testing.T) {
		opts := ConnectionOptions(&mockConfig{})
		assert.Empty(t, opts)
	})

	t.Run("set values produce one option each", func(t *testing.T) {
		cfg := &mockConfig{
			natsURL:        "nats://localhost:4222",
			connectionName: "my-service",
			connectTimeout: 5 * time.Second,
			maxReconnects:  10,
			reconnectWait:  2 * time.Second,
		}
		opts := ConnectionOptions(cfg)
		assert.Len(t, opts, 4)
	})
}

func TestBuild(t *testing.T) {
	t.Run("creates transport with mocked factories", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		originalSubFactory := SubscriberFactory
		defer func() {
			PublisherFactory = originalPubFactory
			SubscriberFactory = originalSubFactory
		}()

		mockPub := &mockPublisher{}
		mockSub := &mockSubscriber{}

		PublisherFactory = func(config nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			assert.Equal(t, "nats://localhost:4222", config.URL)
			assert.Len(t, config.NatsOptions, 1)
			return mockPub, nil
		}
		SubscriberFactory = func(config nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			assert.Equal(t, "nats://localhost:4222", config.URL)
			assert.Len(t, config.NatsOptions, 1)
			return mockSub, nil
		}

		cfg := &mockConfig{
			natsURL:        "nats://localhost:4222",
			connectionName: "my-service",
		}
		tr, err := Build(context.Background(), cfg, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Equal(t, mockPub, tr.Publisher)
		assert.Equal(t, mockSub, tr.Subscriber)
	})

	t.Run("returns error when publisher factory fails", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		defer func() { PublisherFactory = originalPubFactory }()

		PublisherFactory = func(config nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("publisher error")
		}

		cfg := &mockConfig{natsURL: "nats://localhost:4222"}
		_, err := Build(context.Background(), cfg, watermill.NopLogger{})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "publisher error")
	})

	t.Run("returns error when subscriber factory fails", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		originalSubFactory := SubscriberFactory
		defer func() {
			PublisherFactory = originalPubFactory
			SubscriberFactory = originalSubFactory
		}()

		PublisherFactory = func(config nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return &mockPublisher{}, nil
		}
		SubscriberFactory = func(config nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("subscriber error")
		}

		cfg := &mockConfig{natsURL: "nats://localhost:4222"}
		_, err := Build(context.Background(), cfg, watermill.NopLogger{})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "subscriber error")
	})
}

type mockConfig struct {
	natsURL        string
	connectionName string
	connectTimeout time.Duration
	maxReconnects  int
	reconnectWait  time.Duration
}

func (m *mockConfig) GetPubSubSystem() string              { return "nats" }
func (m *mockConfig) GetKafkaBrokers() []string            { return nil }
func (m *mockConfig) GetKafkaConsumerGroup() string        { return "" }
func (m *mockConfig) GetRabbitMQURL() string               { return "" }
func (m *mockConfig) GetNATSURL() string                   { return m.natsURL }
func (m *mockConfig) GetNATSConnectionName() string        { return m.connectionName }
func (m *mockConfig) GetNATSConnectTimeout() time.Duration { return m.connectTimeout }
func (m *mockConfig) GetNATSMaxReconnects() int            { return m.maxReconnects }
func (m *mockConfig) GetNATSReconnectWait() time.Duration  { return m.reconnectWait }
func (m *mockConfig) GetHTTPServerAddress() string         { return "" }
func (m *mockConfig) GetHTTPPublisherURL() string          { return "" }

type mockPublisher struct{}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                                             { return nil }

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }
