package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type fileConfig struct {
	PubSubSystem      string `toml:"pubsub_system"`
	ValidationEnabled bool   `toml:"validation_enabled"`

	DocTitle       string `toml:"doc_title"`
	DocVersion     string `toml:"doc_version"`
	DocDescription string `toml:"doc_description"`
	DocServerName  string `toml:"doc_server_name"`
	DocServerURL   string `toml:"doc_server_url"`

	KafkaBrokers       []string `toml:"kafka_brokers"`
	KafkaClientID      string   `toml:"kafka_client_id"`
	KafkaConsumerGroup string   `toml:"kafka_consumer_group"`

	RabbitMQURL string `toml:"rabbitmq_url"`

	NATSURL            string `toml:"nats_url"`
	NATSConnectionName string `toml:"nats_connection_name"`
	NATSConnectTimeout string `toml:"nats_connect_timeout"`
	NATSMaxReconnects  int    `toml:"nats_max_reconnects"`
	NATSReconnectWait  string `toml:"nats_reconnect_wait"`

	HTTPServerAddress string `toml:"http_server_address"`
	HTTPPublisherURL  string `toml:"http_publisher_url"`

	MetricsEnabled bool `toml:"metrics_enabled"`
	MetricsPort    int  `toml:"metrics_port"`

	DocsEnabled            bool     `toml:"docs_enabled"`
	DocsPort               int      `toml:"docs_port"`
	DocsCORSAllowedOrigins []string `toml:"docs_cors_allowed_origins"`
}

// LoadConfig reads a TOML configuration file. Keys that are absent from the
// file keep the zero values of Config, so defaults stay with the components
// that apply them.
func LoadConfig(path string) (*Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg := &Config{
		PubSubSystem:       strings.TrimSpace(raw.PubSubSystem),
		ValidationEnabled:  raw.ValidationEnabled,
		DocTitle:           strings.TrimSpace(raw.DocTitle),
		DocVersion:         strings.TrimSpace(raw.DocVersion),
		DocDescription:     raw.DocDescription,
		DocServerName:      strings.TrimSpace(raw.DocServerName),
		DocServerURL:       strings.TrimSpace(raw.DocServerURL),
		KafkaBrokers:       trimAll(raw.KafkaBrokers),
		KafkaClientID:      strings.TrimSpace(raw.KafkaClientID),
		KafkaConsumerGroup: strings.TrimSpace(raw.KafkaConsumerGroup),
		RabbitMQURL:        strings.TrimSpace(raw.RabbitMQURL),
		NATSURL:            strings.TrimSpace(raw.NATSURL),
		NATSConnectionName: strings.TrimSpace(raw.NATSConnectionName),
		NATSMaxReconnects:  raw.NATSMaxReconnects,
		HTTPServerAddress:  strings.TrimSpace(raw.HTTPServerAddress),
		HTTPPublisherURL:   strings.TrimSpace(raw.HTTPPublisherURL),
		MetricsEnabled:     raw.MetricsEnabled,
		MetricsPort:        raw.MetricsPort,
		DocsEnabled:        raw.DocsEnabled,
		DocsPort:           raw.DocsPort,
	}
	cfg.DocsCORSAllowedOrigins = trimAll(raw.DocsCORSAllowedOrigins)

	if meta.IsDefined("nats_connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.NATSConnectTimeout))
		if err != nil {
			return nil, fmt.Errorf("parse nats_connect_timeout: %w", err)
		}
		cfg.NATSConnectTimeout = d
	}
	if meta.IsDefined("nats_reconnect_wait") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.NATSReconnectWait))
		if err != nil {
			return nil, fmt.Errorf("parse nats_reconnect_wait: %w", err)
		}
		cfg.NATSReconnectWait = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
