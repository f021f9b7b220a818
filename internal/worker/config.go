// Package worker relays live samples from a platform adapter to Pub/Sub so
// API instances can observe them through observation.PubSubSource.
package worker

import (
	"time"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// RelayConfig holds configuration for a Relay.
type RelayConfig struct {
	// DataTypes are the data types to relay.
	// Default: heart rate and steps
	DataTypes []healthdata.DataType

	// TopicPrefix names the topic of each data type as
	// "<prefix>-<data_type>".
	// Default: "healthbridge-live"
	TopicPrefix string

	// PublishTimeout bounds each publish, including the wait for the
	// server acknowledgement.
	// Default: 10 seconds
	PublishTimeout time.Duration
}

// DefaultRelayConfig returns the default relay configuration.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		DataTypes:      []healthdata.DataType{healthdata.HeartRate, healthdata.Steps},
		TopicPrefix:    "healthbridge-live",
		PublishTimeout: 10 * time.Second,
	}
}

func (c RelayConfig) withDefaults() RelayConfig {
	def := DefaultRelayConfig()
	if len(c.DataTypes) == 0 {
		c.DataTypes = def.DataTypes
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = def.TopicPrefix
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = def.PublishTimeout
	}
	return c
}

// TopicName returns the topic carrying dataType.
func (c RelayConfig) TopicName(dataType healthdata.DataType) string {
	return c.TopicPrefix + "-" + string(dataType)
}
