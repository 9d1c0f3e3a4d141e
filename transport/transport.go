// Package transport defines the broker interfaces and types for devlink.
// Each broker implementation (channel, nats, rabbitmq) lives in its own
// sub-package and registers itself with the broker registry.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TopicMetadataKey carries the concrete topic a message was published to or
// received from. Brokers set it on every inbound message; the dispatcher needs
// it to extract the request id from the topic suffix.
const TopicMetadataKey = "devlink_topic"

// Broker is the transport collaborator the dispatcher core talks to. Topic
// patterns use MQTT-style wildcards: "+" matches one level, a trailing "#"
// matches the rest.
type Broker interface {
	// Subscribe registers interest in a topic pattern. Subscribing to a
	// pattern that is already active must not duplicate deliveries.
	Subscribe(ctx context.Context, pattern string) error

	// Unsubscribe removes interest in a previously subscribed pattern.
	Unsubscribe(pattern string) error

	// Publish sends messages to a concrete topic.
	Publish(topic string, messages ...*message.Message) error

	// Inbound delivers messages for all subscribed patterns. The concrete
	// topic is available via Topic. No deliveries happen after Close; brokers
	// may additionally close the channel.
	Inbound() <-chan *message.Message

	Close() error
}

// Builder is the function signature for creating a broker from config.
// Each broker package provides a Builder that can be registered.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Broker, error)

// Config provides the configuration values needed by brokers. The interface
// lets broker packages access only the keys they need without depending on
// the full config package.
type Config interface {
	// GetBroker returns the broker type name.
	GetBroker() string

	// NATS
	GetNATSURL() string

	// RabbitMQ
	GetRabbitMQURL() string
}

// CapabilitiesProvider is implemented by brokers that can report their
// capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}

// Topic returns the concrete topic recorded on msg, or "" when absent.
func Topic(msg *message.Message) string {
	if msg == nil {
		return ""
	}
	return msg.Metadata.Get(TopicMetadataKey)
}

// SetTopic records the concrete topic on msg.
func SetTopic(msg *message.Message, topic string) {
	if msg == nil {
		return
	}
	msg.Metadata.Set(TopicMetadataKey, topic)
}
