package transport

// Capabilities describes the features supported by a broker backend. Use this
// to introspect what operations are available at runtime.
type Capabilities struct {
	// SupportsWildcards indicates the broker natively resolves "+" and "#"
	// topic patterns server-side. When false, pattern matching happens in the
	// broker adapter.
	SupportsWildcards bool

	// SupportsOrdering indicates the broker guarantees per-topic delivery order.
	SupportsOrdering bool

	// SupportsAck indicates the broker supports explicit message acknowledgment.
	SupportsAck bool

	// SupportsRetained indicates the broker can replay the last message of a
	// topic to late subscribers.
	SupportsRetained bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64

	// Name is the human-readable name of the broker.
	Name string

	// Version is the broker/driver version.
	Version string
}

// RequiresClientSideFiltering returns true when topic patterns must be matched
// inside the adapter because the broker cannot resolve wildcards itself.
func (c Capabilities) RequiresClientSideFiltering() bool {
	return !c.SupportsWildcards
}

// Predefined capability sets for the built-in brokers.
var (
	// ChannelCapabilities for the in-memory channel broker.
	ChannelCapabilities = Capabilities{
		Name:              "channel",
		SupportsWildcards: false,
		SupportsOrdering:  true,
		SupportsAck:       true,
		SupportsRetained:  false,
	}

	// NATSCapabilities for the NATS Core broker.
	NATSCapabilities = Capabilities{
		Name:              "nats",
		SupportsWildcards: true,
		SupportsOrdering:  false,
		SupportsAck:       false,
		SupportsRetained:  false,
		MaxMessageSize:    1048576, // Default 1MB
	}

	// RabbitMQCapabilities for the RabbitMQ topic-exchange broker.
	RabbitMQCapabilities = Capabilities{
		Name:              "rabbitmq",
		SupportsWildcards: true,
		SupportsOrdering:  true,
		SupportsAck:       true,
		SupportsRetained:  false,
	}
)

// GetCapabilities returns the capabilities for a broker by name. Uses the
// registry to look up capabilities registered by each broker package.
// Returns a zero Capabilities struct if the broker is unknown.
func GetCapabilities(brokerName string) Capabilities {
	return DefaultRegistry.GetCapabilities(brokerName)
}
