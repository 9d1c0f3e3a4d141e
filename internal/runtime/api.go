package runtime

import (
	documentpkg "github.com/edgewire/devlink/internal/runtime/document"
)

// PayloadType tells the Service how an API wants inbound payloads delivered.
type PayloadType int

const (
	// PayloadRaw delivers the payload bytes untouched.
	PayloadRaw PayloadType = iota
	// PayloadDocument decodes the payload into a document first.
	PayloadDocument
)

// Binding carries the broker-facing callbacks handed to an API when it is
// attached to a Service. APIs hold the binding for their whole lifetime; a
// zero binding means the API is not attached yet.
type Binding struct {
	// SubscribeTopic asks the broker to subscribe a topic pattern.
	SubscribeTopic func(pattern string) error

	// UnsubscribeTopic asks the broker to drop a topic pattern.
	UnsubscribeTopic func(pattern string) error

	// PublishDocument encodes and publishes a document to a concrete topic.
	// estimatedSize is the encoded size computed by the caller.
	PublishDocument func(topic string, doc *documentpkg.Document, estimatedSize int) error
}

// API is one protocol surface of the device (server-side RPC, attributes,
// telemetry, ...). The Service routes each inbound message to the first
// attached API whose HandlesTopic accepts the topic.
type API interface {
	// PayloadType reports whether the API consumes decoded documents or raw
	// payload bytes.
	PayloadType() PayloadType

	// HandlesTopic reports whether the API is responsible for the topic.
	HandlesTopic(topic string) bool

	// HandleDocument processes one decoded inbound message. Only called when
	// PayloadType returns PayloadDocument.
	HandleDocument(topic string, doc *documentpkg.Document)

	// HandleRaw processes one raw inbound message. Only called when
	// PayloadType returns PayloadRaw.
	HandleRaw(topic string, payload []byte)

	// Resubscribe re-issues the API's broker subscriptions after a reconnect.
	Resubscribe() error

	// Unsubscribe drops the API's registrations and broker subscriptions.
	Unsubscribe() error

	// Bind supplies the broker-facing callbacks. Called by Service.Attach.
	Bind(binding Binding)
}
