// Package devlink is a device-side SDK for server-initiated RPC over pub/sub
// brokers. A remote server publishes RPC requests addressed to the device;
// devlink recognizes them, routes them by method name to a registered
// handler, executes the handler with a bounded response budget, and publishes
// a correlated reply.
//
// Service hosts the broker connection and the message loop. APIs like
// ServerRPC are attached to it and claim topics by prefix; the server-side
// RPC surface subscribes the wildcard request topic, matches inbound method
// names against registered endpoints (prefix comparison, first registered
// wins), and replies on the response topic carrying the request id extracted
// from the inbound topic.
//
// # Brokers
//
// Devlink ships 3 brokers out of the box:
//   - channel: in-memory delivery for testing and local development
//   - nats: NATS Core with topic patterns mapped onto subjects
//   - rabbitmq: RabbitMQ via the amq.topic exchange
//
// Broker packages register themselves on import:
//
//	_ "github.com/edgewire/devlink/transport/nats"
//
// # Response budgets
//
// Responses are validated against a byte budget before publication: either a
// shared ceiling (Config.MaxRPCResponseSize) or per-endpoint budgets declared
// at registration. Oversized responses are suppressed and logged with the
// configured budget so the operator can raise it. A handler that leaves its
// response document empty declines to reply.
//
// # Hooks
//
// The default dispatch chain adds panic recovery, OpenTelemetry tracing,
// Prometheus metrics, and debug logging. Custom hooks can be added via
// ServiceDependencies.Hooks.
package devlink
