/*
Package runtime provides the device-side dispatch infrastructure for devlink.

# Architecture Overview

The runtime package implements a single-threaded message loop over a pub/sub
broker. A Service owns the broker connection and a set of attached API
implementations; each inbound message is routed to the first API that claims
its topic, wrapped in a hook chain for panic recovery, tracing, metrics, and
logging.

# Package Structure

## Core Service (service.go)

The Service struct is the central orchestrator that wires together:
  - Broker connection (transport package)
  - Attached API implementations
  - Dispatch hook chain
  - HTTP server for Prometheus metrics

## Server-side RPC (serverrpc.go, registry.go, topics.go)

ServerRPC is the dispatcher for server-initiated RPC requests:
  - registry.go: the ordered endpoint store, fixed-capacity or growable
  - topics.go: request-id extraction and response-topic formatting
  - serverrpc.go: method matching, response budgeting, and publication

Method matching is a prefix scan in registration order with first-match-wins
semantics. Responses are validated against a byte budget (a shared ceiling or
per-endpoint budgets) before they are published.

## Hooks (hooks.go)

The hook system provides composable dispatch stages:
  - Recoverer: panic recovery
  - Tracer: OpenTelemetry spans per dispatch
  - Metrics: Prometheus counters
  - LogMessages: debug logging of message payloads

# Sub-packages

  - config/: service configuration with env loading and validation
  - document/: decoded payload documents and response budgeting
  - errors/: sentinel errors
  - ids/: ULID generation for message IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: logger interface and adapters

# Usage Example

	cfg := &devlink.Config{
		Broker:              "nats",
		NATSURL:             "nats://localhost:4222",
		MaxRPCSubscriptions: 8,
		MaxRPCResponseSize:  512,
	}

	svc := devlink.NewService(cfg, logger, ctx, devlink.ServiceDependencies{})

	rpc := devlink.NewServerRPC(cfg, logger)
	rpc.Subscribe(devlink.RPCEndpoint{
		Method: "getTemperature",
		Handler: func(params devlink.Value, response *devlink.Document) {
			response.Set("value", 21.5)
		},
	})
	svc.Attach(rpc)

	svc.Start(ctx)
*/
package runtime
