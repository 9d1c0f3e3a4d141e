package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/edgewire/devlink/internal/runtime/jsoncodec"
	loggingpkg "github.com/edgewire/devlink/internal/runtime/logging"
	transportpkg "github.com/edgewire/devlink/transport"
)

// DispatchFunc processes one inbound broker message.
type DispatchFunc func(ctx context.Context, msg *message.Message)

// Hook wraps the dispatch of inbound messages, mirroring middleware on a
// request path. Hooks run in registration order, outermost first.
type Hook func(next DispatchFunc) DispatchFunc

// HookBuilder constructs a hook using the service instance.
type HookBuilder func(*Service) (Hook, error)

// HookRegistration captures how a hook should be registered on a Service.
type HookRegistration struct {
	Name    string
	Hook    Hook
	Builder HookBuilder
}

// DefaultHooks returns the standard hook chain used by the Service
// constructor: panic recovery, tracing, metrics, and debug logging.
func DefaultHooks() []HookRegistration {
	return []HookRegistration{
		RecovererHook(),
		TracerHook(),
		MetricsHook(),
		LogMessagesHook(nil),
	}
}

// RecovererHook converts handler panics into error logs so one broken
// callback cannot kill the message loop.
func RecovererHook() HookRegistration {
	return HookRegistration{
		Name: "recoverer",
		Builder: func(s *Service) (Hook, error) {
			return func(next DispatchFunc) DispatchFunc {
				return func(ctx context.Context, msg *message.Message) {
					defer func() {
						if r := recover(); r != nil {
							s.Logger.Error("Recovered from panic in dispatch",
								fmt.Errorf("panic: %v", r), loggingpkg.LogFields{
									"message_uuid": msg.UUID,
									"topic":        transportpkg.Topic(msg),
								})
						}
					}()
					next(ctx, msg)
				}
			}, nil
		},
	}
}

// TracerHook wraps dispatch in an OpenTelemetry span.
func TracerHook() HookRegistration {
	return HookRegistration{
		Name: "tracer",
		Hook: func(next DispatchFunc) DispatchFunc {
			return func(ctx context.Context, msg *message.Message) {
				tracer := otel.Tracer("devlink-dispatch")
				ctx, span := tracer.Start(ctx, "DispatchMessage", trace.WithAttributes(
					attribute.String("message.uuid", msg.UUID),
					attribute.String("message.topic", transportpkg.Topic(msg)),
				))
				defer span.End()

				next(ctx, msg)
			}
		},
	}
}

// MetricsHook counts inbound messages.
func MetricsHook() HookRegistration {
	return HookRegistration{
		Name: "metrics",
		Builder: func(s *Service) (Hook, error) {
			return func(next DispatchFunc) DispatchFunc {
				return func(ctx context.Context, msg *message.Message) {
					s.metrics.ObserveInbound()
					next(ctx, msg)
				}
			}, nil
		},
	}
}

// LogMessagesHook logs the payload and topic of every handled message.
func LogMessagesHook(logger loggingpkg.ServiceLogger) HookRegistration {
	return HookRegistration{
		Name: "log_messages",
		Builder: func(s *Service) (Hook, error) {
			l := logger
			if l == nil {
				l = s.Logger
			}
			if l == nil {
				return nil, errors.New("log messages hook requires a logger")
			}
			return func(next DispatchFunc) DispatchFunc {
				return func(ctx context.Context, msg *message.Message) {
					fields := loggingpkg.LogFields{
						"message_uuid": msg.UUID,
						"topic":        transportpkg.Topic(msg),
					}
					// Non-JSON payloads are logged by size only to keep
					// binary garbage out of the log stream.
					if jsoncodec.Valid(msg.Payload) {
						fields["payload"] = string(msg.Payload)
					} else {
						fields["payload_bytes"] = len(msg.Payload)
					}
					l.Debug("Processing message", fields)
					next(ctx, msg)
				}
			}, nil
		},
	}
}

// RegisterHook attaches the supplied hook to the dispatch chain. The chain is
// recomposed immediately, so hooks registered any time before Start take
// effect; registering while Start is consuming is not supported.
func (s *Service) RegisterHook(cfg HookRegistration) error {
	var hook Hook
	switch {
	case cfg.Hook != nil:
		hook = cfg.Hook
	case cfg.Builder != nil:
		var err error
		hook, err = cfg.Builder(s)
		if err != nil {
			return err
		}
	default:
		return errors.New("hook registration requires Hook or Builder")
	}

	if hook == nil {
		return nil
	}

	s.hooks = append(s.hooks, hook)
	s.dispatch = s.buildDispatch(s.route)
	return nil
}

// buildDispatch composes the registered hooks around the routing function.
func (s *Service) buildDispatch(route DispatchFunc) DispatchFunc {
	dispatch := route
	for i := len(s.hooks) - 1; i >= 0; i-- {
		dispatch = s.hooks[i](dispatch)
	}
	return dispatch
}
