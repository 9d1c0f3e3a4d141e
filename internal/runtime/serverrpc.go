package runtime

import (
	"strings"

	configpkg "github.com/edgewire/devlink/internal/runtime/config"
	documentpkg "github.com/edgewire/devlink/internal/runtime/document"
	errspkg "github.com/edgewire/devlink/internal/runtime/errors"
	loggingpkg "github.com/edgewire/devlink/internal/runtime/logging"
)

// RPCHandler is an application callback bound to a method name. It receives
// the request parameters (nil when the request carried none) and a mutable
// response document. Leaving the response empty is the documented way to
// decline replying.
type RPCHandler func(params documentpkg.Value, response *documentpkg.Document)

// RPCEndpoint binds one method name to a handler. Immutable once registered.
type RPCEndpoint struct {
	// Method is the registered name. The endpoint matches any inbound method
	// name it is a prefix of, so "setValue" also matches "setValues"; register
	// names unique enough not to prefix-collide when exact matching matters.
	Method string

	// ResponseBudget caps the encoded response size in bytes. Only consulted
	// when no shared ceiling is configured; zero means unlimited.
	ResponseBudget int

	// Handler is invoked for matching requests.
	Handler RPCHandler
}

// ServerRPC dispatches server-initiated RPC requests to registered endpoints
// and publishes the correlated responses. Dispatch is single-threaded: the
// Service delivers one message at a time, and registration calls are expected
// from that same goroutine (or before Start).
type ServerRPC struct {
	log     loggingpkg.ServiceLogger
	metrics *Metrics

	// sharedBudget > 0 applies one ceiling to every response; zero switches
	// to the per-endpoint budgets.
	sharedBudget int

	endpoints endpointStore
	binding   Binding
}

// NewServerRPC builds the server-side RPC dispatcher from the service config.
// MaxRPCSubscriptions selects the bounded registry; MaxRPCResponseSize selects
// the shared response ceiling.
func NewServerRPC(conf *configpkg.Config, log loggingpkg.ServiceLogger) *ServerRPC {
	if log == nil {
		log = loggingpkg.Nop()
	}

	maxSubscriptions := 0
	sharedBudget := 0
	if conf != nil {
		maxSubscriptions = conf.MaxRPCSubscriptions
		sharedBudget = conf.MaxRPCResponseSize
	}

	return &ServerRPC{
		log:          log.With(loggingpkg.LogFields{"api": "server_rpc"}),
		sharedBudget: sharedBudget,
		endpoints:    newEndpointStore(maxSubscriptions),
	}
}

// SetMetrics wires the dispatch counters. Called by Service.Attach.
func (s *ServerRPC) SetMetrics(m *Metrics) { s.metrics = m }

// Subscribe registers one endpoint. It can be called before the device is
// connected: the broker subscription is requested opportunistically here and
// repeated by Resubscribe once a connection exists.
func (s *ServerRPC) Subscribe(endpoint RPCEndpoint) error {
	return s.SubscribeAll([]RPCEndpoint{endpoint})
}

// SubscribeAll registers a batch of endpoints atomically: either every
// endpoint is appended or the registry is left untouched.
func (s *ServerRPC) SubscribeAll(endpoints []RPCEndpoint) error {
	for _, endpoint := range endpoints {
		if endpoint.Handler == nil {
			return errspkg.ErrHandlerRequired
		}
		if endpoint.Method == "" {
			return errspkg.ErrMethodRequired
		}
	}

	if err := s.endpoints.insert(endpoints...); err != nil {
		s.log.Error("Too many server-side RPC subscriptions", err, loggingpkg.LogFields{
			"registered": s.endpoints.size(),
			"requested":  len(endpoints),
		})
		return err
	}

	// Requested eagerly but allowed to fail: before a connection exists the
	// broker rejects subscriptions, and Resubscribe repeats them on connect.
	if s.binding.SubscribeTopic != nil {
		_ = s.binding.SubscribeTopic(RPCSubscribeTopic)
	}

	return nil
}

// Unsubscribe clears every registered endpoint and drops the broker
// subscription. The registry is cleared even when the broker call fails.
func (s *ServerRPC) Unsubscribe() error {
	s.endpoints.clear()
	if s.binding.UnsubscribeTopic == nil {
		return errspkg.ErrNotBound
	}
	return s.binding.UnsubscribeTopic(RPCSubscribeTopic)
}

// Resubscribe re-issues the broker subscription after a reconnect. It only
// subscribes when at least one endpoint is registered. It does not retry;
// the caller owns the retry policy.
func (s *ServerRPC) Resubscribe() error {
	if s.endpoints.size() == 0 {
		return nil
	}
	if s.binding.SubscribeTopic == nil {
		return errspkg.ErrNotBound
	}
	if err := s.binding.SubscribeTopic(RPCSubscribeTopic); err != nil {
		s.log.Error("Failed to subscribe RPC request topic", err, loggingpkg.LogFields{
			"topic": RPCSubscribeTopic,
		})
		return err
	}
	return nil
}

// PayloadType reports that this API consumes decoded documents.
func (s *ServerRPC) PayloadType() PayloadType { return PayloadDocument }

// HandlesTopic accepts every topic under the RPC request prefix.
func (s *ServerRPC) HandlesTopic(topic string) bool {
	return strings.HasPrefix(topic, RPCRequestTopicPrefix)
}

// HandleRaw is part of the API interface; server-side RPC only consumes
// decoded documents.
func (s *ServerRPC) HandleRaw(topic string, payload []byte) {}

// Bind supplies the broker-facing callbacks.
func (s *ServerRPC) Bind(binding Binding) { s.binding = binding }

// HandleDocument dispatches one decoded RPC request: match the method against
// the registry in insertion order, run the first matching handler with a
// fresh response document, validate the response against its budget, and
// publish it to the correlated response topic.
func (s *ServerRPC) HandleDocument(topic string, doc *documentpkg.Document) {
	method, ok := doc.GetString(RPCMethodField)
	if !ok || method == "" {
		s.log.Debug("Server-side RPC request carries no method name", loggingpkg.LogFields{
			"topic": topic,
		})
		s.metrics.ObserveDispatch(OutcomeNoMethod)
		return
	}

	for _, endpoint := range s.endpoints.snapshot() {
		if endpoint.Method == "" || !strings.HasPrefix(method, endpoint.Method) {
			continue
		}
		// First match wins; later endpoints are never consulted.
		s.dispatch(topic, method, endpoint, doc)
		return
	}

	// Unknown methods are dropped without a reply so a chatty server cannot
	// make the device flood the broker with error responses.
	s.metrics.ObserveDispatch(OutcomeNoMatch)
}

func (s *ServerRPC) dispatch(topic, method string, endpoint RPCEndpoint, doc *documentpkg.Document) {
	params, hasParams := doc.Get(RPCParamsField)
	if !hasParams {
		s.log.Debug("No parameters passed with RPC, passing nil", loggingpkg.LogFields{
			"method": method,
		})
	}

	budget := s.sharedBudget
	if budget == 0 {
		budget = endpoint.ResponseBudget
	}

	s.log.Debug("Calling subscribed callback for RPC", loggingpkg.LogFields{
		"method": method,
	})

	response := documentpkg.New()
	endpoint.Handler(params, response)

	if response.IsEmpty() {
		s.log.Debug("Response document is empty, skipping sending", loggingpkg.LogFields{
			"method": method,
		})
		s.metrics.ObserveDispatch(OutcomeDeclined)
		return
	}

	size, err := response.EncodedSize()
	if err != nil {
		s.log.Error("Failed to encode server-side RPC response", err, loggingpkg.LogFields{
			"method": method,
		})
		s.metrics.ObserveDispatch(OutcomeEncodeError)
		return
	}
	if budget > 0 && size > budget {
		s.log.Error("Server-side RPC response overflowed, increase the response budget",
			errspkg.ErrResponseOverflowed, loggingpkg.LogFields{
				"method": method,
				"budget": budget,
				"size":   size,
			})
		s.metrics.ObserveDispatch(OutcomeOverflow)
		return
	}

	requestID, err := parseRequestID(topic)
	if err != nil {
		s.log.Error("Failed to parse RPC request id, skipping sending", err, loggingpkg.LogFields{
			"topic": topic,
		})
		s.metrics.ObserveDispatch(OutcomeBadRequestID)
		return
	}

	if s.binding.PublishDocument == nil {
		s.log.Error("Cannot publish RPC response", errspkg.ErrNotBound, loggingpkg.LogFields{
			"method": method,
		})
		s.metrics.ObserveDispatch(OutcomePublishError)
		return
	}

	if err := s.binding.PublishDocument(responseTopic(requestID), response, size); err != nil {
		s.log.Error("Failed to publish RPC response", err, loggingpkg.LogFields{
			"method":     method,
			"request_id": requestID,
		})
		s.metrics.ObserveDispatch(OutcomePublishError)
		return
	}

	s.metrics.ObserveDispatch(OutcomeHandled)
}
