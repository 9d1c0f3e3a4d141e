package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	configpkg "github.com/edgewire/devlink/internal/runtime/config"
	documentpkg "github.com/edgewire/devlink/internal/runtime/document"
	errspkg "github.com/edgewire/devlink/internal/runtime/errors"
	idspkg "github.com/edgewire/devlink/internal/runtime/ids"
	"github.com/edgewire/devlink/internal/runtime/jsoncodec"
	loggingpkg "github.com/edgewire/devlink/internal/runtime/logging"
	transportpkg "github.com/edgewire/devlink/transport"
)

// ServiceDependencies holds the optional collaborators that the Service can
// use. Leave fields nil to use the defaults.
type ServiceDependencies struct {
	// Broker overrides the registry-built broker, useful for tests.
	Broker transportpkg.Broker

	// BrokerRegistry selects where broker builders are looked up.
	// Nil uses the default registry.
	BrokerRegistry *transportpkg.Registry

	// Hooks are appended after the default hook chain.
	Hooks []HookRegistration

	// DisableDefaultHooks skips registering the default hook chain when true.
	DisableDefaultHooks bool

	// MetricsRegisterer receives the devlink collectors when metrics are
	// enabled. Nil uses the default registerer.
	MetricsRegisterer prometheus.Registerer
}

// Service wires a broker, the attached API implementations, and the dispatch
// hook chain. It owns the single message loop that drives every API, so
// dispatch is serialized by construction.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	broker transportpkg.Broker

	apis   []API
	apisMu sync.RWMutex

	hooks    []Hook
	dispatch DispatchFunc

	metrics *Metrics

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex

	// baseCtx scopes broker subscriptions made through API bindings.
	baseCtx context.Context
}

// NewService constructs a Service for the supplied configuration. Attach APIs
// on the returned Service before calling Start. It panics when the broker
// cannot be built; use TryNewService to handle that as an error.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	svc, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return svc
}

// TryNewService is NewService returning errors instead of panicking.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errors.New("devlink: config is required")
	}
	if log == nil {
		log = loggingpkg.Nop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	log.Info("Creating device service", loggingpkg.LogFields{
		"broker": conf.Broker,
		"config": conf,
	})

	s := &Service{
		Conf:    conf,
		Logger:  log,
		baseCtx: ctx,
	}

	broker := deps.Broker
	if broker == nil {
		registry := deps.BrokerRegistry
		if registry == nil {
			registry = transportpkg.DefaultRegistry
		}
		built, err := registry.Build(ctx, conf, loggingpkg.NewWatermillAdapter(log))
		if err != nil {
			return nil, fmt.Errorf("build broker: %w", err)
		}
		broker = built
	}
	s.broker = broker

	if conf.MetricsEnabled {
		s.metrics = NewMetrics(deps.MetricsRegisterer)
		if conf.MetricsPort > 0 {
			s.RegisterHTTPHandler(conf.MetricsPort, "/metrics", promhttp.Handler())
		}
	}

	if err := s.registerConfiguredHooks(deps); err != nil {
		return nil, err
	}
	s.dispatch = s.buildDispatch(s.route)

	return s, nil
}

func (s *Service) registerConfiguredHooks(deps ServiceDependencies) error {
	var defaults []HookRegistration
	if !deps.DisableDefaultHooks {
		defaults = DefaultHooks()
	}
	registrations := make([]HookRegistration, 0, len(defaults)+len(deps.Hooks))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Hooks...)

	for _, reg := range registrations {
		if err := s.RegisterHook(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_hook"
			}
			return fmt.Errorf("register hook %s: %w", name, err)
		}
	}
	return nil
}

// AttachAPI binds an API to a service, guarding against a nil service. It is
// the package-level form of Service.Attach.
func AttachAPI(svc *Service, api API) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	return svc.Attach(api)
}

// Attach binds an API to the service broker and adds it to the routing set.
// APIs are consulted in attachment order.
func (s *Service) Attach(api API) error {
	if api == nil {
		return errspkg.ErrAPIRequired
	}
	if s.broker == nil {
		return errspkg.ErrBrokerRequired
	}

	api.Bind(Binding{
		SubscribeTopic: func(pattern string) error {
			return s.broker.Subscribe(s.baseCtx, pattern)
		},
		UnsubscribeTopic: s.broker.Unsubscribe,
		PublishDocument:  s.publishDocument,
	})

	if ma, ok := api.(interface{ SetMetrics(*Metrics) }); ok {
		ma.SetMetrics(s.metrics)
	}

	s.apisMu.Lock()
	s.apis = append(s.apis, api)
	s.apisMu.Unlock()

	return nil
}

// Start runs the message loop until the context is cancelled or the broker
// closes its inbound channel.
func (s *Service) Start(ctx context.Context) error {
	s.startHTTPServers()

	inbound := s.broker.Inbound()
	for {
		select {
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			s.dispatch(ctx, msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Resubscribe re-issues the subscriptions of every attached API. The outer
// connection logic calls it after a reconnect; the first failure is returned
// after every API has been tried.
func (s *Service) Resubscribe() error {
	s.apisMu.RLock()
	apis := make([]API, len(s.apis))
	copy(apis, s.apis)
	s.apisMu.RUnlock()

	var errs []error
	for _, api := range apis {
		if err := api.Resubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close shuts the broker down.
func (s *Service) Close() error {
	return s.broker.Close()
}

// route hands one inbound message to the first attached API that claims its
// topic. Unclaimed topics are dropped with a debug log.
func (s *Service) route(ctx context.Context, msg *message.Message) {
	topic := transportpkg.Topic(msg)
	if topic == "" {
		s.Logger.Error("Inbound message carries no topic", errspkg.ErrTopicRequired, loggingpkg.LogFields{
			"message_uuid": msg.UUID,
		})
		return
	}

	s.apisMu.RLock()
	apis := make([]API, len(s.apis))
	copy(apis, s.apis)
	s.apisMu.RUnlock()

	for _, api := range apis {
		if !api.HandlesTopic(topic) {
			continue
		}

		switch api.PayloadType() {
		case PayloadDocument:
			doc, err := documentpkg.Decode(msg.Payload)
			if err != nil {
				s.Logger.Error("Failed to decode inbound payload", err, loggingpkg.LogFields{
					"topic":        topic,
					"message_uuid": msg.UUID,
				})
				s.metrics.ObserveDispatch(OutcomeDecodeError)
				return
			}
			api.HandleDocument(topic, doc)
		case PayloadRaw:
			api.HandleRaw(topic, msg.Payload)
		}
		return
	}

	s.Logger.Debug("No API claims inbound topic", loggingpkg.LogFields{
		"topic": topic,
	})
}

// publishDocument encodes a document and publishes it through the broker.
func (s *Service) publishDocument(topic string, doc *documentpkg.Document, estimatedSize int) error {
	if topic == "" {
		return errspkg.ErrTopicRequired
	}
	if doc == nil {
		return errspkg.ErrDocumentRequired
	}

	payload, err := jsoncodec.Marshal(doc.Fields())
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	msg := message.NewMessage(idspkg.NewMessageID(), payload)
	transportpkg.SetTopic(msg, topic)

	if err := s.broker.Publish(topic, msg); err != nil {
		return err
	}

	s.metrics.ObservePublished()
	s.Logger.Debug("Published document", loggingpkg.LogFields{
		"topic": topic,
		"size":  estimatedSize,
	})
	return nil
}

// RegisterHTTPHandler mounts an HTTP handler on the mux for the given port.
// The servers are started by Start.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
