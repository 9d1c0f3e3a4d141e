package devlink

import (
	runtimepkg "github.com/edgewire/devlink/internal/runtime"
	configpkg "github.com/edgewire/devlink/internal/runtime/config"
	documentpkg "github.com/edgewire/devlink/internal/runtime/document"
	errspkg "github.com/edgewire/devlink/internal/runtime/errors"
	idspkg "github.com/edgewire/devlink/internal/runtime/ids"
	jsoncodec "github.com/edgewire/devlink/internal/runtime/jsoncodec"
	loggingpkg "github.com/edgewire/devlink/internal/runtime/logging"
	transportpkg "github.com/edgewire/devlink/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies

	API         = runtimepkg.API
	PayloadType = runtimepkg.PayloadType
	Binding     = runtimepkg.Binding

	ServerRPC   = runtimepkg.ServerRPC
	RPCEndpoint = runtimepkg.RPCEndpoint
	RPCHandler  = runtimepkg.RPCHandler

	Document = documentpkg.Document
	Value    = documentpkg.Value

	DispatchFunc     = runtimepkg.DispatchFunc
	Hook             = runtimepkg.Hook
	HookBuilder      = runtimepkg.HookBuilder
	HookRegistration = runtimepkg.HookRegistration

	Metrics = runtimepkg.Metrics

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Broker types
	Broker             = transportpkg.Broker
	BrokerBuilder      = transportpkg.Builder
	BrokerConfig       = transportpkg.Config
	BrokerRegistry     = transportpkg.Registry
	BrokerCapabilities = transportpkg.Capabilities
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	AttachAPI      = runtimepkg.AttachAPI
	ValidateConfig = configpkg.ValidateConfig
	ConfigFromEnv  = configpkg.FromEnv

	NewServerRPC = runtimepkg.NewServerRPC

	NewDocument    = documentpkg.New
	DecodeDocument = documentpkg.Decode

	DefaultHooks    = runtimepkg.DefaultHooks
	RecovererHook   = runtimepkg.RecovererHook
	TracerHook      = runtimepkg.TracerHook
	MetricsHook     = runtimepkg.MetricsHook
	LogMessagesHook = runtimepkg.LogMessagesHook

	NewMetrics = runtimepkg.NewMetrics

	// Broker registry. Import individual brokers via:
	//   _ "github.com/edgewire/devlink/transport/nats"
	DefaultBrokerRegistry = transportpkg.DefaultRegistry
	RegisterBroker        = transportpkg.Register
	BuildBroker           = transportpkg.Build
	GetBrokerCapabilities = transportpkg.GetCapabilities
	MatchTopic            = transportpkg.MatchTopic

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Decode        = jsoncodec.Decode

	ErrCapacityExceeded   = errspkg.ErrCapacityExceeded
	ErrHandlerRequired    = errspkg.ErrHandlerRequired
	ErrMethodRequired     = errspkg.ErrMethodRequired
	ErrServiceRequired    = errspkg.ErrServiceRequired
	ErrAPIRequired        = errspkg.ErrAPIRequired
	ErrBrokerRequired     = errspkg.ErrBrokerRequired
	ErrTopicRequired      = errspkg.ErrTopicRequired
	ErrNotBound           = errspkg.ErrNotBound
	ErrBadRequestID       = errspkg.ErrBadRequestID
	ErrResponseOverflowed = errspkg.ErrResponseOverflowed

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger

	NewMessageID = idspkg.NewMessageID
)

// Payload type values for API implementations.
const (
	PayloadRaw      = runtimepkg.PayloadRaw
	PayloadDocument = runtimepkg.PayloadDocument
)

// Server-side RPC protocol surface.
const (
	RPCSubscribeTopic      = runtimepkg.RPCSubscribeTopic
	RPCRequestTopicPrefix  = runtimepkg.RPCRequestTopicPrefix
	RPCResponseTopicFormat = runtimepkg.RPCResponseTopicFormat
	RPCMethodField         = runtimepkg.RPCMethodField
	RPCParamsField         = runtimepkg.RPCParamsField
)

// TopicMetadataKey carries the concrete topic on broker messages.
const TopicMetadataKey = transportpkg.TopicMetadataKey
