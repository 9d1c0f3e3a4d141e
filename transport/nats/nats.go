// Package nats provides a NATS Core broker for devlink. Topic patterns map
// onto NATS subjects, so wildcard subscriptions are resolved server-side.
package nats

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/edgewire/devlink/transport"
)

// BrokerName is the name used to register this broker.
const BrokerName = "nats"

// messageIDHeader carries the message UUID across the wire.
const messageIDHeader = "devlink_message_id"

// ConnectFactory allows overriding the connection creation for testing.
var ConnectFactory = func(url string) (*nats.Conn, error) {
	return nats.Connect(url)
}

func init() {
	transport.RegisterWithCapabilities(BrokerName, Build, transport.NATSCapabilities)
}

// Build creates a new NATS broker from the config.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Broker, error) {
	return New(cfg.GetNATSURL(), logger)
}

// Capabilities returns the capabilities of this broker.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}

// Broker implements transport.Broker over a NATS Core connection.
type Broker struct {
	nc     *nats.Conn
	logger watermill.LoggerAdapter

	subscriptions map[string]*nats.Subscription
	subMu         sync.Mutex

	inbound chan *message.Message

	closed     bool
	closedMu   sync.RWMutex
	closedChan chan struct{}
}

// New connects to the NATS server at url.
func New(url string, logger watermill.LoggerAdapter) (*Broker, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	nc, err := ConnectFactory(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Broker{
		nc:            nc,
		logger:        logger,
		subscriptions: make(map[string]*nats.Subscription),
		inbound:       make(chan *message.Message, 64),
		closedChan:    make(chan struct{}),
	}, nil
}

// Subscribe registers a topic pattern. Subscribing to an already-active
// pattern is a no-op.
func (b *Broker) Subscribe(ctx context.Context, pattern string) error {
	if b.isClosed() {
		return fmt.Errorf("nats broker is closed")
	}

	b.subMu.Lock()
	defer b.subMu.Unlock()

	if _, ok := b.subscriptions[pattern]; ok {
		return nil
	}

	sub, err := b.nc.Subscribe(topicToSubject(pattern), b.deliver)
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", pattern, err)
	}

	b.subscriptions[pattern] = sub
	return nil
}

// Unsubscribe removes a previously subscribed pattern.
func (b *Broker) Unsubscribe(pattern string) error {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	sub, ok := b.subscriptions[pattern]
	if !ok {
		return nil
	}
	delete(b.subscriptions, pattern)

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe %q: %w", pattern, err)
	}
	return nil
}

// Publish sends messages to a concrete topic.
func (b *Broker) Publish(topic string, messages ...*message.Message) error {
	if b.isClosed() {
		return fmt.Errorf("nats broker is closed")
	}

	subject := topicToSubject(topic)
	for _, msg := range messages {
		headers := nats.Header{}
		for k, v := range msg.Metadata {
			headers.Set(k, v)
		}
		headers.Set(messageIDHeader, msg.UUID)

		if err := b.nc.PublishMsg(&nats.Msg{
			Subject: subject,
			Data:    msg.Payload,
			Header:  headers,
		}); err != nil {
			return fmt.Errorf("publish %q: %w", topic, err)
		}
	}

	return nil
}

// Inbound returns the delivery channel for all subscribed patterns.
func (b *Broker) Inbound() <-chan *message.Message {
	return b.inbound
}

// Close unsubscribes everything and closes the connection.
func (b *Broker) Close() error {
	b.closedMu.Lock()
	if b.closed {
		b.closedMu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closedChan)
	b.closedMu.Unlock()

	b.subMu.Lock()
	for pattern, sub := range b.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Error("Failed to unsubscribe", err, watermill.LogFields{"pattern": pattern})
		}
		delete(b.subscriptions, pattern)
	}
	b.subMu.Unlock()

	b.nc.Close()
	return nil
}

func (b *Broker) deliver(natsMsg *nats.Msg) {
	msgID := natsMsg.Header.Get(messageIDHeader)
	if msgID == "" {
		msgID = watermill.NewUUID()
	}

	msg := message.NewMessage(msgID, natsMsg.Data)
	for k, v := range natsMsg.Header {
		if k == messageIDHeader {
			continue
		}
		if len(v) > 0 {
			msg.Metadata.Set(k, v[0])
		}
	}
	transport.SetTopic(msg, subjectToTopic(natsMsg.Subject))

	select {
	case b.inbound <- msg:
	case <-b.closedChan:
	}
}

func (b *Broker) isClosed() bool {
	b.closedMu.RLock()
	defer b.closedMu.RUnlock()
	return b.closed
}

// topicToSubject converts an MQTT-style topic or pattern to a NATS subject.
func topicToSubject(topic string) string {
	subject := strings.ReplaceAll(topic, "/", ".")
	subject = strings.ReplaceAll(subject, "+", "*")
	return strings.ReplaceAll(subject, "#", ">")
}

// subjectToTopic converts a NATS subject back to its topic form.
func subjectToTopic(subject string) string {
	topic := strings.ReplaceAll(subject, ".", "/")
	topic = strings.ReplaceAll(topic, "*", "+")
	return strings.ReplaceAll(topic, ">", "#")
}
