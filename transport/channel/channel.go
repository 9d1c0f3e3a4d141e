// Package channel provides an in-memory broker for devlink. The broker is
// useful for testing and local development; pattern matching happens in the
// adapter since the underlying Go channel pub/sub only knows exact topics.
package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/edgewire/devlink/transport"
)

// BrokerName is the name used to register this broker.
const BrokerName = "channel"

// Factory allows overriding the channel pub/sub creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

func init() {
	transport.RegisterWithCapabilities(BrokerName, Build, transport.ChannelCapabilities)
}

// Build creates a new in-memory channel broker.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Broker, error) {
	return New(ctx, logger), nil
}

// Capabilities returns the capabilities of this broker.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}

// Broker routes messages between publishers and pattern subscribers over a
// Watermill Go channel pub/sub. Each subscribed pattern maps to one exact
// gochannel topic; Publish resolves which patterns a concrete topic matches
// and fans the message out to them.
type Broker struct {
	pubSub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	subscriptions map[string]context.CancelFunc
	subMu         sync.RWMutex

	forwarders sync.WaitGroup
	inbound    chan *message.Message

	closed     bool
	closedMu   sync.RWMutex
	closedChan chan struct{}
}

// New creates an in-memory broker. Messages delivered before any matching
// subscription exists are dropped, mirroring broker behaviour for QoS 0.
func New(ctx context.Context, logger watermill.LoggerAdapter) *Broker {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Broker{
		pubSub:        Factory(gochannel.Config{}, logger),
		logger:        logger,
		subscriptions: make(map[string]context.CancelFunc),
		inbound:       make(chan *message.Message, 64),
		closedChan:    make(chan struct{}),
	}
}

// Subscribe registers a topic pattern. Subscribing to an already-active
// pattern is a no-op.
func (b *Broker) Subscribe(ctx context.Context, pattern string) error {
	if b.isClosed() {
		return fmt.Errorf("channel broker is closed")
	}

	b.subMu.Lock()
	defer b.subMu.Unlock()

	if _, ok := b.subscriptions[pattern]; ok {
		return nil
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch, err := b.pubSub.Subscribe(subCtx, pattern)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %q: %w", pattern, err)
	}

	b.subscriptions[pattern] = cancel
	b.forwarders.Add(1)
	go b.forward(ch)

	return nil
}

// Unsubscribe removes a previously subscribed pattern. Unsubscribing a
// pattern that was never subscribed succeeds.
func (b *Broker) Unsubscribe(pattern string) error {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	if cancel, ok := b.subscriptions[pattern]; ok {
		cancel()
		delete(b.subscriptions, pattern)
	}
	return nil
}

// Publish delivers messages to every subscription whose pattern matches topic.
func (b *Broker) Publish(topic string, messages ...*message.Message) error {
	if b.isClosed() {
		return fmt.Errorf("channel broker is closed")
	}

	b.subMu.RLock()
	patterns := make([]string, 0, len(b.subscriptions))
	for pattern := range b.subscriptions {
		if transport.MatchTopic(pattern, topic) {
			patterns = append(patterns, pattern)
		}
	}
	b.subMu.RUnlock()

	for _, msg := range messages {
		transport.SetTopic(msg, topic)
		for _, pattern := range patterns {
			if err := b.pubSub.Publish(pattern, msg.Copy()); err != nil {
				return fmt.Errorf("publish %q: %w", topic, err)
			}
		}
	}

	return nil
}

// Inbound returns the merged delivery channel for all subscribed patterns.
func (b *Broker) Inbound() <-chan *message.Message {
	return b.inbound
}

// Close shuts the broker down and closes the inbound channel.
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
	for pattern, cancel := range b.subscriptions {
		cancel()
		delete(b.subscriptions, pattern)
	}
	b.subMu.Unlock()

	err := b.pubSub.Close()
	b.forwarders.Wait()
	close(b.inbound)
	return err
}

func (b *Broker) forward(ch <-chan *message.Message) {
	defer b.forwarders.Done()
	for msg := range ch {
		msg.Ack()
		select {
		case b.inbound <- msg:
		case <-b.closedChan:
			return
		}
	}
}

func (b *Broker) isClosed() bool {
	b.closedMu.RLock()
	defer b.closedMu.RUnlock()
	return b.closed
}
