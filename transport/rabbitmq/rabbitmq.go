// Package rabbitmq provides a RabbitMQ broker for devlink backed by the
// amq.topic exchange. Topic patterns map onto AMQP binding keys, so wildcard
// subscriptions are resolved by the broker.
package rabbitmq

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/edgewire/devlink/transport"
)

// BrokerName is the name used to register this broker.
const BrokerName = "rabbitmq"

// Exchange is the topic exchange messages flow through.
const Exchange = "amq.topic"

// DialFactory allows overriding the connection creation for testing.
var DialFactory = func(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}

func init() {
	transport.RegisterWithCapabilities(BrokerName, Build, transport.RabbitMQCapabilities)
}

// Build creates a new RabbitMQ broker from the config.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Broker, error) {
	return New(cfg.GetRabbitMQURL(), logger)
}

// Capabilities returns the capabilities of this broker.
func Capabilities() transport.Capabilities {
	return transport.RabbitMQCapabilities
}

// Broker implements transport.Broker over one AMQP connection with a single
// exclusive auto-delete queue per device session. Subscribed patterns become
// bindings of that queue on the amq.topic exchange.
type Broker struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger watermill.LoggerAdapter

	bindings map[string]struct{}
	mu       sync.Mutex

	inbound chan *message.Message

	closed     bool
	closedMu   sync.RWMutex
	closedChan chan struct{}
}

// New connects to the RabbitMQ server at url and starts consuming.
func New(url string, logger watermill.LoggerAdapter) (*Broker, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	conn, err := DialFactory(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	queue, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	deliveries, err := ch.Consume(
		queue.Name,
		"",    // consumer tag
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	b := &Broker{
		conn:       conn,
		ch:         ch,
		queue:      queue.Name,
		logger:     logger,
		bindings:   make(map[string]struct{}),
		inbound:    make(chan *message.Message, 64),
		closedChan: make(chan struct{}),
	}

	go b.consume(deliveries)

	return b, nil
}

// Subscribe binds the session queue to a topic pattern. Subscribing to an
// already-active pattern is a no-op.
func (b *Broker) Subscribe(ctx context.Context, pattern string) error {
	if b.isClosed() {
		return fmt.Errorf("rabbitmq broker is closed")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.bindings[pattern]; ok {
		return nil
	}

	if err := b.ch.QueueBind(b.queue, topicToKey(pattern), Exchange, false, nil); err != nil {
		return fmt.Errorf("bind %q: %w", pattern, err)
	}

	b.bindings[pattern] = struct{}{}
	return nil
}

// Unsubscribe removes the binding for a previously subscribed pattern.
func (b *Broker) Unsubscribe(pattern string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.bindings[pattern]; !ok {
		return nil
	}
	delete(b.bindings, pattern)

	if err := b.ch.QueueUnbind(b.queue, topicToKey(pattern), Exchange, nil); err != nil {
		return fmt.Errorf("unbind %q: %w", pattern, err)
	}
	return nil
}

// Publish sends messages to a concrete topic.
func (b *Broker) Publish(topic string, messages ...*message.Message) error {
	if b.isClosed() {
		return fmt.Errorf("rabbitmq broker is closed")
	}

	key := topicToKey(topic)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, msg := range messages {
		headers := amqp.Table{}
		for k, v := range msg.Metadata {
			headers[k] = v
		}

		err := b.ch.PublishWithContext(
			context.Background(),
			Exchange,
			key,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType: "application/json",
				MessageId:   msg.UUID,
				Headers:     headers,
				Body:        msg.Payload,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %q: %w", topic, err)
		}
	}

	return nil
}

// Inbound returns the delivery channel for all subscribed patterns.
func (b *Broker) Inbound() <-chan *message.Message {
	return b.inbound
}

// Close tears the channel and connection down.
func (b *Broker) Close() error {
	b.closedMu.Lock()
	if b.closed {
		b.closedMu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closedChan)
	b.closedMu.Unlock()

	if err := b.ch.Close(); err != nil {
		b.logger.Error("Failed to close channel", err, nil)
	}
	return b.conn.Close()
}

func (b *Broker) consume(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		msgID := d.MessageId
		if msgID == "" {
			msgID = watermill.NewUUID()
		}

		msg := message.NewMessage(msgID, d.Body)
		for k, v := range d.Headers {
			if s, ok := v.(string); ok {
				msg.Metadata.Set(k, s)
			}
		}
		transport.SetTopic(msg, keyToTopic(d.RoutingKey))

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

// topicToKey converts an MQTT-style topic or pattern to an AMQP routing key.
// AMQP shares "#" for the multi-level wildcard; "+" becomes "*".
func topicToKey(topic string) string {
	key := strings.ReplaceAll(topic, "/", ".")
	return strings.ReplaceAll(key, "+", "*")
}

// keyToTopic converts an AMQP routing key back to its topic form.
func keyToTopic(key string) string {
	topic := strings.ReplaceAll(key, ".", "/")
	return strings.ReplaceAll(topic, "*", "+")
}
