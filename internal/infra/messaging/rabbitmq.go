package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const defaultConfirmTimeout = 5 * time.Second

var (
	ErrPublishNacked   = errors.New("rabbitmq: publish was nacked by the broker")
	ErrConfirmTimeout  = errors.New("rabbitmq: confirmation timed out")
	ErrConfirmsClosed  = errors.New("rabbitmq: confirmation channel closed")
	ErrQueueRequired   = errors.New("rabbitmq: queue name is required")
	ErrDeliveriesEnded = errors.New("rabbitmq: delivery channel closed")
)

// Channel is the subset of *amqp.Channel the client uses.
type Channel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// RabbitMQClient publishes outbox messages to topic exchanges with publisher
// confirms and consumes them back for the inbox.
type RabbitMQClient struct {
	conn *amqp.Connection
	ch   Channel
	cfg  config.RabbitMQ
	log  *logrus.Logger

	// publishMu serializes publishes so confirmations arrive in delivery-tag order.
	publishMu sync.Mutex
	confirms  chan amqp.Confirmation
	nextTag   uint64
	closed    bool
}

var _ outbox.Broker = (*RabbitMQClient)(nil)

func NewRabbitMQ(cfg config.RabbitMQ, log *logrus.Logger) (*RabbitMQClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq: url is required")
	}

	props := amqp.NewConnectionProperties()
	if cfg.ConnectionName != "" {
		props.SetClientConnectionName(cfg.ConnectionName)
	}
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{Properties: props, Heartbeat: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	client, err := NewRabbitMQFromChannel(ch, cfg, log)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	client.conn = conn
	return client, nil
}

// NewRabbitMQFromChannel puts ch in confirm mode and declares one durable topic
// exchange per outbox route.
func NewRabbitMQFromChannel(ch Channel, cfg config.RabbitMQ, log *logrus.Logger) (*RabbitMQClient, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("rabbitmq: enable confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	declared := map[string]bool{}
	for _, route := range outbox.Routes() {
		if declared[route.Exchange] {
			continue
		}
		if err := ch.ExchangeDeclare(route.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("rabbitmq: declare exchange %s: %w", route.Exchange, err)
		}
		declared[route.Exchange] = true
	}

	return &RabbitMQClient{ch: ch, cfg: cfg, log: log, confirms: confirms}, nil
}

func (c *RabbitMQClient) Close() {
	if c == nil {
		return
	}
	c.publishMu.Lock()
	c.closed = true
	c.publishMu.Unlock()

	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Publish sends msg as a persistent message and waits for the broker confirmation.
func (c *RabbitMQClient) Publish(ctx context.Context, msg outbox.Message) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers() {
		headers[k] = v
	}

	publishing := amqp.Publishing{
		ContentType:  msg.ContentType,
		MessageId:    msg.ID,
		Type:         msg.EventType,
		Headers:      headers,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         msg.Body,
	}
	if err := c.ch.PublishWithContext(ctx, msg.Exchange, msg.RoutingKey, false, false, publishing); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	c.nextTag++

	return c.waitForConfirm(ctx, c.nextTag)
}

// waitForConfirm reads confirmations until the one for tag arrives. Confirmations
// for earlier tags belong to publishes that already gave up waiting and are dropped.
func (c *RabbitMQClient) waitForConfirm(ctx context.Context, tag uint64) error {
	timer := time.NewTimer(c.cfg.ConfirmTimeout)
	defer timer.Stop()

	for {
		select {
		case confirm, ok := <-c.confirms:
			if !ok {
				return ErrConfirmsClosed
			}
			if confirm.DeliveryTag < tag {
				continue
			}
			if !confirm.Ack {
				return ErrPublishNacked
			}
			return nil
		case <-timer.C:
			return ErrConfirmTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Consume declares a durable queue bound to every outbox route and hands each
// delivery to handler with manual acknowledgement. It returns when ctx is done.
func (c *RabbitMQClient) Consume(ctx context.Context, handler Handler) error {
	if c.cfg.Queue == "" {
		return ErrQueueRequired
	}

	if _, err := c.ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare queue %s: %w", c.cfg.Queue, err)
	}
	for _, route := range outbox.Routes() {
		if err := c.ch.QueueBind(c.cfg.Queue, route.RoutingKey, route.Exchange, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: bind %s to %s: %w", route.RoutingKey, route.Exchange, err)
		}
	}
	if c.cfg.Prefetch > 0 {
		if err := c.ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("rabbitmq: qos: %w", err)
		}
	}

	deliveries, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume %s: %w", c.cfg.Queue, err)
	}

	c.log.Infof("rabbitmq: consuming %s", c.cfg.Queue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDeliveriesEnded
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

func (c *RabbitMQClient) handleDelivery(ctx context.Context, d amqp.Delivery, handler Handler) {
	msg := InboundMessage{
		ID:         d.MessageId,
		EventType:  headerString(d.Headers, outbox.HeaderEventType),
		DedupKey:   headerString(d.Headers, outbox.HeaderDedupKey),
		RoutingKey: d.RoutingKey,
		Body:       d.Body,
		Redelivery: d.Redelivered,
	}
	entry := c.log.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"event_type": msg.EventType,
		"dedup_key":  msg.DedupKey,
	})

	if err := handler(ctx, msg); err != nil {
		entry.WithError(err).Warn("rabbitmq: handler failed, requeueing")
		if nackErr := d.Nack(false, true); nackErr != nil {
			entry.WithError(nackErr).Error("rabbitmq: nack failed")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		entry.WithError(err).Error("rabbitmq: ack failed")
	}
}

func headerString(headers amqp.Table, key string) string {
	if headers == nil {
		return ""
	}
	switch v := headers[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}
