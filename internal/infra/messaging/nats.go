package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSClient publishes outbox messages to JetStream. The subject is the routing key
// and the outbox id is the Nats-Msg-Id, so the stream drops duplicates within its
// dedup window.
type NATSClient struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	cfg  config.NATS
	log  *logrus.Logger
}

var _ outbox.Broker = (*NATSClient)(nil)

func NewNATS(ctx context.Context, cfg config.NATS, log *logrus.Logger) (*NATSClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats: url is required")
	}
	if cfg.Stream == "" {
		return nil, errors.New("nats: stream is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("community-backend"))
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ensureStream(ctx, js, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	return &NATSClient{conn: conn, js: js, cfg: cfg, log: log}, nil
}

func (c *NATSClient) Close() {
	if c == nil || c.conn == nil {
		return
	}
	c.conn.Close()
}

func (c *NATSClient) Publish(ctx context.Context, msg outbox.Message) error {
	if c == nil || c.js == nil {
		return errors.New("nats: jetstream not initialized")
	}
	out := newNATSMsg(msg)
	_, err := c.js.PublishMsg(out, nats.Context(ctx))
	return err
}

func newNATSMsg(msg outbox.Message) *nats.Msg {
	out := nats.NewMsg(msg.RoutingKey)
	out.Data = msg.Body
	if msg.ID != "" {
		out.Header.Set(nats.MsgIdHdr, msg.ID)
	}
	out.Header.Set("Content-Type", msg.ContentType)
	for k, v := range msg.Headers() {
		out.Header.Set(k, v)
	}
	return out
}

func streamSubjects(cfg config.NATS) []string {
	routes := outbox.Routes()
	subjects := make([]string, 0, len(routes)+1)
	for _, route := range routes {
		subjects = append(subjects, route.RoutingKey)
	}
	if cfg.DLQSubject != "" {
		subjects = append(subjects, cfg.DLQSubject)
	}
	return subjects
}

func ensureStream(ctx context.Context, js nats.JetStreamContext, cfg config.NATS) error {
	subjects := streamSubjects(cfg)

	info, err := js.StreamInfo(cfg.Stream, nats.Context(ctx))
	if err == nil {
		if !sameSubjects(info.Config.Subjects, subjects) {
			info.Config.Subjects = subjects
			_, err = js.UpdateStream(&info.Config, nats.Context(ctx))
		}
		return err
	}

	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       cfg.Stream,
			Subjects:   subjects,
			Storage:    nats.FileStorage,
			Retention:  nats.LimitsPolicy,
			Duplicates: 2 * time.Minute,
		}, nats.Context(ctx))
		return err
	}
	return err
}

// Consume pulls from a durable consumer over every outbox subject until ctx is done.
// Failed deliveries are nak'ed with the configured backoff; after the last allowed
// delivery they go to the DLQ subject.
func (c *NATSClient) Consume(ctx context.Context, handler Handler) error {
	if err := c.ensureConsumer(ctx); err != nil {
		return fmt.Errorf("nats: consumer config: %w", err)
	}

	sub, err := c.js.PullSubscribe("", c.cfg.ConsumerDurable, nats.Bind(c.cfg.Stream, c.cfg.ConsumerDurable))
	if err != nil {
		return fmt.Errorf("nats: subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	batch := c.cfg.FetchBatch
	if batch <= 0 {
		batch = 50
	}

	c.log.Infof("nats: consuming stream %s (durable=%s)", c.cfg.Stream, c.cfg.ConsumerDurable)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(batch, nats.MaxWait(2*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.Canceled) {
				continue
			}
			c.log.WithError(err).Warn("nats: fetch failed")
			continue
		}
		for _, msg := range msgs {
			c.handleMsg(ctx, msg, handler)
		}
	}
}

func (c *NATSClient) handleMsg(ctx context.Context, msg *nats.Msg, handler Handler) {
	in := InboundMessage{
		ID:         msg.Header.Get(nats.MsgIdHdr),
		EventType:  msg.Header.Get(outbox.HeaderEventType),
		DedupKey:   msg.Header.Get(outbox.HeaderDedupKey),
		RoutingKey: msg.Subject,
		Body:       msg.Data,
	}
	md, mdErr := msg.Metadata()
	if mdErr == nil {
		in.Redelivery = md.NumDelivered > 1
	}

	if err := handler(ctx, in); err != nil {
		c.log.WithError(err).WithField("dedup_key", in.DedupKey).Warn("nats: handler failed")
		c.handleFailure(ctx, msg)
		return
	}
	_ = msg.Ack()
}

func (c *NATSClient) handleFailure(ctx context.Context, msg *nats.Msg) {
	md, err := msg.Metadata()
	if err != nil {
		c.log.WithError(err).Warn("nats: metadata missing")
		_ = msg.Nak()
		return
	}
	maxDeliver := c.cfg.ConsumerMaxDeliver
	if maxDeliver <= 0 {
		maxDeliver = 10
	}
	if int(md.NumDelivered) >= maxDeliver {
		if c.cfg.DLQSubject != "" {
			dlq := nats.NewMsg(c.cfg.DLQSubject)
			dlq.Data = msg.Data
			dlq.Header = msg.Header
			dlq.Header.Set(nats.MsgIdHdr, fmt.Sprintf("dlq-%d", md.Sequence.Stream))
			if _, err := c.js.PublishMsg(dlq, nats.Context(ctx)); err != nil {
				c.log.WithError(err).Warn("nats: dlq publish failed")
				_ = msg.Nak()
				return
			}
		} else {
			c.log.Warn("nats: dlq subject not configured")
		}
		_ = msg.Ack()
		return
	}
	if delay := backoffForAttempt(c.cfg.ConsumerBackoff, md.NumDelivered); delay > 0 {
		_ = msg.NakWithDelay(delay)
		return
	}
	_ = msg.Nak()
}

func (c *NATSClient) ensureConsumer(ctx context.Context) error {
	if c.cfg.ConsumerDurable == "" {
		return errors.New("nats consumer durable is required")
	}

	info, err := c.js.ConsumerInfo(c.cfg.Stream, c.cfg.ConsumerDurable, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrConsumerNotFound) {
		return err
	}

	backoff := c.cfg.ConsumerBackoff
	maxDeliver := c.cfg.ConsumerMaxDeliver
	if maxDeliver <= 0 {
		maxDeliver = -1
	}
	filters := streamSubjects(config.NATS{})

	if info != nil {
		if info.Config.MaxDeliver != maxDeliver || !sameBackoff(info.Config.BackOff, backoff) || !sameSubjects(info.Config.FilterSubjects, filters) {
			if err := c.js.DeleteConsumer(c.cfg.Stream, c.cfg.ConsumerDurable, nats.Context(ctx)); err != nil {
				return err
			}
			info = nil
		}
	}

	if info == nil {
		consumerCfg := &nats.ConsumerConfig{
			Durable:        c.cfg.ConsumerDurable,
			AckPolicy:      nats.AckExplicitPolicy,
			AckWait:        c.cfg.AckWait,
			MaxAckPending:  c.cfg.MaxAckPending,
			MaxDeliver:     maxDeliver,
			FilterSubjects: filters,
		}
		if len(backoff) > 0 {
			consumerCfg.BackOff = backoff
		}
		if _, err := c.js.AddConsumer(c.cfg.Stream, consumerCfg, nats.Context(ctx)); err != nil {
			return err
		}
	}
	return nil
}

func sameSubjects(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		if seen[s] == 0 {
			return false
		}
		seen[s]--
	}
	for _, v := range seen {
		if v != 0 {
			return false
		}
	}
	return true
}

func sameBackoff(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func backoffForAttempt(backoff []time.Duration, delivered uint64) time.Duration {
	if len(backoff) == 0 {
		return 0
	}
	idx := int(delivered) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(backoff) {
		idx = len(backoff) - 1
	}
	return backoff[idx]
}
