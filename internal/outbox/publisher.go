package outbox

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultPollInterval   = time.Second
	DefaultBatchSize      = 50
	DefaultPublishTimeout = 5 * time.Second

	maxLastErrorLength = 1024
)

var credentialsInURL = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://[^:\s/@]+):([^@\s]+)@`)

type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	PublishTimeout time.Duration
}

func (cfg *Config) normalize() {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
}

// BatchResult counts the outcome of one RunOnce. Published only counts records whose
// PUBLISHED status was persisted.
type BatchResult struct {
	Selected          int
	Published         int
	Failed            int
	StateUpdateFailed int
}

// Publisher polls the outbox table and delivers ready records to a Broker.
type Publisher struct {
	repo          repository.OutboxRepository
	broker        Broker
	hooks         *Hooks
	retry         RetryPolicy
	log           *logrus.Logger
	cfg           Config
	now           func() time.Time
	meterProvider metric.MeterProvider
	metrics       publisherMetrics
	inFlight      *semaphore.Weighted
}

type Option func(*Publisher)

func WithConfig(cfg Config) Option {
	return func(p *Publisher) { p.cfg = cfg }
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(p *Publisher) {
		if policy != nil {
			p.retry = policy
		}
	}
}

func WithHooks(hooks *Hooks) Option {
	return func(p *Publisher) { p.hooks = hooks }
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(p *Publisher) { p.meterProvider = provider }
}

func NewPublisher(repo repository.OutboxRepository, broker Broker, log *logrus.Logger, opts ...Option) (*Publisher, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if broker == nil {
		return nil, ErrBrokerRequired
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	p := &Publisher{
		repo:     repo,
		broker:   broker,
		retry:    ExponentialRetry{},
		log:      log,
		now:      time.Now,
		inFlight: semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.cfg.normalize()

	metrics, err := newPublisherMetrics(p.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("init outbox metrics: %w", err)
	}
	p.metrics = metrics

	return p, nil
}

// Run processes a batch immediately and then on every PollInterval tick until ctx is
// done. A tick that finds a batch still running is skipped.
func (p *Publisher) Run(ctx context.Context) error {
	p.log.Infof("outbox: publisher started (batch=%d, interval=%s, timeout=%s)", p.cfg.BatchSize, p.cfg.PollInterval, p.cfg.PublishTimeout)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		p.tick(ctx)
		select {
		case <-ctx.Done():
			p.log.Info("outbox: publisher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Publisher) tick(ctx context.Context) {
	result, err := p.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrTickInProgress):
		p.log.Debug("outbox: previous batch still running, tick skipped")
	case err != nil:
		p.log.WithError(err).Warn("outbox: batch failed")
	case result.Selected > 0:
		p.log.WithFields(logrus.Fields{
			"selected":            result.Selected,
			"published":           result.Published,
			"failed":              result.Failed,
			"state_update_failed": result.StateUpdateFailed,
		}).Info("outbox: batch processed")
	}
}

// RunOnce publishes one batch of candidates. Each record is handled on its own; a
// failing record never stops the rest of the batch.
func (p *Publisher) RunOnce(ctx context.Context) (BatchResult, error) {
	if !p.inFlight.TryAcquire(1) {
		return BatchResult{}, ErrTickInProgress
	}
	defer p.inFlight.Release(1)

	start := time.Now()
	defer func() {
		p.metrics.batchDuration.Record(context.WithoutCancel(ctx), time.Since(start).Seconds())
	}()

	events, err := p.repo.FindPublishCandidates(ctx, p.now().UTC(), p.cfg.BatchSize)
	if err != nil {
		return BatchResult{}, fmt.Errorf("find publish candidates: %w", err)
	}

	result := BatchResult{Selected: len(events)}
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		p.process(ctx, event, &result)
	}
	return result, nil
}

func (p *Publisher) process(ctx context.Context, event entity.OutboxEvent, result *BatchResult) {
	entry := p.log.WithFields(logrus.Fields{
		"outbox_id":  event.ID.String(),
		"event_type": event.EventType,
		"dedup_key":  event.DedupKey,
	})

	if err := p.deliver(ctx, event); err != nil {
		result.Failed++
		p.metrics.failed.Add(ctx, 1)

		attempt := event.Attempts + 1
		nextRetryAt := p.retry.NextRetryAt(p.now().UTC(), attempt)
		entry = entry.WithFields(logrus.Fields{"attempts": attempt, "next_retry_at": nextRetryAt})

		if markErr := p.repo.MarkFailed(ctx, event.ID, describeError(err), nextRetryAt); markErr != nil {
			result.StateUpdateFailed++
			p.metrics.stateUpdateFailed.Add(ctx, 1)
			entry.WithError(markErr).Error("outbox: failed to persist FAILED state")
			return
		}
		entry.WithError(err).Warn("outbox: publish failed, retry scheduled")
		return
	}

	// The broker already has the message. If this update is lost the record stays
	// eligible and is published again: delivery is at-least-once.
	publishedAt := p.now().UTC()
	if err := p.repo.MarkPublished(ctx, event.ID, publishedAt); err != nil {
		result.StateUpdateFailed++
		p.metrics.stateUpdateFailed.Add(ctx, 1)
		if errors.Is(err, repository.ErrStaleOutboxEvent) {
			entry.Warn("outbox: record was already published by another poller")
			return
		}
		entry.WithError(err).Error("outbox: published to broker but failed to persist PUBLISHED state; record will be republished")
		return
	}

	result.Published++
	p.metrics.published.Add(ctx, 1)

	event.Status = entity.OutboxStatusPublished
	event.PublishedAt = &publishedAt
	p.runHook(ctx, entry, event)
}

// deliver publishes with a per-call timeout. The call runs on its own goroutine so a
// broker client that ignores ctx cannot hold the batch past the timeout.
func (p *Publisher) deliver(ctx context.Context, event entity.OutboxEvent) error {
	pubCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	msg := MessageFromEvent(event)
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("broker panic: %v", r)
			}
		}()
		done <- p.broker.Publish(pubCtx, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-pubCtx.Done():
		return fmt.Errorf("publish timed out after %s: %w", p.cfg.PublishTimeout, pubCtx.Err())
	}
}

func (p *Publisher) runHook(ctx context.Context, entry *logrus.Entry, event entity.OutboxEvent) {
	hook, ok := p.hooks.lookup(event.EventType)
	if !ok {
		return
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("hook panic: %v", r)
			}
		}()
		return hook(ctx, event)
	}()
	if err != nil {
		p.metrics.hookFailed.Add(ctx, 1)
		entry.WithError(err).Error("outbox: post-publish hook failed")
	}
}

// describeError renders err for the last_error column: the message, or the error type
// when the message is empty, with URL credentials redacted and the length bounded.
func describeError(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = fmt.Sprintf("%T", err)
	}
	msg = credentialsInURL.ReplaceAllString(msg, "$1:[REDACTED]@")
	if runes := []rune(msg); len(runes) > maxLastErrorLength {
		msg = string(runes[:maxLastErrorLength])
	}
	return msg
}
