package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"github.com/Potenup-community/backend-sub002/internal/infra/persistence"
	"github.com/Potenup-community/backend-sub002/internal/infra/persistence/persistencetest"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingBroker struct {
	mu       sync.Mutex
	messages []outbox.Message
	failWith error
}

func (b *recordingBroker) Publish(_ context.Context, msg outbox.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.messages = append(b.messages, msg)
	return nil
}

func (b *recordingBroker) setFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = err
}

func (b *recordingBroker) published() []outbox.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]outbox.Message(nil), b.messages...)
}

// lostUpdateRepository simulates a crash right after the broker ack: the PUBLISHED
// status is never written.
type lostUpdateRepository struct {
	repository.OutboxRepository
	lose bool
}

func (r *lostUpdateRepository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	if r.lose {
		return errors.New("connection reset by peer")
	}
	return r.OutboxRepository.MarkPublished(ctx, id, at)
}

type harness struct {
	repo   *persistence.OutboxRepository
	clock  *fakeClock
	broker *recordingBroker
	reader *sdkmetric.ManualReader
	logs   *test.Hook
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		repo:   persistence.NewOutboxRepository(persistencetest.NewSQLite(t), 0),
		clock:  &fakeClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)},
		broker: &recordingBroker{},
		reader: sdkmetric.NewManualReader(),
	}
}

func (h *harness) publisher(t *testing.T, repo repository.OutboxRepository, broker outbox.Broker, opts ...outbox.Option) *outbox.Publisher {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	h.logs = hook

	base := []outbox.Option{
		outbox.WithClock(h.clock.Now),
		outbox.WithRetryPolicy(outbox.FixedRetry{Delay: time.Minute}),
		outbox.WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(h.reader))),
		outbox.WithConfig(outbox.Config{BatchSize: 10, PublishTimeout: 200 * time.Millisecond}),
	}
	p, err := outbox.NewPublisher(repo, broker, log, append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func (h *harness) saveRequested(t *testing.T, domainID string) entity.OutboxEvent {
	t.Helper()
	factory := outbox.NewFactory(outbox.WithFactoryClock(h.clock.Now))
	event, err := factory.BuildEvent(outbox.ResumeReviewRequested, domainID, "hash-"+domainID, map[string]string{"reviewId": domainID})
	require.NoError(t, err)
	require.NoError(t, h.repo.Save(context.Background(), &event))
	h.clock.Advance(time.Millisecond)
	return event
}

func (h *harness) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestNewPublisher_RequiresDependencies(t *testing.T) {
	_, err := outbox.NewPublisher(nil, &recordingBroker{}, nil)
	assert.ErrorIs(t, err, outbox.ErrRepositoryRequired)

	h := newHarness(t)
	_, err = outbox.NewPublisher(h.repo, nil, nil)
	assert.ErrorIs(t, err, outbox.ErrBrokerRequired)
}

func TestPublisher_PublishesPendingRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p := h.publisher(t, h.repo, h.broker)

	event := h.saveRequested(t, "review-1")

	result, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.BatchResult{Selected: 1, Published: 1}, result)

	msgs := h.broker.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, event.ID.String(), msgs[0].ID)
	assert.Equal(t, "resume.review", msgs[0].Exchange)
	assert.Equal(t, "resume.review.requested", msgs[0].RoutingKey)
	assert.Equal(t, outbox.ContentTypeJSON, msgs[0].ContentType)
	assert.Equal(t, []byte(event.Payload), msgs[0].Body)
	assert.Equal(t, map[string]string{
		outbox.HeaderDedupKey:  "rr:req:hash-review-1",
		outbox.HeaderEventType: "ResumeReviewRequested",
	}, msgs[0].Headers())

	stored, err := h.repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusPublished, stored.Status)
	require.NotNil(t, stored.PublishedAt)

	result, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Selected)
	assert.Len(t, h.broker.published(), 1)
	assert.EqualValues(t, 1, h.counter(t, "outbox.events.published"))
}

func TestPublisher_FailedRecordWaitsForRetryTime(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p := h.publisher(t, h.repo, h.broker)

	event := h.saveRequested(t, "review-1")
	h.broker.setFailure(errors.New("broker unavailable"))

	result, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.BatchResult{Selected: 1, Failed: 1}, result)

	stored, err := h.repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusFailed, stored.Status)
	assert.Equal(t, "broker unavailable", stored.LastError)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.Equal(h.clock.Now().Add(time.Minute)))

	h.broker.setFailure(nil)
	h.clock.Advance(30 * time.Second)
	result, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Selected)
	assert.Empty(t, h.broker.published())

	h.clock.Advance(31 * time.Second)
	result, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.BatchResult{Selected: 1, Published: 1}, result)

	stored, err = h.repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusPublished, stored.Status)
	assert.EqualValues(t, 1, h.counter(t, "outbox.events.failed"))
}

func TestPublisher_LostStatusUpdateRepublishesWithSameDedupKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	repo := &lostUpdateRepository{OutboxRepository: h.repo, lose: true}
	p := h.publisher(t, repo, h.broker)

	event := h.saveRequested(t, "review-1")

	result, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.BatchResult{Selected: 1, StateUpdateFailed: 1}, result)

	stored, err := h.repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusPending, stored.Status)

	repo.lose = false
	result, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)

	msgs := h.broker.published()
	require.Len(t, msgs, 2)
	assert.Equal(t, msgs[0].DedupKey, msgs[1].DedupKey)
	assert.Equal(t, msgs[0].ID, msgs[1].ID)
	assert.EqualValues(t, 1, h.counter(t, "outbox.events.state_update_failed"))
}

func TestPublisher_FailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first := h.saveRequested(t, "review-1")
	second := h.saveRequested(t, "review-2")
	third := h.saveRequested(t, "review-3")

	var delivered []string
	broker := outbox.BrokerFunc(func(_ context.Context, msg outbox.Message) error {
		if msg.ID == second.ID.String() {
			return errors.New("nack")
		}
		delivered = append(delivered, msg.ID)
		return nil
	})
	p := h.publisher(t, h.repo, broker)

	result, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.BatchResult{Selected: 3, Published: 2, Failed: 1}, result)
	assert.Equal(t, []string{first.ID.String(), third.ID.String()}, delivered)

	stored, err := h.repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusFailed, stored.Status)
}

func TestPublisher_PublishTimeout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	hanging := outbox.BrokerFunc(func(context.Context, outbox.Message) error {
		<-release
		return nil
	})
	p := h.publisher(t, h.repo, hanging, outbox.WithConfig(outbox.Config{BatchSize: 10, PublishTimeout: 50 * time.Millisecond}))

	event := h.saveRequested(t, "review-1")

	start := time.Now()
	result, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, result.Failed)

	stored, err := h.repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "timed out")
}

func TestPublisher_BrokerPanicIsAFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p := h.publisher(t, h.repo, outbox.BrokerFunc(func(context.Context, outbox.Message) error {
		panic("channel closed")
	}))

	event := h.saveRequested(t, "review-1")

	result, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	stored, err := h.repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "channel closed")
}

func TestPublisher_SkipsTickWhileBatchRuns(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := outbox.BrokerFunc(func(context.Context, outbox.Message) error {
		close(entered)
		<-release
		return nil
	})
	p := h.publisher(t, h.repo, blocking, outbox.WithConfig(outbox.Config{BatchSize: 10, PublishTimeout: 5 * time.Second}))

	h.saveRequested(t, "review-1")

	done := make(chan outbox.BatchResult, 1)
	go func() {
		result, _ := p.RunOnce(ctx)
		done <- result
	}()

	<-entered
	_, err := p.RunOnce(ctx)
	assert.ErrorIs(t, err, outbox.ErrTickInProgress)

	close(release)
	select {
	case result := <-done:
		assert.Equal(t, 1, result.Published)
	case <-time.After(5 * time.Second):
		t.Fatal("first batch did not finish")
	}
}

func TestPublisher_RunsPostPublishHook(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var seen []entity.OutboxEvent
	hooks := outbox.NewHooks()
	require.NoError(t, hooks.Register(outbox.ResumeReviewRequested, func(_ context.Context, event entity.OutboxEvent) error {
		seen = append(seen, event)
		return errors.New("projection unavailable")
	}))
	p := h.publisher(t, h.repo, h.broker, outbox.WithHooks(hooks))

	event := h.saveRequested(t, "review-1")

	result, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)

	require.Len(t, seen, 1)
	assert.Equal(t, event.ID, seen[0].ID)
	assert.Equal(t, entity.OutboxStatusPublished, seen[0].Status)
	assert.NotNil(t, seen[0].PublishedAt)

	stored, err := h.repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusPublished, stored.Status)
	assert.EqualValues(t, 1, h.counter(t, "outbox.hooks.failed"))
}

func TestPublisher_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	p := h.publisher(t, h.repo, h.broker, outbox.WithConfig(outbox.Config{PollInterval: 10 * time.Millisecond, BatchSize: 10, PublishTimeout: time.Second}))

	h.saveRequested(t, "review-1")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(h.broker.published()) == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("publisher did not stop")
	}
}
