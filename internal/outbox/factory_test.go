package outbox_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_BuildEvent(t *testing.T) {
	id := uuid.MustParse("0a7f3c1e-1d2b-4c5e-8f90-123456789abc")
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.FixedZone("KST", 9*3600))
	factory := outbox.NewFactory(
		outbox.WithFactoryClock(func() time.Time { return now }),
		outbox.WithIDGenerator(func() uuid.UUID { return id }),
	)

	payload := map[string]any{"reviewId": "r-1", "resumeId": "res-9"}
	event, err := factory.BuildEvent(outbox.ResumeReviewRequested, "r-1", "deadbeef", payload)
	require.NoError(t, err)

	assert.Equal(t, id, event.ID)
	assert.Equal(t, "ResumeReviewRequested", event.EventType)
	assert.Equal(t, "resume.review", event.Exchange)
	assert.Equal(t, "resume.review.requested", event.RoutingKey)
	assert.Equal(t, "rr:req:deadbeef", event.DedupKey)
	assert.Equal(t, "r-1", event.DomainID)
	assert.Equal(t, entity.OutboxStatusPending, event.Status)
	assert.Nil(t, event.NextRetryAt)
	assert.Nil(t, event.PublishedAt)
	assert.Zero(t, event.Attempts)
	assert.Equal(t, time.UTC, event.CreatedAt.Location())
	assert.True(t, event.CreatedAt.Equal(now))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestFactory_DedupKeyIsDeterministic(t *testing.T) {
	factory := outbox.NewFactory()

	first, err := factory.BuildEvent(outbox.ResumeReviewCompleted, "r-1", "hash-1", map[string]string{"a": "b"})
	require.NoError(t, err)
	second, err := factory.BuildEvent(outbox.ResumeReviewCompleted, "r-1", "hash-1", map[string]string{"a": "b"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "rr:done:hash-1", first.DedupKey)
	assert.Equal(t, first.DedupKey, second.DedupKey)
	assert.NotEqual(t,
		outbox.DedupKey(outbox.ResumeReviewRequested, "hash-1"),
		outbox.DedupKey(outbox.ResumeReviewCompleted, "hash-1"),
	)
}

func TestFactory_BuildEvent_Validation(t *testing.T) {
	factory := outbox.NewFactory()

	_, err := factory.BuildEvent(outbox.ResumeReviewRequested, " ", "hash", struct{}{})
	assert.ErrorIs(t, err, outbox.ErrDomainIDRequired)

	_, err = factory.BuildEvent(outbox.ResumeReviewRequested, "r-1", "", struct{}{})
	assert.ErrorIs(t, err, outbox.ErrContentHashRequired)

	_, err = factory.BuildEvent(outbox.ResumeReviewRequested, "r-1", "hash", map[string]any{"ch": make(chan int)})
	assert.Error(t, err)

	huge := strings.Repeat("x", outbox.DefaultMaxPayloadBytes)
	_, err = factory.BuildEvent(outbox.ResumeReviewRequested, "r-1", "hash", map[string]string{"content": huge})
	assert.ErrorIs(t, err, outbox.ErrPayloadTooLarge)
}
