package messaging

import (
	"testing"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestNewNATSMsg(t *testing.T) {
	msg := outbox.Message{
		ID:          "0d9f0a52-3c1f-4a59-9d7b-8b4c2a9e1f00",
		EventType:   "ResumeReviewCompleted",
		DedupKey:    "rr:done:abc",
		Exchange:    "resume.review",
		RoutingKey:  "resume.review.completed",
		ContentType: outbox.ContentTypeJSON,
		Body:        []byte(`{"reviewId":"r-1"}`),
	}

	out := newNATSMsg(msg)

	assert.Equal(t, "resume.review.completed", out.Subject)
	assert.Equal(t, msg.Body, out.Data)
	assert.Equal(t, msg.ID, out.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "rr:done:abc", out.Header.Get(outbox.HeaderDedupKey))
	assert.Equal(t, "ResumeReviewCompleted", out.Header.Get(outbox.HeaderEventType))
	assert.Equal(t, outbox.ContentTypeJSON, out.Header.Get("Content-Type"))
}

func TestStreamSubjects(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"resume.review.requested", "resume.review.completed", "resume.review.dlq"},
		streamSubjects(config.NATS{DLQSubject: "resume.review.dlq"}),
	)
	assert.Len(t, streamSubjects(config.NATS{}), len(outbox.Routes()))
}

func TestBackoffForAttempt(t *testing.T) {
	backoff := []time.Duration{time.Second, 5 * time.Second}

	assert.Zero(t, backoffForAttempt(nil, 3))
	assert.Equal(t, time.Second, backoffForAttempt(backoff, 0))
	assert.Equal(t, time.Second, backoffForAttempt(backoff, 1))
	assert.Equal(t, 5*time.Second, backoffForAttempt(backoff, 2))
	assert.Equal(t, 5*time.Second, backoffForAttempt(backoff, 9))
}

func TestSameSubjects(t *testing.T) {
	assert.True(t, sameSubjects([]string{"a", "b"}, []string{"b", "a"}))
	assert.False(t, sameSubjects([]string{"a", "a"}, []string{"a", "b"}))
	assert.False(t, sameSubjects([]string{"a"}, []string{"a", "b"}))
}
