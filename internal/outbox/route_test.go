package outbox_test

import (
	"testing"

	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_KnownEventTypes(t *testing.T) {
	tests := []struct {
		eventType outbox.EventType
		want      outbox.Route
	}{
		{
			eventType: outbox.ResumeReviewRequested,
			want:      outbox.Route{EventType: "ResumeReviewRequested", Exchange: "resume.review", RoutingKey: "resume.review.requested"},
		},
		{
			eventType: outbox.ResumeReviewCompleted,
			want:      outbox.Route{EventType: "ResumeReviewCompleted", Exchange: "resume.review", RoutingKey: "resume.review.completed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.eventType.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, outbox.Resolve(tt.eventType))
		})
	}
}

func TestResolve_IsTotalAndDeterministic(t *testing.T) {
	for _, eventType := range outbox.EventTypes() {
		first := outbox.Resolve(eventType)
		assert.NotEmpty(t, first.Exchange)
		assert.NotEmpty(t, first.RoutingKey)
		assert.Equal(t, eventType.Name(), first.EventType)
		assert.Equal(t, first, outbox.Resolve(eventType))
	}
	assert.Len(t, outbox.Routes(), len(outbox.EventTypes()))
}

func TestParseEventType(t *testing.T) {
	got, err := outbox.ParseEventType(" ResumeReviewCompleted ")
	require.NoError(t, err)
	assert.Equal(t, outbox.ResumeReviewCompleted, got)

	_, err = outbox.ParseEventType("ResumeDeleted")
	assert.ErrorIs(t, err, outbox.ErrUnknownEventType)
}
