package repository

import (
	"context"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/google/uuid"
)

// OutboxRepository persists outbox records. Save joins the transaction carried by ctx,
// so a record commits together with the domain write that produced it.
type OutboxRepository interface {
	Save(ctx context.Context, event *entity.OutboxEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (entity.OutboxEvent, error)
	FindPublishCandidates(ctx context.Context, now time.Time, limit int) ([]entity.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string, nextRetryAt time.Time) error
	List(ctx context.Context, status entity.OutboxStatus, limit int) ([]entity.OutboxEvent, error)
}
