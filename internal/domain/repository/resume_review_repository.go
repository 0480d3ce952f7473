package repository

import (
	"context"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/google/uuid"
)

type ResumeReviewRepository interface {
	Create(ctx context.Context, review *entity.ResumeReview) error
	Save(ctx context.Context, review *entity.ResumeReview) error
	GetByID(ctx context.Context, id uuid.UUID) (entity.ResumeReview, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (entity.ResumeReview, error)
	ListCursor(ctx context.Context, limit int, cursor string) ([]entity.ResumeReview, error)
	FindIdempotencyKey(ctx context.Context, key string) (entity.IdempotencyKey, bool, error)
	CreateIdempotencyKey(ctx context.Context, key entity.IdempotencyKey) (bool, error)
	MarkRequestPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkCompletionPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}

type ConsumedMessageRepository interface {
	// Record stores msg unless its dedup key was seen before; duplicate reports the latter.
	Record(ctx context.Context, msg entity.ConsumedMessage) (duplicate bool, err error)
}
