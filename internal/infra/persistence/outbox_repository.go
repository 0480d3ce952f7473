package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultCandidateLimit = 50

type OutboxRepository struct {
	db          *DB
	maxAttempts int
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

// NewOutboxRepository returns the outbox store. With maxAttempts > 0, FAILED records
// that reached that many attempts are no longer returned as candidates.
func NewOutboxRepository(db *DB, maxAttempts int) *OutboxRepository {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &OutboxRepository{db: db, maxAttempts: maxAttempts}
}

func (r *OutboxRepository) Save(ctx context.Context, event *entity.OutboxEvent) error {
	return r.db.Write(ctx).Create(event).Error
}

func (r *OutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.OutboxEvent, error) {
	var event entity.OutboxEvent
	if err := r.db.Write(ctx).First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.OutboxEvent{}, repository.ErrNotFound
		}
		return entity.OutboxEvent{}, err
	}
	return event, nil
}

// FindPublishCandidates returns PENDING records and FAILED records whose retry time is
// unset or has passed, oldest first. It reads from the primary so freshly committed
// records and status updates are visible.
func (r *OutboxRepository) FindPublishCandidates(ctx context.Context, now time.Time, limit int) ([]entity.OutboxEvent, error) {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	query := r.db.Write(ctx).
		Where("(status = ? OR (status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)))",
			entity.OutboxStatusPending, entity.OutboxStatusFailed, now.UTC())
	if r.maxAttempts > 0 {
		query = query.Where("attempts < ?", r.maxAttempts)
	}

	var events []entity.OutboxEvent
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	res := r.db.Write(ctx).
		Model(&entity.OutboxEvent{}).
		Where("id = ? AND status IN ?", id, []entity.OutboxStatus{entity.OutboxStatusPending, entity.OutboxStatusFailed}).
		Updates(map[string]any{
			"status":        entity.OutboxStatusPublished,
			"published_at":  publishedAt.UTC(),
			"next_retry_at": nil,
			"updated_at":    publishedAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrStaleOutboxEvent
	}
	return nil
}

// MarkFailed records a failed delivery and bumps the attempt counter. A record that
// is already PUBLISHED is left untouched.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string, nextRetryAt time.Time) error {
	res := r.db.Write(ctx).
		Model(&entity.OutboxEvent{}).
		Where("id = ? AND status IN ?", id, []entity.OutboxStatus{entity.OutboxStatusPending, entity.OutboxStatusFailed}).
		Updates(map[string]any{
			"status":        entity.OutboxStatusFailed,
			"last_error":    lastError,
			"next_retry_at": nextRetryAt.UTC(),
			"attempts":      gorm.Expr("attempts + 1"),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrStaleOutboxEvent
	}
	return nil
}

// List is the operator view: newest first, optionally filtered by status.
func (r *OutboxRepository) List(ctx context.Context, status entity.OutboxStatus, limit int) ([]entity.OutboxEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultCandidateLimit
	}
	query := r.db.Read(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var events []entity.OutboxEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
