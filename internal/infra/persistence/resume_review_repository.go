package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"github.com/Potenup-community/backend-sub002/internal/infra/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResumeReviewRepository struct {
	db *DB
}

var _ repository.ResumeReviewRepository = (*ResumeReviewRepository)(nil)

func NewResumeReviewRepository(db *DB) *ResumeReviewRepository {
	return &ResumeReviewRepository{db: db}
}

func (r *ResumeReviewRepository) Create(ctx context.Context, review *entity.ResumeReview) error {
	return r.db.Write(ctx).Create(review).Error
}

func (r *ResumeReviewRepository) Save(ctx context.Context, review *entity.ResumeReview) error {
	return r.db.Write(ctx).Save(review).Error
}

func (r *ResumeReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.ResumeReview, error) {
	var review entity.ResumeReview
	if err := r.db.Read(ctx).First(&review, "id = ?", id).Error; err != nil {
		return entity.ResumeReview{}, translateNotFound(err)
	}
	return review, nil
}

// GetForUpdate locks the row for the rest of the surrounding transaction.
func (r *ResumeReviewRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (entity.ResumeReview, error) {
	query := r.db.Write(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var review entity.ResumeReview
	if err := query.First(&review, "id = ?", id).Error; err != nil {
		return entity.ResumeReview{}, translateNotFound(err)
	}
	return review, nil
}

func (r *ResumeReviewRepository) ListCursor(ctx context.Context, limit int, cursor string) ([]entity.ResumeReview, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.Read(ctx).
		Limit(limit).
		Order("created_at DESC").
		Order("id DESC")

	if cursor != "" {
		cursorTime, cursorID, err := pagination.Decode(cursor)
		if err != nil {
			if errors.Is(err, pagination.ErrInvalidCursor) {
				return nil, repository.ErrInvalidCursor
			}
			return nil, err
		}
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursorTime, cursorTime, cursorID)
	}

	var reviews []entity.ResumeReview
	if err := query.Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ResumeReviewRepository) FindIdempotencyKey(ctx context.Context, key string) (entity.IdempotencyKey, bool, error) {
	var existing entity.IdempotencyKey
	err := r.db.Write(ctx).First(&existing, "key = ?", key).Error
	if err == nil {
		return existing, true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.IdempotencyKey{}, false, nil
	}
	return entity.IdempotencyKey{}, false, err
}

// CreateIdempotencyKey reports false when a concurrent request inserted the key first.
func (r *ResumeReviewRepository) CreateIdempotencyKey(ctx context.Context, key entity.IdempotencyKey) (bool, error) {
	res := r.db.Write(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&key)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ResumeReviewRepository) MarkRequestPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.markPublished(ctx, id, "request_published_at", at)
}

func (r *ResumeReviewRepository) MarkCompletionPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.markPublished(ctx, id, "completion_published_at", at)
}

func (r *ResumeReviewRepository) markPublished(ctx context.Context, id uuid.UUID, column string, at time.Time) error {
	res := r.db.Write(ctx).
		Model(&entity.ResumeReview{}).
		Where("id = ?", id).
		Updates(map[string]any{column: at.UTC(), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}
