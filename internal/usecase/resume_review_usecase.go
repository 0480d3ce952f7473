package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"github.com/Potenup-community/backend-sub002/internal/domain/service"
	"github.com/Potenup-community/backend-sub002/internal/infra/hashing"
	"github.com/Potenup-community/backend-sub002/internal/infra/pagination"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxReviewScore = 100

// errIdempotencyRace rolls back a request whose idempotency key was taken by a
// concurrent request between the lookup and the insert.
var errIdempotencyRace = errors.New("idempotency key inserted concurrently")

// ReviewRequestedPayload is the body of a ResumeReviewRequested event.
type ReviewRequestedPayload struct {
	ReviewID    string    `json:"reviewId"`
	ResumeID    string    `json:"resumeId"`
	RequesterID string    `json:"requesterId"`
	ContentHash string    `json:"contentHash"`
	RequestedAt time.Time `json:"requestedAt"`
}

// ReviewCompletedPayload is the body of a ResumeReviewCompleted event.
type ReviewCompletedPayload struct {
	ReviewID    string    `json:"reviewId"`
	ResumeID    string    `json:"resumeId"`
	RequesterID string    `json:"requesterId"`
	Feedback    string    `json:"feedback"`
	Score       *int      `json:"score,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

type ResumeReview struct {
	store   repository.Store
	reviews repository.ResumeReviewRepository
	events  repository.OutboxRepository
	factory *outbox.Factory
	log     *logrus.Logger
	now     func() time.Time
}

var _ service.ResumeReviewService = (*ResumeReview)(nil)

func NewResumeReview(
	store repository.Store,
	reviews repository.ResumeReviewRepository,
	events repository.OutboxRepository,
	factory *outbox.Factory,
	log *logrus.Logger,
) *ResumeReview {
	if factory == nil {
		factory = outbox.NewFactory()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ResumeReview{
		store:   store,
		reviews: reviews,
		events:  events,
		factory: factory,
		log:     log,
		now:     time.Now,
	}
}

// Request stores a new review together with its ResumeReviewRequested outbox record.
func (u *ResumeReview) Request(ctx context.Context, req service.RequestReview, idempotencyKey, requestHash string) (entity.ResumeReview, bool, error) {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" || req.ResumeID == uuid.Nil || req.RequesterID == uuid.Nil {
		return entity.ResumeReview{}, false, service.ErrInvalidReviewRequest
	}

	if idempotencyKey != "" {
		review, found, err := u.replay(ctx, idempotencyKey, requestHash)
		if err != nil || found {
			return review, found, err
		}
	}

	contentHash, err := hashing.ContentHash(map[string]any{
		"resumeId":    req.ResumeID.String(),
		"requesterId": req.RequesterID.String(),
		"content":     req.Content,
	})
	if err != nil {
		return entity.ResumeReview{}, false, err
	}

	now := u.now().UTC()
	review := entity.ResumeReview{
		ID:          uuid.New(),
		ResumeID:    req.ResumeID,
		RequesterID: req.RequesterID,
		Content:     req.Content,
		ContentHash: contentHash,
		Status:      entity.ReviewStatusRequested,
		RequestedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = u.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.reviews.Create(txCtx, &review); err != nil {
			return fmt.Errorf("create review: %w", err)
		}

		payload := ReviewRequestedPayload{
			ReviewID:    review.ID.String(),
			ResumeID:    review.ResumeID.String(),
			RequesterID: review.RequesterID.String(),
			ContentHash: review.ContentHash,
			RequestedAt: review.RequestedAt,
		}
		if err := u.enqueue(txCtx, outbox.ResumeReviewRequested, review.ID, payload); err != nil {
			return err
		}

		if idempotencyKey == "" {
			return nil
		}
		inserted, err := u.reviews.CreateIdempotencyKey(txCtx, entity.IdempotencyKey{
			Key:         idempotencyKey,
			RequestHash: requestHash,
			ReviewID:    review.ID,
			CreatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("store idempotency key: %w", err)
		}
		if !inserted {
			return errIdempotencyRace
		}
		return nil
	})
	if errors.Is(err, errIdempotencyRace) {
		review, found, err := u.replay(ctx, idempotencyKey, requestHash)
		if err == nil && !found {
			err = repository.ErrIdempotencyKeyConflict
		}
		return review, found, err
	}
	if err != nil {
		u.log.WithError(err).Error("request resume review failed")
		return entity.ResumeReview{}, false, err
	}

	u.log.WithFields(logrus.Fields{
		"review_id": review.ID.String(),
		"resume_id": review.ResumeID.String(),
	}).Info("resume review requested")
	return review, false, nil
}

func (u *ResumeReview) replay(ctx context.Context, idempotencyKey, requestHash string) (entity.ResumeReview, bool, error) {
	key, found, err := u.reviews.FindIdempotencyKey(ctx, idempotencyKey)
	if err != nil || !found {
		return entity.ResumeReview{}, false, err
	}
	if key.RequestHash != requestHash {
		return entity.ResumeReview{}, false, repository.ErrIdempotencyKeyConflict
	}
	review, err := u.reviews.GetByID(ctx, key.ReviewID)
	if err != nil {
		return entity.ResumeReview{}, false, err
	}
	return review, true, nil
}

// Complete records the reviewer's feedback and enqueues ResumeReviewCompleted in the
// same transaction. A review can be completed once.
func (u *ResumeReview) Complete(ctx context.Context, id uuid.UUID, req service.CompleteReview) (entity.ResumeReview, error) {
	req.Feedback = strings.TrimSpace(req.Feedback)
	if req.Feedback == "" {
		return entity.ResumeReview{}, service.ErrInvalidReviewRequest
	}
	if req.Score != nil && (*req.Score < 0 || *req.Score > maxReviewScore) {
		return entity.ResumeReview{}, service.ErrInvalidReviewRequest
	}

	var review entity.ResumeReview
	err := u.store.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		review, err = u.reviews.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if review.Status == entity.ReviewStatusCompleted {
			return service.ErrReviewAlreadyCompleted
		}

		now := u.now().UTC()
		review.Status = entity.ReviewStatusCompleted
		review.Feedback = req.Feedback
		review.Score = req.Score
		review.CompletedAt = &now
		review.UpdatedAt = now
		if err := u.reviews.Save(txCtx, &review); err != nil {
			return fmt.Errorf("save review: %w", err)
		}

		payload := ReviewCompletedPayload{
			ReviewID:    review.ID.String(),
			ResumeID:    review.ResumeID.String(),
			RequesterID: review.RequesterID.String(),
			Feedback:    review.Feedback,
			Score:       review.Score,
			CompletedAt: now,
		}
		return u.enqueue(txCtx, outbox.ResumeReviewCompleted, review.ID, payload)
	})
	if err != nil {
		if !errors.Is(err, service.ErrReviewAlreadyCompleted) && !errors.Is(err, repository.ErrNotFound) {
			u.log.WithError(err).WithField("review_id", id.String()).Error("complete resume review failed")
		}
		return entity.ResumeReview{}, err
	}
	return review, nil
}

func (u *ResumeReview) enqueue(ctx context.Context, eventType outbox.EventType, reviewID uuid.UUID, payload any) error {
	hash, err := hashing.ContentHash(payload)
	if err != nil {
		return fmt.Errorf("hash %s payload: %w", eventType.Name(), err)
	}
	event, err := u.factory.BuildEvent(eventType, reviewID.String(), hash, payload)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType.Name(), err)
	}
	if err := u.events.Save(ctx, &event); err != nil {
		return fmt.Errorf("save %s event: %w", eventType.Name(), err)
	}
	return nil
}

func (u *ResumeReview) GetByID(ctx context.Context, id uuid.UUID) (entity.ResumeReview, error) {
	review, err := u.reviews.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			u.log.WithError(err).Error("get resume review failed")
		}
		return entity.ResumeReview{}, err
	}
	return review, nil
}

func (u *ResumeReview) List(ctx context.Context, limit int, cursor string) ([]entity.ResumeReview, string, error) {
	reviews, err := u.reviews.ListCursor(ctx, limit, cursor)
	if err != nil {
		if !errors.Is(err, repository.ErrInvalidCursor) {
			u.log.WithError(err).Error("list resume reviews failed")
		}
		return nil, "", err
	}
	nextCursor := ""
	if len(reviews) > 0 && (limit <= 0 || len(reviews) == limit) {
		last := reviews[len(reviews)-1]
		nextCursor = pagination.Encode(last.CreatedAt, last.ID)
	}
	return reviews, nextCursor, nil
}

// RegisterHooks stamps the review once its events have been published.
func (u *ResumeReview) RegisterHooks(hooks *outbox.Hooks) error {
	if err := hooks.Register(outbox.ResumeReviewRequested, u.onPublished(u.reviews.MarkRequestPublished)); err != nil {
		return err
	}
	return hooks.Register(outbox.ResumeReviewCompleted, u.onPublished(u.reviews.MarkCompletionPublished))
}

func (u *ResumeReview) onPublished(mark func(ctx context.Context, id uuid.UUID, at time.Time) error) outbox.PostPublishHook {
	return func(ctx context.Context, event entity.OutboxEvent) error {
		reviewID, err := uuid.Parse(event.DomainID)
		if err != nil {
			return fmt.Errorf("outbox %s: domain id is not a review id: %w", event.ID, err)
		}
		publishedAt := u.now().UTC()
		if event.PublishedAt != nil {
			publishedAt = *event.PublishedAt
		}
		return mark(ctx, reviewID, publishedAt)
	}
}
