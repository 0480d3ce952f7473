package service

import (
	"context"
	"errors"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/google/uuid"
)

var (
	ErrReviewAlreadyCompleted = errors.New("resume review already completed")
	ErrInvalidReviewRequest   = errors.New("invalid resume review request")
	ErrInvalidOutboxStatus    = errors.New("invalid outbox status")
)

type RequestReview struct {
	RequesterID uuid.UUID
	ResumeID    uuid.UUID
	Content     string
}

type CompleteReview struct {
	Feedback string
	Score    *int
}

type ResumeReviewService interface {
	// Request returns replayed=true when idempotencyKey was already used for the same request.
	Request(ctx context.Context, req RequestReview, idempotencyKey, requestHash string) (review entity.ResumeReview, replayed bool, err error)
	Complete(ctx context.Context, id uuid.UUID, req CompleteReview) (entity.ResumeReview, error)
	GetByID(ctx context.Context, id uuid.UUID) (entity.ResumeReview, error)
	List(ctx context.Context, limit int, cursor string) ([]entity.ResumeReview, string, error)
}

type OutboxService interface {
	List(ctx context.Context, status string, limit int) ([]entity.OutboxEvent, error)
}

type InboxService interface {
	// Consume records a delivered message; duplicate reports a dedup key seen before.
	Consume(ctx context.Context, msg entity.ConsumedMessage) (duplicate bool, err error)
}
