package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReviewStatus string

const (
	ReviewStatusRequested ReviewStatus = "REQUESTED"
	ReviewStatusCompleted ReviewStatus = "COMPLETED"
)

type ResumeReview struct {
	ID                    uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ResumeID              uuid.UUID    `gorm:"type:uuid;not null;index" json:"resume_id"`
	RequesterID           uuid.UUID    `gorm:"type:uuid;not null;index" json:"requester_id"`
	Content               string       `gorm:"type:text;not null" json:"content"`
	ContentHash           string       `gorm:"not null" json:"content_hash"`
	Status                ReviewStatus `gorm:"type:varchar(16);not null" json:"status"`
	Feedback              string       `gorm:"type:text" json:"feedback,omitempty"`
	Score                 *int         `json:"score,omitempty"`
	RequestedAt           time.Time    `gorm:"not null" json:"requested_at"`
	CompletedAt           *time.Time   `json:"completed_at,omitempty"`
	RequestPublishedAt    *time.Time   `json:"request_published_at,omitempty"`
	CompletionPublishedAt *time.Time   `json:"completion_published_at,omitempty"`
	CreatedAt             time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time    `gorm:"not null" json:"updated_at"`
}

func (ResumeReview) TableName() string {
	return "resume_reviews"
}
