package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusPublished OutboxStatus = "PUBLISHED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// CanTransitionTo reports whether the poller may move a record from status to next.
// PUBLISHED is terminal.
func (status OutboxStatus) CanTransitionTo(next OutboxStatus) bool {
	switch status {
	case OutboxStatusPending, OutboxStatusFailed:
		return next == OutboxStatusPublished || next == OutboxStatusFailed
	default:
		return false
	}
}

func (status OutboxStatus) IsValid() bool {
	switch status {
	case OutboxStatusPending, OutboxStatusPublished, OutboxStatusFailed:
		return true
	default:
		return false
	}
}

// OutboxEvent is a domain event waiting to be delivered to the broker. Exchange and
// RoutingKey are resolved when the record is built and never re-resolved.
type OutboxEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventType   string         `gorm:"not null" json:"event_type"`
	Exchange    string         `gorm:"not null" json:"exchange"`
	RoutingKey  string         `gorm:"not null" json:"routing_key"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	DedupKey    string         `gorm:"not null;index" json:"dedup_key"`
	DomainID    string         `gorm:"not null;index" json:"domain_id"`
	Status      OutboxStatus   `gorm:"type:varchar(16);not null;index:idx_outbox_events_status_created_at,priority:1" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	NextRetryAt *time.Time     `json:"next_retry_at,omitempty"`
	LastError   string         `json:"last_error,omitempty"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_outbox_events_status_created_at,priority:2" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
