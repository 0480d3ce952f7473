package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ConsumedMessage is the consumer-side inbox row. DedupKey is the primary key, so a
// redelivered message is detected by the insert.
type ConsumedMessage struct {
	DedupKey   string         `gorm:"primaryKey"`
	MessageID  string         `gorm:"not null"`
	EventType  string         `gorm:"not null"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
	ConsumedAt time.Time      `gorm:"not null"`
}

func (ConsumedMessage) TableName() string {
	return "consumed_messages"
}
