package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookEvent is the audit log of every verified payment-platform event.
type WebhookEvent struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     string     `gorm:"column:event_id;not null;uniqueIndex"`
	Type        string     `gorm:"column:type;not null"`
	Kind        string     `gorm:"column:kind;not null"`
	AccountID   *string    `gorm:"column:account_id"`
	ObjectID    *string    `gorm:"column:object_id"`
	Outcome     string     `gorm:"column:outcome;not null"`
	Error       *string    `gorm:"column:error"`
	ReceivedAt  time.Time  `gorm:"column:received_at;not null"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

func (e *WebhookEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
