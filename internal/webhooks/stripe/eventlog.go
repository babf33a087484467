package stripewebhook

import (
	"context"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

// EventLog keeps one row per verified event id; a retried event
// overwrites its previous outcome.
type EventLog interface {
	Record(ctx context.Context, event *models.WebhookEvent) error
	FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error)
}

type eventLog struct {
	db *gorm.DB
}

func NewEventLog(db *gorm.DB) EventLog {
	return &eventLog{db: db}
}

func (l *eventLog) Record(ctx context.Context, event *models.WebhookEvent) error {
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"outcome", "error", "processed_at"}),
		}).
		Create(event).Error
}

func (l *eventLog) FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var row models.WebhookEvent
	if err := l.db.WithContext(ctx).Where("event_id = ?", eventID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
