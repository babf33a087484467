package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Artist caches the seller's connected account status. The payment platform
// remains the source of truth; rows are refreshed from account.updated events.
type Artist struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StripeAccountID  string     `gorm:"column:stripe_account_id;not null;uniqueIndex"`
	Email            *string    `gorm:"column:email"`
	Country          *string    `gorm:"column:country"`
	BusinessName     *string    `gorm:"column:business_name"`
	ChargesEnabled   bool       `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled   bool       `gorm:"column:payouts_enabled;not null;default:false"`
	DetailsSubmitted bool       `gorm:"column:details_submitted;not null;default:false"`
	CurrentlyDue     []string   `gorm:"column:currently_due;type:jsonb;serializer:json;not null"`
	DisabledReason   *string    `gorm:"column:disabled_reason"`
	Onboarded        bool       `gorm:"column:onboarded;not null;default:false"`
	SyncedAt         *time.Time `gorm:"column:synced_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Artist) TableName() string { return "artists" }

func (a *Artist) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
