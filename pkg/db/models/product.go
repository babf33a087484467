package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	"gorm.io/gorm"
)

// Product is a catalog artwork.
type Product struct {
	ID          uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string      `gorm:"column:name;not null"`
	Description string      `gorm:"column:description;not null;default:''"`
	PriceCents  money.Money `gorm:"column:price_cents;not null"`
	Category    string      `gorm:"column:category;not null"`
	ImageURLs   []string    `gorm:"column:image_urls;type:jsonb;serializer:json;not null"`
	Medium      *string     `gorm:"column:medium"`
	Dimensions  *string     `gorm:"column:dimensions"`
	IsActive    bool        `gorm:"column:is_active;not null"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

// BeforeCreate assigns an id client-side so inserts behave the same on
// Postgres and on the SQLite test databases.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
