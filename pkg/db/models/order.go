package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/enums"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/types"
	"gorm.io/gorm"
)

// OrderItem is a line item frozen at purchase time. It never follows later
// catalog edits.
type OrderItem struct {
	ProductID string      `json:"product_id,omitempty"`
	Name      string      `json:"name"`
	UnitPrice money.Money `json:"unit_price"`
	Quantity  int64       `json:"quantity"`
	Image     string      `json:"image,omitempty"`
}

// Order is created exactly once per checkout session; payment_session_id is unique.
type Order struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             *string                `gorm:"column:user_id"`
	CustomerEmail      string                 `gorm:"column:customer_email;not null"`
	Items              []OrderItem            `gorm:"column:items;type:jsonb;serializer:json;not null"`
	SubtotalCents      money.Money            `gorm:"column:subtotal_cents;not null"`
	ShippingCents      money.Money            `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents         money.Money            `gorm:"column:total_cents;not null"`
	Currency           string                 `gorm:"column:currency;not null;default:'usd'"`
	Status             enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'paid'"`
	PaymentSessionID   string                 `gorm:"column:payment_session_id;not null;uniqueIndex"`
	PaymentIntentID    *string                `gorm:"column:payment_intent_id"`
	ConnectedAccountID *string                `gorm:"column:connected_account_id"`
	ShippingAddress    *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Source             enums.OrderSource      `gorm:"column:source;not null"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ItemCount sums quantities across line items.
func (o *Order) ItemCount() int64 {
	var n int64
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
