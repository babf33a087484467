package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/enums"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/types"
)

// OrderDTO is the API view of an order.
type OrderDTO struct {
	ID                 uuid.UUID              `json:"id"`
	UserID             *string                `json:"user_id,omitempty"`
	CustomerEmail      string                 `json:"customer_email"`
	Items              []models.OrderItem     `json:"items"`
	Subtotal           money.Money            `json:"subtotal"`
	Shipping           money.Money            `json:"shipping"`
	Total              money.Money            `json:"total"`
	Currency           string                 `json:"currency"`
	Status             enums.OrderStatus      `json:"status"`
	PaymentSessionID   string                 `json:"payment_session_id"`
	PaymentIntentID    *string                `json:"payment_intent_id,omitempty"`
	ConnectedAccountID *string                `json:"connected_account_id,omitempty"`
	ShippingAddress    *types.ShippingAddress `json:"shipping_address,omitempty"`
	Source             enums.OrderSource      `json:"source"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// Result reports the stored order and whether this call created it.
type Result struct {
	Order   *OrderDTO `json:"order"`
	Created bool      `json:"created"`
}

func toDTO(o *models.Order) *OrderDTO {
	items := o.Items
	if items == nil {
		items = []models.OrderItem{}
	}
	return &OrderDTO{
		ID:                 o.ID,
		UserID:             o.UserID,
		CustomerEmail:      o.CustomerEmail,
		Items:              items,
		Subtotal:           o.SubtotalCents,
		Shipping:           o.ShippingCents,
		Total:              o.TotalCents,
		Currency:           o.Currency,
		Status:             o.Status,
		PaymentSessionID:   o.PaymentSessionID,
		PaymentIntentID:    o.PaymentIntentID,
		ConnectedAccountID: o.ConnectedAccountID,
		ShippingAddress:    o.ShippingAddress,
		Source:             o.Source,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}
