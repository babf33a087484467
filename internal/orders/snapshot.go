package orders

import (
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/checkout"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/enums"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/types"
)

// sessionPaid reports whether the hosted session collected payment.
func sessionPaid(sess *stripe.CheckoutSession) bool {
	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
}

// orderFromSession snapshots a paid session. Line items are frozen as they
// were charged, not as the catalog currently shows them.
func orderFromSession(sess *stripe.CheckoutSession, source enums.OrderSource) *models.Order {
	order := &models.Order{
		CustomerEmail:    checkout.SessionEmail(sess),
		Items:            snapshotItems(sess),
		SubtotalCents:    money.FromCents(sess.AmountSubtotal),
		TotalCents:       money.FromCents(sess.AmountTotal),
		Currency:         strings.ToLower(string(sess.Currency)),
		Status:           enums.OrderStatusPaid,
		PaymentSessionID: sess.ID,
		Source:           source,
	}
	if sess.ShippingCost != nil {
		order.ShippingCents = money.FromCents(sess.ShippingCost.AmountTotal)
	}
	if uid := strings.TrimSpace(sess.Metadata[checkout.MetadataUserID]); uid != "" {
		order.UserID = &uid
	}
	if acct := strings.TrimSpace(sess.Metadata[checkout.MetadataConnectedAccount]); acct != "" {
		order.ConnectedAccountID = &acct
	}
	if pi := sess.PaymentIntent; pi != nil && pi.ID != "" {
		id := pi.ID
		order.PaymentIntentID = &id
		order.ShippingAddress = shippingAddress(pi.Shipping)
	}
	if order.Currency == "" {
		order.Currency = "usd"
	}
	return order
}

// orderFromIntent covers intents created outside hosted checkout. The
// intent id stands in for the session id.
func orderFromIntent(pi *stripe.PaymentIntent) *models.Order {
	id := pi.ID
	order := &models.Order{
		CustomerEmail:    pi.ReceiptEmail,
		Items:            []models.OrderItem{},
		SubtotalCents:    money.FromCents(pi.Amount),
		TotalCents:       money.FromCents(pi.Amount),
		Currency:         strings.ToLower(string(pi.Currency)),
		Status:           enums.OrderStatusPaid,
		PaymentSessionID: pi.ID,
		PaymentIntentID:  &id,
		ShippingAddress:  shippingAddress(pi.Shipping),
		Source:           enums.OrderSourceIntent,
	}
	if order.CustomerEmail == "" {
		order.CustomerEmail = pi.Metadata[checkout.MetadataCustomerEmail]
	}
	if uid := strings.TrimSpace(pi.Metadata[checkout.MetadataUserID]); uid != "" {
		order.UserID = &uid
	}
	if pi.TransferData != nil && pi.TransferData.Destination != nil {
		acct := pi.TransferData.Destination.ID
		order.ConnectedAccountID = &acct
	}
	if order.Currency == "" {
		order.Currency = "usd"
	}
	return order
}

func snapshotItems(sess *stripe.CheckoutSession) []models.OrderItem {
	items := []models.OrderItem{}
	if sess.LineItems == nil {
		return items
	}
	for _, li := range sess.LineItems.Data {
		if li == nil {
			continue
		}
		item := models.OrderItem{
			Name:     li.Description,
			Quantity: li.Quantity,
		}
		if li.Quantity > 0 {
			item.UnitPrice = money.FromCents(li.AmountSubtotal / li.Quantity)
		}
		if price := li.Price; price != nil {
			if price.UnitAmount > 0 {
				item.UnitPrice = money.FromCents(price.UnitAmount)
			}
			if p := price.Product; p != nil {
				if p.Name != "" {
					item.Name = p.Name
				}
				if len(p.Images) > 0 {
					item.Image = p.Images[0]
				}
				item.ProductID = p.Metadata[checkout.MetadataProductID]
			}
		}
		items = append(items, item)
	}
	return items
}

func shippingAddress(details *stripe.ShippingDetails) *types.ShippingAddress {
	if details == nil || details.Address == nil {
		return nil
	}
	addr := &types.ShippingAddress{
		Name:       details.Name,
		Line1:      details.Address.Line1,
		Line2:      details.Address.Line2,
		City:       details.Address.City,
		State:      details.Address.State,
		PostalCode: details.Address.PostalCode,
		Country:    details.Address.Country,
	}
	if addr.IsEmpty() {
		return nil
	}
	return addr
}
