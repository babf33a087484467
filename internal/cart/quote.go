package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/shipping"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

// ProductLookup prices items from the catalog.
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// QuoteInput is the browser cart sent for pricing.
type QuoteInput struct {
	Items    []Item
	Shipping *money.Money
}

// Quote is the server-side view of a cart.
type Quote struct {
	Items                    []Item       `json:"items"`
	Subtotal                 money.Money  `json:"subtotal"`
	Shipping                 *money.Money `json:"shipping,omitempty"`
	Total                    money.Money  `json:"total"`
	Threshold                money.Money  `json:"free_shipping_threshold"`
	QualifiesForFreeShipping bool         `json:"qualifies_for_free_shipping"`
}

// Quoter reprices carts against the catalog.
type Quoter struct {
	products  ProductLookup
	threshold money.Money
}

func NewQuoter(products ProductLookup, threshold money.Money) (*Quoter, error) {
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product lookup required")
	}
	return &Quoter{products: products, threshold: threshold}, nil
}

// Quote applies the cart rules to input. Names, prices and images come from
// the catalog; only ids and quantities are taken from the caller. Inactive
// or unknown products are rejected.
func (q *Quoter) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id").WithDetails(map[string]any{"id": item.ProductID})
		}
		ids = append(ids, id)
	}

	products, err := q.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID.String()] = p
	}

	c := &Cart{}
	for i, item := range input.Items {
		p, ok := byID[ids[i].String()]
		if !ok || !p.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available").WithDetails(map[string]any{"id": item.ProductID})
		}
		line := Item{
			ProductID: p.ID.String(),
			Name:      p.Name,
			Price:     p.PriceCents,
			Quantity:  item.Quantity,
		}
		if len(p.ImageURLs) > 0 {
			line.Image = p.ImageURLs[0]
		}
		if err := c.Add(line); err != nil {
			if errors.Is(err, ErrDuplicateItem) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "item already in cart").WithDetails(map[string]any{"id": item.ProductID})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
	}

	return Summarize(c, q.threshold, input.Shipping), nil
}

// Summarize totals a cart with an optional shipping amount.
func Summarize(c *Cart, threshold money.Money, shippingAmount *money.Money) *Quote {
	quote := &Quote{
		Items:                    c.Items(),
		Subtotal:                 c.Subtotal(),
		Total:                    c.Subtotal(),
		Threshold:                threshold,
		QualifiesForFreeShipping: shipping.QualifiesForFreeShipping(c.Subtotal(), threshold),
	}
	if shippingAmount != nil {
		amount := *shippingAmount
		quote.Shipping = &amount
		quote.Total = quote.Total.Add(amount)
	}
	return quote
}
