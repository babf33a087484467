// Package cart holds the shopping-cart rules. The cart itself lives in the
// browser; these rules are shared with the quote endpoint so both sides
// agree on duplicates, quantities and totals.
package cart

import (
	"errors"
	"strings"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

// ErrDuplicateItem is returned when a product is added twice. Each artwork
// is an original, so adding it again never increments the quantity.
var ErrDuplicateItem = errors.New("item already in cart")

// ErrInvalidItem is returned for items without an id or a positive price.
var ErrInvalidItem = errors.New("cart item requires a product id and positive price")

// Item is one product line.
type Item struct {
	ProductID string      `json:"id"`
	Name      string      `json:"name"`
	Price     money.Money `json:"price"`
	Quantity  int64       `json:"quantity"`
	Image     string      `json:"image,omitempty"`
}

// LineTotal is price times quantity.
func (i Item) LineTotal() money.Money {
	return i.Price.Mul(i.Quantity)
}

// Cart is an ordered list of unique items with a running subtotal.
type Cart struct {
	items    []Item
	subtotal money.Money
}

// New builds a cart from items, rejecting duplicates.
func New(items ...Item) (*Cart, error) {
	c := &Cart{}
	for _, item := range items {
		if err := c.Add(item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends item; quantity defaults to 1.
func (c *Cart) Add(item Item) error {
	item.ProductID = strings.TrimSpace(item.ProductID)
	if item.ProductID == "" || !item.Price.IsPositive() {
		return ErrInvalidItem
	}
	if c.index(item.ProductID) >= 0 {
		return ErrDuplicateItem
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	c.items = append(c.items, item)
	c.recompute()
	return nil
}

// Remove drops the product and reports whether it was present.
func (c *Cart) Remove(productID string) bool {
	idx := c.index(strings.TrimSpace(productID))
	if idx < 0 {
		return false
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.recompute()
	return true
}

func (c *Cart) Clear() {
	c.items = nil
	c.recompute()
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Subtotal() money.Money {
	return c.subtotal
}

func (c *Cart) index(productID string) int {
	for i, item := range c.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) recompute() {
	var total money.Money
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	c.subtotal = total
}
