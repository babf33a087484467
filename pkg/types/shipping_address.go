package types

import "strings"

// ShippingAddress is the delivery address captured by the hosted checkout.
type ShippingAddress struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IsEmpty reports whether no street-level data was captured.
func (a *ShippingAddress) IsEmpty() bool {
	return a == nil || (strings.TrimSpace(a.Line1) == "" && strings.TrimSpace(a.City) == "" && strings.TrimSpace(a.PostalCode) == "")
}
