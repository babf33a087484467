package enums

import "fmt"

// OrderSource records which writer materialized an order.
type OrderSource string

const (
	OrderSourceRedirect OrderSource = "redirect"
	OrderSourceWebhook  OrderSource = "webhook"
	// OrderSourceIntent marks orders for payment intents created outside
	// hosted checkout; they are keyed by the intent id.
	OrderSourceIntent OrderSource = "intent"
)

var validOrderSources = []OrderSource{OrderSourceRedirect, OrderSourceWebhook, OrderSourceIntent}

func (s OrderSource) String() string {
	return string(s)
}

func (s OrderSource) IsValid() bool {
	for _, candidate := range validOrderSources {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseOrderSource(value string) (OrderSource, error) {
	for _, candidate := range validOrderSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order source %q", value)
}
