package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records checkout, order and webhook activity. A nil
// *Storefront is valid and records nothing.
type Storefront struct {
	webhookEvents   *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
	ordersCreated   *prometheus.CounterVec
	ordersDuplicate *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	checkoutCreated *prometheus.CounterVec
}

// NewStorefront registers the storefront metrics on the provided registerer.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	m := &Storefront{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Verified payment webhook events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		webhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webhook_handler_duration_seconds",
			Help:    "Time spent running webhook handlers.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders inserted, by the writer that won.",
		}, []string{"source"}),
		ordersDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_duplicate_total",
			Help: "Order creations that found an existing order for the session.",
		}, []string{"source"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_confirmations_total",
			Help: "Redirect-back confirmations by resulting state.",
		}, []string{"state"}),
		checkoutCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_sessions_created_total",
			Help: "Checkout sessions created, split by marketplace or direct charge.",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.webhookEvents, m.webhookDuration, m.ordersCreated, m.ordersDuplicate, m.reconciliations, m.checkoutCreated)
	return m
}

func (m *Storefront) WebhookEvent(kind, outcome string, took time.Duration) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
	m.webhookDuration.WithLabelValues(normalizeLabel(kind)).Observe(took.Seconds())
}

// OrderWritten counts an order creation attempt; created is false when the
// session already had an order.
func (m *Storefront) OrderWritten(source string, created bool) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	if created {
		m.ordersCreated.WithLabelValues(normalizeLabel(source)).Inc()
		return
	}
	m.ordersDuplicate.WithLabelValues(normalizeLabel(source)).Inc()
}

func (m *Storefront) Confirmation(state string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(state)).Inc()
}

func (m *Storefront) CheckoutCreated(marketplace bool) {
	if m == nil || m.checkoutCreated == nil {
		return
	}
	mode := "direct"
	if marketplace {
		mode = "marketplace"
	}
	m.checkoutCreated.WithLabelValues(mode).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
