package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStorefrontExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefront(reg)

	m.WebhookEvent("payment_succeeded", "processed", 120*time.Millisecond)
	m.OrderWritten("webhook", true)
	m.OrderWritten("redirect", false)
	m.Confirmation("confirmed")
	m.CheckoutCreated(true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name, label, value string
	}{
		{"webhook_events_total", "kind", "payment_succeeded"},
		{"orders_created_total", "source", "webhook"},
		{"orders_duplicate_total", "source", "redirect"},
		{"order_confirmations_total", "state", "confirmed"},
		{"checkout_sessions_created_total", "mode", "marketplace"},
	}
	for _, c := range checks {
		got, err := fetchCounterValue(mfs, c.name, c.label, c.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", c.name, err)
		}
		if got != 1 {
			t.Fatalf("expected %s=1, got %f", c.name, got)
		}
	}

	if got, err := fetchHistogramSum(mfs, "webhook_handler_duration_seconds", "kind", "payment_succeeded"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilStorefrontIsSafe(t *testing.T) {
	var m *Storefront
	m.WebhookEvent("x", "y", time.Second)
	m.OrderWritten("webhook", true)
	m.Confirmation("error")
	m.CheckoutCreated(false)

	unregistered := NewStorefront(nil)
	unregistered.OrderWritten("webhook", false)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
