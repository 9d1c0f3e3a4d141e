package runtime

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metric:
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveInbound()
	m.ObserveInbound()
	m.ObserveDispatch(OutcomeHandled)
	m.ObserveDispatch(OutcomeOverflow)
	m.ObserveDispatch(OutcomeOverflow)
	m.ObservePublished()

	if got := counterValue(t, reg, "devlink_inbound_messages_total", nil); got != 2 {
		t.Errorf("inbound counter = %v, want 2", got)
	}
	if got := counterValue(t, reg, "devlink_rpc_dispatches_total", map[string]string{"outcome": OutcomeHandled}); got != 1 {
		t.Errorf("handled counter = %v, want 1", got)
	}
	if got := counterValue(t, reg, "devlink_rpc_dispatches_total", map[string]string{"outcome": OutcomeOverflow}); got != 2 {
		t.Errorf("overflow counter = %v, want 2", got)
	}
	if got := counterValue(t, reg, "devlink_published_responses_total", nil); got != 1 {
		t.Errorf("published counter = %v, want 1", got)
	}
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics

	// Must not panic.
	m.ObserveInbound()
	m.ObserveDispatch(OutcomeHandled)
	m.ObservePublished()
}

func TestNewMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveDispatch(OutcomeHandled)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"devlink_inbound_messages_total",
		"devlink_rpc_dispatches_total",
		"devlink_published_responses_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered; got %v", want, names)
		}
	}
}
