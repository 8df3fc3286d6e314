package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func gathered(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			match := true
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					match = false
				}
			}
			if !match {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestObserveOperationSplitsOutcome(t *testing.T) {
	m := New()
	m.ObserveOperation("save", nil)
	m.ObserveOperation("save", nil)
	m.ObserveOperation("save", errors.New("boom"))

	if got := gathered(t, m, "flowdeck_session_operations_total", map[string]string{"op": "save", "outcome": "ok"}); got != 2 {
		t.Fatalf("expected 2 ok saves, got %v", got)
	}
	if got := gathered(t, m, "flowdeck_session_operations_total", map[string]string{"op": "save", "outcome": "error"}); got != 1 {
		t.Fatalf("expected 1 failed save, got %v", got)
	}
}

func TestStreamCountersAndGauge(t *testing.T) {
	m := New()
	m.StreamOpened()
	m.EventDelivered()
	m.EventDelivered()
	m.LineDropped()
	m.StreamFailed()
	m.SetOpenTabs(3)

	cases := map[string]float64{
		"flowdeck_debug_streams_total":              1,
		"flowdeck_debug_stream_events_total":        2,
		"flowdeck_debug_stream_dropped_lines_total": 1,
		"flowdeck_debug_stream_failures_total":      1,
		"flowdeck_session_open_tabs":                3,
	}
	for name, want := range cases {
		if got := gathered(t, m, name, nil); got != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.StreamOpened()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "flowdeck_debug_streams_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
