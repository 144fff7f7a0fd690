package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"threatcomposer/internal/composer"
)

func TestObserveRenderCountsByCase(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	c.ObserveRender(composer.Info{Case: composer.CaseSingle}, 1, 0)
	c.ObserveRender(composer.Info{Case: composer.CaseMultiple, FormatFound: true}, 3, 2)
	c.ObserveRender(composer.Info{Case: composer.CaseMultiple}, 2, 0)
	c.DecodeError()

	if got := testutil.ToFloat64(c.composed.WithLabelValues("multiple")); got != 2 {
		t.Fatalf("expected 2 multiple renders, got %v", got)
	}
	if got := testutil.ToFloat64(c.composed.WithLabelValues("single")); got != 1 {
		t.Fatalf("expected 1 single render, got %v", got)
	}
	if got := testutil.ToFloat64(c.formatMisses); got != 1 {
		t.Fatalf("expected 1 format miss, got %v", got)
	}
	if got := testutil.ToFloat64(c.tags); got != 2 {
		t.Fatalf("expected 2 tags, got %v", got)
	}
	if got := testutil.ToFloat64(c.decodeErrors); got != 1 {
		t.Fatalf("expected 1 decode error, got %v", got)
	}
	if n := testutil.CollectAndCount(c.suggestions); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveRender(composer.Info{Case: composer.CaseEmpty}, 0, 0)
	c.DecodeError()
}
