package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"threatcomposer/internal/composer"
)

const namespace = "threatcomposer"

// Collector records composer outcomes.
type Collector struct {
	composed     *prometheus.CounterVec
	formatMisses prometheus.Counter
	suggestions  prometheus.Histogram
	decodeErrors prometheus.Counter
	tags         prometheus.Counter
}

// New creates a collector and registers it on reg. A nil reg leaves the
// collector unregistered.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		composed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_composed_total",
			Help:      "Statements composed, by render case.",
		}, []string{"case"}),
		formatMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "format_misses_total",
			Help:      "Multi-field statements whose combination has no format entry.",
		}),
		suggestions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggestions",
			Help:      "Suggestions returned per composed statement.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Payloads that could not be decoded into a statement.",
		}),
		tags: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tags_total",
			Help:      "Rule tags attached to composed statements.",
		}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.composed, c.formatMisses, c.suggestions, c.decodeErrors, c.tags} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveRender records one composed statement.
func (c *Collector) ObserveRender(info composer.Info, suggestions, tags int) {
	if c == nil {
		return
	}
	c.composed.WithLabelValues(string(info.Case)).Inc()
	if info.Case == composer.CaseMultiple && !info.FormatFound {
		c.formatMisses.Inc()
	}
	c.suggestions.Observe(float64(suggestions))
	c.tags.Add(float64(tags))
}

// DecodeError records an undecodable payload.
func (c *Collector) DecodeError() {
	if c == nil {
		return
	}
	c.decodeErrors.Inc()
}
