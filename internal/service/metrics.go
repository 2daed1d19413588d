package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/szz00712/bibliometrix/internal/thematic"
)

// Build outcomes recorded on builds_total.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid_input"
	OutcomeAlignment = "alignment"
	OutcomeEmpty     = "empty_result"
	OutcomeError     = "error"
)

// buildMetrics holds Prometheus metrics for map builds.
type buildMetrics struct {
	builds      *prometheus.CounterVec // by outcome
	duration    prometheus.Histogram
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// newBuildMetrics creates and registers build metrics. A nil registerer
// disables metrics.
func newBuildMetrics(reg prometheus.Registerer) (*buildMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &buildMetrics{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thematicmap",
			Subsystem: "builds",
			Name:      "total",
			Help:      "Thematic map builds by outcome",
		}, []string{"outcome"}),

		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "thematicmap",
			Subsystem: "builds",
			Name:      "duration_seconds",
			Help:      "Thematic map build duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thematicmap",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Map requests served from the result cache",
		}),

		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thematicmap",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Map requests that required a build",
		}),
	}

	for _, c := range []prometheus.Collector{m.builds, m.duration, m.cacheHits, m.cacheMisses} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *buildMetrics) observe(seconds float64, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
	m.builds.WithLabelValues(outcomeOf(err)).Inc()
}

func (m *buildMetrics) cache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, thematic.ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, thematic.ErrAlignment):
		return OutcomeAlignment
	case errors.Is(err, thematic.ErrEmptyResult):
		return OutcomeEmpty
	default:
		return OutcomeError
	}
}
