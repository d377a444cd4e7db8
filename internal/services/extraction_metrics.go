package services

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"desmoines-weekly-events/internal/extraction"
	"desmoines-weekly-events/internal/models"
)

// ExtractionMetrics exports generation and refresh counters to Prometheus.
// It observes extraction runs and records per-source refresh results.
type ExtractionMetrics struct {
	attempts       prometheus.Counter
	outcomes       *prometheus.CounterVec
	rejected       prometheus.Counter
	fallbacks      prometheus.Counter
	attemptSeconds prometheus.Histogram
	sourceEvents   *prometheus.GaugeVec
	sourceFailures *prometheus.CounterVec

	mu      sync.Mutex
	summary MetricsSummary
}

// MetricsSummary is a point-in-time view of the recorded values
type MetricsSummary struct {
	Attempts int `json:"attempts"`
	Accepted int `json:"accepted"`
	Failed   int `json:"failed"`
	Retries  int `json:"retries"`
	Rejected int `json:"rejected"`

	// GenerationSeconds is the total time spent waiting on the generator
	GenerationSeconds float64 `json:"generationSeconds"`

	SourceEvents map[string]int `json:"sourceEvents"`
	SourceErrors map[string]int `json:"sourceErrors"`
	LastUpdated  time.Time      `json:"lastUpdated"`
}

// NewExtractionMetrics creates the collectors and registers them with reg.
// A nil registerer leaves the collectors unregistered.
func NewExtractionMetrics(reg prometheus.Registerer) *ExtractionMetrics {
	m := &ExtractionMetrics{
		summary: MetricsSummary{
			SourceEvents: make(map[string]int),
			SourceErrors: make(map[string]int),
		},
	}

	m.attempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "weekly_events",
		Name:      "generation_attempts_total",
		Help:      "Generation attempts issued by the retry controller",
	})
	m.outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weekly_events",
		Name:      "extraction_outcomes_total",
		Help:      "Extraction attempt outcomes by resulting state",
	}, []string{"state"})
	m.rejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "weekly_events",
		Name:      "rejected_events_total",
		Help:      "Events dropped by the validator",
	})
	m.fallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "weekly_events",
		Name:      "fallback_scans_total",
		Help:      "Responses parsed by the whole-document scanner",
	})
	m.attemptSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "weekly_events",
		Name:      "generation_attempt_seconds",
		Help:      "Wall time of one generation attempt",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90},
	})
	m.sourceEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "weekly_events",
		Name:      "source_events",
		Help:      "Events contributed by each source in the last refresh",
	}, []string{"source"})
	m.sourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weekly_events",
		Name:      "source_failures_total",
		Help:      "Refresh source failures",
	}, []string{"source"})

	if reg != nil {
		reg.MustRegister(
			m.attempts,
			m.outcomes,
			m.rejected,
			m.fallbacks,
			m.attemptSeconds,
			m.sourceEvents,
			m.sourceFailures,
		)
	}
	return m
}

// OnTransition implements extraction.Observer
func (m *ExtractionMetrics) OnTransition(t extraction.Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch t.To {
	case extraction.StateAwaitingResponse:
		m.attempts.Inc()
		m.summary.Attempts++
	case extraction.StateParsing:
		m.attemptSeconds.Observe(t.AttemptElapsed.Seconds())
		m.summary.GenerationSeconds += t.AttemptElapsed.Seconds()
	case extraction.StateValidating:
		if t.UsedFallback {
			m.fallbacks.Inc()
		}
	case extraction.StateRetrying:
		m.outcomes.WithLabelValues(t.To.String()).Inc()
		m.rejected.Add(float64(len(t.Rejected)))
		m.summary.Retries++
		m.summary.Rejected += len(t.Rejected)
	case extraction.StateAccepted:
		m.outcomes.WithLabelValues(t.To.String()).Inc()
		m.rejected.Add(float64(len(t.Rejected)))
		m.summary.Accepted++
		m.summary.Rejected += len(t.Rejected)
	case extraction.StateFailed:
		m.outcomes.WithLabelValues(t.To.String()).Inc()
		m.summary.Failed++
		if t.From == extraction.StateValidating {
			m.rejected.Add(float64(len(t.Rejected)))
			m.summary.Rejected += len(t.Rejected)
		}
	}
	m.summary.LastUpdated = time.Now()
}

// RecordSource records one source's contribution to a refresh
func (m *ExtractionMetrics) RecordSource(result models.SourceResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sourceEvents.WithLabelValues(result.Name).Set(float64(result.EventsFound))
	m.summary.SourceEvents[result.Name] = result.EventsFound
	if !result.Success {
		m.sourceFailures.WithLabelValues(result.Name).Inc()
		m.summary.SourceErrors[result.Name]++
	}
	m.summary.LastUpdated = time.Now()

	log.Printf("[METRICS] Recorded source: %s, Success=%t, Events=%d, Time=%dms",
		result.Name, result.Success, result.EventsFound, result.Duration)
}

// Summary returns a copy of the recorded values
func (m *ExtractionMetrics) Summary() MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.summary
	s.SourceEvents = make(map[string]int, len(m.summary.SourceEvents))
	for k, v := range m.summary.SourceEvents {
		s.SourceEvents[k] = v
	}
	s.SourceErrors = make(map[string]int, len(m.summary.SourceErrors))
	for k, v := range m.summary.SourceErrors {
		s.SourceErrors[k] = v
	}
	return s
}
