// Package metrics provides Prometheus metrics for scrape runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all coinfeed metrics.
	Namespace = "coinfeed"

	// Subsystem is the subsystem for scraper metrics.
	Subsystem = "scraper"
)

// Article outcomes.
const (
	OutcomeSaved       = "saved"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
	OutcomeAlreadySeen = "already_seen"
)

// Recorder receives scrape events. Metrics implements it; Nop discards them.
type Recorder interface {
	ArticleProcessed(outcome string)
	ContentExtracted(strategy string)
	CandidatesDiscovered(n int)
	RunFinished(interrupted bool, d time.Duration)
}

// Metrics holds the Prometheus collectors for scrape runs.
type Metrics struct {
	ArticlesTotal      *prometheus.CounterVec
	StrategyTotal      *prometheus.CounterVec
	CandidatesTotal    prometheus.Counter
	RunsTotal          *prometheus.CounterVec
	RunDurationSeconds prometheus.Histogram
}

var _ Recorder = (*Metrics)(nil)

// New creates and registers the scraper metrics. A nil registerer uses the
// default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ArticlesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "articles_total",
				Help:      "Articles processed, by outcome",
			},
			[]string{"outcome"},
		),
		StrategyTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "extraction_strategy_total",
				Help:      "Content extractions, by winning strategy",
			},
			[]string{"strategy"},
		),
		CandidatesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "candidates_discovered_total",
				Help:      "Candidate article links discovered",
			},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "runs_total",
				Help:      "Scrape runs, by status",
			},
			[]string{"status"},
		),
		RunDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of scrape runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
	}
}

func (m *Metrics) ArticleProcessed(outcome string) {
	m.ArticlesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ContentExtracted(strategy string) {
	if strategy == "" {
		strategy = "none"
	}
	m.StrategyTotal.WithLabelValues(strategy).Inc()
}

func (m *Metrics) CandidatesDiscovered(n int) {
	m.CandidatesTotal.Add(float64(n))
}

func (m *Metrics) RunFinished(interrupted bool, d time.Duration) {
	status := "completed"
	if interrupted {
		status = "interrupted"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDurationSeconds.Observe(d.Seconds())
}

// Nop is a Recorder that records nothing.
type Nop struct{}

func (Nop) ArticleProcessed(string)         {}
func (Nop) ContentExtracted(string)         {}
func (Nop) CandidatesDiscovered(int)        {}
func (Nop) RunFinished(bool, time.Duration) {}
