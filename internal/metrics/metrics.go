// Package metrics exposes Prometheus counters for the curation pipeline and
// keeps the health state served on the monitoring port.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CandidatesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newscurator_candidates_fetched_total",
			Help: "Candidates returned by each source adapter",
		},
		[]string{"source"},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newscurator_source_failures_total",
			Help: "Source adapters that were unreachable during a run",
		},
		[]string{"source"},
	)

	CandidatesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newscurator_candidates_filtered_total",
			Help: "Candidates dropped before selection, by reason",
		},
		[]string{"reason"},
	)

	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newscurator_classifier_calls_total",
			Help: "Selections per feed by outcome (classified, fallback, under_supply)",
		},
		[]string{"feed", "outcome"},
	)

	SelectionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "newscurator_selection_size",
			Help: "Articles selected for each feed in the last run",
		},
		[]string{"feed"},
	)

	SelectionAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newscurator_selection_adjustments_total",
			Help: "Post-classification adjustments by kind (backfilled, diversity_removed, diversity_readded, minimum_swaps)",
		},
		[]string{"feed", "kind"},
	)

	ArticlesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newscurator_articles_persisted_total",
			Help: "Selected articles written to storage (saved or conflict)",
		},
		[]string{"result"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newscurator_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

// Health tracks the outcome of pipeline runs for /health.
type Health struct {
	mu sync.RWMutex

	Runs                  int64
	LastRunTime           time.Time
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	LastErrorTime         time.Time
	LastError             string
	IsHealthy             bool
}

var Global = &Health{IsHealthy: true}

// RecordRun stores a finished run. A nil err marks the process healthy again.
func (h *Health) RecordRun(d time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Runs++
	h.LastRunTime = time.Now()
	h.LastProcessingTime = d
	h.TotalProcessingTime += d
	h.AverageProcessingTime = h.TotalProcessingTime / time.Duration(h.Runs)

	if err != nil {
		h.LastError = err.Error()
		h.LastErrorTime = h.LastRunTime
		h.IsHealthy = false
		return
	}
	h.IsHealthy = true
}

func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.IsHealthy
}

func (h *Health) GetStats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := map[string]interface{}{
		"runs":                       h.Runs,
		"last_processing_time_ms":    h.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": h.AverageProcessingTime.Milliseconds(),
		"last_error":                 h.LastError,
		"is_healthy":                 h.IsHealthy,
		"last_run_time":              "",
		"last_error_time":            "",
	}
	if !h.LastRunTime.IsZero() {
		stats["last_run_time"] = h.LastRunTime.Format(time.RFC3339)
	}
	if !h.LastErrorTime.IsZero() {
		stats["last_error_time"] = h.LastErrorTime.Format(time.RFC3339)
	}
	return stats
}
