package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds run statistics for export on exit
type Metrics struct {
	RunID             string    `json:"run_id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	CompaniesTotal    int       `json:"companies_total"`
	CompaniesChecked  int       `json:"companies_checked"`
	CompaniesSkipped  int       `json:"companies_skipped"`
	Closed            int       `json:"closed"`
	AcquiredRunning   int       `json:"acquired_and_running"`
	Unclear           int       `json:"unclear"`
	ProbesOK          int       `json:"probes_ok"`
	ProbesFailed      int       `json:"probes_failed"`
	TotalProbeTimeMs  int64     `json:"total_probe_time_ms"`
	AvgProbeTimeMs    int64     `json:"avg_probe_time_ms"`
	Searches          int       `json:"searches"`
	SearchHits        int       `json:"search_hits"`
	RateLimited       int       `json:"rate_limited"`
	APIDisabled       int       `json:"api_disabled"`
	TerminationReason string    `json:"termination_reason"`
}

// collectors mirror the tracker counters for scraping while a run is live.
type collectors struct {
	companies   *prometheus.CounterVec
	probes      *prometheus.CounterVec
	probeTime   prometheus.Histogram
	searches    *prometheus.CounterVec
	rateLimited prometheus.Counter
}

func newCollectors(reg prometheus.Registerer) *collectors {
	factory := promauto.With(reg)
	return &collectors{
		companies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mastatus_companies_total",
			Help: "Companies classified, by verdict status.",
		}, []string{"status"}),
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mastatus_probes_total",
			Help: "Website probes, by result.",
		}, []string{"result"}),
		probeTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mastatus_probe_duration_seconds",
			Help:    "Duration of website probes including retries.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}),
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mastatus_searches_total",
			Help: "Corroborating searches, by result.",
		}, []string{"result"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "mastatus_search_rate_limited_total",
			Help: "Search responses rejected with 429.",
		}),
	}
}

// Tracker holds and manages run metrics
type Tracker struct {
	mu   sync.Mutex
	data Metrics
	prom *collectors
}

// NewTracker creates a new metrics tracker. When reg is nil no Prometheus
// collectors are registered.
func NewTracker(runID string, reg prometheus.Registerer) *Tracker {
	t := &Tracker{
		data: Metrics{
			RunID:     runID,
			StartTime: time.Now(),
		},
	}
	if reg != nil {
		t.prom = newCollectors(reg)
	}
	return t
}

// SetTotal records how many companies the run covers
func (t *Tracker) SetTotal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CompaniesTotal = n
}

// IncrementSkipped counts a company resumed from storage
func (t *Tracker) IncrementSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CompaniesSkipped++
}

// RecordVerdict counts a classified company by status
func (t *Tracker) RecordVerdict(status classifier.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CompaniesChecked++
	switch status {
	case classifier.StatusClosed:
		t.data.Closed++
	case classifier.StatusAcquired:
		t.data.AcquiredRunning++
	default:
		t.data.Unclear++
	}
	if t.prom != nil {
		t.prom.companies.WithLabelValues(string(status)).Inc()
	}
}

// RecordProbe records a probe result and its duration
func (t *Tracker) RecordProbe(reachable bool, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := "ok"
	if reachable {
		t.data.ProbesOK++
	} else {
		t.data.ProbesFailed++
		result = "failed"
	}
	t.data.TotalProbeTimeMs += duration.Milliseconds()
	if t.prom != nil {
		t.prom.probes.WithLabelValues(result).Inc()
		t.prom.probeTime.Observe(duration.Seconds())
	}
}

// RecordSearch records one corroborating search
func (t *Tracker) RecordSearch(hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Searches++
	result := "miss"
	if hit {
		t.data.SearchHits++
		result = "hit"
	}
	if t.prom != nil {
		t.prom.searches.WithLabelValues(result).Inc()
	}
}

// AddRateLimited adds n rate-limited search responses
func (t *Tracker) AddRateLimited(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.RateLimited += n
	if t.prom != nil {
		t.prom.rateLimited.Add(float64(n))
	}
}

// IncrementAPIDisabled counts the search API being switched off
func (t *Tracker) IncrementAPIDisabled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.APIDisabled++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Tracker) snapshot() Metrics {
	snapshot := t.data
	if probes := t.data.ProbesOK + t.data.ProbesFailed; probes > 0 {
		snapshot.AvgProbeTimeMs = t.data.TotalProbeTimeMs / int64(probes)
	}
	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finalize metrics
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.data = t.snapshot()

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	done := t.data.CompaniesChecked + t.data.CompaniesSkipped
	return fmt.Sprintf("Companies: %d/%d (%d resumed) | Closed: %d, Acquired: %d, Unclear: %d | Probes: %d ok, %d failed | Searches: %d (%d hits, %d rate limited)",
		done,
		t.data.CompaniesTotal,
		t.data.CompaniesSkipped,
		t.data.Closed,
		t.data.AcquiredRunning,
		t.data.Unclear,
		t.data.ProbesOK,
		t.data.ProbesFailed,
		t.data.Searches,
		t.data.SearchHits,
		t.data.RateLimited,
	)
}
