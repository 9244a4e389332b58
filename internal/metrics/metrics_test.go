package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr := NewTracker("run-1", reg)

	tr.SetTotal(4)
	tr.IncrementSkipped()
	tr.RecordProbe(true, 200*time.Millisecond)
	tr.RecordProbe(false, 400*time.Millisecond)
	tr.RecordVerdict(classifier.StatusAcquired)
	tr.RecordVerdict(classifier.StatusClosed)
	tr.RecordVerdict(classifier.StatusUnclear)
	tr.RecordSearch(true)
	tr.RecordSearch(false)
	tr.AddRateLimited(2)
	tr.AddRateLimited(0)
	tr.IncrementAPIDisabled()

	snap := tr.GetSnapshot()
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, 3, snap.CompaniesChecked)
	assert.Equal(t, 1, snap.CompaniesSkipped)
	assert.Equal(t, 1, snap.Closed)
	assert.Equal(t, 1, snap.AcquiredRunning)
	assert.Equal(t, 1, snap.Unclear)
	assert.Equal(t, 1, snap.ProbesOK)
	assert.Equal(t, 1, snap.ProbesFailed)
	assert.Equal(t, int64(300), snap.AvgProbeTimeMs)
	assert.Equal(t, 2, snap.Searches)
	assert.Equal(t, 1, snap.SearchHits)
	assert.Equal(t, 2, snap.RateLimited)
	assert.Equal(t, 1, snap.APIDisabled)

	families, err := reg.Gather()
	require.NoError(t, err)
	counters := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				counters[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, counters["mastatus_companies_total"])
	assert.Equal(t, 2.0, counters["mastatus_search_rate_limited_total"])
	assert.Equal(t, 2.0, counters["mastatus_searches_total"])

	assert.True(t, strings.HasPrefix(tr.LogProgress(), "Companies: 4/4 (1 resumed)"))
}

func TestTracker_WithoutRegistry(t *testing.T) {
	tr := NewTracker("run-1", nil)
	tr.RecordVerdict(classifier.StatusClosed)
	tr.RecordProbe(true, time.Second)
	assert.Equal(t, 1, tr.GetSnapshot().Closed)
}

func TestTracker_WriteToFile(t *testing.T) {
	tr := NewTracker("run-1", nil)
	tr.RecordProbe(true, time.Second)
	path := filepath.Join(t.TempDir(), "metrics.json")

	require.NoError(t, tr.WriteToFile(path, "completed"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m Metrics
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "completed", m.TerminationReason)
	assert.Equal(t, int64(1000), m.AvgProbeTimeMs)
	assert.False(t, m.EndTime.IsZero())
}

func TestSummarize(t *testing.T) {
	verdicts := []classifier.Verdict{
		{Status: classifier.StatusAcquired, AcquirerName: "bigco", AnnouncementLink: "https://www.techcrunch.com/acme"},
		{Status: classifier.StatusAcquired, AnnouncementLink: "https://acme.com/press"},
		{Status: classifier.StatusAcquired},
		{Status: classifier.StatusClosed, AnnouncementLink: "https://reuters.com/acme-acquired"},
		{Status: classifier.StatusUnclear},
	}

	s := Summarize(verdicts, config.DefaultTables().ReliableDomains)

	assert.Equal(t, Summary{
		TotalCompanies:         5,
		AcquiredAndRunning:     3,
		Closed:                 1,
		Unclear:                1,
		WithAnnouncementLinks:  2,
		WithAcquirerIdentified: 1,
		FromReliableSources:    1,
	}, s)
}

func TestSummary_Render(t *testing.T) {
	out := Summary{TotalCompanies: 4, Closed: 1, AcquiredAndRunning: 3}.Render()
	assert.Contains(t, out, "Closed:                 1 (25.0%)")
	assert.Contains(t, out, "Acquired and running:   3 (75.0%)")

	assert.Contains(t, Summary{}.Render(), "Unclear:                0 (0.0%)")
}
