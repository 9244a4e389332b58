package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/config"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/metrics"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/probe"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/records"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/search"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	mu       sync.Mutex
	calls    []string
	panicOn  string
	onCall   func(n int)
	statuses map[string]classifier.Status
}

func (f *fakeClassifier) Classify(_ context.Context, c records.Company, st *search.State) classifier.Verdict {
	f.mu.Lock()
	f.calls = append(f.calls, c.Name)
	n := len(f.calls)
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(n)
	}
	if c.Name == f.panicOn {
		panic("boom")
	}
	if st == nil {
		panic("no search state")
	}

	status, ok := f.statuses[c.Name]
	if !ok {
		status = classifier.StatusAcquired
	}
	return classifier.Verdict{
		CompanyName:     c.Name,
		OriginalWebsite: c.Website,
		Status:          status,
		Confidence:      0.6,
		Notes:           classifier.NotesNoAcquisition,
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DelayMs = 0
	cfg.CheckpointEvery = 2
	cfg.DBPath = filepath.Join(dir, "test.db")
	cfg.CheckpointPath = filepath.Join(dir, "temp.csv")
	return cfg
}

func newTestRunner(t *testing.T, cfg *config.Config, cls Classifier) (*Runner, *storage.Storage, *metrics.Tracker) {
	t.Helper()
	store, err := storage.NewStorage(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tracker := metrics.NewTracker("run-1", nil)
	return New(cfg, store, cls, tracker, search.NewStateFromConfig(cfg), "run-1"), store, tracker
}

func companies() []records.Company {
	return []records.Company{
		{Name: "Acme", Website: "https://acme.com"},
		{Name: "Globex", Website: "https://globex.com"},
		{Name: "Initech", Website: "https://initech.com"},
	}
}

func TestRun_ClassifiesAllInOrder(t *testing.T) {
	cfg := testConfig(t)
	cls := &fakeClassifier{statuses: map[string]classifier.Status{"Globex": classifier.StatusClosed}}
	r, store, tracker := newTestRunner(t, cfg, cls)

	res, err := r.Run(context.Background(), companies(), false)
	require.NoError(t, err)

	assert.Equal(t, ReasonCompleted, res.TerminationReason)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, []string{"Acme", "Globex", "Initech"}, cls.calls)
	require.Len(t, res.Verdicts, 3)
	assert.Equal(t, classifier.StatusClosed, res.Verdicts[1].Status)

	stored, err := store.LoadVerdicts()
	require.NoError(t, err)
	assert.Equal(t, res.Verdicts, stored)

	run, err := store.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 3, run.Processed)
	assert.Equal(t, ReasonCompleted, run.TerminationReason)

	_, err = os.Stat(cfg.CheckpointPath)
	assert.NoError(t, err, "checkpoint file written after two companies")

	snap := tracker.GetSnapshot()
	assert.Equal(t, 3, snap.CompaniesTotal)
	assert.Equal(t, 1, snap.Closed)
	assert.Equal(t, 2, snap.AcquiredRunning)
}

func TestRun_ResumesFromStorage(t *testing.T) {
	cfg := testConfig(t)
	r, store, tracker := newTestRunner(t, cfg, &fakeClassifier{})

	previous := classifier.Verdict{CompanyName: "Acme", OriginalWebsite: "https://acme.com", Status: classifier.StatusClosed, Confidence: 0.8, Notes: "site unreachable"}
	require.NoError(t, store.UpsertVerdicts("run-0", []storage.Entry{
		{Key: companies()[0].Key(), Position: 0, Verdict: previous},
	}))

	cls := &fakeClassifier{}
	r.classifier = cls

	res, err := r.Run(context.Background(), companies(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Globex", "Initech"}, cls.calls)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Processed)
	require.Len(t, res.Verdicts, 3)
	assert.Equal(t, previous, res.Verdicts[0])
	assert.Equal(t, 1, tracker.GetSnapshot().CompaniesSkipped)
}

func TestRun_FreshIgnoresStoredVerdicts(t *testing.T) {
	cfg := testConfig(t)
	cls := &fakeClassifier{}
	r, store, _ := newTestRunner(t, cfg, cls)

	require.NoError(t, store.UpsertVerdicts("run-0", []storage.Entry{
		{Key: companies()[0].Key(), Verdict: classifier.Verdict{CompanyName: "Acme", Status: classifier.StatusClosed}},
		{Key: "hooli.com", Position: 7, Verdict: classifier.Verdict{CompanyName: "Hooli", Status: classifier.StatusClosed}},
	}))

	res, err := r.Run(context.Background(), companies(), true)
	require.NoError(t, err)

	assert.Len(t, cls.calls, 3)
	assert.Equal(t, 0, res.Skipped)

	// The report command reads the store, so it must only see this run's companies.
	stored, err := store.LoadVerdicts()
	require.NoError(t, err)
	require.Len(t, stored, 3)
	names := []string{}
	for _, v := range stored {
		names = append(names, v.CompanyName)
		assert.Equal(t, classifier.StatusAcquired, v.Status)
	}
	assert.Equal(t, []string{"Acme", "Globex", "Initech"}, names)
}

func TestRun_PanicBecomesUnclear(t *testing.T) {
	cfg := testConfig(t)
	r, _, _ := newTestRunner(t, cfg, &fakeClassifier{panicOn: "Globex"})

	res, err := r.Run(context.Background(), companies(), false)
	require.NoError(t, err)

	require.Len(t, res.Verdicts, 3)
	assert.Equal(t, classifier.StatusUnclear, res.Verdicts[1].Status)
	assert.Equal(t, "evaluation failed: boom", res.Verdicts[1].Notes)
	assert.Equal(t, classifier.StatusAcquired, res.Verdicts[2].Status)
}

func TestRun_CancelStopsAndFlushes(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cls := &fakeClassifier{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	r, store, _ := newTestRunner(t, cfg, cls)

	res, err := r.Run(ctx, companies(), false)
	require.NoError(t, err)

	assert.Equal(t, ReasonInterrupted, res.TerminationReason)
	assert.Equal(t, 1, res.Processed, "verdict of the interrupted company is dropped")

	keys, err := store.StoredKeys()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{companies()[0].Key(): true}, keys)
}

func TestRun_DelayBetweenCompanies(t *testing.T) {
	cfg := testConfig(t)
	cfg.DelayMs = 30
	r, _, _ := newTestRunner(t, cfg, &fakeClassifier{})

	start := time.Now()
	_, err := r.Run(context.Background(), companies(), false)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond, "no pause after the last company")
}

func TestCompanyKey_FallsBackToName(t *testing.T) {
	assert.Equal(t, "name:acme", companyKey(records.Company{Name: " Acme "}))
	assert.Equal(t, records.Company{Website: "https://acme.com"}.Key(), companyKey(records.Company{Name: "Acme", Website: "https://acme.com"}))
}

type fakeProber struct{ outcome probe.Outcome }

func (f fakeProber) Probe(context.Context, string) probe.Outcome { return f.outcome }

type stateChangingCorroborator struct {
	cand *search.Candidate
}

func (s stateChangingCorroborator) Corroborate(_ context.Context, st *search.State, _, _ string) *search.Candidate {
	st.DisableAPI()
	st.RateLimited()
	return s.cand
}

func TestTrackProber(t *testing.T) {
	tracker := metrics.NewTracker("run-1", nil)
	p := TrackProber(fakeProber{outcome: probe.Outcome{StatusCode: 200, Duration: time.Second}}, tracker)

	out := p.Probe(context.Background(), "https://acme.com")
	assert.Equal(t, 200, out.StatusCode)

	p = TrackProber(fakeProber{}, tracker)
	p.Probe(context.Background(), "https://gone.com")

	snap := tracker.GetSnapshot()
	assert.Equal(t, 1, snap.ProbesOK)
	assert.Equal(t, 1, snap.ProbesFailed)
}

func TestTrackCorroborator(t *testing.T) {
	tracker := metrics.NewTracker("run-1", nil)
	st := search.NewState(true, time.Second, 4*time.Second)
	c := TrackCorroborator(stateChangingCorroborator{cand: &search.Candidate{Link: "https://techcrunch.com/a"}}, tracker)

	cand := c.Corroborate(context.Background(), st, "https://acme.com", "Acme")
	require.NotNil(t, cand)

	snap := tracker.GetSnapshot()
	assert.Equal(t, 1, snap.Searches)
	assert.Equal(t, 1, snap.SearchHits)
	assert.Equal(t, 1, snap.RateLimited)
	assert.Equal(t, 1, snap.APIDisabled)

	// API already off: no second shutdown is counted.
	c.Corroborate(context.Background(), st, "https://acme.com", "Acme")
	assert.Equal(t, 1, tracker.GetSnapshot().APIDisabled)
	assert.Equal(t, 2, tracker.GetSnapshot().RateLimited)
}
