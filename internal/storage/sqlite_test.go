package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func storedVerdict(t *testing.T, s *Storage, key string) *classifier.Verdict {
	t.Helper()
	entries, err := s.LoadEntries()
	require.NoError(t, err)
	for _, e := range entries {
		if e.Key == key {
			return &e.Verdict
		}
	}
	return nil
}

func closedVerdict() classifier.Verdict {
	return classifier.Verdict{
		CompanyName:      "Acme Corp",
		OriginalWebsite:  "http://acme.com",
		Indicators:       []string{"acquisition link found via search"},
		Status:           classifier.StatusClosed,
		Confidence:       0.9,
		Notes:            "site unreachable",
		AnnouncementLink: "https://techcrunch.com/acme-acquired-by-bigco",
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStorage(t)
	start := time.Now().Add(-time.Minute)

	require.NoError(t, s.CreateRun("run-1", start))

	run, err := s.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, s.FinishRun("run-1", time.Now(), 12, "completed"))

	run, err = s.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 12, run.Processed)
	assert.Equal(t, "completed", run.TerminationReason)

	assert.Error(t, s.FinishRun("missing", time.Now(), 0, "completed"))

	missing, err := s.GetRun("missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertVerdicts_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.CreateRun("run-1", time.Now()))

	running := classifier.Verdict{
		CompanyName:     "Globex",
		OriginalWebsite: "https://globex.com",
		FinalURL:        "https://globex.com/en",
		Redirected:      true,
		Status:          classifier.StatusAcquired,
		Confidence:      0.6,
		Notes:           classifier.NotesNoAcquisition,
	}

	require.NoError(t, s.UpsertVerdicts("run-1", []Entry{
		{Key: "globex.com", Position: 1, Verdict: running},
		{Key: "acme.com", Position: 0, Verdict: closedVerdict()},
	}))

	got := storedVerdict(t, s, "acme.com")
	require.NotNil(t, got)
	assert.Equal(t, closedVerdict(), *got)

	verdicts, err := s.LoadVerdicts()
	require.NoError(t, err)
	require.Len(t, verdicts, 2)
	assert.Equal(t, "Acme Corp", verdicts[0].CompanyName, "ordered by input position")
	assert.Equal(t, running, verdicts[1])

	keys, err := s.StoredKeys()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"acme.com": true, "globex.com": true}, keys)
}

func TestUpsertVerdicts_Replaces(t *testing.T) {
	s := newTestStorage(t)

	first := closedVerdict()
	second := closedVerdict()
	second.Confidence = 0.8
	second.AnnouncementLink = ""
	second.Indicators = nil

	require.NoError(t, s.UpsertVerdicts("run-1", []Entry{{Key: "acme.com", Verdict: first}}))
	require.NoError(t, s.UpsertVerdicts("run-2", []Entry{{Key: "acme.com", Verdict: second}}))

	got := storedVerdict(t, s, "acme.com")
	require.NotNil(t, got)
	assert.Equal(t, second, *got)
}

func TestDeleteVerdicts(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.UpsertVerdicts("run-1", []Entry{{Key: "acme.com", Verdict: closedVerdict()}}))

	require.NoError(t, s.DeleteVerdicts())

	keys, err := s.StoredKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}
