package runner

import (
	"context"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/metrics"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/probe"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/search"
)

// trackedProber reports every probe to the tracker
type trackedProber struct {
	next    classifier.Prober
	tracker *metrics.Tracker
}

// TrackProber wraps p so that each probe is recorded by tracker
func TrackProber(p classifier.Prober, tracker *metrics.Tracker) classifier.Prober {
	return &trackedProber{next: p, tracker: tracker}
}

func (t *trackedProber) Probe(ctx context.Context, target string) probe.Outcome {
	outcome := t.next.Probe(ctx, target)
	t.tracker.RecordProbe(outcome.Reachable(), outcome.Duration)
	return outcome
}

// trackedCorroborator reports searches and backoff transitions to the tracker
type trackedCorroborator struct {
	next    classifier.Corroborator
	tracker *metrics.Tracker
}

// TrackCorroborator wraps c so that searches, 429 responses and API
// shutdowns are recorded by tracker
func TrackCorroborator(c classifier.Corroborator, tracker *metrics.Tracker) classifier.Corroborator {
	return &trackedCorroborator{next: c, tracker: tracker}
}

func (t *trackedCorroborator) Corroborate(ctx context.Context, st *search.State, website, companyName string) *search.Candidate {
	var before search.State
	if st != nil {
		before = *st
	}

	cand := t.next.Corroborate(ctx, st, website, companyName)
	t.tracker.RecordSearch(cand != nil)

	if st != nil {
		if st.Consecutive429 > before.Consecutive429 {
			t.tracker.AddRateLimited(st.Consecutive429 - before.Consecutive429)
		}
		if before.APIEnabled && !st.APIEnabled {
			t.tracker.IncrementAPIDisabled()
		}
	}
	return cand
}
