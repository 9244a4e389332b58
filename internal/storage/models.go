package storage

import (
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
)

// Run is one invocation of the checker
type Run struct {
	RunID             string
	StartedAt         time.Time
	FinishedAt        *time.Time
	Processed         int
	TerminationReason string
}

// Entry is a verdict keyed by the company's dedup key. Position is the
// company's index in the input so outputs keep input order.
type Entry struct {
	Key      string
	Position int
	Verdict  classifier.Verdict
}
