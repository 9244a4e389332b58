package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/storage"
	"github.com/sirupsen/logrus"
)

// ResultBuffer holds the verdicts of a run in memory between checkpoints
type ResultBuffer struct {
	entries map[string]*storage.Entry // company key -> entry
	order   []string                  // keys in insertion order
	dirty   map[string]bool           // keys not yet flushed
	mu      sync.RWMutex
}

// NewResultBuffer creates an empty buffer
func NewResultBuffer() *ResultBuffer {
	return &ResultBuffer{
		entries: make(map[string]*storage.Entry),
		dirty:   make(map[string]bool),
	}
}

// Add inserts or replaces the verdict for a company and marks it for the next flush
func (rb *ResultBuffer) Add(key string, position int, v classifier.Verdict) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if entry, exists := rb.entries[key]; exists {
		entry.Position = position
		entry.Verdict = v
	} else {
		rb.entries[key] = &storage.Entry{Key: key, Position: position, Verdict: v}
		rb.order = append(rb.order, key)
	}
	rb.dirty[key] = true
}

// Get retrieves a verdict by company key
func (rb *ResultBuffer) Get(key string) (*classifier.Verdict, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	entry, exists := rb.entries[key]
	if !exists {
		return nil, false
	}
	// Return a copy to prevent external modifications
	v := entry.Verdict
	return &v, true
}

// GetStats returns the number of buffered and unflushed verdicts
func (rb *ResultBuffer) GetStats() (total, pending int) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return len(rb.entries), len(rb.dirty)
}

// Flush writes unflushed verdicts to SQLite storage in one transaction
func (rb *ResultBuffer) Flush(store *storage.Storage, runID string) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(rb.dirty) == 0 {
		return nil
	}

	startTime := time.Now()
	logrus.Debug("Starting flush to database...")

	batch := make([]storage.Entry, 0, len(rb.dirty))
	for _, key := range rb.order {
		if rb.dirty[key] {
			batch = append(batch, *rb.entries[key])
		}
	}

	if err := store.UpsertVerdicts(runID, batch); err != nil {
		return fmt.Errorf("failed to flush %d verdicts: %w", len(batch), err)
	}
	rb.dirty = make(map[string]bool)

	logrus.Infof("Flush complete: %d verdicts written in %v", len(batch), time.Since(startTime))
	return nil
}

// LoadFromStorage populates the buffer with stored verdicts (for resume).
// Loaded verdicts are not marked for flushing.
func (rb *ResultBuffer) LoadFromStorage(store *storage.Storage) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	logrus.Info("Loading stored verdicts into memory...")

	entries, err := store.LoadEntries()
	if err != nil {
		return fmt.Errorf("failed to load verdicts: %w", err)
	}

	for i := range entries {
		e := entries[i]
		if _, exists := rb.entries[e.Key]; !exists {
			rb.order = append(rb.order, e.Key)
		}
		rb.entries[e.Key] = &e
	}

	logrus.Infof("Loaded %d verdicts into memory", len(entries))
	return nil
}
