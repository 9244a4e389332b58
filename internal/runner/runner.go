// Package runner drives a classification run over a list of companies,
// checkpointing verdicts to SQLite so an interrupted run can resume.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/config"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/memory"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/metrics"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/probe"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/records"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/report"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/search"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/storage"
	"github.com/sirupsen/logrus"
)

// Termination reasons recorded for a run.
const (
	ReasonCompleted   = "completed"
	ReasonInterrupted = "interrupted"
)

// Classifier produces one verdict per company.
type Classifier interface {
	Classify(ctx context.Context, company records.Company, st *search.State) classifier.Verdict
}

// Result describes a finished or interrupted run.
type Result struct {
	RunID             string
	Processed         int
	Skipped           int
	TerminationReason string
	Verdicts          []classifier.Verdict
}

// Runner classifies companies one at a time.
type Runner struct {
	cfg        *config.Config
	store      *storage.Storage
	buffer     *memory.ResultBuffer
	classifier Classifier
	tracker    *metrics.Tracker
	state      *search.State
	runID      string
}

// New creates a runner. st is the search backoff state shared by every
// company of the run.
func New(cfg *config.Config, store *storage.Storage, cls Classifier, tracker *metrics.Tracker, st *search.State, runID string) *Runner {
	return &Runner{
		cfg:        cfg,
		store:      store,
		buffer:     memory.NewResultBuffer(),
		classifier: cls,
		tracker:    tracker,
		state:      st,
		runID:      runID,
	}
}

// Run classifies companies in input order. Unless fresh is set, companies
// with a stored verdict are skipped and their stored verdict reused; a fresh
// run clears every stored verdict first. The loop stops early when ctx is
// cancelled; verdicts collected so far are always flushed.
func (r *Runner) Run(ctx context.Context, companies []records.Company, fresh bool) (*Result, error) {
	if err := r.store.CreateRun(r.runID, time.Now()); err != nil {
		return nil, err
	}

	stored := make(map[string]bool)
	if fresh {
		logrus.Info("Fresh run requested, clearing stored verdicts")
		if err := r.store.DeleteVerdicts(); err != nil {
			return nil, err
		}
	} else {
		keys, err := r.store.StoredKeys()
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			logrus.Infof("Resuming: %d verdicts already stored", len(keys))
			if err := r.buffer.LoadFromStorage(r.store); err != nil {
				return nil, err
			}
		}
		stored = keys
	}

	r.tracker.SetTotal(len(companies))
	res := &Result{RunID: r.runID, TerminationReason: ReasonCompleted}
	sinceCheckpoint := 0

	for i, company := range companies {
		if ctx.Err() != nil {
			res.TerminationReason = ReasonInterrupted
			break
		}

		key := companyKey(company)
		if stored[key] {
			logrus.Debugf("Skipping %s: verdict already stored", company.Name)
			r.tracker.IncrementSkipped()
			res.Skipped++
			continue
		}

		logrus.Infof("[%d/%d] Checking %s (%s)", i+1, len(companies), company.Name, company.Website)
		v := r.classifyOne(ctx, company)
		if ctx.Err() != nil && !v.Unprobed() {
			// The probe was cut short, so the verdict says nothing about the site.
			res.TerminationReason = ReasonInterrupted
			break
		}

		r.buffer.Add(key, i, v)
		r.tracker.RecordVerdict(v.Status)
		res.Processed++
		logrus.WithFields(logrus.Fields{
			"company":    company.Name,
			"status":     v.Status,
			"confidence": v.Confidence,
		}).Info(v.Notes)

		sinceCheckpoint++
		if sinceCheckpoint >= r.cfg.CheckpointEvery {
			r.checkpoint(companies)
			sinceCheckpoint = 0
		}

		if v.Unprobed() || i == len(companies)-1 {
			continue
		}
		if !probe.Sleep(ctx, r.cfg.Delay()) {
			res.TerminationReason = ReasonInterrupted
			break
		}
	}

	flushErr := r.buffer.Flush(r.store, r.runID)
	if flushErr != nil {
		logrus.Errorf("Final flush failed: %v", flushErr)
	}
	if err := r.store.FinishRun(r.runID, time.Now(), res.Processed, res.TerminationReason); err != nil {
		logrus.Warnf("Failed to record run end: %v", err)
	}

	res.Verdicts = r.Collect(companies)
	logrus.Infof("Run %s %s: %d classified, %d resumed", r.runID, res.TerminationReason, res.Processed, res.Skipped)
	return res, flushErr
}

// classifyOne shields the run from a failure inside a single evaluation.
func (r *Runner) classifyOne(ctx context.Context, company records.Company) (v classifier.Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.Errorf("Evaluation of %s panicked: %v", company.Name, rec)
			v = classifier.Unclear(company, fmt.Sprintf("evaluation failed: %v", rec))
		}
	}()
	return r.classifier.Classify(ctx, company, r.state)
}

// checkpoint flushes pending verdicts and rewrites the temporary results file.
// Failures are logged; the run continues.
func (r *Runner) checkpoint(companies []records.Company) {
	total, pending := r.buffer.GetStats()
	logrus.Debugf("Checkpoint: %d of %d buffered verdicts pending", pending, total)
	if err := r.buffer.Flush(r.store, r.runID); err != nil {
		logrus.Errorf("Checkpoint flush failed: %v", err)
	}
	if r.cfg.CheckpointPath == "" {
		return
	}
	verdicts := r.Collect(companies)
	if err := report.WriteCSV(r.cfg.CheckpointPath, verdicts); err != nil {
		logrus.Warnf("Failed to write checkpoint file: %v", err)
		return
	}
	logrus.Infof("Checkpoint: %d verdicts saved to %s", len(verdicts), r.cfg.CheckpointPath)
}

// Collect returns the known verdicts for companies, in input order.
func (r *Runner) Collect(companies []records.Company) []classifier.Verdict {
	verdicts := make([]classifier.Verdict, 0, len(companies))
	seen := make(map[string]bool, len(companies))
	for _, c := range companies {
		key := companyKey(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		if v, ok := r.buffer.Get(key); ok {
			verdicts = append(verdicts, *v)
		}
	}
	return verdicts
}

// companyKey identifies a company across runs. Companies without a usable
// website fall back to their name.
func companyKey(c records.Company) string {
	if key := c.Key(); key != "" {
		return key
	}
	return "name:" + strings.ToLower(strings.TrimSpace(c.Name))
}
