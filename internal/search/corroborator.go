package search

import (
	"context"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/config"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/urlnorm"
	"github.com/sirupsen/logrus"
)

// Corroborator tries each backend in order and returns the best-scoring
// candidate from the first backend that yields one.
type Corroborator struct {
	backends []Backend
	scorer   *Scorer
	filter   *LinkFilter
	terms    []string
}

// NewCorroborator wires backends, in priority order, to the scoring tables.
func NewCorroborator(tables config.Tables, backends ...Backend) *Corroborator {
	return &Corroborator{
		backends: backends,
		scorer:   NewScorer(tables.Scoring),
		filter:   NewLinkFilter(tables.ExcludedLinkPatterns),
		terms:    tables.SearchTerms,
	}
}

// FromConfig builds the API then HTML backend pair described by cfg.
func FromConfig(cfg *config.Config) *Corroborator {
	filter := NewLinkFilter(cfg.Tables.ExcludedLinkPatterns)
	api := NewAPIBackend(APIConfig{
		APIKey:   cfg.Search.APIKey,
		EngineID: cfg.Search.EngineID,
		Endpoint: cfg.Search.APIEndpoint,
		Timeout:  msDuration(cfg.Search.APITimeoutMs),
		Num:      cfg.Search.ResultsPerCall,
	})
	page := NewHTMLBackend(HTMLConfig{
		Endpoint:  cfg.Search.HTMLEndpoint,
		Timeout:   msDuration(cfg.Search.HTMLTimeoutMs),
		UserAgent: cfg.UserAgent,
		Num:       cfg.Search.ResultsPerCall,
	}, filter)
	return NewCorroborator(cfg.Tables, api, page)
}

// NewStateFromConfig returns the initial backoff state for a run.
func NewStateFromConfig(cfg *config.Config) *State {
	return NewState(cfg.Search.APIEnabled(), msDuration(cfg.Search.BaseDelayMs), msDuration(cfg.Search.MaxDelayMs))
}

// Corroborate looks for an acquisition announcement about the company. It
// never fails: backend errors are logged and the next backend is tried, and
// nil means no candidate scored above zero.
func (c *Corroborator) Corroborate(ctx context.Context, st *State, website, companyName string) (best *Candidate) {
	log := logrus.WithFields(logrus.Fields{
		"company": companyName,
		"website": website,
	})

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Search corroboration panicked: %v", r)
			best = nil
		}
	}()

	domain := urlnorm.RegisteredDomain(website)
	if domain == "" {
		log.Debug("No domain to search for")
		return nil
	}
	query := BuildQuery(domain, c.terms)
	log.WithField("query", query).Info("Searching for acquisition announcement")

	for _, b := range c.backends {
		if ctx.Err() != nil {
			return nil
		}
		if !b.Enabled(st) {
			continue
		}

		results, err := b.Search(ctx, st, query)
		if err != nil {
			log.WithField("backend", b.Name()).Warnf("Search failed: %v", err)
			continue
		}

		ranked := c.scorer.Rank(c.filter.Apply(results), domain, companyName)
		if len(ranked) == 0 {
			log.WithField("backend", b.Name()).Debugf("No relevant result among %d", len(results))
			continue
		}

		top := ranked[0]
		log.WithFields(logrus.Fields{
			"backend": b.Name(),
			"score":   top.Score,
			"title":   top.Title,
		}).Infof("Best result: %s", top.Link)
		return &top
	}

	return nil
}
