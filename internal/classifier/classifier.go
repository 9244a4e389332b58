// Package classifier combines probe, content and search evidence into one
// status verdict per company.
package classifier

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/config"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/content"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/probe"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/records"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/search"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/urlnorm"
	"github.com/sirupsen/logrus"
)

// Status is the verdict category.
type Status string

const (
	StatusClosed   Status = "CLOSED"
	StatusAcquired Status = "ACQUIRED_AND_RUNNING"
	StatusUnclear  Status = "UNCLEAR"
)

// Confidence levels outside the closed-site rules.
const (
	confidenceWithAcquirer = 0.8
	confidenceKeywords     = 0.7
	confidenceAccessible   = 0.6
	confidenceSearchBoost  = 0.2
	confidenceSearchCap    = 0.9
)

// Notes for the accessible-site outcomes.
const (
	NotesInvalidURL    = "invalid URL"
	NotesWithKeywords  = "accessible with acquisition language"
	NotesNoAcquisition = "accessible, no explicit acquisition language"
)

// Verdict is the per-company result.
type Verdict struct {
	CompanyName      string   `json:"company_name"`
	OriginalWebsite  string   `json:"original_website"`
	FinalURL         string   `json:"final_url"`
	Redirected       bool     `json:"redirected"`
	DomainChanged    bool     `json:"domain_changed"`
	Indicators       []string `json:"merger_indicators"`
	Status           Status   `json:"status"`
	Confidence       float64  `json:"confidence"`
	Notes            string   `json:"notes"`
	AcquirerName     string   `json:"acquirer_name"`
	AnnouncementLink string   `json:"announcement_link"`
}

// Unprobed reports whether the website was never fetched because it was invalid.
func (v Verdict) Unprobed() bool {
	return v.Status == StatusUnclear && v.Notes == NotesInvalidURL
}

func (v *Verdict) indicate(format string, args ...any) {
	v.Indicators = append(v.Indicators, fmt.Sprintf(format, args...))
}

// Prober fetches a website.
type Prober interface {
	Probe(ctx context.Context, target string) probe.Outcome
}

// Corroborator searches for an acquisition announcement.
type Corroborator interface {
	Corroborate(ctx context.Context, st *search.State, website, companyName string) *search.Candidate
}

// CorroborateFunc is the search step as seen by Evaluate.
type CorroborateFunc func(website, companyName string) *search.Candidate

// Classifier decides a company's status.
type Classifier struct {
	prober       Prober
	corroborator Corroborator
	analyzer     *content.Analyzer
	rules        []Rule
	linkKeywords []string
}

// New creates a classifier over the given tables.
func New(tables config.Tables, prober Prober, corroborator Corroborator) *Classifier {
	return &Classifier{
		prober:       prober,
		corroborator: corroborator,
		analyzer:     content.NewAnalyzer(tables.AcquisitionKeywords, tables.ClosureKeywords),
		rules:        ClosedRules(tables.ParkingDomains),
		linkKeywords: tables.Scoring.LinkKeywords,
	}
}

// Classify probes the company website and evaluates the outcome. Search
// backoff is read from and written to st.
func (c *Classifier) Classify(ctx context.Context, company records.Company, st *search.State) Verdict {
	if invalidWebsite(company.Website) {
		return unclear(company)
	}

	outcome := c.prober.Probe(ctx, company.Website)

	return c.Evaluate(company, outcome, func(website, name string) *search.Candidate {
		if c.corroborator == nil {
			return nil
		}
		return c.corroborator.Corroborate(ctx, st, website, name)
	})
}

// Evaluate turns a probe outcome into a verdict. It is deterministic for a
// given outcome and corroborate result.
func (c *Classifier) Evaluate(company records.Company, outcome probe.Outcome, corroborate CorroborateFunc) Verdict {
	if invalidWebsite(company.Website) {
		return unclear(company)
	}

	v := Verdict{
		CompanyName:     company.Name,
		OriginalWebsite: company.Website,
		Status:          StatusUnclear,
	}
	log := logrus.WithFields(logrus.Fields{
		"company": company.Name,
		"url":     company.Website,
	})

	ev := NewEvidence(company.Website, outcome)
	if outcome.Reachable() {
		v.FinalURL = outcome.FinalURL
		v.Redirected = len(outcome.Redirects) > 0
		if ev.SignificantRedirect {
			v.DomainChanged = true
			v.indicate("significant redirect: %s", urlnorm.Transition(company.Website, outcome.FinalURL))
		} else if v.Redirected && urlnorm.IsLocaleRedirect(company.Website, outcome.FinalURL) {
			log.Debugf("Cosmetic redirect to %s", outcome.FinalURL)
		}
	}

	if rule, ok := FirstMatch(c.rules, ev); ok {
		v.Status = StatusClosed
		v.Confidence = rule.Confidence
		v.Notes = rule.Notes
		log.WithField("rule", rule.Name).Debug("Closed rule matched")
	} else {
		c.evaluateContent(&v, outcome)
	}

	if v.Status == StatusClosed && corroborate != nil {
		if cand := corroborate(company.Website, company.Name); cand != nil {
			v.AnnouncementLink = cand.Link
			v.indicate("acquisition link found via search")
			if containsAny(strings.ToLower(cand.Link), c.linkKeywords) {
				v.Confidence = math.Min(confidenceSearchCap, v.Confidence+confidenceSearchBoost)
			}
		}
	}

	v.Confidence = round2(v.Confidence)
	return v
}

// evaluateContent handles a reachable site that no closed rule caught.
func (c *Classifier) evaluateContent(v *Verdict, outcome probe.Outcome) {
	v.Status = StatusAcquired
	v.Confidence = confidenceAccessible
	v.Notes = NotesNoAcquisition

	if outcome.StatusCode != http.StatusOK {
		return
	}

	signal := c.analyzer.Analyze(outcome.Body, outcome.FinalURL)
	for _, hit := range signal.AcquisitionHits {
		v.indicate("acquisition keyword: '%s'", hit.Keyword)
	}
	if signal.Acquirer != "" {
		v.AcquirerName = signal.Acquirer
		v.indicate("acquirer: %s", signal.Acquirer)
	}
	if signal.AnnouncementLink != "" {
		v.AnnouncementLink = signal.AnnouncementLink
		v.indicate("announcement link found on page")
	}

	if signal.HasAcquisition() {
		v.Notes = NotesWithKeywords
		v.Confidence = confidenceKeywords
		if signal.Acquirer != "" {
			v.Confidence = confidenceWithAcquirer
		}
	}
}

func invalidWebsite(website string) bool {
	return strings.TrimSpace(website) == "" || urlnorm.RegisteredDomain(website) == ""
}

func unclear(company records.Company) Verdict {
	return Verdict{
		CompanyName:     company.Name,
		OriginalWebsite: company.Website,
		Status:          StatusUnclear,
		Notes:           NotesInvalidURL,
	}
}

// Unclear builds the verdict recorded when evaluation itself failed.
func Unclear(company records.Company, notes string) Verdict {
	v := unclear(company)
	v.Notes = notes
	return v
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
