package classifier

import (
	"net/http"
	"strings"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/probe"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/urlnorm"
)

// Evidence is what the closed-site rules look at.
type Evidence struct {
	Website string
	Outcome probe.Outcome
	// FinalDomain is the registered domain of the final URL.
	FinalDomain string
	// SignificantRedirect is set when the final URL left the original domain.
	SignificantRedirect bool
}

// NewEvidence derives rule inputs from a probe outcome.
func NewEvidence(website string, outcome probe.Outcome) Evidence {
	ev := Evidence{Website: website, Outcome: outcome}
	if outcome.Reachable() {
		ev.FinalDomain = urlnorm.RegisteredDomain(outcome.FinalURL)
		ev.SignificantRedirect = urlnorm.IsSignificantRedirect(website, outcome.FinalURL)
	}
	return ev
}

// Rule marks a company CLOSED when Applies holds.
type Rule struct {
	Name       string
	Confidence float64
	Notes      string
	Applies    func(Evidence) bool
}

// Rule names.
const (
	RuleUnreachable = "unreachable"
	RuleParked      = "parked"
	RuleRedirect    = "redirect"
	RuleNotFound    = "not_found"
)

// ClosedRules returns the closed-site rules in priority order. A parked final
// domain outranks a plain cross-domain redirect, and 404 only counts when
// nothing above fired.
func ClosedRules(parkingDomains []string) []Rule {
	parked := make(map[string]bool, len(parkingDomains))
	for _, d := range parkingDomains {
		parked[strings.ToLower(d)] = true
	}

	return []Rule{
		{
			Name:       RuleUnreachable,
			Confidence: 0.8,
			Notes:      "site unreachable",
			Applies: func(ev Evidence) bool {
				return !ev.Outcome.Reachable()
			},
		},
		{
			Name:       RuleParked,
			Confidence: 0.9,
			Notes:      "parked domain",
			Applies: func(ev Evidence) bool {
				return ev.FinalDomain != "" && parked[ev.FinalDomain]
			},
		},
		{
			Name:       RuleRedirect,
			Confidence: 0.7,
			Notes:      "redirected to different domain",
			Applies: func(ev Evidence) bool {
				return ev.SignificantRedirect
			},
		},
		{
			Name:       RuleNotFound,
			Confidence: 0.8,
			Notes:      "not found",
			Applies: func(ev Evidence) bool {
				return ev.Outcome.StatusCode == http.StatusNotFound
			},
		},
	}
}

// FirstMatch returns the first rule that applies.
func FirstMatch(rules []Rule, ev Evidence) (Rule, bool) {
	for _, r := range rules {
		if r.Applies(ev) {
			return r, true
		}
	}
	return Rule{}, false
}
