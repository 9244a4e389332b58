package search

import (
	"sort"
	"strings"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/config"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/urlnorm"
)

// Candidate is one ranked search result.
type Candidate struct {
	Link    string
	Title   string
	Snippet string
	Score   float64
	Source  string
}

// Scorer assigns relevance scores to search results. Scores are heuristic
// ranks, not probabilities.
type Scorer struct {
	t config.Scoring
}

// NewScorer creates a scorer over the given tables.
func NewScorer(tables config.Scoring) *Scorer {
	return &Scorer{t: tables}
}

// Score rates how likely a result documents an acquisition of the company.
// Results whose title names neither the company nor its domain score 0.
func (s *Scorer) Score(link, title, snippet, domain, companyName string) float64 {
	titleLower := strings.ToLower(title)
	linkLower := strings.ToLower(link)
	snippetLower := strings.ToLower(snippet)

	if !mentions(titleLower, strings.ToLower(companyName)) && !mentions(titleLower, strings.ToLower(domain)) {
		return 0
	}

	score := 0.0

	for _, phrase := range s.t.TitlePhrases {
		if strings.Contains(titleLower, phrase) {
			score += 10
		}
	}

	if containsAny(titleLower, s.t.TitleKeywords) {
		score += 5
	}

	// Company or domain in title
	score += 3

	host := urlnorm.RegisteredDomain(link)
	for _, news := range s.t.NewsDomains {
		if urlnorm.HostMatches(host, news) {
			score += 7
			break
		}
	}

	titleAndLink := titleLower + " " + linkLower
	for _, p := range s.t.Penalties {
		if strings.Contains(titleAndLink, p.Term) {
			score += p.Weight
		}
	}

	for _, term := range s.t.AnnouncementTerms {
		if strings.Contains(titleLower, term) {
			score += 2
		}
	}

	if containsAny(titleLower+" "+snippetLower, s.t.FinancialTerms) {
		score += 3
	}

	if containsAny(titleLower, s.t.GenericTitleTerms) {
		score -= 8
	}

	if score < 0 {
		return 0
	}
	return score
}

// Rank scores every result, drops those at or below zero and returns the rest
// ordered by descending score. Ties keep their original order.
func (s *Scorer) Rank(results []Result, domain, companyName string) []Candidate {
	var ranked []Candidate
	for _, r := range results {
		score := s.Score(r.Link, r.Title, r.Snippet, domain, companyName)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, Candidate{
			Link:    r.Link,
			Title:   r.Title,
			Snippet: r.Snippet,
			Score:   score,
			Source:  r.Source,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func mentions(haystack, needle string) bool {
	return needle != "" && strings.Contains(haystack, needle)
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
