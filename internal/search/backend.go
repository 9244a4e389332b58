// Package search corroborates closed-site verdicts by looking for published
// acquisition announcements, first through the Custom Search API and then by
// scraping a results page.
package search

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Source names reported on candidates.
const (
	SourceAPI  = "api"
	SourceHTML = "html"
)

// Result is one raw search hit before scoring.
type Result struct {
	Link    string
	Title   string
	Snippet string
	Source  string
}

// Backend runs a query against one search provider. Implementations update
// st to reflect quota and rate-limit responses; a nil slice with a nil error
// means the backend produced nothing usable this time.
type Backend interface {
	Name() string
	Enabled(st *State) bool
	Search(ctx context.Context, st *State, query string) ([]Result, error)
}

// LinkFilter drops search-engine internal links before scoring.
type LinkFilter struct {
	patterns []*regexp.Regexp
}

// NewLinkFilter compiles the exclusion patterns. Invalid patterns are logged
// and skipped.
func NewLinkFilter(patterns []string) *LinkFilter {
	f := &LinkFilter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			logrus.Warnf("Invalid excluded link pattern %q: %v", p, err)
			continue
		}
		f.patterns = append(f.patterns, re)
	}
	return f
}

// Allowed reports whether link survives every exclusion pattern.
func (f *LinkFilter) Allowed(link string) bool {
	if link == "" {
		return false
	}
	for _, re := range f.patterns {
		if re.MatchString(link) {
			return false
		}
	}
	return true
}

// Apply returns the results whose links are allowed, in order.
func (f *LinkFilter) Apply(results []Result) []Result {
	kept := results[:0:0]
	for _, r := range results {
		if f.Allowed(r.Link) {
			kept = append(kept, r)
		}
	}
	return kept
}

// BuildQuery quotes the domain and ORs the acquisition terms:
// "acme.com" AND ("acquired" OR "acquisition").
func BuildQuery(domain string, terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+t+`"`)
	}
	return `"` + domain + `" AND (` + strings.Join(quoted, " OR ") + `)`
}
