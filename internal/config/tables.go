package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tables holds the keyword and domain lists that drive classification and
// search scoring. They are plain data so tests and deployments can swap them.
type Tables struct {
	// AcquisitionKeywords are page phrases that signal the company was absorbed.
	AcquisitionKeywords []string `json:"acquisition_keywords"`
	// ClosureKeywords are page phrases that signal the company stopped operating.
	// They are reported by the content analyzer but do not drive the verdict.
	ClosureKeywords []string `json:"closure_keywords"`
	// ParkingDomains are registrar and placeholder hosts.
	ParkingDomains []string `json:"parking_domains"`
	// ReliableDomains are the sources counted as reliable in the summary.
	ReliableDomains []string `json:"reliable_domains"`
	// SearchTerms are OR'ed into the corroborating search query.
	SearchTerms []string `json:"search_terms"`
	// ExcludedLinkPatterns drop search-engine internal links before scoring.
	ExcludedLinkPatterns []string `json:"excluded_link_patterns"`
	Scoring              Scoring  `json:"scoring"`
}

// Scoring holds the relevance scorer tables.
type Scoring struct {
	TitlePhrases      []string  `json:"title_phrases"`
	TitleKeywords     []string  `json:"title_keywords"`
	NewsDomains       []string  `json:"news_domains"`
	Penalties         []Penalty `json:"penalties"`
	AnnouncementTerms []string  `json:"announcement_terms"`
	FinancialTerms    []string  `json:"financial_terms"`
	GenericTitleTerms []string  `json:"generic_title_terms"`
	// LinkKeywords raise verdict confidence when found in the retained link.
	LinkKeywords []string `json:"link_keywords"`
}

// Penalty is a negative weight applied when Term occurs in a result's title or link.
type Penalty struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() Tables {
	return Tables{
		AcquisitionKeywords: []string{
			"acquired by", "racheté par", "acquisition par",
			"merged with", "fusionné avec", "merger with",
			"now part of", "subsidiary of", "division of",
			"purchased by", "bought by", "takeover by",
		},
		ClosureKeywords: []string{
			"ceased operations", "shut down", "closed permanently", "discontinued",
			"no longer operating", "out of business", "suspended operations",
			"fermeture définitive", "cessation d'activité", "arrêt des opérations",
		},
		ParkingDomains: []string{
			"godaddy.com", "namecheap.com", "squarespace.com",
			"wix.com", "wordpress.com", "github.io",
			"parked-content.godaddy.com", "afternic.com",
			"sedoparking.com", "parkingcrew.net",
		},
		ReliableDomains: []string{
			"businesswire.com", "prnewswire.com", "techcrunch.com",
			"reuters.com", "bloomberg.com", "coindesk.com", "cointelegraph.com",
			"venturebeat.com", "crunchbase.com", "finance.yahoo.com",
			"marketwatch.com", "forbes.com", "wsj.com", "ft.com",
		},
		SearchTerms: []string{"acquired", "acquisition", "merger", "bought"},
		ExcludedLinkPatterns: []string{
			`(?i)google\.com`,
			`(?i)youtube\.com`,
			`(?i)maps\.google`,
			`(?i)webcache\.googleusercontent`,
		},
		Scoring: Scoring{
			TitlePhrases: []string{
				"acquired by", "acquires", "acquisition of", "purchased by", "buys",
				"merger with", "merges with", "takeover", "announces acquisition",
				"completes acquisition", "acquisition deal", "acquisition announcement",
			},
			TitleKeywords: []string{"acquired", "acquisition", "merger", "bought"},
			NewsDomains: []string{
				"businesswire.com", "prnewswire.com", "techcrunch.com", "reuters.com",
				"bloomberg.com", "coindesk.com", "cointelegraph.com", "venturebeat.com",
				"marketwatch.com", "forbes.com", "wsj.com", "ft.com", "cnbc.com",
			},
			Penalties: []Penalty{
				{Term: "crunchbase.com", Weight: -5},
				{Term: "wikipedia.", Weight: -5},
				{Term: "linkedin.com", Weight: -5},
				{Term: "reddit.com", Weight: -3},
				{Term: "twitter.com", Weight: -3},
				{Term: "x.com", Weight: -3},
				{Term: "youtube.com", Weight: -3},
				{Term: "podcast", Weight: -3},
				{Term: "job", Weight: -2},
				{Term: "career", Weight: -2},
				{Term: "hiring", Weight: -2},
			},
			AnnouncementTerms: []string{
				"announces", "announcement", "press release", "news release",
				"official", "statement", "confirms", "completes deal",
			},
			FinancialTerms: []string{"million", "billion", "$", "funding", "valuation", "deal worth"},
			GenericTitleTerms: []string{
				"profile", "overview", "about", "company information", "crunchbase",
				"find podcasters", "matchmaker", "directory",
			},
			LinkKeywords: []string{"acquired", "acquisition", "merger", "bought"},
		},
	}
}

// LoadTables reads a JSON tables file. Any table present in the file replaces
// the corresponding default; absent tables keep their defaults.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read tables file %s: %w", path, err)
	}

	tables := DefaultTables()
	if err := json.Unmarshal(data, &tables); err != nil {
		return Tables{}, fmt.Errorf("failed to parse tables JSON: %w", err)
	}

	if err := tables.validate(); err != nil {
		return Tables{}, fmt.Errorf("invalid tables file %s: %w", path, err)
	}
	return tables, nil
}

func (t Tables) validate() error {
	if len(t.AcquisitionKeywords) == 0 {
		return fmt.Errorf("acquisition_keywords must not be empty")
	}
	if len(t.SearchTerms) == 0 {
		return fmt.Errorf("search_terms must not be empty")
	}
	for _, p := range t.Scoring.Penalties {
		if p.Weight > 0 {
			return fmt.Errorf("penalty %q must not be positive", p.Term)
		}
	}
	return nil
}
