// Package content scans a fetched page for acquisition and closure language.
package content

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// maxLinksPerPattern caps how many anchors each link rule inspects.
const maxLinksPerPattern = 3

// Hit is one keyword found in a page.
type Hit struct {
	Keyword string
	Match   string
}

// Signal is everything the analyzer derived from one page.
type Signal struct {
	AcquisitionHits  []Hit
	ClosureHits      []Hit
	Acquirer         string
	AnnouncementLink string
}

// HasAcquisition reports whether any acquisition keyword matched.
func (s Signal) HasAcquisition() bool {
	return len(s.AcquisitionHits) > 0
}

// Analyzer holds the compiled keyword tables.
type Analyzer struct {
	acquisition []keyword
	closure     []string
	hrefTerms   []string
	textTerms   []string
}

type keyword struct {
	phrase   string
	acquirer *regexp.Regexp
}

// Default link rules: hrefs that look like announcement pages, and anchors
// whose text talks about a deal.
var (
	DefaultHrefTerms = []string{"announcement", "press", "news", "blog"}
	DefaultTextTerms = []string{"acquisition", "merger", "acquired"}
)

// NewAnalyzer compiles an analyzer for the given keyword tables.
func NewAnalyzer(acquisitionKeywords, closureKeywords []string) *Analyzer {
	a := &Analyzer{
		hrefTerms: DefaultHrefTerms,
		textTerms: DefaultTextTerms,
	}
	for _, kw := range acquisitionKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		a.acquisition = append(a.acquisition, keyword{
			phrase:   kw,
			acquirer: regexp.MustCompile(regexp.QuoteMeta(kw) + `\s+([a-zA-Z][a-zA-Z0-9\s&.\-]{2,30})`),
		})
	}
	for _, kw := range closureKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			a.closure = append(a.closure, kw)
		}
	}
	return a
}

// Analyze scans body for keyword hits, the first extractable acquirer name and
// the first in-page announcement link. Relative links resolve against baseURL.
func (a *Analyzer) Analyze(body, baseURL string) Signal {
	var signal Signal
	if body == "" {
		return signal
	}

	lower := strings.ToLower(body)

	for _, kw := range a.acquisition {
		idx := strings.Index(lower, kw.phrase)
		if idx < 0 {
			continue
		}

		hit := Hit{Keyword: kw.phrase, Match: kw.phrase}
		if m := kw.acquirer.FindStringSubmatch(lower); m != nil {
			name := strings.TrimSpace(m[1])
			hit.Match = strings.TrimSpace(m[0])
			if signal.Acquirer == "" && name != "" {
				signal.Acquirer = name
			}
		}
		signal.AcquisitionHits = append(signal.AcquisitionHits, hit)
	}

	for _, kw := range a.closure {
		if strings.Contains(lower, kw) {
			signal.ClosureHits = append(signal.ClosureHits, Hit{Keyword: kw, Match: kw})
		}
	}

	if links := a.AnnouncementLinks(body, baseURL); len(links) > 0 {
		signal.AnnouncementLink = links[0]
	}

	return signal
}

// AnnouncementLinks returns candidate announcement links in page order: first
// anchors whose href mentions an announcement section, then anchors whose text
// mentions a deal. Each rule inspects at most three anchors; only absolute
// http(s) links and root-relative paths are kept.
func (a *Analyzer) AnnouncementLinks(body, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		logrus.Debugf("Failed to parse page for links: %v", err)
		return nil
	}

	base, _ := url.Parse(baseURL)
	anchors := doc.Find("a[href]")

	var links []string
	collect := func(match func(href string, s *goquery.Selection) bool) {
		inspected := 0
		anchors.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			if !match(href, s) {
				return true
			}
			inspected++
			if link := resolve(base, href); link != "" {
				links = append(links, link)
			}
			return inspected < maxLinksPerPattern
		})
	}

	collect(func(href string, _ *goquery.Selection) bool {
		return containsAny(strings.ToLower(href), a.hrefTerms)
	})
	collect(func(_ string, s *goquery.Selection) bool {
		return containsAny(strings.ToLower(s.Text()), a.textTerms)
	})

	return links
}

func resolve(base *url.URL, href string) string {
	switch {
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/") && base != nil:
		ref, err := url.Parse(href)
		if err != nil {
			return ""
		}
		return base.ResolveReference(ref).String()
	default:
		return ""
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
