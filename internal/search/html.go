package search

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/probe"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// HTMLConfig configures the results-page scraping backend.
type HTMLConfig struct {
	Endpoint  string
	Timeout   time.Duration
	UserAgent string
	Num       int
}

// Result page markup patterns. Titled patterns capture (link, title); the
// link-only patterns are used when no titled result is present.
var (
	titledPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<a[^>]*href="(https?://[^"]+)"[^>]*><h3[^>]*>([^<]+)</h3>`),
		regexp.MustCompile(`(?is)<a[^>]*jsname="UWckNb"[^>]*href="(https?://[^"]+)"[^>]*>.*?<h3[^>]*>([^<]+)</h3>`),
	}
	linkPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<a[^>]*href="(https?://[^"]+)"[^>]*><h3`),
		regexp.MustCompile(`(?i)<a[^>]*jsname="UWckNb"[^>]*href="(https?://[^"]+)"[^>]*>`),
	}
)

var searchHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// HTMLBackend fetches a search results page and extracts hits from its markup.
type HTMLBackend struct {
	cfg     HTMLConfig
	filter  *LinkFilter
	limiter *rate.Limiter
}

// NewHTMLBackend creates the HTML backend. Excluded links are dropped during
// extraction so the link-only fallback only triggers on real absence.
func NewHTMLBackend(cfg HTMLConfig, filter *LinkFilter) *HTMLBackend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Num <= 0 {
		cfg.Num = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = probe.DefaultOptions().UserAgent
	}
	if filter == nil {
		filter = NewLinkFilter(nil)
	}
	return &HTMLBackend{
		cfg:     cfg,
		filter:  filter,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func (b *HTMLBackend) Name() string { return SourceHTML }

// Enabled is always true; the HTML backend is the last resort.
func (b *HTMLBackend) Enabled(*State) bool { return true }

// Search waits out the current backoff delay, then fetches one results page.
// A 429 answer grows the backoff and yields no results.
func (b *HTMLBackend) Search(ctx context.Context, st *State, query string) ([]Result, error) {
	if st.Delay > 0 {
		b.limiter.SetLimit(rate.Every(st.Delay))
	} else {
		b.limiter.SetLimit(rate.Inf)
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search pacing interrupted: %w", err)
	}

	target, err := b.pageURL(query)
	if err != nil {
		return nil, err
	}

	c, err := probe.NewCollector(ctx, probe.Options{
		Timeout:      b.cfg.Timeout,
		MaxRedirects: 10,
		UserAgent:    b.cfg.UserAgent,
		Headers:      searchHeaders,
	}, nil)
	if err != nil {
		return nil, err
	}

	var (
		status int
		body   string
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})

	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("search page fetch failed: %w", err)
	}

	switch status {
	case http.StatusOK:
		st.Succeeded()
	case http.StatusTooManyRequests:
		st.RateLimited()
		logrus.WithFields(logrus.Fields{
			"consecutive_429": st.Consecutive429,
			"next_delay":      st.Delay,
		}).Warn("Search page rate limited")
		return nil, nil
	case 0:
		return nil, errors.New("no response from search page")
	default:
		logrus.Warnf("Search page returned status %d", status)
		return nil, nil
	}

	return b.Extract(body), nil
}

// Extract pulls (link, title) pairs out of results markup, falling back to
// bare links when the page carries no titled result.
func (b *HTMLBackend) Extract(page string) []Result {
	var results []Result
	seen := make(map[string]bool)
	add := func(rawLink, title string) {
		link := cleanLink(rawLink)
		if seen[link] || !b.filter.Allowed(link) {
			return
		}
		seen[link] = true
		results = append(results, Result{
			Link:   link,
			Title:  strings.TrimSpace(html.UnescapeString(title)),
			Source: SourceHTML,
		})
	}

	for _, re := range titledPatterns {
		for _, m := range re.FindAllStringSubmatch(page, -1) {
			add(m[1], m[2])
		}
	}
	if len(results) > 0 {
		return results
	}

	for _, re := range linkPatterns {
		for _, m := range re.FindAllStringSubmatch(page, -1) {
			add(m[1], "")
		}
	}
	return results
}

func (b *HTMLBackend) pageURL(query string) (string, error) {
	u, err := url.Parse(b.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid search endpoint %q: %w", b.cfg.Endpoint, err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("num", fmt.Sprint(b.cfg.Num))
	q.Set("hl", "en")
	q.Set("gl", "us")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// cleanLink strips the tracking parameters result pages append to hrefs.
func cleanLink(link string) string {
	link = html.UnescapeString(link)
	for _, marker := range []string{"&sa=", "&ved="} {
		if i := strings.Index(link, marker); i >= 0 {
			link = link[:i]
		}
	}
	return link
}
