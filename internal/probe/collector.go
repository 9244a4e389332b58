package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

// Options configures how pages are fetched.
type Options struct {
	Timeout      time.Duration
	Attempts     int
	RetryDelay   time.Duration
	MaxRedirects int
	UserAgent    string
	Headers      map[string]string
}

// DefaultOptions returns the probe defaults: 12s timeout, two attempts, one
// second between attempts, ten redirects.
func DefaultOptions() Options {
	return Options{
		Timeout:      12 * time.Second,
		Attempts:     2,
		RetryDelay:   time.Second,
		MaxRedirects: 10,
		UserAgent:    "Mozilla/5.0 (compatible; mastatus/1.0)",
	}
}

// BrowserHeaders are sent with every page request.
var BrowserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Upgrade-Insecure-Requests": "1",
}

// Hops records the redirect chain observed by one collector visit.
type Hops struct {
	Via   []string
	Final string
}

// NewCollector builds a synchronous colly collector that follows redirects up
// to opts.MaxRedirects, records them into hops, and hands 4xx/5xx bodies to
// OnResponse instead of treating them as errors.
func NewCollector(ctx context.Context, opts Options, hops *Hops) (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.Context = ctx
	c.ParseHTTPErrorResponse = true

	// Set request timeout
	c.SetRequestTimeout(opts.Timeout)

	// Keep cookies across a redirect chain; some sites loop without them
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	c.SetCookieJar(jar)

	maxRedirects := opts.MaxRedirects
	c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if hops != nil {
			hops.Via = hops.Via[:0]
			for _, r := range via {
				hops.Via = append(hops.Via, r.URL.String())
			}
			hops.Final = req.URL.String()
		}
		logrus.Debugf("Redirect %d: %s", len(via), req.URL)
		return nil
	})

	headers := opts.Headers
	if headers == nil {
		headers = BrowserHeaders
	}
	c.OnRequest(func(r *colly.Request) {
		for key, value := range headers {
			r.Headers.Set(key, value)
		}
	})

	return c, nil
}
