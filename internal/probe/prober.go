// Package probe fetches a company website once, following redirects, and
// reports what was reached.
package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// Unreachable is the status code of an Outcome whose fetch never completed.
const Unreachable = 0

// Outcome is the result of one site fetch.
type Outcome struct {
	URL        string
	FinalURL   string
	StatusCode int
	Redirects  []string
	Body       string
	Attempts   int
	Duration   time.Duration
	Err        error
}

// Reachable reports whether an HTTP response was received.
func (o Outcome) Reachable() bool {
	return o.StatusCode != Unreachable
}

// Prober performs site fetches with bounded retries.
type Prober struct {
	opts Options
}

// NewProber creates a prober. Zero option values fall back to DefaultOptions.
func NewProber(opts Options) *Prober {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = def.Attempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = def.MaxRedirects
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	return &Prober{opts: opts}
}

// Probe fetches target with redirects enabled. Timeouts and connection errors
// are retried up to the configured attempt count; any other failure stops
// immediately. When no response is obtained the Outcome is unreachable.
func (p *Prober) Probe(ctx context.Context, target string) Outcome {
	start := time.Now()
	outcome := Outcome{URL: target}
	log := logrus.WithField("url", target)

	for attempt := 1; attempt <= p.opts.Attempts; attempt++ {
		outcome.Attempts = attempt

		res, err := p.fetch(ctx, target)
		if err == nil {
			res.Attempts = attempt
			res.Duration = time.Since(start)
			return res
		}
		outcome.Err = err

		if !IsTransient(err) {
			log.Warnf("Probe failed: %v", err)
			break
		}

		log.Debugf("Transient probe failure (attempt %d/%d): %v", attempt, p.opts.Attempts, err)
		if attempt < p.opts.Attempts && !Sleep(ctx, p.opts.RetryDelay) {
			break
		}
	}

	outcome.Duration = time.Since(start)
	return outcome
}

// fetch performs a single GET through a fresh collector.
func (p *Prober) fetch(ctx context.Context, target string) (Outcome, error) {
	var hops Hops
	c, err := NewCollector(ctx, p.opts, &hops)
	if err != nil {
		return Outcome{}, err
	}

	var res *Outcome
	c.OnResponse(func(r *colly.Response) {
		res = &Outcome{
			URL:        target,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       string(r.Body),
		}
	})

	if err := c.Visit(target); err != nil {
		return Outcome{}, err
	}
	if res == nil {
		return Outcome{}, errors.New("no response received")
	}

	if hops.Final != "" {
		res.FinalURL = hops.Final
		res.Redirects = append([]string(nil), hops.Via...)
	}
	return *res, nil
}

// IsTransient reports whether err is a timeout or a connection-level failure
// worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// Sleep waits for d or until ctx is done. It returns false if ctx ended first.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
