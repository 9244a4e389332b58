// Package urlnorm reduces website URLs to comparable forms and decides whether a
// redirect moved a site away from its original domain.
//
// Every function is total: malformed input yields the empty string (or false)
// instead of an error.
package urlnorm

import (
	"net/url"
	"strings"
)

// CleanURL trims whitespace and prefixes https:// when the URL carries no scheme.
// The www. prefix is kept.
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	return raw
}

// ComparableForm strips the scheme and trailing slashes and lowercases the rest.
// Example: "https://Example.com/en/" -> "example.com/en"
func ComparableForm(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(s, "https://"):
		s = s[len("https://"):]
	case strings.HasPrefix(s, "http://"):
		s = s[len("http://"):]
	}

	return strings.TrimRight(s, "/")
}

// DedupKey is ComparableForm with a leading "www." removed, so that two URLs
// differing only by scheme or www prefix produce the same key.
func DedupKey(raw string) string {
	return strings.TrimPrefix(ComparableForm(raw), "www.")
}

// BaseDomain returns the host part of a comparable form, without www.
func BaseDomain(comparable string) string {
	host := strings.TrimPrefix(comparable, "www.")
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	return host
}

// RegisteredDomain returns the lowercased host of a URL with any www. prefix
// removed. It is the form used for search queries and domain table lookups.
func RegisteredDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// Handle protocol-relative and scheme-less URLs
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	} else if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// HostMatches reports whether host equals domain or is a subdomain of it.
func HostMatches(host, domain string) bool {
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
