package urlnorm

import "strings"

// IsSignificantRedirect reports whether finalURL lives on a different base domain
// than originalURL. Only cross-domain moves count; any same-site path change
// (a locale prefix, a landing page) is treated as cosmetic.
func IsSignificantRedirect(originalURL, finalURL string) bool {
	original := ComparableForm(originalURL)
	final := ComparableForm(finalURL)

	if original == "" || final == "" || original == final {
		return false
	}

	return BaseDomain(original) != BaseDomain(final)
}

// Transition renders a redirect as "original → final" using comparable forms.
func Transition(originalURL, finalURL string) string {
	return ComparableForm(originalURL) + " → " + ComparableForm(finalURL)
}

// pathSegments returns the number of non-empty path segments in a comparable form.
func pathSegments(comparable string) int {
	_, path, found := strings.Cut(comparable, "/")
	if !found {
		return 0
	}
	n := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}

// IsLocaleRedirect reports whether a same-site redirect only added a single
// path segment to a bare host, e.g. a.com -> a.com/en.
func IsLocaleRedirect(originalURL, finalURL string) bool {
	original := ComparableForm(originalURL)
	final := ComparableForm(finalURL)
	if original == "" || final == "" || BaseDomain(original) != BaseDomain(final) {
		return false
	}
	return pathSegments(original) == 0 && pathSegments(final) == 1
}
