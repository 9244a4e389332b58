package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSignificantRedirect(t *testing.T) {
	tests := []struct {
		name     string
		original string
		final    string
		expected bool
	}{
		{"locale prefix", "https://a.com", "https://a.com/en", false},
		{"different domain", "https://a.com", "https://b.com", true},
		{"scheme upgrade", "http://a.com", "https://a.com/", false},
		{"www added", "https://a.com", "https://www.a.com", false},
		{"deep same-site path", "https://a.com", "https://a.com/x/y/z", false},
		{"same-site path change", "https://a.com/old", "https://a.com/new", false},
		{"subdomain move", "https://a.com", "https://shop.a.com", true},
		{"acquirer domain", "https://acme.com", "https://bigco.com/acme", true},
		{"empty final", "https://a.com", "", false},
		{"empty original", "", "https://b.com", false},
		{"bare scheme original", "http://", "https://b.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSignificantRedirect(tt.original, tt.final))
		})
	}
}

func TestIsSignificantRedirect_Reflexive(t *testing.T) {
	for _, u := range []string{
		"https://a.com",
		"http://www.example.org/path/",
		"not a url",
		"",
		"https://b.com/en?x=1",
	} {
		assert.False(t, IsSignificantRedirect(u, u), u)
	}
}

func TestIsLocaleRedirect(t *testing.T) {
	assert.True(t, IsLocaleRedirect("https://a.com", "https://a.com/en"))
	assert.False(t, IsLocaleRedirect("https://a.com", "https://a.com/en/home"))
	assert.False(t, IsLocaleRedirect("https://a.com", "https://b.com/en"))
}

func TestTransition(t *testing.T) {
	assert.Equal(t, "acme.com → bigco.com/acme", Transition("https://acme.com/", "https://BigCo.com/acme"))
}
