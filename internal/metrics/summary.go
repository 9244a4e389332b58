package metrics

import (
	"fmt"
	"strings"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/urlnorm"
)

// Summary aggregates a set of verdicts.
type Summary struct {
	TotalCompanies         int `json:"total_companies"`
	AcquiredAndRunning     int `json:"acquired_and_running"`
	Closed                 int `json:"closed"`
	Unclear                int `json:"unclear"`
	WithAnnouncementLinks  int `json:"with_announcement_links"`
	WithAcquirerIdentified int `json:"with_acquirer_identified"`
	FromReliableSources    int `json:"from_reliable_sources"`
}

// Summarize counts verdicts by status. Link, acquirer and reliable-source
// counts cover ACQUIRED_AND_RUNNING verdicts only.
func Summarize(verdicts []classifier.Verdict, reliableDomains []string) Summary {
	s := Summary{TotalCompanies: len(verdicts)}

	for _, v := range verdicts {
		switch v.Status {
		case classifier.StatusAcquired:
			s.AcquiredAndRunning++
			if v.AnnouncementLink != "" {
				s.WithAnnouncementLinks++
				if isReliable(v.AnnouncementLink, reliableDomains) {
					s.FromReliableSources++
				}
			}
			if v.AcquirerName != "" {
				s.WithAcquirerIdentified++
			}
		case classifier.StatusClosed:
			s.Closed++
		default:
			s.Unclear++
		}
	}

	return s
}

func isReliable(link string, domains []string) bool {
	host := urlnorm.RegisteredDomain(link)
	for _, d := range domains {
		if urlnorm.HostMatches(host, d) {
			return true
		}
	}
	return false
}

// Render formats the summary for the console.
func (s Summary) Render() string {
	pct := func(n int) float64 {
		if s.TotalCompanies == 0 {
			return 0
		}
		return float64(n) / float64(s.TotalCompanies) * 100
	}

	var b strings.Builder
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "ANALYSIS SUMMARY")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Companies analyzed:     %d\n", s.TotalCompanies)
	fmt.Fprintf(&b, "Acquired and running:   %d (%.1f%%)\n", s.AcquiredAndRunning, pct(s.AcquiredAndRunning))
	fmt.Fprintf(&b, "Closed:                 %d (%.1f%%)\n", s.Closed, pct(s.Closed))
	fmt.Fprintf(&b, "Unclear:                %d (%.1f%%)\n", s.Unclear, pct(s.Unclear))
	fmt.Fprintf(&b, "With announcement link: %d\n", s.WithAnnouncementLinks)
	fmt.Fprintf(&b, "  - acquirer identified: %d\n", s.WithAcquirerIdentified)
	fmt.Fprintf(&b, "  - reliable sources:    %d\n", s.FromReliableSources)
	return b.String()
}
