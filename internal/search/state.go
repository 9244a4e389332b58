package search

import "time"

// State is the run-wide search backoff context. The runner owns one value for
// the whole run and passes it to every Corroborate call; tests copy it freely.
type State struct {
	APIEnabled     bool
	Delay          time.Duration
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Consecutive429 int
}

// NewState returns the state a run starts with.
func NewState(apiEnabled bool, baseDelay, maxDelay time.Duration) *State {
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &State{
		APIEnabled: apiEnabled,
		Delay:      baseDelay,
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
	}
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// DisableAPI turns the API backend off for the rest of the run.
func (s *State) DisableAPI() {
	s.APIEnabled = false
}

// RateLimited records a 429 and doubles the delay, capped at MaxDelay.
func (s *State) RateLimited() {
	s.Consecutive429++
	next := s.Delay * 2
	if next <= 0 {
		next = time.Second
	}
	if next > s.MaxDelay {
		next = s.MaxDelay
	}
	s.Delay = next
}

// Succeeded resets the backoff after a successful search response.
func (s *State) Succeeded() {
	s.Consecutive429 = 0
	s.Delay = s.BaseDelay
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
