// Package sampler throttles per-frame focus verdicts into timed samples.
package sampler

import "time"

// DefaultInterval is used when a non-positive interval is configured.
const DefaultInterval = time.Second

// Sample is one throttled focus measurement. IsFocused is the verdict of the
// frame that triggered the sample, not an average over the interval.
type Sample struct {
	SessionID       string    `json:"session_id"`
	IsFocused       bool      `json:"is_focused"`
	FocusPercentage float64   `json:"focus_percentage"`
	Timestamp       time.Time `json:"timestamp"`
	TotalChecks     int       `json:"total_checks"`
	FocusedChecks   int       `json:"focused_checks"`
}

// Sampler holds the cumulative counters of one tracking run. It is not safe
// for concurrent use; the ingestion loop owns it.
type Sampler struct {
	sessionID     string
	interval      time.Duration
	last          time.Time
	totalChecks   int
	focusedChecks int
}

// New starts a sampler whose first sample is due one interval after start.
func New(sessionID string, interval time.Duration, start time.Time) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{sessionID: sessionID, interval: interval, last: start}
}

// Observe feeds one frame verdict. It returns a sample and true when at least
// one interval has elapsed since the previous sample.
func (s *Sampler) Observe(at time.Time, focused bool) (Sample, bool) {
	if at.Sub(s.last) < s.interval {
		return Sample{}, false
	}

	s.totalChecks++
	if focused {
		s.focusedChecks++
	}
	s.last = at

	return Sample{
		SessionID:       s.sessionID,
		IsFocused:       focused,
		FocusPercentage: s.Percentage(),
		Timestamp:       at,
		TotalChecks:     s.totalChecks,
		FocusedChecks:   s.focusedChecks,
	}, true
}

// Percentage is focusedChecks/totalChecks*100, or 0 before the first sample.
func (s *Sampler) Percentage() float64 {
	if s.totalChecks == 0 {
		return 0
	}
	return float64(s.focusedChecks) / float64(s.totalChecks) * 100
}

// Counts returns the samples taken so far and how many were focused.
func (s *Sampler) Counts() (total, focused int) {
	return s.totalChecks, s.focusedChecks
}

// Interval is the effective sample cadence.
func (s *Sampler) Interval() time.Duration { return s.interval }
