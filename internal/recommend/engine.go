// Package recommend maps a session focus score onto a break length.
package recommend

// DefaultScore stands in for sessions that have no focus data.
const DefaultScore = 0.5

type tier struct {
	minScore float64
	seconds  int
}

// evaluated top-down, first match wins
var tiers = []tier{
	{minScore: 0.8, seconds: 180},
	{minScore: 0.6, seconds: 300},
	{minScore: 0.4, seconds: 420},
}

const longestBreak = 600

// Recommendation is the break suggested for one session.
type Recommendation struct {
	SessionID               string  `json:"session_id"`
	RecommendedBreakSeconds int     `json:"recommended_break_seconds"`
	RecommendedBreakMinutes float64 `json:"recommended_break_minutes"`
	EyeActivityScore        float64 `json:"eye_activity_score"`
}

// BreakSeconds returns the recommended break for a score. Higher focus earns a
// shorter break.
func BreakSeconds(score float64) int {
	for _, t := range tiers {
		if score >= t.minScore {
			return t.seconds
		}
	}
	return longestBreak
}

// ForScore builds a recommendation echoing the score it was derived from.
func ForScore(score float64) Recommendation {
	seconds := BreakSeconds(score)
	return Recommendation{
		RecommendedBreakSeconds: seconds,
		RecommendedBreakMinutes: float64(seconds) / 60,
		EyeActivityScore:        score,
	}
}

// Resolve substitutes DefaultScore when the session has no focus data and
// then applies ForScore. A measured score of zero is kept as zero.
func Resolve(score float64, hasData bool) Recommendation {
	if !hasData {
		score = DefaultScore
	}
	return ForScore(score)
}
