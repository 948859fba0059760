package session

import "time"

const (
	StatusStarted   = "started"
	StatusLogged    = "logged"
	StatusCompleted = "completed"
)

type Session struct {
	ID               string     `json:"session_id"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	DurationSeconds  *int64     `json:"duration_seconds,omitempty"`
	EyeActivityScore float64    `json:"eye_activity_score"`
}

// Entry is one row of the eye activity log.
type Entry struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
	GazeFocused bool      `json:"gaze_focused"`
}

// LogRequest is the eye activity payload. SessionID is required; a missing
// GazeFocused is recorded as not focused.
type LogRequest struct {
	SessionID   string `json:"session_id"`
	GazeFocused *bool  `json:"gaze_focused"`
}

type EndRequest struct {
	SessionID string `json:"session_id"`
}

type StartResponse struct {
	SessionID string    `json:"session_id"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
}

type LogResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type EndResult struct {
	SessionID        string    `json:"session_id"`
	EndTime          time.Time `json:"end_time"`
	DurationSeconds  int64     `json:"duration_seconds"`
	EyeActivityScore float64   `json:"eye_activity_score"`
	ActivityCount    int64     `json:"activity_count"`
	Status           string    `json:"status"`
}

// Stats summarises ended sessions.
type Stats struct {
	TotalSessions     int64   `json:"total_sessions"`
	TotalFocusTime    int64   `json:"total_focus_time"`
	AverageSession    float64 `json:"average_session"`
	TodaySessions     int64   `json:"today_sessions"`
	AverageFocusScore float64 `json:"average_focus_score"`
	BestFocusScore    float64 `json:"best_focus_score"`
}
