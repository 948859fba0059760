package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/db"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/metrics"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/recommend"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	db      db.Querier
	metrics metrics.Recorder
	now     func() time.Time
}

func NewService(db db.Querier, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{db: db, metrics: rec, now: time.Now}
}

// Start creates a session with only its start time set.
func (s *Service) Start(ctx context.Context) (Session, error) {
	session := Session{ID: uuid.NewString(), StartTime: s.now()}

	row := s.db.QueryRow(ctx, `
		INSERT INTO sessions (id, start_time)
		VALUES ($1,$2)
		RETURNING start_time
	`, session.ID, session.StartTime)
	if err := row.Scan(&session.StartTime); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	s.metrics.RecordSessionStarted()
	return session, nil
}

// LogActivity appends an entry stamped with the current time. The session is
// not looked up; entries for unknown ids are stored as well.
func (s *Service) LogActivity(ctx context.Context, req LogRequest) (Entry, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return Entry{}, ErrInvalidRequest
	}
	focused := req.GazeFocused != nil && *req.GazeFocused
	return s.record(ctx, req.SessionID, focused, s.now())
}

// Record appends an entry with an explicit event time. Used by tracking runs
// that log their samples.
func (s *Service) Record(ctx context.Context, sessionID string, focused bool, at time.Time) error {
	if sessionID == "" {
		return ErrInvalidRequest
	}
	_, err := s.record(ctx, sessionID, focused, at)
	return err
}

func (s *Service) record(ctx context.Context, sessionID string, focused bool, at time.Time) (Entry, error) {
	entry := Entry{SessionID: sessionID, Timestamp: at, GazeFocused: focused}

	row := s.db.QueryRow(ctx, `
		INSERT INTO eye_activity (session_id, timestamp, gaze_focused)
		VALUES ($1,$2,$3)
		RETURNING id
	`, entry.SessionID, entry.Timestamp, entry.GazeFocused)
	if err := row.Scan(&entry.ID); err != nil {
		return Entry{}, fmt.Errorf("insert eye activity: %w", err)
	}

	s.metrics.RecordActivityLogged(focused)
	return entry, nil
}

// End closes the session, scoring it from its eye activity entries. The
// update only applies to a session that has not ended yet, so concurrent
// calls end it once.
func (s *Service) End(ctx context.Context, sessionID string) (EndResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return EndResult{}, ErrInvalidRequest
	}

	var start time.Time
	var ended bool
	err := s.db.QueryRow(ctx, `
		SELECT start_time, end_time IS NOT NULL
		FROM sessions WHERE id=$1
	`, sessionID).Scan(&start, &ended)
	if errors.Is(err, pgx.ErrNoRows) {
		return EndResult{}, ErrNotFound
	}
	if err != nil {
		return EndResult{}, fmt.Errorf("load session: %w", err)
	}
	if ended {
		return EndResult{}, ErrAlreadyEnded
	}

	end := s.now()
	if start.IsZero() || end.Before(start) {
		return EndResult{}, fmt.Errorf("%w: start %s, end %s", ErrInvalidState, start.Format(time.RFC3339Nano), end.Format(time.RFC3339Nano))
	}
	elapsed := end.Sub(start)
	duration := int64(elapsed / time.Second)

	var total, focused int64
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE gaze_focused)
		FROM eye_activity WHERE session_id=$1
	`, sessionID).Scan(&total, &focused)
	if err != nil {
		return EndResult{}, fmt.Errorf("count eye activity: %w", err)
	}

	score := 0.0
	if total > 0 {
		score = float64(focused) / float64(total)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET end_time=$2, duration=$3, eye_activity_score=$4, activity_count=$5
		WHERE id=$1 AND end_time IS NULL
	`, sessionID, end, duration, score, total)
	if err != nil {
		return EndResult{}, fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return EndResult{}, ErrAlreadyEnded
	}

	s.metrics.RecordSessionEnded(score, elapsed)
	return EndResult{
		SessionID:        sessionID,
		EndTime:          end,
		DurationSeconds:  duration,
		EyeActivityScore: score,
		ActivityCount:    total,
		Status:           StatusCompleted,
	}, nil
}

// Recommend reads the stored score and maps it to a break length. Sessions
// that have not ended, or ended without any entries, use the default score.
func (s *Service) Recommend(ctx context.Context, sessionID string) (recommend.Recommendation, error) {
	var score float64
	var count int64
	var ended bool
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(eye_activity_score,0), COALESCE(activity_count,0), end_time IS NOT NULL
		FROM sessions WHERE id=$1
	`, sessionID).Scan(&score, &count, &ended)
	if errors.Is(err, pgx.ErrNoRows) {
		return recommend.Recommendation{}, ErrNotFound
	}
	if err != nil {
		return recommend.Recommendation{}, fmt.Errorf("load session score: %w", err)
	}

	rec := recommend.Resolve(score, ended && count > 0)
	rec.SessionID = sessionID
	return rec, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(duration),0)::bigint,
		       COALESCE(AVG(duration),0)::float8,
		       COUNT(*) FILTER (WHERE start_time >= date_trunc('day', now())),
		       COALESCE(AVG(eye_activity_score),0)::float8,
		       COALESCE(MAX(eye_activity_score),0)::float8
		FROM sessions WHERE end_time IS NOT NULL
	`).Scan(&st.TotalSessions, &st.TotalFocusTime, &st.AverageSession, &st.TodaySessions, &st.AverageFocusScore, &st.BestFocusScore)
	if err != nil {
		return Stats{}, fmt.Errorf("session stats: %w", err)
	}
	return st, nil
}
