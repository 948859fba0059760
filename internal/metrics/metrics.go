// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the session and tracker layers.
type Recorder interface {
	RecordSessionStarted()
	RecordSessionEnded(score float64, duration time.Duration)
	RecordActivityLogged(focused bool)
	RecordSample(focused bool)
	RecordTrackingRun(active bool)
	RecordFrame()
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	sessionsStarted prometheus.Counter
	sessionsEnded   prometheus.Counter
	sessionScore    prometheus.Histogram
	sessionDuration prometheus.Histogram
	activityLogged  *prometheus.CounterVec
	samples         *prometheus.CounterVec
	trackingActive  prometheus.Gauge
	frames          prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pomodoro_sessions_started_total",
			Help: "Sessions started.",
		}),
		sessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pomodoro_sessions_ended_total",
			Help: "Sessions ended.",
		}),
		sessionScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pomodoro_session_eye_activity_score",
			Help:    "Eye activity score of ended sessions.",
			Buckets: []float64{0.2, 0.4, 0.6, 0.8, 1},
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pomodoro_session_duration_seconds",
			Help:    "Duration of ended sessions.",
			Buckets: prometheus.ExponentialBuckets(60, 2, 8),
		}),
		activityLogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pomodoro_eye_activity_logged_total",
			Help: "Eye activity entries appended, by verdict.",
		}, []string{"focused"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pomodoro_focus_samples_total",
			Help: "Focus samples emitted while tracking, by verdict.",
		}, []string{"focused"}),
		trackingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pomodoro_tracking_active",
			Help: "1 while a tracking run owns the capture device.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pomodoro_frames_classified_total",
			Help: "Frames classified by the gaze classifier.",
		}),
	}

	reg.MustRegister(
		c.sessionsStarted,
		c.sessionsEnded,
		c.sessionScore,
		c.sessionDuration,
		c.activityLogged,
		c.samples,
		c.trackingActive,
		c.frames,
	)
	return c
}

func (c *Collector) RecordSessionStarted() { c.sessionsStarted.Inc() }

func (c *Collector) RecordSessionEnded(score float64, duration time.Duration) {
	c.sessionsEnded.Inc()
	c.sessionScore.Observe(score)
	c.sessionDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordActivityLogged(focused bool) {
	c.activityLogged.WithLabelValues(boolLabel(focused)).Inc()
}

func (c *Collector) RecordSample(focused bool) {
	c.samples.WithLabelValues(boolLabel(focused)).Inc()
}

func (c *Collector) RecordTrackingRun(active bool) {
	if active {
		c.trackingActive.Set(1)
		return
	}
	c.trackingActive.Set(0)
}

func (c *Collector) RecordFrame() { c.frames.Inc() }

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSessionStarted() {}
func (Nop) RecordSessionEnded(float64, time.Duration) {}
func (Nop) RecordActivityLogged(bool) {}
func (Nop) RecordSample(bool) {}
func (Nop) RecordTrackingRun(bool) {}
func (Nop) RecordFrame() {}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
