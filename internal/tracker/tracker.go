// Package tracker owns the capture device for the duration of a tracking run
// and turns its frames into live focus samples.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/capture"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/gaze"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/logger"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/metrics"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/sampler"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSensorUnavailable wraps failures to open or read the capture device.
	ErrSensorUnavailable = errors.New("sensor unavailable")
	ErrMissingSession    = errors.New("session_id is required")
)

const EventGazeUpdate = "gaze_update"

// Detector finds the landmarks of the first face in a frame.
type Detector interface {
	Detect(frame capture.Frame) ([]gaze.Point, bool)
}

// Publisher receives encoded sample events. Implementations must not block.
type Publisher interface {
	Broadcast(sessionID string, payload []byte)
}

// Ledger persists emitted samples.
type Ledger interface {
	Record(ctx context.Context, sessionID string, focused bool, at time.Time) error
}

// Event is the live telemetry message pushed to subscribers.
type Event struct {
	Type            string    `json:"type"`
	SessionID       string    `json:"session_id"`
	IsFocused       bool      `json:"is_focused"`
	FocusPercentage float64   `json:"focus_percentage"`
	Timestamp       time.Time `json:"timestamp"`
}

// Options wires a Tracker to its collaborators.
type Options struct {
	Opener    capture.Opener
	Detector  Detector
	Publisher Publisher
	// Ledger is optional; nil keeps samples out of the eye activity log.
	Ledger      Ledger
	Interval    time.Duration
	ReadTimeout time.Duration
	Metrics     metrics.Recorder
	Log         logrus.FieldLogger
}

// Tracker hands out the single capture device to one run at a time.
type Tracker struct {
	opts   Options
	log    logrus.FieldLogger
	writer *ledgerWriter
	now    func() time.Time

	mu      sync.Mutex
	current *Run
}

// New builds a Tracker; nil metrics, logger and detector get defaults.
func New(opts Options) *Tracker {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	if opts.Detector == nil {
		opts.Detector = capture.MeshDetector{}
	}
	t := &Tracker{opts: opts, log: opts.Log, now: time.Now}
	if opts.Ledger != nil {
		t.writer = newLedgerWriter(opts.Ledger, opts.Log, ledgerBuffer)
	}
	return t
}

// Start opens the device and begins a run for sessionID. When a run is
// already live it is returned unchanged with started false. A run that is
// being stopped still owns the device, so Start waits for its release.
func (t *Tracker) Start(ctx context.Context, sessionID string) (*Run, bool, error) {
	if sessionID == "" {
		return nil, false, ErrMissingSession
	}

	for {
		t.mu.Lock()
		cur := t.current
		if cur == nil {
			break
		}
		if !cur.stopping {
			t.mu.Unlock()
			return cur, false, nil
		}
		t.mu.Unlock()

		select {
		case <-cur.done:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	defer t.mu.Unlock()

	dev, err := t.opts.Opener.Open(ctx)
	if err != nil {
		t.log.WithError(err).WithField("session_id", sessionID).Error("open capture device")
		return nil, false, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	start := t.now()
	run := &Run{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		StartedAt: start,
		cancel:    cancel,
		done:      make(chan struct{}),
		sampler:   sampler.New(sessionID, t.opts.Interval, start),
	}
	t.current = run

	t.opts.Metrics.RecordTrackingRun(true)
	t.log.WithFields(logrus.Fields{"session_id": sessionID, "run": run.ID}).Info("tracking started")

	go t.loop(runCtx, run, dev)
	return run, true, nil
}

// Stop ends the live run and waits until its device is released. It returns
// the stopped run, or nil when nothing was running. The run stays current
// until its loop exits, even when ctx expires first.
func (t *Tracker) Stop(ctx context.Context) (*Run, error) {
	t.mu.Lock()
	run := t.current
	if run != nil {
		run.stopping = true
	}
	t.mu.Unlock()

	if run == nil {
		return nil, nil
	}
	run.cancel()

	select {
	case <-run.done:
		return run, nil
	case <-ctx.Done():
		return run, ctx.Err()
	}
}

// Status describes the live run, if any.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	run := t.current
	stopping := run != nil && run.stopping
	t.mu.Unlock()

	if run == nil {
		return Status{}
	}
	st := run.Status()
	st.Stopping = stopping
	return st
}

// Close stops any run and drains pending ledger writes.
func (t *Tracker) Close(ctx context.Context) error {
	_, err := t.Stop(ctx)
	if t.writer != nil {
		t.writer.close()
	}
	return err
}

func (t *Tracker) loop(ctx context.Context, run *Run, dev capture.Device) {
	log := t.log.WithFields(logrus.Fields{"session_id": run.SessionID, "run": run.ID})
	defer func() {
		if r := recover(); r != nil {
			run.setErr(fmt.Errorf("tracking loop panic: %v", r))
		}
		t.markStopping(run)
		if err := dev.Close(); err != nil {
			log.WithError(err).Warn("close capture device")
		}
		t.opts.Metrics.RecordTrackingRun(false)
		t.release(run)
		close(run.done)
		log.Info("tracking stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := t.read(ctx, dev)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Error("read frame")
				run.setErr(fmt.Errorf("%w: %v", ErrSensorUnavailable, err))
			}
			return
		}

		focused := false
		if pts, ok := t.opts.Detector.Detect(frame); ok {
			focused = gaze.ClassifyMesh(pts)
		}
		t.opts.Metrics.RecordFrame()

		at := frame.CapturedAt
		if at.IsZero() {
			at = t.now()
		}
		sample, ok := run.observe(at, focused)
		if !ok {
			continue
		}
		// stop may have landed while this frame was processed
		if ctx.Err() != nil {
			return
		}
		t.emit(log, sample)
	}
}

func (t *Tracker) read(ctx context.Context, dev capture.Device) (capture.Frame, error) {
	if t.opts.ReadTimeout <= 0 {
		return dev.ReadFrame(ctx)
	}
	readCtx, cancel := context.WithTimeout(ctx, t.opts.ReadTimeout)
	defer cancel()
	return dev.ReadFrame(readCtx)
}

func (t *Tracker) emit(log logrus.FieldLogger, sample sampler.Sample) {
	t.opts.Metrics.RecordSample(sample.IsFocused)

	if t.opts.Publisher != nil {
		payload, err := json.Marshal(Event{
			Type:            EventGazeUpdate,
			SessionID:       sample.SessionID,
			IsFocused:       sample.IsFocused,
			FocusPercentage: sample.FocusPercentage,
			Timestamp:       sample.Timestamp,
		})
		if err != nil {
			log.WithError(err).Error("encode sample")
		} else {
			t.opts.Publisher.Broadcast(sample.SessionID, payload)
		}
	}
	if t.writer != nil {
		t.writer.enqueue(sample)
	}
}

func (t *Tracker) markStopping(run *Run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run.stopping = true
}

func (t *Tracker) release(run *Run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == run {
		t.current = nil
	}
}
