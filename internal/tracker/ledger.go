package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/sampler"

	"github.com/sirupsen/logrus"
)

const (
	ledgerBuffer  = 256
	ledgerTimeout = 5 * time.Second
)

// ledgerWriter appends samples off the ingestion loop. A full queue drops
// the sample instead of stalling capture.
type ledgerWriter struct {
	ledger Ledger
	log    logrus.FieldLogger
	queue  chan sampler.Sample
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newLedgerWriter(ledger Ledger, log logrus.FieldLogger, size int) *ledgerWriter {
	w := &ledgerWriter{
		ledger: ledger,
		log:    log,
		queue:  make(chan sampler.Sample, size),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *ledgerWriter) enqueue(s sampler.Sample) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- s:
		return true
	default:
		w.log.WithField("session_id", s.SessionID).Warn("ledger queue full, dropping sample")
		return false
	}
}

func (w *ledgerWriter) run() {
	defer w.wg.Done()
	for s := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
		if err := w.ledger.Record(ctx, s.SessionID, s.IsFocused, s.Timestamp); err != nil {
			w.log.WithError(err).WithField("session_id", s.SessionID).Error("record sample")
		}
		cancel()
	}
}

// close flushes queued samples. Later enqueues are ignored.
func (w *ledgerWriter) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}
