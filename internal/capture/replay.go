package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const maxLineSize = 1 << 20

// ReplayOpener replays recorded landmark frames from an NDJSON file, one
// frame per line. Frames are paced at FrameRate; zero disables pacing.
type ReplayOpener struct {
	Path      string
	FrameRate float64
	Loop      bool
}

func (o ReplayOpener) Open(ctx context.Context) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(o.Path)
	if err != nil {
		return nil, fmt.Errorf("open replay source: %w", err)
	}

	var interval time.Duration
	if o.FrameRate > 0 {
		interval = time.Duration(float64(time.Second) / o.FrameRate)
	}
	return &replayDevice{
		file:     f,
		scanner:  newScanner(f),
		interval: interval,
		loop:     o.Loop,
		now:      time.Now,
	}, nil
}

type replayDevice struct {
	mu       sync.Mutex
	file     *os.File
	scanner  *bufio.Scanner
	interval time.Duration
	loop     bool
	now      func() time.Time

	seq    int64
	next   time.Time
	closed bool
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return s
}

func (d *replayDevice) ReadFrame(ctx context.Context) (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Frame{}, ErrClosed
	}
	if err := d.wait(ctx); err != nil {
		return Frame{}, err
	}

	line, err := d.nextLine()
	if err != nil {
		return Frame{}, err
	}

	at := d.now()
	if d.interval > 0 {
		d.next = at.Add(d.interval)
	}
	d.seq++
	return Frame{Seq: d.seq, CapturedAt: at, Data: line}, nil
}

func (d *replayDevice) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.next.IsZero() {
		return nil
	}
	delay := d.next.Sub(d.now())
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// nextLine returns a copy of the next non-blank line, rewinding once per call
// when looping.
func (d *replayDevice) nextLine() ([]byte, error) {
	rewound := false
	for {
		for d.scanner.Scan() {
			line := bytes.TrimSpace(d.scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			return append([]byte(nil), line...), nil
		}
		if err := d.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read replay source: %w", err)
		}
		if !d.loop || rewound {
			return nil, io.EOF
		}
		if _, err := d.file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind replay source: %w", err)
		}
		d.scanner = newScanner(d.file)
		rewound = true
	}
}

func (d *replayDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.file.Close()
}
