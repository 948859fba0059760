// Package capture abstracts the frame source used by tracking runs.
package capture

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by ReadFrame after Close.
var ErrClosed = errors.New("capture device closed")

// Frame is one encoded frame. Data is opaque to the capture layer; the
// detector decodes it.
type Frame struct {
	Seq        int64
	CapturedAt time.Time
	Data       []byte
}

// Device is an open capture source. ReadFrame blocks until the next frame is
// available or ctx is done; io.EOF marks the end of a finite source.
type Device interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

// Opener acquires a Device.
type Opener interface {
	Open(ctx context.Context) (Device, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (Device, error)

func (f OpenerFunc) Open(ctx context.Context) (Device, error) { return f(ctx) }
