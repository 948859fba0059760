package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeReplay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.ndjson")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write replay file: %v", err)
	}
	return path
}

func openReplay(t *testing.T, o ReplayOpener) Device {
	t.Helper()
	dev, err := o.Open(context.Background())
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func TestReplayReadsFramesInOrder(t *testing.T) {
	path := writeReplay(t, "{\"n\":1}\n\n{\"n\":2}\n")
	dev := openReplay(t, ReplayOpener{Path: path})

	for i, want := range []string{`{"n":1}`, `{"n":2}`} {
		frame, err := dev.ReadFrame(context.Background())
		if err != nil {
			t.Fatalf("read %d error: %v", i, err)
		}
		if string(frame.Data) != want {
			t.Fatalf("frame %d = %s, want %s", i, frame.Data, want)
		}
		if frame.Seq != int64(i+1) {
			t.Fatalf("frame %d seq = %d", i, frame.Seq)
		}
		if frame.CapturedAt.IsZero() {
			t.Fatalf("frame %d has no capture time", i)
		}
	}

	if _, err := dev.ReadFrame(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReplayLoops(t *testing.T) {
	path := writeReplay(t, "a\nb\n")
	dev := openReplay(t, ReplayOpener{Path: path, Loop: true})

	var got []string
	for i := 0; i < 5; i++ {
		frame, err := dev.ReadFrame(context.Background())
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		got = append(got, string(frame.Data))
	}
	want := []string{"a", "b", "a", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestReplayLoopEmptyFileEnds(t *testing.T) {
	path := writeReplay(t, "\n\n")
	dev := openReplay(t, ReplayOpener{Path: path, Loop: true})

	if _, err := dev.ReadFrame(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReplayPacesFrames(t *testing.T) {
	path := writeReplay(t, "a\nb\n")
	dev := openReplay(t, ReplayOpener{Path: path, FrameRate: 20})

	first, err := dev.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	second, err := dev.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if gap := second.CapturedAt.Sub(first.CapturedAt); gap < 40*time.Millisecond {
		t.Fatalf("frames not paced, gap %v", gap)
	}
}

func TestReplayHonoursContext(t *testing.T) {
	path := writeReplay(t, "a\nb\n")
	dev := openReplay(t, ReplayOpener{Path: path, FrameRate: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := dev.ReadFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	if _, err := dev.ReadFrame(context.Background()); err != nil {
		t.Fatalf("read error: %v", err)
	}

	// the next frame is a second away
	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := dev.ReadFrame(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("read did not return on deadline")
	}
}

func TestReplayOpenErrors(t *testing.T) {
	if _, err := (ReplayOpener{Path: filepath.Join(t.TempDir(), "missing.ndjson")}).Open(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeReplay(t, "a\n")
	if _, err := (ReplayOpener{Path: path}).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestReplayClose(t *testing.T) {
	path := writeReplay(t, "a\n")
	dev, err := ReplayOpener{Path: path}.Open(context.Background())
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("second close error: %v", err)
	}
	if _, err := dev.ReadFrame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOpenerFunc(t *testing.T) {
	path := writeReplay(t, "a\n")
	var opener Opener = OpenerFunc(func(ctx context.Context) (Device, error) {
		return ReplayOpener{Path: path}.Open(ctx)
	})
	dev, err := opener.Open(context.Background())
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	_ = dev.Close()
}
