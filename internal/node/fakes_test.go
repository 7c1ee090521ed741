package node

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

type recordingOutput struct {
	mu     sync.Mutex
	levels []bool
}

func (o *recordingOutput) Set(on bool) {
	o.mu.Lock()
	o.levels = append(o.levels, on)
	o.mu.Unlock()
}

func (o *recordingOutput) Levels() []bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bool(nil), o.levels...)
}

// fakeClock records every wait instead of sleeping. onSleep, if set, runs
// before the wait returns and may return an error to end it early.
type fakeClock struct {
	mu      sync.Mutex
	waits   []time.Duration
	onSleep func(n int, d time.Duration) error
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	n := len(c.waits)
	hook := c.onSleep
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if hook != nil {
		return hook(n, d)
	}
	return nil
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

type stubSensor struct {
	readings []Reading
	errs     []error
	calls    int
}

func (s *stubSensor) Read() (Reading, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.readings) {
		return s.readings[i], err
	}
	return s.readings[len(s.readings)-1], err
}

type recordingNotifier struct {
	payloads []string
	err      error
}

func (n *recordingNotifier) Notify(p []byte) error {
	if n.err != nil {
		return n.err
	}
	n.payloads = append(n.payloads, string(p))
	return nil
}

type countingAdvertiser struct{ calls int }

func (a *countingAdvertiser) Advertise() error {
	a.calls++
	return nil
}

type failingAdvertiser struct{ err error }

func (a *failingAdvertiser) Advertise() error { return a.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
