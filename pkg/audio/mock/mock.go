// Package mock provides in-memory fakes for the audio interfaces: a
// scriptable capture [Device], a recording [Sink], and a manually advanced
// [Clock]. They keep the pipeline and scheduler tests deterministic without
// touching real hardware.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/clausewise/clausewise/pkg/audio"
)

// Device is a fake microphone. Push sample blocks with [Device.Push]; they
// are delivered to the channel returned by Start. Construct with a non-nil
// StartErr to simulate permission or device failures.
type Device struct {
	// StartErr, when set, is returned by Start.
	StartErr error

	mu      sync.Mutex
	stream  chan []float32
	started bool
	stopped bool
}

// Start implements [audio.Device].
func (d *Device) Start(ctx context.Context, _ audio.Format) (<-chan []float32, error) {
	if d.StartErr != nil {
		return nil, d.StartErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stream = make(chan []float32, 64)
	d.started = true
	context.AfterFunc(ctx, d.closeStream)
	return d.stream, nil
}

// Push delivers one block of samples to the capture pipeline. Blocks pushed
// after Stop are discarded.
func (d *Device) Push(samples []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil || d.stopped {
		return
	}
	d.stream <- samples
}

// Stop implements [audio.Device]. Idempotent.
func (d *Device) Stop() error {
	d.closeStream()
	return nil
}

// Stopped reports whether Stop was called (or the context was cancelled).
func (d *Device) Stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

func (d *Device) closeStream() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.stream != nil {
		close(d.stream)
	}
}

// Sink records every write for later inspection.
type Sink struct {
	// WriteErr, when set, is returned by every Write.
	WriteErr error

	mu     sync.Mutex
	writes [][]int16
}

// Write implements [audio.Sink].
func (s *Sink) Write(samples []int16) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]int16, len(samples))
	copy(cp, samples)
	s.writes = append(s.writes, cp)
	return nil
}

// Writes returns a snapshot of all recorded writes in order.
func (s *Sink) Writes() [][]int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]int16, len(s.writes))
	copy(out, s.writes)
	return out
}

// Clock is a manually advanced [audio.Clock]. Now starts at zero; Advance
// moves time forward and releases any After waiters whose deadline passed.
type Clock struct {
	mu      sync.Mutex
	now     time.Duration
	waiters []waiter
}

type waiter struct {
	deadline time.Duration
	ch       chan time.Time
}

// NewClock creates a fake clock at time zero.
func NewClock() *Clock { return &Clock{} }

// Now implements [audio.Clock].
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After implements [audio.Clock]. A non-positive d fires immediately.
func (c *Clock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		ch <- time.Time{}
		return ch
	}
	c.waiters = append(c.waiters, waiter{deadline: c.now + d, ch: ch})
	return ch
}

// Advance moves the clock forward by d, firing all waiters whose deadline
// has been reached.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var remaining []waiter
	for _, w := range c.waiters {
		if w.deadline <= c.now {
			w.ch <- time.Time{}
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
	c.mu.Unlock()
}
