package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Sentinel errors returned by [Device.Start]. They are kept distinct so the
// session controller can surface actionable guidance: a denied permission
// needs different user action than a missing device.
var (
	// ErrPermissionDenied means the user or OS policy declined microphone access.
	ErrPermissionDenied = errors.New("audio: microphone permission denied")

	// ErrDeviceNotFound means no capture device is available.
	ErrDeviceNotFound = errors.New("audio: no capture device found")
)

// DeviceError wraps any other failure of the capture device.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string { return fmt.Sprintf("audio: capture device: %v", e.Err) }
func (e *DeviceError) Unwrap() error { return e.Err }

// ErrTransportNotReady is returned by a [ForwardFunc] when the session
// transport cannot accept a frame yet. The capture pipeline drops the frame:
// real-time audio that arrives late is useless, so there is no send queue.
var ErrTransportNotReady = errors.New("audio: transport not ready")

// Device is a microphone source. Implementations deliver normalised float32
// sample blocks of arbitrary size on the returned channel until Stop is
// called or ctx is cancelled, then close the channel.
//
// Start must fail with [ErrPermissionDenied], [ErrDeviceNotFound], or a
// [*DeviceError] so callers can distinguish the failure classes.
type Device interface {
	Start(ctx context.Context, format Format) (<-chan []float32, error)
	// Stop releases the device. It must be safe to call more than once and
	// safe to call on a device that never started.
	Stop() error
}

// ForwardFunc receives each encoded capture frame as it becomes available.
// Returning [ErrTransportNotReady] drops the frame silently (counted);
// any other error is logged and the frame is likewise dropped.
type ForwardFunc func(Frame) error

// Capture is the microphone capture pipeline. It slices the device's sample
// stream into fixed [CaptureFrameSamples] frames and, for each frame,
// synchronously feeds the visualisation analyser and forwards the encoded
// frame to the transport. There is no backlog: frames the transport cannot
// take are dropped.
type Capture struct {
	dev      Device
	analyser *Analyser
	forward  ForwardFunc

	cancel  context.CancelFunc
	done    chan struct{}
	dropped atomic.Int64

	stopOnce sync.Once
	stopErr  error
}

// StartCapture acquires the device at [CaptureRate] mono and starts the
// pipeline. On any device failure nothing is left running and the error is
// returned unchanged so callers can classify it.
//
// analyser may be nil; forward must not be.
func StartCapture(ctx context.Context, dev Device, analyser *Analyser, forward ForwardFunc) (*Capture, error) {
	runCtx, cancel := context.WithCancel(ctx)
	stream, err := dev.Start(runCtx, Format{SampleRate: CaptureRate, Channels: 1})
	if err != nil {
		cancel()
		return nil, err
	}

	c := &Capture{
		dev:      dev,
		analyser: analyser,
		forward:  forward,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run(stream)
	return c, nil
}

// run accumulates device blocks into fixed-size frames and pushes each one
// through the analyser and the forward callback. It exits when the device
// stream closes.
func (c *Capture) run(stream <-chan []float32) {
	defer close(c.done)

	pending := make([]float32, 0, CaptureFrameSamples*2)
	for block := range stream {
		pending = append(pending, block...)
		for len(pending) >= CaptureFrameSamples {
			frame := pending[:CaptureFrameSamples]
			c.emit(frame)
			pending = pending[CaptureFrameSamples:]
		}
		// Reclaim capacity once the backlog is consumed.
		if len(pending) == 0 {
			pending = pending[:0:cap(pending)]
		}
	}
}

func (c *Capture) emit(samples []float32) {
	if c.analyser != nil {
		c.analyser.Feed(samples)
	}
	if err := c.forward(EncodeFrame(samples)); err != nil {
		c.dropped.Add(1)
		if !errors.Is(err, ErrTransportNotReady) {
			slog.Warn("capture: dropping frame", "err", err)
		}
	}
}

// Dropped reports how many frames were dropped because the transport could
// not accept them.
func (c *Capture) Dropped() int64 { return c.dropped.Load() }

// Stop halts capture, releases the device, and waits for the pipeline
// goroutine to exit. Idempotent.
func (c *Capture) Stop() error {
	c.stopOnce.Do(func() {
		c.cancel()
		c.stopErr = c.dev.Stop()
		<-c.done
	})
	return c.stopErr
}
