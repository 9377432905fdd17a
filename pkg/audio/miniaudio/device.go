// Package miniaudio implements [audio.Device] on top of the miniaudio
// bindings (github.com/gen2brain/malgo). It is the default microphone source
// for the Clausewise CLI.
package miniaudio

import (
	"context"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/clausewise/clausewise/pkg/audio"
)

// Compile-time assertion that Device satisfies the audio interface.
var _ audio.Device = (*Device)(nil)

// blockSamples is the delivery granularity of the device callback buffer.
// The capture pipeline reslices into its own frame size, so this only needs
// to be small enough to keep latency low.
const streamBuffer = 64

// Device captures microphone audio via miniaudio.
type Device struct {
	mu      sync.Mutex
	allocd  *malgo.AllocatedContext
	dev     *malgo.Device
	stream  chan []float32
	stopped bool
}

// New creates an unstarted Device.
func New() *Device { return &Device{} }

// Start implements [audio.Device]. The device captures signed 16-bit PCM at
// the requested format and converts to normalised float32 blocks.
func (d *Device) Start(ctx context.Context, format audio.Format) (<-chan []float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	allocd, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, classify(err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.PeriodSizeInMilliseconds = 20

	stream := make(chan []float32, streamBuffer)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, _ uint32) {
			block := bytesToFloat32(in)
			select {
			case stream <- block:
			default:
				// Consumer stalled: late capture audio is useless, drop it.
			}
		},
	}

	dev, err := malgo.InitDevice(allocd.Context, cfg, callbacks)
	if err != nil {
		_ = allocd.Uninit()
		return nil, classify(err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = allocd.Uninit()
		return nil, classify(err)
	}

	d.allocd = allocd
	d.dev = dev
	d.stream = stream
	d.stopped = false
	context.AfterFunc(ctx, func() { _ = d.Stop() })
	return stream, nil
}

// Stop implements [audio.Device]. Idempotent.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return nil
	}
	d.stopped = true
	if d.dev != nil {
		d.dev.Uninit()
		d.dev = nil
	}
	if d.allocd != nil {
		_ = d.allocd.Uninit()
		d.allocd = nil
	}
	if d.stream != nil {
		close(d.stream)
		d.stream = nil
	}
	return nil
}

// classify maps miniaudio failures onto the audio package's sentinel errors.
// miniaudio reports result codes as error strings, so matching is textual.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"):
		return audio.ErrPermissionDenied
	case strings.Contains(msg, "no device"), strings.Contains(msg, "device not found"):
		return audio.ErrDeviceNotFound
	default:
		return &audio.DeviceError{Err: err}
	}
}

// bytesToFloat32 converts little-endian int16 PCM to normalised floats.
func bytesToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(s) / 32768
	}
	return out
}
