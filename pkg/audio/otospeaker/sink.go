// Package otospeaker implements [audio.Sink] over the oto audio output
// library (github.com/ebitengine/oto/v3). It is the default speaker for the
// Clausewise CLI.
package otospeaker

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/clausewise/clausewise/pkg/audio"
)

var _ audio.Sink = (*Sink)(nil)

// bufferBytes is the oto ring buffer size: ~100 ms at 24 kHz mono 16-bit.
// Small enough that barge-in cuts audio quickly, large enough to avoid
// glitches.
const bufferBytes = 4800

// Sink streams interleaved int16 PCM to the system speaker.
type Sink struct {
	mu     sync.Mutex
	player *oto.Player
	pipeW  *io.PipeWriter
	closed bool
}

// New opens the audio output at the given format and starts playback.
func New(format audio.Format) (*Sink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   bufferBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("otospeaker: open output: %w", err)
	}
	<-ready

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()

	return &Sink{player: player, pipeW: pw}, nil
}

// Write implements [audio.Sink].
func (s *Sink) Write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("otospeaker: sink closed")
	}
	pcm := make([]byte, len(samples)*2)
	for i, v := range samples {
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}
	if _, err := s.pipeW.Write(pcm); err != nil {
		return fmt.Errorf("otospeaker: write: %w", err)
	}
	return nil
}

// Close stops playback and releases the output device. Idempotent.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.pipeW.Close()
	return s.player.Close()
}
