// Package audio provides the real-time audio primitives for the Clausewise
// voice advisor: PCM codec utilities, the microphone capture pipeline, the
// gap-free playback scheduler, and a small spectrum analyser for
// visualisation.
//
// All audio on the wire is linear 16-bit little-endian PCM. Outbound capture
// runs at 16 kHz mono; inbound synthesised speech arrives at 24 kHz mono.
package audio

import "time"

const (
	// CaptureRate is the fixed microphone capture rate in Hz. Frames are sent
	// to the voice backend at this rate without resampling.
	CaptureRate = 16000

	// PlaybackRate is the fixed rate in Hz of synthesised audio chunks
	// arriving from the voice backend.
	PlaybackRate = 24000

	// CaptureFrameSamples is the number of samples per outbound capture frame.
	CaptureFrameSamples = 4096

	// CaptureMIME tags outbound frames for the transport envelope.
	CaptureMIME = "audio/pcm;rate=16000"
)

// Format describes the sample rate and channel count of a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Duration returns the play time of n int16 samples in this format.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 || n <= 0 {
		return 0
	}
	frames := n / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Frame is a fixed-length block of outbound captured audio, already packed
// as little-endian int16 PCM and tagged with its transport MIME type.
// Frames are transient: they are never retained after transmission.
type Frame struct {
	// Data is little-endian int16 PCM.
	Data []byte

	// MIME is the transport envelope tag, e.g. "audio/pcm;rate=16000".
	MIME string
}

// Samples returns the number of int16 samples in the frame.
func (f Frame) Samples() int { return len(f.Data) / 2 }
