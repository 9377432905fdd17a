package audio

import (
	"fmt"
	"math"
	"time"
)

// EncodeFrame converts floating-point capture samples in the range [-1, 1]
// into a transport [Frame]. Each sample is scaled by 32768, rounded to the
// nearest integer, clamped to the int16 range, and packed little-endian.
//
// No resampling is performed — the caller must already capture at
// [CaptureRate]. EncodeFrame is total for finite input: there is no error
// case.
func EncodeFrame(samples []float32) Frame {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		n := int16(v)
		data[i*2] = byte(n)
		data[i*2+1] = byte(n >> 8)
	}
	return Frame{Data: data, MIME: CaptureMIME}
}

// DecodeFrame unpacks little-endian int16 PCM bytes into samples. An odd
// byte length is a programming error, not a recoverable condition: DecodeFrame
// panics rather than guessing at alignment.
func DecodeFrame(data []byte) []int16 {
	if len(data)%2 != 0 {
		panic(fmt.Sprintf("audio: DecodeFrame: odd PCM byte length %d", len(data)))
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return out
}

// Buffer is a decoded, playable audio buffer: one float32 slice per channel,
// normalised to [-1, 1).
type Buffer struct {
	// Channels holds one sample slice per channel, all of equal length.
	Channels [][]float32

	// SampleRate in Hz.
	SampleRate int
}

// Duration returns the play time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || len(b.Channels) == 0 || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Channels[0])) * time.Second / time.Duration(b.SampleRate)
}

// ToPlayableBuffer de-interleaves int16 samples into a playable [Buffer],
// normalising each sample back to float by dividing by 32768. Iteration is
// channel-major per frame: for interleaved input [L0 R0 L1 R1 …] channel 0
// receives L0 L1 … and channel 1 receives R0 R1 ….
func ToPlayableBuffer(samples []int16, sampleRate, channels int) *Buffer {
	if channels <= 0 {
		channels = 1
	}
	frames := len(samples) / channels
	buf := &Buffer{
		Channels:   make([][]float32, channels),
		SampleRate: sampleRate,
	}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}
	for i := range frames {
		for c := range channels {
			buf.Channels[c][i] = float32(samples[i*channels+c]) / 32768
		}
	}
	return buf
}

// Interleave flattens a Buffer back into interleaved int16 PCM. It is the
// write-side counterpart of [ToPlayableBuffer], used when handing a scheduled
// buffer to a [Sink].
func Interleave(b *Buffer) []int16 {
	if b == nil || len(b.Channels) == 0 {
		return nil
	}
	channels := len(b.Channels)
	frames := len(b.Channels[0])
	out := make([]int16, frames*channels)
	for i := range frames {
		for c := range channels {
			v := float64(b.Channels[c][i]) * 32768
			if v > 32767 {
				v = 32767
			} else if v < -32768 {
				v = -32768
			}
			out[i*channels+c] = int16(v)
		}
	}
	return out
}
