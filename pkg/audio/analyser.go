package audio

import (
	"math"
	"sync"
)

// AnalyserBins is the number of frequency-magnitude bins exposed for
// visualisation.
const AnalyserBins = 32

// analyserWindow is the number of recent samples the analyser keeps. At
// 16 kHz this is 64 ms of audio — enough resolution for a level meter
// without noticeable lag.
const analyserWindow = 1024

// Analyser computes a coarse frequency-magnitude spectrum over a sliding
// window of the most recent samples fed to it. It is a visualisation aid,
// not a measurement instrument: bins are evenly spaced up to Nyquist and
// magnitudes are normalised to [0, 1].
//
// All methods are safe for concurrent use.
type Analyser struct {
	sampleRate int

	mu       sync.Mutex
	ring     [analyserWindow]float32
	writePos int
	filled   int
}

// NewAnalyser creates an Analyser for a stream at the given sample rate.
func NewAnalyser(sampleRate int) *Analyser {
	return &Analyser{sampleRate: sampleRate}
}

// Feed appends samples (normalised floats) to the sliding window.
func (a *Analyser) Feed(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.writePos] = s
		a.writePos = (a.writePos + 1) % analyserWindow
	}
	a.filled += len(samples)
	if a.filled > analyserWindow {
		a.filled = analyserWindow
	}
}

// FeedInt16 is a convenience wrapper for PCM sources.
func (a *Analyser) FeedInt16(samples []int16) {
	f := make([]float32, len(samples))
	for i, s := range samples {
		f[i] = float32(s) / 32768
	}
	a.Feed(f)
}

// Reset clears the window: subsequent Bins calls return all zeros until new
// samples arrive.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring = [analyserWindow]float32{}
	a.writePos = 0
	a.filled = 0
}

// Bins returns the current [AnalyserBins] frequency magnitudes. An analyser
// that has received no samples since creation or Reset returns all zeros.
//
// Each bin is a Goertzel filter centred on an evenly spaced frequency between
// 0 and Nyquist, evaluated over the current window.
func (a *Analyser) Bins() [AnalyserBins]float32 {
	a.mu.Lock()
	var window [analyserWindow]float32
	n := a.filled
	if n > 0 {
		// Copy oldest-first so the Goertzel recurrence sees samples in order.
		start := (a.writePos - n + analyserWindow) % analyserWindow
		for i := range n {
			window[i] = a.ring[(start+i)%analyserWindow]
		}
	}
	rate := a.sampleRate
	a.mu.Unlock()

	var bins [AnalyserBins]float32
	if n == 0 || rate <= 0 {
		return bins
	}

	nyquist := float64(rate) / 2
	for b := range AnalyserBins {
		freq := nyquist * float64(b+1) / float64(AnalyserBins+1)
		bins[b] = goertzel(window[:n], freq, rate)
	}
	return bins
}

// goertzel evaluates a single-frequency DFT magnitude over samples,
// normalised by the window length.
func goertzel(samples []float32, freq float64, sampleRate int) float32 {
	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)

	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		power = 0
	}
	mag := math.Sqrt(power) / float64(len(samples))
	if mag > 1 {
		mag = 1
	}
	return float32(mag)
}
