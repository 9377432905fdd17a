package audio

import (
	"log/slog"
	"sync"
	"time"
)

// Clock is the playback timebase. Real implementations wrap the hardware
// audio clock (or the monotonic wall clock as an approximation); tests use a
// manually advanced fake so scheduling properties are deterministic.
type Clock interface {
	// Now returns the current playback clock time, monotonic from stream start.
	Now() time.Duration

	// After returns a channel that fires once d has elapsed on this clock.
	After(d time.Duration) <-chan time.Time
}

// SystemClock implements [Clock] over the runtime monotonic clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a SystemClock whose zero point is now.
func NewSystemClock() *SystemClock { return &SystemClock{start: time.Now()} }

func (c *SystemClock) Now() time.Duration                     { return time.Since(c.start) }
func (c *SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Sink receives interleaved int16 PCM for immediate output. Implementations
// must accept writes promptly; the scheduler paces writes itself.
type Sink interface {
	Write(samples []int16) error
}

// scheduled is one inbound chunk placed on the playback timeline.
type scheduled struct {
	buf   *Buffer
	start time.Duration
}

// Scheduler plays inbound audio chunks back-to-back with no gaps and no
// overlap. It tracks a monotonic cursor — the earliest time the next chunk
// may begin — advancing it by exactly the duration of each chunk scheduled,
// and never schedules a chunk in the past.
//
// Chunks may arrive at irregular intervals; the cursor arithmetic absorbs
// the jitter. [Scheduler.InterruptAll] models barge-in: everything scheduled
// or playing stops immediately and the cursor resets to zero so the next
// chunk starts right away instead of queueing behind cancelled audio.
//
// All exported methods are safe for concurrent use.
type Scheduler struct {
	clock    Clock
	sink     Sink
	analyser *Analyser
	format   Format

	mu            sync.Mutex
	cursor        time.Duration
	queue         []scheduled
	playing       bool
	cancelPlaying chan struct{}
	closed        bool

	notify  chan struct{}
	drained chan struct{}
	done    chan struct{}
}

// NewScheduler creates a Scheduler that plays chunks through sink, timed
// against clock. analyser may be nil. The dispatch goroutine starts
// immediately; call [Scheduler.Close] to stop it.
func NewScheduler(clock Clock, sink Sink, analyser *Analyser) *Scheduler {
	s := &Scheduler{
		clock:    clock,
		sink:     sink,
		analyser: analyser,
		format:   Format{SampleRate: PlaybackRate, Channels: 1},
		notify:   make(chan struct{}, 1),
		drained:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// Enqueue decodes an inbound chunk of int16 samples at [PlaybackRate] mono
// and schedules it at max(cursor, now), then advances the cursor by the
// chunk's duration. Empty chunks and chunks enqueued after Close are ignored.
func (s *Scheduler) Enqueue(samples []int16) {
	buf := ToPlayableBuffer(samples, s.format.SampleRate, s.format.Channels)
	if buf.Duration() == 0 {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	start := s.cursor
	if now := s.clock.Now(); now > start {
		start = now
	}
	s.cursor = start + buf.Duration()
	s.queue = append(s.queue, scheduled{buf: buf, start: start})
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// InterruptAll immediately stops the chunk currently playing, discards every
// pending chunk, and resets the cursor to zero.
func (s *Scheduler) InterruptAll() {
	s.mu.Lock()
	if s.cancelPlaying != nil {
		close(s.cancelPlaying)
		s.cancelPlaying = nil
	}
	s.queue = nil
	s.cursor = 0
	s.mu.Unlock()
	if s.analyser != nil {
		s.analyser.Reset()
	}
}

// Drained returns a channel that receives a signal each time the set of
// scheduled and playing chunks becomes empty after playback completed
// naturally. Interrupts and Close do not signal drained.
func (s *Scheduler) Drained() <-chan struct{} { return s.drained }

// NextStartTime returns the current cursor value.
func (s *Scheduler) NextStartTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Pending reports the number of chunks scheduled or playing.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.queue)
	if s.playing {
		n++
	}
	return n
}

// Close stops the dispatch goroutine and discards all scheduled chunks.
// Idempotent. The sink is owned by the caller and is not closed here.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancelPlaying != nil {
		close(s.cancelPlaying)
		s.cancelPlaying = nil
	}
	s.queue = nil
	s.cursor = 0
	s.mu.Unlock()

	close(s.done)
	return nil
}

// dispatch pulls chunks off the timeline in order and plays each at its
// scheduled start.
func (s *Scheduler) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		for {
			chunk, cancel, ok := s.dequeue()
			if !ok {
				break
			}

			played := s.play(chunk, cancel)

			s.mu.Lock()
			if s.cancelPlaying == cancel {
				s.cancelPlaying = nil
			}
			s.playing = false
			empty := len(s.queue) == 0
			s.mu.Unlock()

			if played && empty {
				select {
				case s.drained <- struct{}{}:
				default:
				}
			}
		}
	}
}

// dequeue pops the next scheduled chunk and marks it playing. Returns
// ok=false when the timeline is empty.
func (s *Scheduler) dequeue() (scheduled, chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 || s.closed {
		return scheduled{}, nil, false
	}
	chunk := s.queue[0]
	s.queue = s.queue[1:]
	cancel := make(chan struct{})
	s.cancelPlaying = cancel
	s.playing = true
	return chunk, cancel, true
}

// play waits for the chunk's start time, writes it to the sink, and holds
// until the chunk's end time so back-to-back pacing matches real playback.
// Returns false if the chunk was cancelled before completing.
func (s *Scheduler) play(chunk scheduled, cancel chan struct{}) bool {
	if wait := chunk.start - s.clock.Now(); wait > 0 {
		select {
		case <-s.done:
			return false
		case <-cancel:
			return false
		case <-s.clock.After(wait):
		}
	}

	pcm := Interleave(chunk.buf)
	if err := s.sink.Write(pcm); err != nil {
		slog.Warn("playback: sink write failed, dropping chunk", "err", err)
		return false
	}
	if s.analyser != nil {
		s.analyser.FeedInt16(pcm)
	}

	end := chunk.start + chunk.buf.Duration()
	if wait := end - s.clock.Now(); wait > 0 {
		select {
		case <-s.done:
			return false
		case <-cancel:
			return false
		case <-s.clock.After(wait):
		}
	}
	return true
}
