package audio_test

import (
	"testing"
	"time"

	"github.com/clausewise/clausewise/pkg/audio"
	"github.com/clausewise/clausewise/pkg/audio/mock"
)

// chunk returns n different-duration test chunks; 240 samples = 10 ms at the
// playback rate.
func chunkOf(ms int) []int16 {
	return make([]int16, ms*audio.PlaybackRate/1000)
}

func TestScheduler_CursorAdvancesByChunkDuration(t *testing.T) {
	t.Parallel()

	clock := mock.NewClock()
	s := audio.NewScheduler(clock, &mock.Sink{}, nil)
	defer s.Close()

	s.Enqueue(chunkOf(10))
	if got := s.NextStartTime(); got != 10*time.Millisecond {
		t.Fatalf("cursor after first chunk = %v, want 10ms", got)
	}

	s.Enqueue(chunkOf(30))
	if got := s.NextStartTime(); got != 40*time.Millisecond {
		t.Fatalf("cursor after second chunk = %v, want 40ms", got)
	}
}

func TestScheduler_NeverSchedulesInThePast(t *testing.T) {
	t.Parallel()

	clock := mock.NewClock()
	s := audio.NewScheduler(clock, &mock.Sink{}, nil)
	defer s.Close()

	s.Enqueue(chunkOf(10)) // cursor now 10ms

	// The clock has moved well past the cursor; the next chunk must start at
	// the current clock time, not at the stale cursor.
	clock.Advance(100 * time.Millisecond)
	s.Enqueue(chunkOf(10))
	if got := s.NextStartTime(); got != 110*time.Millisecond {
		t.Fatalf("cursor = %v, want 110ms (current clock + chunk duration)", got)
	}
}

func TestScheduler_InterruptClearsScheduleAndResetsCursor(t *testing.T) {
	t.Parallel()

	clock := mock.NewClock()
	s := audio.NewScheduler(clock, &mock.Sink{}, nil)
	defer s.Close()

	s.Enqueue(chunkOf(10))
	s.Enqueue(chunkOf(10))
	s.Enqueue(chunkOf(10))

	s.InterruptAll()
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending after InterruptAll = %d, want 0", got)
	}
	if got := s.NextStartTime(); got != 0 {
		t.Errorf("cursor after InterruptAll = %v, want 0", got)
	}

	// A chunk enqueued right after starts at (approximately) the current
	// clock time, not behind the cancelled chunks' original slots.
	clock.Advance(5 * time.Millisecond)
	s.Enqueue(chunkOf(10))
	if got := s.NextStartTime(); got != 15*time.Millisecond {
		t.Errorf("cursor after post-interrupt enqueue = %v, want 15ms", got)
	}
}

func TestScheduler_PlaysChunksAndSignalsDrained(t *testing.T) {
	t.Parallel()

	sink := &mock.Sink{}
	s := audio.NewScheduler(audio.NewSystemClock(), sink, nil)
	defer s.Close()

	s.Enqueue(chunkOf(10))
	s.Enqueue(chunkOf(10))

	select {
	case <-s.Drained():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for drained signal")
	}

	if got := len(sink.Writes()); got != 2 {
		t.Errorf("sink writes = %d, want 2", got)
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending after drain = %d, want 0", got)
	}
}

func TestScheduler_EnqueueAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	s := audio.NewScheduler(mock.NewClock(), &mock.Sink{}, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	s.Enqueue(chunkOf(10))
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending after post-close enqueue = %d, want 0", got)
	}
}

func TestScheduler_EmptyChunkIgnored(t *testing.T) {
	t.Parallel()

	s := audio.NewScheduler(mock.NewClock(), &mock.Sink{}, nil)
	defer s.Close()

	s.Enqueue(nil)
	if got := s.NextStartTime(); got != 0 {
		t.Errorf("cursor after empty enqueue = %v, want 0", got)
	}
}
