// Package voice implements the live voice session lifecycle: microphone
// capture, the bidirectional transport, playback scheduling, transcript
// assembly, and the session state machine.
//
// A [Controller] owns one session from Open to teardown. All state
// transitions happen on a single event-loop goroutine fed by the transport's
// ordered event stream, the playback drained signal, and the idle timer, so
// no two transitions for the same session ever interleave. Capture frames
// bypass the loop entirely; they flow straight from the device callback to
// the transport.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clausewise/clausewise/internal/observe"
	"github.com/clausewise/clausewise/pkg/audio"
	"github.com/clausewise/clausewise/pkg/provider/live"
)

// Corrector normalises finalized user-turn text before it enters history.
// The transcript corrector fixes mis-transcribed legal terms against the
// document's jargon glossary.
type Corrector interface {
	Correct(text string) string
}

// Config carries the collaborators and settings for one session.
type Config struct {
	// Provider opens the live transport session.
	Provider live.Provider

	// Device is the microphone source.
	Device audio.Device

	// Sink receives playback PCM.
	Sink audio.Sink

	// Clock drives playback scheduling. Nil selects the system clock.
	Clock audio.Clock

	// Persona supplies the system prompt.
	Persona Persona

	// Voice is the prebuilt backend voice name.
	Voice string

	// Language is the spoken-language code.
	Language string

	// IdleTimeout forces teardown when no transport event arrives for this
	// long while listening or thinking. Zero disables the timeout.
	IdleTimeout time.Duration

	// Corrector is applied to finalized user turns. Nil means identity.
	Corrector Corrector

	// Metrics defaults to observe.DefaultMetrics.
	Metrics *observe.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Controller runs one voice session. Create with New, start with Open, and
// finish with Close; a Controller is not reusable after teardown.
type Controller struct {
	cfg     Config
	metrics *observe.Metrics
	logger  *slog.Logger

	captureAnalyser  *audio.Analyser
	playbackAnalyser *audio.Analyser

	mu        sync.Mutex
	state     State
	session   live.Session
	capture   *audio.Capture
	scheduler *audio.Scheduler
	openedAt  time.Time

	history History

	// Event-loop-owned; never touched outside run().
	live          liveBuffer
	awaitingDrain bool

	stop     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
	tearOnce sync.Once
}

// New creates a Controller for one session.
func New(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = audio.NewSystemClock()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		cfg:              cfg,
		metrics:          cfg.Metrics,
		logger:           cfg.Logger.With("persona", cfg.Persona.Name),
		captureAnalyser:  audio.NewAnalyser(audio.CaptureRate),
		playbackAnalyser: audio.NewAnalyser(audio.PlaybackRate),
		state:            StateIdle,
		stop:             make(chan struct{}),
	}
}

// Open acquires resources in order: microphone first, then the transport,
// then the playback scheduler. A failure at any step releases what was
// already acquired and leaves the controller in the error state, so mic
// failures surface before any transport work and nothing leaks across a
// failed open.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("voice: open in state %s", st)
	}
	c.mu.Unlock()

	capture, err := audio.StartCapture(ctx, c.cfg.Device, c.captureAnalyser, c.forward)
	if err != nil {
		c.setState(StateError)
		return fmt.Errorf("voice: start capture: %w", err)
	}

	session, err := c.cfg.Provider.Connect(ctx, live.SessionConfig{
		SystemInstruction:   c.cfg.Persona.SystemPrompt,
		Voice:               c.cfg.Voice,
		Language:            c.cfg.Language,
		InputTranscription:  true,
		OutputTranscription: true,
	})
	if err != nil {
		_ = capture.Stop()
		c.setState(StateError)
		return fmt.Errorf("voice: connect: %w", err)
	}

	scheduler := audio.NewScheduler(c.cfg.Clock, c.cfg.Sink, c.playbackAnalyser)

	c.mu.Lock()
	c.capture = capture
	c.session = session
	c.scheduler = scheduler
	c.openedAt = time.Now()
	c.loopDone = make(chan struct{})
	c.mu.Unlock()

	c.metrics.ActiveSessions.Add(ctx, 1)
	c.setState(StateListening)
	c.logger.Info("voice session open", "voice", c.cfg.Voice, "language", c.cfg.Language)

	go c.run(session, scheduler)
	return nil
}

// Close requests teardown and waits for the event loop to finish.
// Idempotent, and safe when Open never succeeded.
func (c *Controller) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	done := c.loopDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
	return nil
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns the finalized conversation turns so far.
func (c *Controller) History() []Turn {
	return c.history.Turns()
}

// Bins returns the visualization spectrum for whichever analyser matches the
// current state: capture while listening or thinking, playback while
// speaking, all zeros otherwise.
func (c *Controller) Bins() [audio.AnalyserBins]float32 {
	switch c.State() {
	case StateListening, StateThinking:
		return c.captureAnalyser.Bins()
	case StateSpeaking:
		return c.playbackAnalyser.Bins()
	default:
		return [audio.AnalyserBins]float32{}
	}
}

// forward pushes one capture frame to the transport. Runs on the capture
// goroutine; a frame arriving before the session exists or after it closed
// is dropped by the capture pipeline.
func (c *Controller) forward(frame audio.Frame) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return audio.ErrTransportNotReady
	}
	if err := session.SendAudio(frame); err != nil {
		c.metrics.FramesDropped.Add(context.Background(), 1)
		return fmt.Errorf("%w: %w", audio.ErrTransportNotReady, err)
	}
	return nil
}

// run is the session event loop. Every state transition happens here.
func (c *Controller) run(session live.Session, scheduler *audio.Scheduler) {
	defer close(c.loopDone)

	var idleC <-chan time.Time
	var idleTimer *time.Timer
	if c.cfg.IdleTimeout > 0 {
		idleTimer = time.NewTimer(c.cfg.IdleTimeout)
		defer idleTimer.Stop()
		idleC = idleTimer.C
	}
	resetIdle := func() {
		if idleTimer == nil {
			return
		}
		if !idleTimer.Stop() {
			select {
			case <-idleTimer.C:
			default:
			}
		}
		idleTimer.Reset(c.cfg.IdleTimeout)
	}

	for {
		select {
		case <-c.stop:
			c.teardown(StateIdle)
			return

		case ev, ok := <-session.Events():
			if !ok {
				c.logger.Warn("transport closed unexpectedly")
				c.teardown(StateError)
				return
			}
			resetIdle()
			if !c.handleEvent(ev, scheduler) {
				c.teardown(StateError)
				return
			}

		case <-scheduler.Drained():
			if c.awaitingDrain || c.State() == StateSpeaking {
				c.awaitingDrain = false
				c.setState(StateListening)
			}

		case <-idleC:
			st := c.State()
			if st == StateListening || st == StateThinking {
				c.logger.Warn("idle timeout, closing session", "timeout", c.cfg.IdleTimeout)
				c.teardown(StateError)
				return
			}
			idleTimer.Reset(c.cfg.IdleTimeout)
		}
	}
}

// handleEvent applies one transport event. Returns false when the session
// must tear down into the error state.
func (c *Controller) handleEvent(ev live.Event, scheduler *audio.Scheduler) bool {
	switch ev.Type {
	case live.EventInputTranscript:
		c.live.appendUser(ev.Text)
		if c.State() == StateListening {
			c.setState(StateThinking)
		}

	case live.EventOutputTranscript:
		c.live.appendAssistant(ev.Text)

	case live.EventAudio:
		if len(ev.Audio)%2 != 0 {
			c.logger.Warn("dropping malformed audio chunk", "bytes", len(ev.Audio))
			return true
		}
		scheduler.Enqueue(audio.DecodeFrame(ev.Audio))
		c.metrics.ChunksScheduled.Add(context.Background(), 1)
		if st := c.State(); st == StateThinking || st == StateListening {
			c.setState(StateSpeaking)
		}

	case live.EventInterrupted:
		scheduler.InterruptAll()
		c.live.clear()
		c.awaitingDrain = false
		c.metrics.Interruptions.Add(context.Background(), 1)
		c.setState(StateListening)

	case live.EventTurnComplete:
		c.finalizeTurn()
		if scheduler.Pending() == 0 {
			c.awaitingDrain = false
			c.setState(StateListening)
		} else {
			c.awaitingDrain = true
		}

	case live.EventError:
		c.logger.Error("transport error", "err", ev.Err)
		return false
	}
	return true
}

// finalizeTurn trims both live buffers and appends any non-empty transcripts
// to history, user turn first.
func (c *Controller) finalizeTurn() {
	user, assistant := c.live.take()
	if user != "" {
		if c.cfg.Corrector != nil {
			user = c.cfg.Corrector.Correct(user)
		}
		c.history.Append(RoleUser, user)
	}
	if assistant != "" {
		c.history.Append(RoleAssistant, assistant)
	}
}

// teardown releases every resource in order: capture, transport, scheduled
// playback (cleared, cursor reset), analysers. Idempotent; resources that
// were never acquired are skipped.
func (c *Controller) teardown(final State) {
	c.tearOnce.Do(func() {
		c.mu.Lock()
		capture := c.capture
		session := c.session
		scheduler := c.scheduler
		openedAt := c.openedAt
		c.session = nil
		c.mu.Unlock()

		if capture != nil {
			if err := capture.Stop(); err != nil {
				c.logger.Warn("stop capture", "err", err)
			}
			if n := capture.Dropped(); n > 0 {
				c.logger.Debug("capture frames dropped during session", "count", n)
			}
		}
		if session != nil {
			if err := session.Close(); err != nil {
				c.logger.Warn("close transport", "err", err)
			}
		}
		if scheduler != nil {
			scheduler.InterruptAll()
			_ = scheduler.Close()
		}
		c.captureAnalyser.Reset()
		c.playbackAnalyser.Reset()

		if !openedAt.IsZero() {
			ctx := context.Background()
			c.metrics.ActiveSessions.Add(ctx, -1)
			c.metrics.SessionDuration.Record(ctx, time.Since(openedAt).Seconds())
		}

		c.setState(final)
		c.logger.Info("voice session closed", "state", final)
	})
}

// setState records a state transition.
func (c *Controller) setState(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()

	if prev != next {
		c.metrics.RecordTransition(context.Background(), prev.String(), next.String())
		c.logger.Debug("state transition", "from", prev, "to", next)
	}
}
