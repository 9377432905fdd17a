// Package live defines the Provider interface for bidirectional voice
// session backends.
//
// A live provider wraps a real-time voice AI service that accepts streamed
// microphone audio and pushes back partial transcripts, synthesised audio
// chunks, turn markers, and interruption signals over a single stateful
// session.
//
// The central abstraction is [Session]: outbound audio goes in through
// SendAudio on an ordered delivery channel; everything inbound arrives as a
// single discriminated [Event] stream whose order must be preserved —
// reordering corrupts both the transcript and the playback schedule.
//
// All implementations must be safe for concurrent use.
package live

import (
	"context"

	"github.com/clausewise/clausewise/pkg/audio"
)

// EventType discriminates the inbound event union.
type EventType int

const (
	// EventInputTranscript carries a partial transcript delta of the user's
	// speech as recognised by the backend.
	EventInputTranscript EventType = iota

	// EventOutputTranscript carries a partial transcript delta of the
	// assistant's spoken reply.
	EventOutputTranscript

	// EventAudio carries one chunk of synthesised 24 kHz mono PCM.
	EventAudio

	// EventInterrupted signals that the user began speaking while assistant
	// audio was still playing; all scheduled playback must stop immediately.
	EventInterrupted

	// EventTurnComplete marks the end of one exchange: accumulated transcript
	// buffers should be finalised into conversation history.
	EventTurnComplete

	// EventError reports a fatal session error. The session's event channel
	// closes shortly after.
	EventError
)

// String returns the event type's wire-level name for logs.
func (t EventType) String() string {
	switch t {
	case EventInputTranscript:
		return "inputTranscript"
	case EventOutputTranscript:
		return "outputTranscript"
	case EventAudio:
		return "audio"
	case EventInterrupted:
		return "interrupted"
	case EventTurnComplete:
		return "turnComplete"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one inbound session event. Exactly the fields implied by Type are
// set: Text for transcript deltas, Audio for audio chunks, Err for errors.
type Event struct {
	Type  EventType
	Text  string
	Audio []byte
	Err   error
}

// SessionConfig is the initial configuration for a new live session.
type SessionConfig struct {
	// SystemInstruction is the full system prompt: persona, target spoken
	// language, and optional grounding context such as a document analysis.
	// The one-time self-introduction and verbatim legal disclaimer on the
	// first reply are part of this instruction — a protocol contract with the
	// backend, not client logic.
	SystemInstruction string

	// Voice selects the backend's prebuilt voice. Empty means provider default.
	Voice string

	// Language is the BCP-47 code of the target spoken language (e.g. "en-US").
	Language string

	// InputTranscription requests partial transcripts of user speech.
	InputTranscription bool

	// OutputTranscription requests partial transcripts of assistant speech.
	OutputTranscription bool
}

// Session represents an open bidirectional voice session.
//
// Session is the hot path of the voice pipeline: SendAudio must return
// quickly, and the single Events channel must be drained promptly to keep
// the provider's receive loop from stalling.
type Session interface {
	// SendAudio pushes one encoded outbound capture frame. Fire-and-forget;
	// frames are delivered to the backend in the order sent. Returns an error
	// if the session is closed.
	SendAudio(frame audio.Frame) error

	// Events returns the inbound event stream. Events are delivered in strict
	// arrival order on one channel with one consumer. The channel is closed
	// when the session ends, cleanly or not; a terminal failure is delivered
	// as an [EventError] first.
	Events() <-chan Event

	// Close requests a graceful close and releases all session resources.
	// Safe to call multiple times and safe to call concurrently with an
	// in-flight SendAudio.
	Close() error
}

// Provider is the abstraction over any live voice backend.
type Provider interface {
	// Connect establishes a new session. The returned Session accepts audio
	// immediately. ctx governs only the connection attempt; the session lives
	// until Close.
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
}
