package voice

// State is the lifecycle state of one voice session. Exactly one state holds
// at any time; all transitions happen on the controller's event loop.
type State int

const (
	// StateIdle means no session is open. Initial and terminal.
	StateIdle State = iota

	// StateListening means capture is flowing and the backend has not begun
	// a response.
	StateListening

	// StateThinking means the backend acknowledged user speech (an input
	// transcript delta arrived) but no response audio has arrived yet.
	StateThinking

	// StateSpeaking means response audio is scheduled or playing.
	StateSpeaking

	// StateError is terminal until the caller opens a fresh session.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
