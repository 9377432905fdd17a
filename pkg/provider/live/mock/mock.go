// Package mock provides scriptable fakes for the live voice provider
// interfaces, used by the session controller tests.
package mock

import (
	"context"
	"sync"

	"github.com/clausewise/clausewise/pkg/audio"
	"github.com/clausewise/clausewise/pkg/provider/live"
)

// Provider implements live.Provider by handing out pre-built sessions.
type Provider struct {
	// ConnectErr, when set, is returned by Connect.
	ConnectErr error

	// Session is returned by Connect when ConnectErr is nil. When nil, a
	// fresh default Session is created per Connect call.
	Session *Session

	mu      sync.Mutex
	configs []live.SessionConfig
}

// Connect implements live.Provider.
func (p *Provider) Connect(_ context.Context, cfg live.SessionConfig) (live.Session, error) {
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	p.mu.Lock()
	p.configs = append(p.configs, cfg)
	sess := p.Session
	p.mu.Unlock()
	if sess == nil {
		sess = NewSession()
	}
	return sess, nil
}

// Configs returns the SessionConfig of every Connect call in order.
func (p *Provider) Configs() []live.SessionConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]live.SessionConfig, len(p.configs))
	copy(out, p.configs)
	return out
}

// Session is a scriptable live.Session. Tests push inbound events with
// [Session.Emit] and inspect outbound frames with [Session.SentFrames].
type Session struct {
	mu     sync.Mutex
	events chan live.Event
	sent   []audio.Frame
	closed bool

	// SendErr, when set, is returned by SendAudio.
	SendErr error
}

// NewSession creates an open mock session.
func NewSession() *Session {
	return &Session{events: make(chan live.Event, 64)}
}

// Emit delivers one inbound event to the session consumer. Emitting on a
// closed session is a no-op (mirrors late backend callbacks after teardown).
func (s *Session) Emit(ev live.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// SendAudio implements live.Session.
func (s *Session) SendAudio(frame audio.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		return s.SendErr
	}
	s.sent = append(s.sent, frame)
	return nil
}

// SentFrames returns all frames sent so far.
func (s *Session) SentFrames() []audio.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audio.Frame, len(s.sent))
	copy(out, s.sent)
	return out
}

// Events implements live.Session.
func (s *Session) Events() <-chan live.Event { return s.events }

// Close implements live.Session. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
