package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSessionActive is returned by Manager.Open while another session is open.
var ErrSessionActive = errors.New("voice: a session is already active")

// Manager enforces the one-open-session-at-a-time rule. Opening a new
// session requires closing the previous one first.
type Manager struct {
	mu     sync.Mutex
	active *Controller
}

// Open creates and opens a controller for cfg. It fails with
// [ErrSessionActive] when an earlier session has not been closed.
func (m *Manager) Open(ctx context.Context, cfg Config) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		st := m.active.State()
		if st != StateIdle && st != StateError {
			return nil, fmt.Errorf("%w (state %s)", ErrSessionActive, st)
		}
		m.active = nil
	}

	c := New(cfg)
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	m.active = c
	return c, nil
}

// Close tears down the active session, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	active := m.active
	m.active = nil
	m.mu.Unlock()

	if active == nil {
		return nil
	}
	return active.Close()
}
