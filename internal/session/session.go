// Package session owns the per-connection state a remote desktop session
// needs: its GFX surface bank, progressive decoder context, H.264 frame
// queue, and audio ring, plus the disconnected/connecting/connected/error
// state machine that brackets their lifetime.
package session

import (
	"errors"
	"sync"

	"github.com/arcspan/rdpgfx-gateway/internal/audio"
	"github.com/arcspan/rdpgfx-gateway/internal/gfx"
	"github.com/arcspan/rdpgfx-gateway/internal/progressive"
)

// State is one point in the session lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

var ErrInvalidTransition = errors.New("session: invalid state transition")

// Session is one remote desktop connection: one surface bank, one
// progressive decoder context, one audio ring, and the state machine
// gating their use. A Session is exclusively owned by its caller; the
// registry only holds a lookup entry, never ownership.
type Session struct {
	ID string

	mu    sync.Mutex
	state State

	Bank        *gfx.Bank
	Progressive *progressive.Context
	Audio       *audio.Ring
}

// New creates a disconnected session with a fresh surface bank sized to
// width×height, a default-sized progressive decoder context, and an audio
// ring of the given capacity.
func New(id string, width, height int32, audioRingCapacity int) *Session {
	return NewWithWorkerPool(id, width, height, audioRingCapacity, 0, 0)
}

// NewWithWorkerPool behaves like New but sizes the progressive decoder's
// tile worker pool from workers/queueSize (each falling back to the
// package default when <= 0), so a Registry can propagate its configured
// GFX worker pool sizing down to every session it creates.
func NewWithWorkerPool(id string, width, height int32, audioRingCapacity, workers, queueSize int) *Session {
	return &Session{
		ID:          id,
		state:       StateDisconnected,
		Bank:        gfx.NewBank(width, height),
		Progressive: progressive.NewContextWithPool(workers, queueSize),
		Audio:       audio.NewRing(audioRingCapacity),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transitions enumerates the only state changes this session permits.
var transitions = map[State]map[State]bool{
	StateDisconnected: {StateConnecting: true},
	StateConnecting:    {StateConnected: true, StateError: true, StateDisconnected: true},
	StateConnected:     {StateError: true, StateDisconnected: true},
	StateError:         {StateDisconnected: true},
}

// Transition moves the session to next, rejecting any change not listed in
// transitions.
func (s *Session) Transition(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !transitions[s.state][next] {
		return ErrInvalidTransition
	}
	s.state = next
	return nil
}

// Disconnect transitions the session to disconnected and drains its worker
// pool, discarding any mid-flight frame. It is idempotent: disconnecting an
// already-disconnected session is a no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	s.Progressive.Pool.Close()
}
