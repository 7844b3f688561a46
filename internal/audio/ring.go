// Package audio holds the session audio boundary: a lock-protected ring
// carrying length-prefixed Opus frames from the audio subsystem producer to
// the transport consumer. Encoding itself (the RDPSND/RDPEAI channel
// negotiation, PCM capture) is out of this gateway's scope; only the
// hand-off buffer lives here.
package audio

import (
	"encoding/binary"
	"errors"
	"sync"
)

var (
	ErrRingFull  = errors.New("audio: ring buffer is full")
	ErrRingEmpty = errors.New("audio: ring buffer is empty")
)

// Ring is a fixed-capacity FIFO of length-prefixed frames.
type Ring struct {
	mu       sync.Mutex
	frames   [][]byte
	capacity int
}

// NewRing returns an empty ring holding at most capacity frames.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 32
	}
	return &Ring{capacity: capacity}
}

// Push appends a length-prefixed Opus frame. It fails rather than dropping
// audio silently: a full audio ring means the consumer has stalled, which
// the caller should surface as resource exhaustion.
func (r *Ring) Push(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) >= r.capacity {
		return ErrRingFull
	}
	stored := make([]byte, len(frame))
	copy(stored, frame)
	r.frames = append(r.frames, stored)
	return nil
}

// Pop removes and returns the oldest frame.
func (r *Ring) Pop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil, ErrRingEmpty
	}
	f := r.frames[0]
	r.frames = r.frames[1:]
	return f, nil
}

// Len reports how many frames are currently queued.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// EncodeLengthPrefixed prepends a 4-byte little-endian length to frame, the
// wire form the transport expects inside the AUDI/OPUS tagged message.
func EncodeLengthPrefixed(frame []byte) []byte {
	out := make([]byte, 4+len(frame))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(frame)))
	copy(out[4:], frame)
	return out
}
