package session

import (
	"errors"
	"sync"
)

// ErrLimitReached is returned by Registry.Create when the registry already
// holds its configured capacity of sessions.
var ErrLimitReached = errors.New("session: limit reached")

// ErrNotFound is returned when a lookup or removal names an id the
// registry does not hold.
var ErrNotFound = errors.New("session: not found")

const (
	defaultCapacity = 100
	minCapacity     = 2
	maxCapacity     = 1000
)

// Registry is a capacity-bounded lookup table from an opaque connection id
// to its Session, guarded by a single mutex held only across the lookup,
// add, and remove operations themselves.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	capacity int

	workerPoolSize  int
	workerQueueSize int
}

// NewRegistry returns a Registry capped at capacity sessions. capacity is
// clamped to [2, 1000]; 0 or a negative value (meaning "unset") is replaced
// with the default of 100.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if capacity < minCapacity {
		capacity = minCapacity
	}
	if capacity > maxCapacity {
		capacity = maxCapacity
	}
	return &Registry{
		sessions: make(map[string]*Session),
		capacity: capacity,
	}
}

// SetWorkerPoolSize configures the tile worker pool size/queue depth every
// session created afterward gets its progressive decoder built with
// (spec §5's "default 4 workers, bounded queue 256" is a default a
// deployment can override via GFX_WORKER_POOL_SIZE/GFX_WORKER_QUEUE_SIZE).
// Either value <= 0 falls back to the progressive package's own default.
func (r *Registry) SetWorkerPoolSize(workers, queueSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workerPoolSize = workers
	r.workerQueueSize = queueSize
}

// Create constructs a new Session for id and adds it to the registry,
// failing with ErrLimitReached if the registry is already at capacity.
func (r *Registry) Create(id string, width, height int32, audioRingCapacity int) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return nil, errors.New("session: id already registered")
	}
	if len(r.sessions) >= r.capacity {
		return nil, ErrLimitReached
	}
	s := NewWithWorkerPool(id, width, height, audioRingCapacity, r.workerPoolSize, r.workerQueueSize)
	r.sessions[id] = s
	return s, nil
}

// Get looks up the session registered under id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes id's session from the registry. It does not itself
// disconnect the session; callers that want both should call
// Session.Disconnect before or after removing it.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Count returns the number of sessions currently registered.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Capacity returns the registry's configured maximum session count.
func (r *Registry) Capacity() int {
	return r.capacity
}
