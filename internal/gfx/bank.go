package gfx

import (
	"sync"

	"github.com/arcspan/rdpgfx-gateway/internal/h264queue"
)

// Bank is the per-session GFX state: the surface table, the primary output
// buffer, the bitmap cache, dirty-rectangle tracking, and the H.264 frame
// queue that WireToSurface feeds for AVC codec ids. One Bank belongs to
// exactly one Session.
type Bank struct {
	mu sync.Mutex

	surfaces map[uint16]*Surface
	primary  *Surface

	Cache     *Cache
	Dirty     *DirtyTracker
	H264Queue *h264queue.Queue

	frameInProgress bool
}

// NewBank creates a Bank with an empty surface table and a primary buffer
// of the given output dimensions.
func NewBank(outputWidth, outputHeight int32) *Bank {
	return &Bank{
		surfaces: make(map[uint16]*Surface),
		primary:  NewSurface(0, outputWidth, outputHeight),
		Cache:    NewCache(),
		Dirty:    NewDirtyTracker(outputWidth, outputHeight),
		H264Queue: h264queue.NewQueue(),
	}
}

// CreateSurface allocates a new surface. Fails if id is already active.
func (b *Bank) CreateSurface(id uint16, width, height int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.surfaces[id]; exists {
		return ErrSurfaceExists
	}
	b.surfaces[id] = NewSurface(id, width, height)
	return nil
}

// DeleteSurface frees a surface's buffer. Bitmap cache entries referencing
// it remain valid; only the surface table entry is removed.
func (b *Bank) DeleteSurface(id uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.surfaces[id]; !exists {
		return ErrSurfaceNotFound
	}
	delete(b.surfaces, id)
	return nil
}

// MapSurfaceToOutput marks a surface as contributing to the primary
// buffer at the given output origin.
func (b *Bank) MapSurfaceToOutput(id uint16, outX, outY int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, exists := b.surfaces[id]
	if !exists {
		return ErrSurfaceNotFound
	}
	s.Mapped = true
	s.OutX = outX
	s.OutY = outY
	return nil
}

// Surface returns the surface for id, or false if it is not active.
func (b *Bank) Surface(id uint16) (*Surface, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, exists := b.surfaces[id]
	return s, exists
}

// Primary returns the primary output buffer.
func (b *Bank) Primary() *Surface {
	return b.primary
}

// ResizePrimary reallocates the primary output buffer, e.g. on ResetGraphics.
func (b *Bank) ResizePrimary(width, height int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.primary = NewSurface(0, width, height)
	b.Dirty.Resize(width, height)
}

// primaryRect translates a surface-local rect into primary buffer
// coordinates for a mapped surface.
func primaryRect(s *Surface, rect Rect) Rect {
	return Rect{X: s.OutX + rect.X, Y: s.OutY + rect.Y, W: rect.W, H: rect.H}
}
