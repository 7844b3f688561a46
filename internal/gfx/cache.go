package gfx

import "time"

// CacheSlotCount is the fixed bitmap cache size (MS-RDPEGFX caches are
// negotiated, but this gateway always presents the maximum: 4096 slots).
const CacheSlotCount = 4096

const tileBytes = 64 * 64 * BytesPerPixel

// cacheSlot holds one 64×64 BGRA32 tile plus the provenance metadata used
// for diagnostics.
type cacheSlot struct {
	filled        bool
	pixels        [tileBytes]byte
	originSurface uint16
	capturedAt    time.Time
}

// Cache is the session-scoped bitmap cache. Slots survive surface deletion
// and surface reset; only an explicit SurfaceToCache overwrites one.
type Cache struct {
	slots [CacheSlotCount]cacheSlot
}

// NewCache returns an empty 4096-slot cache.
func NewCache() *Cache {
	return &Cache{}
}

// Fill reads a 64×64 rectangle out of src's surface buffer (never the
// primary buffer — SurfaceToCache is surface-buffer-only per the GFX
// contract) and stores it in slot, overwriting any prior contents.
func (c *Cache) Fill(slot int, src *Surface, rect Rect) error {
	if slot < 0 || slot >= CacheSlotCount {
		return ErrSlotOutOfRange
	}
	if rect.W != 64 || rect.H != 64 {
		return ErrRectOutOfBounds
	}

	s := &c.slots[slot]
	if err := src.ReadRect(rect, s.pixels[:]); err != nil {
		return err
	}
	s.filled = true
	s.originSurface = src.ID
	s.capturedAt = time.Now()
	return nil
}

// Pixels returns the slot's stored tile, or an error if the slot was never
// filled.
func (c *Cache) Pixels(slot int) ([]byte, error) {
	if slot < 0 || slot >= CacheSlotCount {
		return nil, ErrSlotOutOfRange
	}
	s := &c.slots[slot]
	if !s.filled {
		return nil, ErrSlotEmpty
	}
	return s.pixels[:], nil
}
