package gfx

import (
	"errors"

	"github.com/arcspan/rdpgfx-gateway/internal/h264queue"
)

// Codec identifies the payload format handed to WireToSurface.
type Codec uint8

const (
	CodecUncompressed Codec = iota
	CodecPlanar
	CodecClearCodec
	CodecProgressive
	CodecAVC420
	CodecAVC444
)

var ErrUnsupportedCodec = errors.New("gfx: unsupported codec id")

// H264Meta carries the framing fields WireToSurface needs to enqueue an
// H.264 payload rather than decode it inline.
type H264Meta struct {
	FrameID   uint32
	CodecID   h264queue.CodecID
	FrameType h264queue.FrameType
	Luma      []byte
	Chroma    []byte
}

// SolidFill fills rect on id's surface buffer and, if mapped, the
// corresponding region of the primary buffer, with a single BGRA color.
func (b *Bank) SolidFill(id uint16, rect Rect, bgra [4]byte) error {
	s, ok := b.Surface(id)
	if !ok {
		return ErrSurfaceNotFound
	}
	if err := s.FillRect(rect, bgra); err != nil {
		return err
	}
	if s.Mapped {
		pr := primaryRect(s, rect)
		if err := b.primary.FillRect(pr, bgra); err != nil {
			return err
		}
		b.Dirty.Add(pr)
	}
	return nil
}

// SurfaceToSurface copies srcRect from src to dst at each of dstPoints,
// writing through to the primary buffer for every point at which dst is
// mapped.
func (b *Bank) SurfaceToSurface(srcID, dstID uint16, srcRect Rect, dstPoints []Point) error {
	src, ok := b.Surface(srcID)
	if !ok {
		return ErrSurfaceNotFound
	}
	dst, ok := b.Surface(dstID)
	if !ok {
		return ErrSurfaceNotFound
	}

	for _, pt := range dstPoints {
		if err := dst.CopyRectFrom(src, srcRect, pt); err != nil {
			return err
		}
		if dst.Mapped {
			dstRect := Rect{X: pt.X, Y: pt.Y, W: srcRect.W, H: srcRect.H}
			pr := primaryRect(dst, dstRect)
			if err := b.primary.CopyRectFrom(dst, dstRect, Point{X: pr.X, Y: pr.Y}); err != nil {
				return err
			}
			b.Dirty.Add(pr)
		}
	}
	return nil
}

// SurfaceToCache fills a cache slot from the surface buffer only, per the
// GFX contract (cache contents are never sourced from the primary buffer).
func (b *Bank) SurfaceToCache(surfaceID uint16, slot int, rect Rect) error {
	s, ok := b.Surface(surfaceID)
	if !ok {
		return ErrSurfaceNotFound
	}
	return b.Cache.Fill(slot, s, rect)
}

// CacheToSurface writes a cache slot's pixels to dst's surface buffer and,
// at every mapped point, to the primary buffer too. Both writes complete
// before this call returns: the documented "stale cache" bug is writing
// only one of the two.
func (b *Bank) CacheToSurface(slot int, dstID uint16, dstPoints []Point) error {
	pixels, err := b.Cache.Pixels(slot)
	if err != nil {
		return err
	}
	dst, ok := b.Surface(dstID)
	if !ok {
		return ErrSurfaceNotFound
	}

	for _, pt := range dstPoints {
		dstRect := Rect{X: pt.X, Y: pt.Y, W: 64, H: 64}
		if err := dst.WriteRect(dstRect, pixels); err != nil {
			return err
		}
		if dst.Mapped {
			pr := primaryRect(dst, dstRect)
			if err := b.primary.WriteRect(pr, pixels); err != nil {
				return err
			}
			b.Dirty.Add(pr)
		}
	}
	return nil
}

// WireToSurface decodes (or, for H.264, enqueues) codec payload into
// surfaceID's rect. For AVC codecs, payload decode is deferred to the
// H.264 queue's consumer; meta must be non-nil. For every other codec,
// payload is pre-decoded BGRA32 pixels matching rect's dimensions — the
// codec-specific entropy decode (progressive, planar, ClearCodec) happens
// upstream in their own packages, whose output this call simply commits.
func (b *Bank) WireToSurface(surfaceID uint16, rect Rect, codec Codec, payload []byte, meta *H264Meta) error {
	s, ok := b.Surface(surfaceID)
	if !ok {
		return ErrSurfaceNotFound
	}

	switch codec {
	case CodecAVC420, CodecAVC444:
		if meta == nil {
			return ErrUnsupportedCodec
		}
		frame := h264queue.Frame{
			FrameID:   meta.FrameID,
			SurfaceID: surfaceID,
			CodecID:   meta.CodecID,
			Type:      meta.FrameType,
			DestRect:  h264queue.Rect{X: rect.X, Y: rect.Y, W: rect.W, H: rect.H},
			Luma:      meta.Luma,
			Chroma:    meta.Chroma,
		}
		return b.H264Queue.Push(frame)

	case CodecUncompressed, CodecPlanar, CodecClearCodec, CodecProgressive:
		if err := s.WriteRect(rect, payload); err != nil {
			return err
		}
		if s.Mapped {
			pr := primaryRect(s, rect)
			if err := b.primary.WriteRect(pr, payload); err != nil {
				return err
			}
			b.Dirty.Add(pr)
		}
		return nil

	default:
		return ErrUnsupportedCodec
	}
}
