// Package gfx implements the RDP Graphics Pipeline (RDPEGFX) surface-and-
// tile state machine: a bank of per-surface BGRA32 pixel buffers, a
// session-scoped bitmap cache, dirty-rectangle tracking, and the
// StartFrame/EndFrame bracketing that makes a frame's writes appear
// atomically to the transport.
package gfx

import "errors"

// BytesPerPixel is fixed: every surface and cache slot is BGRA32.
const BytesPerPixel = 4

var (
	ErrSurfaceExists   = errors.New("gfx: surface id already active")
	ErrSurfaceNotFound = errors.New("gfx: surface id not found")
	ErrRectOutOfBounds = errors.New("gfx: rectangle outside surface bounds")
	ErrSlotOutOfRange  = errors.New("gfx: cache slot index out of range")
	ErrSlotEmpty       = errors.New("gfx: cache slot has no contents")
)

// Rect is a rectangle in surface-local pixel coordinates.
type Rect struct {
	X, Y, W, H int32
}

// Point is a destination origin for a multi-point copy operation
// (SurfaceToSurface, CacheToSurface).
type Point struct {
	X, Y int32
}

// Surface is one GFX surface: an owned pixel buffer, optionally mapped to
// an origin on the primary output buffer.
type Surface struct {
	ID     uint16
	Width  int32
	Height int32
	Stride int32
	Buffer []byte

	Mapped bool
	OutX   int32
	OutY   int32
}

// NewSurface allocates a zeroed BGRA32 buffer of stride×height bytes.
func NewSurface(id uint16, width, height int32) *Surface {
	stride := width * BytesPerPixel
	return &Surface{
		ID:     id,
		Width:  width,
		Height: height,
		Stride: stride,
		Buffer: make([]byte, int(stride)*int(height)),
	}
}

// offset returns the byte offset of pixel (x,y) in the surface buffer.
func (s *Surface) offset(x, y int32) int {
	return int(y*s.Stride + x*BytesPerPixel)
}

// validateRect checks that rect lies entirely within the surface.
func (s *Surface) validateRect(rect Rect) error {
	if rect.X < 0 || rect.Y < 0 || rect.W < 0 || rect.H < 0 {
		return ErrRectOutOfBounds
	}
	if rect.X+rect.W > s.Width || rect.Y+rect.H > s.Height {
		return ErrRectOutOfBounds
	}
	return nil
}

// CopyRectFrom copies rect from src at (rect.X,rect.Y) into this surface at
// destination point dst. Row-by-row copy() is memmove-safe even when src
// and dst are the same buffer and the rectangles overlap, except for the
// case where rows themselves overlap and are processed in the wrong
// direction — copyRows below handles that by choosing scan direction
// based on relative position.
func (s *Surface) CopyRectFrom(src *Surface, rect Rect, dst Point) error {
	if err := src.validateRect(rect); err != nil {
		return err
	}
	dstRect := Rect{X: dst.X, Y: dst.Y, W: rect.W, H: rect.H}
	if err := s.validateRect(dstRect); err != nil {
		return err
	}
	copyRows(s, src, rect, dst)
	return nil
}

// copyRows performs the row-wise transfer, scanning bottom-to-top when src
// and dst are the same buffer and the destination is below the source, so
// an overlapping downward copy never reads rows already overwritten.
func copyRows(dstSurface, srcSurface *Surface, srcRect Rect, dstOrigin Point) {
	rowBytes := int(srcRect.W) * BytesPerPixel
	sameBuffer := dstSurface == srcSurface

	rows := make([]int32, srcRect.H)
	for i := range rows {
		rows[i] = int32(i)
	}
	if sameBuffer && dstOrigin.Y > srcRect.Y {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	for _, i := range rows {
		srcOff := srcSurface.offset(srcRect.X, srcRect.Y+i)
		dstOff := dstSurface.offset(dstOrigin.X, dstOrigin.Y+i)
		copy(dstSurface.Buffer[dstOff:dstOff+rowBytes], srcSurface.Buffer[srcOff:srcOff+rowBytes])
	}
}

// FillRect writes a solid BGRA color over rect.
func (s *Surface) FillRect(rect Rect, bgra [4]byte) error {
	if err := s.validateRect(rect); err != nil {
		return err
	}
	for y := rect.Y; y < rect.Y+rect.H; y++ {
		off := s.offset(rect.X, y)
		for x := int32(0); x < rect.W; x++ {
			copy(s.Buffer[off+int(x)*BytesPerPixel:], bgra[:])
		}
	}
	return nil
}

// ReadRect copies rect's pixels out of the surface buffer into dst, which
// must be at least rect.W*rect.H*BytesPerPixel bytes.
func (s *Surface) ReadRect(rect Rect, dst []byte) error {
	if err := s.validateRect(rect); err != nil {
		return err
	}
	rowBytes := int(rect.W) * BytesPerPixel
	for i := int32(0); i < rect.H; i++ {
		srcOff := s.offset(rect.X, rect.Y+i)
		dstOff := int(i) * rowBytes
		copy(dst[dstOff:dstOff+rowBytes], s.Buffer[srcOff:srcOff+rowBytes])
	}
	return nil
}

// WriteRect writes src's pixels into rect in the surface buffer.
func (s *Surface) WriteRect(rect Rect, src []byte) error {
	if err := s.validateRect(rect); err != nil {
		return err
	}
	rowBytes := int(rect.W) * BytesPerPixel
	for i := int32(0); i < rect.H; i++ {
		dstOff := s.offset(rect.X, rect.Y+i)
		srcOff := int(i) * rowBytes
		copy(s.Buffer[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}
	return nil
}
