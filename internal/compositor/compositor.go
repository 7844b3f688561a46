// Package compositor implements the client-side tag-routed message
// dispatcher that turns inbound binary GFX/codec messages into pixels on
// a drawable. It is built to run headless (against a fake Drawable, for
// tests) and compiled to WebAssembly by web/src/wasm/main.go, which holds
// no logic of its own beyond marshaling js.Value arguments into calls on
// this package.
package compositor

import (
	"errors"
	"sync"

	"github.com/arcspan/rdpgfx-gateway/internal/wire"
)

// Rect is a drawable-local rectangle.
type Rect struct {
	X, Y, W, H int32
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Drawable is the off-main-thread surface the compositor paints into.
// Implementations own the backing store exclusively once ownership has
// been transferred to them; the compositor never draws outside a call to
// one of these methods.
type Drawable interface {
	Resize(width, height int32)
	Blit(rect Rect, bgra []byte) error
}

var (
	ErrUnknownTag    = errors.New("compositor: unknown message tag")
	ErrDrawableNil   = errors.New("compositor: no drawable attached")
)

// Compositor owns one drawable and the state needed to apply the
// H.264-active-region clipping rule to inbound WebP/delta tiles.
type Compositor struct {
	mu       sync.Mutex
	drawable Drawable

	activeH264 []Rect
	video      *videoDecodeState
}

// New returns a Compositor painting onto drawable.
func New(drawable Drawable) *Compositor {
	return &Compositor{
		drawable: drawable,
		video:    newVideoDecodeState(),
	}
}

// Dispatch routes one inbound binary message by its 4-byte tag.
func (c *Compositor) Dispatch(raw []byte) error {
	tag, err := wire.PeekTag(raw)
	if err != nil {
		return err
	}
	body := raw[4:]

	switch tag {
	case wire.TagH264:
		return c.handleH264(body)
	case wire.TagDELT:
		return c.handleDelta(body)
	case wire.TagWebP:
		return c.handleWebP(body)
	case wire.TagJPEG:
		return c.handleJPEG(body)
	case wire.TagTILE:
		return c.handleTile(body)
	case wire.TagSFIL, wire.TagS2SF, wire.TagC2SF, wire.TagSURF, wire.TagDELS, wire.TagSTFR, wire.TagENFR, wire.TagPROG:
		// Fine-grained GFX events are applied to a server-mirrored surface
		// bank upstream of the compositor; at the drawable layer they
		// surface only as the tile/delta pixels that follow them.
		return nil
	default:
		return ErrUnknownTag
	}
}

func (c *Compositor) handleTile(body []byte) error {
	surfaceID, x, y, w, h, pixels, err := wire.DecodeTileHeader(body)
	_ = surfaceID
	if err != nil {
		return err
	}
	rect := Rect{X: int32(x), Y: int32(y), W: int32(w), H: int32(h)}
	return c.paintClipped(rect, pixels)
}

func (c *Compositor) handleDelta(body []byte) error {
	msg, err := wire.DecodeDelta(body)
	if err != nil {
		return err
	}
	for i, r := range msg.Rects {
		rect := Rect{X: r.X, Y: r.Y, W: r.W, H: r.H}
		if err := c.paintClipped(rect, msg.Tiles[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compositor) handleWebP(body []byte) error {
	w, h, bgra, err := decodeWebP(body)
	if err != nil {
		return err
	}
	return c.paintClipped(Rect{W: int32(w), H: int32(h)}, bgra)
}

func (c *Compositor) handleJPEG(body []byte) error {
	w, h, bgra, err := decodeJPEG(body)
	if err != nil {
		return err
	}
	return c.paintClipped(Rect{W: int32(w), H: int32(h)}, bgra)
}

// paintClipped subtracts every currently-active H.264 region from rect
// and blits only the remaining pieces, per the spec's ordering rule: a
// live video region is always repainted by the hardware decoder path,
// never overwritten by a WebP or delta tile arriving afterward.
func (c *Compositor) paintClipped(rect Rect, bgra []byte) error {
	c.mu.Lock()
	active := append([]Rect(nil), c.activeH264...)
	drawable := c.drawable
	c.mu.Unlock()

	if drawable == nil {
		return ErrDrawableNil
	}

	pieces := clipAgainstActive(rect, active)
	for _, p := range pieces {
		sub := extractSubRect(rect, bgra, p)
		if err := drawable.Blit(p, sub); err != nil {
			return err
		}
	}
	return nil
}

// extractSubRect copies the BGRA pixels of p (a sub-rectangle of rect)
// out of rect's full pixel buffer.
func extractSubRect(rect Rect, bgra []byte, p Rect) []byte {
	if p == rect {
		return bgra
	}
	stride := rect.W * 4
	out := make([]byte, p.W*p.H*4)
	for row := int32(0); row < p.H; row++ {
		srcY := p.Y - rect.Y + row
		srcOff := srcY*stride + (p.X-rect.X)*4
		dstOff := row * p.W * 4
		copy(out[dstOff:dstOff+p.W*4], bgra[srcOff:srcOff+p.W*4])
	}
	return out
}

// Resize notifies the drawable owner that the session's logical size
// changed. It must not be called from the same goroutine that is
// currently issuing Blit calls once ownership has been handed to a
// worker; callers are responsible for that handoff discipline.
func (c *Compositor) Resize(width, height int32) error {
	c.mu.Lock()
	drawable := c.drawable
	c.mu.Unlock()
	if drawable == nil {
		return ErrDrawableNil
	}
	drawable.Resize(width, height)
	return nil
}
