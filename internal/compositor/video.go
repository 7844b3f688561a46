package compositor

import (
	"github.com/arcspan/rdpgfx-gateway/internal/h264queue"
	"github.com/arcspan/rdpgfx-gateway/internal/wire"
)

// videoDecodeState tracks the client-side H.264 decode queue: a pending
// destination-rect record pushed before each chunk is submitted to the
// platform decoder, and the discard-until-IDR state machine that kicks in
// after a decode error.
type videoDecodeState struct {
	pending []Rect
	errored bool
	width   int32
	height  int32
}

func newVideoDecodeState() *videoDecodeState {
	return &videoDecodeState{}
}

// PushPending records destRect before the corresponding NAL chunk is
// handed to the platform decoder; the decoder's output callback later
// pops this record via PopPending to know where to blit.
func (v *videoDecodeState) PushPending(rect Rect) {
	v.pending = append(v.pending, rect)
}

// PopPending removes and returns the oldest pending destination rect.
func (v *videoDecodeState) PopPending() (Rect, bool) {
	if len(v.pending) == 0 {
		return Rect{}, false
	}
	r := v.pending[0]
	v.pending = v.pending[1:]
	return r, true
}

// ReportDecodeError flags the decoder so frames other than the next IDR
// are discarded.
func (v *videoDecodeState) ReportDecodeError() {
	v.errored = true
}

// Accept decides whether frame should reach the decoder given the current
// error state, reconfiguring tracked dimensions on an accepted IDR whose
// coded size differs from what's configured.
func (v *videoDecodeState) Accept(frameType h264queue.FrameType, w, h int32) bool {
	if v.errored {
		if frameType != h264queue.FrameTypeIDR {
			return false
		}
		v.errored = false
	}
	if frameType == h264queue.FrameTypeIDR && (w != v.width || h != v.height) {
		v.width, v.height = w, h
	}
	return true
}

// handleH264 implements the producer side of the video decode queue:
// push the destination rect, track it as an active clip region, and
// (absent a real decoder error signal on this path) hand the frame to
// Accept's IDR/reconfigure bookkeeping.
func (c *Compositor) handleH264(body []byte) error {
	f, err := wire.DecodeH264Frame(body)
	if err != nil {
		return err
	}
	rect := Rect{X: int32(f.X), Y: int32(f.Y), W: int32(f.W), H: int32(f.H)}

	c.mu.Lock()
	defer c.mu.Unlock()

	frameType := h264queue.FrameType(f.Type)
	if !c.video.Accept(frameType, rect.W, rect.H) {
		return nil
	}

	c.video.PushPending(rect)
	c.setActiveRegionLocked(rect)
	return nil
}

// ReportH264DecodeError flags the decode-error state per the spec's
// decoder-state error tier: discard non-IDR frames until the next IDR.
func (c *Compositor) ReportH264DecodeError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.video.ReportDecodeError()
}

// PopPendingH264Blit returns the destination rect pushed for the oldest
// outstanding H.264 chunk, for the platform decoder's output callback to
// blit into once it has produced pixels.
func (c *Compositor) PopPendingH264Blit() (Rect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.video.PopPending()
}

// setActiveRegionLocked marks rect as currently showing live H.264 video;
// caller must hold c.mu.
func (c *Compositor) setActiveRegionLocked(rect Rect) {
	for _, a := range c.activeH264 {
		if a == rect {
			return
		}
	}
	c.activeH264 = append(c.activeH264, rect)
}

// ClearActiveRegion marks rect as no longer showing live H.264 video, so
// subsequent WebP/delta tiles over it are no longer clipped.
func (c *Compositor) ClearActiveRegion(rect Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range c.activeH264 {
		if a == rect {
			c.activeH264 = append(c.activeH264[:i], c.activeH264[i+1:]...)
			return
		}
	}
}
