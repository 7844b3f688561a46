package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcspan/rdpgfx-gateway/internal/h264queue"
	"github.com/arcspan/rdpgfx-gateway/internal/wire"
)

type fakeDrawable struct {
	resizedW, resizedH int32
	blits              []Rect
}

func (f *fakeDrawable) Resize(w, h int32) { f.resizedW, f.resizedH = w, h }
func (f *fakeDrawable) Blit(rect Rect, bgra []byte) error {
	f.blits = append(f.blits, rect)
	return nil
}

func TestCompositor_TileDispatchesToBlit(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)

	pixels := make([]byte, 4*4*4)
	msg := wire.EncodeTile(1, 0, 0, 4, 4, pixels)
	require.NoError(t, c.Dispatch(msg))
	require.Len(t, fd.blits, 1)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 4, H: 4}, fd.blits[0])
}

func TestCompositor_UnknownTagErrors(t *testing.T) {
	c := New(&fakeDrawable{})
	err := c.Dispatch([]byte("ZZZZrest"))
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestCompositor_H264RegionClipsSubsequentTile(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)

	h264 := wire.EncodeH264Frame(wire.H264Frame{
		FrameID: 1, SurfaceID: 1, Type: uint8(h264queue.FrameTypeIDR),
		X: 0, Y: 0, W: 8, H: 8,
		Nal: []byte{0, 1, 2},
	})
	require.NoError(t, c.Dispatch(h264))

	pixels := make([]byte, 8*8*4)
	tile := wire.EncodeTile(1, 0, 0, 8, 8, pixels)
	require.NoError(t, c.Dispatch(tile))

	assert.Empty(t, fd.blits, "tile fully inside the active H.264 region must be fully clipped")
}

func TestCompositor_TilePartiallyOverlappingH264IsClipped(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)

	h264 := wire.EncodeH264Frame(wire.H264Frame{
		Type: uint8(h264queue.FrameTypeIDR),
		X:    0, Y: 0, W: 4, H: 8,
		Nal: []byte{0},
	})
	require.NoError(t, c.Dispatch(h264))

	pixels := make([]byte, 8*8*4)
	tile := wire.EncodeTile(1, 0, 0, 8, 8, pixels)
	require.NoError(t, c.Dispatch(tile))

	require.Len(t, fd.blits, 1)
	assert.Equal(t, Rect{X: 4, Y: 0, W: 4, H: 8}, fd.blits[0])
}

func TestCompositor_PendingH264BlitQueueFIFO(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)

	for i, id := range []uint32{1, 2} {
		require.NoError(t, c.Dispatch(wire.EncodeH264Frame(wire.H264Frame{
			FrameID: id, Type: uint8(h264queue.FrameTypeIDR),
			X: int16(i), Y: 0, W: 4, H: 4,
			Nal: []byte{0},
		})))
	}

	r1, ok := c.PopPendingH264Blit()
	require.True(t, ok)
	assert.Equal(t, int32(0), r1.X)

	r2, ok := c.PopPendingH264Blit()
	require.True(t, ok)
	assert.Equal(t, int32(1), r2.X)

	_, ok = c.PopPendingH264Blit()
	assert.False(t, ok)
}

func TestCompositor_ReportDecodeErrorDiscardsNonIDR(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)
	c.ReportH264DecodeError()

	require.NoError(t, c.Dispatch(wire.EncodeH264Frame(wire.H264Frame{
		FrameID: 1, Type: uint8(h264queue.FrameTypeP), X: 0, Y: 0, W: 4, H: 4, Nal: []byte{0},
	})))
	_, ok := c.PopPendingH264Blit()
	assert.False(t, ok, "non-IDR frame after a decode error must be discarded")

	require.NoError(t, c.Dispatch(wire.EncodeH264Frame(wire.H264Frame{
		FrameID: 2, Type: uint8(h264queue.FrameTypeIDR), X: 0, Y: 0, W: 4, H: 4, Nal: []byte{0},
	})))
	_, ok = c.PopPendingH264Blit()
	assert.True(t, ok, "the next IDR frame must be accepted")
}

func TestCompositor_ClearActiveRegionUnclips(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)
	rect := Rect{X: 0, Y: 0, W: 8, H: 8}

	require.NoError(t, c.Dispatch(wire.EncodeH264Frame(wire.H264Frame{
		Type: uint8(h264queue.FrameTypeIDR), X: 0, Y: 0, W: 8, H: 8, Nal: []byte{0},
	})))
	c.ClearActiveRegion(rect)

	pixels := make([]byte, 8*8*4)
	require.NoError(t, c.Dispatch(wire.EncodeTile(1, 0, 0, 8, 8, pixels)))
	assert.Len(t, fd.blits, 1)
}

func TestCompositor_Resize(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)
	require.NoError(t, c.Resize(1920, 1080))
	assert.Equal(t, int32(1920), fd.resizedW)
	assert.Equal(t, int32(1080), fd.resizedH)
}

func TestCompositor_DeltaMessageRouting(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)
	rects := []wire.DeltaRect{{X: 0, Y: 0, W: 2, H: 2, Size: 2 * 2 * 4}}
	tiles := [][]byte{make([]byte, 2*2*4)}
	msg, err := wire.EncodeDelta(rects, tiles)
	require.NoError(t, err)
	require.NoError(t, c.Dispatch(msg))
	assert.Len(t, fd.blits, 1)
}

func TestCompositor_GFXEventTagsAreNoops(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)
	require.NoError(t, c.Dispatch(wire.EncodeSurfCreate(wire.SurfCreate{SurfaceID: 1, Width: 10, Height: 10})))
	require.NoError(t, c.Dispatch(wire.EncodeStartFrame(1)))
	require.NoError(t, c.Dispatch(wire.EncodeEndFrame(1)))
	assert.Empty(t, fd.blits)
}

// TestCompositor_ProgressiveTagIsIntentionallyANoop pins down that a
// TagPROG message reaching the compositor is a deliberate no-op, not a
// forgotten codec path: the gateway runs the progressive RemoteFX decode
// server-side (internal/progressive) and only ever forwards the already
// decoded tiles as TILE/DELT, so no raw PROG bytes ever reach a real
// client. A PROG message must still dispatch cleanly (for a server built
// against a future client that forwards the raw stream) without touching
// the drawable.
func TestCompositor_ProgressiveTagIsIntentionallyANoop(t *testing.T) {
	fd := &fakeDrawable{}
	c := New(fd)
	msg := append(wire.TagPROG[:], []byte{0x01, 0x02, 0x03}...)
	require.NoError(t, c.Dispatch(msg))
	assert.Empty(t, fd.blits)
}
