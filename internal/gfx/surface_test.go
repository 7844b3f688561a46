package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurface_FillAndReadRect(t *testing.T) {
	s := NewSurface(1, 8, 8)
	err := s.FillRect(Rect{X: 2, Y: 2, W: 4, H: 4}, [4]byte{0x11, 0x22, 0x33, 0xFF})
	require.NoError(t, err)

	out := make([]byte, 4*4*BytesPerPixel)
	require.NoError(t, s.ReadRect(Rect{X: 2, Y: 2, W: 4, H: 4}, out))
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0xFF}, out[:4])

	// Outside the filled rect must remain zero.
	outside := make([]byte, BytesPerPixel)
	require.NoError(t, s.ReadRect(Rect{X: 0, Y: 0, W: 1, H: 1}, outside))
	assert.Equal(t, []byte{0, 0, 0, 0}, outside)
}

func TestSurface_RectOutOfBoundsErrors(t *testing.T) {
	s := NewSurface(1, 4, 4)
	err := s.FillRect(Rect{X: 2, Y: 2, W: 4, H: 4}, [4]byte{})
	assert.ErrorIs(t, err, ErrRectOutOfBounds)
}

func TestSurface_CopyRectFromOverlappingSameBufferIsMemmoveSafe(t *testing.T) {
	s := NewSurface(1, 4, 8)
	for y := int32(0); y < 8; y++ {
		require.NoError(t, s.FillRect(Rect{X: 0, Y: y, W: 4, H: 1}, [4]byte{byte(y), byte(y), byte(y), 0xFF}))
	}

	// Copy rows [0,3) downward onto rows [2,5) — overlapping, downward.
	require.NoError(t, s.CopyRectFrom(s, Rect{X: 0, Y: 0, W: 4, H: 3}, Point{X: 0, Y: 2}))

	out := make([]byte, 4*BytesPerPixel)
	require.NoError(t, s.ReadRect(Rect{X: 0, Y: 4, W: 4, H: 1}, out))
	assert.Equal(t, byte(2), out[0], "row 4 should now hold what was originally row 2")
}

func TestSurface_WriteRectThenReadRectRoundTrips(t *testing.T) {
	s := NewSurface(1, 4, 4)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, s.WriteRect(Rect{X: 0, Y: 0, W: 2, H: 1}, data))
	out := make([]byte, 8)
	require.NoError(t, s.ReadRect(Rect{X: 0, Y: 0, W: 2, H: 1}, out))
	assert.Equal(t, data, out)
}
