package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawClearBand(bgra []byte, cacheIdx *uint16) []byte {
	flags := byte(0)
	out := []byte{flags}
	out = append(out, bgra...)
	if cacheIdx != nil {
		out[0] |= clearFlagCacheThis
		idx := make([]byte, 2)
		binary.LittleEndian.PutUint16(idx, *cacheIdx)
		out = append(out, idx...)
	}
	return out
}

func TestClearDecoder_RawBandRoundTrips(t *testing.T) {
	d := NewClearDecoder()
	bgra := []byte{1, 2, 3, 255, 4, 5, 6, 255}
	out, err := d.Decode(rawClearBand(bgra, nil), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, bgra, out)
}

func TestClearDecoder_CachesAndServesGlyphHit(t *testing.T) {
	d := NewClearDecoder()
	bgra := []byte{9, 9, 9, 255, 8, 8, 8, 255}
	idx := uint16(42)
	_, err := d.Decode(rawClearBand(bgra, &idx), 2, 1)
	require.NoError(t, err)

	hit := []byte{clearFlagGlyphHit, 42, 0}
	out, err := d.Decode(hit, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, bgra, out)
}

func TestClearDecoder_GlyphMissErrors(t *testing.T) {
	d := NewClearDecoder()
	hit := []byte{clearFlagGlyphHit, 1, 0}
	_, err := d.Decode(hit, 2, 1)
	assert.ErrorIs(t, err, ErrClearGlyphMiss)
}

func TestClearDecoder_GlyphCacheSurvivesAcrossCalls(t *testing.T) {
	d := NewClearDecoder()
	bgra := []byte{1, 1, 1, 255}
	idx := uint16(7)
	_, err := d.Decode(rawClearBand(bgra, &idx), 1, 1)
	require.NoError(t, err)

	// Simulate several unrelated bands decoded in between; the glyph
	// cache must not reset with the surface it paints onto.
	for i := 0; i < 3; i++ {
		_, err := d.Decode(rawClearBand([]byte{0, 0, 0, 255}, nil), 1, 1)
		require.NoError(t, err)
	}

	out, err := d.Decode([]byte{clearFlagGlyphHit, 7, 0}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, bgra, out)
}

func TestClearRLEDecompress_RunAndLiteralSegments(t *testing.T) {
	// One run segment of 4 bytes of 0xAA, then a literal segment of 2
	// raw bytes.
	data := []byte{0x84, 0xAA, 0x02, 0x01, 0x02}
	out, err := clearRLEDecompress(data, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xAA, 0xAA, 0xAA, 0x01, 0x02}, out)
}

func TestClearRLEDecompress_ShortUncompressedPassthrough(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	out, err := clearRLEDecompress(data, 4)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestClearRLEDecompress_TruncatedErrors(t *testing.T) {
	_, err := clearRLEDecompress([]byte{0x84}, 6)
	assert.ErrorIs(t, err, ErrClearMalformed)
}
