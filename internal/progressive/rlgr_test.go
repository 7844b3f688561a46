package progressive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arcspan/rdpgfx-gateway/internal/bitstream"
)

func TestDecodeRLGR1_EmptyInput(t *testing.T) {
	out := make([]int16, TilePixels)
	DecodeRLGR1([]byte{}, out)
	for i, v := range out {
		assert.Equal(t, int16(0), v, "coefficient %d should be zero", i)
	}
}

func TestDecodeRLGR1_TruncatedStreamZeroFills(t *testing.T) {
	out := make([]int16, 4096)
	DecodeRLGR1([]byte{0xFF, 0x00}, out)
	// A two-byte stream cannot possibly carry 4096 coefficients of real
	// data; whatever the decoder could not recover must be left at zero
	// rather than leaving the caller's buffer partially garbage.
	zero := 0
	for _, v := range out {
		if v == 0 {
			zero++
		}
	}
	assert.Greater(t, zero, 0)
}

func TestDecodeRLGR1_DoesNotPanicOnArbitraryData(t *testing.T) {
	data := []byte{0x55, 0xAA, 0x55, 0xAA, 0xFF, 0x00, 0xFF, 0x00, 0x12, 0x34}
	out := make([]int16, TilePixels)
	assert.NotPanics(t, func() {
		DecodeRLGR1(data, out)
	})
}

func TestDecodeRLGR1_AllZeroRunsStayZero(t *testing.T) {
	// An all-zero-bits stream is a maximal RL-mode run: the decoder must
	// terminate (not spin) and fill with zeros.
	data := make([]byte, 64)
	out := make([]int16, TilePixels)
	assert.NotPanics(t, func() {
		DecodeRLGR1(data, out)
	})
	for _, v := range out {
		assert.Equal(t, int16(0), v)
	}
}

func TestCountUnaryHelpersConsumeTerminator(t *testing.T) {
	// 0x08 = 00001000: 4 leading zeros then a terminating 1.
	var br bitstream.Reader
	br.Attach([]byte{0x08})
	br.Fetch()
	n := countUnaryZeros(&br)
	assert.Equal(t, 4, n)

	// 0xF0 = 11110000: 4 leading ones then a terminating 0.
	var br2 bitstream.Reader
	br2.Attach([]byte{0xF0})
	br2.Fetch()
	n2 := countUnaryOnes(&br2)
	assert.Equal(t, uint32(4), n2)
}
