package codec

import "errors"

// RDP6 Planar codec header flags (MS-RDPEGDI 2.2.2.5.1).
const (
	PlanarFlagRLE     = 0x10
	PlanarFlagNoAlpha = 0x20
)

// ErrPlanarMalformed is returned when a Planar payload is truncated or its
// RLE stream runs past a scanline's declared width.
var ErrPlanarMalformed = errors.New("codec: malformed planar payload")

// DecodePlanar decodes an RDP6 Planar codec payload into top-down BGRA32.
// Plane order on the wire is Alpha, Red, Green, Blue (alpha omitted when
// PlanarFlagNoAlpha is set); each plane is either raw or independently
// RLE-coded depending on PlanarFlagRLE.
func DecodePlanar(src []byte, width, height int) ([]byte, error) {
	if len(src) < 1 || width <= 0 || height <= 0 {
		return nil, ErrPlanarMalformed
	}

	header := src[0]
	hasRLE := header&PlanarFlagRLE != 0
	noAlpha := header&PlanarFlagNoAlpha != 0

	pos := 1
	planeSize := width * height

	planeR := make([]byte, planeSize)
	planeG := make([]byte, planeSize)
	planeB := make([]byte, planeSize)
	planeA := make([]byte, planeSize)
	if noAlpha {
		for i := range planeA {
			planeA[i] = 255
		}
	}

	if hasRLE {
		for _, plane := range planeOrder(noAlpha, planeA, planeR, planeG, planeB) {
			n, err := decodePlanarPlaneRLE(src[pos:], plane, width, height)
			if err != nil {
				return nil, err
			}
			pos += n
		}
	} else {
		for _, plane := range planeOrder(noAlpha, planeA, planeR, planeG, planeB) {
			if pos+planeSize > len(src) {
				return nil, ErrPlanarMalformed
			}
			copy(plane, src[pos:pos+planeSize])
			pos += planeSize
		}
	}

	// Planar surface bits are bottom-up; GFX surfaces are top-down.
	bgra := make([]byte, planeSize*4)
	for y := 0; y < height; y++ {
		srcRow := (height - 1 - y) * width
		dstRow := y * width
		for x := 0; x < width; x++ {
			s := srcRow + x
			d := (dstRow + x) * 4
			bgra[d] = planeB[s]
			bgra[d+1] = planeG[s]
			bgra[d+2] = planeR[s]
			bgra[d+3] = planeA[s]
		}
	}
	return bgra, nil
}

// planeOrder returns the wire order of planes to fill, skipping alpha
// when noAlpha is set.
func planeOrder(noAlpha bool, a, r, g, b []byte) [][]byte {
	if noAlpha {
		return [][]byte{r, g, b}
	}
	return [][]byte{a, r, g, b}
}

// decodePlanarPlaneRLE decodes one RLE-coded plane into dst, returning the
// number of source bytes consumed. The first scanline carries absolute
// byte values; subsequent scanlines carry signed deltas against the row
// above, per control bytes whose low nibble is a run length (with the two
// reserved nibble values 1 and 2 extending the run via the high nibble)
// and whose high nibble is a count of literal/delta bytes preceding the run.
func decodePlanarPlaneRLE(src []byte, dst []byte, width, height int) (int, error) {
	srcIdx, dstIdx := 0, 0
	var prevRow []byte

	for y := 0; y < height; y++ {
		rowStart := dstIdx
		var last int16

		for x := 0; x < width; {
			if srcIdx >= len(src) {
				return 0, ErrPlanarMalformed
			}
			control := src[srcIdx]
			srcIdx++

			runLen := int(control & 0x0F)
			rawCount := int((control >> 4) & 0x0F)
			switch runLen {
			case 1:
				runLen = rawCount + 16
				rawCount = 0
			case 2:
				runLen = rawCount + 32
				rawCount = 0
			}
			if x+rawCount+runLen > width {
				return 0, ErrPlanarMalformed
			}

			if prevRow == nil {
				for ; rawCount > 0; rawCount-- {
					if srcIdx >= len(src) || dstIdx >= len(dst) {
						return 0, ErrPlanarMalformed
					}
					last = int16(src[srcIdx])
					srcIdx++
					dst[dstIdx] = byte(last)
					dstIdx++
					x++
				}
				for ; runLen > 0; runLen-- {
					if dstIdx >= len(dst) {
						return 0, ErrPlanarMalformed
					}
					dst[dstIdx] = byte(last)
					dstIdx++
					x++
				}
				continue
			}

			for ; rawCount > 0; rawCount-- {
				if srcIdx >= len(src) || dstIdx >= len(dst) {
					return 0, ErrPlanarMalformed
				}
				enc := src[srcIdx]
				srcIdx++
				if enc&1 != 0 {
					last = -int16((enc >> 1) + 1)
				} else {
					last = int16(enc >> 1)
				}
				dst[dstIdx] = clampDelta(prevRow[x], last)
				dstIdx++
				x++
			}
			for ; runLen > 0; runLen-- {
				if dstIdx >= len(dst) {
					return 0, ErrPlanarMalformed
				}
				dst[dstIdx] = clampDelta(prevRow[x], last)
				dstIdx++
				x++
			}
		}
		prevRow = dst[rowStart:dstIdx]
	}
	return srcIdx, nil
}

func clampDelta(base byte, delta int16) byte {
	v := int16(base) + delta
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
