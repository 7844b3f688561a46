package progressive

import "github.com/arcspan/rdpgfx-gateway/internal/bitstream"

// DecodeSRL applies one subband-residual-layer refinement pass to coeffs,
// using signs to track which coefficients have already gone nonzero in an
// earlier pass.
//
// Only coefficients whose sign entry is still 0 are eligible for
// refinement here; a coefficient that went nonzero in an earlier pass would
// be refined from a RAW companion stream instead (MS-RDPRFX allows RAW to
// be omitted, at the cost of no longer refining those coefficients — this
// decoder omits RAW, so already-nonzero coefficients are left untouched by
// this pass and raw is accepted as an unread, ignored trailer).
func DecodeSRL(data []byte, coeffs []int16, signs []int8, bitPos int) {
	if len(data) == 0 {
		return
	}

	var br bitstream.Reader
	br.Attach(data)
	br.Fetch()

	kp := uint32(8)
	k := kp >> LSGR

	n := len(coeffs)
	i := 0

	for i < n && br.RemainingBits() > 0 {
		if signs[i] != 0 {
			// Already nonzero from an earlier pass; without a RAW stream
			// this decoder leaves it unrefined and moves on.
			i++
			continue
		}

		// Zero-encoding mode: scan forward over still-zero coefficients.
		zeroRun := 0
		enteredUnary := false
		for i < n && signs[i] == 0 {
			if br.RemainingBits() < 1 {
				return
			}
			bit := br.ReadBit()
			if bit == 1 {
				// Next (1<<k) zero-sign coefficients stay zero this pass.
				run := 1 << k
				kp += 4
				if kp > KPMax {
					kp = KPMax
				}
				k = kp >> LSGR
				for j := 0; j < run && i < n; {
					if signs[i] == 0 {
						j++
					}
					i++
				}
				continue
			}

			// Fewer than 1<<k zeros remain before the next refined
			// coefficient; read a k-bit count of how many.
			if br.RemainingBits() < int(k) {
				return
			}
			if k > 0 {
				zeroRun = int(br.ReadBits(int(k)))
			} else {
				zeroRun = 0
			}
			for j := 0; j < zeroRun && i < n; {
				if signs[i] == 0 {
					j++
				}
				i++
			}
			enteredUnary = true
			break
		}

		if !enteredUnary || i >= n {
			continue
		}

		// Unary mode: refine the coefficient now sitting at i.
		if br.RemainingBits() < 1 {
			return
		}
		sign := br.ReadBit()

		if kp >= DnGR {
			kp -= DnGR
		} else {
			kp = 0
		}
		k = kp >> LSGR

		numBits := k + 1
		magnitude := readUnaryMagnitude(&br, int(numBits))

		delta := int32(magnitude+1) << uint(bitPos)
		val := int32(coeffs[i])
		if sign != 0 {
			val -= delta
			signs[i] = -1
		} else {
			val += delta
			signs[i] = 1
		}
		coeffs[i] = clampCoefficient(val)
		i++
	}
}

// readUnaryMagnitude reads a unary-terminated magnitude: a run of 1 bits
// (capped at maxBits) terminated by a 0 bit, or truncated silently if the
// stream runs out first.
func readUnaryMagnitude(br *bitstream.Reader, maxBits int) uint32 {
	var count uint32
	for int(count) < maxBits {
		if br.RemainingBits() < 1 {
			return count
		}
		if br.ReadBit() == 0 {
			break
		}
		count++
	}
	return count
}

// clampCoefficient saturates a refined coefficient to the int16 range
// instead of wrapping, per the progressive decoder's "no overflow" property.
func clampCoefficient(v int32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
