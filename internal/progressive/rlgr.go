package progressive

import (
	"math/bits"

	"github.com/arcspan/rdpgfx-gateway/internal/bitstream"
)

// DecodeRLGR1 decodes an RLGR1 bitstream into exactly len(out) coefficients.
// A truncated bitstream zero-fills the remainder rather than erroring, per
// the entropy decoder's contract (spec §4.2, §8 property 1).
func DecodeRLGR1(data []byte, out []int16) {
	for i := range out {
		out[i] = 0
	}
	if len(data) == 0 {
		return
	}

	var br bitstream.Reader
	br.Attach(data)
	br.Fetch()

	k := uint32(1)
	kp := uint32(8)
	kr := uint32(1)
	krp := uint32(8)

	n := len(out)
	idx := 0

	for idx < n && br.RemainingBits() > 0 {
		if k > 0 {
			vk := countUnaryZeros(&br)

			runLen := 0
			for i := 0; i < vk; i++ {
				runLen += int(1 << k)
				kp += UpGR
				if kp > KPMax {
					kp = KPMax
				}
				k = kp >> LSGR
			}
			if k > 0 {
				if br.RemainingBits() < int(k) {
					break
				}
				runLen += int(br.ReadBits(int(k)))
			}

			for i := 0; i < runLen && idx < n; i++ {
				out[idx] = 0
				idx++
			}
			if idx >= n {
				break
			}
			if br.RemainingBits() < 1 {
				break
			}

			sign := br.ReadBit()
			code, ok := decodeGRMagnitude(&br, &kr, &krp)
			if !ok {
				break
			}

			if kp >= DnGR {
				kp -= DnGR
			} else {
				kp = 0
			}
			k = kp >> LSGR

			val := int16(code + 1)
			if sign != 0 {
				val = -val
			}
			out[idx] = val
			idx++
		} else {
			code, ok := decodeGRMagnitude(&br, &kr, &krp)
			if !ok {
				break
			}

			if code == 0 {
				kp += UqGR
				if kp > KPMax {
					kp = KPMax
				}
				out[idx] = 0
			} else {
				if code&1 != 0 {
					out[idx] = -int16((code + 1) >> 1)
				} else {
					out[idx] = int16(code >> 1)
				}
				if kp >= DqGR {
					kp -= DqGR
				} else {
					kp = 0
				}
			}
			k = kp >> LSGR
			idx++
		}
	}
}

// decodeGRMagnitude reads one Golomb-Rice code (unary quotient terminated by
// a 0 bit, plus a kr-bit remainder) and updates kr/krp per MS-RDPRFX's
// adaptive rule.
func decodeGRMagnitude(br *bitstream.Reader, kr, krp *uint32) (uint32, bool) {
	quanta := countUnaryOnes(br)

	var rem uint32
	if *kr > 0 {
		if br.RemainingBits() < int(*kr) {
			return 0, false
		}
		rem = br.ReadBits(int(*kr))
	}
	code := (quanta << *kr) | rem

	switch {
	case quanta == 0:
		if *krp >= 2 {
			*krp -= 2
		} else {
			*krp = 0
		}
	case quanta != 1:
		*krp += quanta
		if *krp > KPMax {
			*krp = KPMax
		}
	}
	*kr = *krp >> LSGR

	return code, true
}

// countUnaryZeros counts leading zero bits up to (and consuming) the
// terminating 1 bit. A run of exactly 32 zero bits shifts a full word and
// keeps counting, so long all-zero runs never stall on a single 32-bit
// lookahead.
func countUnaryZeros(br *bitstream.Reader) int {
	count := 0
	for {
		if br.RemainingBits() <= 0 {
			return count
		}
		window := br.Peek(32)
		if window == 0 {
			br.Shift(32)
			count += 32
			continue
		}
		lz := bits.LeadingZeros32(window)
		br.Shift(lz + 1)
		return count + lz
	}
}

// countUnaryOnes is the dual of countUnaryZeros, used by the Golomb-Rice
// magnitude decode.
func countUnaryOnes(br *bitstream.Reader) uint32 {
	count := uint32(0)
	for {
		if br.RemainingBits() <= 0 {
			return count
		}
		window := br.Peek(32)
		inv := ^window
		if inv == 0 {
			br.Shift(32)
			count += 32
			continue
		}
		lz := bits.LeadingZeros32(inv)
		br.Shift(lz + 1)
		return count + uint32(lz)
	}
}
