package progressive

// Subband buffer offsets for the packed 64×64 tile layout, matching the
// classic (non-progressive) tile codec's linear layout. Used whenever the
// negotiated CONTEXT does not carry ContextFlagExtrapolate.
const (
	OffsetHL1 = 0
	OffsetLH1 = 1024
	OffsetHH1 = 2048
	OffsetHL2 = 3072
	OffsetLH2 = 3328
	OffsetHH2 = 3584
	OffsetHL3 = 3840
	OffsetLH3 = 3904
	OffsetHH3 = 3968
	OffsetLL3 = 4032

	SizeL1 = 1024
	SizeL2 = 256
	SizeL3 = 64
)

// Extrapolated-layout offsets and sizes (spec §4.4), selected when CONTEXT
// carries ContextFlagExtrapolate. The extrapolated split steals one sample
// from the top-level axis (64 -> 31/33 instead of 32/32) so the boundary
// lifting step has a genuine extra coefficient instead of a mirrored one;
// every level below inherits an odd parent size and so splits unevenly on
// its own (33 -> 16/17, 17 -> 8/9) without any further special-casing. See
// splitAxis in dwt.go for the derivation this table is built from.
const (
	ExtOffsetHL1 = 0
	ExtOffsetLH1 = 1023
	ExtOffsetHH1 = 2046
	ExtOffsetHL2 = 3007
	ExtOffsetLH2 = 3279
	ExtOffsetHH2 = 3551
	ExtOffsetHL3 = 3807
	ExtOffsetLH3 = 3879
	ExtOffsetHH3 = 3951
	ExtOffsetLL3 = 4015

	ExtSizeHL1 = 1023 // 33×31
	ExtSizeLH1 = 1023 // 31×33
	ExtSizeHH1 = 961  // 31×31
	ExtSizeHL2 = 272  // 17×16
	ExtSizeLH2 = 272  // 16×17
	ExtSizeHH2 = 256  // 16×16
	ExtSizeHL3 = 72   // 9×8
	ExtSizeLH3 = 72   // 8×9
	ExtSizeHH3 = 64   // 8×8
	ExtSizeLL3 = 81   // 9×9
)

// Dequantize applies the per-subband inverse quantization shift in place.
// Per MS-RDPRFX the effective shift is (quantValue - 1); callers must call
// this exactly once per decoded pass, never on an already-dequantized
// upgrade buffer, since re-shifting doubles the exponent and explodes the
// coefficient magnitude. extrapolate selects the 65×65 subband layout's
// offset/size table instead of the standard dyadic one; the two layouts
// carve the same 4096-coefficient buffer into differently-shaped regions,
// so using the wrong table shifts the wrong coefficient ranges.
func Dequantize(buffer []int16, quant Quant, extrapolate bool) {
	if len(buffer) < TilePixels {
		return
	}

	if extrapolate {
		dequantBlock(buffer[ExtOffsetHL1:ExtOffsetHL1+ExtSizeHL1], quant.HL1)
		dequantBlock(buffer[ExtOffsetLH1:ExtOffsetLH1+ExtSizeLH1], quant.LH1)
		dequantBlock(buffer[ExtOffsetHH1:ExtOffsetHH1+ExtSizeHH1], quant.HH1)

		dequantBlock(buffer[ExtOffsetHL2:ExtOffsetHL2+ExtSizeHL2], quant.HL2)
		dequantBlock(buffer[ExtOffsetLH2:ExtOffsetLH2+ExtSizeLH2], quant.LH2)
		dequantBlock(buffer[ExtOffsetHH2:ExtOffsetHH2+ExtSizeHH2], quant.HH2)

		dequantBlock(buffer[ExtOffsetHL3:ExtOffsetHL3+ExtSizeHL3], quant.HL3)
		dequantBlock(buffer[ExtOffsetLH3:ExtOffsetLH3+ExtSizeLH3], quant.LH3)
		dequantBlock(buffer[ExtOffsetHH3:ExtOffsetHH3+ExtSizeHH3], quant.HH3)
		dequantBlock(buffer[ExtOffsetLL3:ExtOffsetLL3+ExtSizeLL3], quant.LL3)
		return
	}

	dequantBlock(buffer[OffsetHL1:OffsetHL1+SizeL1], quant.HL1)
	dequantBlock(buffer[OffsetLH1:OffsetLH1+SizeL1], quant.LH1)
	dequantBlock(buffer[OffsetHH1:OffsetHH1+SizeL1], quant.HH1)

	dequantBlock(buffer[OffsetHL2:OffsetHL2+SizeL2], quant.HL2)
	dequantBlock(buffer[OffsetLH2:OffsetLH2+SizeL2], quant.LH2)
	dequantBlock(buffer[OffsetHH2:OffsetHH2+SizeL2], quant.HH2)

	dequantBlock(buffer[OffsetHL3:OffsetHL3+SizeL3], quant.HL3)
	dequantBlock(buffer[OffsetLH3:OffsetLH3+SizeL3], quant.LH3)
	dequantBlock(buffer[OffsetHH3:OffsetHH3+SizeL3], quant.HH3)
	dequantBlock(buffer[OffsetLL3:OffsetLL3+SizeL3], quant.LL3)
}

// dequantBlock shifts every coefficient in data by (quantValue - 1),
// through an unsigned cast so the shift of a negative int16 is well
// defined rather than implementation-dependent.
func dequantBlock(data []int16, quantValue uint8) {
	if quantValue <= 1 {
		return
	}
	shift := uint(quantValue - 1)
	for i, v := range data {
		data[i] = int16(uint16(v) << shift)
	}
}

// LL3Region returns the offset and size of the DC (LL3) subband for the
// given layout, the range DifferentialDecode must be run over before
// Dequantize.
func LL3Region(extrapolate bool) (offset, size int) {
	if extrapolate {
		return ExtOffsetLL3, ExtSizeLL3
	}
	return OffsetLL3, SizeL3
}
