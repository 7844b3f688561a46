package progressive

// DifferentialDecode reverses the LL3 (DC) subband's differential encoding
// by running a prefix sum in place. Must run after RLGR1 decode and before
// Dequantize, on the LL3 region given by LL3Region for the tile's layout
// (buffer[OffsetLL3:OffsetLL3+SizeL3] standard, or the extrapolated
// equivalent).
func DifferentialDecode(buffer []int16, size int) {
	if len(buffer) < size {
		return
	}
	for i := 1; i < size; i++ {
		buffer[i] += buffer[i-1]
	}
}
