package bitstream

import "testing"

func TestPeekShiftRoundTrip(t *testing.T) {
	var r Reader
	r.Attach([]byte{0b10110010, 0b01010101, 0xFF, 0x00, 0xAA, 0x55, 0x0F, 0xF0})
	r.Fetch()

	if got := r.Peek(4); got != 0b1011 {
		t.Fatalf("Peek(4) = %04b, want 1011", got)
	}
	r.Shift(4)
	if got := r.Peek(4); got != 0b0010 {
		t.Fatalf("Peek(4) after shift = %04b, want 0010", got)
	}
	r.Shift(4)
	if got := r.Peek(8); got != 0b01010101 {
		t.Fatalf("Peek(8) = %08b, want 01010101", got)
	}
}

func TestShift32IsTwoShift16(t *testing.T) {
	var r Reader
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	r.Attach(data)
	r.Fetch()
	before := r.Peek(32)
	r.Shift(32)
	after := r.Peek(32)
	if before == after {
		t.Fatalf("Shift(32) did not advance the window")
	}
	if got := r.bitPos; got != 96 {
		t.Fatalf("bitPos after Shift(32) = %d, want 96", got)
	}
}

func TestRemainingBitsAndZeroFillPastEnd(t *testing.T) {
	var r Reader
	r.Attach([]byte{0xFF})
	r.Fetch()
	if got := r.RemainingBits(); got != 8 {
		t.Fatalf("RemainingBits() = %d, want 8", got)
	}
	// Past the single real byte, fetchBits must zero-fill rather than panic.
	if got := r.Peek(32); got>>24 != 0xFF {
		t.Fatalf("Peek(32) = %032b, want top byte 0xFF", got)
	}
	r.Shift(8)
	if got := r.RemainingBits(); got != 0 {
		t.Fatalf("RemainingBits() after consuming the only byte = %d, want 0", got)
	}
}

func TestShiftZeroIsNoop(t *testing.T) {
	var r Reader
	r.Attach([]byte{0xAB, 0xCD, 0xEF, 0x01, 0x23, 0x45, 0x67, 0x89})
	r.Fetch()
	before := r.Peek(16)
	r.Shift(0)
	after := r.Peek(16)
	if before != after {
		t.Fatalf("Shift(0) mutated the window: before=%016b after=%016b", before, after)
	}
}

func TestIllegalShiftPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Shift(33) did not panic")
		}
	}()
	var r Reader
	r.Attach(make([]byte, 8))
	r.Fetch()
	r.Shift(33)
}
