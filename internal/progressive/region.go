package progressive

import "encoding/binary"

const regionQuantEntryLen = 5

// Region is the parsed body of a REGION block: the rectangles it covers,
// its quantization and progressive-quantization tables, and the raw
// remainder of the block, which is a sequence of TILE_SIMPLE/FIRST/UPGRADE
// subblocks the caller dispatches one at a time.
type Region struct {
	Rects      []Rect
	Quants     []Quant
	ProgQuants []Quant
	TileBlocks []byte
}

// ParseRegion parses a REGION block body (with the SYNC-style block header
// already stripped).
func ParseRegion(data []byte) (*Region, error) {
	if len(data) < 4 {
		return nil, ErrBlockTooShort
	}

	offset := 0
	tileSize := data[offset]
	offset++
	if tileSize != TileSize {
		return nil, ErrBadTileSize
	}

	if offset+4 > len(data) {
		return nil, ErrBlockTooShort
	}
	numRects := binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	numQuant := data[offset]
	offset++
	numProgQuant := data[offset]
	offset++

	rects := make([]Rect, 0, numRects)
	for i := uint16(0); i < numRects; i++ {
		if offset+8 > len(data) {
			return nil, ErrBlockTooShort
		}
		rects = append(rects, Rect{
			X:      binary.LittleEndian.Uint16(data[offset:]),
			Y:      binary.LittleEndian.Uint16(data[offset+2:]),
			Width:  binary.LittleEndian.Uint16(data[offset+4:]),
			Height: binary.LittleEndian.Uint16(data[offset+6:]),
		})
		offset += 8
	}

	quants := make([]Quant, 0, numQuant)
	for i := uint8(0); i < numQuant; i++ {
		if offset+regionQuantEntryLen > len(data) {
			return nil, ErrBlockTooShort
		}
		q, err := ParseQuant(data[offset:])
		if err != nil {
			return nil, err
		}
		quants = append(quants, q)
		offset += regionQuantEntryLen
	}

	progQuants := make([]Quant, 0, numProgQuant)
	for i := uint8(0); i < numProgQuant; i++ {
		if offset+regionQuantEntryLen > len(data) {
			return nil, ErrBlockTooShort
		}
		q, err := ParseQuant(data[offset:])
		if err != nil {
			return nil, err
		}
		progQuants = append(progQuants, q)
		offset += regionQuantEntryLen
	}

	return &Region{
		Rects:      rects,
		Quants:     quants,
		ProgQuants: progQuants,
		TileBlocks: data[offset:],
	}, nil
}
