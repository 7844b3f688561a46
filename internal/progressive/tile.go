package progressive

import (
	"encoding/binary"
	"fmt"
)

// Tile holds one (surface-local) 64×64 progressive refinement cell: decoded
// pixels, the three coefficient planes kept in dequantized form for future
// refinement, per-coefficient sign planes, and the refinement pass counter.
type Tile struct {
	XIdx, YIdx uint16

	Pixels [TileBGRASize]byte

	YCoeff  [TilePixels]int16
	CbCoeff [TilePixels]int16
	CrCoeff [TilePixels]int16

	YSign  [TilePixels]int8
	CbSign [TilePixels]int8
	CrSign [TilePixels]int8

	Quant       Quant
	ProgQuant   Quant
	Extrapolate bool

	Pass  int
	Valid bool
	Dirty bool
}

// Reset clears a tile back to its pre-SYNC/CONTEXT state. Pixel and
// coefficient storage is left as-is; Valid=false means no future upgrade
// will read it before a SIMPLE or FIRST tile repopulates it.
func (t *Tile) Reset() {
	t.Pass = 0
	t.Valid = false
	t.Dirty = false
}

const (
	simpleTileHeaderLen  = 16
	firstTileHeaderLen   = 17
	upgradeTileHeaderLen = 20
)

// DecodeSimpleTile parses and decodes a TILE_SIMPLE subblock body (the
// block header is assumed already stripped by the caller). Like
// DecodeFirstTile it keeps the dequantized coefficient planes in the tile,
// but it records no progressive-quant table (ProgQuant stays zero).
func DecodeSimpleTile(body []byte, quantTables []Quant, progQuantTables []Quant, scratch *Scratch, extrapolate bool) (*Tile, error) {
	if len(body) < simpleTileHeaderLen {
		return nil, ErrTileHeader
	}

	quantIdxY := body[0]
	quantIdxCb := body[1]
	quantIdxCr := body[2]
	xIdx := binary.LittleEndian.Uint16(body[4:6])
	yIdx := binary.LittleEndian.Uint16(body[6:8])
	yLen := int(binary.LittleEndian.Uint16(body[8:10]))
	cbLen := int(binary.LittleEndian.Uint16(body[10:12]))
	crLen := int(binary.LittleEndian.Uint16(body[12:14]))

	payload := body[simpleTileHeaderLen:]
	if yLen+cbLen+crLen > len(payload) {
		return nil, ErrTileComponent
	}
	yData := payload[:yLen]
	cbData := payload[yLen : yLen+cbLen]
	crData := payload[yLen+cbLen : yLen+cbLen+crLen]

	quantY, err := lookupQuant(quantTables, quantIdxY)
	if err != nil {
		return nil, err
	}
	quantCb, err := lookupQuant(quantTables, quantIdxCb)
	if err != nil {
		return nil, err
	}
	quantCr, err := lookupQuant(quantTables, quantIdxCr)
	if err != nil {
		return nil, err
	}

	tile := &Tile{XIdx: xIdx, YIdx: yIdx, Quant: quantY, Extrapolate: extrapolate}
	decodeFirstPass(tile, yData, cbData, crData, quantY, quantCb, quantCr, scratch)
	return tile, nil
}

// DecodeFirstTile behaves like DecodeSimpleTile but additionally reads a
// progressive-quant index from the header and retains that table in
// ProgQuant.
func DecodeFirstTile(body []byte, quantTables []Quant, progQuantTables []Quant, scratch *Scratch, extrapolate bool) (*Tile, error) {
	if len(body) < firstTileHeaderLen {
		return nil, ErrTileHeader
	}

	quantIdxY := body[0]
	quantIdxCb := body[1]
	quantIdxCr := body[2]
	xIdx := binary.LittleEndian.Uint16(body[4:6])
	yIdx := binary.LittleEndian.Uint16(body[6:8])
	yLen := int(binary.LittleEndian.Uint16(body[8:10]))
	cbLen := int(binary.LittleEndian.Uint16(body[10:12]))
	crLen := int(binary.LittleEndian.Uint16(body[12:14]))
	progQuantIdx := body[16]

	payload := body[firstTileHeaderLen:]
	if yLen+cbLen+crLen > len(payload) {
		return nil, ErrTileComponent
	}
	yData := payload[:yLen]
	cbData := payload[yLen : yLen+cbLen]
	crData := payload[yLen+cbLen : yLen+cbLen+crLen]

	quantY, err := lookupQuant(quantTables, quantIdxY)
	if err != nil {
		return nil, err
	}
	quantCb, err := lookupQuant(quantTables, quantIdxCb)
	if err != nil {
		return nil, err
	}
	quantCr, err := lookupQuant(quantTables, quantIdxCr)
	if err != nil {
		return nil, err
	}
	progQuant, err := lookupQuant(progQuantTables, progQuantIdx)
	if err != nil {
		return nil, err
	}

	tile := &Tile{XIdx: xIdx, YIdx: yIdx, Quant: quantY, ProgQuant: progQuant, Extrapolate: extrapolate}
	decodeFirstPass(tile, yData, cbData, crData, quantY, quantCb, quantCr, scratch)
	return tile, nil
}

// decodeFirstPass runs the shared SIMPLE/FIRST decode path: RLGR1 entropy
// decode into the tile's coefficient planes, LL3 differential decode,
// dequantize, inverse DWT on a scratch copy, color convert. The tile keeps
// the dequantized coefficients (not the DWT output) so an upgrade pass can
// refine them without re-dequantizing.
func decodeFirstPass(tile *Tile, yData, cbData, crData []byte, quantY, quantCb, quantCr Quant, scratch *Scratch) {
	DecodeRLGR1(yData, tile.YCoeff[:])
	DecodeRLGR1(cbData, tile.CbCoeff[:])
	DecodeRLGR1(crData, tile.CrCoeff[:])

	ll3Off, ll3Size := LL3Region(tile.Extrapolate)
	DifferentialDecode(tile.YCoeff[ll3Off:], ll3Size)
	DifferentialDecode(tile.CbCoeff[ll3Off:], ll3Size)
	DifferentialDecode(tile.CrCoeff[ll3Off:], ll3Size)

	Dequantize(tile.YCoeff[:], quantY, tile.Extrapolate)
	Dequantize(tile.CbCoeff[:], quantCb, tile.Extrapolate)
	Dequantize(tile.CrCoeff[:], quantCr, tile.Extrapolate)

	renderTile(tile, scratch)

	tile.Pass = 1
	tile.Valid = true
	tile.Dirty = true
}

// UpgradeTileTarget reads the (xIdx, yIdx) grid coordinates out of a
// TILE_UPGRADE body without decoding it, so the block dispatcher can look
// up the existing Tile before calling DecodeUpgradeTile on it.
func UpgradeTileTarget(body []byte) (xIdx, yIdx uint16, err error) {
	if len(body) < upgradeTileHeaderLen {
		return 0, 0, ErrTileHeader
	}
	xIdx = binary.LittleEndian.Uint16(body[4:6])
	yIdx = binary.LittleEndian.Uint16(body[6:8])
	return xIdx, yIdx, nil
}

// DecodeUpgradeTile refines a previously decoded tile in place using SRL
// bit-plane data. A tile with Valid=false is skipped entirely: there is
// nothing to refine.
func DecodeUpgradeTile(tile *Tile, body []byte, scratch *Scratch) error {
	if !tile.Valid {
		return nil
	}
	if len(body) < upgradeTileHeaderLen {
		return ErrTileHeader
	}

	ySRLLen := int(binary.LittleEndian.Uint16(body[8:10]))
	yRAWLen := int(binary.LittleEndian.Uint16(body[10:12]))
	cbSRLLen := int(binary.LittleEndian.Uint16(body[12:14]))
	cbRAWLen := int(binary.LittleEndian.Uint16(body[14:16]))
	crSRLLen := int(binary.LittleEndian.Uint16(body[16:18]))
	crRAWLen := int(binary.LittleEndian.Uint16(body[18:20]))

	payload := body[upgradeTileHeaderLen:]
	total := ySRLLen + yRAWLen + cbSRLLen + cbRAWLen + crSRLLen + crRAWLen
	if total > len(payload) {
		return ErrTileComponent
	}

	off := 0
	ySRL := payload[off : off+ySRLLen]
	off += ySRLLen
	off += yRAWLen // RAW companion stream is accepted but not decoded (see DecodeSRL doc).
	cbSRL := payload[off : off+cbSRLLen]
	off += cbSRLLen
	off += cbRAWLen
	crSRL := payload[off : off+crSRLLen]
	off += crSRLLen
	off += crRAWLen

	bitPos := 6 - tile.Pass
	if bitPos < 0 {
		bitPos = 0
	}

	DecodeSRL(ySRL, tile.YCoeff[:], tile.YSign[:], bitPos)
	DecodeSRL(cbSRL, tile.CbCoeff[:], tile.CbSign[:], bitPos)
	DecodeSRL(crSRL, tile.CrCoeff[:], tile.CrSign[:], bitPos)

	renderTile(tile, scratch)

	tile.Pass++
	tile.Dirty = true
	return nil
}

// renderTile runs the inverse DWT on a scratch copy of the tile's stored
// dequantized coefficients (never the stored coefficients themselves — an
// in-place DWT would destroy the values an upgrade pass needs to refine)
// and color-converts the result into the tile's pixel buffer.
func renderTile(tile *Tile, scratch *Scratch) {
	var yWork, cbWork, crWork [TilePixels]int16
	copy(yWork[:], tile.YCoeff[:])
	copy(cbWork[:], tile.CbCoeff[:])
	copy(crWork[:], tile.CrCoeff[:])

	InverseDWT2D(yWork[:], scratch, tile.Extrapolate)
	InverseDWT2D(cbWork[:], scratch, tile.Extrapolate)
	InverseDWT2D(crWork[:], scratch, tile.Extrapolate)

	YCbCrToBGRA(yWork[:], cbWork[:], crWork[:], tile.Pixels[:])
}

func lookupQuant(tables []Quant, idx uint8) (Quant, error) {
	if int(idx) >= len(tables) {
		return Quant{}, fmt.Errorf("%w: index %d", ErrUnknownQuantIdx, idx)
	}
	return tables[idx], nil
}
