package progressive

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleTileBody(xIdx, yIdx uint16, yData, cbData, crData []byte) []byte {
	body := make([]byte, simpleTileHeaderLen)
	body[0], body[1], body[2] = 0, 0, 0
	binary.LittleEndian.PutUint16(body[4:6], xIdx)
	binary.LittleEndian.PutUint16(body[6:8], yIdx)
	binary.LittleEndian.PutUint16(body[8:10], uint16(len(yData)))
	binary.LittleEndian.PutUint16(body[10:12], uint16(len(cbData)))
	binary.LittleEndian.PutUint16(body[12:14], uint16(len(crData)))
	body = append(body, yData...)
	body = append(body, cbData...)
	body = append(body, crData...)
	return body
}

func TestDecodeSimpleTile_TooShortHeaderErrors(t *testing.T) {
	var scratch Scratch
	_, err := DecodeSimpleTile([]byte{1, 2, 3}, []Quant{{}}, nil, &scratch, false)
	assert.ErrorIs(t, err, ErrTileHeader)
}

func TestDecodeSimpleTile_ProducesValidPass1Tile(t *testing.T) {
	body := simpleTileBody(2, 3, []byte{0x00, 0x00}, []byte{0x00}, []byte{0x00})
	var scratch Scratch
	tile, err := DecodeSimpleTile(body, []Quant{{LL3: 6, LH3: 6, HL3: 6, HH3: 6, LH2: 7, HL2: 7, HH2: 8, LH1: 8, HL1: 8, HH1: 9}}, nil, &scratch, false)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), tile.XIdx)
	assert.Equal(t, uint16(3), tile.YIdx)
	assert.Equal(t, 1, tile.Pass)
	assert.True(t, tile.Valid)
	assert.True(t, tile.Dirty)
}

func TestDecodeSimpleTile_UnknownQuantIndexErrors(t *testing.T) {
	body := simpleTileBody(0, 0, nil, nil, nil)
	var scratch Scratch
	_, err := DecodeSimpleTile(body, []Quant{}, nil, &scratch, false)
	assert.ErrorIs(t, err, ErrUnknownQuantIdx)
}

func TestDecodeUpgradeTile_SkipsInvalidTile(t *testing.T) {
	tile := &Tile{Valid: false}
	var scratch Scratch
	err := DecodeUpgradeTile(tile, make([]byte, upgradeTileHeaderLen), &scratch)
	assert.NoError(t, err)
	assert.Equal(t, 0, tile.Pass)
}

func TestDecodeUpgradeTile_IncrementsPassOnValidTile(t *testing.T) {
	q := Quant{LL3: 6, LH3: 6, HL3: 6, HH3: 6, LH2: 7, HL2: 7, HH2: 8, LH1: 8, HL1: 8, HH1: 9}
	body := simpleTileBody(0, 0, []byte{0xAA}, []byte{0xBB}, []byte{0xCC})
	var scratch Scratch
	tile, err := DecodeSimpleTile(body, []Quant{q}, nil, &scratch, false)
	require.NoError(t, err)

	upgradeBody := make([]byte, upgradeTileHeaderLen+3)
	binary.LittleEndian.PutUint16(upgradeBody[8:10], 1)
	upgradeBody[upgradeTileHeaderLen] = 0xF0

	err = DecodeUpgradeTile(tile, upgradeBody, &scratch)
	require.NoError(t, err)
	assert.Equal(t, 2, tile.Pass)
	assert.True(t, tile.Dirty)
}

func TestDecodeUpgradeTile_TooShortHeaderErrors(t *testing.T) {
	tile := &Tile{Valid: true}
	var scratch Scratch
	err := DecodeUpgradeTile(tile, make([]byte, 5), &scratch)
	assert.ErrorIs(t, err, ErrTileHeader)
}
