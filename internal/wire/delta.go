package wire

import (
	"encoding/binary"
	"encoding/json"
)

type deltaRectsJSON struct {
	Rects []DeltaRect `json:"rects"`
}

// DecodeDelta parses a DELT message body (after the tag): a u32 JSON
// length, the JSON rect list itself, then each rect's raw BGRA32 tile
// concatenated in order.
func DecodeDelta(body []byte) (DeltaMessage, error) {
	if len(body) < 4 {
		return DeltaMessage{}, ErrShortMessage
	}
	jsonLen := binary.LittleEndian.Uint32(body[0:4])
	rest := body[4:]
	if uint64(jsonLen) > uint64(len(rest)) {
		return DeltaMessage{}, ErrShortMessage
	}

	var parsed deltaRectsJSON
	if err := json.Unmarshal(rest[:jsonLen], &parsed); err != nil {
		return DeltaMessage{}, err
	}

	tiles := rest[jsonLen:]
	msg := DeltaMessage{Rects: parsed.Rects, Tiles: make([][]byte, 0, len(parsed.Rects))}
	offset := uint32(0)
	for _, r := range parsed.Rects {
		if uint64(offset)+uint64(r.Size) > uint64(len(tiles)) {
			return DeltaMessage{}, ErrShortMessage
		}
		msg.Tiles = append(msg.Tiles, tiles[offset:offset+r.Size])
		offset += r.Size
	}
	return msg, nil
}

// EncodeDelta builds a DELT message from rects and their matching tiles.
func EncodeDelta(rects []DeltaRect, tiles [][]byte) ([]byte, error) {
	jsonBody, err := json.Marshal(deltaRectsJSON{Rects: rects})
	if err != nil {
		return nil, err
	}
	total := 4 + 4 + len(jsonBody)
	for _, t := range tiles {
		total += len(t)
	}
	out := make([]byte, total)
	copy(out[0:4], TagDELT[:])
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(jsonBody)))
	n := copy(out[8:], jsonBody)
	offset := 8 + n
	for _, t := range tiles {
		offset += copy(out[offset:], t)
	}
	return out, nil
}
