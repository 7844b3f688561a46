package wire

import (
	"encoding/binary"
	"errors"
)

// Tag is the 4-byte ASCII magic prefixing every binary data message.
type Tag [4]byte

var (
	TagOPUS = Tag{'O', 'P', 'U', 'S'}
	TagAUDI = Tag{'A', 'U', 'D', 'I'}
	TagH264 = Tag{'H', '2', '6', '4'}
	TagDELT = Tag{'D', 'E', 'L', 'T'}
	TagWebP = Tag{'W', 'e', 'b', 'P'}
	TagJPEG = Tag{'J', 'P', 'E', 'G'}
	TagSURF = Tag{'S', 'U', 'R', 'F'}
	TagDELS = Tag{'D', 'E', 'L', 'S'}
	TagSTFR = Tag{'S', 'T', 'F', 'R'}
	TagENFR = Tag{'E', 'N', 'F', 'R'}
	TagPROG = Tag{'P', 'R', 'O', 'G'}
	TagTILE = Tag{'T', 'I', 'L', 'E'}
	TagSFIL = Tag{'S', 'F', 'I', 'L'}
	TagS2SF = Tag{'S', '2', 'S', 'F'}
	TagC2SF = Tag{'C', '2', 'S', 'F'}
)

var (
	ErrShortMessage = errors.New("wire: message shorter than its tag's fixed header")
	ErrBadWebPMagic = errors.New("wire: payload is not a WebP bitstream")
	ErrBadJPEGMagic = errors.New("wire: payload is not a JFIF bitstream")
)

// PeekTag reads the 4-byte tag off the front of raw without consuming it.
func PeekTag(raw []byte) (Tag, error) {
	if len(raw) < 4 {
		return Tag{}, ErrShortMessage
	}
	var t Tag
	copy(t[:], raw[:4])
	return t, nil
}

// SurfDelete is the DELS payload: a surface id.
type SurfDelete struct {
	SurfaceID uint16
}

// DecodeSurfDelete parses a DELS message body (after the tag).
func DecodeSurfDelete(body []byte) (SurfDelete, error) {
	if len(body) < 2 {
		return SurfDelete{}, ErrShortMessage
	}
	return SurfDelete{SurfaceID: binary.LittleEndian.Uint16(body[0:2])}, nil
}

// EncodeSurfDelete builds a DELS message.
func EncodeSurfDelete(surfaceID uint16) []byte {
	out := make([]byte, 4+2)
	copy(out[0:4], TagDELS[:])
	binary.LittleEndian.PutUint16(out[4:6], surfaceID)
	return out
}

// SurfCreate is the SURF payload: a surface id and dimensions.
type SurfCreate struct {
	SurfaceID uint16
	Width     uint32
	Height    uint32
}

func DecodeSurfCreate(body []byte) (SurfCreate, error) {
	if len(body) < 10 {
		return SurfCreate{}, ErrShortMessage
	}
	return SurfCreate{
		SurfaceID: binary.LittleEndian.Uint16(body[0:2]),
		Width:     binary.LittleEndian.Uint32(body[2:6]),
		Height:    binary.LittleEndian.Uint32(body[6:10]),
	}, nil
}

func EncodeSurfCreate(c SurfCreate) []byte {
	out := make([]byte, 4+10)
	copy(out[0:4], TagSURF[:])
	binary.LittleEndian.PutUint16(out[4:6], c.SurfaceID)
	binary.LittleEndian.PutUint32(out[6:10], c.Width)
	binary.LittleEndian.PutUint32(out[10:14], c.Height)
	return out
}

// FrameBracket is the STFR/ENFR payload: a frame id.
type FrameBracket struct {
	FrameID uint32
}

func DecodeFrameBracket(body []byte) (FrameBracket, error) {
	if len(body) < 4 {
		return FrameBracket{}, ErrShortMessage
	}
	return FrameBracket{FrameID: binary.LittleEndian.Uint32(body[0:4])}, nil
}

func encodeFrameBracket(tag Tag, frameID uint32) []byte {
	out := make([]byte, 4+4)
	copy(out[0:4], tag[:])
	binary.LittleEndian.PutUint32(out[4:8], frameID)
	return out
}

func EncodeStartFrame(frameID uint32) []byte { return encodeFrameBracket(TagSTFR, frameID) }
func EncodeEndFrame(frameID uint32) []byte   { return encodeFrameBracket(TagENFR, frameID) }

// H264Frame is the H264 payload.
type H264Frame struct {
	FrameID   uint32
	SurfaceID uint16
	CodecID   uint16
	Type      uint8
	X, Y      int16
	W, H      uint16
	Nal       []byte
	Chroma    []byte
}

const h264FixedLen = 4 + 2 + 2 + 1 + 2 + 2 + 2 + 2 + 4 + 4

func DecodeH264Frame(body []byte) (H264Frame, error) {
	if len(body) < h264FixedLen {
		return H264Frame{}, ErrShortMessage
	}
	f := H264Frame{
		FrameID:   binary.LittleEndian.Uint32(body[0:4]),
		SurfaceID: binary.LittleEndian.Uint16(body[4:6]),
		CodecID:   binary.LittleEndian.Uint16(body[6:8]),
		Type:      body[8],
		X:         int16(binary.LittleEndian.Uint16(body[9:11])),
		Y:         int16(binary.LittleEndian.Uint16(body[11:13])),
		W:         binary.LittleEndian.Uint16(body[13:15]),
		H:         binary.LittleEndian.Uint16(body[15:17]),
	}
	nalSize := binary.LittleEndian.Uint32(body[17:21])
	chromaSize := binary.LittleEndian.Uint32(body[21:25])
	rest := body[25:]
	if uint64(nalSize)+uint64(chromaSize) > uint64(len(rest)) {
		return H264Frame{}, ErrShortMessage
	}
	f.Nal = rest[:nalSize]
	f.Chroma = rest[nalSize : nalSize+chromaSize]
	return f, nil
}

func EncodeH264Frame(f H264Frame) []byte {
	out := make([]byte, 4+h264FixedLen+len(f.Nal)+len(f.Chroma))
	copy(out[0:4], TagH264[:])
	binary.LittleEndian.PutUint32(out[4:8], f.FrameID)
	binary.LittleEndian.PutUint16(out[8:10], f.SurfaceID)
	binary.LittleEndian.PutUint16(out[10:12], f.CodecID)
	out[12] = f.Type
	binary.LittleEndian.PutUint16(out[13:15], uint16(f.X))
	binary.LittleEndian.PutUint16(out[15:17], uint16(f.Y))
	binary.LittleEndian.PutUint16(out[17:19], f.W)
	binary.LittleEndian.PutUint16(out[19:21], f.H)
	binary.LittleEndian.PutUint32(out[21:25], uint32(len(f.Nal)))
	binary.LittleEndian.PutUint32(out[25:29], uint32(len(f.Chroma)))
	n := copy(out[29:], f.Nal)
	copy(out[29+n:], f.Chroma)
	return out
}

// DeltaRect is one rectangle inside a DELT message.
type DeltaRect struct {
	X    int32  `json:"x"`
	Y    int32  `json:"y"`
	W    int32  `json:"w"`
	H    int32  `json:"h"`
	Size uint32 `json:"size"`
}

// DeltaMessage is the DELT payload: a JSON rect list followed by
// concatenated raw BGRA32 tiles, one per rect, in order.
type DeltaMessage struct {
	Rects []DeltaRect
	Tiles [][]byte
}

func DecodeTileHeader(body []byte) (surfaceID uint16, x, y int16, w, h uint16, pixels []byte, err error) {
	const hdr = 2 + 2 + 2 + 2 + 2
	if len(body) < hdr {
		return 0, 0, 0, 0, 0, nil, ErrShortMessage
	}
	surfaceID = binary.LittleEndian.Uint16(body[0:2])
	x = int16(binary.LittleEndian.Uint16(body[2:4]))
	y = int16(binary.LittleEndian.Uint16(body[4:6]))
	w = binary.LittleEndian.Uint16(body[6:8])
	h = binary.LittleEndian.Uint16(body[8:10])
	pixels = body[hdr:]
	return
}

func EncodeTile(surfaceID uint16, x, y int16, w, h uint16, pixels []byte) []byte {
	out := make([]byte, 4+10+len(pixels))
	copy(out[0:4], TagTILE[:])
	binary.LittleEndian.PutUint16(out[4:6], surfaceID)
	binary.LittleEndian.PutUint16(out[6:8], uint16(x))
	binary.LittleEndian.PutUint16(out[8:10], uint16(y))
	binary.LittleEndian.PutUint16(out[10:12], w)
	binary.LittleEndian.PutUint16(out[12:14], h)
	copy(out[14:], pixels)
	return out
}

// SolidFillMsg is the SFIL fixed-layout payload. The spec documents SFIL,
// S2SF, and C2SF only as "fixed" without naming byte offsets; this layout
// is this gateway's own convention, kept internally consistent with the
// variable-length messages above.
type SolidFillMsg struct {
	SurfaceID uint16
	X, Y      int16
	W, H      uint16
	B, G, R, A byte
}

const solidFillLen = 2 + 2 + 2 + 2 + 2 + 4

func DecodeSolidFill(body []byte) (SolidFillMsg, error) {
	if len(body) < solidFillLen {
		return SolidFillMsg{}, ErrShortMessage
	}
	return SolidFillMsg{
		SurfaceID: binary.LittleEndian.Uint16(body[0:2]),
		X:         int16(binary.LittleEndian.Uint16(body[2:4])),
		Y:         int16(binary.LittleEndian.Uint16(body[4:6])),
		W:         binary.LittleEndian.Uint16(body[6:8]),
		H:         binary.LittleEndian.Uint16(body[8:10]),
		B:         body[10],
		G:         body[11],
		R:         body[12],
		A:         body[13],
	}, nil
}

func EncodeSolidFill(m SolidFillMsg) []byte {
	out := make([]byte, 4+solidFillLen)
	copy(out[0:4], TagSFIL[:])
	binary.LittleEndian.PutUint16(out[4:6], m.SurfaceID)
	binary.LittleEndian.PutUint16(out[6:8], uint16(m.X))
	binary.LittleEndian.PutUint16(out[8:10], uint16(m.Y))
	binary.LittleEndian.PutUint16(out[10:12], m.W)
	binary.LittleEndian.PutUint16(out[12:14], m.H)
	out[14], out[15], out[16], out[17] = m.B, m.G, m.R, m.A
	return out
}

// SurfaceToSurfaceMsg is the S2SF fixed-layout payload: one source
// rectangle copied to a single destination point.
type SurfaceToSurfaceMsg struct {
	SrcID, DstID       uint16
	SrcX, SrcY         int16
	SrcW, SrcH         uint16
	DstX, DstY         int16
}

const s2sfLen = 2 + 2 + 2 + 2 + 2 + 2 + 2 + 2

func DecodeSurfaceToSurface(body []byte) (SurfaceToSurfaceMsg, error) {
	if len(body) < s2sfLen {
		return SurfaceToSurfaceMsg{}, ErrShortMessage
	}
	return SurfaceToSurfaceMsg{
		SrcID: binary.LittleEndian.Uint16(body[0:2]),
		DstID: binary.LittleEndian.Uint16(body[2:4]),
		SrcX:  int16(binary.LittleEndian.Uint16(body[4:6])),
		SrcY:  int16(binary.LittleEndian.Uint16(body[6:8])),
		SrcW:  binary.LittleEndian.Uint16(body[8:10]),
		SrcH:  binary.LittleEndian.Uint16(body[10:12]),
		DstX:  int16(binary.LittleEndian.Uint16(body[12:14])),
		DstY:  int16(binary.LittleEndian.Uint16(body[14:16])),
	}, nil
}

func EncodeSurfaceToSurface(m SurfaceToSurfaceMsg) []byte {
	out := make([]byte, 4+s2sfLen)
	copy(out[0:4], TagS2SF[:])
	binary.LittleEndian.PutUint16(out[4:6], m.SrcID)
	binary.LittleEndian.PutUint16(out[6:8], m.DstID)
	binary.LittleEndian.PutUint16(out[8:10], uint16(m.SrcX))
	binary.LittleEndian.PutUint16(out[10:12], uint16(m.SrcY))
	binary.LittleEndian.PutUint16(out[12:14], m.SrcW)
	binary.LittleEndian.PutUint16(out[14:16], m.SrcH)
	binary.LittleEndian.PutUint16(out[16:18], uint16(m.DstX))
	binary.LittleEndian.PutUint16(out[18:20], uint16(m.DstY))
	return out
}

// CacheToSurfaceMsg is the C2SF fixed-layout payload.
type CacheToSurfaceMsg struct {
	Slot     uint16
	DstID    uint16
	DstX     int16
	DstY     int16
}

const c2sfLen = 2 + 2 + 2 + 2

func DecodeCacheToSurface(body []byte) (CacheToSurfaceMsg, error) {
	if len(body) < c2sfLen {
		return CacheToSurfaceMsg{}, ErrShortMessage
	}
	return CacheToSurfaceMsg{
		Slot:  binary.LittleEndian.Uint16(body[0:2]),
		DstID: binary.LittleEndian.Uint16(body[2:4]),
		DstX:  int16(binary.LittleEndian.Uint16(body[4:6])),
		DstY:  int16(binary.LittleEndian.Uint16(body[6:8])),
	}, nil
}

func EncodeCacheToSurface(m CacheToSurfaceMsg) []byte {
	out := make([]byte, 4+c2sfLen)
	copy(out[0:4], TagC2SF[:])
	binary.LittleEndian.PutUint16(out[4:6], m.Slot)
	binary.LittleEndian.PutUint16(out[6:8], m.DstID)
	binary.LittleEndian.PutUint16(out[8:10], uint16(m.DstX))
	binary.LittleEndian.PutUint16(out[10:12], uint16(m.DstY))
	return out
}

func isWebP(payload []byte) bool {
	return len(payload) >= 12 &&
		string(payload[0:4]) == "RIFF" &&
		string(payload[8:12]) == "WEBP"
}

func isJPEG(payload []byte) bool {
	return len(payload) >= 3 && payload[0] == 0xFF && payload[1] == 0xD8 && payload[2] == 0xFF
}
