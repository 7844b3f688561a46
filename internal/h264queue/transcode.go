package h264queue

// TranscodeToAVC420 collapses an AVC444 frame's luma+chroma streams into a
// single 4:2:0 stream and rewrites its codec id, for use when the
// downstream decoder has declared 4:4:4 unsupported. AVC444 carries the
// 4:2:0 base layer in Luma and an enhancement layer in Chroma; dropping
// the enhancement layer and keeping the base layer is the collapse.
func TranscodeToAVC420(frame Frame) Frame {
	if frame.CodecID != CodecAVC444 && frame.CodecID != CodecAVC444v2 {
		return frame
	}
	return Frame{
		FrameID:   frame.FrameID,
		SurfaceID: frame.SurfaceID,
		CodecID:   CodecAVC420,
		Type:      frame.Type,
		DestRect:  frame.DestRect,
		Luma:      frame.Luma,
		Chroma:    nil,
	}
}
