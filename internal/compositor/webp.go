package compositor

import (
	"bytes"
	"image"

	"golang.org/x/image/webp"
)

// decodeWebP decodes a full WebP bitstream into BGRA32 pixels.
func decodeWebP(data []byte) (width, height int, bgra []byte, err error) {
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, nil, err
	}
	return imageToBGRA(img)
}
