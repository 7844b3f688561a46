package compositor

import (
	"bytes"
	"image/jpeg"
)

// decodeJPEG decodes a full JFIF bitstream into BGRA32 pixels.
func decodeJPEG(data []byte) (width, height int, bgra []byte, err error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, nil, err
	}
	return imageToBGRA(img)
}
