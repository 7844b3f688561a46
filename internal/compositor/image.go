package compositor

import "image"

// imageToBGRA converts a decoded image to tightly-packed BGRA32 pixels,
// the format every Drawable.Blit call expects.
func imageToBGRA(img image.Image) (width, height int, bgra []byte, err error) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	out := make([]byte, width*height*4)

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out[i+0] = byte(bl >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(r >> 8)
			out[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return width, height, out, nil
}
