//go:build !gocv
// +build !gocv

package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"pose-relay-go/internal/types"
)

// Decode converts compressed image bytes into a BGR pixel buffer. It
// returns ok=false on malformed input; callers skip the frame rather
// than treating this as fatal.
func Decode(data []byte) (*types.PixelBuffer, bool) {
	if len(data) == 0 {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	bounds := img.Bounds()
	buf := types.NewPixelBuffer(bounds.Dx(), bounds.Dy())
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			buf.Pix[i] = byte(b >> 8)
			buf.Pix[i+1] = byte(g >> 8)
			buf.Pix[i+2] = byte(r >> 8)
			i += 3
		}
	}
	return buf, true
}

// Encode compresses a BGR pixel buffer to JPEG at the given quality
// (0-100). Failure on a valid buffer is not expected and is treated as
// fatal by the relay.
func Encode(buf *types.PixelBuffer, quality int) ([]byte, error) {
	if buf == nil || len(buf.Pix) != buf.Width*buf.Height*3 {
		return nil, fmt.Errorf("encode: invalid pixel buffer")
	}
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			src := (y*buf.Width + x) * 3
			dst := img.PixOffset(x, y)
			img.Pix[dst] = buf.Pix[src+2]
			img.Pix[dst+1] = buf.Pix[src+1]
			img.Pix[dst+2] = buf.Pix[src]
			img.Pix[dst+3] = 0xff
		}
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}
