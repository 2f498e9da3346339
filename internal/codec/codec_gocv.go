//go:build gocv
// +build gocv

package codec

import (
	"fmt"

	"gocv.io/x/gocv"

	"pose-relay-go/internal/types"
)

// Decode converts compressed image bytes into a BGR pixel buffer using
// OpenCV. It returns ok=false on malformed input; callers skip the
// frame rather than treating this as fatal.
func Decode(data []byte) (*types.PixelBuffer, bool) {
	if len(data) == 0 {
		return nil, false
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, false
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, false
	}
	buf := &types.PixelBuffer{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Pix:    mat.ToBytes(),
	}
	return buf, true
}

// Encode compresses a BGR pixel buffer to JPEG at the given quality
// (0-100) using OpenCV. Failure on a valid buffer is not expected and
// is treated as fatal by the relay.
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
	mat, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC3, buf.Pix)
	if err != nil {
		return nil, fmt.Errorf("encode: build mat: %w", err)
	}
	defer mat.Close()
	encoded, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer encoded.Close()
	out := make([]byte, encoded.Len())
	copy(out, encoded.GetBytes())
	return out, nil
}
