package types

// RawMessage is one inbound two-part frame message as received from the
// camera producer. Meta is opaque producer-defined bytes and is never
// parsed by the relay.
type RawMessage struct {
	Meta    []byte
	Payload []byte
}

// PixelBuffer is a decoded frame: Height x Width x 3 channels of 8-bit
// samples, row-major, BGR channel order.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// At returns the BGR triplet at (x, y). Out-of-range coordinates read as
// black.
func (p *PixelBuffer) At(x, y int) (b, g, r byte) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return 0, 0, 0
	}
	i := (y*p.Width + x) * 3
	return p.Pix[i], p.Pix[i+1], p.Pix[i+2]
}

// SwappedRB returns a copy of the buffer with the first and third
// channels exchanged. The codec side of the pipeline is BGR while the
// estimator expects RGB, so this is the adaptation step between them.
func (p *PixelBuffer) SwappedRB() *PixelBuffer {
	out := NewPixelBuffer(p.Width, p.Height)
	for i := 0; i+2 < len(p.Pix); i += 3 {
		out.Pix[i] = p.Pix[i+2]
		out.Pix[i+1] = p.Pix[i+1]
		out.Pix[i+2] = p.Pix[i]
	}
	return out
}

// Set writes the BGR triplet at (x, y). Out-of-range coordinates are
// ignored so drawing code can clip naturally.
func (p *PixelBuffer) Set(x, y int, b, g, r byte) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	i := (y*p.Width + x) * 3
	p.Pix[i] = b
	p.Pix[i+1] = g
	p.Pix[i+2] = r
}
