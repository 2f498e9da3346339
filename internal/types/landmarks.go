package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Landmark is one estimated anatomical point in world coordinates with a
// visibility confidence in [0,1].
type Landmark struct {
	X          float32
	Y          float32
	Z          float32
	Visibility float32
}

// LandmarkSet is an ordered sequence of landmarks. The index is
// model-defined and semantically meaningful (joint identity), so order
// must be preserved end to end.
type LandmarkSet []Landmark

// Flatten returns the landmarks as a flat float32 sequence, each landmark
// contributing (x, y, z, visibility) contiguously in landmark order.
func (s LandmarkSet) Flatten() []float32 {
	out := make([]float32, 0, len(s)*4)
	for _, lm := range s {
		out = append(out, lm.X, lm.Y, lm.Z, lm.Visibility)
	}
	return out
}

// EncodeFloats packs values as little-endian 32-bit floats, the pose
// channel payload format.
func EncodeFloats(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// DecodeFloats is the inverse of EncodeFloats.
func DecodeFloats(payload []byte) ([]float32, error) {
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("float payload length %d is not a multiple of 4", len(payload))
	}
	out := make([]float32, len(payload)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return out, nil
}

// DecodeLandmarks rebuilds a LandmarkSet from a pose channel payload.
func DecodeLandmarks(payload []byte) (LandmarkSet, error) {
	values, err := DecodeFloats(payload)
	if err != nil {
		return nil, err
	}
	if len(values)%4 != 0 {
		return nil, fmt.Errorf("landmark payload has %d floats, want multiple of 4", len(values))
	}
	set := make(LandmarkSet, 0, len(values)/4)
	for i := 0; i+3 < len(values); i += 4 {
		set = append(set, Landmark{
			X:          values[i],
			Y:          values[i+1],
			Z:          values[i+2],
			Visibility: values[i+3],
		})
	}
	return set, nil
}
