package types

import (
	"bytes"
	"testing"
)

func TestFlattenPreservesOrder(t *testing.T) {
	set := LandmarkSet{
		{X: 1, Y: 2, Z: 3, Visibility: 0.9},
		{X: 4, Y: 5, Z: 6, Visibility: 0.8},
	}

	flat := set.Flatten()
	want := []float32{1, 2, 3, 0.9, 4, 5, 6, 0.8}
	if len(flat) != len(want) {
		t.Fatalf("unexpected length: %d", len(flat))
	}
	for i := range want {
		if flat[i] != want[i] {
			t.Fatalf("flat[%d] = %v, want %v", i, flat[i], want[i])
		}
	}
}

func TestEncodeFloatsLittleEndian(t *testing.T) {
	payload := EncodeFloats([]float32{1.0})
	// 1.0 as IEEE-754 single is 0x3f800000, little-endian on the wire.
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	if !bytes.Equal(payload, want) {
		t.Fatalf("unexpected encoding: %x", payload)
	}
}

func TestDecodeLandmarksRoundTrip(t *testing.T) {
	set := LandmarkSet{
		{X: 0.1, Y: -0.2, Z: 0.3, Visibility: 0.99},
		{X: -1.5, Y: 2.5, Z: -3.5, Visibility: 0.01},
		{X: 0, Y: 0, Z: 0, Visibility: 1},
	}

	decoded, err := DecodeLandmarks(EncodeFloats(set.Flatten()))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(decoded) != len(set) {
		t.Fatalf("unexpected count: %d", len(decoded))
	}
	for i := range set {
		if decoded[i] != set[i] {
			t.Fatalf("landmark %d = %+v, want %+v", i, decoded[i], set[i])
		}
	}
}

func TestDecodeFloatsRejectsBadLength(t *testing.T) {
	if _, err := DecodeFloats([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

func TestSwappedRB(t *testing.T) {
	buf := NewPixelBuffer(2, 1)
	buf.Set(0, 0, 10, 20, 30)
	buf.Set(1, 0, 40, 50, 60)

	swapped := buf.SwappedRB()
	b, g, r := swapped.At(0, 0)
	if b != 30 || g != 20 || r != 10 {
		t.Fatalf("unexpected pixel: %d %d %d", b, g, r)
	}
	// Original untouched.
	b, g, r = buf.At(0, 0)
	if b != 10 || g != 20 || r != 30 {
		t.Fatalf("original mutated: %d %d %d", b, g, r)
	}
}
