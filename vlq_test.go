package miditoolkit

import (
	"bytes"
	"testing"
)

func TestVLQRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 1 << 20, 1 << 27, (1 << 28) - 1, 1 << 28, 1 << 40, maxVLQValue}
	for _, n := range cases {
		encoded := encodeVLQ(n)
		r := bytes.NewReader(encoded)
		got, count, err := decodeVLQ(r)
		if err != nil {
			t.Fatalf("decode(%d): unexpected error: %v", n, err)
		}
		if count != len(encoded) {
			t.Fatalf("decode(%d): consumed %d bytes, encoded was %d", n, count, len(encoded))
		}
		if got != n {
			t.Fatalf("round trip mismatch: encoded %d, decoded %d", n, got)
		}
	}
}

func TestVLQContinuationBits(t *testing.T) {
	encoded := encodeVLQ(0x3FFF)
	if len(encoded) != 2 {
		t.Fatalf("expected 2 bytes for 0x3FFF, got %d", len(encoded))
	}
	if encoded[0]&0x80 == 0 {
		t.Fatalf("expected continuation bit set on first byte, got %#x", encoded[0])
	}
	if encoded[1]&0x80 != 0 {
		t.Fatalf("expected continuation bit clear on final byte, got %#x", encoded[1])
	}
}

func TestVLQMinimalLength(t *testing.T) {
	if got := len(encodeVLQ(0)); got != 1 {
		t.Fatalf("zero should encode to exactly one byte, got %d", got)
	}
}
