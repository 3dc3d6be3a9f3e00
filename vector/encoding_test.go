package vector

import (
	"errors"
	"testing"

	"github.com/viant/sqlite-kd/kdtree"
)

func TestEncodeDecodeEmbedding_RoundTrip(t *testing.T) {
	orig := []float32{0.0, 1.5, -2.25, 3.75}

	b, err := EncodeEmbedding(orig)
	if err != nil {
		t.Fatalf("EncodeEmbedding failed: %v", err)
	}

	decoded, err := DecodeEmbedding(b)
	if err != nil {
		t.Fatalf("DecodeEmbedding failed: %v", err)
	}
	if len(decoded) != len(orig) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(orig))
	}
	for i := range orig {
		if got, want := decoded[i], orig[i]; got != want {
			t.Fatalf("decoded[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestEncodeDecodeEmbedding_Empty(t *testing.T) {
	b, err := EncodeEmbedding(nil)
	if err != nil {
		t.Fatalf("EncodeEmbedding(nil) failed: %v", err)
	}
	if len(b) != 0 {
		t.Fatalf("expected empty blob for nil slice, got len=%d", len(b))
	}

	vec, err := DecodeEmbedding(nil)
	if err != nil {
		t.Fatalf("DecodeEmbedding(nil) failed: %v", err)
	}
	if len(vec) != 0 {
		t.Fatalf("expected empty slice for nil blob, got len=%d", len(vec))
	}
}


func TestDecodePoint(t *testing.T) {
	b, _ := EncodeEmbedding([]float32{1, 2, 3})
	p, err := DecodePoint(b, 3)
	if err != nil {
		t.Fatalf("DecodePoint failed: %v", err)
	}
	if p.Dims() != 3 || p[2] != 3 {
		t.Fatalf("DecodePoint = %v, want [1 2 3]", p)
	}
	if _, err := DecodePoint(b, 0); err != nil {
		t.Fatalf("DecodePoint with dim 0 failed: %v", err)
	}
	if _, err := DecodePoint(b, 2); !errors.Is(err, kdtree.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := DecodePoint(nil, 2); err == nil {
		t.Fatalf("expected error for empty blob")
	}
	if _, err := DecodePoint([]byte{1, 2, 3}, 0); err == nil {
		t.Fatalf("expected error for ragged blob")
	}
}
