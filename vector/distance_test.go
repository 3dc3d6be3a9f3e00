package vector

import (
	"errors"
	"testing"

	"github.com/viant/sqlite-kd/kdtree"
)

func TestL2Distance(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}

	d, err := L2Distance(a, b)
	if err != nil {
		t.Fatalf("L2Distance failed: %v", err)
	}
	if d != 5 {
		t.Fatalf("L2Distance(0,0)-(3,4) = %v, want 5", d)
	}

	// Symmetric and zero on identical input.
	if d2, _ := L2Distance(b, a); d2 != d {
		t.Fatalf("L2Distance not symmetric: %v vs %v", d, d2)
	}
	if d0, _ := L2Distance(b, b); d0 != 0 {
		t.Fatalf("L2Distance(b,b) = %v, want 0", d0)
	}
}

func TestL2Distance_DimensionMismatch(t *testing.T) {
	_, err := L2Distance([]float32{1, 2}, []float32{1})
	if !errors.Is(err, kdtree.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}
