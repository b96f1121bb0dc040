package abcnn

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestWidthAP(t *testing.T) {
	m := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
	out := WidthAP(m, 2)

	rows, cols := out.Dims()
	if rows != 1 || cols != 3 {
		t.Fatalf("got %dx%d, want 1x3", rows, cols)
	}
	want := []float64{1.5, 2.5, 3.5}
	for c, w := range want {
		if out.At(0, c) != w {
			t.Errorf("column %d: got %v, want %v", c, out.At(0, c), w)
		}
	}
}

func TestWidthAPRestoresSequenceLength(t *testing.T) {
	// conv widens s=5 to s+w-1=7; width pooling brings it back to 5
	m := mat.NewDense(2, 7, nil)
	out := WidthAP(m, 3)
	_, cols := out.Dims()
	if cols != 5 {
		t.Fatalf("got %d columns, want 5", cols)
	}
}

func TestWeightedWidthAP(t *testing.T) {
	m := mat.NewDense(1, 3, []float64{1, 1, 1})
	out := WeightedWidthAP(m, []float64{0.5, 2, 0.25}, 2)

	_, cols := out.Dims()
	if cols != 2 {
		t.Fatalf("got %d columns, want 2", cols)
	}
	if out.At(0, 0) != 2.5 {
		t.Errorf("column 0: got %v, want 2.5", out.At(0, 0))
	}
	if out.At(0, 1) != 2.25 {
		t.Errorf("column 1: got %v, want 2.25", out.At(0, 1))
	}
}

func TestAllAP(t *testing.T) {
	m := mat.NewDense(2, 4, []float64{
		1, 2, 3, 4,
		0, 0, 0, 8,
	})
	v := AllAP(m)
	if len(v) != 2 {
		t.Fatalf("got %d values, want 2", len(v))
	}
	if math.Abs(v[0]-2.5) > 1e-12 || math.Abs(v[1]-2) > 1e-12 {
		t.Errorf("got %v, want [2.5 2]", v)
	}
}
