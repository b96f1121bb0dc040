package abcnn

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// convWith builds a convolution with explicit weights through the
// checkpoint path, the same way a block loads them.
func convWith(t *testing.T, in, out, width, channels int, weight, bias []float64) *Convolution {
	t.Helper()
	scope := NewCheckpoint()
	scope.Add(&Tensor{Name: "weight", Shape: []int{out, channels, in, width}, Data: weight})
	scope.Add(&Tensor{Name: "bias", Shape: []int{out}, Data: bias})

	c := NewConvolution(in, out, width, channels)
	if err := c.LoadWeights(scope, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	return c
}

func TestConvolutionWideOutput(t *testing.T) {
	// single feature, width 2, both taps at 1: a sliding sum
	c := convWith(t, 1, 1, 2, 1, []float64{1, 1}, []float64{0})

	x := mat.NewDense(1, 3, []float64{1, 2, 3})
	out := c.Forward([]*mat.Dense{x})

	rows, cols := out.Dims()
	if rows != 1 || cols != 4 {
		t.Fatalf("got %dx%d output, want 1x4", rows, cols)
	}

	want := []float64{math.Tanh(1), math.Tanh(3), math.Tanh(5), math.Tanh(3)}
	for p, w := range want {
		if diff := math.Abs(out.At(0, p) - w); diff > 1e-12 {
			t.Errorf("position %d: got %v, want %v", p, out.At(0, p), w)
		}
	}
}

func TestConvolutionBias(t *testing.T) {
	c := convWith(t, 1, 1, 1, 1, []float64{0}, []float64{0.5})
	x := mat.NewDense(1, 2, []float64{7, 9})
	out := c.Forward([]*mat.Dense{x})
	// zero weight leaves only the bias
	for p := 0; p < 2; p++ {
		if diff := math.Abs(out.At(0, p) - math.Tanh(0.5)); diff > 1e-12 {
			t.Errorf("position %d: got %v", p, out.At(0, p))
		}
	}
}

func TestConvolutionTwoChannelsSum(t *testing.T) {
	// both channels contribute through unit taps
	c := convWith(t, 1, 1, 1, 2, []float64{1, 1}, []float64{0})
	x := mat.NewDense(1, 2, []float64{0.1, 0.2})
	attn := mat.NewDense(1, 2, []float64{0.3, 0.4})
	out := c.Forward([]*mat.Dense{x, attn})

	if got, want := out.At(0, 0), math.Tanh(0.4); math.Abs(got-want) > 1e-12 {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := out.At(0, 1), math.Tanh(0.6); math.Abs(got-want) > 1e-12 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestConvolutionRejectsShapeMismatch(t *testing.T) {
	scope := NewCheckpoint()
	scope.Add(&Tensor{Name: "weight", Shape: []int{1, 1, 2, 2}, Data: make([]float64, 4)})

	c := NewConvolution(1, 1, 2, 1) // wants [1,1,1,2]
	if err := c.LoadWeights(scope, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestConvolutionXavierFallback(t *testing.T) {
	c := NewConvolution(2, 3, 2, 1)
	if err := c.LoadWeights(NewCheckpoint(), rand.New(rand.NewSource(3))); err != nil {
		t.Fatalf("LoadWeights with empty checkpoint: %v", err)
	}
	x := mat.NewDense(2, 4, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	out := c.Forward([]*mat.Dense{x})
	rows, cols := out.Dims()
	if rows != 3 || cols != 5 {
		t.Fatalf("got %dx%d, want 3x5", rows, cols)
	}
}
