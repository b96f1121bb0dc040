package abcnn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Convolution is a wide 1-D convolution over sentence positions.
// Feature maps are (features x positions) matrices; a width-w
// convolution over s positions yields s+w-1 output positions, so every
// input position participates in exactly w windows.
type Convolution struct {
	InputSize  int
	OutputSize int
	Width      int
	Channels   int

	weight *Tensor // [output, channels, input, width]
	bias   *Tensor // [output]
}

func NewConvolution(inputSize, outputSize, width, channels int) *Convolution {
	return &Convolution{
		InputSize:  inputSize,
		OutputSize: outputSize,
		Width:      width,
		Channels:   channels,
	}
}

// LoadWeights pulls "weight" and "bias" from the block-scoped
// checkpoint, falling back to Xavier-normal weights and zero biases
// when absent.
func (c *Convolution) LoadWeights(scope *Checkpoint, rng *rand.Rand) error {
	shape := []int{c.OutputSize, c.Channels, c.InputSize, c.Width}
	w, ok := scope.Tensor("weight")
	if !ok {
		w = XavierTensor("weight", shape, rng)
	} else if !shapeEqual(w.Shape, shape) {
		return fmt.Errorf("conv weight: checkpoint shape %v, model wants %v", w.Shape, shape)
	}
	b, ok := scope.Tensor("bias")
	if !ok {
		b = ZerosTensor("bias", []int{c.OutputSize})
	} else if !shapeEqual(b.Shape, []int{c.OutputSize}) {
		return fmt.Errorf("conv bias: checkpoint shape %v, model wants [%d]", b.Shape, c.OutputSize)
	}
	c.weight, c.bias = w, b
	return nil
}

// Forward convolves the stacked input channels and applies tanh.
// Every channel must be (InputSize x s); the result is
// (OutputSize x s+Width-1).
func (c *Convolution) Forward(channels []*mat.Dense) *mat.Dense {
	if len(channels) != c.Channels {
		panic(fmt.Sprintf("convolution: got %d channels, want %d", len(channels), c.Channels))
	}
	_, s := channels[0].Dims()
	outWidth := s + c.Width - 1
	out := mat.NewDense(c.OutputSize, outWidth, nil)

	for o := 0; o < c.OutputSize; o++ {
		for p := 0; p < outWidth; p++ {
			sum := c.bias.Data[o]
			for ch := 0; ch < c.Channels; ch++ {
				x := channels[ch]
				for k := 0; k < c.Width; k++ {
					// position in the unpadded input; zero padding
					// of width-1 on each side is implicit
					pos := p + k - (c.Width - 1)
					if pos < 0 || pos >= s {
						continue
					}
					for f := 0; f < c.InputSize; f++ {
						sum += c.weight.At(o, ch, f, k) * x.At(f, pos)
					}
				}
			}
			out.Set(o, p, math.Tanh(sum))
		}
	}
	return out
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
