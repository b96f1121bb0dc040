package abcnn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MatchScore compares two feature columns. Euclidean match is
// 1/(1+||x-y||); cosine is the usual normalized dot product, 0 when
// either vector is zero (padding columns).
func MatchScore(kind string, x, y []float64) float64 {
	switch kind {
	case MatchEuclidean:
		return 1.0 / (1.0 + floats.Distance(x, y, 2))
	case MatchCosine:
		nx := floats.Norm(x, 2)
		ny := floats.Norm(y, 2)
		if nx == 0 || ny == 0 {
			return 0
		}
		return floats.Dot(x, y) / (nx * ny)
	default:
		panic(fmt.Sprintf("unknown match score %q", kind))
	}
}

// AttentionMatrix scores every column of f1 against every column of
// f2. With f1 (d x s1) and f2 (d x s2) the result is (s1 x s2).
func AttentionMatrix(kind string, f1, f2 *mat.Dense) *mat.Dense {
	d, s1 := f1.Dims()
	_, s2 := f2.Dims()
	A := mat.NewDense(s1, s2, nil)
	x := make([]float64, d)
	y := make([]float64, d)
	for i := 0; i < s1; i++ {
		mat.Col(x, i, f1)
		for j := 0; j < s2; j++ {
			mat.Col(y, j, f2)
			A.Set(i, j, MatchScore(kind, x, y))
		}
	}
	return A
}

// ABCNN1Attention is input attention: the attention matrix over the
// two input feature maps is projected through learned weights into an
// extra convolution channel for each sentence.
type ABCNN1Attention struct {
	InputSize    int
	MaxLength    int
	ShareWeights bool
	MatchScore   string

	w0 *mat.Dense // (InputSize x MaxLength)
	w1 *mat.Dense
}

func NewABCNN1Attention(inputSize, maxLength int, shareWeights bool, matchScore string) *ABCNN1Attention {
	return &ABCNN1Attention{
		InputSize:    inputSize,
		MaxLength:    maxLength,
		ShareWeights: shareWeights,
		MatchScore:   matchScore,
	}
}

// LoadWeights reads "attn.weight0" and "attn.weight1" from the
// block-scoped checkpoint. With shared weights only weight0 is used.
// Missing projections fall back to Xavier-normal, matching the
// model's initialization.
func (a *ABCNN1Attention) LoadWeights(scope *Checkpoint, rng *rand.Rand) error {
	shape := []int{a.InputSize, a.MaxLength}
	t0, ok := scope.Tensor("attn.weight0")
	if !ok {
		t0 = XavierTensor("attn.weight0", shape, rng)
	} else if !shapeEqual(t0.Shape, shape) {
		return fmt.Errorf("attn.weight0: checkpoint shape %v, model wants %v", t0.Shape, shape)
	}
	w0, err := t0.Matrix()
	if err != nil {
		return err
	}
	a.w0 = w0

	if a.ShareWeights {
		a.w1 = a.w0
		return nil
	}
	t1, ok := scope.Tensor("attn.weight1")
	if !ok {
		t1 = XavierTensor("attn.weight1", shape, rng)
	} else if !shapeEqual(t1.Shape, shape) {
		return fmt.Errorf("attn.weight1: checkpoint shape %v, model wants %v", t1.Shape, shape)
	}
	w1, err := t1.Matrix()
	if err != nil {
		return err
	}
	a.w1 = w1
	return nil
}

// Forward computes the attention matrix A over the input maps and the
// derived attention feature channels: W0·Aᵀ for sentence one and W1·A
// for sentence two.
func (a *ABCNN1Attention) Forward(x1, x2 *mat.Dense) (attn1, attn2, A *mat.Dense) {
	A = AttentionMatrix(a.MatchScore, x1, x2)

	var f1, f2 mat.Dense
	f1.Mul(a.w0, A.T())
	f2.Mul(a.w1, A)
	return &f1, &f2, A
}

// ABCNN2Attention is output attention: the attention matrix over the
// convolution outputs yields per-position weights (row and column
// sums) that reweight width pooling. It has no learned parameters.
type ABCNN2Attention struct {
	MaxLength  int
	Width      int
	MatchScore string
}

func NewABCNN2Attention(maxLength, width int, matchScore string) *ABCNN2Attention {
	return &ABCNN2Attention{MaxLength: maxLength, Width: width, MatchScore: matchScore}
}

// Forward scores the conv outputs against each other and returns the
// pooling weights for each sentence along with the attention matrix.
func (a *ABCNN2Attention) Forward(c1, c2 *mat.Dense) (weights1, weights2 []float64, A *mat.Dense) {
	A = AttentionMatrix(a.MatchScore, c1, c2)
	rows, cols := A.Dims()

	weights1 = make([]float64, rows)
	for i := 0; i < rows; i++ {
		weights1[i] = floats.Sum(A.RawRowView(i))
	}
	weights2 = make([]float64, cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			weights2[j] += A.At(i, j)
		}
	}
	return weights1, weights2, A
}

// Cosine is the similarity between two pooled sentence vectors.
func Cosine(x, y []float64) float64 {
	nx := floats.Norm(x, 2)
	ny := floats.Norm(y, 2)
	if nx == 0 || ny == 0 {
		return 0
	}
	v := floats.Dot(x, y) / (nx * ny)
	// clamp away float drift so callers can rely on [-1, 1]
	return math.Max(-1, math.Min(1, v))
}
