package abcnn

import (
	"gonum.org/v1/gonum/mat"
)

// WidthAP is window average pooling: each output column averages w
// consecutive input columns, shrinking s+w-1 conv outputs back to s
// positions.
func WidthAP(m *mat.Dense, width int) *mat.Dense {
	rows, cols := m.Dims()
	outCols := cols - width + 1
	out := mat.NewDense(rows, outCols, nil)
	inv := 1.0 / float64(width)
	for r := 0; r < rows; r++ {
		for c := 0; c < outCols; c++ {
			sum := 0.0
			for k := 0; k < width; k++ {
				sum += m.At(r, c+k)
			}
			out.Set(r, c, sum*inv)
		}
	}
	return out
}

// WeightedWidthAP is the attention-reweighted variant used by output
// attention: each output column is the attention-weighted sum of w
// consecutive input columns.
func WeightedWidthAP(m *mat.Dense, weights []float64, width int) *mat.Dense {
	rows, cols := m.Dims()
	outCols := cols - width + 1
	out := mat.NewDense(rows, outCols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < outCols; c++ {
			sum := 0.0
			for k := 0; k < width; k++ {
				sum += weights[c+k] * m.At(r, c+k)
			}
			out.Set(r, c, sum)
		}
	}
	return out
}

// AllAP pools over every position, producing one value per feature.
// The resulting vectors feed the classifier and the per-layer
// similarity scores.
func AllAP(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, rows)
	inv := 1.0 / float64(cols)
	for r := 0; r < rows; r++ {
		sum := 0.0
		for c := 0; c < cols; c++ {
			sum += m.At(r, c)
		}
		out[r] = sum * inv
	}
	return out
}
