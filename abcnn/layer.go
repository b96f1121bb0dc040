package abcnn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Layer runs its blocks in parallel over the same input pair and
// stacks their pooled outputs feature-wise, so blocks with different
// window widths contribute side by side.
type Layer struct {
	Blocks []Block
}

// NewLayer builds the blocks of one layer config.
func NewLayer(configs []BlockConfig, maxLength int) (*Layer, error) {
	layer := &Layer{}
	for j, cfg := range configs {
		block, err := NewBlock(cfg, maxLength)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", j, err)
		}
		layer.Blocks = append(layer.Blocks, block)
	}
	return layer, nil
}

// OutputSize is the summed feature size of all blocks.
func (l *Layer) OutputSize() int {
	total := 0
	for _, b := range l.Blocks {
		total += b.OutputSize()
	}
	return total
}

// LoadWeights loads each block from its scoped checkpoint prefix
// (blocks.<j>.).
func (l *Layer) LoadWeights(scope *Checkpoint, rng *rand.Rand) error {
	for j, block := range l.Blocks {
		if err := block.LoadWeights(scope.Scoped(fmt.Sprintf("blocks.%d.", j)), rng); err != nil {
			return fmt.Errorf("block %d: %w", j, err)
		}
	}
	return nil
}

// Forward runs every block and stacks the outputs. Captures are
// tagged with their block index.
func (l *Layer) Forward(x1, x2 *mat.Dense) (*mat.Dense, *mat.Dense, []AttentionCapture) {
	var outs1, outs2 []*mat.Dense
	var captures []AttentionCapture
	for j, block := range l.Blocks {
		o1, o2, caps := block.Forward(x1, x2)
		outs1 = append(outs1, o1)
		outs2 = append(outs2, o2)
		for _, c := range caps {
			c.Block = j
			captures = append(captures, c)
		}
	}
	return stackRows(outs1), stackRows(outs2), captures
}

// stackRows concatenates matrices vertically; all must share a width.
func stackRows(ms []*mat.Dense) *mat.Dense {
	if len(ms) == 1 {
		return ms[0]
	}
	totalRows := 0
	_, cols := ms[0].Dims()
	for _, m := range ms {
		r, _ := m.Dims()
		totalRows += r
	}
	out := mat.NewDense(totalRows, cols, nil)
	offset := 0
	for _, m := range ms {
		r, _ := m.Dims()
		for i := 0; i < r; i++ {
			out.SetRow(offset+i, m.RawRowView(i))
		}
		offset += r
	}
	return out
}
