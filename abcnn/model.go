package abcnn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model is the assembled ABCNN network: an embedding matrix, the
// convolution layers and a two-class linear classifier over the
// pooled sentence vectors.
type Model struct {
	Config     *Config
	Embeddings *mat.Dense
	Layers     []*Layer

	fcWeight *mat.Dense // (2 x classifier input)
	fcBias   []float64
}

// Prediction is the outcome of one forward pass.
type Prediction struct {
	// Probabilities[0] is P(not duplicate), Probabilities[1] P(duplicate).
	Probabilities []float64
	// LayerSims[l] is the cosine similarity of the two sentences'
	// pooled vectors at depth l (0 = raw embeddings).
	LayerSims []float64
	Captures  []AttentionCapture
}

// NewModel builds the network from config and fills every weight from
// the checkpoint. Tensors the checkpoint lacks are initialized the way
// training would have started them (Xavier-normal weights, zero
// biases) from rng, so a partial checkpoint still produces a runnable
// model.
func NewModel(cfg *Config, embeddings *mat.Dense, ckpt *Checkpoint, rng *rand.Rand) (*Model, error) {
	m := &Model{Config: cfg, Embeddings: embeddings}

	for i, layerCfg := range cfg.Model.Layers {
		layer, err := NewLayer(layerCfg, cfg.Model.MaxLength)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err := layer.LoadWeights(ckpt.Scoped(fmt.Sprintf("layers.%d.", i)), rng); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		m.Layers = append(m.Layers, layer)
	}

	finalSize := cfg.ClassifierInputSize()
	wShape := []int{2, finalSize}
	wT, ok := ckpt.Tensor("fc.weight")
	if !ok {
		logrus.Warn("checkpoint has no fc.weight, predictions will come from untrained classifier weights")
		wT = XavierTensor("fc.weight", wShape, rng)
	} else if !shapeEqual(wT.Shape, wShape) {
		return nil, fmt.Errorf("fc.weight: checkpoint shape %v, model wants %v", wT.Shape, wShape)
	}
	w, err := wT.Matrix()
	if err != nil {
		return nil, err
	}
	m.fcWeight = w

	bT, ok := ckpt.Tensor("fc.bias")
	if !ok {
		bT = ZerosTensor("fc.bias", []int{2})
	} else if !shapeEqual(bT.Shape, []int{2}) {
		return nil, fmt.Errorf("fc.bias: checkpoint shape %v, model wants [2]", bT.Shape)
	}
	m.fcBias = bT.Data

	return m, nil
}

// embed turns padded word indices into a (size x max_length) feature
// map, one embedding per column.
func (m *Model) embed(indices []int) *mat.Dense {
	size := m.Config.Embeddings.Size
	x := mat.NewDense(size, len(indices), nil)
	for p, idx := range indices {
		for f := 0; f < size; f++ {
			x.Set(f, p, m.Embeddings.At(idx, f))
		}
	}
	return x
}

// Forward runs one example through the network. Inference applies no
// dropout, so the pass is deterministic.
func (m *Model) Forward(ex Example) Prediction {
	x1 := m.embed(ex.Indices1)
	x2 := m.embed(ex.Indices2)

	pooled1 := [][]float64{AllAP(x1)}
	pooled2 := [][]float64{AllAP(x2)}
	var captures []AttentionCapture

	cur1, cur2 := x1, x2
	for i, layer := range m.Layers {
		var caps []AttentionCapture
		cur1, cur2, caps = layer.Forward(cur1, cur2)
		for _, c := range caps {
			c.Layer = i
			captures = append(captures, c)
		}
		pooled1 = append(pooled1, AllAP(cur1))
		pooled2 = append(pooled2, AllAP(cur2))
	}

	features := m.classifierInput(pooled1, pooled2)
	logits := []float64{
		m.fcBias[0] + floats.Dot(m.fcWeight.RawRowView(0), features),
		m.fcBias[1] + floats.Dot(m.fcWeight.RawRowView(1), features),
	}

	sims := make([]float64, len(pooled1))
	for l := range pooled1 {
		sims[l] = Cosine(pooled1[l], pooled2[l])
	}

	return Prediction{
		Probabilities: softmax(logits),
		LayerSims:     sims,
		Captures:      captures,
	}
}

// classifierInput concatenates the pooled vectors of both sentences,
// over every depth or just the deepest one per the config.
func (m *Model) classifierInput(pooled1, pooled2 [][]float64) []float64 {
	var features []float64
	if m.Config.Model.UseAllLayerOutputs {
		for _, v := range pooled1 {
			features = append(features, v...)
		}
		for _, v := range pooled2 {
			features = append(features, v...)
		}
		return features
	}
	features = append(features, pooled1[len(pooled1)-1]...)
	features = append(features, pooled2[len(pooled2)-1]...)
	return features
}

func softmax(logits []float64) []float64 {
	max := floats.Max(logits)
	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
