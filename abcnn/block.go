package abcnn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Attention stages, used to tag captured matrices for plotting.
const (
	StageInput  = "input"  // attention over the block's input maps
	StageOutput = "output" // attention over the convolution outputs
)

// AttentionCapture is one attention matrix recorded during a forward
// pass. Layer and Block are filled in by the enclosing structures.
type AttentionCapture struct {
	Layer  int
	Block  int
	Kind   string // block type that produced it
	Stage  string
	Matrix *mat.Dense
}

// Tag names the capture for output files, e.g. layer0_block1_abcnn1_input.
func (c AttentionCapture) Tag() string {
	return fmt.Sprintf("layer%d_block%d_%s_%s", c.Layer, c.Block, c.Kind, c.Stage)
}

// Block is one convolution block: optionally input attention, a wide
// convolution, then (optionally attention-weighted) width pooling.
// Forward returns the pooled maps for both sentences plus any
// attention matrices computed along the way.
type Block interface {
	Kind() string
	OutputSize() int
	LoadWeights(scope *Checkpoint, rng *rand.Rand) error
	Forward(x1, x2 *mat.Dense) (o1, o2 *mat.Dense, captures []AttentionCapture)
}

// NewBlock builds the block described by cfg. The dropout rate is
// carried in the config for training parity but inference applies no
// dropout.
func NewBlock(cfg BlockConfig, maxLength int) (Block, error) {
	switch cfg.Type {
	case BlockBCNN:
		return &BCNNBlock{
			conv:  NewConvolution(cfg.InputSize, cfg.OutputSize, cfg.Width, 1),
			width: cfg.Width,
		}, nil
	case BlockABCNN1:
		return &ABCNN1Block{
			attn:  NewABCNN1Attention(cfg.InputSize, maxLength, cfg.ShareWeights, cfg.MatchScore),
			conv:  NewConvolution(cfg.InputSize, cfg.OutputSize, cfg.Width, 2),
			width: cfg.Width,
		}, nil
	case BlockABCNN2:
		return &ABCNN2Block{
			conv:  NewConvolution(cfg.InputSize, cfg.OutputSize, cfg.Width, 1),
			attn:  NewABCNN2Attention(maxLength, cfg.Width, cfg.MatchScore),
			width: cfg.Width,
		}, nil
	case BlockABCNN3:
		return &ABCNN3Block{
			inAttn:  NewABCNN1Attention(cfg.InputSize, maxLength, cfg.ShareWeights, cfg.MatchScore),
			conv:    NewConvolution(cfg.InputSize, cfg.OutputSize, cfg.Width, 2),
			outAttn: NewABCNN2Attention(maxLength, cfg.Width, cfg.MatchScore),
			width:   cfg.Width,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported block type %q", cfg.Type)
	}
}

// BCNNBlock is the attention-free baseline: convolution plus width
// pooling.
type BCNNBlock struct {
	conv  *Convolution
	width int
}

func (b *BCNNBlock) Kind() string    { return BlockBCNN }
func (b *BCNNBlock) OutputSize() int { return b.conv.OutputSize }

func (b *BCNNBlock) LoadWeights(scope *Checkpoint, rng *rand.Rand) error {
	return b.conv.LoadWeights(scope.Scoped("conv."), rng)
}

func (b *BCNNBlock) Forward(x1, x2 *mat.Dense) (*mat.Dense, *mat.Dense, []AttentionCapture) {
	o1 := WidthAP(b.conv.Forward([]*mat.Dense{x1}), b.width)
	o2 := WidthAP(b.conv.Forward([]*mat.Dense{x2}), b.width)
	return o1, o2, nil
}

// ABCNN1Block adds input attention: the attention feature maps join
// the inputs as a second convolution channel.
type ABCNN1Block struct {
	attn  *ABCNN1Attention
	conv  *Convolution
	width int
}

func (b *ABCNN1Block) Kind() string    { return BlockABCNN1 }
func (b *ABCNN1Block) OutputSize() int { return b.conv.OutputSize }

func (b *ABCNN1Block) LoadWeights(scope *Checkpoint, rng *rand.Rand) error {
	if err := b.attn.LoadWeights(scope, rng); err != nil {
		return err
	}
	return b.conv.LoadWeights(scope.Scoped("conv."), rng)
}

func (b *ABCNN1Block) Forward(x1, x2 *mat.Dense) (*mat.Dense, *mat.Dense, []AttentionCapture) {
	attn1, attn2, A := b.attn.Forward(x1, x2)
	o1 := WidthAP(b.conv.Forward([]*mat.Dense{x1, attn1}), b.width)
	o2 := WidthAP(b.conv.Forward([]*mat.Dense{x2, attn2}), b.width)
	captures := []AttentionCapture{{Kind: b.Kind(), Stage: StageInput, Matrix: A}}
	return o1, o2, captures
}

// ABCNN2Block adds output attention: pooling windows are reweighted
// by attention over the convolution outputs.
type ABCNN2Block struct {
	conv  *Convolution
	attn  *ABCNN2Attention
	width int
}

func (b *ABCNN2Block) Kind() string    { return BlockABCNN2 }
func (b *ABCNN2Block) OutputSize() int { return b.conv.OutputSize }

func (b *ABCNN2Block) LoadWeights(scope *Checkpoint, rng *rand.Rand) error {
	return b.conv.LoadWeights(scope.Scoped("conv."), rng)
}

func (b *ABCNN2Block) Forward(x1, x2 *mat.Dense) (*mat.Dense, *mat.Dense, []AttentionCapture) {
	c1 := b.conv.Forward([]*mat.Dense{x1})
	c2 := b.conv.Forward([]*mat.Dense{x2})
	weights1, weights2, A := b.attn.Forward(c1, c2)
	o1 := WeightedWidthAP(c1, weights1, b.width)
	o2 := WeightedWidthAP(c2, weights2, b.width)
	captures := []AttentionCapture{{Kind: b.Kind(), Stage: StageOutput, Matrix: A}}
	return o1, o2, captures
}

// ABCNN3Block combines input and output attention.
type ABCNN3Block struct {
	inAttn  *ABCNN1Attention
	conv    *Convolution
	outAttn *ABCNN2Attention
	width   int
}

func (b *ABCNN3Block) Kind() string    { return BlockABCNN3 }
func (b *ABCNN3Block) OutputSize() int { return b.conv.OutputSize }

func (b *ABCNN3Block) LoadWeights(scope *Checkpoint, rng *rand.Rand) error {
	if err := b.inAttn.LoadWeights(scope, rng); err != nil {
		return err
	}
	return b.conv.LoadWeights(scope.Scoped("conv."), rng)
}

func (b *ABCNN3Block) Forward(x1, x2 *mat.Dense) (*mat.Dense, *mat.Dense, []AttentionCapture) {
	attn1, attn2, inA := b.inAttn.Forward(x1, x2)
	c1 := b.conv.Forward([]*mat.Dense{x1, attn1})
	c2 := b.conv.Forward([]*mat.Dense{x2, attn2})
	weights1, weights2, outA := b.outAttn.Forward(c1, c2)
	o1 := WeightedWidthAP(c1, weights1, b.width)
	o2 := WeightedWidthAP(c2, weights2, b.width)
	captures := []AttentionCapture{
		{Kind: b.Kind(), Stage: StageInput, Matrix: inA},
		{Kind: b.Kind(), Stage: StageOutput, Matrix: outA},
	}
	return o1, o2, captures
}
