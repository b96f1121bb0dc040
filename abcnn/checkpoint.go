package abcnn

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// CheckpointVersion is the only manifest format understood.
const CheckpointVersion = "bcnn.v1"

const (
	manifestFile = "manifest.json"
	weightsFile  = "weights.bin"
)

// Tensor is a named weight array with a row-major shape.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float64
}

// NumElements returns the product of the shape dimensions.
func (t *Tensor) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Matrix views a 2-D tensor as a gonum matrix backed by the same data.
func (t *Tensor) Matrix() (*mat.Dense, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("tensor %s: want 2 dimensions, have %v", t.Name, t.Shape)
	}
	return mat.NewDense(t.Shape[0], t.Shape[1], t.Data), nil
}

// At indexes the tensor with one coordinate per dimension.
func (t *Tensor) At(idx ...int) float64 {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor %s: %d indices for %d dimensions", t.Name, len(idx), len(t.Shape)))
	}
	flat := 0
	for i, x := range idx {
		flat = flat*t.Shape[i] + x
	}
	return t.Data[flat]
}

// Checkpoint holds a trained model's tensors, addressable by the
// dotted names the model assembly uses (e.g. layers.0.blocks.1.conv.weight),
// plus the training run's metric history and epoch counter.
type Checkpoint struct {
	Version string
	// Epoch is the number of completed training epochs, 0 when the
	// writer did not record it.
	Epoch int
	// History maps a metric name (loss, accuracy, ...) to its
	// per-epoch values.
	History map[string][]float64

	tensors map[string]*Tensor
	names   []string
}

func NewCheckpoint() *Checkpoint {
	return &Checkpoint{Version: CheckpointVersion, tensors: make(map[string]*Tensor)}
}

// Add inserts or replaces a tensor.
func (c *Checkpoint) Add(t *Tensor) {
	if _, exists := c.tensors[t.Name]; !exists {
		c.names = append(c.names, t.Name)
	}
	c.tensors[t.Name] = t
}

// Tensor looks up a tensor by exact name.
func (c *Checkpoint) Tensor(name string) (*Tensor, bool) {
	t, ok := c.tensors[name]
	return t, ok
}

// Names returns tensor names in insertion order.
func (c *Checkpoint) Names() []string {
	return append([]string(nil), c.names...)
}

// ParamCount is the total number of stored weights.
func (c *Checkpoint) ParamCount() int {
	n := 0
	for _, t := range c.tensors {
		n += t.NumElements()
	}
	return n
}

// Scoped extracts the tensors under prefix into a new checkpoint with
// the prefix stripped, so a block can load its own weights without
// knowing where it sits in the model.
func (c *Checkpoint) Scoped(prefix string) *Checkpoint {
	scoped := NewCheckpoint()
	for _, name := range c.names {
		if strings.HasPrefix(name, prefix) {
			t := c.tensors[name]
			scoped.Add(&Tensor{
				Name:  strings.TrimPrefix(name, prefix),
				Shape: t.Shape,
				Data:  t.Data,
			})
		}
	}
	return scoped
}

type manifest struct {
	Version string               `json:"version"`
	Epoch   int                  `json:"epoch,omitempty"`
	History map[string][]float64 `json:"history,omitempty"`
	Tensors []manifestTensor     `json:"tensors"`
}

type manifestTensor struct {
	Name   string `json:"name"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"`
}

// LoadCheckpoint reads a checkpoint directory: manifest.json describes
// the tensors, weights.bin holds their float32 values back to back.
func LoadCheckpoint(dir string) (*Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read checkpoint manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse checkpoint manifest: %w", err)
	}
	if m.Version != CheckpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %q, want %q", m.Version, CheckpointVersion)
	}

	weights, err := os.ReadFile(filepath.Join(dir, weightsFile))
	if err != nil {
		return nil, fmt.Errorf("read checkpoint weights: %w", err)
	}

	ckpt := NewCheckpoint()
	ckpt.Epoch = m.Epoch
	ckpt.History = m.History
	for _, mt := range m.Tensors {
		t := &Tensor{Name: mt.Name, Shape: mt.Shape}
		n := t.NumElements()
		end := mt.Offset + int64(4*n)
		if mt.Offset < 0 || end > int64(len(weights)) {
			return nil, fmt.Errorf("tensor %s: range [%d, %d) outside weights file of %d bytes",
				mt.Name, mt.Offset, end, len(weights))
		}
		t.Data = make([]float64, n)
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(weights[mt.Offset+int64(4*i):])
			t.Data[i] = float64(math.Float32frombits(bits))
		}
		ckpt.Add(t)
	}
	return ckpt, nil
}

// Save writes the checkpoint directory, creating it if needed.
func (c *Checkpoint) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	m := manifest{Version: c.Version, Epoch: c.Epoch, History: c.History}
	var weights []byte
	for _, name := range c.names {
		t := c.tensors[name]
		m.Tensors = append(m.Tensors, manifestTensor{
			Name:   t.Name,
			Shape:  t.Shape,
			Offset: int64(len(weights)),
		})
		for _, v := range t.Data {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
			weights = append(weights, buf[:]...)
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, weightsFile), weights, 0o644); err != nil {
		return fmt.Errorf("write checkpoint weights: %w", err)
	}
	return nil
}

// Summary lists tensors sorted by name with shapes, for `inspect`.
func (c *Checkpoint) Summary() []string {
	names := c.Names()
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		t := c.tensors[name]
		dims := make([]string, len(t.Shape))
		for i, d := range t.Shape {
			dims[i] = fmt.Sprintf("%d", d)
		}
		lines = append(lines, fmt.Sprintf("%s  [%s]  %d params", name, strings.Join(dims, "x"), t.NumElements()))
	}
	return lines
}

// XavierTensor draws a tensor from a Xavier-normal distribution, the
// fallback when a checkpoint lacks a weight. Fan-in and fan-out are
// taken as the last two shape dimensions.
func XavierTensor(name string, shape []int, rng *rand.Rand) *Tensor {
	t := &Tensor{Name: name, Shape: shape}
	n := t.NumElements()
	fanIn, fanOut := 1, 1
	if len(shape) >= 2 {
		fanIn = shape[len(shape)-1]
		fanOut = shape[len(shape)-2]
	}
	std := math.Sqrt(2.0 / float64(fanIn+fanOut))
	t.Data = make([]float64, n)
	for i := range t.Data {
		t.Data[i] = rng.NormFloat64() * std
	}
	return t
}

// ZerosTensor builds an all-zero tensor, the fallback for biases.
func ZerosTensor(name string, shape []int) *Tensor {
	t := &Tensor{Name: name, Shape: shape}
	t.Data = make([]float64, t.NumElements())
	return t
}
