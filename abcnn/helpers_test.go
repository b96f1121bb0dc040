package abcnn

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// testConfig is a small two-layer network: one abcnn1 block feeding
// one bcnn block, classifier over all layer outputs.
func testConfig() *Config {
	return &Config{
		Embeddings: EmbeddingsConfig{
			Format: FormatWord2Vec,
			Size:   4,
		},
		Model: ModelConfig{
			MaxLength:          6,
			UseAllLayerOutputs: true,
			Layers: [][]BlockConfig{
				{{Type: BlockABCNN1, InputSize: 4, OutputSize: 3, Width: 2, MatchScore: MatchEuclidean, ShareWeights: true}},
				{{Type: BlockBCNN, InputSize: 3, OutputSize: 2, Width: 2}},
			},
		},
	}
}

// testCheckpoint builds a checkpoint with every tensor the testConfig
// model wants, filled with small deterministic values.
func testCheckpoint(t *testing.T, cfg *Config) *Checkpoint {
	t.Helper()
	ckpt := NewCheckpoint()
	fill := func(name string, shape []int) {
		tensor := &Tensor{Name: name, Shape: shape}
		n := tensor.NumElements()
		tensor.Data = make([]float64, n)
		for i := range tensor.Data {
			tensor.Data[i] = 0.01 * float64(i%7+1)
		}
		ckpt.Add(tensor)
	}

	for i, layer := range cfg.Model.Layers {
		for j, block := range layer {
			prefix := fmt.Sprintf("layers.%d.blocks.%d.", i, j)
			channels := 1
			switch block.Type {
			case BlockABCNN1, BlockABCNN3:
				channels = 2
				fill(prefix+"attn.weight0", []int{block.InputSize, cfg.Model.MaxLength})
				if !block.ShareWeights {
					fill(prefix+"attn.weight1", []int{block.InputSize, cfg.Model.MaxLength})
				}
			}
			fill(prefix+"conv.weight", []int{block.OutputSize, channels, block.InputSize, block.Width})
			fill(prefix+"conv.bias", []int{block.OutputSize})
		}
	}
	fill("fc.weight", []int{2, cfg.ClassifierInputSize()})
	fill("fc.bias", []int{2})
	return ckpt
}

// writeConfigFile marshals cfg as JSON into dir.
func writeConfigFile(t *testing.T, dir string, cfg *Config) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "bcnn_config.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// writeExamplesCSV writes a question-pair CSV with labels.
func writeExamplesCSV(t *testing.T, dir string) string {
	t.Helper()
	csv := "question1,question2,is_duplicate\n" +
		"\"How can I learn to cook pasta?\",\"What is the best way to cook pasta?\",1\n" +
		"\"Why is the sky blue during daytime?\",\"How do airplanes stay in the air?\",0\n"
	path := filepath.Join(dir, "examples.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write examples: %v", err)
	}
	return path
}

// testModel assembles a model over a freshly indexed dataset.
func testModel(t *testing.T, cfg *Config, ds *Dataset) *Model {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	embeddings := BuildEmbeddingMatrix(ds.Vocab, nil, cfg.Embeddings.Size, rng)
	model, err := NewModel(cfg, embeddings, testCheckpoint(t, cfg), rng)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return model
}
