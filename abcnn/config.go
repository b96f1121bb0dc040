package abcnn

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Block types.
const (
	BlockBCNN   = "bcnn"
	BlockABCNN1 = "abcnn1"
	BlockABCNN2 = "abcnn2"
	BlockABCNN3 = "abcnn3"
)

// Match score functions for attention.
const (
	MatchEuclidean = "euclidean"
	MatchCosine    = "cosine"
)

// Embedding file formats.
const (
	FormatWord2Vec = "word2vec"
	FormatFastText = "fasttext"
)

//go:embed config_schema.json
var configSchemaRaw string

var configSchema = jsonschema.MustCompileString("config_schema.json", configSchemaRaw)

// Config is the model configuration consumed by visualization runs.
// It mirrors the layout of bcnn_config.json.
type Config struct {
	// DataPaths names the training/evaluation CSV files. Visualization
	// runs take their examples file on the command line instead, so
	// this section is optional and carried through untouched.
	DataPaths  map[string]string `json:"data_paths,omitempty" yaml:"data_paths,omitempty"`
	Embeddings EmbeddingsConfig  `json:"embeddings" yaml:"embeddings"`
	Model      ModelConfig       `json:"model" yaml:"model"`
}

// EmbeddingsConfig locates and describes the pre-trained word vectors.
type EmbeddingsConfig struct {
	Path     string `json:"path" yaml:"path"`
	Format   string `json:"format" yaml:"format"` // word2vec or fasttext
	IsBinary bool   `json:"is_binary" yaml:"is_binary"`
	Size     int    `json:"size" yaml:"size"`
}

// ModelConfig describes the network: padded sequence length and the
// per-layer block configurations. Blocks within a layer run in
// parallel over the same inputs (different window widths), not in
// series.
type ModelConfig struct {
	MaxLength          int             `json:"max_length" yaml:"max_length"`
	UseAllLayerOutputs bool            `json:"use_all_layer_outputs" yaml:"use_all_layer_outputs"`
	Layers             [][]BlockConfig `json:"layers" yaml:"layers"`
}

// BlockConfig describes a single convolution block.
type BlockConfig struct {
	Type         string  `json:"type" yaml:"type"`
	InputSize    int     `json:"input_size" yaml:"input_size"`
	OutputSize   int     `json:"output_size" yaml:"output_size"`
	Width        int     `json:"width" yaml:"width"`
	DropoutRate  float64 `json:"dropout_rate,omitempty" yaml:"dropout_rate,omitempty"`
	MatchScore   string  `json:"match_score,omitempty" yaml:"match_score,omitempty"`
	ShareWeights bool    `json:"share_weights,omitempty" yaml:"share_weights,omitempty"`
}

// LoadConfig reads, schema-validates and decodes a model configuration.
// JSON and YAML files are accepted, selected by extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	isYAML := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		isYAML = true
	}

	// Schema validation runs on the generic decoding so that errors
	// point at the offending document path rather than a Go field.
	var raw any
	if isYAML {
		err = yaml.Unmarshal(data, &raw)
	} else {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := configSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("config %s failed schema validation: %w", path, err)
	}

	var cfg Config
	if isYAML {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate applies the semantic checks the schema cannot express:
// block input sizes must chain from the embedding size through each
// layer, where a layer's output size is the sum of its blocks' output
// sizes.
func (c *Config) Validate() error {
	if c.Embeddings.Format != FormatWord2Vec && c.Embeddings.Format != FormatFastText {
		return fmt.Errorf("unsupported embeddings format %q", c.Embeddings.Format)
	}
	expected := c.Embeddings.Size
	for i, layer := range c.Model.Layers {
		for j, block := range layer {
			if block.InputSize != expected {
				return fmt.Errorf("layer %d block %d: input_size %d, want %d (output of previous layer)",
					i, j, block.InputSize, expected)
			}
			if block.Width >= c.Model.MaxLength {
				return fmt.Errorf("layer %d block %d: width %d must be smaller than max_length %d",
					i, j, block.Width, c.Model.MaxLength)
			}
			switch block.Type {
			case BlockBCNN:
				// no attention settings required
			case BlockABCNN1, BlockABCNN2, BlockABCNN3:
				if block.MatchScore != MatchEuclidean && block.MatchScore != MatchCosine {
					return fmt.Errorf("layer %d block %d: match_score must be %q or %q",
						i, j, MatchEuclidean, MatchCosine)
				}
			default:
				return fmt.Errorf("layer %d block %d: unsupported block type %q", i, j, block.Type)
			}
		}
		expected = 0
		for _, block := range layer {
			expected += block.OutputSize
		}
	}
	return nil
}

// LayerSizes returns the feature sizes seen by the classifier: the
// embedding size followed by each layer's summed block output size.
func (c *Config) LayerSizes() []int {
	sizes := []int{c.Embeddings.Size}
	for _, layer := range c.Model.Layers {
		total := 0
		for _, block := range layer {
			total += block.OutputSize
		}
		sizes = append(sizes, total)
	}
	return sizes
}

// ClassifierInputSize computes the width of the final linear layer's
// input: both sentences' pooled vectors, over all layers or just the
// last one.
func (c *Config) ClassifierInputSize() int {
	sizes := c.LayerSizes()
	if c.Model.UseAllLayerOutputs {
		total := 0
		for _, s := range sizes {
			total += s
		}
		return 2 * total
	}
	return 2 * sizes[len(sizes)-1]
}
