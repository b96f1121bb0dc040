package abcnn

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Plot output formats, selected by the --format flag.
var PlotFormats = []string{"png", "svg", "pdf"}

// RunOptions are the inputs of one visualization run: the four paths
// from the command line plus rendering knobs.
type RunOptions struct {
	ConfigPath     string
	CheckpointPath string
	ExamplesPath   string
	OutputDir      string

	// Seed drives the RNG used for out-of-vocabulary embeddings and
	// any weights the checkpoint is missing.
	Seed   int64
	Format string // one of PlotFormats; empty means png
}

// ExampleResult is the per-example entry of the run summary.
type ExampleResult struct {
	Index         int       `json:"index"`
	Question1     string    `json:"question1"`
	Question2     string    `json:"question2"`
	Label         *int      `json:"is_duplicate,omitempty"`
	ProbDuplicate float64   `json:"prob_duplicate"`
	Predicted     int       `json:"predicted"`
	LayerSims     []float64 `json:"layer_similarities"`
	Plots         []string  `json:"plots"`
}

// Summary is written to <output_dir>/summary.json after a run.
type Summary struct {
	ConfigPath     string          `json:"config_path"`
	CheckpointPath string          `json:"checkpoint_path"`
	ExamplesPath   string          `json:"examples_path"`
	Examples       int             `json:"examples"`
	Epoch          int             `json:"epoch,omitempty"`
	Accuracy       *float64        `json:"accuracy,omitempty"`
	HistoryPlots   []string        `json:"history_plots,omitempty"`
	Results        []ExampleResult `json:"results"`
}

// Visualize is the whole run: load config, checkpoint and examples,
// run every example through the model, render its attention matrices
// into the output directory and write the summary file.
func Visualize(opts RunOptions) (*Summary, error) {
	format := opts.Format
	if format == "" {
		format = "png"
	}
	if !validFormat(format) {
		return nil, fmt.Errorf("unsupported plot format %q, want one of %v", opts.Format, PlotFormats)
	}

	started := time.Now()

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	ckpt, err := LoadCheckpoint(opts.CheckpointPath)
	if err != nil {
		return nil, err
	}
	logrus.Infof("loaded checkpoint with %d tensors (%d params)", len(ckpt.Names()), ckpt.ParamCount())

	ds, err := LoadDataset(opts.ExamplesPath, cfg.Model.MaxLength)
	if err != nil {
		return nil, err
	}
	logrus.Infof("loaded %d examples, vocabulary of %d words", len(ds.Examples), ds.Vocab.Len())

	rng := rand.New(rand.NewSource(opts.Seed))
	vectors, err := LoadWordVectors(cfg.Embeddings)
	if err != nil {
		return nil, err
	}
	embeddings := BuildEmbeddingMatrix(ds.Vocab, vectors, cfg.Embeddings.Size, rng)

	model, err := NewModel(cfg, embeddings, ckpt, rng)
	if err != nil {
		return nil, fmt.Errorf("assemble model: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	summary := &Summary{
		ConfigPath:     opts.ConfigPath,
		CheckpointPath: opts.CheckpointPath,
		ExamplesPath:   opts.ExamplesPath,
		Examples:       len(ds.Examples),
		Epoch:          ckpt.Epoch,
	}
	correct, labeled := 0, 0

	for n, ex := range ds.Examples {
		pred := model.Forward(ex)

		exampleDir := filepath.Join(opts.OutputDir, fmt.Sprintf("example_%03d", n))
		if err := os.MkdirAll(exampleDir, 0o755); err != nil {
			return nil, fmt.Errorf("create example dir: %w", err)
		}

		result := ExampleResult{
			Index:         n,
			Question1:     ex.Question1,
			Question2:     ex.Question2,
			Label:         ex.Label,
			ProbDuplicate: pred.Probabilities[1],
			LayerSims:     pred.LayerSims,
		}
		if pred.Probabilities[1] >= 0.5 {
			result.Predicted = 1
		}
		if ex.Label != nil {
			labeled++
			if result.Predicted == *ex.Label {
				correct++
			}
		}

		for _, capture := range pred.Captures {
			rowLabels, colLabels := captureLabels(capture, ex)
			path := filepath.Join(exampleDir, capture.Tag()+"."+format)
			if err := SaveHeatmap(capture.Matrix, capture.Tag(), rowLabels, colLabels, path); err != nil {
				return nil, err
			}
			result.Plots = append(result.Plots, path)
		}

		logrus.Debugf("example %d: P(duplicate)=%.4f, %d attention plots", n, result.ProbDuplicate, len(result.Plots))
		summary.Results = append(summary.Results, result)
	}

	if labeled > 0 {
		acc := float64(correct) / float64(labeled)
		summary.Accuracy = &acc
	}

	// checkpoints written during training carry per-epoch metric
	// histories; render one value-vs-time plot per metric
	metrics := make([]string, 0, len(ckpt.History))
	for metric := range ckpt.History {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)
	for _, metric := range metrics {
		values := ckpt.History[metric]
		if len(values) == 0 {
			continue
		}
		path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_epoch_%d.%s", metric, len(values), format))
		if err := SaveMetricPlot(metric, values, path); err != nil {
			return nil, err
		}
		summary.HistoryPlots = append(summary.HistoryPlots, path)
	}

	summaryPath := filepath.Join(opts.OutputDir, "summary.json")
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(summaryPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	logrus.Infof("visualized %d examples into %s in %s", len(ds.Examples), opts.OutputDir, time.Since(started).Round(time.Millisecond))
	return summary, nil
}

// captureLabels picks axis labels for an attention matrix. Input
// attention aligns with the padded words; output attention runs over
// the widened convolution positions, which get index labels.
func captureLabels(c AttentionCapture, ex Example) (rowLabels, colLabels []string) {
	rows, cols := c.Matrix.Dims()
	if c.Stage == StageInput && rows == len(ex.Words1) && cols == len(ex.Words2) {
		return ex.Words1, ex.Words2
	}
	return positionLabels(rows), positionLabels(cols)
}

func validFormat(format string) bool {
	for _, f := range PlotFormats {
		if f == format {
			return true
		}
	}
	return false
}
