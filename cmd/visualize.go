package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bcnn-vis/bcnn-vis/abcnn"
)

var (
	// Flags mirroring the original launcher invocation
	configPath     string // Path to the model configuration (bcnn_config.json)
	checkpointPath string // Path to the trained checkpoint directory
	examplesPath   string // Path to the examples CSV
	outputDir      string // Directory that receives plots and the summary

	seed       int64  // Seed for OOV embeddings and missing weights
	plotFormat string // Plot file format
	watch      bool   // Re-run whenever an input changes
)

// visualizeCmd runs one visualization pass over the examples file
var visualizeCmd = &cobra.Command{
	Use:   "visualize",
	Short: "Render attention heatmaps for a trained ABCNN checkpoint",
	Run: func(cmd *cobra.Command, args []string) {
		opts := abcnn.RunOptions{
			ConfigPath:     configPath,
			CheckpointPath: checkpointPath,
			ExamplesPath:   examplesPath,
			OutputDir:      outputDir,
			Seed:           seed,
			Format:         plotFormat,
		}

		if watch {
			if err := watchAndVisualize(opts); err != nil {
				logrus.Fatalf("watch mode failed: %v", err)
			}
			return
		}

		summary, err := abcnn.Visualize(opts)
		if err != nil {
			logrus.Fatalf("visualization failed: %v", err)
		}
		if summary.Accuracy != nil {
			logrus.Infof("accuracy over %d labeled examples: %.4f", summary.Examples, *summary.Accuracy)
		}
	},
}

func init() {
	visualizeCmd.Flags().StringVar(&configPath, "config_path", "", "Path to the model configuration file (JSON or YAML)")
	visualizeCmd.Flags().StringVar(&checkpointPath, "checkpoint_path", "", "Path to the trained model checkpoint directory")
	visualizeCmd.Flags().StringVar(&examplesPath, "examples_path", "", "Path to the input examples CSV")
	visualizeCmd.Flags().StringVar(&outputDir, "output_dir", "", "Directory to write plots and summary.json")
	visualizeCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for randomly initialized embeddings and weights")
	visualizeCmd.Flags().StringVar(&plotFormat, "format", "png", "Plot format (png, svg, pdf)")
	visualizeCmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-render when inputs change")

	for _, flag := range []string{"config_path", "checkpoint_path", "examples_path", "output_dir"} {
		if err := visualizeCmd.MarkFlagRequired(flag); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(visualizeCmd)
}
