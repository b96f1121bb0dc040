package cmd

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bcnn-vis/bcnn-vis/abcnn"
)

var inspectCheckpointPath string // Path to the checkpoint directory to describe

// inspectCmd prints the contents of a checkpoint manifest
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List the tensors stored in a checkpoint",
	Run: func(cmd *cobra.Command, args []string) {
		ckpt, err := abcnn.LoadCheckpoint(inspectCheckpointPath)
		if err != nil {
			logrus.Fatalf("failed to load checkpoint: %v", err)
		}
		for _, line := range ckpt.Summary() {
			fmt.Println(line)
		}
		fmt.Printf("total: %d tensors, %d params\n", len(ckpt.Names()), ckpt.ParamCount())

		if ckpt.Epoch > 0 {
			fmt.Printf("trained epochs: %d\n", ckpt.Epoch)
		}
		metrics := make([]string, 0, len(ckpt.History))
		for metric := range ckpt.History {
			metrics = append(metrics, metric)
		}
		sort.Strings(metrics)
		for _, metric := range metrics {
			fmt.Printf("history: %s (%d values)\n", metric, len(ckpt.History[metric]))
		}
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectCheckpointPath, "checkpoint_path", "", "Path to the trained model checkpoint directory")
	if err := inspectCmd.MarkFlagRequired("checkpoint_path"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(inspectCmd)
}
