package cmd

import (
	"testing"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{"visualize": false, "inspect": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVisualizeFlagsMatchLauncherContract(t *testing.T) {
	// the four path flags of the original launcher invocation
	for _, name := range []string{"config_path", "checkpoint_path", "examples_path", "output_dir"} {
		if visualizeCmd.Flags().Lookup(name) == nil {
			t.Errorf("visualize is missing the --%s flag", name)
		}
	}
}

func TestInspectRequiresCheckpointPath(t *testing.T) {
	flag := inspectCmd.Flags().Lookup("checkpoint_path")
	if flag == nil {
		t.Fatal("inspect is missing the --checkpoint_path flag")
	}
	if flag.Annotations == nil {
		t.Error("--checkpoint_path should be marked required")
	}
}
