package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"github.com/bcnn-vis/bcnn-vis/abcnn"
)

func TestWatchLoopDebouncesEventBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "examples.csv")
	require.NoError(t, os.WriteFile(path, []byte("question1,question2\n"), 0o644))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()
	require.NoError(t, watcher.Add(path))

	var runs int64
	sigChan := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(watcher, sigChan, func() { atomic.AddInt64(&runs, 1) })
	}()

	// a burst of writes inside the debounce window collapses to one run
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("question1,question2\nq%d,q%d\n", i, i)), 0o644))
		time.Sleep(50 * time.Millisecond)
	}
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) == 1
	}, 5*time.Second, 20*time.Millisecond)

	// no trailing second run once the burst has been flushed
	time.Sleep(2 * watchDebounce)
	require.EqualValues(t, 1, atomic.LoadInt64(&runs))

	sigChan <- syscall.SIGINT
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not stop on SIGINT")
	}
}

func TestWatchLoopReturnsWhenWatcherClosed(t *testing.T) {
	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- watchLoop(watcher, make(chan os.Signal), func() {})
	}()

	require.NoError(t, watcher.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not stop after watcher close")
	}
}

func TestWatchAndVisualizeRerunsOnChange(t *testing.T) {
	dir := t.TempDir()

	config := `{
  "embeddings": {"format": "word2vec", "size": 4},
  "model": {
    "max_length": 6,
    "layers": [[{"type": "bcnn", "input_size": 4, "output_size": 3, "width": 2}]]
  }
}`
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	// an empty checkpoint is valid: every weight falls back to the
	// seeded initialization
	checkpointDir := filepath.Join(dir, "checkpoint")
	require.NoError(t, abcnn.NewCheckpoint().Save(checkpointDir))

	examplesPath := filepath.Join(dir, "examples.csv")
	require.NoError(t, os.WriteFile(examplesPath,
		[]byte("question1,question2,is_duplicate\nhow to cook pasta,best way to cook pasta,1\n"), 0o644))

	opts := abcnn.RunOptions{
		ConfigPath:     configPath,
		CheckpointPath: checkpointDir,
		ExamplesPath:   examplesPath,
		OutputDir:      filepath.Join(dir, "out"),
		Seed:           42,
	}
	summaryPath := filepath.Join(opts.OutputDir, "summary.json")

	done := make(chan error, 1)
	go func() { done <- watchAndVisualize(opts) }()

	// initial run happens before watching starts
	require.Eventually(t, func() bool {
		_, err := os.Stat(summaryPath)
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	// remove the summary; a change to the examples file must bring it back
	require.NoError(t, os.Remove(summaryPath))
	require.NoError(t, os.WriteFile(examplesPath,
		[]byte("question1,question2,is_duplicate\nwhy is the sky blue,what makes the sky blue,1\n"), 0o644))
	require.Eventually(t, func() bool {
		_, err := os.Stat(summaryPath)
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop on SIGINT")
	}
}
