package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/bcnn-vis/bcnn-vis/abcnn"
)

// watchDebounce coalesces bursts of write events (editors and
// checkpoint writers rarely produce a single write).
const watchDebounce = 500 * time.Millisecond

// watchAndVisualize runs one visualization pass, then re-runs whenever
// the config, checkpoint directory or examples file changes. It
// returns when interrupted.
func watchAndVisualize(opts abcnn.RunOptions) error {
	run := func() {
		if _, err := abcnn.Visualize(opts); err != nil {
			logrus.Errorf("visualization failed: %v", err)
		}
	}
	run()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, path := range []string{opts.ConfigPath, opts.CheckpointPath, opts.ExamplesPath} {
		if err := watcher.Add(path); err != nil {
			return err
		}
	}
	logrus.Infof("watching %s, %s and %s for changes", opts.ConfigPath, opts.CheckpointPath, opts.ExamplesPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return watchLoop(watcher, sigChan, run)
}

// watchLoop drains watcher events, debouncing bursts into a single
// re-run, until a signal arrives or the watcher is closed.
func watchLoop(watcher *fsnotify.Watcher, sigChan <-chan os.Signal, run func()) error {
	var timer *time.Timer
	rerun := make(chan struct{}, 1)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logrus.Debugf("change detected: %s", event)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})

		case <-rerun:
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.Errorf("watch error: %v", err)

		case sig := <-sigChan:
			logrus.Infof("received %s, stopping watch", sig)
			return nil
		}
	}
}
