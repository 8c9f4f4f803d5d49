package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/haivivi/antispoof/pkg/antispoof"
)

// OpenFunc loads a model from a Config.
type OpenFunc func(Config) (antispoof.Model, error)

// OpenModel is the default OpenFunc, backed by Open.
func OpenModel(cfg Config) (antispoof.Model, error) {
	c, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Watcher reloads a model into a SwapModel whenever its file changes.
type Watcher struct {
	Config Config
	Model  *antispoof.SwapModel

	// Open defaults to OpenModel.
	Open OpenFunc

	// Debounce collapses bursts of write events (default 500ms).
	Debounce time.Duration

	Logger *slog.Logger

	// OnReload, if set, is called with the result of every reload attempt.
	OnReload func(error)

	// reloaded is signalled after each reload attempt; used by tests.
	reloaded chan error
}

// Run watches the model's directory until ctx is done. The directory is
// watched rather than the file so that atomic renames are seen.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Config.Path == "" {
		return fmt.Errorf("onnx: watch requires a model path")
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("onnx: new file watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.Config.Path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("onnx: watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("watching model", "path", target)

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("model watcher error", "error", err)

		case <-timer.C:
			err := w.reload(logger)
			if w.OnReload != nil {
				w.OnReload(err)
			}
			if w.reloaded != nil {
				w.reloaded <- err
			}
		}
	}
}

func (w *Watcher) reload(logger *slog.Logger) error {
	open := w.Open
	if open == nil {
		open = OpenModel
	}
	start := time.Now()
	m, err := open(w.Config)
	if err != nil {
		logger.Error("model reload failed, keeping current model", "path", w.Config.Path, "error", err)
		return err
	}
	if old := w.Model.Swap(m); old != nil {
		if err := old.Close(); err != nil {
			logger.Warn("close previous model", "error", err)
		}
	}
	logger.Info("model reloaded", "path", w.Config.Path, "elapsed", time.Since(start))
	return nil
}
