package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"plainview/internal/logging"
)

// RulesWatcher hot-swaps the ruleset when its files change on disk.
// Changes are debounced so an editor save burst triggers one reload.
// A failed reload keeps the previous ruleset active.
type RulesWatcher struct {
	path     string
	reload   func() error
	debounce time.Duration
	log      *slog.Logger
}

// NewRulesWatcher watches path, a ruleset file or directory. The
// embedded default ruleset has no files to watch, so an empty path is
// an error.
func NewRulesWatcher(path string, reload func() error) (*RulesWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("rules watch requires an external ruleset path")
	}
	return &RulesWatcher{
		path:     path,
		reload:   reload,
		debounce: 250 * time.Millisecond,
		log:      logging.New("rules.watch"),
	}, nil
}

// Run watches until the context is canceled.
func (w *RulesWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	// Watch the directory rather than the file: editors that replace
	// files atomically (write temp, rename over) would otherwise detach
	// the watch.
	dir := w.path
	if info, err := os.Stat(w.path); err != nil {
		return fmt.Errorf("stat ruleset: %w", err)
	} else if !info.IsDir() {
		dir = filepath.Dir(w.path)
	}
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info("watching ruleset", "path", w.path)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isYAML(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.log.Debug("ruleset change", "file", event.Name, "op", event.Op.String())
			pending = true

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-ticker.C:
			if !pending {
				continue
			}
			pending = false
			if err := w.reload(); err != nil {
				w.log.Error("ruleset reload failed, previous ruleset stays active", "error", err)
				continue
			}
			w.log.Info("ruleset reloaded")
		}
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
