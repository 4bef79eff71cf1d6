package cmd

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/incrlint/internal/debounce"
)

const watchDebounceDelay = 350 * time.Millisecond

// watch runs fn once and again after every burst of changes to the
// repository metadata or to the given files, until ctx is done. Failed runs
// are logged and do not stop the loop.
func watch(ctx context.Context, repoRoot string, files []string, fn func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
	}()
	for path := range watchPaths(repoRoot, files...) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	reruns := make(chan int, 1)
	d := debounce.New(watchDebounceDelay, func(n int) {
		select {
		case reruns <- n:
		default:
		}
	})
	defer d.Stop()

	runOnce := func() {
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("report failed", slog.Any("error", err))
		}
	}
	runOnce()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			d.Trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		case n := <-reruns:
			slog.Info("changes detected, running report again", slog.Int("events", n))
			runOnce()
		}
	}
}

// watchPaths lists the directories to watch: the .git directory of root (or
// root itself when it has none) and the directory of every file, since
// editors and analysers usually replace files instead of writing them.
func watchPaths(root string, files ...string) iter.Seq[string] {
	uniquePaths := map[string]struct{}{}
	appendUnique := func(p string) { uniquePaths[filepath.Clean(p)] = struct{}{} }
	if root != "" {
		gitDir := filepath.Join(root, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			appendUnique(gitDir)
		} else {
			appendUnique(root)
		}
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		appendUnique(filepath.Dir(f))
	}
	return maps.Keys(uniquePaths)
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".lock" || ext == ".ipc" {
		return true
	}
	return false
}
