package cli

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"verifyproblem/pkg/logging"
)

// watchDebounceInterval is how long to wait for further changes before a
// directory is re-verified; package edits usually touch several files.
const watchDebounceInterval = 500 * time.Millisecond

// Watch re-verifies each problem directory whenever something below it
// changes. It blocks until the context is cancelled.
func Watch(ctx context.Context, dirs []string, verify func(dir string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	type watchRoot struct {
		dir string // as given on the command line
		abs string
	}
	roots := make([]watchRoot, 0, len(dirs))
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			logging.Warn("watch", "cannot resolve %s: %v", dir, err)
			continue
		}
		roots = append(roots, watchRoot{dir: dir, abs: abs})
		addTree(watcher, abs)
	}
	logging.Info("watch", "Watching %d problem directories for changes", len(roots))

	var mu sync.Mutex
	pending := map[string]*time.Timer{}
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			for _, root := range roots {
				if !underDir(event.Name, root.abs) {
					continue
				}
				dir, abs := root.dir, root.abs
				mu.Lock()
				if timer, exists := pending[dir]; exists {
					timer.Reset(watchDebounceInterval)
				} else {
					pending[dir] = time.AfterFunc(watchDebounceInterval, func() {
						mu.Lock()
						delete(pending, dir)
						mu.Unlock()
						logging.Info("watch", "Change detected, re-verifying %s", dir)
						verify(dir)
						// New subdirectories may have appeared.
						addTree(watcher, abs)
					})
				}
				mu.Unlock()
				break
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch", "watcher error: %v", err)
		}
	}
}

// addTree watches a directory and everything below it.
func addTree(watcher *fsnotify.Watcher, root string) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			logging.Debug("watch", "cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func underDir(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
