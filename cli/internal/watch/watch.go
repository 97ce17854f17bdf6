// Package watch provides file watching for the migrations directory.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 500 * time.Millisecond

// Watcher watches a migrations directory (and its rollback subdirectory)
// and invokes a callback when SQL scripts change.
type Watcher struct {
	dir      string
	callback func() error
	watcher  *fsnotify.Watcher
	done     chan bool
}

// New creates a watcher over dir. The directory must exist.
func New(dir string, callback func() error) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := watcher.Add(absDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", absDir, err)
	}
	// The rollback subdirectory may not exist yet; watch it when it does.
	if info, err := os.Stat(filepath.Join(absDir, "rollback")); err == nil && info.IsDir() {
		_ = watcher.Add(filepath.Join(absDir, "rollback"))
	}

	return &Watcher{
		dir:      absDir,
		callback: callback,
		watcher:  watcher,
		done:     make(chan bool),
	}, nil
}

// Start invokes the callback once, then keeps invoking it (debounced)
// whenever a SQL script in the directory is created, written, or renamed.
// Callback errors are printed and watching continues.
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		fmt.Fprintf(os.Stderr, "Watch callback error: %v\n", err)
	}

	go func() {
		debounceTimer := time.NewTimer(debounceWindow)
		debounceTimer.Stop()
		var debounceCh <-chan time.Time

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".sql") {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounceTimer.Reset(debounceWindow)
					debounceCh = debounceTimer.C
				}

			case <-debounceCh:
				if err := w.callback(); err != nil {
					fmt.Fprintf(os.Stderr, "Watch callback error: %v\n", err)
				}
				debounceCh = nil

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
