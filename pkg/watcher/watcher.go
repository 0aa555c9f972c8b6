// Package watcher reloads the input exports when they change on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/mutual-graph/pkg/logging"
)

var log = logging.New("watcher")

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeWrite  ChangeType = iota // Created or modified
	ChangeTypeRemove                   // Removed or renamed away
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeWrite:
		return "write"
	case ChangeTypeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchWindow groups raw fsnotify events before they are emitted.
const batchWindow = 100 * time.Millisecond

// FileWatcher watches a fixed set of input files. The parent directories are
// watched rather than the files so that editors replacing a file through a
// rename are still seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool // Absolute, cleaned paths
	dirs    []string
	events  chan ChangeEvent
	once    sync.Once
}

// NewFileWatcher creates a watcher for the given files.
func NewFileWatcher(paths []string) (*FileWatcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}

	files := make(map[string]bool, len(paths))
	seenDirs := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		files[abs] = true
		if dir := filepath.Dir(abs); !seenDirs[dir] {
			seenDirs[dir] = true
			dirs = append(dirs, dir)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		files:   files,
		dirs:    dirs,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching. Events stop and the channel closes when ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	for _, dir := range fw.dirs {
		if err := fw.watcher.Add(dir); err != nil {
			fw.watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	log.Info("Watching input files", "files", len(fw.files), "directories", len(fw.dirs))

	go fw.processEvents(ctx)
	return nil
}

// classify maps an fsnotify event on a watched file to a change type.
func (fw *FileWatcher) classify(event fsnotify.Event) (ChangeType, bool) {
	abs, err := filepath.Abs(event.Name)
	if err != nil || !fw.files[abs] {
		return 0, false
	}
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		return ChangeTypeWrite, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return ChangeTypeRemove, true
	default:
		return 0, false
	}
}

// processEvents batches file system events by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.Stop()

	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeWrite, ChangeTypeRemove} {
			if len(pending[t]) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Type: t, Paths: pending[t], Timestamp: time.Now()}:
			case <-ctx.Done():
			}
		}
		pending = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			t, relevant := fw.classify(event)
			if !relevant {
				continue
			}
			log.Debug("File changed", "path", event.Name, "op", event.Op.String())
			pending[t] = append(pending[t], event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	var err error
	fw.once.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}
