package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"galebot/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// Book holds the current signal list, reloaded from a file whenever the
// file changes on disk.
type Book struct {
	path string

	mu      sync.RWMutex
	signals []Signal
}

func NewBook(path string) *Book {
	return &Book{path: path}
}

// Load reads and parses the signals file. A missing file leaves an empty
// book rather than failing: signals are often written after startup.
func (b *Book) Load() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			b.set(nil)
			return nil
		}
		return err
	}
	signals := ParseSignals(string(data))
	b.set(signals)
	logger.Infof("scheduler: loaded %d signal(s) from %s", len(signals), b.path)
	return nil
}

func (b *Book) set(signals []Signal) {
	b.mu.Lock()
	b.signals = signals
	b.mu.Unlock()
}

// ForMinute returns the signals scheduled for the given HH:mm.
func (b *Book) ForMinute(hhmm string) []Signal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Signal
	for _, sig := range b.signals {
		if sig.Time == hhmm {
			out = append(out, sig)
		}
	}
	return out
}

// Watch reloads the book on filesystem changes until ctx is done. Editors
// and deploy tooling often replace the file, so create and rename events
// on the parent directory count as changes too.
func (b *Book) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(b.path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(b.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := b.Load(); err != nil {
				logger.Errorf("scheduler: reloading signals failed: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("scheduler: watch error: %v", err)
		}
	}
}
