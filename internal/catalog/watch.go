package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"greenscreen/internal/logging"
)

// Store hands out the current catalog and supports atomic replacement.
// Sessions grab a snapshot at connect time; a reload never mutates a
// catalog a session already holds.
type Store struct {
	mu      sync.RWMutex
	path    string
	current *Catalog
}

// NewStore loads the catalog at path and remembers the path for reloads.
func NewStore(path string) (*Store, error) {
	cat, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, current: cat}, nil
}

// Current returns the catalog snapshot.
func (s *Store) Current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the source path. A load error leaves the previous
// catalog in place.
func (s *Store) Reload() error {
	cat, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = cat
	s.mu.Unlock()
	return nil
}

// Watch reloads the catalog when its source path changes, until ctx is
// cancelled. Events are debounced so an editor's write burst triggers one
// reload.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(s.path); err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}

	log := logging.Get(logging.CategoryBoot)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(250 * time.Millisecond)
				timerC = timer.C
			} else {
				timer.Reset(250 * time.Millisecond)
			}
		case <-timerC:
			if err := s.Reload(); err != nil {
				log.Warnw("screen catalog reload failed", "path", s.path, "error", err)
			} else {
				log.Infow("screen catalog reloaded", "path", s.path, "screens", s.Current().Len())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("screen catalog watch error", "error", err)
		}
	}
}
