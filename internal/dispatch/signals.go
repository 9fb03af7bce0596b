package dispatch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Signals coordinates out-of-band run control via files in the
// project's .tracklet/signals directory. Writing a stop or pause file
// from any process asks a running tracklet run to wind down.
type Signals struct {
	dir string

	mu    sync.RWMutex
	stop  bool
	pause bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignals creates a signal manager for the given project root.
func NewSignals(projectRoot string) (*Signals, error) {
	dir := filepath.Join(projectRoot, ".tracklet", "signals")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &Signals{
		dir:  dir,
		done: make(chan struct{}),
	}

	// Start file watcher for immediate signals
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - will use polling fallback
		return s, nil
	}
	s.watcher = watcher

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		s.watcher = nil
		return s, nil
	}

	go s.watch()

	return s, nil
}

// watch monitors the signals directory for stop/pause files.
func (s *Signals) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.mu.Lock()
			base := filepath.Base(event.Name)
			if base == "stop" && (event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				s.stop = true
			} else if base == "pause" && (event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				s.pause = true
			}
			s.mu.Unlock()
		case <-s.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// ShouldStop returns true if a stop signal has been received.
func (s *Signals) ShouldStop() bool {
	// Also check file directly in case watcher missed it
	stopPath := filepath.Join(s.dir, "stop")
	if _, err := os.Stat(stopPath); err == nil {
		s.mu.Lock()
		s.stop = true
		s.mu.Unlock()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stop
}

// ShouldPause returns true if a pause signal has been received.
func (s *Signals) ShouldPause() bool {
	pausePath := filepath.Join(s.dir, "pause")
	if _, err := os.Stat(pausePath); err == nil {
		s.mu.Lock()
		s.pause = true
		s.mu.Unlock()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pause
}

// RequestStop creates a stop signal file.
func (s *Signals) RequestStop() error {
	path := filepath.Join(s.dir, "stop")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// RequestPause creates a pause signal file.
func (s *Signals) RequestPause() error {
	path := filepath.Join(s.dir, "pause")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes all signal files and resets signal state.
func (s *Signals) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stop = false
	s.pause = false

	os.Remove(filepath.Join(s.dir, "stop"))
	os.Remove(filepath.Join(s.dir, "pause"))
}

// Dir returns the path to the signals directory.
func (s *Signals) Dir() string {
	return s.dir
}

// Close shuts down the signal manager.
func (s *Signals) Close() {
	close(s.done)
	if s.watcher != nil {
		s.watcher.Close()
	}
}
