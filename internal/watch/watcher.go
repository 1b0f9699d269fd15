package watch

import (
	"fmt"
	"os"
	"sync"
	"time"

	"detectview/internal/log"
	"detectview/internal/media"

	"github.com/fsnotify/fsnotify"
)

// ImageEvent represents an image file created or rewritten in a watched folder
type ImageEvent struct {
	Path      string
	Info      os.FileInfo
	Timestamp time.Time
	Op        fsnotify.Op
}

// Watcher monitors directories for new images using fsnotify
type Watcher struct {
	// Directories being watched
	directories []string

	// Only file names accepted by the matcher are reported
	matcher *media.Matcher

	// Channel to receive image events
	events chan ImageEvent

	// Channel to signal stop, and closed when the event loop has exited
	stopChan chan struct{}
	done     chan struct{}

	fsWatcher *fsnotify.Watcher

	mutex   sync.RWMutex
	running bool
}

// New creates a new image watcher. A nil matcher accepts every image type.
func New(matcher *media.Matcher) (*Watcher, error) {
	if matcher == nil {
		var err error
		if matcher, err = media.NewMatcher(""); err != nil {
			return nil, err
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		directories: []string{},
		matcher:     matcher,
		events:      make(chan ImageEvent, 16),
		fsWatcher:   fsWatcher,
	}, nil
}

// AddDirectory adds a directory to watch
func (w *Watcher) AddDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to add directory %s to watcher: %w", dir, err)
	}

	w.mutex.Lock()
	found := false
	for _, existingDir := range w.directories {
		if existingDir == dir {
			found = true
			break
		}
	}
	if !found {
		w.directories = append(w.directories, dir)
	}
	w.mutex.Unlock()

	log.LogWithFields(log.F("directory", dir)).Info("Watching directory")
	return nil
}

// Events returns the channel that delivers image events. It is closed
// once the watcher stops.
func (w *Watcher) Events() <-chan ImageEvent {
	return w.events
}

// Start begins the event loop
func (w *Watcher) Start() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if w.done != nil {
		return fmt.Errorf("watcher cannot be restarted")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})

	go w.loop(w.stopChan, w.done)

	log.Debugf("Watcher started")
	return nil
}

func (w *Watcher) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(w.events)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				w.markStopped()
				return
			}
			w.handle(event, stop)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				w.markStopped()
				return
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-stop:
			return
		}
	}
}

// markStopped records that fsnotify went away without Stop being called.
func (w *Watcher) markStopped() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.running = false
}

func (w *Watcher) handle(event fsnotify.Event, stop <-chan struct{}) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !w.matcher.Match(event.Name) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// The file may already be gone again
		if !os.IsNotExist(err) {
			log.LogWithFields(log.F("file", event.Name), log.F("error", err)).Error("Error stating file")
		}
		return
	}
	if info.IsDir() {
		return
	}

	ev := ImageEvent{
		Path:      event.Name,
		Info:      info,
		Timestamp: time.Now(),
		Op:        event.Op,
	}

	select {
	case w.events <- ev:
	case <-stop:
	default:
		log.LogWithFields(log.F("file", event.Name)).Warn("Event channel is full, dropped event")
	}
}

// Stop halts the watcher and waits for the event loop to exit
func (w *Watcher) Stop() {
	w.mutex.Lock()
	if !w.running {
		if w.done == nil {
			// Never started: release the fsnotify handle and refuse later starts
			w.done = make(chan struct{})
			close(w.done)
			_ = w.fsWatcher.Close()
		}
		w.mutex.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.done
	w.mutex.Unlock()

	<-done

	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
	}
	log.Debugf("Watcher stopped")
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}

// GetDirectories returns the list of directories being watched
func (w *Watcher) GetDirectories() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	dirsCopy := make([]string, len(w.directories))
	copy(dirsCopy, w.directories)
	return dirsCopy
}
