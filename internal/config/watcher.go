package config

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk. The
// directory is watched rather than the file so editors that replace the file
// are still seen.
type Watcher struct {
	path     string
	onChange func(*Config)

	fs       *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	stopErr  error
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for path. onChange is called from a background
// goroutine with every successfully parsed new configuration.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		_ = fs.Close()
		return nil, err
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		fs:       fs,
		stopCh:   make(chan struct{}),
	}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
}

// Stop ends the watch and waits for the goroutine to exit. Later calls
// return the first call's result.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.stopErr = w.fs.Close()
		w.wg.Wait()
	})
	return w.stopErr
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	name := filepath.Clean(w.path)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, w.reload)
			mu.Unlock()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch %s: %v", w.path, err)
		}
	}
}

func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}
	c, err := Load(w.path)
	if err != nil {
		log.Printf("config: reload %s: %v", w.path, err)
		return
	}
	log.Printf("config: reloaded %s", w.path)
	if w.onChange != nil {
		w.onChange(c)
	}
}
