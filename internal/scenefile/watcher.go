package scenefile

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"canvasnotes/internal/domain"
)

// ChangeHandler receives the decoded contents of a watched scene file.
type ChangeHandler func(pageID string, els []domain.Element)

// Watcher reloads scene files when they are written by another process,
// such as a text editor or a sync client.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange ChangeHandler
	mu       sync.RWMutex
	watching map[string]string // abs path -> page id
	done     chan struct{}
}

func NewWatcher(onChange ChangeHandler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		onChange: onChange,
		watching: make(map[string]string),
		done:     make(chan struct{}),
	}

	go w.loop()

	return w, nil
}

// Watch starts watching path as the scene file of pageID.
func (w *Watcher) Watch(pageID, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.watching[absPath] = pageID
	w.mu.Unlock()

	// fsnotify watches directories; atomic renames replace the file inode.
	return w.watcher.Add(filepath.Dir(absPath))
}

// Unwatch stops delivering changes for pageID. The directory watch is
// dropped once no file in it is watched.
func (w *Watcher) Unwatch(pageID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var dir string
	for path, id := range w.watching {
		if id == pageID {
			dir = filepath.Dir(path)
			delete(w.watching, path)
			break
		}
	}
	if dir == "" {
		return
	}
	for path := range w.watching {
		if filepath.Dir(path) == dir {
			return
		}
	}
	_ = w.watcher.Remove(dir)
}

// Watched reports the page ids currently watched.
func (w *Watcher) Watched() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.watching))
	for _, id := range w.watching {
		ids = append(ids, id)
	}
	return ids
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			w.mu.RLock()
			pageID, watched := w.watching[absPath]
			w.mu.RUnlock()
			if !watched {
				continue
			}

			els, err := ReadFile(absPath)
			if err != nil {
				// Editors often truncate before writing; the next event
				// carries the complete file.
				log.Printf("[WATCH] read %s: %v", absPath, err)
				continue
			}
			if w.onChange != nil {
				w.onChange(pageID, els)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[WATCH] watcher error: %v", err)
		}
	}
}
