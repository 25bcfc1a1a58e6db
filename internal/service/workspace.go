package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"canvasnotes/internal/domain"
	"canvasnotes/internal/scenefile"
)

// ErrNoActivePage is returned by operations that need an open page.
var ErrNoActivePage = errors.New("no active page")

// Reload sources reported with EventSceneReloaded.
const (
	SourceFile  = "file"
	SourceStore = "store"
)

type sceneWatcher interface {
	Watch(pageID, path string) error
	Unwatch(pageID string)
}

// Workspace owns the page currently open in the window. Every engine call
// runs under its lock, whether it comes from the UI, the MCP server or a
// reload.
type Workspace struct {
	mu      sync.Mutex
	pages   domain.PageStore
	scenes  *SceneService
	watcher sceneWatcher
	emitter EventEmitter
	active  *ActivePage
}

func NewWorkspace(pages domain.PageStore, scenes *SceneService, emitter EventEmitter) *Workspace {
	return &Workspace{pages: pages, scenes: scenes, emitter: emitter}
}

// WatchFiles makes the workspace watch the mirror file of each page it
// opens.
func (w *Workspace) WatchFiles(watcher sceneWatcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watcher = watcher
	if w.active != nil {
		w.watch(w.active)
	}
}

// Active returns the open page.
func (w *Workspace) Active() (domain.Page, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return domain.Page{}, false
	}
	return w.active.Page, true
}

// Do runs fn against the open page under the workspace lock.
func (w *Workspace) Do(fn func(ap *ActivePage) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return ErrNoActivePage
	}
	return fn(w.active)
}

// State returns the open page with its current elements.
func (w *Workspace) State() (domain.PageState, error) {
	var st domain.PageState
	err := w.Do(func(ap *ActivePage) error {
		st = domain.PageState{Page: ap.Page, Elements: ap.Engine.Elements()}
		return nil
	})
	return st, err
}

// OpenPage makes id the open page. The previous page's pending changes are
// written first. Opening the page that is already open is a no-op.
func (w *Workspace) OpenPage(ctx context.Context, id string) (domain.PageState, error) {
	page, err := w.pages.GetPage(ctx, id)
	if err != nil {
		return domain.PageState{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active != nil && w.active.Page.ID == id {
		return domain.PageState{Page: w.active.Page, Elements: w.active.Engine.Elements()}, nil
	}

	ap, err := w.scenes.Open(ctx, *page)
	if err != nil {
		return domain.PageState{}, err
	}
	if prev := w.active; prev != nil {
		w.release(ctx, prev)
	}
	w.active = ap
	w.watch(ap)

	return domain.PageState{Page: ap.Page, Elements: ap.Engine.Elements()}, nil
}

// watch seeds the page's mirror file if it is missing and starts
// watching it.
func (w *Workspace) watch(ap *ActivePage) {
	path := w.scenes.MirrorPath(ap.Page.ID)
	if path == "" || w.watcher == nil {
		return
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := scenefile.WriteFile(path, ap.Engine.Elements()); err != nil {
			log.Printf("[WORKSPACE] Seed scene file %s: %v", path, err)
			return
		}
	}
	if err := w.watcher.Watch(ap.Page.ID, path); err != nil {
		log.Printf("[WORKSPACE] Watch %s: %v", path, err)
	}
}

// release flushes and stops the page's saver and drops its file watch.
func (w *Workspace) release(ctx context.Context, ap *ActivePage) error {
	err := ap.Flush(ctx)
	if err != nil {
		log.Printf("[WORKSPACE] Flush page %s: %v", ap.Page.ID, err)
	}
	ap.saver.stop()
	if w.watcher != nil {
		w.watcher.Unwatch(ap.Page.ID)
	}
	return err
}

// ReloadFromFile replaces the open page's elements with an externally
// edited scene file. The new content is saved back to the store. It
// reports whether the engine changed.
func (w *Workspace) ReloadFromFile(pageID string, els []domain.Element) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reload(pageID, els, true, SourceFile)
}

// SyncFromStore picks up elements written to the store by another process
// for the open page.
func (w *Workspace) SyncFromStore(ctx context.Context) (bool, error) {
	page, ok := w.Active()
	if !ok {
		return false, nil
	}
	els, err := w.scenes.store.LoadElements(ctx, page.ID)
	if err != nil {
		return false, fmt.Errorf("sync page %s: %w", page.ID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reload(page.ID, els, false, SourceStore), nil
}

func (w *Workspace) reload(pageID string, els []domain.Element, persist bool, source string) bool {
	ap := w.active
	if ap == nil || ap.Page.ID != pageID {
		return false
	}
	// Our own write coming back, or nothing new.
	if ap.saver.wrote(els) || sameElements(ap.Engine.Elements(), els) {
		return false
	}
	if err := ap.replace(els, persist); err != nil {
		log.Printf("[WORKSPACE] Reload page %s from %s: %v", pageID, source, err)
		return false
	}
	log.Printf("[WORKSPACE] Reloaded page %s from %s (%d elements)", pageID, source, len(els))
	w.emitter.Emit(context.Background(), EventSceneReloaded, map[string]any{
		"pageId": pageID,
		"source": source,
		"count":  len(els),
	})
	return true
}

func sameElements(a, b []domain.Element) bool {
	ea, err := domain.EncodeElements(a)
	if err != nil {
		return false
	}
	eb, err := domain.EncodeElements(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

// SetZoom applies scale to the open page and persists the clamped value.
func (w *Workspace) SetZoom(ctx context.Context, scale float64) (float64, error) {
	var page domain.Page
	err := w.Do(func(ap *ActivePage) error {
		ap.Page.Zoom = ap.Engine.SetScale(scale)
		page = ap.Page
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := w.pages.UpdatePage(ctx, &page); err != nil {
		return page.Zoom, fmt.Errorf("persist zoom: %w", err)
	}
	return page.Zoom, nil
}

// ZoomAt zooms the open page around a screen point and persists the new
// scale. It returns the container origin to apply.
func (w *Workspace) ZoomAt(ctx context.Context, factor float64, screen, origin domain.Point) (domain.Point, error) {
	var (
		page domain.Page
		next domain.Point
	)
	err := w.Do(func(ap *ActivePage) error {
		next = ap.Engine.ZoomAt(factor, screen, origin)
		ap.Page.Zoom = ap.Engine.Scale()
		page = ap.Page
		return nil
	})
	if err != nil {
		return origin, err
	}
	if err := w.pages.UpdatePage(ctx, &page); err != nil {
		return next, fmt.Errorf("persist zoom: %w", err)
	}
	return next, nil
}

// Rename updates the open page's cached metadata after a rename.
func (w *Workspace) Rename(pageID, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != nil && w.active.Page.ID == pageID {
		w.active.Page.Name = name
	}
}

// Discard closes pageID without saving, as when the page is deleted.
func (w *Workspace) Discard(pageID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ap := w.active
	if ap == nil || ap.Page.ID != pageID {
		return false
	}
	ap.saver.stop()
	if w.watcher != nil {
		w.watcher.Unwatch(pageID)
	}
	w.active = nil
	return true
}

// Flush writes the open page's pending changes now.
func (w *Workspace) Flush(ctx context.Context) error {
	return w.Do(func(ap *ActivePage) error { return ap.Flush(ctx) })
}

// Close flushes and closes the open page.
func (w *Workspace) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return nil
	}
	err := w.release(ctx, w.active)
	w.active = nil
	return err
}
