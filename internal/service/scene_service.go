package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bep/debounce"

	"canvasnotes/internal/canvas"
	"canvasnotes/internal/domain"
	"canvasnotes/internal/scenefile"
)

// ─────────────────────────────────────────────────────────────
// SceneService: opens pages into engines and persists their scenes
// ─────────────────────────────────────────────────────────────

// SceneOptions configure the engines and savers built for opened pages.
type SceneOptions struct {
	// Debounce is the quiet period before a change is written. Zero saves
	// on every change.
	Debounce time.Duration
	// MirrorDir, when set, receives a JSON copy of every saved scene.
	MirrorDir string

	Measurer canvas.Measurer
	Commands canvas.CommandPalette
	Focus    canvas.FocusProbe
	MinScale float64
	MaxScale float64
}

// SceneService builds an engine per opened page and keeps the page's
// persisted elements in step with it.
type SceneService struct {
	store   domain.SceneStore
	emitter EventEmitter
	opts    SceneOptions
}

func NewSceneService(store domain.SceneStore, emitter EventEmitter, opts SceneOptions) *SceneService {
	return &SceneService{store: store, emitter: emitter, opts: opts}
}

// MirrorPath returns the scene file of pageID, or "" when mirroring is off.
func (s *SceneService) MirrorPath(pageID string) string {
	if s.opts.MirrorDir == "" {
		return ""
	}
	return scenefile.Path(s.opts.MirrorDir, pageID)
}

// ActivePage is an opened page: its engine and the saver persisting it.
// The engine is not safe for concurrent use; callers go through
// Workspace.Do.
type ActivePage struct {
	Page   domain.Page
	Engine *canvas.Engine

	saver *saver
	quiet bool
}

// Open loads the page's elements into a fresh engine. Changes made through
// the engine afterwards are emitted and saved.
func (s *SceneService) Open(ctx context.Context, page domain.Page) (*ActivePage, error) {
	els, err := s.store.LoadElements(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("open page %s: %w", page.ID, err)
	}

	engine := canvas.New(canvas.Options{
		Measurer: s.opts.Measurer,
		Commands: s.opts.Commands,
		Focus:    s.opts.Focus,
		MinScale: s.opts.MinScale,
		MaxScale: s.opts.MaxScale,
	})
	if err := engine.Load(els); err != nil {
		return nil, fmt.Errorf("open page %s: %w", page.ID, err)
	}
	if page.Zoom > 0 {
		page.Zoom = engine.SetScale(page.Zoom)
	}

	ap := &ActivePage{
		Page:   page,
		Engine: engine,
		saver:  newSaver(page.ID, s.store, s.emitter, s.MirrorPath(page.ID), s.opts.Debounce),
	}
	ap.saver.remember(els)
	engine.OnChange(ap.changed)
	return ap, nil
}

func (ap *ActivePage) changed() {
	if ap.quiet {
		return
	}
	els := ap.Engine.Elements()
	ap.saver.emitter.Emit(context.Background(), EventSceneChanged, map[string]any{
		"pageId": ap.Page.ID,
		"count":  len(els),
	})
	ap.saver.schedule(els)
}

// Flush writes any pending change now.
func (ap *ActivePage) Flush(ctx context.Context) error {
	return ap.saver.flush(ctx)
}

// Pending reports whether a change is waiting to be written.
func (ap *ActivePage) Pending() bool {
	return ap.saver.hasPending()
}

// replace loads els into the engine. When persist is set the new content
// is saved like any other change; otherwise it is taken as already stored.
func (ap *ActivePage) replace(els []domain.Element, persist bool) error {
	ap.quiet = !persist
	defer func() { ap.quiet = false }()
	if err := ap.Engine.Load(els); err != nil {
		return err
	}
	if !persist {
		ap.saver.remember(els)
	}
	return nil
}

// ── saver ───────────────────────────────────────────────────

// saver debounces a page's scene writes. The snapshot is taken when the
// change happens; a write always stores the latest one.
type saver struct {
	pageID   string
	store    domain.SceneStore
	emitter  EventEmitter
	mirror   string
	debounce func(func())

	mu      sync.Mutex // guards pending, has, written, stopped
	pending []domain.Element
	has     bool
	written []byte // compact encoding of the last stored snapshot
	stopped bool

	saveMu sync.Mutex // one write at a time
}

func newSaver(pageID string, store domain.SceneStore, emitter EventEmitter, mirror string, d time.Duration) *saver {
	s := &saver{pageID: pageID, store: store, emitter: emitter, mirror: mirror}
	if d > 0 {
		s.debounce = debounce.New(d)
	}
	return s
}

func (s *saver) schedule(els []domain.Element) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.pending, s.has = els, true
	s.mu.Unlock()

	if s.debounce == nil {
		s.fire()
		return
	}
	s.debounce(s.fire)
}

func (s *saver) fire() {
	if err := s.flush(context.Background()); err != nil {
		log.Printf("[SCENE] Save page %s: %v", s.pageID, err)
	}
}

func (s *saver) flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.has || s.stopped {
		s.mu.Unlock()
		return nil
	}
	els := s.pending
	s.pending, s.has = nil, false
	data, err := domain.EncodeElements(els)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode scene: %w", err)
	}
	prev := s.written
	s.written = data
	s.mu.Unlock()

	if err := s.store.SaveElements(ctx, s.pageID, els); err != nil {
		s.mu.Lock()
		s.written = prev
		if !s.has {
			// Retry with the next flush unless a newer snapshot arrived.
			s.pending, s.has = els, true
		}
		s.mu.Unlock()
		s.emitter.Emit(ctx, EventSceneSaveFailed, map[string]string{
			"pageId": s.pageID,
			"error":  err.Error(),
		})
		return fmt.Errorf("save page %s: %w", s.pageID, err)
	}

	if s.mirror != "" {
		if err := scenefile.WriteFile(s.mirror, els); err != nil {
			log.Printf("[SCENE] Mirror page %s: %v", s.pageID, err)
		}
	}
	s.emitter.Emit(ctx, EventSceneSaved, map[string]any{
		"pageId": s.pageID,
		"count":  len(els),
	})
	return nil
}

// remember records els as the stored state without writing it. A pending
// change is dropped since els supersedes it.
func (s *saver) remember(els []domain.Element) {
	data, err := domain.EncodeElements(els)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.written = data
	s.pending, s.has = nil, false
	s.mu.Unlock()
}

// wrote reports whether els is what this saver last stored.
func (s *saver) wrote(els []domain.Element) bool {
	data, err := domain.EncodeElements(els)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Equal(data, s.written)
}

func (s *saver) hasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.has
}

// stop drops pending changes and waits for an in-flight write, so nothing
// is stored for the page afterwards.
func (s *saver) stop() {
	s.mu.Lock()
	s.stopped = true
	s.pending, s.has = nil, false
	s.mu.Unlock()

	s.saveMu.Lock()
	s.saveMu.Unlock()
}

// Stored returns the page's elements as last saved.
func (s *SceneService) Stored(ctx context.Context, pageID string) ([]domain.Element, error) {
	return s.store.LoadElements(ctx, pageID)
}
