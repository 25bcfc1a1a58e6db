package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"canvasnotes/internal/domain"
	"canvasnotes/internal/service"
)

const pollInterval = 2 * time.Second

// storePoller polls the store for changes made by another process (e.g.
// the standalone MCP server) to the open page and the page list.
type storePoller struct {
	ctx       context.Context
	workspace *service.Workspace
	pages     *service.PageService
	emitter   service.EventEmitter
	interval  time.Duration
	// onReload runs after the open page was reloaded from the store.
	onReload func()

	mu           sync.Mutex
	lastPageList string // count + max updated_at
	stopCh       chan struct{}
	done         chan struct{}
}

func newStorePoller(ctx context.Context, ws *service.Workspace, pages *service.PageService, emitter service.EventEmitter, interval time.Duration) *storePoller {
	return &storePoller{ctx: ctx, workspace: ws, pages: pages, emitter: emitter, interval: interval}
}

// Start begins the polling loop. Should be called once on app startup.
func (p *storePoller) Start() {
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	go p.pollLoop()
}

// Stop terminates the polling loop and waits for a running check.
func (p *storePoller) Stop() {
	if p.stopCh == nil {
		return
	}
	close(p.stopCh)
	<-p.done
	p.stopCh = nil
}

func (p *storePoller) pollLoop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.check()
		case <-p.stopCh:
			return
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *storePoller) check() {
	reloaded, err := p.workspace.SyncFromStore(p.ctx)
	if err != nil {
		log.Printf("[POLL] %v", err)
	} else if reloaded && p.onReload != nil {
		p.onReload()
	}

	pages, err := p.pages.List(p.ctx)
	if err != nil {
		log.Printf("[POLL] list pages: %v", err)
		return
	}
	fingerprint := pageListFingerprint(pages)

	p.mu.Lock()
	changed := p.lastPageList != "" && p.lastPageList != fingerprint
	p.lastPageList = fingerprint
	p.mu.Unlock()

	if changed {
		p.emitter.Emit(p.ctx, service.EventPagesChanged, map[string]any{"count": len(pages)})
	}
}

func pageListFingerprint(pages []domain.Page) string {
	var latest time.Time
	for _, pg := range pages {
		if pg.UpdatedAt.After(latest) {
			latest = pg.UpdatedAt
		}
	}
	return fmt.Sprintf("%d:%s", len(pages), latest.UTC().Format(time.RFC3339Nano))
}
