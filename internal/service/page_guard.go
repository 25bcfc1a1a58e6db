package service

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// pageGuard marks pages whose backup is being written, so an overlapping
// run skips them and shutdown can drain the writes still in flight.
type pageGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
	wg   sync.WaitGroup
}

// begin claims pageID. ok is false when the page is already claimed;
// otherwise release must be called once the write is done.
func (g *pageGuard) begin(pageID string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy == nil {
		g.busy = make(map[string]struct{})
	}
	if _, taken := g.busy[pageID]; taken {
		return nil, false
	}
	g.busy[pageID] = struct{}{}
	g.wg.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, pageID)
			g.mu.Unlock()
			g.wg.Done()
		})
	}, true
}

// pending returns the claimed page ids, sorted.
func (g *pageGuard) pending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := lo.Keys(g.busy)
	sort.Strings(ids)
	return ids
}

// wait blocks until every claimed page is released or ctx ends.
func (g *pageGuard) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
