package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"canvasnotes/internal/domain"
	"canvasnotes/internal/scenefile"
)

// ─────────────────────────────────────────────────────────────
// BackupService: periodic scene-file snapshots of every page
// ─────────────────────────────────────────────────────────────

// BackupResult summarizes one backup run.
type BackupResult struct {
	Dir     string   `json:"dir"`
	Written int      `json:"written"`
	Skipped []string `json:"skipped,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// BackupService writes each page's stored elements to <dir>/<page>.json.
type BackupService struct {
	pages   domain.PageStore
	scenes  domain.SceneStore
	dir     string
	emitter EventEmitter

	busy pageGuard

	mu        sync.Mutex
	cronSched *cron.Cron
}

func NewBackupService(pages domain.PageStore, scenes domain.SceneStore, dir string, emitter EventEmitter) *BackupService {
	return &BackupService{pages: pages, scenes: scenes, dir: dir, emitter: emitter}
}

// Start schedules RunOnce on the cron expression. An empty expression
// disables scheduled backups.
func (s *BackupService) Start(ctx context.Context, expr string) error {
	if expr == "" || s.dir == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cronSched != nil {
		s.cronSched.Stop()
	}

	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		res, err := s.RunOnce(ctx)
		if err != nil {
			log.Printf("[BACKUP] Run failed: %v", err)
			return
		}
		log.Printf("[BACKUP] Wrote %d page(s) to %s", res.Written, res.Dir)
	})
	if err != nil {
		return fmt.Errorf("backup schedule %q: %w", expr, err)
	}
	c.Start()
	s.cronSched = c
	log.Printf("[BACKUP] Scheduled %q", expr)
	return nil
}

// Stop cancels the schedule and waits for running backups to finish or
// for ctx to end.
func (s *BackupService) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
	s.mu.Unlock()
	if err := s.busy.wait(ctx); err != nil {
		log.Printf("[BACKUP] Stopped with pages still writing %v: %v", s.busy.pending(), err)
	}
}

// RunOnce backs up every page now. A page whose previous backup is still
// being written is skipped.
func (s *BackupService) RunOnce(ctx context.Context) (BackupResult, error) {
	res := BackupResult{Dir: s.dir}
	if s.dir == "" {
		return res, fmt.Errorf("backups are disabled")
	}
	pages, err := s.pages.ListPages(ctx)
	if err != nil {
		return res, fmt.Errorf("backup: %w", err)
	}

	for _, p := range pages {
		release, ok := s.busy.begin(p.ID)
		if !ok {
			res.Skipped = append(res.Skipped, p.ID)
			continue
		}
		err := s.backupPage(ctx, p.ID)
		release()
		if err != nil {
			log.Printf("[BACKUP] Page %s: %v", p.ID, err)
			res.Failed = append(res.Failed, p.ID)
			continue
		}
		res.Written++
	}

	s.emitter.Emit(ctx, EventBackupCompleted, res)
	return res, nil
}

func (s *BackupService) backupPage(ctx context.Context, pageID string) error {
	els, err := s.scenes.LoadElements(ctx, pageID)
	if err != nil {
		return err
	}
	return scenefile.WriteFile(scenefile.Path(s.dir, pageID), els)
}
