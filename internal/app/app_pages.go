package app

import (
	"errors"
	"log"

	"canvasnotes/internal/domain"
	"canvasnotes/internal/service"
)

var errMCPDisabled = errors.New("MCP server is not running")

// ============================================================
// Pages
// ============================================================

func (a *App) ListPages() ([]domain.Page, error) {
	return a.pages.List(a.ctx)
}

// CreatePage creates a page and opens it.
func (a *App) CreatePage(name string) (SceneView, error) {
	p, err := a.pages.Create(a.ctx, name)
	if err != nil {
		return SceneView{}, err
	}
	return a.OpenPage(p.ID)
}

// OpenPage switches the canvas to a page and remembers it for the next
// launch.
func (a *App) OpenPage(id string) (SceneView, error) {
	if _, err := a.workspace.OpenPage(a.ctx, id); err != nil {
		return SceneView{}, err
	}
	if err := a.settings.SetLastPage(a.ctx, id); err != nil {
		log.Printf("[APP] Remember page %s: %v", id, err)
	}
	return a.broadcast()
}

func (a *App) RenamePage(id, name string) error {
	return a.pages.Rename(a.ctx, id, name)
}

func (a *App) DeletePage(id string) error {
	return a.pages.Delete(a.ctx, id)
}

// BackupNow writes a backup of every page immediately.
func (a *App) BackupNow() (service.BackupResult, error) {
	return a.backups.RunOnce(a.ctx)
}

// ============================================================
// MCP approvals
// ============================================================

func (a *App) ApproveAction(id string) error {
	if a.mcp == nil {
		return errMCPDisabled
	}
	a.mcp.Approve(id)
	return nil
}

func (a *App) RejectAction(id string) error {
	if a.mcp == nil {
		return errMCPDisabled
	}
	a.mcp.Reject(id)
	return nil
}
