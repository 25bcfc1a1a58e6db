package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"canvasnotes/internal/domain"
)

// DefaultPageName names pages created without one.
const DefaultPageName = "Untitled"

// PageService manages the page list. Deleting or renaming the open page
// keeps the workspace in step.
type PageService struct {
	pages     domain.PageStore
	scenes    *SceneService
	workspace *Workspace
	emitter   EventEmitter
}

func NewPageService(pages domain.PageStore, scenes *SceneService, workspace *Workspace, emitter EventEmitter) *PageService {
	return &PageService{pages: pages, scenes: scenes, workspace: workspace, emitter: emitter}
}

func (s *PageService) List(ctx context.Context) ([]domain.Page, error) {
	return s.pages.ListPages(ctx)
}

func (s *PageService) Get(ctx context.Context, id string) (*domain.Page, error) {
	return s.pages.GetPage(ctx, id)
}

// Create adds an empty page. A blank name becomes DefaultPageName.
func (s *PageService) Create(ctx context.Context, name string) (*domain.Page, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPageName
	}
	p := &domain.Page{ID: uuid.New().String(), Name: name, Zoom: 1}
	if err := s.pages.CreatePage(ctx, p); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventPagesChanged, nil)
	return p, nil
}

func (s *PageService) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("page name is empty")
	}
	p, err := s.pages.GetPage(ctx, id)
	if err != nil {
		return err
	}
	if active, ok := s.workspace.Active(); ok && active.ID == id {
		p.Zoom = active.Zoom
	}
	p.Name = name
	if err := s.pages.UpdatePage(ctx, p); err != nil {
		return err
	}
	s.workspace.Rename(id, name)
	s.emitter.Emit(ctx, EventPagesChanged, nil)
	return nil
}

// Delete removes the page, its elements and its mirror file. An open page
// is closed without saving.
func (s *PageService) Delete(ctx context.Context, id string) error {
	s.workspace.Discard(id)
	if err := s.pages.DeletePage(ctx, id); err != nil {
		return err
	}
	if path := s.scenes.MirrorPath(id); path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("[PAGES] Remove scene file %s: %v", path, err)
		}
	}
	s.emitter.Emit(ctx, EventPagesChanged, nil)
	return nil
}
