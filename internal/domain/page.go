package domain

import (
	"context"
	"time"
)

// Page is the unit of persistence: one ordered element collection plus the
// zoom it was last viewed at. The document tree that owns pages lives in
// the host.
type Page struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Zoom      float64   `json:"zoom"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PageState is everything the renderer needs to draw a page.
type PageState struct {
	Page     Page      `json:"page"`
	Elements []Element `json:"elements"`
}

type PageStore interface {
	CreatePage(ctx context.Context, p *Page) error
	GetPage(ctx context.Context, id string) (*Page, error)
	ListPages(ctx context.Context) ([]Page, error)
	UpdatePage(ctx context.Context, p *Page) error
	DeletePage(ctx context.Context, id string) error
}

// SceneStore persists a page's element collection. SaveElements replaces
// the whole collection; paint order is preserved.
type SceneStore interface {
	LoadElements(ctx context.Context, pageID string) ([]Element, error)
	SaveElements(ctx context.Context, pageID string, els []Element) error
}
