package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"canvasnotes/internal/domain"
)

var ErrPageNotFound = errors.New("page not found")

// PageStore implements domain.PageStore over SQL.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

func (s *PageStore) CreatePage(ctx context.Context, p *domain.Page) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Zoom == 0 {
		p.Zoom = 1
	}
	_, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`INSERT INTO pages (id, name, zoom, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		p.ID, p.Name, p.Zoom, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

func (s *PageStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	p := &domain.Page{}
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT id, name, zoom, created_at, updated_at FROM pages WHERE id = ?`), id,
	).Scan(&p.ID, &p.Name, &p.Zoom, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get page %s: %w", id, ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

func (s *PageStore) ListPages(ctx context.Context) ([]domain.Page, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, name, zoom, created_at, updated_at FROM pages ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	pages := []domain.Page{}
	for rows.Next() {
		var p domain.Page
		if err := rows.Scan(&p.ID, &p.Name, &p.Zoom, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// UpdatePage persists the page's name and zoom.
func (s *PageStore) UpdatePage(ctx context.Context, p *domain.Page) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`UPDATE pages SET name = ?, zoom = ?, updated_at = ? WHERE id = ?`),
		p.Name, p.Zoom, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update page %s: %w", p.ID, ErrPageNotFound)
	}
	return nil
}

// DeletePage removes the page together with its elements.
func (s *PageStore) DeletePage(ctx context.Context, id string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM elements WHERE page_id = ?`), id); err != nil {
		return fmt.Errorf("delete elements: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM pages WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return tx.Commit()
}
