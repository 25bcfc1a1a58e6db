package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"canvasnotes/internal/domain"
)

// ElementStore implements domain.SceneStore over SQL.
type ElementStore struct {
	db *DB
}

func NewElementStore(db *DB) *ElementStore {
	return &ElementStore{db: db}
}

// LoadElements returns the page's elements in paint order. A page with no
// rows yields an empty slice.
func (s *ElementStore) LoadElements(ctx context.Context, pageID string) ([]domain.Element, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id, data FROM elements WHERE page_id = ? ORDER BY sort_order ASC`), pageID)
	if err != nil {
		return nil, fmt.Errorf("load elements: %w", err)
	}
	defer rows.Close()

	els := []domain.Element{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var el domain.Element
		if err := json.Unmarshal([]byte(data), &el); err != nil {
			return nil, fmt.Errorf("decode element %s: %w", id, err)
		}
		els = append(els, el)
	}
	return els, rows.Err()
}

// SaveElements atomically replaces all elements of a page.
func (s *ElementStore) SaveElements(ctx context.Context, pageID string, els []domain.Element) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM elements WHERE page_id = ?`), pageID); err != nil {
		return fmt.Errorf("delete elements: %w", err)
	}

	insert := s.db.rebind(`INSERT INTO elements (page_id, id, sort_order, kind, data) VALUES (?, ?, ?, ?, ?)`)
	for i, el := range els {
		data, err := json.Marshal(el)
		if err != nil {
			return fmt.Errorf("encode element %s: %w", el.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insert, pageID, el.ID, i, string(el.Kind()), string(data)); err != nil {
			return fmt.Errorf("insert element %s: %w", el.ID, err)
		}
	}

	return tx.Commit()
}
