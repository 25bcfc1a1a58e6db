package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SettingsStore is a small key-value table for app preferences.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetSetting returns the stored value and whether it exists.
func (s *SettingsStore) GetSetting(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT value FROM app_settings WHERE name = ?`), name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", name, err)
	}
	return value, true, nil
}

func (s *SettingsStore) SetSetting(ctx context.Context, name, value string) error {
	_, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`INSERT INTO app_settings (name, value) VALUES (?, ?) `+s.db.dialect.upsert),
		name, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", name, err)
	}
	return nil
}
