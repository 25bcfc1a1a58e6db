package storage

import (
	"context"
	"fmt"

	"canvasnotes/internal/domain"
)

// Backend is the page, scene and settings stores behind one connection.
type Backend interface {
	domain.PageStore
	domain.SceneStore
	GetSetting(ctx context.Context, name string) (string, bool, error)
	SetSetting(ctx context.Context, name, value string) error
	Close() error
}

// SQLBackend combines the SQL stores over one DB.
type SQLBackend struct {
	*PageStore
	*ElementStore
	*SettingsStore
	db *DB
}

func NewSQLBackend(db *DB) *SQLBackend {
	return &SQLBackend{
		PageStore:     NewPageStore(db),
		ElementStore:  NewElementStore(db),
		SettingsStore: NewSettingsStore(db),
		db:            db,
	}
}

func (b *SQLBackend) Close() error { return b.db.Close() }

// OpenBackend opens the backend named by driver. mongoDB is only used by
// the mongodb driver.
func OpenBackend(ctx context.Context, driver, dsn, mongoDB string) (Backend, error) {
	if driver == DriverMongo {
		return OpenMongo(ctx, dsn, mongoDB)
	}
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", driver, err)
	}
	return NewSQLBackend(db), nil
}
