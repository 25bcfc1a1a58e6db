package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongodb"
)

// dialect captures the per-driver differences the stores care about.
type dialect struct {
	name     string
	timeType string
	textType string
	dollar   bool // $1-style placeholders
	upsert   string
}

var dialects = map[string]dialect{
	DriverSQLite: {name: DriverSQLite, timeType: "DATETIME", textType: "TEXT",
		upsert: `ON CONFLICT (name) DO UPDATE SET value = excluded.value`},
	DriverPostgres: {name: DriverPostgres, timeType: "TIMESTAMPTZ", textType: "TEXT", dollar: true,
		upsert: `ON CONFLICT (name) DO UPDATE SET value = excluded.value`},
	DriverMySQL: {name: DriverMySQL, timeType: "DATETIME(6)", textType: "LONGTEXT",
		upsert: `ON DUPLICATE KEY UPDATE value = VALUES(value)`},
}

// DB wraps a database/sql connection to one of the SQL drivers.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Open connects to driver using dsn and runs migrations. For sqlite the dsn
// is a file path (or ":memory:") and its directory is created if missing.
func Open(driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	var err error
	switch driver {
	case DriverSQLite:
		dsn, err = sqliteDSN(dsn)
	case DriverMySQL:
		dsn, err = mysqlDSN(dsn)
	}
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite only supports one writer; a single connection also keeps
		// an in-memory database alive between queries.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func sqliteDSN(path string) (string, error) {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create db directory: %w", err)
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000", nil
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Driver() string {
	return db.dialect.name
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// rebind rewrites ? placeholders for drivers that number them.
func (db *DB) rebind(query string) string {
	if !db.dialect.dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (db *DB) migrate() error {
	d := db.dialect
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			zoom DOUBLE PRECISION NOT NULL DEFAULT 1,
			created_at ` + d.timeType + ` NOT NULL,
			updated_at ` + d.timeType + ` NOT NULL
		)`,
		// One row per element; data holds the element's JSON record so every
		// variant round-trips through the same codec as scene files.
		`CREATE TABLE IF NOT EXISTS elements (
			page_id VARCHAR(64) NOT NULL,
			id VARCHAR(64) NOT NULL,
			sort_order INTEGER NOT NULL,
			kind VARCHAR(32) NOT NULL,
			data ` + d.textType + ` NOT NULL,
			PRIMARY KEY (page_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			name VARCHAR(64) PRIMARY KEY,
			value ` + d.textType + ` NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
