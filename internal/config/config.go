package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"canvasnotes/internal/canvas"
	"canvasnotes/internal/storage"
)

// Config is the process configuration, read once at startup.
type Config struct {
	DataDir        string
	DBDriver       string
	DBDSN          string
	MongoDB        string
	SceneDir       string // mirrored scene files; empty disables mirroring
	SaveDebounce   time.Duration
	MinScale       float64
	MaxScale       float64
	BackupSchedule string // cron spec; empty disables backups
	BackupDir      string
	MCPAddr        string // streamable HTTP listen address; empty disables it
}

// Load reads an optional .env file in the working directory, then the
// CANVAS_* environment variables, filling defaults for anything unset.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[CONFIG] .env not loaded: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	str := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	dataDir := getenv("CANVAS_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share", "canvas-notes")
	}

	cfg := Config{
		DataDir:        dataDir,
		DBDriver:       str("CANVAS_DB_DRIVER", storage.DriverSQLite),
		MongoDB:        str("CANVAS_MONGO_DB", "canvas"),
		SceneDir:       str("CANVAS_SCENE_DIR", filepath.Join(dataDir, "scenes")),
		BackupSchedule: str("CANVAS_BACKUP_SCHEDULE", "@every 30m"),
		BackupDir:      str("CANVAS_BACKUP_DIR", filepath.Join(dataDir, "backups")),
		MCPAddr:        getenv("CANVAS_MCP_ADDR"),
	}
	if getenv("CANVAS_SCENE_DIR") == "off" {
		cfg.SceneDir = ""
	}
	if getenv("CANVAS_BACKUP_SCHEDULE") == "off" {
		cfg.BackupSchedule = ""
	}

	switch cfg.DBDriver {
	case storage.DriverSQLite:
		cfg.DBDSN = str("CANVAS_DB_DSN", filepath.Join(dataDir, "canvas.db"))
	case storage.DriverPostgres, storage.DriverMySQL, storage.DriverMongo:
		cfg.DBDSN = getenv("CANVAS_DB_DSN")
		if cfg.DBDSN == "" {
			return Config{}, fmt.Errorf("CANVAS_DB_DSN is required for driver %q", cfg.DBDriver)
		}
	default:
		return Config{}, fmt.Errorf("unknown CANVAS_DB_DRIVER %q", cfg.DBDriver)
	}

	var err error
	if cfg.SaveDebounce, err = duration(getenv("CANVAS_SAVE_DEBOUNCE"), time.Second); err != nil {
		return Config{}, fmt.Errorf("CANVAS_SAVE_DEBOUNCE: %w", err)
	}
	if cfg.MinScale, err = float(getenv("CANVAS_MIN_SCALE"), canvas.DefaultMinScale); err != nil {
		return Config{}, fmt.Errorf("CANVAS_MIN_SCALE: %w", err)
	}
	if cfg.MaxScale, err = float(getenv("CANVAS_MAX_SCALE"), canvas.DefaultMaxScale); err != nil {
		return Config{}, fmt.Errorf("CANVAS_MAX_SCALE: %w", err)
	}
	if cfg.MinScale <= 0 || cfg.MaxScale < cfg.MinScale {
		return Config{}, fmt.Errorf("invalid zoom range [%v, %v]", cfg.MinScale, cfg.MaxScale)
	}

	return cfg, nil
}

func duration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

func float(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}
