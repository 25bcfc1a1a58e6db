package service

import (
	"context"
	"fmt"
	"strconv"
)

// ─────────────────────────────────────────────────────────────
// Settings Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the main window size and the last opened page
// between sessions. Values live in the backend's key-value settings.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type settingsStore interface {
	GetSetting(ctx context.Context, name string) (string, bool, error)
	SetSetting(ctx context.Context, name, value string) error
}

// SettingsService persists UI preferences between sessions.
type SettingsService struct {
	store settingsStore
}

// NewSettingsService creates a SettingsService. A nil store yields the
// defaults and refuses writes.
func NewSettingsService(store settingsStore) *SettingsService {
	return &SettingsService{store: store}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	settingLastPage     = "last_page"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
	minWindowWidth      = 800
	minWindowHeight     = 600
)

// LoadWindowSize returns the saved window dimensions, or sensible defaults.
func (s *SettingsService) LoadWindowSize(ctx context.Context) WindowSize {
	w := s.intSetting(ctx, settingWindowWidth, defaultWindowWidth)
	h := s.intSetting(ctx, settingWindowHeight, defaultWindowHeight)
	if w < minWindowWidth {
		w = defaultWindowWidth
	}
	if h < minWindowHeight {
		h = defaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

// SaveWindowSize persists the current window dimensions.
func (s *SettingsService) SaveWindowSize(ctx context.Context, width, height int) error {
	if s.store == nil {
		return fmt.Errorf("window settings: no store")
	}
	if err := s.store.SetSetting(ctx, settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.store.SetSetting(ctx, settingWindowHeight, strconv.Itoa(height))
}

// LastPage returns the id of the page open when the app last closed.
func (s *SettingsService) LastPage(ctx context.Context) string {
	if s.store == nil {
		return ""
	}
	v, _, err := s.store.GetSetting(ctx, settingLastPage)
	if err != nil {
		return ""
	}
	return v
}

func (s *SettingsService) SetLastPage(ctx context.Context, pageID string) error {
	if s.store == nil {
		return fmt.Errorf("last page: no store")
	}
	return s.store.SetSetting(ctx, settingLastPage, pageID)
}

func (s *SettingsService) intSetting(ctx context.Context, name string, def int) int {
	if s.store == nil {
		return def
	}
	v, ok, err := s.store.GetSetting(ctx, name)
	if err != nil || !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
