package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"canvasnotes/internal/canvas"
	"canvasnotes/internal/config"
	"canvasnotes/internal/domain"
	mcpserver "canvasnotes/internal/mcp"
	"canvasnotes/internal/richtext"
	"canvasnotes/internal/scenefile"
	"canvasnotes/internal/service"
	"canvasnotes/internal/storage"
)

// EventCanvasChanged carries a SceneView after every interaction.
const EventCanvasChanged = "canvas:changed"

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx  context.Context
	cfg  config.Config
	emit service.EventEmitter

	backend   storage.Backend
	settings  *service.SettingsService
	scenes    *service.SceneService
	workspace *service.Workspace
	pages     *service.PageService
	backups   *service.BackupService
	watcher   *scenefile.Watcher
	poller    *storePoller
	mcp       *mcpserver.Server

	// Guarded by the workspace lock.
	keys    *canvas.KeyHub
	mounted *canvas.Engine
	unmount func()

	// Set by the frontend while a rich-text surface has focus.
	editorFocused atomic.Bool
}

// New creates a new App.
func New() *App {
	return &App{}
}

// wailsEmitter sends service events to the frontend. Services emit with
// background contexts, so it always uses the app's Wails context.
type wailsEmitter struct {
	ctx context.Context
}

func (w wailsEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(w.ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load()
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to load config: %v", err)
		return
	}
	backend, err := storage.OpenBackend(ctx, cfg.DBDriver, cfg.DBDSN, cfg.MongoDB)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open database: %v", err)
		return
	}
	if err := a.wire(ctx, cfg, backend, wailsEmitter{ctx: ctx}); err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to start: %v", err)
		return
	}
	wailsRuntime.LogInfof(ctx, "Using %s store, scenes mirrored to %q", cfg.DBDriver, cfg.SceneDir)

	size := a.settings.LoadWindowSize(ctx)
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)

	if cfg.MCPAddr != "" {
		go func() {
			if err := a.mcp.ServeHTTP(cfg.MCPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				wailsRuntime.LogErrorf(ctx, "MCP server stopped: %v", err)
			}
		}()
	}
}

// wire builds the services over backend and restores the last open page.
func (a *App) wire(ctx context.Context, cfg config.Config, backend storage.Backend, emitter service.EventEmitter) error {
	a.cfg = cfg
	a.backend = backend
	a.emit = emitter
	a.keys = canvas.NewKeyHub()

	a.settings = service.NewSettingsService(backend)
	a.scenes = service.NewSceneService(backend, emitter, service.SceneOptions{
		Debounce:  cfg.SaveDebounce,
		MirrorDir: cfg.SceneDir,
		Measurer:  richtext.NewMeasurer(),
		Commands:  newCommandMenu(ctx, emitter),
		Focus:     canvas.FocusFunc(a.editorFocused.Load),
		MinScale:  cfg.MinScale,
		MaxScale:  cfg.MaxScale,
	})
	a.workspace = service.NewWorkspace(backend, a.scenes, emitter)
	a.pages = service.NewPageService(backend, a.scenes, a.workspace, emitter)
	a.backups = service.NewBackupService(backend, backend, cfg.BackupDir, emitter)

	if cfg.SceneDir != "" {
		w, err := scenefile.NewWatcher(func(pageID string, els []domain.Element) {
			if a.workspace.ReloadFromFile(pageID, els) {
				a.refresh()
			}
		})
		if err != nil {
			return fmt.Errorf("watch scene files: %w", err)
		}
		a.watcher = w
		a.workspace.WatchFiles(w)
	}

	if err := a.backups.Start(ctx, cfg.BackupSchedule); err != nil {
		return err
	}

	if cfg.MCPAddr != "" {
		a.mcp = mcpserver.New(ctx, mcpserver.Deps{
			Emitter:         emitter,
			Pages:           a.pages,
			Scenes:          a.scenes,
			Workspace:       a.workspace,
			RequireApproval: true,
		})
	}

	a.poller = newStorePoller(ctx, a.workspace, a.pages, emitter, pollInterval)
	a.poller.onReload = func() { a.refresh() }
	a.poller.Start()

	if id := a.settings.LastPage(ctx); id != "" {
		if _, err := a.workspace.OpenPage(ctx, id); err != nil {
			log.Printf("[APP] Restore page %s: %v", id, err)
		}
	}
	return nil
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.settings != nil {
		w, h := wailsRuntime.WindowGetSize(ctx)
		if err := a.settings.SaveWindowSize(ctx, w, h); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to save window size: %v", err)
		}
	}
	if err := a.close(ctx); err != nil {
		wailsRuntime.LogErrorf(ctx, "Shutdown: %v", err)
	}
}

// close stops background work, writes pending changes and closes the
// backend.
func (a *App) close(ctx context.Context) error {
	var errs []error
	if a.poller != nil {
		a.poller.Stop()
	}
	if a.mcp != nil {
		if err := a.mcp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mcp: %w", err))
		}
	}
	if a.backups != nil {
		a.backups.Stop(ctx)
	}
	if a.workspace != nil {
		if err := a.workspace.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("watcher: %w", err))
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("backend: %w", err))
		}
	}
	return errors.Join(errs...)
}
