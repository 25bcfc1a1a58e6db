package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"canvasnotes/internal/config"
	mcpserver "canvasnotes/internal/mcp"
	"canvasnotes/internal/richtext"
	"canvasnotes/internal/service"
	"canvasnotes/internal/storage"
)

// noopEmitter is a no-op EventEmitter used in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// Every change is written straight to the store, where a running desktop
// app picks it up.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	backend, err := storage.OpenBackend(ctx, cfg.DBDriver, cfg.DBDSN, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer backend.Close()

	emitter := noopEmitter{}
	scenes := service.NewSceneService(backend, emitter, service.SceneOptions{
		Measurer: richtext.NewMeasurer(),
		MinScale: cfg.MinScale,
		MaxScale: cfg.MaxScale,
	})
	workspace := service.NewWorkspace(backend, scenes, emitter)
	defer func() {
		if err := workspace.Close(context.Background()); err != nil {
			log.Printf("[MCP] Close workspace: %v", err)
		}
	}()
	pages := service.NewPageService(backend, scenes, workspace, emitter)

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:   emitter,
		Pages:     pages,
		Scenes:    scenes,
		Workspace: workspace,
	})

	log.Println("[MCP] Starting standalone stdio server...")
	if err := mcpSrv.ServeStdio(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
