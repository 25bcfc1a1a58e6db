package app

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"canvasnotes/internal/service"
)

const (
	EventCommandMenuOpen  = "command-menu:open"
	EventCommandMenuClose = "command-menu:close"
	EventCommandRun       = "command-menu:run"
)

// commandTokens are the slash commands the frontend editor implements.
var commandTokens = []string{
	"heading",
	"subheading",
	"bullet-list",
	"numbered-list",
	"quote",
	"code",
	"divider",
	"image",
}

// commandMenu hands the slash menu to the frontend. The rich-text editor
// applies a chosen command to the element and reports the new content
// back through SetContent.
type commandMenu struct {
	ctx     context.Context
	emitter service.EventEmitter
}

func newCommandMenu(ctx context.Context, emitter service.EventEmitter) *commandMenu {
	return &commandMenu{ctx: ctx, emitter: emitter}
}

func (m *commandMenu) Open(elementID string) {
	m.emitter.Emit(m.ctx, EventCommandMenuOpen, map[string]any{
		"elementId": elementID,
		"commands":  commandTokens,
	})
}

func (m *commandMenu) Close() {
	m.emitter.Emit(m.ctx, EventCommandMenuClose, nil)
}

func (m *commandMenu) Run(elementID, token string) error {
	if !lo.Contains(commandTokens, token) {
		return fmt.Errorf("unknown command %q", token)
	}
	m.emitter.Emit(m.ctx, EventCommandRun, map[string]string{
		"elementId": elementID,
		"command":   token,
	})
	return nil
}
