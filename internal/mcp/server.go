package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"canvasnotes/internal/domain"
	"canvasnotes/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the canvas.
// It exposes tools, resources, and prompts so AI agents can draw on pages.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue
	layout   *LayoutEngine

	pages     *service.PageService
	scenes    *service.SceneService
	workspace *service.Workspace

	http *server.StreamableHTTPServer
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter   EventEmitter
	Pages     *service.PageService
	Scenes    *service.SceneService
	Workspace *service.Workspace
	// RequireApproval asks the user before destructive tools run. It needs
	// a frontend listening for approval events.
	RequireApproval bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	s := &Server{
		emitter:   deps.Emitter,
		layout:    NewLayoutEngine(),
		pages:     deps.Pages,
		scenes:    deps.Scenes,
		workspace: deps.Workspace,
	}
	if deps.RequireApproval {
		s.approval = NewApprovalQueue(ctx, deps.Emitter)
	}

	s.mcp = server.NewMCPServer(
		"canvas-notes-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerNavigationTools()
	s.registerElementTools()
	s.registerInteractionTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ServeHTTP serves the MCP streamable HTTP transport on addr until
// Shutdown is called.
func (s *Server) ServeHTTP(addr string) error {
	s.http = server.NewStreamableHTTPServer(s.mcp)
	log.Printf("[MCP] Starting HTTP server on %s", addr)
	return s.http.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	if s.approval != nil {
		s.approval.Approve(actionID)
	}
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	if s.approval != nil {
		s.approval.Reject(actionID)
	}
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// withPage opens the page named by the pageId argument, if any, and runs fn
// against the open page.
func (s *Server) withPage(ctx context.Context, args map[string]any, fn func(ap *service.ActivePage) error) error {
	if pid, ok := args["pageId"].(string); ok && pid != "" {
		if active, open := s.workspace.Active(); !open || active.ID != pid {
			if _, err := s.workspace.OpenPage(ctx, pid); err != nil {
				return err
			}
		}
	}
	err := s.workspace.Do(fn)
	if errors.Is(err, service.ErrNoActivePage) {
		return fmt.Errorf("no pageId provided and no active page set (use set_active_page first)")
	}
	return err
}

// confirm asks the user to approve a destructive action. Without an
// approval queue every action is allowed.
func (s *Server) confirm(ctx context.Context, tool, description, pageID string, ids []string) error {
	if s.approval == nil {
		return nil
	}
	return s.approval.Request(ctx, PendingAction{
		Tool:        tool,
		Description: description,
		PageID:      pageID,
		ElementIDs:  ids,
	})
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func getBool(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func hasArg(args map[string]any, key string) bool {
	_, ok := args[key]
	return ok
}

// splitIDs parses a comma-separated id list.
func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func boolPtr(v bool) *bool { return &v }

// elementSummary is the compact element view returned to agents.
type elementSummary struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Width    float64        `json:"width,omitempty"`
	Height   float64        `json:"height,omitempty"`
	Content  string         `json:"content,omitempty"`
	Expanded *bool          `json:"expanded,omitempty"`
	Style    *domain.Style  `json:"style,omitempty"`
	Points   []domain.Point `json:"points,omitempty"`
}

const previewLen = 120

func summarizeElement(el domain.Element) elementSummary {
	sum := elementSummary{
		ID:    el.ID,
		Kind:  string(el.Kind()),
		X:     el.X,
		Y:     el.Y,
		Style: el.Style,
	}
	if el.Size != nil {
		sum.Width, sum.Height = el.Size.Width, el.Size.Height
	}
	content := el.Content()
	switch sh := el.Shape.(type) {
	case domain.Path:
		sum.Points = sh.Points
	case domain.Expandable:
		sum.Expanded = boolPtr(sh.Expanded)
	}
	if len(content) > previewLen {
		content = content[:previewLen] + "..."
	}
	sum.Content = content
	return sum
}

func summarizeAll(els []domain.Element) []elementSummary {
	out := make([]elementSummary, len(els))
	for i, el := range els {
		out[i] = summarizeElement(el)
	}
	return out
}
