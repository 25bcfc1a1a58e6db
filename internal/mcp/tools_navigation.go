package mcpserver

import (
	"context"
	"fmt"

	"canvasnotes/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerNavigationTools() {
	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all canvas pages"),
	), s.handleListPages)

	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new empty canvas page and make it active"),
		mcp.WithString("name",
			mcp.Description("Name of the new page"),
			mcp.Required(),
		),
	), s.handleCreatePage)

	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Open a page for subsequent tool calls. Tools that accept pageId will default to this."),
		mcp.WithString("pageId",
			mcp.Description("ID of the page to make active"),
			mcp.Required(),
		),
	), s.handleSetActivePage)

	// ── get_scene ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_scene",
		mcp.WithDescription("Show the active page's interaction state: tool, mode, zoom, selection and element count"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGetScene)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.pages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return jsonResult(pages)
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	page, err := s.pages.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	// Auto-set as active page
	if _, err := s.workspace.OpenPage(ctx, page.ID); err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return jsonResult(page)
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	st, err := s.workspace.OpenPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return textResult(fmt.Sprintf("Active page set to %s (%d elements)", st.Page.Name, len(st.Elements))), nil
}

type sceneSummary struct {
	PageID   string   `json:"pageId"`
	Name     string   `json:"name"`
	Tool     string   `json:"tool"`
	Mode     string   `json:"mode"`
	Zoom     float64  `json:"zoom"`
	Selected []string `json:"selected"`
	Elements int      `json:"elements"`
}

func (s *Server) handleGetScene(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sum sceneSummary
	err := s.withPage(ctx, req.GetArguments(), func(ap *service.ActivePage) error {
		sc := ap.Engine.Scene()
		sum = sceneSummary{
			PageID:   ap.Page.ID,
			Name:     ap.Page.Name,
			Tool:     string(sc.Tool),
			Mode:     string(sc.Mode),
			Zoom:     sc.Scale,
			Selected: sc.Selected,
			Elements: len(sc.Elements),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(sum)
}
