package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"canvasnotes/internal/domain"
	"canvasnotes/internal/service"
	"canvasnotes/internal/storage"
)

func newTestServer(t *testing.T, approval bool) (*Server, *service.MockEmitter) {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	b := storage.NewSQLBackend(db)
	t.Cleanup(func() { b.Close() })

	emitter := &service.MockEmitter{}
	scenes := service.NewSceneService(b, emitter, service.SceneOptions{})
	ws := service.NewWorkspace(b, scenes, emitter)
	pages := service.NewPageService(b, scenes, ws, emitter)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := New(ctx, Deps{
		Emitter:         emitter,
		Pages:           pages,
		Scenes:          scenes,
		Workspace:       ws,
		RequireApproval: approval,
	})
	return s, emitter
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return tc.Text
}

func createPage(t *testing.T, s *Server) string {
	t.Helper()
	res, err := s.handleCreatePage(context.Background(), call(map[string]any{"name": "Board"}))
	if err != nil {
		t.Fatalf("create_page: %v", err)
	}
	var p domain.Page
	if err := json.Unmarshal([]byte(resultText(t, res)), &p); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return p.ID
}

func addRect(t *testing.T, s *Server, args map[string]any) string {
	t.Helper()
	args["kind"] = "rectangle"
	res, err := s.handleAddElement(context.Background(), call(args))
	if err != nil {
		t.Fatalf("add_element: %v", err)
	}
	var out struct{ ID string }
	_ = json.Unmarshal([]byte(resultText(t, res)), &out)
	return out.ID
}

func elements(t *testing.T, s *Server) []domain.Element {
	t.Helper()
	st, err := s.workspace.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return st.Elements
}

func TestExtractPageIDFromURI(t *testing.T) {
	tests := []struct {
		uri, want string
	}{
		{"canvas://page/abc-123/elements", "abc-123"},
		{"canvas://page//elements", ""},
		{"canvas://page/a/b/elements", ""},
		{"canvas://pages", ""},
		{"notes://page/abc/elements", ""},
	}
	for _, tt := range tests {
		if got := extractPageIDFromURI(tt.uri); got != tt.want {
			t.Errorf("extractPageIDFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestBuildElement(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		kind    domain.ElementKind
		sized   bool
		wantErr bool
	}{
		{"text", map[string]any{"kind": "text", "content": "<p>hi</p>"}, domain.KindText, false, false},
		{"rectangle", map[string]any{"kind": "rectangle"}, domain.KindRectangle, true, false},
		{"code", map[string]any{"kind": "code"}, domain.KindCode, true, false},
		{"expandable", map[string]any{"kind": "expandable", "body": "<p>b</p>"}, domain.KindExpandable, true, false},
		{"path", map[string]any{"kind": "path", "pointsJSON": `[{"x":0,"y":0},{"x":5,"y":5}]`}, domain.KindPath, false, false},
		{"path without points", map[string]any{"kind": "path"}, "", false, true},
		{"image without src", map[string]any{"kind": "image"}, "", false, true},
		{"unknown", map[string]any{"kind": "triangle"}, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := buildElement(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if el.Kind() != tt.kind {
				t.Errorf("kind = %q, want %q", el.Kind(), tt.kind)
			}
			if (el.Size != nil) != tt.sized {
				t.Errorf("size = %+v", el.Size)
			}
		})
	}
}

func TestBuildElement_ExpandableDefaultTitle(t *testing.T) {
	el, err := buildElement(map[string]any{"kind": "expandable"})
	if err != nil {
		t.Fatal(err)
	}
	ex := el.Shape.(domain.Expandable)
	if ex.Title() != "Section" {
		t.Errorf("title = %q", ex.Title())
	}
}

func TestTools_RequireActivePage(t *testing.T) {
	s, _ := newTestServer(t, false)
	_, err := s.handleListElements(context.Background(), call(map[string]any{}))
	if err == nil || !strings.Contains(err.Error(), "set_active_page") {
		t.Errorf("got %v", err)
	}
}

func TestAddElement_AutoPlacesWithoutOverlap(t *testing.T) {
	s, emitter := newTestServer(t, false)
	createPage(t, s)

	addRect(t, s, map[string]any{})
	addRect(t, s, map[string]any{})

	els := elements(t, s)
	if len(els) != 2 {
		t.Fatalf("got %d elements", len(els))
	}
	a, b := els[0], els[1]
	if a.X == b.X && a.Y == b.Y {
		t.Errorf("both placed at (%.0f, %.0f)", a.X, a.Y)
	}
	if n := len(emitter.Named(EventActivity)); n != 2 {
		t.Errorf("activity events = %d", n)
	}
}

func TestMoveAndResize(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t, false)
	createPage(t, s)
	id := addRect(t, s, map[string]any{"x": 0.0, "y": 0.0, "width": 100.0, "height": 100.0})

	if _, err := s.handleMoveElements(ctx, call(map[string]any{"elementIds": id, "dx": 10.0, "dy": 20.0})); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := s.handleResizeElement(ctx, call(map[string]any{
		"elementId": id, "handle": "nw", "dx": 150.0, "dy": 0.0,
	})); err != nil {
		t.Fatalf("resize: %v", err)
	}
	el := elements(t, s)[0]
	// Dragging the west edge past the east edge clamps to the minimum
	// width with the east edge fixed at x=110.
	if el.Size.Width != 20 || el.X != 90 || el.Y != 20 {
		t.Errorf("element = (%.0f, %.0f) %+v", el.X, el.Y, el.Size)
	}

	if _, err := s.handleResizeElement(ctx, call(map[string]any{"elementId": id, "handle": "x"})); err == nil {
		t.Error("expected error for unknown handle")
	}
}

func TestDeleteElements_WithoutApproval(t *testing.T) {
	s, _ := newTestServer(t, false)
	createPage(t, s)
	id := addRect(t, s, map[string]any{})

	res, err := s.handleDeleteElements(context.Background(), call(map[string]any{"elementIds": id}))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := resultText(t, res); got != "Deleted 1 elements" {
		t.Errorf("result = %q", got)
	}
	if len(elements(t, s)) != 0 {
		t.Error("element survived")
	}
}

// waitPending runs on its own goroutine, so it reports with t.Error.
func waitPending(t *testing.T, q *ApprovalQueue) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if pending := q.Pending(); len(pending) == 1 {
			return pending[0].ID
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("no approval request arrived")
	return ""
}

func TestDeleteElements_ApprovedAndRejected(t *testing.T) {
	ctx := context.Background()
	s, emitter := newTestServer(t, true)
	createPage(t, s)
	keep := addRect(t, s, map[string]any{})
	drop := addRect(t, s, map[string]any{})

	go func() { s.Reject(waitPending(t, s.approval)) }()
	res, err := s.handleDeleteElements(ctx, call(map[string]any{"elementIds": keep}))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := resultText(t, res); got != "Action rejected by user" {
		t.Errorf("result = %q", got)
	}

	go func() { s.Approve(waitPending(t, s.approval)) }()
	if _, err := s.handleDeleteElements(ctx, call(map[string]any{"elementIds": drop})); err != nil {
		t.Fatalf("delete: %v", err)
	}

	els := elements(t, s)
	if len(els) != 1 || els[0].ID != keep {
		t.Errorf("elements = %+v", els)
	}
	if n := len(emitter.Named(EventApprovalRequired)); n != 2 {
		t.Errorf("approval requests = %d", n)
	}
}

func TestPointerGesture_DragCreatesRect(t *testing.T) {
	s, _ := newTestServer(t, false)
	createPage(t, s)

	res, err := s.handlePointerGesture(context.Background(), call(map[string]any{
		"tool": "rect", "fromX": 10.0, "fromY": 10.0, "toX": 110.0, "toY": 60.0,
	}))
	if err != nil {
		t.Fatalf("gesture: %v", err)
	}
	var out gestureResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.Mode != "creating" || len(out.Created) != 1 {
		t.Fatalf("result = %+v", out)
	}
	c := out.Created[0]
	if c.Kind != "rectangle" || c.X != 10 || c.Y != 10 || c.Width != 100 || c.Height != 50 {
		t.Errorf("created = %+v", c)
	}
}

func TestPointerGesture_BoxSelectAtZoom(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t, false)
	createPage(t, s)
	inside := addRect(t, s, map[string]any{"x": 20.0, "y": 20.0, "width": 30.0, "height": 30.0})
	addRect(t, s, map[string]any{"x": 500.0, "y": 500.0, "width": 30.0, "height": 30.0})

	if _, err := s.handleSetZoom(ctx, call(map[string]any{"zoom": 2.0})); err != nil {
		t.Fatalf("zoom: %v", err)
	}
	res, err := s.handlePointerGesture(ctx, call(map[string]any{
		"tool": "select", "fromX": 0.0, "fromY": 0.0, "toX": 100.0, "toY": 100.0,
	}))
	if err != nil {
		t.Fatalf("gesture: %v", err)
	}
	var out gestureResult
	_ = json.Unmarshal([]byte(resultText(t, res)), &out)
	if len(out.Selected) != 1 || out.Selected[0] != inside {
		t.Errorf("selected = %v, want [%s]", out.Selected, inside)
	}
}

func TestBoxSelectAndSetTool(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t, false)
	createPage(t, s)
	a := addRect(t, s, map[string]any{"x": 0.0, "y": 0.0, "width": 50.0, "height": 50.0})

	if _, err := s.handleBoxSelect(ctx, call(map[string]any{"x": 40.0, "y": 40.0, "width": 100.0, "height": 100.0})); err != nil {
		t.Fatalf("box_select: %v", err)
	}
	var sel []string
	_ = s.workspace.Do(func(ap *service.ActivePage) error { sel = ap.Engine.Selected(); return nil })
	if len(sel) != 1 || sel[0] != a {
		t.Errorf("selected = %v", sel)
	}

	if _, err := s.handleSetTool(ctx, call(map[string]any{"tool": "lasso"})); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestPrompts_RenderArgument(t *testing.T) {
	for _, p := range canvasPrompts {
		t.Run(p.name, func(t *testing.T) {
			var req mcp.GetPromptRequest
			req.Params.Arguments = map[string]string{p.arg: " Billing "}
			res, err := p.handle(context.Background(), req)
			if err != nil {
				t.Fatalf("handle: %v", err)
			}
			if !strings.Contains(res.Description, "Billing") || len(res.Messages) != 1 {
				t.Errorf("result = %+v", res)
			}
			text, ok := res.Messages[0].Content.(mcp.TextContent)
			if !ok || !strings.Contains(text.Text, `"Billing"`) || strings.Contains(text.Text, "%!") {
				t.Errorf("message = %+v", res.Messages[0].Content)
			}

			req.Params.Arguments = nil
			if _, err := p.handle(context.Background(), req); err == nil {
				t.Error("expected error for missing argument")
			}
		})
	}
}
