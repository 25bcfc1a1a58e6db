package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"canvasnotes/internal/canvas"
	"canvasnotes/internal/domain"
	"canvasnotes/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerElementTools() {
	s.mcp.AddTool(mcp.NewTool("list_elements",
		mcp.WithDescription("List all elements on a page in paint order with their IDs, kinds, positions and sizes"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleListElements)

	s.mcp.AddTool(mcp.NewTool("add_element",
		mcp.WithDescription("Add an element to a page. Omit x and y to auto-place it clear of existing elements."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("kind", mcp.Description("Element kind: text, rectangle, circle, path, image, code, expandable"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("X position (optional)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional)")),
		mcp.WithNumber("width", mcp.Description("Width (optional)")),
		mcp.WithNumber("height", mcp.Description("Height (optional)")),
		mcp.WithString("content", mcp.Description("HTML content for text and code, title for expandable, image URL for image")),
		mcp.WithString("body", mcp.Description("Body HTML of an expandable section (optional)")),
		mcp.WithString("pointsJSON", mcp.Description(`Path points relative to x/y, e.g. [{"x":0,"y":0},{"x":40,"y":30}]`)),
		mcp.WithString("strokeColor", mcp.Description("Stroke color hex (optional)")),
		mcp.WithString("fillColor", mcp.Description("Fill color hex (optional, e.g. #3b82f6)")),
		mcp.WithNumber("strokeWidth", mcp.Description("Stroke width (optional)")),
	), s.handleAddElement)

	s.mcp.AddTool(mcp.NewTool("move_elements",
		mcp.WithDescription("Translate elements by a canvas-space offset"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("elementIds", mcp.Description("Comma-separated element IDs"), mcp.Required()),
		mcp.WithNumber("dx", mcp.Description("Horizontal offset"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Vertical offset"), mcp.Required()),
	), s.handleMoveElements)

	s.mcp.AddTool(mcp.NewTool("resize_element",
		mcp.WithDescription("Drag one resize handle of an element by an offset. The opposite edges stay fixed and minimum sizes apply."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithString("handle", mcp.Description("Handle: n, s, e, w, ne, nw, se, sw"), mcp.Required()),
		mcp.WithNumber("dx", mcp.Description("Horizontal drag offset"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Vertical drag offset"), mcp.Required()),
	), s.handleResizeElement)

	s.mcp.AddTool(mcp.NewTool("set_content",
		mcp.WithDescription("Replace the content of a text, code, expandable or image element"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithString("content", mcp.Description("New content"), mcp.Required()),
	), s.handleSetContent)

	s.mcp.AddTool(mcp.NewTool("toggle_expanded",
		mcp.WithDescription("Expand or collapse an expandable section"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
	), s.handleToggleExpanded)

	s.mcp.AddTool(mcp.NewTool("set_style",
		mcp.WithDescription("Set the style of elements. Omitted fields are cleared."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("elementIds", mcp.Description("Comma-separated element IDs"), mcp.Required()),
		mcp.WithString("strokeColor", mcp.Description("Stroke color hex")),
		mcp.WithString("fillColor", mcp.Description("Fill color hex")),
		mcp.WithNumber("strokeWidth", mcp.Description("Stroke width")),
		mcp.WithNumber("fontSize", mcp.Description("Font size")),
	), s.handleSetStyle)

	s.mcp.AddTool(mcp.NewTool("arrange_elements",
		mcp.WithDescription("Lay elements out in grid rows starting at a point"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("elementIds", mcp.Description("Comma-separated element IDs, in layout order"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("Start X (optional, default 0)")),
		mcp.WithNumber("y", mcp.Description("Start Y (optional, default 0)")),
	), s.handleArrangeElements)

	s.mcp.AddTool(mcp.NewTool("delete_elements",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove elements by ID. Requires user approval."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("elementIds", mcp.Description("Comma-separated element IDs"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteElements)
}

func (s *Server) handleListElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out []elementSummary
	err := s.withPage(ctx, req.GetArguments(), func(ap *service.ActivePage) error {
		out = summarizeAll(ap.Engine.Elements())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(out)
}

func (s *Server) handleAddElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	el, err := buildElement(args)
	if err != nil {
		return nil, err
	}

	var id string
	err = s.withPage(ctx, args, func(ap *service.ActivePage) error {
		if !hasArg(args, "x") || !hasArg(args, "y") {
			b := canvas.Bounds(el)
			el.X, el.Y = s.layout.NextPosition(ap.Engine.Elements(), b.W, b.H)
		}
		var err error
		id, err = ap.Engine.Add(el)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add element: %w", err)
	}
	s.emitActivity(ctx, "add_element")
	return jsonResult(map[string]any{"id": id, "x": el.X, "y": el.Y})
}

// buildElement turns add_element arguments into an element without an id.
func buildElement(args map[string]any) (domain.Element, error) {
	kind, _ := args["kind"].(string)
	content, _ := args["content"].(string)
	el := domain.Element{
		X:     getFloat(args, "x", 0),
		Y:     getFloat(args, "y", 0),
		Style: styleFromArgs(args),
	}

	var w, h float64
	switch domain.ElementKind(strings.ToLower(kind)) {
	case domain.KindText:
		el.Shape = domain.Text{Content: content}
	case domain.KindRectangle:
		el.Shape = domain.Rectangle{}
		w, h = 120, 80
	case domain.KindCircle:
		el.Shape = domain.Circle{}
		w, h = 100, 100
	case domain.KindImage:
		if content == "" {
			return el, fmt.Errorf("image needs a content URL")
		}
		el.Shape = domain.Image{Src: content}
	case domain.KindCode:
		el.Shape = domain.Code{Content: content}
		w, h = canvas.DefaultCodeWidth, canvas.DefaultCodeHeight
	case domain.KindExpandable:
		title := content
		if title == "" {
			title = canvas.DefaultExpandableTitle
		}
		body, _ := args["body"].(string)
		el.Shape = domain.Expandable{Content: domain.JoinExpandable(title, body)}
		w, h = canvas.DefaultExpandableWidth, canvas.DefaultExpandableHeight
	case domain.KindPath:
		raw, _ := args["pointsJSON"].(string)
		var pts []domain.Point
		if err := json.Unmarshal([]byte(raw), &pts); err != nil || len(pts) == 0 {
			return el, fmt.Errorf("path needs pointsJSON with at least one point")
		}
		el.Shape = domain.Path{Points: pts}
		return el, nil
	default:
		return el, fmt.Errorf("unknown element kind %q", kind)
	}

	w = getFloat(args, "width", w)
	h = getFloat(args, "height", h)
	if w > 0 || h > 0 {
		el.Size = &domain.Size{Width: w, Height: h}
	}
	return el, nil
}

func styleFromArgs(args map[string]any) *domain.Style {
	st := domain.Style{
		StrokeWidth: getFloat(args, "strokeWidth", 0),
		FontSize:    getFloat(args, "fontSize", 0),
	}
	st.StrokeColor, _ = args["strokeColor"].(string)
	st.FillColor, _ = args["fillColor"].(string)
	if st == (domain.Style{}) {
		return nil
	}
	return &st
}

func (s *Server) handleMoveElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids := splitIDs(req.GetString("elementIds", ""))
	if len(ids) == 0 {
		return nil, fmt.Errorf("elementIds is required")
	}
	var n int
	err := s.withPage(ctx, args, func(ap *service.ActivePage) error {
		n = ap.Engine.Translate(ids, getFloat(args, "dx", 0), getFloat(args, "dy", 0))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "move_elements")
	return textResult(fmt.Sprintf("Moved %d of %d elements", n, len(ids))), nil
}

func (s *Server) handleResizeElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := req.GetString("elementId", "")
	h, err := canvas.ParseHandle(req.GetString("handle", ""))
	if err != nil {
		return nil, err
	}

	var (
		r  canvas.Rect
		ok bool
	)
	err = s.withPage(ctx, args, func(ap *service.ActivePage) error {
		r, ok = ap.Engine.ResizeElement(id, h, getFloat(args, "dx", 0), getFloat(args, "dy", 0))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("element %s not found or not resizable", id)
	}
	s.emitActivity(ctx, "resize_element")
	return jsonResult(r)
}

func (s *Server) handleSetContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("elementId", "")
	content := req.GetString("content", "")
	var ok bool
	err := s.withPage(ctx, req.GetArguments(), func(ap *service.ActivePage) error {
		ok = ap.Engine.SetContent(id, content)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("element %s not found", id)
	}
	s.emitActivity(ctx, "set_content")
	return textResult(fmt.Sprintf("Element %s updated", id)), nil
}

func (s *Server) handleToggleExpanded(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("elementId", "")
	var ok bool
	err := s.withPage(ctx, req.GetArguments(), func(ap *service.ActivePage) error {
		ok = ap.Engine.ToggleExpanded(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("element %s is not an expandable section", id)
	}
	s.emitActivity(ctx, "toggle_expanded")
	return textResult(fmt.Sprintf("Element %s toggled", id)), nil
}

func (s *Server) handleSetStyle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids := splitIDs(req.GetString("elementIds", ""))
	if len(ids) == 0 {
		return nil, fmt.Errorf("elementIds is required")
	}
	st := styleFromArgs(args)
	var n int
	err := s.withPage(ctx, args, func(ap *service.ActivePage) error {
		n = ap.Engine.SetStyle(ids, st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "set_style")
	return textResult(fmt.Sprintf("Styled %d of %d elements", n, len(ids))), nil
}

func (s *Server) handleArrangeElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids := splitIDs(req.GetString("elementIds", ""))
	if len(ids) == 0 {
		return nil, fmt.Errorf("elementIds is required")
	}
	var out []elementSummary
	err := s.withPage(ctx, args, func(ap *service.ActivePage) error {
		var els []domain.Element
		for _, id := range ids {
			if el, ok := ap.Engine.Element(id); ok {
				els = append(els, el)
			}
		}
		origins := make([]domain.Point, len(els))
		for i, el := range els {
			origins[i] = domain.Point{X: el.X, Y: el.Y}
		}
		els = s.layout.ArrangeGroup(els, getFloat(args, "x", 0), getFloat(args, "y", 0))
		for i, el := range els {
			ap.Engine.Translate([]string{el.ID}, el.X-origins[i].X, el.Y-origins[i].Y)
		}
		out = summarizeAll(els)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "arrange_elements")
	return jsonResult(out)
}

func (s *Server) handleDeleteElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids := splitIDs(req.GetString("elementIds", ""))
	if len(ids) == 0 {
		return nil, fmt.Errorf("elementIds is required")
	}

	// Describe the targets for the approval prompt, then wait outside the
	// workspace lock.
	var names []string
	var pageID string
	err := s.withPage(ctx, args, func(ap *service.ActivePage) error {
		pageID = ap.Page.ID
		for _, id := range ids {
			if el, ok := ap.Engine.Element(id); ok {
				names = append(names, fmt.Sprintf("%s (%s)", el.Kind(), id))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("none of the elements exist")
	}

	desc := "Delete " + strings.Join(names, ", ")
	if err := s.confirm(ctx, "delete_elements", desc, pageID, ids); err != nil {
		if errors.Is(err, ErrRejected) {
			return textResult("Action rejected by user"), nil
		}
		return nil, err
	}

	var removed []string
	err = s.withPage(ctx, args, func(ap *service.ActivePage) error {
		removed = ap.Engine.Delete(ids...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "delete_elements")
	return textResult(fmt.Sprintf("Deleted %d elements", len(removed))), nil
}

func (s *Server) emitActivity(ctx context.Context, tool string) {
	if s.emitter == nil {
		return
	}
	page, _ := s.workspace.Active()
	s.emitter.Emit(ctx, EventActivity, map[string]string{"tool": tool, "pageId": page.ID})
}
