package mcpserver

import (
	"context"
	"fmt"
	"math"
	"sort"

	"canvasnotes/internal/canvas"
	"canvasnotes/internal/domain"
	"canvasnotes/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

// gesturePointer is the pointer id used for agent gestures.
const gesturePointer = 1

// gestureSteps is how many moves a simulated drag is split into.
const gestureSteps = 4

func (s *Server) registerInteractionTools() {
	s.mcp.AddTool(mcp.NewTool("select_elements",
		mcp.WithDescription("Select elements by ID"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("elementIds", mcp.Description("Comma-separated element IDs; empty clears the selection")),
		mcp.WithBoolean("additive", mcp.Description("Add to the current selection instead of replacing it")),
	), s.handleSelectElements)

	s.mcp.AddTool(mcp.NewTool("box_select",
		mcp.WithDescription("Select every element intersecting a canvas-space box"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("x", mcp.Description("Box X"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Box Y"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Box width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Box height"), mcp.Required()),
		mcp.WithBoolean("additive", mcp.Description("Add to the current selection instead of replacing it")),
	), s.handleBoxSelect)

	s.mcp.AddTool(mcp.NewTool("set_tool",
		mcp.WithDescription("Activate a tool: select, text, rect, circle, draw, code, expandable, eraser"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("tool", mcp.Description("Tool name"), mcp.Required()),
	), s.handleSetTool)

	s.mcp.AddTool(mcp.NewTool("set_zoom",
		mcp.WithDescription("Set the page zoom. The value is clamped to the allowed range."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("zoom", mcp.Description("Zoom factor, 1 is 100%"), mcp.Required()),
	), s.handleSetZoom)

	s.mcp.AddTool(mcp.NewTool("pointer_gesture",
		mcp.WithDescription("Perform a press-drag-release with the active tool, in canvas coordinates. "+
			"Use it to draw, drag-create, move, box-select or erase the way a user would."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("tool", mcp.Description("Tool to activate first (optional)")),
		mcp.WithNumber("fromX", mcp.Description("Press X"), mcp.Required()),
		mcp.WithNumber("fromY", mcp.Description("Press Y"), mcp.Required()),
		mcp.WithNumber("toX", mcp.Description("Release X (optional, defaults to fromX)")),
		mcp.WithNumber("toY", mcp.Description("Release Y (optional, defaults to fromY)")),
		mcp.WithString("elementId", mcp.Description("Element under the press, with handle (optional)")),
		mcp.WithString("handle", mcp.Description("Resize handle grabbed on elementId (optional)")),
		mcp.WithBoolean("shift", mcp.Description("Hold shift for additive selection")),
	), s.handlePointerGesture)
}

func (s *Server) handleSelectElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids := splitIDs(req.GetString("elementIds", ""))
	var selected []string
	err := s.withPage(ctx, args, func(ap *service.ActivePage) error {
		ap.Engine.Select(getBool(args, "additive"), ids...)
		selected = ap.Engine.Selected()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"selected": selected})
}

func (s *Server) handleBoxSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	box := canvas.RectFromPoints(
		domain.Point{X: getFloat(args, "x", 0), Y: getFloat(args, "y", 0)},
		domain.Point{
			X: getFloat(args, "x", 0) + getFloat(args, "width", 0),
			Y: getFloat(args, "y", 0) + getFloat(args, "height", 0),
		},
	)
	var hit, selected []string
	err := s.withPage(ctx, args, func(ap *service.ActivePage) error {
		hit = ap.Engine.SelectBox(box, getBool(args, "additive"))
		selected = ap.Engine.Selected()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"hit": hit, "selected": selected})
}

func (s *Server) handleSetTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool, err := canvas.ParseTool(req.GetString("tool", ""))
	if err != nil {
		return nil, err
	}
	err = s.withPage(ctx, req.GetArguments(), func(ap *service.ActivePage) error {
		ap.Engine.SetTool(tool)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Tool set to %s", tool)), nil
}

func (s *Server) handleSetZoom(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if err := s.withPage(ctx, args, func(*service.ActivePage) error { return nil }); err != nil {
		return nil, err
	}
	zoom, err := s.workspace.SetZoom(ctx, getFloat(args, "zoom", 1))
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Zoom set to %.2f", zoom)), nil
}

type gestureResult struct {
	Mode     string           `json:"mode"`
	Selected []string         `json:"selected"`
	Created  []elementSummary `json:"created,omitempty"`
	Removed  []string         `json:"removed,omitempty"`
}

// handlePointerGesture drives the engine's pointer state machine with a
// press, a few moves and a release. Origin is zero, so screen points are
// canvas points times the scale.
func (s *Server) handlePointerGesture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	var tool canvas.Tool
	if name := req.GetString("tool", ""); name != "" {
		t, err := canvas.ParseTool(name)
		if err != nil {
			return nil, err
		}
		tool = t
	}
	target := canvas.Target{Region: canvas.RegionAuto}
	if hname := req.GetString("handle", ""); hname != "" {
		h, err := canvas.ParseHandle(hname)
		if err != nil {
			return nil, err
		}
		id := req.GetString("elementId", "")
		if id == "" {
			return nil, fmt.Errorf("handle needs elementId")
		}
		target = canvas.Target{Region: canvas.RegionHandle, ElementID: id, Handle: h}
	}

	from := domain.Point{X: getFloat(args, "fromX", 0), Y: getFloat(args, "fromY", 0)}
	to := domain.Point{X: getFloat(args, "toX", from.X), Y: getFloat(args, "toY", from.Y)}
	shift := getBool(args, "shift")

	var res gestureResult
	err := s.withPage(ctx, args, func(ap *service.ActivePage) error {
		eng := ap.Engine
		if tool != "" {
			eng.SetTool(tool)
		}
		before := make(map[string]bool)
		for _, el := range eng.Elements() {
			before[el.ID] = true
		}

		scale := eng.Scale()
		ev := func(p domain.Point, t canvas.Target) canvas.PointerEvent {
			return canvas.PointerEvent{
				PointerID: gesturePointer,
				Screen:    canvas.ToScreen(p, domain.Point{}, scale),
				Shift:     shift,
				Target:    t,
			}
		}

		eng.PointerDown(ev(from, target))
		res.Mode = string(eng.Mode())
		for i := 1; i <= gestureSteps; i++ {
			f := float64(i) / gestureSteps
			p := domain.Point{X: lerp(from.X, to.X, f), Y: lerp(from.Y, to.Y, f)}
			eng.PointerMove(ev(p, canvas.Target{}))
		}
		eng.PointerUp(ev(to, canvas.Target{}))

		after := make(map[string]bool)
		for _, el := range eng.Elements() {
			after[el.ID] = true
			if !before[el.ID] {
				res.Created = append(res.Created, summarizeElement(el))
			}
		}
		for id := range before {
			if !after[id] {
				res.Removed = append(res.Removed, id)
			}
		}
		sort.Strings(res.Removed)
		res.Selected = eng.Selected()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "pointer_gesture")
	return jsonResult(res)
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*math.Min(1, f)
}
