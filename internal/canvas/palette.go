package canvas

import "fmt"

type Tool string

const (
	ToolSelect     Tool = "select"
	ToolText       Tool = "text"
	ToolRect       Tool = "rect"
	ToolCircle     Tool = "circle"
	ToolDraw       Tool = "draw"
	ToolCode       Tool = "code"
	ToolExpandable Tool = "expandable"
	ToolEraser     Tool = "eraser"
)

var Tools = []Tool{ToolSelect, ToolText, ToolRect, ToolCircle, ToolDraw, ToolCode, ToolExpandable, ToolEraser}

func ParseTool(s string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// Cursor is the CSS cursor name the host shows for the tool.
func (t Tool) Cursor() string {
	switch t {
	case ToolSelect:
		return "default"
	case ToolText, ToolCode, ToolExpandable:
		return "text"
	case ToolEraser:
		return "cell"
	default:
		return "crosshair"
	}
}

// PlacesOnClick reports tools that create an element on pointer-down
// without a drag phase.
func (t Tool) PlacesOnClick() bool {
	return t == ToolText || t == ToolCode || t == ToolExpandable
}

// DragsToCreate reports tools whose element is sized by dragging.
func (t Tool) DragsToCreate() bool {
	return t == ToolRect || t == ToolCircle || t == ToolDraw
}

// Modes lists the interaction modes a pointer-down on empty canvas or on
// an element can reach with this tool. Resizing is reachable from every
// tool through a handle.
func (t Tool) Modes() []Mode {
	switch {
	case t == ToolSelect:
		return []Mode{ModeIdle, ModeBoxSelect, ModeMoving, ModeResizing}
	case t == ToolEraser:
		return []Mode{ModeIdle, ModeErasing, ModeResizing}
	case t.DragsToCreate():
		return []Mode{ModeIdle, ModeCreating, ModeResizing}
	default:
		return []Mode{ModeIdle, ModeResizing}
	}
}

// Palette holds the single active tool.
type Palette struct {
	active   Tool
	onSwitch func(from, to Tool)
}

func NewPalette() *Palette {
	return &Palette{active: ToolSelect}
}

func (p *Palette) Active() Tool { return p.active }

// Select activates t. The switch hook runs even when t is already active.
func (p *Palette) Select(t Tool) {
	from := p.active
	p.active = t
	if p.onSwitch != nil {
		p.onSwitch(from, t)
	}
}
