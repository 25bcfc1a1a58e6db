package canvas

import (
	"fmt"
	"math"
	"strings"
)

// DefaultMinSize is the smallest width or height a resize can produce.
const DefaultMinSize = 20.0

// Handle is a resize grab point named by compass direction ("n", "se", ...).
// The empty handle means no resize.
type Handle string

const (
	HandleNone Handle = ""
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleE    Handle = "e"
	HandleW    Handle = "w"
	HandleNE   Handle = "ne"
	HandleNW   Handle = "nw"
	HandleSE   Handle = "se"
	HandleSW   Handle = "sw"
)

// Handles lists the eight grab points.
var Handles = []Handle{HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW, HandleNW}

// ParseHandle validates a compass code.
func ParseHandle(s string) (Handle, error) {
	h := Handle(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Handles {
		if h == known {
			return h, nil
		}
	}
	return HandleNone, fmt.Errorf("unknown resize handle %q", s)
}

func (h Handle) has(dir byte) bool {
	return strings.IndexByte(string(h), dir) >= 0
}

// Limits are the per-axis minimums a resize must respect.
type Limits struct {
	MinWidth  float64
	MinHeight float64
}

func DefaultLimits() Limits {
	return Limits{MinWidth: DefaultMinSize, MinHeight: DefaultMinSize}
}

// Resize computes new bounds for dragging handle h by (dx, dy) from
// initial. The edge opposite each dragged edge stays fixed, and an axis
// whose letters are absent from h is returned unchanged.
func Resize(h Handle, initial Rect, dx, dy float64, lim Limits) Rect {
	out := initial

	switch {
	case h.has('e'):
		out.W = math.Max(lim.MinWidth, initial.W+dx)
	case h.has('w'):
		eff := math.Min(dx, initial.W-lim.MinWidth)
		out.W = initial.W - eff
		out.X = initial.X + eff
	}

	switch {
	case h.has('s'):
		out.H = math.Max(lim.MinHeight, initial.H+dy)
	case h.has('n'):
		eff := math.Min(dy, initial.H-lim.MinHeight)
		out.H = initial.H - eff
		out.Y = initial.Y + eff
	}

	return out
}
