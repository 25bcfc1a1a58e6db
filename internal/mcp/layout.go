package mcpserver

import (
	"math"

	"canvasnotes/internal/canvas"
	"canvasnotes/internal/domain"
)

const (
	GridSize = 20.0 // matches frontend GRID_SIZE
	Padding  = 40.0 // 2 grid cells between elements
	MaxRowW  = 1600.0
)

// LayoutEngine places agent-created elements on the canvas so that they
// don't overlap existing ones.
type LayoutEngine struct {
	gridSize float64
	padding  float64
	maxRowW  float64
}

func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{
		gridSize: GridSize,
		padding:  Padding,
		maxRowW:  MaxRowW,
	}
}

// snap rounds v to the nearest grid point.
func (le *LayoutEngine) snap(v float64) float64 {
	return math.Round(v/le.gridSize) * le.gridSize
}

// NextPosition finds the next free grid position for an element of size
// (newW, newH), scanning rows top to bottom.
func (le *LayoutEngine) NextPosition(existing []domain.Element, newW, newH float64) (float64, float64) {
	if len(existing) == 0 {
		return 0, 0
	}

	occupied := make([]canvas.Rect, len(existing))
	for i, el := range existing {
		b := canvas.Bounds(el)
		occupied[i] = canvas.Rect{
			X: b.X - le.padding,
			Y: b.Y - le.padding,
			W: b.W + le.padding*2,
			H: b.H + le.padding*2,
		}
	}

	maxY := 0.0
	for _, occ := range occupied {
		maxY = math.Max(maxY, occ.Bottom())
	}

	candidate := canvas.Rect{W: newW, H: newH}
	for y := 0.0; y <= maxY; y += le.gridSize {
		for x := 0.0; x+newW <= le.maxRowW; x += le.gridSize {
			candidate.X = le.snap(x)
			candidate.Y = le.snap(y)

			overlaps := false
			for _, occ := range occupied {
				if candidate.Intersects(occ) {
					overlaps = true
					break
				}
			}
			if !overlaps {
				return candidate.X, candidate.Y
			}
		}
	}

	// Fallback: place below everything.
	return 0, le.snap(maxY)
}

// ArrangeGroup lays elements out in rows starting at (startX, startY),
// wrapping at the row width. Positions are changed in place.
func (le *LayoutEngine) ArrangeGroup(els []domain.Element, startX, startY float64) []domain.Element {
	x := le.snap(startX)
	y := le.snap(startY)
	rowHeight := 0.0

	for i := range els {
		b := canvas.Bounds(els[i])
		if x > le.snap(startX) && x+b.W > le.maxRowW {
			x = le.snap(startX)
			y += le.snap(rowHeight + le.padding)
			rowHeight = 0
		}

		els[i].X = x
		els[i].Y = y
		rowHeight = math.Max(rowHeight, b.H)
		x += le.snap(b.W + le.padding)
	}

	return els
}
