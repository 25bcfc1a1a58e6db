package canvas

import (
	"math"

	"canvasnotes/internal/domain"
)

const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 3.0
)

// ToCanvas converts a screen-space point to canvas space given the
// container's screen origin and the zoom factor.
func ToCanvas(screen, origin domain.Point, scale float64) domain.Point {
	return domain.Point{
		X: (screen.X - origin.X) / scale,
		Y: (screen.Y - origin.Y) / scale,
	}
}

// ToScreen is the inverse of ToCanvas.
func ToScreen(p, origin domain.Point, scale float64) domain.Point {
	return domain.Point{
		X: p.X*scale + origin.X,
		Y: p.Y*scale + origin.Y,
	}
}

// Viewport holds the process-wide zoom factor. Changing it never touches
// stored geometry.
type Viewport struct {
	scale    float64
	minScale float64
	maxScale float64
}

// NewViewport returns a viewport at scale 1 bounded to [min, max]. Invalid
// bounds fall back to the defaults.
func NewViewport(min, max float64) *Viewport {
	if min <= 0 || max < min {
		min, max = DefaultMinScale, DefaultMaxScale
	}
	v := &Viewport{minScale: min, maxScale: max}
	v.SetScale(1)
	return v
}

func (v *Viewport) Scale() float64 { return v.scale }

// SetScale clamps s to the configured range and returns the applied value.
func (v *Viewport) SetScale(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		s = v.minScale
	}
	v.scale = math.Max(v.minScale, math.Min(v.maxScale, s))
	return v.scale
}

// ToCanvas converts using the current scale.
func (v *Viewport) ToCanvas(screen, origin domain.Point) domain.Point {
	return ToCanvas(screen, origin, v.scale)
}
