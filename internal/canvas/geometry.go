package canvas

import (
	"math"

	"canvasnotes/internal/domain"
)

const (
	// Hit box used for text elements that have no explicit size.
	TextFallbackWidth  = 200.0
	TextFallbackHeight = 40.0

	// MinExtent keeps zero-size elements selectable by box-select.
	MinExtent = 10.0
)

// Rect is an axis-aligned rectangle in canvas space.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p domain.Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Intersects is the open-interval overlap test: rectangles that only touch
// along an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && r.Right() > o.X &&
		r.Y < o.Bottom() && r.Bottom() > o.Y
}

// RectFromPoints returns the non-negative rectangle spanned by two corners,
// whichever diagonal they describe.
func RectFromPoints(a, b domain.Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

// Bounds returns the element's bounding box for hit testing.
// Paths derive it from their points; sizeless text uses the fixed text
// fallback; any other sizeless element gets MinExtent.
func Bounds(el domain.Element) Rect {
	if p, ok := el.Shape.(domain.Path); ok {
		return pathBounds(el, p)
	}
	if el.Size != nil {
		return Rect{X: el.X, Y: el.Y, W: el.Size.Width, H: el.Size.Height}
	}
	if el.Kind() == domain.KindText {
		return Rect{X: el.X, Y: el.Y, W: TextFallbackWidth, H: TextFallbackHeight}
	}
	return Rect{X: el.X, Y: el.Y, W: MinExtent, H: MinExtent}
}

// SelectBounds is Bounds with each axis padded up to MinExtent, used by
// box-select so degenerate shapes stay reachable.
func SelectBounds(el domain.Element) Rect {
	r := Bounds(el)
	if el.Size == nil && el.Kind() != domain.KindPath {
		r.W, r.H = MinExtent, MinExtent
	}
	r.W = math.Max(r.W, MinExtent)
	r.H = math.Max(r.H, MinExtent)
	return r
}

func pathBounds(el domain.Element, p domain.Path) Rect {
	if len(p.Points) == 0 {
		return Rect{X: el.X, Y: el.Y}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range p.Points {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return Rect{X: el.X + minX, Y: el.Y + minY, W: maxX - minX, H: maxY - minY}
}

// HitTest returns the id of the topmost element whose bounds contain p.
func HitTest(els []domain.Element, p domain.Point) (string, bool) {
	for i := len(els) - 1; i >= 0; i-- {
		if Bounds(els[i]).Contains(p) {
			return els[i].ID, true
		}
	}
	return "", false
}

// Intersecting returns, in paint order, the ids of elements whose select
// bounds overlap box.
func Intersecting(els []domain.Element, box Rect) []string {
	var ids []string
	for _, el := range els {
		if SelectBounds(el).Intersects(box) {
			ids = append(ids, el.ID)
		}
	}
	return ids
}
