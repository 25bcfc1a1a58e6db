package canvas_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"canvasnotes/internal/canvas"
	"canvasnotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────

func newEngine(t *testing.T, opts canvas.Options) *canvas.Engine {
	t.Helper()
	n := 0
	if opts.NewID == nil {
		opts.NewID = func() string { n++; return fmt.Sprintf("el-%d", n) }
	}
	return canvas.New(opts)
}

func rect(id string, x, y, w, h float64) domain.Element {
	return domain.Element{ID: id, X: x, Y: y, Size: &domain.Size{Width: w, Height: h}, Shape: domain.Rectangle{}}
}

func load(t *testing.T, e *canvas.Engine, els ...domain.Element) {
	t.Helper()
	if err := e.Load(els); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func at(x, y float64) canvas.PointerEvent {
	return canvas.PointerEvent{PointerID: 1, Screen: domain.Point{X: x, Y: y}}
}

func on(ev canvas.PointerEvent, region canvas.Region, id string) canvas.PointerEvent {
	ev.Target = canvas.Target{Region: region, ElementID: id}
	return ev
}

func handle(ev canvas.PointerEvent, id string, h canvas.Handle) canvas.PointerEvent {
	ev.Target = canvas.Target{Region: canvas.RegionHandle, ElementID: id, Handle: h}
	return ev
}

func shift(ev canvas.PointerEvent) canvas.PointerEvent {
	ev.Shift = true
	return ev
}

func mustGet(t *testing.T, e *canvas.Engine, id string) domain.Element {
	t.Helper()
	el, ok := e.Element(id)
	if !ok {
		t.Fatalf("element %q not found", id)
	}
	return el
}

// ─────────────────────────────────────────────────────────────
// Creation
// ─────────────────────────────────────────────────────────────

func TestEngine_CreateRectangle(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	e.SetTool(canvas.ToolRect)

	e.PointerDown(at(50, 50))
	if e.Mode() != canvas.ModeCreating {
		t.Fatalf("mode = %s, want creating", e.Mode())
	}
	e.PointerMove(at(150, 120))
	e.PointerUp(at(150, 120))

	els := e.Elements()
	if len(els) != 1 {
		t.Fatalf("expected 1 element, got %d", len(els))
	}
	got := els[0]
	if got.Kind() != domain.KindRectangle || got.X != 50 || got.Y != 50 ||
		got.Size.Width != 100 || got.Size.Height != 70 {
		t.Errorf("unexpected rectangle: %+v size=%+v", got, got.Size)
	}
	if e.Mode() != canvas.ModeIdle {
		t.Errorf("mode after release = %s", e.Mode())
	}
	if e.Tool() != canvas.ToolRect {
		t.Errorf("tool should stay rect, got %s", e.Tool())
	}
}

func TestEngine_CreateNonNegativeAllDirections(t *testing.T) {
	tests := []struct {
		name   string
		tool   canvas.Tool
		toX    float64
		toY    float64
		wantX  float64
		wantY  float64
		wantWH [2]float64
	}{
		{"down-right", canvas.ToolRect, 150, 120, 50, 50, [2]float64{100, 70}},
		{"down-left", canvas.ToolRect, 0, 120, 0, 50, [2]float64{50, 70}},
		{"up-right", canvas.ToolCircle, 150, 10, 50, 10, [2]float64{100, 40}},
		{"up-left", canvas.ToolCircle, 20, 10, 20, 10, [2]float64{30, 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, canvas.Options{})
			e.SetTool(tt.tool)
			e.PointerDown(at(50, 50))
			e.PointerMove(at(tt.toX, tt.toY))
			e.PointerUp(at(tt.toX, tt.toY))

			el := e.Elements()[0]
			if el.Size.Width < 0 || el.Size.Height < 0 {
				t.Fatalf("negative size: %+v", el.Size)
			}
			if el.X != tt.wantX || el.Y != tt.wantY || el.Size.Width != tt.wantWH[0] || el.Size.Height != tt.wantWH[1] {
				t.Errorf("got (%v,%v %vx%v)", el.X, el.Y, el.Size.Width, el.Size.Height)
			}
		})
	}
}

func TestEngine_CreateUnderZoom(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	e.SetScale(2)
	e.SetTool(canvas.ToolRect)

	origin := domain.Point{X: 10, Y: 10}
	down := at(110, 110)
	down.Origin = origin
	up := at(210, 150)
	up.Origin = origin

	e.PointerDown(down)
	e.PointerMove(up)
	e.PointerUp(up)

	el := e.Elements()[0]
	if el.X != 50 || el.Y != 50 || el.Size.Width != 50 || el.Size.Height != 20 {
		t.Errorf("got (%v,%v %vx%v)", el.X, el.Y, el.Size.Width, el.Size.Height)
	}
}

func TestEngine_DrawPath(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	e.SetTool(canvas.ToolDraw)

	e.PointerDown(at(100, 100))
	e.PointerMove(at(110, 105))
	e.PointerMove(at(90, 120))
	e.PointerUp(at(90, 120))

	el := e.Elements()[0]
	if el.Size != nil {
		t.Fatal("path must not carry a size")
	}
	path := el.Shape.(domain.Path)
	want := []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 5}, {X: -10, Y: 20}}
	if !reflect.DeepEqual(path.Points, want) {
		t.Errorf("points = %v, want %v", path.Points, want)
	}
	if el.X != 100 || el.Y != 100 {
		t.Errorf("path origin moved: (%v,%v)", el.X, el.Y)
	}
}

func TestEngine_ClickToPlace(t *testing.T) {
	tests := []struct {
		tool canvas.Tool
		kind domain.ElementKind
	}{
		{canvas.ToolText, domain.KindText},
		{canvas.ToolCode, domain.KindCode},
		{canvas.ToolExpandable, domain.KindExpandable},
	}
	for _, tt := range tests {
		t.Run(string(tt.tool), func(t *testing.T) {
			e := newEngine(t, canvas.Options{})
			e.SetTool(tt.tool)
			e.PointerDown(at(30, 40))
			if e.Mode() != canvas.ModeIdle {
				t.Errorf("click-to-place should not enter a gesture, got %s", e.Mode())
			}
			e.PointerUp(at(30, 40))

			els := e.Elements()
			if len(els) != 1 || els[0].Kind() != tt.kind {
				t.Fatalf("elements = %+v", els)
			}
			if els[0].X != 30 || els[0].Y != 40 {
				t.Errorf("placed at (%v,%v)", els[0].X, els[0].Y)
			}
			if !reflect.DeepEqual(e.Selected(), []string{els[0].ID}) {
				t.Errorf("new element should be selected, got %v", e.Selected())
			}
		})
	}
}

func TestEngine_ExpandablePlaceholder(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	e.SetTool(canvas.ToolExpandable)
	e.PointerDown(at(0, 0))
	e.PointerUp(at(0, 0))

	x := e.Elements()[0].Shape.(domain.Expandable)
	if !x.Expanded || x.Title() != canvas.DefaultExpandableTitle {
		t.Errorf("unexpected placeholder: %+v", x)
	}
}

// ─────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────

func TestEngine_ShiftClickThenEscape(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 10, 10), rect("b", 20, 0, 10, 10), rect("c", 40, 0, 10, 10))

	e.PointerDown(on(at(5, 5), canvas.RegionBody, "a"))
	e.PointerUp(at(5, 5))
	e.PointerDown(shift(on(at(25, 5), canvas.RegionBody, "b")))
	e.PointerUp(at(25, 5))
	e.PointerDown(shift(on(at(45, 5), canvas.RegionBody, "c")))
	e.PointerUp(at(45, 5))

	if len(e.Selected()) != 3 {
		t.Fatalf("selected = %v", e.Selected())
	}

	e.SetTool(canvas.ToolCircle)
	if !e.HandleKey(canvas.KeyEscape) {
		t.Fatal("escape should be handled")
	}
	if len(e.Selected()) != 0 {
		t.Errorf("selection after escape = %v", e.Selected())
	}
	if e.Tool() != canvas.ToolSelect {
		t.Errorf("tool after escape = %s", e.Tool())
	}
	if e.Mode() != canvas.ModeIdle {
		t.Errorf("mode after escape = %s", e.Mode())
	}
}

func TestEngine_ShiftClickTogglesOff(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 10, 10), rect("b", 20, 0, 10, 10))
	e.Select(false, "a", "b")

	e.PointerDown(shift(on(at(5, 5), canvas.RegionBody, "a")))
	e.PointerUp(at(5, 5))

	if !reflect.DeepEqual(e.Selected(), []string{"b"}) {
		t.Errorf("selected = %v", e.Selected())
	}
}

func TestEngine_ClickEmptyClearsSelection(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 10, 10))
	e.Select(false, "a")

	e.PointerDown(at(500, 500))
	e.PointerUp(at(500, 500))

	if len(e.Selected()) != 0 {
		t.Errorf("selected = %v", e.Selected())
	}
}

func TestEngine_BoxSelect(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e,
		rect("a", 10, 10, 20, 20),
		rect("b", 100, 100, 20, 20),
		domain.Element{ID: "t", X: 50, Y: 50, Shape: domain.Text{Content: "note"}},
		rect("far", 400, 400, 10, 10),
	)

	e.PointerDown(on(at(0, 0), canvas.RegionEmpty, ""))
	if e.Mode() != canvas.ModeBoxSelect {
		t.Fatalf("mode = %s", e.Mode())
	}
	e.PointerMove(at(105, 105))
	box, ok := e.SelectionBox()
	if !ok || box != (canvas.Rect{X: 0, Y: 0, W: 105, H: 105}) {
		t.Fatalf("box = %+v, %v", box, ok)
	}
	e.PointerUp(at(105, 105))

	if !reflect.DeepEqual(e.Selected(), []string{"a", "b", "t"}) {
		t.Errorf("selected = %v", e.Selected())
	}
	if _, ok := e.SelectionBox(); ok {
		t.Error("box should be gone after release")
	}
}

func TestEngine_BoxSelectAdditiveUnion(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 10, 10), rect("b", 100, 100, 10, 10))
	e.Select(false, "a")

	e.PointerDown(shift(at(95, 95)))
	e.PointerMove(at(120, 120))
	e.PointerUp(at(120, 120))

	if !reflect.DeepEqual(e.Selected(), []string{"a", "b"}) {
		t.Errorf("additive box should union, got %v", e.Selected())
	}
}

func TestEngine_BoxSelectTouchingEdgeExcluded(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 50, 0, 10, 10))

	e.PointerDown(at(0, 0))
	e.PointerMove(at(50, 50))
	e.PointerUp(at(50, 50))

	if len(e.Selected()) != 0 {
		t.Errorf("edge-touching element selected: %v", e.Selected())
	}
}

func TestEngine_InputRegionSelectsWithoutMoving(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 100, 100))

	e.PointerDown(on(at(5, 5), canvas.RegionInput, "a"))
	if e.Mode() != canvas.ModeIdle {
		t.Errorf("input press should not start a move, got %s", e.Mode())
	}
	e.PointerMove(at(50, 50))
	e.PointerUp(at(50, 50))

	if el := mustGet(t, e, "a"); el.X != 0 || el.Y != 0 {
		t.Errorf("element moved to (%v,%v)", el.X, el.Y)
	}
	if !reflect.DeepEqual(e.Selected(), []string{"a"}) {
		t.Errorf("selected = %v", e.Selected())
	}
}

// ─────────────────────────────────────────────────────────────
// Moving
// ─────────────────────────────────────────────────────────────

func TestEngine_DragGroup(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("A", 10, 10, 20, 20), rect("B", 100, 40, 20, 20))
	e.Select(false, "A", "B")

	e.PointerDown(on(at(15, 15), canvas.RegionBody, "A"))
	if e.Mode() != canvas.ModeMoving {
		t.Fatalf("mode = %s", e.Mode())
	}
	e.PointerMove(at(30, 12))
	e.PointerMove(at(45, 10))
	e.PointerUp(at(45, 10))

	a, b := mustGet(t, e, "A"), mustGet(t, e, "B")
	if a.X != 40 || a.Y != 5 {
		t.Errorf("A at (%v,%v), want (40,5)", a.X, a.Y)
	}
	if b.X != 130 || b.Y != 35 {
		t.Errorf("B at (%v,%v), want (130,35)", b.X, b.Y)
	}
}

func TestEngine_DragUnselectedMovesOnlyIt(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("A", 0, 0, 10, 10), rect("B", 50, 0, 10, 10))
	e.Select(false, "A")

	e.PointerDown(on(at(55, 5), canvas.RegionBody, "B"))
	e.PointerMove(at(65, 15))
	e.PointerUp(at(65, 15))

	if a := mustGet(t, e, "A"); a.X != 0 || a.Y != 0 {
		t.Errorf("A moved to (%v,%v)", a.X, a.Y)
	}
	if b := mustGet(t, e, "B"); b.X != 60 || b.Y != 10 {
		t.Errorf("B at (%v,%v)", b.X, b.Y)
	}
}

func TestEngine_AutoTargetHitTests(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("A", 0, 0, 50, 50))

	e.PointerDown(at(25, 25))
	if e.Mode() != canvas.ModeMoving {
		t.Fatalf("expected auto hit-test to grab element, mode = %s", e.Mode())
	}
	e.PointerMove(at(35, 25))
	e.PointerUp(at(35, 25))

	if a := mustGet(t, e, "A"); a.X != 10 {
		t.Errorf("A.X = %v", a.X)
	}
}

// ─────────────────────────────────────────────────────────────
// Erasing & deleting
// ─────────────────────────────────────────────────────────────

func TestEngine_EraserPressDeletes(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 10, 10), rect("b", 50, 0, 10, 10))
	e.Select(false, "a")
	e.SetTool(canvas.ToolEraser)

	e.PointerDown(at(5, 5))
	e.PointerUp(at(5, 5))

	if _, ok := e.Element("a"); ok {
		t.Error("a should be erased")
	}
	if len(e.Selected()) != 0 {
		t.Errorf("erased id left in selection: %v", e.Selected())
	}
	if len(e.Elements()) != 1 {
		t.Errorf("elements = %d", len(e.Elements()))
	}
}

func TestEngine_EraserDrag(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e,
		rect("a", 100, 0, 10, 10),
		rect("b", 200, 0, 10, 10),
		rect("c", 300, 0, 10, 10),
		rect("keep", 300, 300, 10, 10),
	)
	e.SetTool(canvas.ToolEraser)

	e.PointerDown(at(0, 5))
	if e.Mode() != canvas.ModeErasing {
		t.Fatalf("mode = %s", e.Mode())
	}
	for _, x := range []float64{105, 150, 205, 250, 305} {
		e.PointerMove(at(x, 5))
	}
	e.PointerUp(at(305, 5))

	ids := make([]string, 0)
	for _, el := range e.Elements() {
		ids = append(ids, el.ID)
	}
	if !reflect.DeepEqual(ids, []string{"keep"}) {
		t.Errorf("remaining = %v", ids)
	}
}

func TestEngine_DeleteKey(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 10, 10), rect("b", 50, 0, 10, 10))
	e.Select(false, "a", "b")

	if !e.HandleKey(canvas.KeyDelete) {
		t.Fatal("delete should be handled")
	}
	if len(e.Elements()) != 0 || len(e.Selected()) != 0 {
		t.Fatalf("elements=%d selected=%v", len(e.Elements()), e.Selected())
	}
	if e.HandleKey(canvas.KeyBackspace) {
		t.Error("second delete with empty selection should be a no-op")
	}
}

func TestEngine_DeleteKeyYieldsToFocusedEditor(t *testing.T) {
	focused := true
	e := newEngine(t, canvas.Options{Focus: canvas.FocusFunc(func() bool { return focused })})
	load(t, e, rect("a", 0, 0, 10, 10))
	e.Select(false, "a")

	if e.HandleKey(canvas.KeyBackspace) {
		t.Fatal("backspace inside an editor must not delete elements")
	}
	if len(e.Elements()) != 1 {
		t.Fatal("element deleted while editing")
	}
	focused = false
	if !e.HandleKey(canvas.KeyBackspace) || len(e.Elements()) != 0 {
		t.Error("backspace outside an editor should delete")
	}
}

func TestEngine_DeleteUnknownIsNoop(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 10, 10))

	if got := e.Delete("a"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("first delete = %v", got)
	}
	if got := e.Delete("a"); len(got) != 0 {
		t.Errorf("second delete = %v", got)
	}
}

// ─────────────────────────────────────────────────────────────
// Resizing
// ─────────────────────────────────────────────────────────────

func TestEngine_ResizeHandle(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 100, 100, 200, 100))
	e.Select(false, "a")

	e.PointerDown(handle(at(100, 100), "a", canvas.HandleNW))
	if e.Mode() != canvas.ModeResizing {
		t.Fatalf("mode = %s", e.Mode())
	}
	e.PointerMove(at(400, 400))
	e.PointerUp(at(400, 400))

	a := mustGet(t, e, "a")
	if a.X+a.Size.Width != 300 || a.Y+a.Size.Height != 200 {
		t.Errorf("south-east corner moved: %+v %+v", a, a.Size)
	}
	if a.Size.Width != canvas.DefaultMinSize || a.Size.Height != canvas.DefaultMinSize {
		t.Errorf("size = %+v, want min clamp", a.Size)
	}
}

func TestEngine_ResizeHandleWorksUnderAnyTool(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 100, 100))
	e.Select(false, "a")
	e.SetTool(canvas.ToolRect)

	e.PointerDown(handle(at(100, 50), "a", canvas.HandleE))
	e.PointerMove(at(130, 90))
	e.PointerUp(at(130, 90))

	a := mustGet(t, e, "a")
	if a.Size.Width != 130 || a.Size.Height != 100 {
		t.Errorf("size = %+v", a.Size)
	}
	if len(e.Elements()) != 1 {
		t.Error("handle press must not create an element")
	}
}

func TestEngine_ResizeMeasuredMinHeight(t *testing.T) {
	measure := canvas.MeasurerFunc(func(_ domain.Element, width float64) float64 {
		return 12000 / width
	})
	e := newEngine(t, canvas.Options{Measurer: measure})
	load(t, e, domain.Element{ID: "t", Size: &domain.Size{Width: 200, Height: 200}, Shape: domain.Text{Content: "long"}})
	e.Select(false, "t")

	// Narrowing to 100 needs 120 of height, so shrinking to 50 is refused.
	e.PointerDown(handle(at(200, 200), "t", canvas.HandleSE))
	e.PointerMove(at(100, 50))
	e.PointerUp(at(100, 50))

	got := mustGet(t, e, "t").Size
	if got.Width != 100 || got.Height != 120 {
		t.Errorf("size = %+v, want 100x120", got)
	}
}

func TestEngine_ResizeElement(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 100, 100), domain.Element{ID: "p", Shape: domain.Path{}})

	r, ok := e.ResizeElement("a", canvas.HandleS, 0, 50)
	if !ok || r.H != 150 {
		t.Errorf("resize = %+v, %v", r, ok)
	}
	if _, ok := e.ResizeElement("p", canvas.HandleSE, 10, 10); ok {
		t.Error("paths cannot be resized")
	}
	if _, ok := e.ResizeElement("missing", canvas.HandleSE, 10, 10); ok {
		t.Error("missing element resized")
	}
}

// ─────────────────────────────────────────────────────────────
// Tools, pointers, keys
// ─────────────────────────────────────────────────────────────

func TestEngine_ToolSwitchEndsGesture(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	e.SetTool(canvas.ToolRect)
	e.PointerDown(at(0, 0))
	e.SetTool(canvas.ToolSelect)

	if e.Mode() != canvas.ModeIdle {
		t.Fatalf("mode = %s", e.Mode())
	}
	e.PointerMove(at(100, 100))
	if el := e.Elements()[0]; el.Size.Width != 0 {
		t.Errorf("move after tool switch resized the element: %+v", el.Size)
	}
}

func TestEngine_SecondPointerIgnored(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	e.SetTool(canvas.ToolRect)

	e.PointerDown(at(0, 0))
	other := at(500, 500)
	other.PointerID = 2
	e.PointerDown(other)
	e.PointerMove(other)
	e.PointerUp(other)

	if e.Mode() != canvas.ModeCreating {
		t.Fatalf("second pointer disturbed the gesture: %s", e.Mode())
	}
	if len(e.Elements()) != 1 {
		t.Fatalf("elements = %d", len(e.Elements()))
	}
	e.PointerUp(at(10, 10))
	if e.Mode() != canvas.ModeIdle {
		t.Errorf("mode = %s", e.Mode())
	}
}

func TestEngine_EscapeMidCreateKeepsElement(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	e.SetTool(canvas.ToolRect)
	e.PointerDown(at(0, 0))
	e.PointerMove(at(40, 30))
	e.Escape()

	if e.Mode() != canvas.ModeIdle || e.Tool() != canvas.ToolSelect {
		t.Fatalf("mode=%s tool=%s", e.Mode(), e.Tool())
	}
	if len(e.Elements()) != 1 {
		t.Errorf("elements = %d", len(e.Elements()))
	}
}

func TestEngine_ZoomAtKeepsAnchor(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	screen := domain.Point{X: 300, Y: 200}
	origin := domain.Point{X: 100, Y: 100}
	before := canvas.ToCanvas(screen, origin, e.Scale())

	newOrigin := e.ZoomAt(2, screen, origin)
	after := canvas.ToCanvas(screen, newOrigin, e.Scale())

	if before != after {
		t.Errorf("anchor drifted: %+v -> %+v", before, after)
	}
	if e.Scale() != 2 {
		t.Errorf("scale = %v", e.Scale())
	}
}

func TestEngine_ScaleDoesNotTouchGeometry(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 10, 20, 30, 40))
	e.SetScale(2.5)

	if a := mustGet(t, e, "a"); a.X != 10 || a.Size.Width != 30 {
		t.Errorf("zoom changed stored geometry: %+v", a)
	}
}

// ─────────────────────────────────────────────────────────────
// Content & command menu
// ─────────────────────────────────────────────────────────────

type fakePalette struct {
	opened, closed int
	ran            []string
	err            error
}

func (p *fakePalette) Open(string) { p.opened++ }
func (p *fakePalette) Close()      { p.closed++ }
func (p *fakePalette) Run(id, token string) error {
	p.ran = append(p.ran, id+":"+token)
	return p.err
}

func TestEngine_CommandMenu(t *testing.T) {
	pal := &fakePalette{}
	e := newEngine(t, canvas.Options{Commands: pal})
	load(t, e, domain.Element{ID: "t", Shape: domain.Text{}})

	if err := e.RunCommand("todo"); !errors.Is(err, canvas.ErrNoCommandMenu) {
		t.Fatalf("expected ErrNoCommandMenu, got %v", err)
	}
	if e.OpenCommandMenu("missing") {
		t.Fatal("menu opened for missing element")
	}
	if !e.OpenCommandMenu("t") || !e.CommandMenuOpen() {
		t.Fatal("menu did not open")
	}
	if err := e.RunCommand("todo"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if e.CommandMenuOpen() || pal.closed != 1 || !reflect.DeepEqual(pal.ran, []string{"t:todo"}) {
		t.Errorf("palette state: %+v open=%v", pal, e.CommandMenuOpen())
	}

	e.OpenCommandMenu("t")
	e.HandleKey(canvas.KeyEscape)
	if e.CommandMenuOpen() {
		t.Error("escape should close the menu")
	}
}

func TestEngine_SetContentAndToggle(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e,
		domain.Element{ID: "x", Size: &domain.Size{Width: 10, Height: 10}, Shape: domain.Expandable{Content: "T"}},
		rect("r", 0, 0, 1, 1),
	)

	html := domain.JoinExpandable("<p>Title</p>", "<p>Body</p>")
	if !e.SetContent("x", html) {
		t.Fatal("set content failed")
	}
	x := mustGet(t, e, "x")
	if x.Content() != html {
		t.Errorf("content not stored verbatim: %q", x.Content())
	}
	if !e.ToggleExpanded("x") || !mustGet(t, e, "x").Shape.(domain.Expandable).Expanded {
		t.Error("toggle did not expand")
	}
	if e.ToggleExpanded("r") {
		t.Error("toggled a rectangle")
	}
}

func TestEngine_InsertImageAndStyle(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	id, err := e.InsertImage(domain.Point{X: 5, Y: 5}, "data:image/png;base64,AAAA", nil)
	if err != nil {
		t.Fatalf("insert image: %v", err)
	}
	if n := e.SetStyle([]string{id, "missing"}, &domain.Style{StrokeColor: "#f00"}); n != 1 {
		t.Errorf("styled %d elements", n)
	}
	el := mustGet(t, e, id)
	if el.Kind() != domain.KindImage || el.Style == nil || el.Style.StrokeColor != "#f00" {
		t.Errorf("unexpected element: %+v", el)
	}
}

func TestEngine_LoadRejectsDuplicates(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	err := e.Load([]domain.Element{rect("a", 0, 0, 1, 1), rect("a", 0, 0, 1, 1)})
	if !errors.Is(err, canvas.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestEngine_SceneIsDetached(t *testing.T) {
	e := newEngine(t, canvas.Options{})
	load(t, e, rect("a", 0, 0, 10, 10))
	e.Select(false, "a")
	e.PointerDown(at(100, 100))
	e.PointerMove(at(120, 130))

	s := e.Scene()
	if s.Mode != canvas.ModeBoxSelect || s.Box == nil || s.Box.W != 20 || s.Box.H != 30 {
		t.Fatalf("scene = %+v", s)
	}
	if s.Tool != canvas.ToolSelect || s.Cursor != "default" || s.Scale != 1 {
		t.Errorf("scene = %+v", s)
	}
	s.Elements[0].Size.Width = 999
	s.Box.W = 0
	if mustGet(t, e, "a").Size.Width != 10 {
		t.Error("scene shares element storage")
	}
	if box, _ := e.SelectionBox(); box.W != 20 {
		t.Error("scene shares the selection box")
	}
}
