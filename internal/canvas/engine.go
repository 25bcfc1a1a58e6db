package canvas

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"canvasnotes/internal/domain"
)

// Sizes of click-to-place elements.
const (
	DefaultCodeWidth        = 400.0
	DefaultCodeHeight       = 200.0
	DefaultExpandableWidth  = 300.0
	DefaultExpandableHeight = 120.0
	DefaultExpandableTitle  = "Section"
)

var ErrNoCommandMenu = errors.New("command menu is not open")

// Region says what part of the page a pointer-down landed on.
type Region int

const (
	// RegionAuto lets the engine hit-test the pointer position.
	RegionAuto Region = iota
	RegionEmpty
	// RegionBody is an element's body or drag handle.
	RegionBody
	// RegionInput is an editable surface inside an element.
	RegionInput
	// RegionHandle is a resize handle of an element.
	RegionHandle
)

// Target is the host's resolution of what is under the pointer.
type Target struct {
	Region    Region
	ElementID string
	Handle    Handle
}

type PointerEvent struct {
	PointerID int
	Screen    domain.Point // raw viewport coordinates
	Origin    domain.Point // screen position of the canvas container
	Shift     bool
	Target    Target
}

type Options struct {
	Measurer Measurer
	Commands CommandPalette
	Focus    FocusProbe
	NewID    func() string
	MinScale float64
	MaxScale float64
}

// Engine interprets pointer and key events into element and selection
// changes. It is not safe for concurrent use: the host delivers one event
// at a time.
type Engine struct {
	store     *Store
	selection *Selection
	tools     *Palette
	view      *Viewport

	session Session
	box     *Rect

	pointerID     int
	pointerActive bool

	menuOpen   bool
	menuTarget string

	measure  Measurer
	commands CommandPalette
	focus    FocusProbe
	newID    func() string

	mounts map[*KeyHub]func()
}

func New(opts Options) *Engine {
	e := &Engine{
		store:     NewStore(),
		selection: NewSelection(),
		tools:     NewPalette(),
		view:      NewViewport(opts.MinScale, opts.MaxScale),
		session:   idle(),
		measure:   opts.Measurer,
		commands:  opts.Commands,
		focus:     opts.Focus,
		newID:     opts.NewID,
		mounts:    make(map[*KeyHub]func()),
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.New().String() }
	}
	e.tools.onSwitch = func(_, _ Tool) { e.cancelGesture() }
	return e
}

// ── State accessors ─────────────────────────────────────────

func (e *Engine) Tool() Tool         { return e.tools.Active() }
func (e *Engine) Mode() Mode         { return e.session.Mode }
func (e *Engine) Scale() float64     { return e.view.Scale() }
func (e *Engine) Selected() []string { return e.selection.IDs() }

// Session returns a copy of the live session.
func (e *Engine) Session() Session {
	s := e.session
	if s.Origins != nil {
		s.Origins = make(map[string]domain.Point, len(e.session.Origins))
		for k, v := range e.session.Origins {
			s.Origins[k] = v
		}
	}
	return s
}

// SelectionBox returns the box-select rectangle while one is being drawn.
func (e *Engine) SelectionBox() (Rect, bool) {
	if e.box == nil {
		return Rect{}, false
	}
	return *e.box, true
}

func (e *Engine) Elements() []domain.Element { return e.store.Snapshot() }

func (e *Engine) Element(id string) (domain.Element, bool) { return e.store.Get(id) }

// OnChange registers fn to run after every change to the element collection.
func (e *Engine) OnChange(fn func()) { e.store.OnChange(fn) }

func (e *Engine) CommandMenuOpen() bool { return e.menuOpen }

// Scene is a deep-copied view of everything the renderer draws.
type Scene struct {
	Elements    []domain.Element `json:"elements"`
	Selected    []string         `json:"selected"`
	Tool        Tool             `json:"tool"`
	Cursor      string           `json:"cursor"`
	Mode        Mode             `json:"mode"`
	Box         *Rect            `json:"box,omitempty"`
	Scale       float64          `json:"scale"`
	CommandMenu string           `json:"commandMenu,omitempty"`
}

func (e *Engine) Scene() Scene {
	s := Scene{
		Elements:    e.store.Snapshot(),
		Selected:    e.selection.IDs(),
		Tool:        e.tools.Active(),
		Cursor:      e.tools.Active().Cursor(),
		Mode:        e.session.Mode,
		Scale:       e.view.Scale(),
		CommandMenu: e.menuTarget,
	}
	if e.box != nil {
		b := *e.box
		s.Box = &b
	}
	return s
}

// ── Loading ─────────────────────────────────────────────────

// Load replaces the collection with a page's persisted elements, resetting
// the selection and any gesture.
func (e *Engine) Load(els []domain.Element) error {
	if err := e.store.Replace(els); err != nil {
		return fmt.Errorf("load elements: %w", err)
	}
	e.cancelGesture()
	e.selection.Clear()
	return nil
}

// ── Tools & zoom ────────────────────────────────────────────

// SetTool activates t and ends any in-flight gesture.
func (e *Engine) SetTool(t Tool) {
	e.tools.Select(t)
}

func (e *Engine) SetScale(s float64) float64 {
	return e.view.SetScale(s)
}

// ZoomAt changes the scale by factor while keeping the canvas point under
// screen fixed. It returns the container origin the host must apply.
func (e *Engine) ZoomAt(factor float64, screen, origin domain.Point) domain.Point {
	anchor := e.view.ToCanvas(screen, origin)
	scale := e.view.SetScale(e.view.Scale() * factor)
	return domain.Point{
		X: screen.X - anchor.X*scale,
		Y: screen.Y - anchor.Y*scale,
	}
}

// ── Pointer events ──────────────────────────────────────────

// PointerDown starts a gesture. While another pointer is down, events from
// any other pointer id are ignored.
func (e *Engine) PointerDown(ev PointerEvent) {
	if e.pointerActive && ev.PointerID != e.pointerID {
		return
	}
	e.pointerID, e.pointerActive = ev.PointerID, true
	e.session, e.box = idle(), nil

	p := e.view.ToCanvas(ev.Screen, ev.Origin)
	target := e.resolve(ev.Target, p)
	tool := e.tools.Active()

	switch {
	case target.Region == RegionHandle:
		e.beginResize(target.ElementID, target.Handle, p)
	case target.Region != RegionEmpty && tool == ToolSelect:
		e.pressElement(target, p, ev.Shift)
	case target.Region != RegionEmpty && tool == ToolEraser:
		e.remove(target.ElementID)
	default:
		e.pressCanvas(tool, p, ev.Shift)
	}
}

func (e *Engine) PointerMove(ev PointerEvent) {
	if !e.pointerActive || ev.PointerID != e.pointerID {
		return
	}
	p := e.view.ToCanvas(ev.Screen, ev.Origin)

	switch e.session.Mode {
	case ModeCreating:
		e.dragCreate(p)
	case ModeMoving:
		e.dragMove(p)
	case ModeResizing:
		e.dragResize(p)
	case ModeBoxSelect:
		r := RectFromPoints(e.session.Start, p)
		e.box = &r
	case ModeErasing:
		if id, ok := HitTest(e.store.view(), p); ok {
			e.remove(id)
		}
	}
}

func (e *Engine) PointerUp(ev PointerEvent) {
	if !e.pointerActive || ev.PointerID != e.pointerID {
		return
	}
	if e.session.Mode == ModeBoxSelect && e.box != nil {
		e.selection.Add(Intersecting(e.store.view(), *e.box)...)
	}
	e.cancelGesture()
}

// resolve fills in an automatic target by hit-testing and downgrades
// targets that reference missing elements or unselected handles.
func (e *Engine) resolve(t Target, p domain.Point) Target {
	if t.Region == RegionAuto {
		if id, ok := HitTest(e.store.view(), p); ok {
			return Target{Region: RegionBody, ElementID: id}
		}
		return Target{Region: RegionEmpty}
	}
	if t.Region == RegionEmpty {
		return t
	}
	if !e.store.Has(t.ElementID) {
		return Target{Region: RegionEmpty}
	}
	if t.Region == RegionHandle && (t.Handle == HandleNone || !e.selection.Has(t.ElementID)) {
		t.Region, t.Handle = RegionBody, HandleNone
	}
	return t
}

func (e *Engine) pressElement(t Target, p domain.Point, additive bool) {
	e.selection.Click(t.ElementID, additive)
	if t.Region == RegionInput {
		return
	}
	origins := make(map[string]domain.Point, e.selection.Len())
	for _, el := range e.store.Pick(e.selection.IDs()) {
		origins[el.ID] = domain.Point{X: el.X, Y: el.Y}
	}
	if len(origins) == 0 {
		return
	}
	e.session = Session{Mode: ModeMoving, Start: p, Origins: origins}
}

func (e *Engine) pressCanvas(tool Tool, p domain.Point, additive bool) {
	switch {
	case tool == ToolSelect:
		if !additive {
			e.selection.Clear()
		}
		e.session = Session{Mode: ModeBoxSelect, Start: p}
		e.box = &Rect{X: p.X, Y: p.Y}
	case tool == ToolEraser:
		e.session = Session{Mode: ModeErasing, Start: p}
	case tool.PlacesOnClick():
		el := e.placeholder(tool, p)
		if e.store.Insert(el) == nil {
			e.selection.Add(el.ID)
		}
	case tool.DragsToCreate():
		el := e.placeholder(tool, p)
		if e.store.Insert(el) == nil {
			e.session = Session{Mode: ModeCreating, Start: p, CurrentID: el.ID}
		}
	}
}

// placeholder builds the element a creation tool drops at p.
func (e *Engine) placeholder(tool Tool, p domain.Point) domain.Element {
	el := domain.Element{ID: e.newID(), X: p.X, Y: p.Y}
	switch tool {
	case ToolText:
		el.Shape = domain.Text{}
	case ToolCode:
		el.Size = &domain.Size{Width: DefaultCodeWidth, Height: DefaultCodeHeight}
		el.Shape = domain.Code{}
	case ToolExpandable:
		el.Size = &domain.Size{Width: DefaultExpandableWidth, Height: DefaultExpandableHeight}
		el.Shape = domain.Expandable{Content: domain.JoinExpandable(DefaultExpandableTitle, ""), Expanded: true}
	case ToolRect:
		el.Size = &domain.Size{}
		el.Shape = domain.Rectangle{}
	case ToolCircle:
		el.Size = &domain.Size{}
		el.Shape = domain.Circle{}
	case ToolDraw:
		el.Shape = domain.Path{Points: []domain.Point{{X: 0, Y: 0}}}
	}
	return el
}

func (e *Engine) dragCreate(p domain.Point) {
	start := e.session.Start
	ok := e.store.Patch(e.session.CurrentID, func(el *domain.Element) {
		if path, isPath := el.Shape.(domain.Path); isPath {
			path.Points = append(path.Points, domain.Point{X: p.X - el.X, Y: p.Y - el.Y})
			el.Shape = path
			return
		}
		r := RectFromPoints(start, p)
		el.X, el.Y = r.X, r.Y
		el.Size = &domain.Size{Width: r.W, Height: r.H}
	})
	if !ok {
		e.session = idle()
	}
}

// dragMove places every dragged element at its drag-start origin plus the
// total pointer delta, so intermediate moves never accumulate error.
func (e *Engine) dragMove(p domain.Point) {
	dx, dy := p.X-e.session.Start.X, p.Y-e.session.Start.Y
	for id, o := range e.session.Origins {
		e.store.Patch(id, func(el *domain.Element) {
			el.X, el.Y = o.X+dx, o.Y+dy
		})
	}
}

func (e *Engine) beginResize(id string, h Handle, p domain.Point) {
	el, ok := e.store.Get(id)
	if !ok || el.Kind() == domain.KindPath {
		return
	}
	e.session = Session{
		Mode:          ModeResizing,
		Start:         p,
		CurrentID:     id,
		Handle:        h,
		InitialBounds: Bounds(el),
	}
}

func (e *Engine) dragResize(p domain.Point) {
	s := e.session
	el, ok := e.store.Get(s.CurrentID)
	if !ok {
		e.session = idle()
		return
	}
	r := e.resizeBounds(el, s.Handle, s.InitialBounds, p.X-s.Start.X, p.Y-s.Start.Y)
	e.store.Patch(s.CurrentID, func(el *domain.Element) {
		el.X, el.Y = r.X, r.Y
		el.Size = &domain.Size{Width: r.W, Height: r.H}
	})
}

// resizeBounds runs the resize calculator, raising the minimum height of
// text-like elements to what their content needs at the new width.
func (e *Engine) resizeBounds(el domain.Element, h Handle, initial Rect, dx, dy float64) Rect {
	lim := DefaultLimits()
	r := Resize(h, initial, dx, dy, lim)
	if e.measure == nil || !measured(el) {
		return r
	}
	lim.MinHeight = math.Max(lim.MinHeight, e.measure.ContentHeight(el, r.W))
	return Resize(h, initial, dx, dy, lim)
}

func measured(el domain.Element) bool {
	k := el.Kind()
	return k == domain.KindText || k == domain.KindExpandable
}

// ── Keyboard ────────────────────────────────────────────────

// HandleKey applies a global key press and reports whether it was consumed.
func (e *Engine) HandleKey(k Key) bool {
	switch k {
	case KeyEscape:
		e.Escape()
		return true
	case KeyDelete, KeyBackspace:
		if e.focus != nil && e.focus.EditableFocused() {
			return false
		}
		if e.selection.Len() == 0 {
			return false
		}
		e.DeleteSelection()
		return true
	}
	return false
}

// Escape discards any gesture without committing it, clears the selection,
// returns to the select tool and dismisses the command menu. Elements
// already added by a creation drag stay.
func (e *Engine) Escape() {
	e.cancelGesture()
	e.selection.Clear()
	e.tools.Select(ToolSelect)
	e.CloseCommandMenu()
}

// Mount subscribes the engine to hub and returns the release function.
// Mounting on the same hub twice returns the existing subscription.
func (e *Engine) Mount(hub *KeyHub) (release func()) {
	if rel, ok := e.mounts[hub]; ok {
		return rel
	}
	unsub := hub.Subscribe(e.HandleKey)
	released := false
	rel := func() {
		if released {
			return
		}
		released = true
		unsub()
		delete(e.mounts, hub)
	}
	e.mounts[hub] = rel
	return rel
}

func (e *Engine) cancelGesture() {
	e.session = idle()
	e.box = nil
	e.pointerActive = false
}

// ── Element operations ─────────────────────────────────────

// remove deletes ids from the collection and the selection together.
func (e *Engine) remove(ids ...string) []string {
	removed := e.store.RemoveMany(ids)
	e.selection.Remove(removed...)
	return removed
}

// Delete removes the given elements; unknown ids are ignored.
func (e *Engine) Delete(ids ...string) []string {
	return e.remove(ids...)
}

func (e *Engine) DeleteSelection() []string {
	removed := e.remove(e.selection.IDs()...)
	e.selection.Clear()
	return removed
}

// Select replaces or extends the selection with the live ids among ids.
func (e *Engine) Select(additive bool, ids ...string) {
	live := e.store.Pick(ids)
	if !additive {
		e.selection.Clear()
	}
	for _, el := range live {
		e.selection.Add(el.ID)
	}
}

// SelectBox adds every element overlapping box to the selection, clearing
// it first unless additive.
func (e *Engine) SelectBox(box Rect, additive bool) []string {
	if !additive {
		e.selection.Clear()
	}
	ids := Intersecting(e.store.view(), box)
	e.selection.Add(ids...)
	return ids
}

// Translate moves elements by a fixed delta.
func (e *Engine) Translate(ids []string, dx, dy float64) int {
	n := 0
	for _, id := range ids {
		if e.store.Patch(id, func(el *domain.Element) { el.X += dx; el.Y += dy }) {
			n++
		}
	}
	return n
}

// ResizeElement applies one resize step outside a pointer gesture.
func (e *Engine) ResizeElement(id string, h Handle, dx, dy float64) (Rect, bool) {
	el, ok := e.store.Get(id)
	if !ok || el.Kind() == domain.KindPath || h == HandleNone {
		return Rect{}, false
	}
	r := e.resizeBounds(el, h, Bounds(el), dx, dy)
	e.store.Patch(id, func(el *domain.Element) {
		el.X, el.Y = r.X, r.Y
		el.Size = &domain.Size{Width: r.W, Height: r.H}
	})
	return r, true
}

// Add inserts a fully built element, assigning an id when it has none.
func (e *Engine) Add(el domain.Element) (string, error) {
	if el.ID == "" {
		el.ID = e.newID()
	}
	if err := e.store.Insert(el); err != nil {
		return "", err
	}
	return el.ID, nil
}

// InsertImage adds an image element, as the rich-text surface does when
// media is pasted or chosen from the command menu.
func (e *Engine) InsertImage(at domain.Point, src string, size *domain.Size) (string, error) {
	return e.Add(domain.Element{X: at.X, Y: at.Y, Size: size, Shape: domain.Image{Src: src}})
}

// SetContent stores content emitted by the rich-text surface verbatim.
func (e *Engine) SetContent(id, content string) bool {
	return e.store.Patch(id, func(el *domain.Element) {
		switch s := el.Shape.(type) {
		case domain.Text:
			s.Content = content
			el.Shape = s
		case domain.Code:
			s.Content = content
			el.Shape = s
		case domain.Expandable:
			s.Content = content
			el.Shape = s
		case domain.Image:
			s.Src = content
			el.Shape = s
		}
	})
}

func (e *Engine) ToggleExpanded(id string) bool {
	el, ok := e.store.Get(id)
	if !ok || el.Kind() != domain.KindExpandable {
		return false
	}
	return e.store.Patch(id, func(el *domain.Element) {
		s := el.Shape.(domain.Expandable)
		s.Expanded = !s.Expanded
		el.Shape = s
	})
}

// SetStyle replaces the style of the given elements. A nil style clears it.
func (e *Engine) SetStyle(ids []string, st *domain.Style) int {
	n := 0
	for _, id := range ids {
		if e.store.Patch(id, func(el *domain.Element) {
			if st == nil {
				el.Style = nil
				return
			}
			cp := *st
			el.Style = &cp
		}) {
			n++
		}
	}
	return n
}

// ── Command menu ────────────────────────────────────────────

func (e *Engine) OpenCommandMenu(targetID string) bool {
	if !e.store.Has(targetID) {
		return false
	}
	e.menuOpen, e.menuTarget = true, targetID
	if e.commands != nil {
		e.commands.Open(targetID)
	}
	return true
}

func (e *Engine) CloseCommandMenu() {
	if !e.menuOpen {
		return
	}
	e.menuOpen, e.menuTarget = false, ""
	if e.commands != nil {
		e.commands.Close()
	}
}

// RunCommand forwards token to the palette for the menu's target and
// closes the menu.
func (e *Engine) RunCommand(token string) error {
	if !e.menuOpen {
		return ErrNoCommandMenu
	}
	target := e.menuTarget
	e.CloseCommandMenu()
	if e.commands == nil {
		return nil
	}
	if err := e.commands.Run(target, token); err != nil {
		return fmt.Errorf("run command %q: %w", token, err)
	}
	return nil
}
