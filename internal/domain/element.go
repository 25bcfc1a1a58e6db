package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidElement is returned when an element carries a field
// combination its kind does not allow.
var ErrInvalidElement = errors.New("invalid element")

type ElementKind string

const (
	KindText       ElementKind = "text"
	KindRectangle  ElementKind = "rectangle"
	KindCircle     ElementKind = "circle"
	KindPath       ElementKind = "path"
	KindImage      ElementKind = "image"
	KindCode       ElementKind = "code"
	KindExpandable ElementKind = "expandable"
)

// ExpandableSeparator splits an expandable section's content into title and body.
const ExpandableSeparator = "<!--expandable-body-->"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Style struct {
	StrokeColor string  `json:"strokeColor,omitempty"`
	FillColor   string  `json:"fillColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
}

// Shape is the variant payload of an Element. The set of implementations
// is closed to this package.
type Shape interface {
	Kind() ElementKind
	clone() Shape
}

type Text struct{ Content string }
type Rectangle struct{}
type Circle struct{}

// Path is a polyline; points are relative to the element origin.
type Path struct{ Points []Point }

type Image struct{ Src string }
type Code struct{ Content string }

type Expandable struct {
	Content  string
	Expanded bool
}

func (Text) Kind() ElementKind       { return KindText }
func (Rectangle) Kind() ElementKind  { return KindRectangle }
func (Circle) Kind() ElementKind     { return KindCircle }
func (Path) Kind() ElementKind       { return KindPath }
func (Image) Kind() ElementKind      { return KindImage }
func (Code) Kind() ElementKind       { return KindCode }
func (Expandable) Kind() ElementKind { return KindExpandable }

func (s Text) clone() Shape       { return s }
func (s Rectangle) clone() Shape  { return s }
func (s Circle) clone() Shape     { return s }
func (s Image) clone() Shape      { return s }
func (s Code) clone() Shape       { return s }
func (s Expandable) clone() Shape { return s }
func (s Path) clone() Shape {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	return Path{Points: pts}
}

// Title returns the part of the content before the separator.
func (s Expandable) Title() string {
	title, _, _ := strings.Cut(s.Content, ExpandableSeparator)
	return title
}

// Body returns the part of the content after the separator, or "" when
// there is none.
func (s Expandable) Body() string {
	_, body, _ := strings.Cut(s.Content, ExpandableSeparator)
	return body
}

// JoinExpandable builds expandable content from a title and a body.
func JoinExpandable(title, body string) string {
	return title + ExpandableSeparator + body
}

// Element is one item on a page. X/Y is the canvas-space origin; Size is
// nil when the element is sized by its content.
type Element struct {
	ID    string
	X     float64
	Y     float64
	Size  *Size
	Style *Style
	Shape Shape
}

func (e Element) Kind() ElementKind {
	if e.Shape == nil {
		return ""
	}
	return e.Shape.Kind()
}

// Clone returns a deep copy that shares no memory with e.
func (e Element) Clone() Element {
	out := e
	if e.Size != nil {
		sz := *e.Size
		out.Size = &sz
	}
	if e.Style != nil {
		st := *e.Style
		out.Style = &st
	}
	if e.Shape != nil {
		out.Shape = e.Shape.clone()
	}
	return out
}

// Content returns the opaque rich-text payload of text-like elements and
// the resource reference of images.
func (e Element) Content() string {
	switch s := e.Shape.(type) {
	case Text:
		return s.Content
	case Code:
		return s.Content
	case Expandable:
		return s.Content
	case Image:
		return s.Src
	}
	return ""
}

// Validate reports field combinations that the kind does not allow.
func (e Element) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidElement)
	}
	if e.Shape == nil {
		return fmt.Errorf("%w: %s has no shape", ErrInvalidElement, e.ID)
	}
	if _, ok := e.Shape.(Path); ok && e.Size != nil {
		return fmt.Errorf("%w: path %s cannot carry a size", ErrInvalidElement, e.ID)
	}
	if e.Size != nil && (e.Size.Width < 0 || e.Size.Height < 0) {
		return fmt.Errorf("%w: %s has negative size", ErrInvalidElement, e.ID)
	}
	return nil
}

// CloneAll deep-copies a slice of elements, preserving order.
func CloneAll(els []Element) []Element {
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = el.Clone()
	}
	return out
}
