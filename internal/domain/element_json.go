package domain

import (
	"encoding/json"
	"fmt"
)

// elementRecord is the serialized form of an Element: a flat record tagged
// by "type", with every variant-specific field optional.
type elementRecord struct {
	ID         string      `json:"id"`
	Type       ElementKind `json:"type"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Width      *float64    `json:"width,omitempty"`
	Height     *float64    `json:"height,omitempty"`
	Style      *Style      `json:"style,omitempty"`
	Points     []Point     `json:"points,omitempty"`
	Content    *string     `json:"content,omitempty"`
	IsExpanded *bool       `json:"isExpanded,omitempty"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	rec := elementRecord{
		ID:    e.ID,
		Type:  e.Kind(),
		X:     e.X,
		Y:     e.Y,
		Style: e.Style,
	}
	if e.Size != nil {
		w, h := e.Size.Width, e.Size.Height
		rec.Width, rec.Height = &w, &h
	}
	switch s := e.Shape.(type) {
	case Text:
		rec.Content = &s.Content
	case Code:
		rec.Content = &s.Content
	case Image:
		rec.Content = &s.Src
	case Expandable:
		rec.Content = &s.Content
		rec.IsExpanded = &s.Expanded
	case Path:
		rec.Points = s.Points
		if rec.Points == nil {
			rec.Points = []Point{}
		}
	}
	return json.Marshal(rec)
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var rec elementRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	out := Element{ID: rec.ID, X: rec.X, Y: rec.Y, Style: rec.Style}
	if rec.Width != nil || rec.Height != nil {
		sz := Size{}
		if rec.Width != nil {
			sz.Width = *rec.Width
		}
		if rec.Height != nil {
			sz.Height = *rec.Height
		}
		out.Size = &sz
	}
	content := ""
	if rec.Content != nil {
		content = *rec.Content
	}

	switch rec.Type {
	case KindText:
		out.Shape = Text{Content: content}
	case KindRectangle:
		out.Shape = Rectangle{}
	case KindCircle:
		out.Shape = Circle{}
	case KindImage:
		out.Shape = Image{Src: content}
	case KindCode:
		out.Shape = Code{Content: content}
	case KindExpandable:
		exp := Expandable{Content: content}
		if rec.IsExpanded != nil {
			exp.Expanded = *rec.IsExpanded
		}
		out.Shape = exp
	case KindPath:
		pts := rec.Points
		if pts == nil {
			pts = []Point{}
		}
		out.Shape = Path{Points: pts}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidElement, rec.Type)
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*e = out
	return nil
}

// EncodeElements serializes an ordered element collection.
func EncodeElements(els []Element) ([]byte, error) {
	if els == nil {
		els = []Element{}
	}
	return json.Marshal(els)
}

// DecodeElements parses an ordered element collection. Empty input yields
// an empty collection.
func DecodeElements(data []byte) ([]Element, error) {
	if len(data) == 0 {
		return []Element{}, nil
	}
	var els []Element
	if err := json.Unmarshal(data, &els); err != nil {
		return nil, fmt.Errorf("decode elements: %w", err)
	}
	if els == nil {
		els = []Element{}
	}
	return els, nil
}
