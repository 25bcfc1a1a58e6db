package canvas

import "canvasnotes/internal/domain"

// Measurer reports the natural rendered height of a text-like element's
// content at the given width. It is implemented by the rich-text surface.
type Measurer interface {
	ContentHeight(el domain.Element, width float64) float64
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(el domain.Element, width float64) float64

func (f MeasurerFunc) ContentHeight(el domain.Element, width float64) float64 {
	return f(el, width)
}

// CommandPalette is the slash-command menu. The engine only opens and
// closes it and forwards the chosen token; the palette edits the target's
// content itself.
type CommandPalette interface {
	Open(elementID string)
	Close()
	Run(elementID, token string) error
}

// FocusProbe reports whether an editable surface currently holds keyboard
// focus, in which case Delete/Backspace belong to that surface.
type FocusProbe interface {
	EditableFocused() bool
}

type FocusFunc func() bool

func (f FocusFunc) EditableFocused() bool { return f() }
