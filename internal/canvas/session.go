package canvas

import "canvasnotes/internal/domain"

type Mode string

const (
	ModeIdle      Mode = "idle"
	ModeCreating  Mode = "creating"
	ModeMoving    Mode = "moving"
	ModeBoxSelect Mode = "box_select"
	ModeErasing   Mode = "erasing"
	ModeResizing  Mode = "resizing"
)

// Session is the in-flight gesture. The engine replaces it wholesale at the
// start of every gesture and never edits one field at a time.
type Session struct {
	Mode  Mode
	Start domain.Point // anchor in canvas space

	// CurrentID is the element being created or resized.
	CurrentID string

	// Origins are the positions of the dragged elements at drag start.
	Origins map[string]domain.Point

	Handle        Handle
	InitialBounds Rect
}

func idle() Session { return Session{Mode: ModeIdle} }
