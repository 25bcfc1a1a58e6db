package app

import (
	"fmt"

	"canvasnotes/internal/canvas"
	"canvasnotes/internal/domain"
	"canvasnotes/internal/service"
)

// PointerInput is a pointer event as the frontend reports it, in raw
// viewport coordinates.
type PointerInput struct {
	PointerID int     `json:"pointerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	OriginX   float64 `json:"originX"`
	OriginY   float64 `json:"originY"`
	Shift     bool    `json:"shift"`
	// Region is what the DOM reports under the pointer: "empty", "body",
	// "input" or "handle". Empty lets the engine hit-test.
	Region    string `json:"region"`
	ElementID string `json:"elementId"`
	Handle    string `json:"handle"`
}

func (in PointerInput) event() (canvas.PointerEvent, error) {
	ev := canvas.PointerEvent{
		PointerID: in.PointerID,
		Screen:    domain.Point{X: in.X, Y: in.Y},
		Origin:    domain.Point{X: in.OriginX, Y: in.OriginY},
		Shift:     in.Shift,
		Target:    canvas.Target{ElementID: in.ElementID},
	}
	switch in.Region {
	case "":
		ev.Target = canvas.Target{Region: canvas.RegionAuto}
	case "empty":
		ev.Target = canvas.Target{Region: canvas.RegionEmpty}
	case "body":
		ev.Target.Region = canvas.RegionBody
	case "input":
		ev.Target.Region = canvas.RegionInput
	case "handle":
		h, err := canvas.ParseHandle(in.Handle)
		if err != nil {
			return canvas.PointerEvent{}, err
		}
		ev.Target.Region = canvas.RegionHandle
		ev.Target.Handle = h
	default:
		return canvas.PointerEvent{}, fmt.Errorf("unknown pointer region %q", in.Region)
	}
	if ev.Target.Region != canvas.RegionAuto && ev.Target.Region != canvas.RegionEmpty && in.ElementID == "" {
		return canvas.PointerEvent{}, fmt.Errorf("region %q needs an element id", in.Region)
	}
	return ev, nil
}

// SceneView is what the frontend renders: the open page and its scene.
type SceneView struct {
	PageID   string `json:"pageId"`
	PageName string `json:"pageName"`
	canvas.Scene
}

func sceneView(ap *service.ActivePage) SceneView {
	return SceneView{
		PageID:   ap.Page.ID,
		PageName: ap.Page.Name,
		Scene:    ap.Engine.Scene(),
	}
}
