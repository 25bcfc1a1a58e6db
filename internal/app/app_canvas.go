package app

import (
	"errors"
	"fmt"
	"log"

	"canvasnotes/internal/canvas"
	"canvasnotes/internal/domain"
	"canvasnotes/internal/service"
)

// ============================================================
// Canvas interaction
// ============================================================

// interact runs fn against the open page's engine and broadcasts the
// resulting scene.
func (a *App) interact(fn func(e *canvas.Engine) error) (SceneView, error) {
	var view SceneView
	err := a.workspace.Do(func(ap *service.ActivePage) error {
		if err := fn(ap.Engine); err != nil {
			return err
		}
		view = sceneView(ap)
		return nil
	})
	if err != nil {
		return SceneView{}, err
	}
	a.emit.Emit(a.ctx, EventCanvasChanged, view)
	return view, nil
}

// broadcast sends the open page's current scene.
func (a *App) broadcast() (SceneView, error) {
	return a.interact(func(*canvas.Engine) error { return nil })
}

// refresh broadcasts the scene after a change that did not come from the
// frontend.
func (a *App) refresh() {
	if _, err := a.broadcast(); err != nil && !errors.Is(err, service.ErrNoActivePage) {
		log.Printf("[APP] Refresh scene: %v", err)
	}
}

func (a *App) GetScene() (SceneView, error) {
	var view SceneView
	err := a.workspace.Do(func(ap *service.ActivePage) error {
		view = sceneView(ap)
		return nil
	})
	return view, err
}

func (a *App) PointerDown(in PointerInput) (SceneView, error) {
	ev, err := in.event()
	if err != nil {
		return SceneView{}, err
	}
	return a.interact(func(e *canvas.Engine) error {
		e.PointerDown(ev)
		return nil
	})
}

func (a *App) PointerMove(in PointerInput) (SceneView, error) {
	ev, err := in.event()
	if err != nil {
		return SceneView{}, err
	}
	return a.interact(func(e *canvas.Engine) error {
		e.PointerMove(ev)
		return nil
	})
}

func (a *App) PointerUp(in PointerInput) (SceneView, error) {
	ev, err := in.event()
	if err != nil {
		return SceneView{}, err
	}
	return a.interact(func(e *canvas.Engine) error {
		e.PointerUp(ev)
		return nil
	})
}

// KeyDown dispatches a global key press and reports whether the canvas
// consumed it. Only the open page's engine listens on the key hub.
func (a *App) KeyDown(key string) (bool, error) {
	consumed := false
	_, err := a.interact(func(e *canvas.Engine) error {
		if a.mounted != e {
			if a.unmount != nil {
				a.unmount()
			}
			a.unmount = e.Mount(a.keys)
			a.mounted = e
		}
		consumed = a.keys.Dispatch(canvas.Key(key))
		return nil
	})
	return consumed, err
}

// SetEditorFocus tells the canvas whether a rich-text surface holds
// keyboard focus.
func (a *App) SetEditorFocus(focused bool) {
	a.editorFocused.Store(focused)
}

func (a *App) SetTool(name string) (SceneView, error) {
	tool, err := canvas.ParseTool(name)
	if err != nil {
		return SceneView{}, err
	}
	return a.interact(func(e *canvas.Engine) error {
		e.SetTool(tool)
		return nil
	})
}

// SetZoom sets and persists the open page's zoom.
func (a *App) SetZoom(zoom float64) (SceneView, error) {
	if _, err := a.workspace.SetZoom(a.ctx, zoom); err != nil {
		return SceneView{}, err
	}
	return a.broadcast()
}

// ZoomAt zooms by factor around the screen point (x, y) and returns the
// canvas container origin the frontend must apply.
func (a *App) ZoomAt(factor, x, y, originX, originY float64) (domain.Point, error) {
	origin, err := a.workspace.ZoomAt(a.ctx, factor, domain.Point{X: x, Y: y}, domain.Point{X: originX, Y: originY})
	if err != nil {
		return domain.Point{}, err
	}
	a.refresh()
	return origin, nil
}

// SetContent stores what the rich-text surface produced for an element.
func (a *App) SetContent(id, content string) (SceneView, error) {
	return a.interact(func(e *canvas.Engine) error {
		if !e.SetContent(id, content) {
			return fmt.Errorf("element %s not found", id)
		}
		return nil
	})
}

func (a *App) ToggleExpanded(id string) (SceneView, error) {
	return a.interact(func(e *canvas.Engine) error {
		if !e.ToggleExpanded(id) {
			return fmt.Errorf("element %s is not expandable", id)
		}
		return nil
	})
}

// InsertImage places an image at a canvas point. A zero width or height
// leaves the image at its natural size.
func (a *App) InsertImage(x, y float64, src string, width, height float64) (string, error) {
	var size *domain.Size
	if width > 0 && height > 0 {
		size = &domain.Size{Width: width, Height: height}
	}
	var id string
	_, err := a.interact(func(e *canvas.Engine) error {
		var err error
		id, err = e.InsertImage(domain.Point{X: x, Y: y}, src, size)
		return err
	})
	return id, err
}

func (a *App) SetStyle(ids []string, style domain.Style) (SceneView, error) {
	return a.interact(func(e *canvas.Engine) error {
		e.SetStyle(ids, &style)
		return nil
	})
}

func (a *App) Select(ids []string, additive bool) (SceneView, error) {
	return a.interact(func(e *canvas.Engine) error {
		e.Select(additive, ids...)
		return nil
	})
}

func (a *App) DeleteSelection() (SceneView, error) {
	return a.interact(func(e *canvas.Engine) error {
		e.DeleteSelection()
		return nil
	})
}

// ============================================================
// Command menu
// ============================================================

func (a *App) OpenCommandMenu(id string) (SceneView, error) {
	return a.interact(func(e *canvas.Engine) error {
		if !e.OpenCommandMenu(id) {
			return fmt.Errorf("element %s not found", id)
		}
		return nil
	})
}

func (a *App) ChooseCommand(token string) (SceneView, error) {
	return a.interact(func(e *canvas.Engine) error {
		return e.RunCommand(token)
	})
}

func (a *App) CloseCommandMenu() (SceneView, error) {
	return a.interact(func(e *canvas.Engine) error {
		e.CloseCommandMenu()
		return nil
	})
}
