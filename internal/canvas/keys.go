package canvas

type Key string

const (
	KeyEscape    Key = "Escape"
	KeyDelete    Key = "Delete"
	KeyBackspace Key = "Backspace"
)

// KeyHandler returns true when it consumed the key.
type KeyHandler func(Key) bool

type keyHandler struct {
	id uint32
	fn KeyHandler
}

// KeyHub fans process-wide key presses out to the surfaces subscribed to
// it. Subscriptions are released through the returned function.
type KeyHub struct {
	handlers []keyHandler
	nextID   uint32
}

func NewKeyHub() *KeyHub {
	return &KeyHub{}
}

// Subscribe adds fn and returns its release function. Releasing twice is
// harmless.
func (h *KeyHub) Subscribe(fn KeyHandler) (unsubscribe func()) {
	h.nextID++
	id := h.nextID
	h.handlers = append(h.handlers, keyHandler{id: id, fn: fn})
	return func() { h.remove(id) }
}

func (h *KeyHub) remove(id uint32) {
	for i := range h.handlers {
		if h.handlers[i].id == id {
			copy(h.handlers[i:], h.handlers[i+1:])
			h.handlers[len(h.handlers)-1] = keyHandler{}
			h.handlers = h.handlers[:len(h.handlers)-1]
			return
		}
	}
}

// Dispatch delivers k to every subscriber and reports whether any consumed it.
func (h *KeyHub) Dispatch(k Key) bool {
	handled := false
	for _, kh := range append([]keyHandler(nil), h.handlers...) {
		if kh.fn(k) {
			handled = true
		}
	}
	return handled
}

// Len returns the number of live subscriptions.
func (h *KeyHub) Len() int { return len(h.handlers) }
