package canvas

import "testing"

func TestKeyHub_SubscribeRelease(t *testing.T) {
	hub := NewKeyHub()
	var got []Key
	release := hub.Subscribe(func(k Key) bool { got = append(got, k); return true })

	if !hub.Dispatch(KeyEscape) {
		t.Fatal("expected key to be handled")
	}
	release()
	release()
	if hub.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Len())
	}
	if hub.Dispatch(KeyEscape) {
		t.Fatal("released handler still received keys")
	}
	if len(got) != 1 {
		t.Errorf("expected 1 delivery, got %d", len(got))
	}
}

func TestEngine_MountOnce(t *testing.T) {
	hub := NewKeyHub()
	e := New(Options{})

	r1 := e.Mount(hub)
	r2 := e.Mount(hub)
	if hub.Len() != 1 {
		t.Fatalf("mounting twice attached %d handlers", hub.Len())
	}
	r2()
	if hub.Len() != 0 {
		t.Fatalf("release left %d handlers", hub.Len())
	}
	r1()

	e.Mount(hub)
	if hub.Len() != 1 {
		t.Fatalf("remount after release attached %d handlers", hub.Len())
	}
}
