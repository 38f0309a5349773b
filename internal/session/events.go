package session

import (
	"context"
	"image"
)

// Sketch is what a host runtime drives: one setup call, then one frame call
// per tick, with input events delivered between frames on the same goroutine.
type Sketch interface {
	OnSetup(ctx context.Context) error
	OnFrame(ctx context.Context) error
	OnKeyEvent(ev KeyEvent)
	OnPointerEvent(ev PointerEvent)
}

// KeyEvent carries a typed character, e.g. "c" or " ".
type KeyEvent struct {
	Key string
}

// PointerAction distinguishes the phases of a pointer gesture.
type PointerAction int

const (
	PointerPress PointerAction = iota
	PointerDrag
	PointerRelease
)

func (a PointerAction) String() string {
	switch a {
	case PointerPress:
		return "press"
	case PointerDrag:
		return "drag"
	case PointerRelease:
		return "release"
	}
	return "unknown"
}

// PointerEvent is a pointer position in canvas pixels.
type PointerEvent struct {
	Action PointerAction
	Pos    image.Point
}

// KeyBindings maps actions to keys.
type KeyBindings struct {
	Clear    string
	Generate string
	Reseed   string
}

// DefaultKeyBindings binds c to clear, space to generate and r to reseed.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{Clear: "c", Generate: " ", Reseed: "r"}
}
