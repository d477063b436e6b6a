package schema

import "strings"

// KeyEvent is a keyboard event forwarded by a UI surface.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Meta  bool   `json:"meta,omitempty"`

	// Target is the tag name of the focused element ("INPUT", "DIV", ...).
	Target string `json:"target,omitempty"`
	// ContentEditable is true when the focused element is contenteditable.
	ContentEditable bool `json:"content_editable,omitempty"`
}

// InTextInput reports whether the event was typed into a text-input-like control.
func (k KeyEvent) InTextInput() bool {
	if k.ContentEditable {
		return true
	}
	switch strings.ToUpper(k.Target) {
	case "INPUT", "TEXTAREA":
		return true
	}
	return false
}

// Direction is a vertical move direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Valid reports whether d is up or down.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// DropPosition is where a dragged node lands relative to its target.
type DropPosition string

const (
	DropBefore DropPosition = "before"
	DropAfter  DropPosition = "after"
	DropInside DropPosition = "inside"
)

// Valid reports whether p is one of before, after or inside.
func (p DropPosition) Valid() bool {
	return p == DropBefore || p == DropAfter || p == DropInside
}
