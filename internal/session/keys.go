package session

import (
	"context"
	"strings"

	"github.com/rendis/canopy/pkg/schema"
)

// HandleKey maps an editor shortcut to its action. It reports whether the
// key was handled; keys typed into text inputs are never handled.
//
//	Ctrl+Z                  undo
//	Ctrl+Shift+Z            redo
//	Ctrl+C / X / V          copy, cut, paste
//	Ctrl+S                  save
//	Ctrl+ArrowUp/Down       reorder the selection
//	Ctrl+Shift+ArrowUp      promote the selection
//	Ctrl+Shift+ArrowDown    demote the selection
//	Delete                  delete the selection
//	Escape                  clear the selection
//
// Ctrl also matches the Meta (command) key.
func (s *Session) HandleKey(ctx context.Context, ev schema.KeyEvent) (bool, error) {
	if ev.InTextInput() {
		return false, nil
	}

	if !ev.Ctrl && !ev.Meta {
		switch ev.Key {
		case "Delete":
			return true, s.Delete(ctx, "")
		case "Escape":
			s.ClearSelection(ctx)
			return true, nil
		}
		return false, nil
	}

	switch ev.Key {
	case "ArrowUp":
		if ev.Shift {
			return true, s.Promote(ctx, "")
		}
		return true, s.Reorder(ctx, "", schema.DirectionUp)
	case "ArrowDown":
		if ev.Shift {
			return true, s.Demote(ctx, "")
		}
		return true, s.Reorder(ctx, "", schema.DirectionDown)
	}

	switch strings.ToLower(ev.Key) {
	case "z":
		if ev.Shift {
			s.Redo(ctx)
		} else {
			s.Undo(ctx)
		}
		return true, nil
	case "c":
		return true, s.Copy(ctx, "")
	case "x":
		return true, s.Cut(ctx, "")
	case "v":
		_, err := s.Paste(ctx)
		return true, err
	case "s":
		return true, s.Save(ctx)
	}
	return false, nil
}
