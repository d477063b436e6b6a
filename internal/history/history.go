// Package history keeps the linear undo/redo record of document snapshots.
package history

import "github.com/rendis/canopy/pkg/schema"

// History owns the current document and its undo and redo stacks. Both
// stacks hold full snapshots, most recent first. Snapshots are immutable
// trees, so pushing a document costs one pointer.
//
// History is not safe for concurrent use.
type History struct {
	current *schema.Node
	undo    []*schema.Node
	redo    []*schema.Node
	limit   int
}

// New creates an empty History. A positive limit caps the number of undoable
// steps; the oldest entries are dropped first.
func New(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit}
}

// Current returns the current document, or nil when none is loaded.
func (h *History) Current() *schema.Node { return h.current }

// Load replaces the document without creating an undoable step. The loaded
// document becomes the trivial initial snapshot, so it can never be undone.
func (h *History) Load(doc *schema.Node) {
	h.current = doc
	h.redo = nil
	if doc == nil {
		h.undo = nil
		return
	}
	h.undo = []*schema.Node{doc}
}

// Commit records doc as the new current document. The previous document is
// pushed onto the undo stack and the redo stack is cleared. Committing onto
// or with an absent document resets the undo stack.
func (h *History) Commit(doc *schema.Node) {
	if h.current == nil || doc == nil {
		h.undo = nil
	} else {
		h.undo = append([]*schema.Node{h.current}, h.undo...)
		// The last entry is the floor Undo never pops, so it is not a step.
		if h.limit > 0 && len(h.undo) > h.limit+1 {
			h.undo = h.undo[:h.limit+1]
		}
	}
	h.redo = nil
	h.current = doc
}

// Undo restores the previous document. It does nothing, and returns false,
// unless the undo stack holds more than the initial snapshot.
func (h *History) Undo() bool {
	if len(h.undo) < 2 {
		return false
	}
	h.redo = append([]*schema.Node{h.current}, h.redo...)
	h.current = h.undo[0]
	h.undo = h.undo[1:]
	return true
}

// Redo re-applies the most recently undone document.
func (h *History) Redo() bool {
	if len(h.redo) == 0 {
		return false
	}
	h.undo = append([]*schema.Node{h.current}, h.undo...)
	h.current = h.redo[0]
	h.redo = h.redo[1:]
	return true
}

// CanUndo reports whether Undo would change the document.
func (h *History) CanUndo() bool { return len(h.undo) >= 2 }

// CanRedo reports whether Redo would change the document.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) { return len(h.undo), len(h.redo) }
