package session

import (
	"context"

	"github.com/rendis/canopy/internal/engine"
	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// Clipboard returns the clipboard content, or nil.
func (s *Session) Clipboard() *Clipboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipboard
}

// Copy puts nodeID (or the selection) on the clipboard.
func (s *Session) Copy(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, r, err := s.eligibleLocked(ctx, nodeID, MsgNoSelectionCopy, MsgIneligibleCopy)
	if err != nil {
		return err
	}
	s.clearPendingCutLocked(ctx)
	s.setClipboardLocked(ctx, &Clipboard{Node: r.Node})
	s.noticeLocked(ctx, schema.Notice{Level: schema.NoticeSuccess, Message: MsgCopied})
	return nil
}

// Cut marks nodeID (or the selection) as cut and puts it on the clipboard.
// The node stays in the document until the next paste.
func (s *Session) Cut(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, r, err := s.eligibleLocked(ctx, nodeID, MsgNoSelectionCut, MsgIneligibleCut)
	if err != nil {
		return err
	}
	id := r.Node.ID
	s.clearPendingCutLocked(ctx)

	next, err := engine.UpdateProperty(s.history.Current(), id, "cut", true)
	if err != nil {
		return s.rejectLocked(ctx, err)
	}
	s.commitLocked(ctx, schema.ActionCut, id, next)
	s.setClipboardLocked(ctx, &Clipboard{Node: tree.FindByID(next, id), Cut: true})
	return nil
}

// Paste inserts a fresh-id copy of the clipboard node right after the
// original, or at the end of the root stack when the original is gone.
// Pasting a cut node also removes the original in the same undoable step.
// It returns the inserted copy.
func (s *Session) Paste(ctx context.Context) (*schema.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.history.Current()
	if doc == nil {
		return nil, s.failLocked(ctx, schema.NewError(schema.ErrCodeNoDocument, "no document loaded"), MsgNoDocument)
	}
	if s.clipboard == nil || s.clipboard.Node == nil {
		return nil, s.failLocked(ctx, schema.NewError(schema.ErrCodeClipboardEmpty, "clipboard is empty"), MsgClipboardEmpty)
	}
	source := s.clipboard.Node
	cut := false
	if s.clipboard.Cut {
		// The live node decides: an undone cut or a removed original pastes
		// as a copy, and edits made after the cut travel with the move.
		if live := tree.FindByID(doc, source.ID); live != nil && live.Cut {
			source, cut = live, true
		} else {
			s.setClipboardLocked(ctx, &Clipboard{Node: source})
		}
	}

	next, clone, err := engine.CopyAndInsert(doc, source, s.newID)
	if err != nil {
		return nil, s.rejectLocked(ctx, err)
	}
	if cut {
		pruned, err := engine.DeleteNode(next, source.ID)
		if err != nil {
			return nil, s.rejectLocked(ctx, err)
		}
		next = pruned
	}
	s.commitLocked(ctx, schema.ActionPaste, clone.ID, next)
	if cut {
		// The moved copy can be pasted again as a plain copy.
		s.setClipboardLocked(ctx, &Clipboard{Node: clone})
	}
	return clone, nil
}

// clearPendingCutLocked unmarks a node that was cut but never pasted.
func (s *Session) clearPendingCutLocked(ctx context.Context) {
	if s.clipboard == nil || !s.clipboard.Cut || s.clipboard.Node == nil {
		return
	}
	id := s.clipboard.Node.ID
	s.clipboard = &Clipboard{Node: s.clipboard.Node}
	doc := s.history.Current()
	if n := tree.FindByID(doc, id); n == nil || !n.Cut {
		return
	}
	next, err := engine.UpdateProperty(doc, id, "cut", false)
	if err != nil {
		s.logger.Warn("clear cut marker failed")
		return
	}
	s.commitLocked(ctx, schema.ActionUpdateProperty, id, next)
}

func (s *Session) setClipboardLocked(ctx context.Context, clip *Clipboard) {
	s.clipboard = clip
	s.mirrorClipboardLocked(ctx)
	s.publishLocked(ctx, schema.EventClipboardChanged, clip.Node.ID, clip)
}
