package session

import (
	"context"

	"github.com/rendis/canopy/internal/diagram"
	"github.com/rendis/canopy/internal/engine"
	"github.com/rendis/canopy/internal/expressions"
	"github.com/rendis/canopy/internal/selection"
	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// Select makes id the selection and returns its resolution.
func (s *Session) Select(ctx context.Context, id string) (selection.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.history.Current()
	if doc == nil {
		return selection.Resolution{}, schema.NewError(schema.ErrCodeNoDocument, MsgNoDocument)
	}
	if !s.selection.Select(doc, id) {
		s.publishLocked(ctx, schema.EventSelectionChanged, "", nil)
		return selection.Resolution{}, schema.NewError(schema.ErrCodeNotFound, "node not found").WithNode(id)
	}
	s.publishLocked(ctx, schema.EventSelectionChanged, id, s.selectionStateLocked())
	return s.selection.Current(), nil
}

// ClearSelection drops the selection.
func (s *Session) ClearSelection(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.ID() == "" {
		return
	}
	s.selection.Clear()
	s.publishLocked(ctx, schema.EventSelectionChanged, "", nil)
}

// targetLocked resolves nodeID, or the selection when nodeID is empty.
func (s *Session) targetLocked(nodeID string) (*schema.Node, selection.Resolution, error) {
	doc := s.history.Current()
	if doc == nil {
		return nil, selection.Resolution{}, schema.NewError(schema.ErrCodeNoDocument, MsgNoDocument)
	}
	if nodeID == "" {
		r := s.selection.Current()
		if !r.Found() {
			return doc, r, schema.NewError(schema.ErrCodeNoSelection, "no node selected")
		}
		return doc, r, nil
	}
	r := selection.Resolve(doc, nodeID)
	if !r.Found() {
		return doc, r, schema.NewError(schema.ErrCodeNotFound, "node not found").WithNode(nodeID)
	}
	return doc, r, nil
}

// AddChild appends node to the stack parentID, or to the selected stack
// when parentID is empty.
func (s *Session) AddChild(ctx context.Context, parentID string, node *schema.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addChildLocked(ctx, parentID, node)
}

// AddDefault builds a default node chain (outermost type first) and
// appends it like AddChild. It returns the added node.
func (s *Session) AddDefault(ctx context.Context, parentID string, types ...schema.NodeType) (*schema.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, err := engine.Chain(s.newID, types...)
	if err != nil {
		return nil, err
	}
	if err := s.addChildLocked(ctx, parentID, node); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *Session) addChildLocked(ctx context.Context, parentID string, node *schema.Node) error {
	doc, r, err := s.targetLocked(parentID)
	if err != nil {
		return s.rejectLocked(ctx, err)
	}
	if !r.IsAvailableToAdd {
		return s.failLocked(ctx,
			schema.NewErrorf(schema.ErrCodeIneligible, "cannot add to %s", r.Node.NodeType).WithNode(r.Node.ID),
			MsgIneligibleAdd)
	}
	if s.deps.Validator != nil {
		if err := s.deps.Validator.ValidateSubtree(doc, node); err != nil {
			return s.rejectLocked(ctx, err)
		}
	}
	next, err := engine.AddChild(doc, r.Node.ID, node)
	if err != nil {
		return s.rejectLocked(ctx, err)
	}
	s.commitLocked(ctx, schema.ActionAddChild, node.ID, next)
	return nil
}

// UpdateProperty sets one attribute on nodeID, or on the selection when
// nodeID is empty.
func (s *Session) UpdateProperty(ctx context.Context, nodeID, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, r, err := s.targetLocked(nodeID)
	if err != nil {
		return s.rejectLocked(ctx, err)
	}
	next, err := engine.UpdateProperty(doc, r.Node.ID, key, value)
	if err != nil {
		return s.rejectLocked(ctx, err)
	}
	s.commitLocked(ctx, schema.ActionUpdateProperty, r.Node.ID, next)
	return nil
}

// Delete removes nodeID, or the selection when nodeID is empty. Only
// direct stack children can be deleted.
func (s *Session) Delete(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, r, err := s.eligibleLocked(ctx, nodeID, MsgNoSelectionDelete, MsgIneligibleDelete)
	if err != nil {
		return err
	}
	next, err := engine.DeleteNode(doc, r.Node.ID)
	if err != nil {
		return s.rejectLocked(ctx, err)
	}
	s.commitLocked(ctx, schema.ActionDelete, r.Node.ID, next)
	return nil
}

// eligibleLocked resolves a delete/copy/cut target and enforces the
// direct-stack-child rule, reporting failures with the given messages.
func (s *Session) eligibleLocked(ctx context.Context, nodeID, noSelection, ineligible string) (*schema.Node, selection.Resolution, error) {
	doc, r, err := s.targetLocked(nodeID)
	if err != nil {
		edErr := asEditorError(err, schema.ErrCodeValidation)
		if edErr.Code == schema.ErrCodeNoSelection {
			return doc, r, s.failLocked(ctx, edErr, noSelection)
		}
		return doc, r, s.rejectLocked(ctx, err)
	}
	if !r.IsChildOfStack {
		return doc, r, s.failLocked(ctx,
			schema.NewError(schema.ErrCodeIneligible, "node is not a direct child of a stack").WithNode(r.Node.ID),
			ineligible)
	}
	return doc, r, nil
}

// Reorder swaps nodeID (or the selection) with its neighbour.
func (s *Session) Reorder(ctx context.Context, nodeID string, dir schema.Direction) error {
	return s.move(ctx, nodeID, schema.ActionReorder, func(doc *schema.Node, id string) (*schema.Node, error) {
		return engine.ReorderSibling(doc, id, dir)
	})
}

// Promote lifts nodeID (or the selection) to the front of the next
// enclosing stack.
func (s *Session) Promote(ctx context.Context, nodeID string) error {
	return s.move(ctx, nodeID, schema.ActionPromote, engine.Promote)
}

// Demote sinks nodeID (or the selection) into a neighbouring stack.
func (s *Session) Demote(ctx context.Context, nodeID string) error {
	return s.move(ctx, nodeID, schema.ActionDemote, engine.Demote)
}

func (s *Session) move(ctx context.Context, nodeID, action string, op func(*schema.Node, string) (*schema.Node, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, r, err := s.targetLocked(nodeID)
	if err != nil {
		return s.rejectLocked(ctx, err)
	}
	next, err := op(doc, r.Node.ID)
	if err != nil {
		return s.rejectLocked(ctx, err)
	}
	s.commitLocked(ctx, action, r.Node.ID, next)
	return nil
}

// Drop relocates draggedID relative to targetID.
func (s *Session) Drop(ctx context.Context, draggedID, targetID string, pos schema.DropPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.history.Current()
	if doc == nil {
		return schema.NewError(schema.ErrCodeNoDocument, MsgNoDocument)
	}
	next, err := engine.Relocate(doc, draggedID, targetID, pos)
	if err != nil {
		return s.rejectLocked(ctx, err)
	}
	s.commitLocked(ctx, schema.ActionRelocate, draggedID, next)
	return nil
}

// DropAt relocates using a pointer offset within the target's box.
func (s *Session) DropAt(ctx context.Context, draggedID, targetID string, offsetY, height float64) (schema.DropPosition, error) {
	pos := engine.DropPositionFor(offsetY, height)
	return pos, s.Drop(ctx, draggedID, targetID, pos)
}

// Undo steps back one snapshot. It reports whether anything changed.
func (s *Session) Undo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Undo() {
		return false
	}
	s.changedLocked(ctx, schema.ActionUndo, "", true)
	return true
}

// Redo re-applies one undone snapshot. It reports whether anything changed.
func (s *Session) Redo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Redo() {
		return false
	}
	s.changedLocked(ctx, schema.ActionRedo, "", true)
	return true
}

// Find returns the nodes of the current document matching a predicate in
// lang (cel, expr or jq).
func (s *Session) Find(ctx context.Context, lang, expression string) ([]expressions.Match, error) {
	if s.deps.Finder == nil {
		return nil, schema.NewError(schema.ErrCodeExpression, "node search is not configured")
	}
	s.mu.Lock()
	doc := s.history.Current()
	s.mu.Unlock()
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeNoDocument, MsgNoDocument)
	}
	return s.deps.Finder.Find(s.ctx(ctx, ""), lang, expression, doc)
}

// Node returns the node with id in the current document.
func (s *Session) Node(id string) (*schema.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := tree.FindByID(s.history.Current(), id)
	return n, n != nil
}

// Diagram builds the render model of the current document with the
// selection highlighted.
func (s *Session) Diagram() (*diagram.DiagramModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	model, err := diagram.Build(s.history.Current(), s.selection.ID())
	if err != nil {
		return nil, err
	}
	if s.documentID != "" {
		model.Title = s.documentID
	}
	return model, nil
}
