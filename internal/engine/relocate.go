package engine

import (
	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// Relocate moves the dragged node relative to target in two phases: detach
// from its Stack, then insert. Inside a Stack target it is appended; before
// and after splice it next to the target in the target's Stack; inside a
// non-Stack target is treated as after. The input document is returned
// unchanged whenever either phase fails, including a drop into the dragged
// node's own subtree, and when the node would land where it already is.
func Relocate(doc *schema.Node, draggedID, targetID string, pos schema.DropPosition) (*schema.Node, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeNoDocument, "no document loaded")
	}
	if !pos.Valid() {
		return doc, schema.NewErrorf(schema.ErrCodeValidation, "unknown drop position %q", pos)
	}
	if draggedID == targetID {
		return doc, nil
	}

	source := tree.ContainingStack(doc, draggedID)
	if source == nil {
		return doc, schema.NewError(schema.ErrCodeNotFound, "dragged node is not inside any stack").WithNode(draggedID)
	}
	from := tree.IndexOf(source, draggedID)
	dragged := source.Children[from]
	detached := removeFromStack(doc, source.ID, draggedID)

	target := tree.FindByID(detached, targetID)
	if target == nil {
		return doc, schema.NewError(schema.ErrCodeNotFound, "drop target not found").WithNode(targetID)
	}
	if pos == schema.DropInside {
		if target.IsStack() {
			if targetID == source.ID && from == len(source.Children)-1 {
				return doc, nil
			}
			return tree.MapSubtree(detached, targetID, func(s *schema.Node) *schema.Node {
				return insertChild(s, len(s.Children), dragged)
			}), nil
		}
		pos = schema.DropAfter
	}

	stack := tree.ContainingStack(detached, targetID)
	if stack == nil {
		return doc, schema.NewError(schema.ErrCodeNoTarget, "drop target is not inside a stack").WithNode(targetID)
	}
	at := tree.IndexOf(stack, targetID)
	if pos == schema.DropAfter {
		at++
	}
	if stack.ID == source.ID && at == from {
		return doc, nil
	}
	return tree.MapSubtree(detached, stack.ID, func(s *schema.Node) *schema.Node {
		return insertChild(s, at, dragged)
	}), nil
}

// DropPositionFor maps a pointer's vertical offset inside a target of the
// given height to a drop position: top third before, bottom third after,
// middle inside.
func DropPositionFor(offsetY, height float64) schema.DropPosition {
	if height <= 0 {
		return schema.DropInside
	}
	switch {
	case offsetY < height/3:
		return schema.DropBefore
	case offsetY > height*2/3:
		return schema.DropAfter
	default:
		return schema.DropInside
	}
}
