package engine

import (
	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// ReorderSibling swaps the node with its previous (up) or next (down)
// sibling in the Stack that holds it. Moving past either end is a no-op.
func ReorderSibling(doc *schema.Node, nodeID string, dir schema.Direction) (*schema.Node, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeNoDocument, "no document loaded")
	}
	if !dir.Valid() {
		return doc, schema.NewErrorf(schema.ErrCodeValidation, "unknown direction %q", dir)
	}
	stack, i, err := locateInStack(doc, nodeID)
	if err != nil || stack == nil {
		return doc, err
	}
	j := i - 1
	if dir == schema.DirectionDown {
		j = i + 1
	}
	if j < 0 || j >= len(stack.Children) {
		return doc, nil
	}
	return tree.MapSubtree(doc, stack.ID, func(s *schema.Node) *schema.Node {
		cp := s.Copy()
		cp.Children[i], cp.Children[j] = cp.Children[j], cp.Children[i]
		return cp
	}), nil
}

// Promote moves the node out of its Stack and makes it the first child of
// the nearest Stack enclosing that one. Without such a Stack it is a no-op.
func Promote(doc *schema.Node, nodeID string) (*schema.Node, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeNoDocument, "no document loaded")
	}
	stack, _, err := locateInStack(doc, nodeID)
	if err != nil || stack == nil {
		return doc, err
	}
	path := tree.PathTo(doc, stack.ID)
	var outer *schema.Node
	for k := len(path) - 2; k >= 0; k-- {
		if path[k].IsStack() {
			outer = path[k]
			break
		}
	}
	if outer == nil {
		return doc, nil
	}
	node := tree.FindByID(doc, nodeID)
	out := removeFromStack(doc, stack.ID, nodeID)
	return tree.MapSubtree(out, outer.ID, func(s *schema.Node) *schema.Node {
		return insertChild(s, 0, node)
	}), nil
}

// Demote moves the node into a neighbouring subtree: it is appended to the
// Stack found by unwrapping the next sibling, or the previous sibling when
// the next one yields none. Unwrapping passes through CenteredContainer
// childNode and TitledContainer content until a Stack appears. Without such
// a Stack it is a no-op.
func Demote(doc *schema.Node, nodeID string) (*schema.Node, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeNoDocument, "no document loaded")
	}
	stack, i, err := locateInStack(doc, nodeID)
	if err != nil || stack == nil {
		return doc, err
	}
	var inner *schema.Node
	for _, j := range []int{i + 1, i - 1} {
		if j < 0 || j >= len(stack.Children) {
			continue
		}
		if inner = unwrapToStack(stack.Children[j]); inner != nil {
			break
		}
	}
	if inner == nil {
		return doc, nil
	}
	node := stack.Children[i]
	out := removeFromStack(doc, stack.ID, nodeID)
	return tree.MapSubtree(out, inner.ID, func(s *schema.Node) *schema.Node {
		return insertChild(s, len(s.Children), node)
	}), nil
}

func unwrapToStack(n *schema.Node) *schema.Node {
	for n != nil {
		switch {
		case n.IsStack():
			return n
		case n.IsCenteredContainer():
			n = n.ChildNode
		case n.IsTitledContainer():
			n = n.Content
		default:
			return nil
		}
	}
	return nil
}

// locateInStack returns the Stack holding nodeID and its index. A missing
// node is NOT_FOUND; a node that is not a stack child yields a nil stack
// and no error so callers can treat it as a no-op.
func locateInStack(doc *schema.Node, nodeID string) (*schema.Node, int, error) {
	if tree.FindByID(doc, nodeID) == nil {
		return nil, -1, schema.NewError(schema.ErrCodeNotFound, "node not found").WithNode(nodeID)
	}
	stack := tree.ContainingStack(doc, nodeID)
	if stack == nil {
		return nil, -1, nil
	}
	return stack, tree.IndexOf(stack, nodeID), nil
}
