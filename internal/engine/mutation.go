// Package engine implements the pure document mutations of the editor.
//
// Every function takes a document and returns a document. Inputs are never
// modified; the path from the root to each change is copied and all other
// subtrees are shared. When a call changes nothing it returns the very same
// root pointer, which callers use to skip history commits. On failure the
// input document is returned together with a *schema.EditorError.
package engine

import (
	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// AddChild appends node to the children of the Stack with id parentID.
func AddChild(doc *schema.Node, parentID string, node *schema.Node) (*schema.Node, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeNoDocument, "no document loaded")
	}
	if node == nil {
		return doc, schema.NewError(schema.ErrCodeValidation, "node to add is nil")
	}
	parent := tree.FindByID(doc, parentID)
	if parent == nil {
		return doc, schema.NewError(schema.ErrCodeNotFound, "parent not found").WithNode(parentID)
	}
	if !parent.IsStack() {
		return doc, schema.NewErrorf(schema.ErrCodeIneligible, "children can only be added to a stack, got %s", parent.NodeType).WithNode(parentID)
	}
	if err := checkFreshIDs(doc, node); err != nil {
		return doc, err
	}
	return tree.MapSubtree(doc, parentID, func(s *schema.Node) *schema.Node {
		return insertChild(s, len(s.Children), node)
	}), nil
}

// UpdateProperty replaces one non-structural attribute of the node at nodeID.
func UpdateProperty(doc *schema.Node, nodeID, key string, value any) (*schema.Node, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeNoDocument, "no document loaded")
	}
	target := tree.FindByID(doc, nodeID)
	if target == nil {
		return doc, schema.NewError(schema.ErrCodeNotFound, "node not found").WithNode(nodeID)
	}
	updated, err := target.SetProperty(key, value)
	if err != nil {
		return doc, err
	}
	return tree.MapSubtree(doc, nodeID, func(*schema.Node) *schema.Node { return updated }), nil
}

// DeleteNode removes the node at nodeID from its parent Stack. The root and
// the structural children of containers cannot be deleted.
func DeleteNode(doc *schema.Node, nodeID string) (*schema.Node, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeNoDocument, "no document loaded")
	}
	if doc.ID == nodeID {
		return doc, schema.NewError(schema.ErrCodeIneligible, "the root cannot be deleted").WithNode(nodeID)
	}
	parent := tree.ParentOf(doc, nodeID)
	if parent == nil {
		return doc, schema.NewError(schema.ErrCodeNotFound, "node not found").WithNode(nodeID)
	}
	if !parent.IsStack() {
		return doc, schema.NewErrorf(schema.ErrCodeIneligible, "only direct stack children can be deleted, parent is %s", parent.NodeType).WithNode(nodeID)
	}
	return removeFromStack(doc, parent.ID, nodeID), nil
}

// checkFreshIDs rejects a subtree whose ids collide with doc or repeat
// within the subtree itself.
func checkFreshIDs(doc, sub *schema.Node) error {
	taken := tree.IDs(doc)
	var err error
	tree.Walk(sub, func(n, _ *schema.Node, _ int) bool {
		if err != nil {
			return false
		}
		if n.ID == "" {
			err = schema.NewErrorf(schema.ErrCodeValidation, "%s node has an empty id", n.NodeType)
			return false
		}
		if _, dup := taken[n.ID]; dup {
			err = schema.NewError(schema.ErrCodeValidation, "id already used in document").WithNode(n.ID)
			return false
		}
		taken[n.ID] = struct{}{}
		return true
	})
	return err
}

// insertChild returns a copy of stack with node placed at index i.
func insertChild(stack *schema.Node, i int, node *schema.Node) *schema.Node {
	cp := stack.Copy()
	if i < 0 {
		i = 0
	}
	if i > len(cp.Children) {
		i = len(cp.Children)
	}
	cp.Children = append(cp.Children, nil)
	copy(cp.Children[i+1:], cp.Children[i:])
	cp.Children[i] = node
	return cp
}

// removeFromStack drops childID from the children of the Stack stackID.
func removeFromStack(doc *schema.Node, stackID, childID string) *schema.Node {
	return tree.MapSubtree(doc, stackID, func(s *schema.Node) *schema.Node {
		return tree.MapChildren(s, func(c *schema.Node) *schema.Node {
			if c.ID == childID {
				return nil
			}
			return c
		})
	})
}
