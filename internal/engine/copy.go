package engine

import (
	"github.com/google/uuid"

	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// IDFunc produces candidate node ids.
type IDFunc func() string

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// DeepCopy clones n and every descendant, giving each clone an id from
// newID that is not in taken. Generated ids are added to taken. The clones
// have their cut marker cleared.
func DeepCopy(n *schema.Node, taken map[string]struct{}, newID IDFunc) *schema.Node {
	if n == nil {
		return nil
	}
	if newID == nil {
		newID = NewID
	}
	cp := n.Copy()
	cp.ID = freshID(taken, newID)
	cp.Cut = false
	return tree.MapChildren(cp, func(c *schema.Node) *schema.Node {
		return DeepCopy(c, taken, newID)
	})
}

func freshID(taken map[string]struct{}, newID IDFunc) string {
	for {
		id := newID()
		if _, dup := taken[id]; id != "" && !dup {
			taken[id] = struct{}{}
			return id
		}
	}
}

// CopyAndInsert deep-copies source with fresh ids and inserts the clone
// right after the original in the Stack that holds it. If no Stack holds the
// original and the root is a Stack, the clone is appended to the root.
// It returns the new document and the inserted clone.
func CopyAndInsert(doc, source *schema.Node, newID IDFunc) (*schema.Node, *schema.Node, error) {
	if doc == nil {
		return nil, nil, schema.NewError(schema.ErrCodeNoDocument, "no document loaded")
	}
	if source == nil {
		return doc, nil, schema.NewError(schema.ErrCodeClipboardEmpty, "nothing to paste")
	}
	clone := DeepCopy(source, tree.IDs(doc), newID)

	if stack := tree.ContainingStack(doc, source.ID); stack != nil {
		at := tree.IndexOf(stack, source.ID) + 1
		return tree.MapSubtree(doc, stack.ID, func(s *schema.Node) *schema.Node {
			return insertChild(s, at, clone)
		}), clone, nil
	}
	if doc.IsStack() {
		cp := insertChild(doc, len(doc.Children), clone)
		return cp, clone, nil
	}
	return doc, nil, schema.NewError(schema.ErrCodeNoTarget, "no stack to paste into").WithNode(source.ID)
}
