// Package tree provides the generic traversal primitives shared by every
// component that inspects or rebuilds a layout document.
//
// All functions treat their input as immutable. Rebuilding functions copy
// only the nodes on the path to a change and share everything else.
package tree

import "github.com/rendis/canopy/pkg/schema"

// ChildrenOf returns the ordered children of n, or nil for leaves.
// TitledContainer lists its title before its content.
func ChildrenOf(n *schema.Node) []*schema.Node {
	switch {
	case n.IsStack():
		return n.Children
	case n.IsTitledContainer():
		return compact(n.TitleText, n.Content)
	case n.IsCenteredContainer():
		return compact(n.ChildNode)
	case n.IsIconText():
		return compact(n.Text)
	default:
		return nil
	}
}

func compact(nodes ...*schema.Node) []*schema.Node {
	out := make([]*schema.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// MapChildren applies fn to every direct child of n and returns a rebuilt
// copy of n. If fn returns every child unchanged, n itself is returned.
// A Stack child for which fn returns nil is dropped from the list; a nil
// result for any other slot is ignored and the original child kept.
func MapChildren(n *schema.Node, fn func(*schema.Node) *schema.Node) *schema.Node {
	switch {
	case n.IsStack():
		changed := false
		children := make([]*schema.Node, 0, len(n.Children))
		for _, c := range n.Children {
			nc := fn(c)
			if nc != c {
				changed = true
			}
			if nc != nil {
				children = append(children, nc)
			}
		}
		if !changed {
			return n
		}
		cp := n.Copy()
		cp.Children = children
		return cp

	case n.IsTitledContainer():
		title := mapSlot(n.TitleText, fn)
		content := mapSlot(n.Content, fn)
		if title == n.TitleText && content == n.Content {
			return n
		}
		cp := n.Copy()
		cp.TitleText, cp.Content = title, content
		return cp

	case n.IsCenteredContainer():
		child := mapSlot(n.ChildNode, fn)
		if child == n.ChildNode {
			return n
		}
		cp := n.Copy()
		cp.ChildNode = child
		return cp

	case n.IsIconText():
		text := mapSlot(n.Text, fn)
		if text == n.Text {
			return n
		}
		cp := n.Copy()
		cp.Text = text
		return cp
	}
	return n
}

func mapSlot(child *schema.Node, fn func(*schema.Node) *schema.Node) *schema.Node {
	if child == nil {
		return nil
	}
	if nc := fn(child); nc != nil {
		return nc
	}
	return child
}

// FindByID returns the first node with the given id in depth-first order,
// or nil when absent.
func FindByID(root *schema.Node, id string) *schema.Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, c := range ChildrenOf(root) {
		if found := FindByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// MapSubtree rebuilds the path from root to the node with the given id,
// replacing that node with fn(node). Untouched subtrees are shared. When no
// node matches, root is returned as is.
func MapSubtree(root *schema.Node, id string, fn func(*schema.Node) *schema.Node) *schema.Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return fn(root)
	}
	return MapChildren(root, func(c *schema.Node) *schema.Node {
		return MapSubtree(c, id, fn)
	})
}

// WalkFunc is called for every node visited by Walk. Returning false skips
// the node's subtree.
type WalkFunc func(n, parent *schema.Node, depth int) bool

// Walk visits root and its descendants in pre-order. The root has depth 0
// and a nil parent.
func Walk(root *schema.Node, fn WalkFunc) {
	walk(root, nil, 0, fn)
}

func walk(n, parent *schema.Node, depth int, fn WalkFunc) {
	if n == nil {
		return
	}
	if !fn(n, parent, depth) {
		return
	}
	for _, c := range ChildrenOf(n) {
		walk(c, n, depth+1, fn)
	}
}

// ParentOf returns the direct parent of the node with the given id, or nil
// when the node is the root or absent.
func ParentOf(root *schema.Node, id string) *schema.Node {
	var parent *schema.Node
	found := false
	Walk(root, func(n, p *schema.Node, _ int) bool {
		if found {
			return false
		}
		if n.ID == id {
			parent, found = p, true
			return false
		}
		return true
	})
	return parent
}

// PathTo returns the nodes from root down to the node with the given id,
// both included, or nil when the id is absent.
func PathTo(root *schema.Node, id string) []*schema.Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return []*schema.Node{root}
	}
	for _, c := range ChildrenOf(root) {
		if path := PathTo(c, id); path != nil {
			return append([]*schema.Node{root}, path...)
		}
	}
	return nil
}

// IDs returns the set of every id in the tree.
func IDs(root *schema.Node) map[string]struct{} {
	ids := make(map[string]struct{})
	Walk(root, func(n, _ *schema.Node, _ int) bool {
		ids[n.ID] = struct{}{}
		return true
	})
	return ids
}

// Count returns the number of nodes in the tree.
func Count(root *schema.Node) int {
	count := 0
	Walk(root, func(*schema.Node, *schema.Node, int) bool {
		count++
		return true
	})
	return count
}

// IndexOf returns the position of the child with the given id inside a
// Stack's children, or -1.
func IndexOf(stack *schema.Node, id string) int {
	if !stack.IsStack() {
		return -1
	}
	for i, c := range stack.Children {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// ContainingStack returns the Stack whose children list directly holds the
// node with the given id, or nil.
func ContainingStack(root *schema.Node, id string) *schema.Node {
	parent := ParentOf(root, id)
	if parent.IsStack() {
		return parent
	}
	return nil
}

// DanglingLink is a link whose endpoint no longer exists in the tree.
type DanglingLink struct {
	OwnerID string
	Link    schema.Link
}

// DanglingLinks reports every link that references a missing node. Links
// are never rewritten by structural edits, so deletes and moves can leave
// these behind.
func DanglingLinks(root *schema.Node) []DanglingLink {
	ids := IDs(root)
	var out []DanglingLink
	Walk(root, func(n, _ *schema.Node, _ int) bool {
		for _, l := range n.Links {
			_, fromOK := ids[l.FromID]
			_, toOK := ids[l.ToID]
			if !fromOK || !toOK {
				out = append(out, DanglingLink{OwnerID: n.ID, Link: l})
			}
		}
		return true
	})
	return out
}
