// Package selection re-locates the selected node after every document change
// and derives the eligibility flags the editor uses to gate actions.
package selection

import (
	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// Resolution is the selected node looked up in a specific document.
type Resolution struct {
	Node *schema.Node `json:"node,omitempty"`
	// IsChildOfStack gates delete, copy and cut.
	IsChildOfStack bool `json:"is_child_of_stack"`
	// IsAvailableToAdd gates adding children.
	IsAvailableToAdd bool `json:"is_available_to_add"`
}

// Found reports whether the node exists in the resolved document.
func (r Resolution) Found() bool { return r.Node != nil }

// Resolve finds id in doc and computes its eligibility.
//
// Depth is 0 at the root, resets to 1 when traversal enters a Stack's
// children and grows by one through every other wrapper. A node is a stack
// child only when it is found at depth 1, so the root and nodes nested
// solely inside non-Stack wrappers are never eligible.
func Resolve(doc *schema.Node, id string) Resolution {
	if doc == nil || id == "" {
		return Resolution{}
	}
	var (
		match *schema.Node
		depth int
	)
	// Depth only counts once a Stack has been entered; wrappers above the
	// first Stack never make a node a stack child.
	var visit func(n *schema.Node, d int, inStack bool) bool
	visit = func(n *schema.Node, d int, inStack bool) bool {
		if n.ID == id {
			match, depth = n, d
			if !inStack {
				depth = 0
			}
			return true
		}
		for _, c := range tree.ChildrenOf(n) {
			next, entered := d+1, inStack
			if n.IsStack() {
				next, entered = 1, true
			}
			if visit(c, next, entered) {
				return true
			}
		}
		return false
	}
	if !visit(doc, 0, false) {
		return Resolution{}
	}
	return Resolution{
		Node:             match,
		IsChildOfStack:   depth == 1,
		IsAvailableToAdd: match.IsStack(),
	}
}

// Selection is the stateful holder of the selected id and its last
// resolution. It is not safe for concurrent use; the session serializes
// access.
type Selection struct {
	id         string
	resolution Resolution
}

// ID returns the selected id, or "" when nothing is selected.
func (s *Selection) ID() string { return s.id }

// Current returns the last resolution. The cached node may be stale if the
// document changed without a Refresh.
func (s *Selection) Current() Resolution { return s.resolution }

// Select sets the selected id and resolves it against doc. Selecting an id
// that does not exist clears the selection and returns false.
func (s *Selection) Select(doc *schema.Node, id string) bool {
	s.id = id
	return s.Refresh(doc)
}

// Refresh re-resolves the selected id against doc. It clears the selection
// when the node no longer exists and reports whether a node is selected.
func (s *Selection) Refresh(doc *schema.Node) bool {
	if s.id == "" {
		s.resolution = Resolution{}
		return false
	}
	s.resolution = Resolve(doc, s.id)
	if !s.resolution.Found() {
		s.Clear()
		return false
	}
	return true
}

// Clear drops the selection.
func (s *Selection) Clear() {
	s.id = ""
	s.resolution = Resolution{}
}
