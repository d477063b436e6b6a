package validation

import (
	"fmt"

	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// Issue codes reported by the structural pass.
const (
	IssueDuplicateID   = "DUPLICATE_ID"
	IssueEmptyID       = "EMPTY_ID"
	IssueUnknownType   = "UNKNOWN_NODE_TYPE"
	IssueMissingSlot   = "MISSING_SLOT"
	IssueSlotType      = "SLOT_TYPE"
	IssueStrayChildren = "STRAY_CHILDREN"
	IssueDanglingLink  = "DANGLING_LINK"
	IssueRootNotStack  = "ROOT_NOT_STACK"
)

// validateStructure checks what JSON Schema cannot: ids unique across the
// whole tree, slot variants, and link endpoints.
func validateStructure(doc *schema.Node, taken map[string]struct{}) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if doc == nil {
		result.AddError("/", schema.ErrCodeValidation, "document is nil")
		return result
	}

	seen := make(map[string]string)
	var visit func(n *schema.Node, path string)
	visit = func(n *schema.Node, path string) {
		if n == nil {
			return
		}
		switch {
		case n.ID == "":
			result.AddError(at(path), IssueEmptyID, "node has no id")
		case seen[n.ID] != "":
			result.AddNodeError(at(path), n.ID, IssueDuplicateID, fmt.Sprintf("id %q already used at %s", n.ID, seen[n.ID]))
		default:
			if _, clash := taken[n.ID]; clash {
				result.AddNodeError(at(path), n.ID, IssueDuplicateID, fmt.Sprintf("id %q already exists in the document", n.ID))
			}
			seen[n.ID] = path
		}
		if !n.NodeType.Valid() {
			result.AddNodeError(at(path), n.ID, IssueUnknownType, fmt.Sprintf("unknown node type %q", n.NodeType))
			return
		}
		if !n.IsStack() && len(n.Children) > 0 {
			result.AddNodeWarning(at(path), n.ID, IssueStrayChildren, fmt.Sprintf("%s ignores its children", n.NodeType))
		}

		switch {
		case n.IsStack():
			for i, c := range n.Children {
				visit(c, fmt.Sprintf("%s/children/%d", path, i))
			}
		case n.IsTitledContainer():
			requireText(result, n.ID, n.TitleText, path+"/titleText")
			requireSlot(result, n.ID, n.Content, path+"/content")
			visit(n.TitleText, path+"/titleText")
			visit(n.Content, path+"/content")
		case n.IsCenteredContainer():
			requireSlot(result, n.ID, n.ChildNode, path+"/childNode")
			visit(n.ChildNode, path+"/childNode")
		case n.IsIconText():
			requireText(result, n.ID, n.Text, path+"/text")
			visit(n.Text, path+"/text")
		}
	}
	visit(doc, "")

	for _, d := range tree.DanglingLinks(doc) {
		result.AddNodeWarning(at(seen[d.OwnerID]), d.OwnerID, IssueDanglingLink,
			fmt.Sprintf("link %s -> %s has a missing end", d.Link.FromID, d.Link.ToID))
	}
	return result
}

// requireSlot and requireText report slot problems against the owner.
func requireSlot(result *schema.ValidationResult, ownerID string, n *schema.Node, path string) {
	if n == nil {
		result.AddNodeError(at(path), ownerID, IssueMissingSlot, "required child is missing")
	}
}

func requireText(result *schema.ValidationResult, ownerID string, n *schema.Node, path string) {
	if n == nil {
		result.AddNodeError(at(path), ownerID, IssueMissingSlot, "required text child is missing")
		return
	}
	if !n.IsText() {
		result.AddNodeError(at(path), ownerID, IssueSlotType, fmt.Sprintf("slot must hold a TEXT, got %s", n.NodeType))
	}
}

// at renders a node path; the root is "/".
func at(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
