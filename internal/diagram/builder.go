package diagram

import (
	"fmt"
	"html"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

const maxLabelRunes = 24

// Build constructs a DiagramModel from doc. selectedID, when present in the
// document, is highlighted. Links whose ends are missing are skipped.
func Build(doc *schema.Node, selectedID string) (*DiagramModel, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeNoDocument, "diagram: no document")
	}

	model := &DiagramModel{Title: fmt.Sprintf("Document %s", doc.ID)}
	ids := make(map[string]struct{})

	tree.Walk(doc, func(n, parent *schema.Node, depth int) bool {
		node := &Node{
			ID:    n.ID,
			Label: nodeLabel(n),
			Kind:  nodeTypeToKind(n.NodeType),
			Depth: depth,
		}
		if n.ID == selectedID || n.Cut {
			node.Overlay = &Overlay{Selected: n.ID == selectedID, Cut: n.Cut}
		}
		model.Nodes = append(model.Nodes, node)
		ids[n.ID] = struct{}{}

		for len(model.Levels) <= depth {
			model.Levels = append(model.Levels, nil)
		}
		model.Levels[depth] = append(model.Levels[depth], n.ID)

		if parent != nil {
			model.Edges = append(model.Edges, Edge{
				From:  parent.ID,
				To:    n.ID,
				Label: slotName(parent, n),
				Kind:  EdgeContains,
			})
		}
		return true
	})

	tree.Walk(doc, func(n, _ *schema.Node, _ int) bool {
		for _, l := range n.Links {
			_, from := ids[l.FromID]
			_, to := ids[l.ToID]
			if from && to {
				model.Edges = append(model.Edges, Edge{From: l.FromID, To: l.ToID, Kind: EdgeLink})
			}
		}
		return true
	})

	return model, nil
}

// nodeTypeToKind converts a schema.NodeType to a NodeKind.
func nodeTypeToKind(t schema.NodeType) NodeKind {
	switch t {
	case schema.NodeTypeStack:
		return NodeKindStack
	case schema.NodeTypeIconText:
		return NodeKindIconText
	case schema.NodeTypeTitledContainer:
		return NodeKindTitled
	case schema.NodeTypeCenteredContainer:
		return NodeKindCentered
	case schema.NodeTypeImage:
		return NodeKindImage
	default:
		return NodeKindText
	}
}

// nodeLabel creates a one-line summary of a node.
func nodeLabel(n *schema.Node) string {
	switch n.NodeType {
	case schema.NodeTypeStack:
		dir := "row"
		if n.Vertical {
			dir = "column"
		}
		return fmt.Sprintf("stack %s (%d)", dir, len(n.Children))
	case schema.NodeTypeText:
		return fmt.Sprintf("%q", truncate(plainText(n.HTMLText)))
	case schema.NodeTypeIconText:
		return "icon " + n.Icon
	case schema.NodeTypeTitledContainer:
		return "titled container"
	case schema.NodeTypeCenteredContainer:
		return "centered container"
	case schema.NodeTypeImage:
		if n.URL == "" {
			return "image"
		}
		return "image " + path.Base(n.URL)
	default:
		return string(n.NodeType)
	}
}

// slotName returns the field of parent that holds child, or "" for stack
// children.
func slotName(parent, child *schema.Node) string {
	switch child {
	case parent.TitleText:
		return "title"
	case parent.Content:
		return "content"
	case parent.ChildNode:
		return "child"
	case parent.Text:
		return "text"
	}
	return ""
}

// plainText strips markup from rich text.
func plainText(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxLabelRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxLabelRunes-1]) + "…"
}

// findNode looks up a node by ID in the model's node list.
func findNode(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
