package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
// Containment edges are solid, links dotted.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	if model.Title != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", model.Title)
	}

	for _, node := range model.Nodes {
		fmt.Fprintf(&b, "    %s\n", mermaidNodeDef(node))
	}

	for _, edge := range model.Edges {
		arrow := "-->"
		if edge.Kind == EdgeLink {
			arrow = "-.->"
		}
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", edge.Label)
		}
		fmt.Fprintf(&b, "    %s %s%s %s\n", mermaidSafeID(edge.From), arrow, label, mermaidSafeID(edge.To))
	}

	b.WriteString("\n")
	b.WriteString("    classDef selected fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef cut fill:#e8e8e8,stroke:#888,color:#888,stroke-dasharray:5 5\n")

	for _, node := range model.Nodes {
		if node.Overlay == nil {
			continue
		}
		if node.Overlay.Selected {
			fmt.Fprintf(&b, "    class %s selected\n", mermaidSafeID(node.ID))
		} else if node.Overlay.Cut {
			fmt.Fprintf(&b, "    class %s cut\n", mermaidSafeID(node.ID))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(node.Label)

	switch node.Kind {
	case NodeKindStack:
		return fmt.Sprintf("%s[[%q]]", id, label)
	case NodeKindTitled:
		return fmt.Sprintf("%s{{%q}}", id, label)
	case NodeKindCentered:
		return fmt.Sprintf("%s([%q])", id, label)
	case NodeKindIconText:
		return fmt.Sprintf("%s>%q]", id, label)
	case NodeKindImage:
		return fmt.Sprintf("%s[/%q/]", id, label)
	default: // text
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return "n_" + r.Replace(id)
}

// mermaidEscapeLabel replaces quotes, which Mermaid cannot escape inside a
// quoted label.
func mermaidEscapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "'")
}
