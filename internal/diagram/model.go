// Package diagram renders a layout document for people and agents: an ASCII
// level view, a Mermaid flowchart and a PNG through graphviz. It stands in
// for the visual renderer when the editor runs headless.
package diagram

// NodeKind classifies a diagram node by its layout node type.
type NodeKind string

const (
	NodeKindStack    NodeKind = "stack"
	NodeKindText     NodeKind = "text"
	NodeKindIconText NodeKind = "icon_text"
	NodeKindTitled   NodeKind = "titled"
	NodeKindCentered NodeKind = "centered"
	NodeKindImage    NodeKind = "image"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents a single layout node.
type Node struct {
	ID      string
	Label   string
	Kind    NodeKind
	Depth   int
	Overlay *Overlay
}

// Overlay carries editor state for a node.
type Overlay struct {
	Selected bool
	Cut      bool
}

// EdgeKind separates tree containment from declared links.
type EdgeKind string

const (
	EdgeContains EdgeKind = "contains"
	EdgeLink     EdgeKind = "link"
)

// Edge connects two nodes. Containment edges carry the slot name of the
// child, when it is not a plain stack child.
type Edge struct {
	From  string
	To    string
	Label string
	Kind  EdgeKind
}
