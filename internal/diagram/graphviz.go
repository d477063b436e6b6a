package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

type kindStyle struct {
	shape cgraph.Shape
	fill  string
}

// Containers get muted fills so leaves stand out in large documents.
var kindStyles = map[NodeKind]kindStyle{
	NodeKindStack:    {shape: cgraph.BoxShape, fill: "#eef2f7"},
	NodeKindTitled:   {shape: cgraph.HexagonShape, fill: "#eef2f7"},
	NodeKindCentered: {shape: cgraph.OctagonShape, fill: "#eef2f7"},
	NodeKindText:     {shape: cgraph.EllipseShape, fill: "#ffffff"},
	NodeKindIconText: {shape: cgraph.EllipseShape, fill: "#fdf6e3"},
	NodeKindImage:    {shape: cgraph.DiamondShape, fill: "#f3eefa"},
}

// RenderImage lays the document tree out top to bottom and returns it as
// PNG bytes.
func RenderImage(ctx context.Context, model *DiagramModel) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	placed := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, n := range model.Nodes {
		gvNode, nErr := graph.CreateNodeByName(n.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", n.ID, nErr)
		}
		styleNode(gvNode, n)
		placed[n.ID] = gvNode
	}

	for _, edge := range model.Edges {
		if err := addEdge(graph, placed, edge); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// addEdge draws containment as solid arrows and links as dashed ones that
// do not pull on the layout. Edges with an unplaced end are skipped.
func addEdge(graph *cgraph.Graph, placed map[string]*cgraph.Node, edge Edge) error {
	from, to := placed[edge.From], placed[edge.To]
	if from == nil || to == nil {
		return nil
	}
	e, err := graph.CreateEdgeByName("", from, to)
	if err != nil {
		return fmt.Errorf("diagram: edge %s -> %s: %w", edge.From, edge.To, err)
	}
	if edge.Label != "" {
		e.SetLabel(edge.Label)
	}
	if edge.Kind == EdgeLink {
		e.SetStyle(cgraph.DashedEdgeStyle)
		e.SetColor("#1a5276")
		e.SetConstraint(false)
	}
	return nil
}

func styleNode(gvNode *cgraph.Node, n *Node) {
	label := n.ID
	if n.Label != "" && n.Label != n.ID {
		label += "\n" + n.Label
	}
	gvNode.SetLabel(label)

	st, ok := kindStyles[n.Kind]
	if !ok {
		st = kindStyle{shape: cgraph.EllipseShape, fill: "#ffffff"}
	}
	gvNode.SetShape(st.shape)
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	gvNode.SetFillColor(st.fill)

	switch {
	case n.Overlay == nil:
	case n.Overlay.Selected:
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	case n.Overlay.Cut:
		gvNode.SetStyle(cgraph.DashedNodeStyle)
		gvNode.SetFontColor("#888888")
	}
}
