package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// overlayTags returns the short ASCII indicators for a node's overlay.
func overlayTags(o *Overlay) []string {
	if o == nil {
		return nil
	}
	var tags []string
	if o.Selected {
		tags = append(tags, "[SEL]")
	}
	if o.Cut {
		tags = append(tags, "[CUT]")
	}
	return tags
}

// RenderASCII renders a DiagramModel as a text-based ASCII diagram: one row
// of boxes per tree level, then the declared links.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", model.Title)
	}

	for levelIdx, level := range model.Levels {
		var boxes []asciiBox
		for _, nodeID := range level {
			node := findNode(model.Nodes, nodeID)
			if node == nil {
				continue
			}
			boxes = append(boxes, makeBox(node))
		}

		renderBoxRow(&b, boxes)

		if levelIdx < len(model.Levels)-1 {
			renderConnector(&b, len(boxes))
		}
	}

	var links []Edge
	for _, e := range model.Edges {
		if e.Kind == EdgeLink {
			links = append(links, e)
		}
	}
	if len(links) > 0 {
		b.WriteString("\n--- links ---\n")
		for _, e := range links {
			fmt.Fprintf(&b, "    %s ─→ %s\n", e.From, e.To)
		}
	}

	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox creates an ASCII box for a node: its id, its label and any tags.
func makeBox(node *Node) asciiBox {
	contentLines := []string{node.ID, node.Label}
	if tags := overlayTags(node.Overlay); len(tags) > 0 {
		contentLines = append(contentLines, strings.Join(tags, " "))
	}

	maxLen := 0
	for _, line := range contentLines {
		maxLen = max(maxLen, utf8.RuneCountInString(line))
	}
	width := maxLen + 4 // 2 border + 2 padding

	var lines []string
	top := "┌" + strings.Repeat("─", width-2) + "┐"
	bot := "└" + strings.Repeat("─", width-2) + "┘"
	lines = append(lines, top)
	for _, content := range contentLines {
		padded := content + strings.Repeat(" ", maxLen-utf8.RuneCountInString(content))
		lines = append(lines, "│ "+padded+" │")
	}
	lines = append(lines, bot)

	return asciiBox{lines: lines, width: width}
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	maxHeight := 0
	for _, box := range boxes {
		maxHeight = max(maxHeight, len(box.lines))
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder, boxCount int) {
	if boxCount == 0 {
		return
	}
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}
