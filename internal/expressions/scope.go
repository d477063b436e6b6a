package expressions

import (
	"encoding/json"

	"github.com/rendis/canopy/pkg/schema"
)

// Scope variable names shared by every engine.
const (
	ScopeNode         = "node"
	ScopeParent       = "parent"
	ScopeChildren     = "children"
	ScopePath         = "path"
	ScopeDepth        = "depth"
	ScopeChildOfStack = "childOfStack"
)

// NodeScope builds the evaluation scope for n. node and parent hold the
// node attributes without nested nodes; children and path carry ids.
func NodeScope(n, parent *schema.Node, path []string, depth int) map[string]any {
	return map[string]any{
		ScopeNode:         attributes(n),
		ScopeParent:       attributes(parent),
		ScopeChildren:     childIDs(n),
		ScopePath:         append([]string{}, path...),
		ScopeDepth:        depth,
		ScopeChildOfStack: parent.IsStack(),
	}
}

// attributes flattens n to its JSON attributes, leaving out nested nodes.
func attributes(n *schema.Node) map[string]any {
	if n == nil {
		return map[string]any{}
	}
	shallow := *n
	shallow.Children = nil
	shallow.TitleText = nil
	shallow.Content = nil
	shallow.ChildNode = nil
	shallow.Text = nil

	raw, err := json.Marshal(shallow)
	if err != nil {
		return map[string]any{"id": n.ID, "nodeType": string(n.NodeType)}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"id": n.ID, "nodeType": string(n.NodeType)}
	}
	delete(out, "children")
	return out
}

func childIDs(n *schema.Node) []string {
	ids := []string{}
	switch {
	case n.IsStack():
		for _, c := range n.Children {
			ids = append(ids, c.ID)
		}
	case n.IsTitledContainer():
		for _, c := range []*schema.Node{n.TitleText, n.Content} {
			if c != nil {
				ids = append(ids, c.ID)
			}
		}
	case n.IsCenteredContainer():
		if n.ChildNode != nil {
			ids = append(ids, n.ChildNode.ID)
		}
	case n.IsIconText():
		if n.Text != nil {
			ids = append(ids, n.Text.ID)
		}
	}
	return ids
}

// withScopeDefaults fills missing scope keys so partial data maps evaluate
// without undefined-variable errors.
func withScopeDefaults(data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+6)
	for k, v := range data {
		out[k] = v
	}
	defaults := map[string]any{
		ScopeNode:         map[string]any{},
		ScopeParent:       map[string]any{},
		ScopeChildren:     []string{},
		ScopePath:         []string{},
		ScopeDepth:        0,
		ScopeChildOfStack: false,
	}
	for k, v := range defaults {
		if cur, ok := out[k]; !ok || cur == nil {
			out[k] = v
		}
	}
	return out
}

func compileError(lang, expression string, err error) *schema.EditorError {
	return schema.NewErrorf(schema.ErrCodeValidation,
		"%s compile error in %q: %s", lang, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression, "language": lang})
}

func evalError(lang, expression string, err error) *schema.EditorError {
	return schema.NewErrorf(schema.ErrCodeExpression,
		"%s evaluation failed for %q: %s", lang, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression, "language": lang})
}
