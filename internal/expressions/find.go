package expressions

import (
	"context"

	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// Language identifiers accepted by Finder.
const (
	LangCEL  = "cel"
	LangExpr = "expr"
	LangJQ   = "jq"
)

// Match is one node selected by a predicate.
type Match struct {
	ID       string          `json:"id"`
	NodeType schema.NodeType `json:"nodeType"`
	Depth    int             `json:"depth"`
	Path     []string        `json:"path"`
}

// Finder runs node predicates in any registered language.
type Finder struct {
	engines map[string]Engine
}

// NewFinder creates a Finder with the CEL, expr and jq engines registered.
func NewFinder() (*Finder, error) {
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	f := &Finder{engines: make(map[string]Engine, 3)}
	for _, e := range []Engine{celEngine, NewExprEngine(), NewGoJQEngine()} {
		f.engines[e.Name()] = e
	}
	return f, nil
}

// Engine returns the engine registered under lang.
func (f *Finder) Engine(lang string) (Engine, bool) {
	e, ok := f.engines[lang]
	return e, ok
}

// Find walks doc in pre-order and returns every node for which the
// predicate is truthy. An empty lang means CEL.
func (f *Finder) Find(ctx context.Context, lang, expression string, doc *schema.Node) ([]Match, error) {
	if lang == "" {
		lang = LangCEL
	}
	engine, ok := f.engines[lang]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown expression language %q", lang)
	}
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty expression")
	}

	matches := []Match{}
	var firstErr error
	var path []string
	tree.Walk(doc, func(n, parent *schema.Node, depth int) bool {
		if firstErr != nil {
			return false
		}
		if err := ctx.Err(); err != nil {
			firstErr = err
			return false
		}
		path = append(path[:depth], n.ID)
		out, err := engine.Evaluate(ctx, expression, NodeScope(n, parent, path[:depth], depth))
		if err != nil {
			firstErr = err
			return false
		}
		if truthy(out) {
			matches = append(matches, Match{
				ID:       n.ID,
				NodeType: n.NodeType,
				Depth:    depth,
				Path:     append([]string{}, path[:depth]...),
			})
		}
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return matches, nil
}

// truthy follows jq: only null and false are false.
func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	default:
		return true
	}
}
