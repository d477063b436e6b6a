package expressions

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rendis/canopy/pkg/schema"
)

// CELEngine evaluates Common Expression Language predicates. Compiled
// programs are cached and safe for concurrent use.
type CELEngine struct {
	env   *cel.Env
	cache *lru.Cache[string, cel.Program]
}

// NewCELEngine creates a CEL engine whose environment declares the node
// scope variables:
//   - node, parent: map(string, dyn), the node's attributes
//   - children, path: list(string), child ids and ancestor ids
//   - depth: int
//   - childOfStack: bool
func NewCELEngine() (*CELEngine, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)
	listType := cel.ListType(cel.StringType)

	env, err := cel.NewEnv(
		cel.Variable(ScopeNode, mapType),
		cel.Variable(ScopeParent, mapType),
		cel.Variable(ScopeChildren, listType),
		cel.Variable(ScopePath, listType),
		cel.Variable(ScopeDepth, cel.IntType),
		cel.Variable(ScopeChildOfStack, cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{env: env, cache: newCache[cel.Program]()}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return LangCEL
}

// Evaluate compiles (or reuses) expression and runs it against data.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty CEL expression")
	}
	prg, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.ContextEval(ctx, withScopeDefaults(data))
	if err != nil {
		return nil, evalError(LangCEL, expression, err)
	}
	return out.Value(), nil
}

func (e *CELEngine) getOrCompile(expression string) (cel.Program, error) {
	if prg, ok := e.cache.Get(expression); ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, compileError(LangCEL, expression, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, compileError(LangCEL, expression, err)
	}

	e.cache.Add(expression, prg)
	return prg, nil
}

var _ Engine = (*CELEngine)(nil)
