package expressions

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rendis/canopy/pkg/schema"
)

// ExprEngine evaluates expr-lang expressions. Scope keys are top-level
// variables, so `node.nodeType == "TEXT" && depth > 1` works as written.
type ExprEngine struct {
	cache *lru.Cache[string, *vm.Program]
}

// NewExprEngine creates a new expr engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{cache: newCache[*vm.Program]()}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return LangExpr
}

// Evaluate compiles (or reuses) expression and runs it against data.
func (e *ExprEngine) Evaluate(_ context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty expr expression")
	}

	env := withScopeDefaults(data)
	prg, err := e.getOrCompile(expression, env)
	if err != nil {
		return nil, err
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, evalError(LangExpr, expression, err)
	}
	return out, nil
}

func (e *ExprEngine) getOrCompile(expression string, env map[string]any) (*vm.Program, error) {
	if prg, ok := e.cache.Get(expression); ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, compileError(LangExpr, expression, err)
	}

	e.cache.Add(expression, prg)
	return prg, nil
}

var _ Engine = (*ExprEngine)(nil)
