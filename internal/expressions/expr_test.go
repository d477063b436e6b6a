package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/canopy/pkg/schema"
)

func TestExpr_NodeScope(t *testing.T) {
	e := NewExprEngine()
	assert.Equal(t, LangExpr, e.Name())
	ctx := context.Background()
	scope := textScope()

	tests := []struct {
		expr string
		want any
	}{
		{`node.nodeType == "TEXT"`, true},
		{`node.htmltext contains "ell"`, true},
		{`depth > 0 && childOfStack`, true},
		{`len(children)`, 0},
		{`path[0]`, "root"},
		{`node.url ?? "none"`, "none"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := e.Evaluate(ctx, tt.expr, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestExpr_UndefinedVariableIsNil(t *testing.T) {
	e := NewExprEngine()
	out, err := e.Evaluate(context.Background(), `missing == nil`, textScope())
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestExpr_Errors(t *testing.T) {
	e := NewExprEngine()
	ctx := context.Background()

	_, err := e.Evaluate(ctx, "", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, err = e.Evaluate(ctx, "depth +", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, err = e.Evaluate(ctx, `path[5]`, textScope())
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))
}

func TestExpr_CacheReuse(t *testing.T) {
	e := NewExprEngine()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := e.Evaluate(ctx, `depth`, textScope())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, e.cache.Len())
}
