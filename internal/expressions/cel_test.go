package expressions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/canopy/pkg/schema"
)

func textScope() map[string]any {
	stack := schema.NewStack("root", schema.NewText("t1", "Hello"))
	return NodeScope(stack.Children[0], stack, []string{"root"}, 1)
}

func TestNewCELEngine(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	assert.Equal(t, LangCEL, e.Name())
}

func TestCEL_Literals(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()

	out, err := e.Evaluate(ctx, "true", nil)
	require.NoError(t, err)
	assert.Equal(t, true, out)

	out, err = e.Evaluate(ctx, "1 + 2", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
}

func TestCEL_NodeScope(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()
	scope := textScope()

	tests := []struct {
		expr string
		want any
	}{
		{`node.nodeType == "TEXT"`, true},
		{`node.htmltext`, "Hello"},
		{`parent.nodeType == "STACK" && childOfStack`, true},
		{`depth`, int64(1)},
		{`"root" in path`, true},
		{`size(children)`, int64(0)},
		{`has(node.url)`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := e.Evaluate(ctx, tt.expr, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCEL_MissingScopeDefaults(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	out, err := e.Evaluate(context.Background(), `depth == 0 && size(node) == 0 && !childOfStack`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestCEL_Errors(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.Evaluate(ctx, "", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, err = e.Evaluate(ctx, "node.", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, err = e.Evaluate(ctx, "unknown_var == 1", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation), "undeclared variables fail at compile time")

	_, err = e.Evaluate(ctx, `node.missing == "x"`, textScope())
	require.Error(t, err)
	var edErr *schema.EditorError
	require.True(t, errors.As(err, &edErr))
	assert.Equal(t, schema.ErrCodeExpression, edErr.Code)
	assert.Equal(t, LangCEL, edErr.Details["language"])
}

func TestCEL_CacheReuse(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.Evaluate(ctx, `node.nodeType == "TEXT"`, textScope())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, e.cache.Len())
}

func TestCEL_ConcurrentEvaluate(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Evaluate(ctx, `depth + 1`, textScope())
			assert.NoError(t, err)
			assert.Equal(t, int64(2), out)
		}()
	}
	wg.Wait()
}
