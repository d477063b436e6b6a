package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/canopy/pkg/schema"
)

func sampleDoc() *schema.Node {
	return schema.NewStack("root",
		schema.NewText("a", "Intro"),
		schema.NewTitledContainer("tc",
			schema.NewText("title", "Section"),
			schema.NewStack("inner", schema.NewImage("img", "cat.png")),
		),
		schema.NewCenteredContainer("cc",
			schema.NewIconText("it", "star", schema.NewText("label", "Starred")),
		),
	)
}

func matchIDs(ms []Match) []string {
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestFinder_AllLanguages(t *testing.T) {
	f, err := NewFinder()
	require.NoError(t, err)
	ctx := context.Background()
	doc := sampleDoc()

	tests := []struct {
		lang string
		expr string
		want []string
	}{
		{LangCEL, `node.nodeType == "TEXT"`, []string{"a", "title", "label"}},
		{"", `childOfStack`, []string{"a", "tc", "img", "cc"}},
		{LangExpr, `node.nodeType == "STACK"`, []string{"root", "inner"}},
		{LangExpr, `depth >= 3`, []string{"img", "label"}},
		{LangJQ, `.node.icon == "star"`, []string{"it"}},
		{LangJQ, `.path | index("tc")`, []string{"title", "inner", "img"}},
		{LangCEL, `node.nodeType == "IMAGE" && node.url.endsWith(".gif")`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.lang+":"+tt.expr, func(t *testing.T) {
			got, err := f.Find(ctx, tt.lang, tt.expr, doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, matchIDs(got))
		})
	}
}

func TestFinder_MatchCarriesPath(t *testing.T) {
	f, err := NewFinder()
	require.NoError(t, err)

	got, err := f.Find(context.Background(), LangCEL, `node.id == "img"`, sampleDoc())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"root", "tc", "inner"}, got[0].Path)
	assert.Equal(t, 3, got[0].Depth)
	assert.Equal(t, schema.NodeTypeImage, got[0].NodeType)
}

func TestFinder_Errors(t *testing.T) {
	f, err := NewFinder()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.Find(ctx, "lua", "true", sampleDoc())
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, err = f.Find(ctx, LangCEL, "", sampleDoc())
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, err = f.Find(ctx, LangJQ, `error("stop")`, sampleDoc())
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.Find(cancelled, LangCEL, "true", sampleDoc())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFinder_EmptyDocument(t *testing.T) {
	f, err := NewFinder()
	require.NoError(t, err)

	got, err := f.Find(context.Background(), LangCEL, "true", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNodeScope_AttributesOmitNestedNodes(t *testing.T) {
	doc := sampleDoc()
	scope := NodeScope(doc.Children[1], doc, []string{"root"}, 1)

	node := scope[ScopeNode].(map[string]any)
	assert.Equal(t, "tc", node["id"])
	assert.NotContains(t, node, "titleText")
	assert.NotContains(t, node, "content")
	assert.Equal(t, []string{"title", "inner"}, scope[ScopeChildren])

	rootScope := NodeScope(doc, nil, nil, 0)
	assert.NotContains(t, rootScope[ScopeNode].(map[string]any), "children")
	assert.Equal(t, map[string]any{}, rootScope[ScopeParent])
	assert.Equal(t, false, rootScope[ScopeChildOfStack])
}
