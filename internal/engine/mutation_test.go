package engine

import (
	"fmt"
	"testing"

	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqIDs returns an IDFunc yielding prefix-1, prefix-2, ...
func seqIDs(prefix string) IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func childIDs(n *schema.Node) []string {
	out := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, c.ID)
	}
	return out
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, code), "want %s, got %v", code, err)
}

func TestAddChild_AppendsToStack(t *testing.T) {
	doc := schema.NewStack("S", schema.NewText("T1", "a"))

	out, err := AddChild(doc, "S", schema.NewStack("T2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"T1", "T2"}, childIDs(out))
	assert.Equal(t, []string{"T1"}, childIDs(doc), "input must not change")
	assert.Same(t, doc.Children[0], out.Children[0])
}

func TestAddChild_NestedStack(t *testing.T) {
	doc := schema.NewStack("S",
		schema.NewCenteredContainer("C", schema.NewStack("inner")),
	)
	out, err := AddChild(doc, "inner", schema.NewText("x", "x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, childIDs(tree.FindByID(out, "inner")))
	assert.Empty(t, tree.FindByID(doc, "inner").Children)
}

func TestAddChild_Failures(t *testing.T) {
	doc := schema.NewStack("S", schema.NewText("T1", "a"))

	out, err := AddChild(doc, "missing", schema.NewText("x", "x"))
	requireCode(t, err, schema.ErrCodeNotFound)
	assert.Same(t, doc, out)

	out, err = AddChild(doc, "T1", schema.NewText("x", "x"))
	requireCode(t, err, schema.ErrCodeIneligible)
	assert.Same(t, doc, out)

	out, err = AddChild(doc, "S", schema.NewText("T1", "dup"))
	requireCode(t, err, schema.ErrCodeValidation)
	assert.Same(t, doc, out)

	out, err = AddChild(doc, "S", nil)
	requireCode(t, err, schema.ErrCodeValidation)
	assert.Same(t, doc, out)

	_, err = AddChild(nil, "S", schema.NewText("x", "x"))
	requireCode(t, err, schema.ErrCodeNoDocument)
}

func TestUpdateProperty(t *testing.T) {
	doc := schema.NewStack("S",
		schema.NewText("T1", "a"),
		schema.NewText("T2", "b"),
	)

	out, err := UpdateProperty(doc, "T1", "htmltext", "changed")
	require.NoError(t, err)
	assert.Equal(t, "changed", tree.FindByID(out, "T1").HTMLText)
	assert.Equal(t, "a", tree.FindByID(doc, "T1").HTMLText)
	assert.Same(t, doc.Children[1], out.Children[1])
}

func TestUpdateProperty_PreservesLinks(t *testing.T) {
	txt := schema.NewText("T1", "a")
	txt.Links = []schema.Link{{FromID: "T1", ToID: "S"}}
	doc := schema.NewStack("S", txt)

	out, err := UpdateProperty(doc, "T1", "fontWeight", "BOLD")
	require.NoError(t, err)
	updated := tree.FindByID(out, "T1")
	assert.Equal(t, schema.FontWeightBold, updated.FontWeight)
	assert.Equal(t, txt.Links, updated.Links)
}

func TestUpdateProperty_Failures(t *testing.T) {
	doc := schema.NewStack("S", schema.NewText("T1", "a"))

	out, err := UpdateProperty(doc, "missing", "htmltext", "x")
	requireCode(t, err, schema.ErrCodeNotFound)
	assert.Same(t, doc, out)

	out, err = UpdateProperty(doc, "T1", "children", []any{})
	requireCode(t, err, schema.ErrCodeValidation)
	assert.Same(t, doc, out)
}

func TestDeleteNode(t *testing.T) {
	doc := schema.NewStack("S",
		schema.NewText("T1", "a"),
		schema.NewText("T2", "b"),
	)

	out, err := DeleteNode(doc, "T1")
	require.NoError(t, err)
	assert.Equal(t, []string{"T2"}, childIDs(out))
	assert.Len(t, doc.Children, 2)
}

func TestDeleteNode_IneligibleTargets(t *testing.T) {
	doc := schema.NewStack("S",
		schema.NewTitledContainer("TC", schema.NewText("title", "t"), schema.NewText("body", "b")),
		schema.NewCenteredContainer("CC", schema.NewText("inner", "i")),
		schema.NewIconText("IT", "star", schema.NewText("label", "l")),
	)

	for _, id := range []string{"S", "title", "body", "inner", "label"} {
		t.Run(id, func(t *testing.T) {
			out, err := DeleteNode(doc, id)
			requireCode(t, err, schema.ErrCodeIneligible)
			assert.Same(t, doc, out)
		})
	}

	out, err := DeleteNode(doc, "missing")
	requireCode(t, err, schema.ErrCodeNotFound)
	assert.Same(t, doc, out)
}

func TestDeleteNode_LeavesDanglingLinks(t *testing.T) {
	doc := schema.NewStack("S",
		schema.NewText("T1", "a"),
		schema.NewText("T2", "b"),
	)
	doc.Links = []schema.Link{{FromID: "T1", ToID: "T2"}}

	out, err := DeleteNode(doc, "T2")
	require.NoError(t, err)
	assert.Equal(t, doc.Links, out.Links, "links are kept verbatim")
	assert.Len(t, tree.DanglingLinks(out), 1)
}
