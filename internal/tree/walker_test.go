package tree

import (
	"testing"

	"github.com/rendis/canopy/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample builds:
//
//	root (STACK)
//	├── a (TEXT)
//	├── tc (TITLED_CONTAINER)
//	│   ├── title (TEXT)
//	│   └── inner (STACK)
//	│       └── img (IMAGE)
//	└── cc (CENTERED_CONTAINER)
//	    └── it (ICON_TEXT)
//	        └── label (TEXT)
func sample() *schema.Node {
	return schema.NewStack("root",
		schema.NewText("a", "A"),
		schema.NewTitledContainer("tc",
			schema.NewText("title", "T"),
			schema.NewStack("inner", schema.NewImage("img", "u")),
		),
		schema.NewCenteredContainer("cc",
			schema.NewIconText("it", "star", schema.NewText("label", "L")),
		),
	)
}

func ids(nodes []*schema.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestChildrenOf(t *testing.T) {
	root := sample()

	assert.Equal(t, []string{"a", "tc", "cc"}, ids(ChildrenOf(root)))
	assert.Equal(t, []string{"title", "inner"}, ids(ChildrenOf(FindByID(root, "tc"))))
	assert.Equal(t, []string{"it"}, ids(ChildrenOf(FindByID(root, "cc"))))
	assert.Equal(t, []string{"label"}, ids(ChildrenOf(FindByID(root, "it"))))
	assert.Empty(t, ChildrenOf(FindByID(root, "a")))
	assert.Empty(t, ChildrenOf(FindByID(root, "img")))
	assert.Empty(t, ChildrenOf(nil))
}

func TestFindByID(t *testing.T) {
	root := sample()

	assert.Same(t, root, FindByID(root, "root"))
	require.NotNil(t, FindByID(root, "label"))
	assert.Equal(t, "L", FindByID(root, "label").HTMLText)
	assert.Nil(t, FindByID(root, "missing"))
	assert.Nil(t, FindByID(nil, "root"))
}

func TestFindByID_FirstMatchInPreOrder(t *testing.T) {
	first := schema.NewText("dup", "first")
	root := schema.NewStack("root",
		schema.NewCenteredContainer("cc", first),
		schema.NewText("dup", "second"),
	)
	assert.Same(t, first, FindByID(root, "dup"))
}

func TestMapSubtree_PathCopyWithSharing(t *testing.T) {
	root := sample()
	a := FindByID(root, "a")
	tc := FindByID(root, "tc")

	out := MapSubtree(root, "img", func(n *schema.Node) *schema.Node {
		cp := n.Copy()
		cp.URL = "changed"
		return cp
	})

	assert.NotSame(t, root, out)
	assert.Equal(t, "changed", FindByID(out, "img").URL)
	assert.Equal(t, "u", FindByID(root, "img").URL, "input must not change")

	assert.Same(t, a, FindByID(out, "a"), "off-path sibling is shared")
	assert.Same(t, FindByID(root, "cc"), FindByID(out, "cc"))
	assert.NotSame(t, tc, FindByID(out, "tc"), "on-path ancestor is copied")
	assert.Same(t, tc.TitleText, FindByID(out, "tc").TitleText)
}

func TestMapSubtree_MissingIDReturnsRoot(t *testing.T) {
	root := sample()
	out := MapSubtree(root, "missing", func(n *schema.Node) *schema.Node {
		t.Fatal("fn must not be called")
		return n
	})
	assert.Same(t, root, out)
}

func TestMapSubtree_IdentityFnReturnsRoot(t *testing.T) {
	root := sample()
	out := MapSubtree(root, "label", func(n *schema.Node) *schema.Node { return n })
	assert.Same(t, root, out)
}

func TestMapChildren_DropsNilStackChildren(t *testing.T) {
	root := sample()
	out := MapChildren(root, func(c *schema.Node) *schema.Node {
		if c.ID == "tc" {
			return nil
		}
		return c
	})
	assert.Equal(t, []string{"a", "cc"}, ids(out.Children))
	assert.Len(t, root.Children, 3)
}

func TestMapChildren_NilForSlotKeepsChild(t *testing.T) {
	tc := FindByID(sample(), "tc")
	out := MapChildren(tc, func(*schema.Node) *schema.Node { return nil })
	assert.Same(t, tc, out)
}

func TestWalk_PreOrderWithDepth(t *testing.T) {
	type visit struct {
		id     string
		parent string
		depth  int
	}
	var got []visit
	Walk(sample(), func(n, p *schema.Node, depth int) bool {
		parent := ""
		if p != nil {
			parent = p.ID
		}
		got = append(got, visit{n.ID, parent, depth})
		return true
	})

	assert.Equal(t, []visit{
		{"root", "", 0},
		{"a", "root", 1},
		{"tc", "root", 1},
		{"title", "tc", 2},
		{"inner", "tc", 2},
		{"img", "inner", 3},
		{"cc", "root", 1},
		{"it", "cc", 2},
		{"label", "it", 3},
	}, got)
}

func TestWalk_SkipSubtree(t *testing.T) {
	var seen []string
	Walk(sample(), func(n, _ *schema.Node, _ int) bool {
		seen = append(seen, n.ID)
		return n.ID != "tc"
	})
	assert.NotContains(t, seen, "title")
	assert.NotContains(t, seen, "img")
	assert.Contains(t, seen, "label")
}

func TestParentOf(t *testing.T) {
	root := sample()
	assert.Equal(t, "tc", ParentOf(root, "inner").ID)
	assert.Equal(t, "it", ParentOf(root, "label").ID)
	assert.Nil(t, ParentOf(root, "root"))
	assert.Nil(t, ParentOf(root, "missing"))
}

func TestContainingStackAndIndexOf(t *testing.T) {
	root := sample()

	s := ContainingStack(root, "img")
	require.NotNil(t, s)
	assert.Equal(t, "inner", s.ID)
	assert.Equal(t, 0, IndexOf(s, "img"))

	assert.Nil(t, ContainingStack(root, "title"), "title slot is not a stack child")
	assert.Equal(t, 2, IndexOf(root, "cc"))
	assert.Equal(t, -1, IndexOf(root, "img"))
	assert.Equal(t, -1, IndexOf(FindByID(root, "a"), "x"))
}

func TestPathTo(t *testing.T) {
	root := sample()
	assert.Equal(t, []string{"root", "tc", "inner", "img"}, ids(PathTo(root, "img")))
	assert.Equal(t, []string{"root"}, ids(PathTo(root, "root")))
	assert.Nil(t, PathTo(root, "missing"))
}

func TestIDsAndCount(t *testing.T) {
	root := sample()
	set := IDs(root)
	assert.Len(t, set, 9)
	assert.Contains(t, set, "label")
	assert.Equal(t, 9, Count(root))
	assert.Equal(t, 0, Count(nil))
}

func TestDanglingLinks(t *testing.T) {
	root := sample()
	root.Links = []schema.Link{
		{FromID: "a", ToID: "img"},
		{FromID: "a", ToID: "gone"},
	}
	got := DanglingLinks(root)
	require.Len(t, got, 1)
	assert.Equal(t, "root", got[0].OwnerID)
	assert.Equal(t, "gone", got[0].Link.ToID)
}
