package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/canopy/internal/expressions"
	"github.com/rendis/canopy/internal/session"
	"github.com/rendis/canopy/pkg/schema"
)

// --- Mock backend ---

type mockBackend struct {
	mu      sync.Mutex
	docs    map[string]*schema.Node
	saves   int
	saveErr error
}

func (m *mockBackend) Load(_ context.Context, id string) (*schema.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "document %s not found", id)
	}
	return doc, nil
}

func (m *mockBackend) Save(_ context.Context, id string, doc *schema.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.docs[id] = doc
	return nil
}

func newTestServer(t *testing.T) (*CanopyServer, *session.Session, *mockBackend) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	finder, err := expressions.NewFinder()
	require.NoError(t, err)

	backend := &mockBackend{docs: map[string]*schema.Node{
		"doc-1": schema.NewStack("root",
			schema.NewText("a", "A"),
			schema.NewText("b", "B"),
			schema.NewCenteredContainer("c", schema.NewText("ct", "C")),
		),
	}}
	sess, err := session.New(session.Deps{
		Backend: backend,
		Finder:  finder,
		Logger:  logger,
	}, session.Config{AutosaveDelay: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	return NewCanopyServer(CanopyServerDeps{Session: sess, Logger: logger}), sess, backend
}

func openDoc(t *testing.T, s *CanopyServer) {
	t.Helper()
	result, err := s.handleOpen(context.Background(), buildRequest("canopy.open", map[string]any{"document_id": "doc-1"}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
}

func rootIDs(sess *session.Session) []string {
	_, doc := sess.Document()
	var ids []string
	for _, c := range doc.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

// --- Helper ---

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

// --- Tests ---

func TestOpenTool(t *testing.T) {
	s, _, _ := newTestServer(t)

	result, err := s.handleOpen(context.Background(), buildRequest("canopy.open", map[string]any{"document_id": "doc-1"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var st session.State
	unmarshalResult(t, result, &st)
	assert.Equal(t, "doc-1", st.DocumentID)
	require.NotNil(t, st.Document)
	assert.Len(t, st.Document.Children, 3)
	assert.True(t, st.IsSaved)
}

func TestOpenToolMissingDocument(t *testing.T) {
	s, _, _ := newTestServer(t)

	result, err := s.handleOpen(context.Background(), buildRequest("canopy.open", map[string]any{"document_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), schema.ErrCodeNotFound)
}

func TestStateToolWithoutDocument(t *testing.T) {
	s, _, _ := newTestServer(t)
	openDoc(t, s)

	result, err := s.handleState(context.Background(), buildRequest("canopy.state", map[string]any{"include_document": false}))
	require.NoError(t, err)

	var st session.State
	unmarshalResult(t, result, &st)
	assert.Nil(t, st.Document)
	assert.Equal(t, "doc-1", st.DocumentID)
}

func TestSelectTool(t *testing.T) {
	s, sess, _ := newTestServer(t)
	openDoc(t, s)
	ctx := context.Background()

	result, err := s.handleSelect(ctx, buildRequest("canopy.select", map[string]any{"node_id": "ct"}))
	require.NoError(t, err)
	var st session.State
	unmarshalResult(t, result, &st)
	require.NotNil(t, st.Selection)
	assert.Equal(t, "ct", st.Selection.ID)
	assert.False(t, st.Selection.IsChildOfStack)

	result, err = s.handleSelect(ctx, buildRequest("canopy.select", map[string]any{"node_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	_, err = s.handleSelect(ctx, buildRequest("canopy.select", map[string]any{}))
	require.NoError(t, err)
	assert.Nil(t, sess.State().Selection)
}

func TestKeyTool(t *testing.T) {
	s, sess, _ := newTestServer(t)
	openDoc(t, s)
	ctx := context.Background()

	_, err := sess.Select(ctx, "b")
	require.NoError(t, err)

	result, err := s.handleKey(ctx, buildRequest("canopy.key", map[string]any{"key": "ArrowUp", "ctrl": true}))
	require.NoError(t, err)
	var out struct {
		Handled bool `json:"handled"`
	}
	unmarshalResult(t, result, &out)
	assert.True(t, out.Handled)
	assert.Equal(t, []string{"b", "a", "c"}, rootIDs(sess))

	result, err = s.handleKey(ctx, buildRequest("canopy.key", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAddTool(t *testing.T) {
	s, sess, _ := newTestServer(t)
	openDoc(t, s)
	ctx := context.Background()

	result, err := s.handleAdd(ctx, buildRequest("canopy.add", map[string]any{
		"parent_id": "root",
		"types":     []any{"centered_container", "TEXT"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	var out struct {
		ID string `json:"id"`
	}
	unmarshalResult(t, result, &out)
	n, ok := sess.Node(out.ID)
	require.True(t, ok)
	assert.Equal(t, schema.NodeTypeCenteredContainer, n.NodeType)

	result, err = s.handleAdd(ctx, buildRequest("canopy.add", map[string]any{
		"parent_id": "root",
		"node":      map[string]any{"id": "img", "nodeType": "IMAGE", "url": "https://example.com/a.png"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	assert.Equal(t, []string{"a", "b", "c", out.ID, "img"}, rootIDs(sess))

	result, err = s.handleAdd(ctx, buildRequest("canopy.add", map[string]any{"parent_id": "a", "types": []any{"TEXT"}}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), schema.ErrCodeIneligible)

	result, err = s.handleAdd(ctx, buildRequest("canopy.add", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestUpdateTool(t *testing.T) {
	s, sess, _ := newTestServer(t)
	openDoc(t, s)
	ctx := context.Background()

	result, err := s.handleUpdate(ctx, buildRequest("canopy.update", map[string]any{
		"node_id": "a", "key": "fontSize", "value": "SMALL",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	n, _ := sess.Node("a")
	assert.Equal(t, schema.FontSizeSmall, n.FontSize)

	result, err = s.handleUpdate(ctx, buildRequest("canopy.update", map[string]any{
		"node_id": "a", "key": "nodeType", "value": `"STACK"`,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDecodeValue(t *testing.T) {
	assert.Equal(t, true, decodeValue("true"))
	assert.Equal(t, float64(12), decodeValue("12"))
	assert.Equal(t, "BIG", decodeValue("BIG"))
	assert.Equal(t, "quoted", decodeValue(`"quoted"`))
}

func TestEditTool(t *testing.T) {
	s, sess, _ := newTestServer(t)
	openDoc(t, s)
	ctx := context.Background()

	edit := func(op, nodeID string) *mcp.CallToolResult {
		t.Helper()
		result, err := s.handleEdit(ctx, buildRequest("canopy.edit", map[string]any{"op": op, "node_id": nodeID}))
		require.NoError(t, err)
		return result
	}

	assert.False(t, edit("down", "a").IsError)
	assert.Equal(t, []string{"b", "a", "c"}, rootIDs(sess))

	assert.False(t, edit("copy", "b").IsError)
	pasted := edit("paste", "")
	require.False(t, pasted.IsError, extractText(t, pasted))
	assert.Len(t, rootIDs(sess), 4)

	var undo struct {
		Changed bool `json:"changed"`
	}
	unmarshalResult(t, edit("undo", ""), &undo)
	assert.True(t, undo.Changed)
	assert.Equal(t, []string{"b", "a", "c"}, rootIDs(sess))

	res := edit("delete", "ct")
	assert.True(t, res.IsError)
	assert.Contains(t, extractText(t, res), schema.ErrCodeIneligible)

	assert.False(t, edit("delete", "a").IsError)
	assert.Equal(t, []string{"b", "c"}, rootIDs(sess))

	assert.True(t, edit("explode", "a").IsError)
}

func TestDropTool(t *testing.T) {
	s, sess, _ := newTestServer(t)
	openDoc(t, s)

	result, err := s.handleDrop(context.Background(), buildRequest("canopy.drop", map[string]any{
		"dragged_id": "a", "target_id": "c", "position": "after",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	assert.Equal(t, []string{"b", "c", "a"}, rootIDs(sess))

	result, err = s.handleDrop(context.Background(), buildRequest("canopy.drop", map[string]any{"dragged_id": "a"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSaveTool(t *testing.T) {
	s, sess, backend := newTestServer(t)
	openDoc(t, s)
	ctx := context.Background()

	require.NoError(t, sess.Delete(ctx, "a"))
	assert.False(t, sess.IsSaved())

	result, err := s.handleSave(ctx, buildRequest("canopy.save", nil))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	assert.True(t, sess.IsSaved())
	assert.Equal(t, 1, backend.saves)
}

func TestFindTool(t *testing.T) {
	s, _, _ := newTestServer(t)
	openDoc(t, s)

	result, err := s.handleFind(context.Background(), buildRequest("canopy.find", map[string]any{
		"expression": `node.nodeType == "TEXT"`,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	var out struct {
		Lang  string `json:"lang"`
		Count int    `json:"count"`
	}
	unmarshalResult(t, result, &out)
	assert.Equal(t, expressions.LangCEL, out.Lang)
	assert.Equal(t, 3, out.Count)

	result, err = s.handleFind(context.Background(), buildRequest("canopy.find", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDiagramTool(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleDiagram(ctx, buildRequest("canopy.diagram", map[string]any{"format": "ascii"}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "no document open")

	openDoc(t, s)
	result, err = s.handleDiagram(ctx, buildRequest("canopy.diagram", map[string]any{"format": "mermaid"}))
	require.NoError(t, err)
	assert.Contains(t, extractText(t, result), "graph TD")

	result, err = s.handleDiagram(ctx, buildRequest("canopy.diagram", map[string]any{"format": "svg"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Test helpers ---

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}
