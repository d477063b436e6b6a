package panel

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/canopy/internal/expressions"
	"github.com/rendis/canopy/internal/session"
	"github.com/rendis/canopy/internal/streaming"
	"github.com/rendis/canopy/pkg/schema"
)

// mockBackend serves one fixed document.
type mockBackend struct {
	mu    sync.Mutex
	doc   *schema.Node
	saves int
}

func (m *mockBackend) Load(_ context.Context, id string) (*schema.Node, error) {
	if id != "doc-1" {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "document %s not found", id)
	}
	return m.doc, nil
}

func (m *mockBackend) Save(_ context.Context, _ string, doc *schema.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.doc = doc
	return nil
}

type testPanel struct {
	server  *httptest.Server
	session *session.Session
	hub     *streaming.MemoryHub
}

func newTestPanel(t *testing.T) *testPanel {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	finder, err := expressions.NewFinder()
	require.NoError(t, err)

	hub := streaming.NewMemoryHub()
	backend := &mockBackend{doc: schema.NewStack("root",
		schema.NewText("a", "A"),
		schema.NewText("b", "B"),
		schema.NewCenteredContainer("c", schema.NewText("ct", "C")),
	)}
	sess, err := session.New(session.Deps{
		Backend: backend,
		Hub:     hub,
		Finder:  finder,
		Logger:  logger,
	}, session.Config{AutosaveDelay: time.Hour})
	require.NoError(t, err)

	srv := httptest.NewServer(NewPanelServer(PanelDeps{
		Session: sess,
		Hub:     hub,
		Logger:  logger,
	}).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = sess.Close()
		hub.Close()
	})
	return &testPanel{server: srv, session: sess, hub: hub}
}

func (p *testPanel) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, p.server.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (p *testPanel) open(t *testing.T) {
	t.Helper()
	resp, _ := p.do(t, http.MethodPost, "/api/open", `{"document_id":"doc-1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func rootIDs(s *session.Session) []string {
	_, doc := s.Document()
	var ids []string
	for _, c := range doc.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestState_BeforeOpen(t *testing.T) {
	p := newTestPanel(t)

	resp, body := p.do(t, http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["document"])
	assert.Equal(t, true, body["is_saved"])
}

func TestOpen_UnknownDocument(t *testing.T) {
	p := newTestPanel(t)

	resp, body := p.do(t, http.MethodPost, "/api/open", `{"document_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, schema.ErrCodeNotFound, body["code"])
}

func TestAddAndDeleteNodes(t *testing.T) {
	p := newTestPanel(t)
	p.open(t)

	resp, body := p.do(t, http.MethodPost, "/api/nodes", `{"parent_id":"root","types":["TEXT"]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	added, _ := body["id"].(string)
	require.NotEmpty(t, added)
	assert.Equal(t, []string{"a", "b", "c", added}, rootIDs(p.session))

	resp, body = p.do(t, http.MethodDelete, "/api/nodes/ct", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, schema.ErrCodeIneligible, body["code"])

	resp, _ = p.do(t, http.MethodDelete, "/api/nodes/"+added, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"a", "b", "c"}, rootIDs(p.session))

	resp, _ = p.do(t, http.MethodPost, "/api/nodes", `{"parent_id":"root"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMoveAndUndo(t *testing.T) {
	p := newTestPanel(t)
	p.open(t)

	resp, body := p.do(t, http.MethodPost, "/api/nodes/b/move", `{"move":"up"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_saved"])
	assert.Equal(t, []string{"b", "a", "c"}, rootIDs(p.session))

	resp, _ = p.do(t, http.MethodPost, "/api/nodes/b/move", `{"move":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = p.do(t, http.MethodPost, "/api/undo", "")
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, []string{"a", "b", "c"}, rootIDs(p.session))
	assert.True(t, p.session.IsSaved())
}

func TestProperty_AndValidation(t *testing.T) {
	p := newTestPanel(t)
	p.open(t)

	resp, _ := p.do(t, http.MethodPut, "/api/property", `{"node_id":"a","key":"fontSize","value":"BIG"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	n, _ := p.session.Node("a")
	assert.Equal(t, schema.FontSizeBig, n.FontSize)

	resp, body := p.do(t, http.MethodPut, "/api/property", `{"node_id":"a","key":"id","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, schema.ErrCodeValidation, body["code"])

	resp, _ = p.do(t, http.MethodPut, "/api/property", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestKeys_SelectCopyPaste(t *testing.T) {
	p := newTestPanel(t)
	p.open(t)

	resp, body := p.do(t, http.MethodPost, "/api/select", `{"id":"c"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sel := body["selection"].(map[string]any)
	assert.Equal(t, "c", sel["id"])

	_, body = p.do(t, http.MethodPost, "/api/keys", `{"key":"c","ctrl":true}`)
	assert.Equal(t, true, body["handled"])
	_, body = p.do(t, http.MethodPost, "/api/keys", `{"key":"v","meta":true}`)
	assert.Equal(t, true, body["handled"])
	assert.Len(t, rootIDs(p.session), 4)

	_, body = p.do(t, http.MethodPost, "/api/keys", `{"key":"Delete","target":"INPUT"}`)
	assert.Equal(t, false, body["handled"])
}

func TestDrop_ByOffset(t *testing.T) {
	p := newTestPanel(t)
	p.open(t)

	resp, _ := p.do(t, http.MethodPost, "/api/drop", `{"dragged_id":"a","target_id":"c","offset_y":90,"height":100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"b", "c", "a"}, rootIDs(p.session))

	resp, _ = p.do(t, http.MethodPost, "/api/drop", `{"dragged_id":"a"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFind(t *testing.T) {
	p := newTestPanel(t)
	p.open(t)

	q := url.Values{"q": {`node.nodeType == "TEXT"`}}
	resp, body := p.do(t, http.MethodGet, "/api/find?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, expressions.LangCEL, body["lang"])

	resp, _ = p.do(t, http.MethodGet, "/api/find", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDiagram(t *testing.T) {
	p := newTestPanel(t)

	resp, _ := p.do(t, http.MethodGet, "/api/diagram", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no document yet")

	p.open(t)
	resp, err := http.Get(p.server.URL + "/api/diagram?format=ascii")
	require.NoError(t, err)
	defer resp.Body.Close()
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), "=== doc-1 ===")

	resp2, _ := p.do(t, http.MethodGet, "/api/diagram?format=svg", "")
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestJournal_NotConfigured(t *testing.T) {
	p := newTestPanel(t)
	resp, _ := p.do(t, http.MethodGet, "/api/journal", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestSave(t *testing.T) {
	p := newTestPanel(t)
	p.open(t)

	p.do(t, http.MethodPost, "/api/nodes/a/move", `{"move":"down"}`)
	resp, body := p.do(t, http.MethodPost, "/api/save", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_saved"])
}

func TestSSE_StreamsEvents(t *testing.T) {
	p := newTestPanel(t)
	p.open(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.server.URL+"/sse/events?types="+schema.EventDocumentChanged, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return p.hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.session.Delete(context.Background(), "a"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: "+schema.EventDocumentChanged+"\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "))
	assert.Contains(t, line, `"node_id":"a"`)
}

func TestWebSocket_Commands(t *testing.T) {
	p := newTestPanel(t)
	p.open(t)

	wsURL := "ws" + strings.TrimPrefix(p.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first wsOutbound
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "state", first.Type)
	require.NotNil(t, first.State)
	assert.Equal(t, "doc-1", first.State.DocumentID)

	readUntil := func(typ string) wsOutbound {
		for {
			var out wsOutbound
			require.NoError(t, conn.ReadJSON(&out))
			if out.Type == typ {
				return out
			}
		}
	}

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "ping"}))
	readUntil("pong")

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "select", ID: "b"}))
	out := readUntil("state")
	require.NotNil(t, out.State.Selection)
	assert.Equal(t, "b", out.State.Selection.ID)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "key", Key: &schema.KeyEvent{Key: "ArrowUp", Ctrl: true}}))
	out = readUntil("state")
	assert.True(t, out.Handled)
	assert.Equal(t, []string{"b", "a", "c"}, rootIDs(p.session))

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "select", ID: "missing"}))
	out = readUntil("error")
	assert.Equal(t, schema.ErrCodeNotFound, out.Code)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "explode"}))
	out = readUntil("error")
	assert.Equal(t, schema.ErrCodeValidation, out.Code)
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	p := newTestPanel(t)
	wsURL := "ws" + strings.TrimPrefix(p.server.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Nil(t, conn)

	header = http.Header{"Origin": []string{p.server.URL}}
	conn, _, err = websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestSameOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://127.0.0.1:4200", true},
		{"http://LOCALHOST:4200", false},
		{"https://evil.example", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:4200/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, sameOrigin(r))
		})
	}
}
