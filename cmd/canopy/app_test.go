package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/canopy/internal/store"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	withHome(t)
	cfg := defaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "canopy.db")
	cfg.LogLevel = "error"
	return cfg
}

// seedDocument writes a document straight into the local store.
func seedDocument(t *testing.T, dbPath, id, content string) {
	t.Helper()
	s, err := store.NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.PutDocument(ctx, &store.Document{ID: id, Content: json.RawMessage(content)}))
}

const sampleDoc = `{"id":"root","nodeType":"STACK","children":[` +
	`{"id":"hello","nodeType":"TEXT","htmltext":"Hello"},` +
	`{"id":"logo","nodeType":"IMAGE","url":"https://example.com/logo.png"}]}`

func TestNewApp_OpensConfiguredDocument(t *testing.T) {
	cfg := testConfig(t)
	seedDocument(t, cfg.DBPath, "doc-1", sampleDoc)
	cfg.DocumentID = "doc-1"

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.openInitial(context.Background()))
	id, doc := a.session.Document()
	assert.Equal(t, "doc-1", id)
	require.NotNil(t, doc)
	assert.Len(t, doc.Children, 2)
}

func TestNewApp_NothingToReopen(t *testing.T) {
	cfg := testConfig(t)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.openInitial(context.Background()))
	_, doc := a.session.Document()
	assert.Nil(t, doc)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = backendHTTP

	_, err := newApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRootHandler_PanelToggle(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	root := newHandlerSwitch(a.rootHandler(false))
	get := func(path string) int {
		rec := httptest.NewRecorder()
		root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/healthz"))
	assert.Equal(t, http.StatusNotFound, get("/api/state"))

	root.Swap(a.rootHandler(true))
	assert.Equal(t, http.StatusOK, get("/api/state"))
	assert.Equal(t, http.StatusOK, get("/healthz"))
}

func TestRunRender(t *testing.T) {
	cfg := testConfig(t)
	seedDocument(t, cfg.DBPath, "doc-1", sampleDoc)

	var out bytes.Buffer
	err := runRender([]string{"-db-path", cfg.DBPath, "-log-level", "error", "-env-file", "", "-format", "mermaid", "doc-1"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "graph TD")
	assert.Contains(t, out.String(), "hello")

	out.Reset()
	err = runRender([]string{"-db-path", cfg.DBPath, "-env-file", "", "-format", "ascii", "doc-1"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "=== doc-1 ===")

	err = runRender([]string{"-db-path", cfg.DBPath, "-env-file", "", "-format", "svg", "doc-1"}, &out)
	assert.Error(t, err)

	err = runRender([]string{"-db-path", cfg.DBPath, "-env-file", "", "missing"}, &out)
	assert.Error(t, err)
}
