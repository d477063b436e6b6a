package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/canopy/internal/store"
	"github.com/rendis/canopy/pkg/schema"
)

func newTestStore(t *testing.T) *store.LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewLibSQLStore("file:" + filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func TestStoreBackend_SaveLoad(t *testing.T) {
	b := NewStoreBackend(newTestStore(t))
	ctx := context.Background()

	doc := schema.NewStack("root",
		schema.NewTitledContainer("tc", schema.NewText("title", "T"), schema.NewImage("img", "a.png")),
	)
	require.NoError(t, b.Save(ctx, "doc-1", doc))

	got, err := b.Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "root", got.ID)
	require.Len(t, got.Children, 1)
	assert.Equal(t, "a.png", got.Children[0].Content.URL)
}

func TestStoreBackend_LoadMissing(t *testing.T) {
	b := NewStoreBackend(newTestStore(t))
	_, err := b.Load(context.Background(), "nope")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestStoreBackend_SaveNilDeletes(t *testing.T) {
	b := NewStoreBackend(newTestStore(t))
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "doc-1", schema.NewStack("root")))
	require.NoError(t, b.Save(ctx, "doc-1", nil))
	_, err := b.Load(ctx, "doc-1")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))

	require.NoError(t, b.Save(ctx, "never-saved", nil))
}
