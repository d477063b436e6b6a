package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rendis/canopy/internal/store"
	"github.com/rendis/canopy/pkg/schema"
)

// StoreBackend keeps documents in the local store's documents table.
type StoreBackend struct {
	store store.Store
}

// NewStoreBackend wraps s.
func NewStoreBackend(s store.Store) *StoreBackend {
	return &StoreBackend{store: s}
}

// Load reads and decodes a stored document.
func (b *StoreBackend) Load(ctx context.Context, id string) (*schema.Node, error) {
	d, err := b.store.GetDocument(ctx, id)
	if err != nil {
		if schema.IsCode(err, schema.ErrCodeNotFound) {
			return nil, err
		}
		return nil, persistenceError("load", id, err)
	}
	doc, err := schema.ParseNode(d.Content)
	if err != nil {
		return nil, persistenceError("load", id, err)
	}
	return doc, nil
}

// Save upserts the document. A nil document deletes it.
func (b *StoreBackend) Save(ctx context.Context, id string, doc *schema.Node) error {
	if doc == nil {
		if err := b.store.DeleteDocument(ctx, id); err != nil && !schema.IsCode(err, schema.ErrCodeNotFound) {
			return persistenceError("delete", id, err)
		}
		return nil
	}
	content, err := json.Marshal(doc)
	if err != nil {
		return persistenceError("save", id, fmt.Errorf("encode document: %w", err))
	}
	if err := b.store.PutDocument(ctx, &store.Document{ID: id, Content: content}); err != nil {
		return persistenceError("save", id, err)
	}
	return nil
}
