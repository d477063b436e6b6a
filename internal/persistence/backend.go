// Package persistence connects a session to the place its documents live:
// a remote topic API, the local libSQL store, or an LRU cache in front of
// either.
package persistence

import (
	"context"

	"github.com/rendis/canopy/pkg/schema"
)

// Backend loads and saves whole documents by id.
type Backend interface {
	Load(ctx context.Context, id string) (*schema.Node, error)
	Save(ctx context.Context, id string, doc *schema.Node) error
}

func persistenceError(op, id string, cause error) *schema.EditorError {
	return schema.NewErrorf(schema.ErrCodePersistence, "%s document %s", op, id).
		WithDetails(map[string]any{"document_id": id}).
		WithCause(cause)
}

// Invalidator is implemented by backends that cache documents and can be
// told to forget one.
type Invalidator interface {
	Invalidate(id string)
}
