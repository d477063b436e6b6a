package session

import (
	"context"
	"log/slog"

	"github.com/rendis/canopy/internal/engine"
	"github.com/rendis/canopy/internal/logging"
	"github.com/rendis/canopy/internal/persistence"
	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// Load sources recorded in document.loaded events.
const (
	SourceSnapshot = "snapshot"
	SourceBackend  = "backend"
	SourceNew      = "new"
)

type loadedPayload struct {
	Source  string `json:"source"`
	IsSaved bool   `json:"is_saved"`
	Nodes   int    `json:"nodes"`
}

// Open makes documentID the session's document. The local snapshot wins
// when it holds the same document; otherwise the backend is asked. An empty
// documentID reopens whatever the snapshot holds. A backend topic without
// content starts as an empty root stack that has not been saved yet.
func (s *Session) Open(ctx context.Context, documentID string) error {
	snap := s.readSnapshot(ctx)
	if documentID == "" && snap != nil {
		documentID = snap.DocumentID
	}
	if documentID == "" {
		return schema.NewError(schema.ErrCodeValidation, "document id is required")
	}

	if snap != nil && snap.DocumentID == documentID && snap.Document != nil {
		if err := s.validate(snap.Document); err == nil {
			return s.install(ctx, documentID, snap.Document, SourceSnapshot, snap.IsSaved, snap.Clipboard)
		}
		s.logger.Warn("local snapshot failed validation, loading from backend",
			slog.String("document_id", documentID))
	}

	var clip *Clipboard
	if snap != nil {
		clip = snap.Clipboard
	}
	return s.loadFromBackend(ctx, documentID, clip)
}

// Reload discards local edits and refetches the current document from the
// backend, bypassing any cache.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	documentID, clip := s.documentID, s.clipboard
	s.mu.Unlock()
	if documentID == "" {
		return schema.NewError(schema.ErrCodeNoDocument, MsgNoDocument)
	}
	if inv, ok := s.deps.Backend.(persistence.Invalidator); ok {
		inv.Invalidate(documentID)
	}
	return s.loadFromBackend(ctx, documentID, clip)
}

func (s *Session) loadFromBackend(ctx context.Context, documentID string, clip *Clipboard) error {
	doc, err := s.deps.Backend.Load(ctx, documentID)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		edErr := asEditorError(err, schema.ErrCodePersistence)
		return s.failLocked(ctx, edErr, edErr.Message)
	}

	source, saved := SourceBackend, true
	if doc == nil {
		root, err := engine.NewDefault(schema.NodeTypeStack, s.newID, nil)
		if err != nil {
			return err
		}
		doc, source, saved = root, SourceNew, false
	}
	if err := s.validate(doc); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.failLocked(ctx, asEditorError(err, schema.ErrCodeValidation), "Invalid document received")
	}
	return s.install(ctx, documentID, doc, source, saved, clip)
}

func (s *Session) validate(doc *schema.Node) error {
	if s.deps.Validator == nil {
		return nil
	}
	return s.deps.Validator.ValidateDocument(doc)
}

// install replaces the session state with a freshly loaded document.
func (s *Session) install(ctx context.Context, documentID string, doc *schema.Node, source string, saved bool, clip *Clipboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return schema.NewError(schema.ErrCodeValidation, "session is closed")
	}

	s.autosave.Cancel()
	s.documentID = documentID
	s.history.Load(doc)
	s.selection.Clear()
	s.clipboard = clip
	s.persisted = nil
	if saved {
		s.persisted = doc
	}
	s.setSavedLocked(ctx, saved)
	s.mirrorDocumentLocked(ctx)
	s.mirrorClipboardLocked(ctx)

	payload := loadedPayload{Source: source, IsSaved: saved, Nodes: tree.Count(doc)}
	s.journalLocked(ctx, schema.EventDocumentLoaded, "", payload)
	s.publishLocked(ctx, schema.EventDocumentLoaded, "", payload)
	if !saved {
		s.autosave.Trigger()
	}

	logging.LogWith(s.ctx(ctx, ""), s.logger).Info("document opened",
		slog.String("source", source),
		slog.Bool("is_saved", saved),
	)
	return nil
}

// Reset drops the document, history and selection, and clears the local
// snapshot. The clipboard survives.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.autosave.Cancel()
	previous := s.documentID
	s.history.Load(nil)
	s.selection.Clear()
	s.persisted = nil
	s.setSavedLocked(ctx, true)
	s.mirrorDocumentLocked(ctx)
	s.publishLocked(ctx, schema.EventDocumentReset, "", map[string]string{"previous_document_id": previous})
	s.documentID = ""

	s.logger.Info("session reset", slog.String("document_id", previous))
}
