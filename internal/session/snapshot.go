package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/rendis/canopy/internal/store"
	"github.com/rendis/canopy/pkg/schema"
)

// snapshot is the crash-resilience copy kept in the local store.
type snapshot struct {
	DocumentID string
	Document   *schema.Node
	IsSaved    bool
	Clipboard  *Clipboard
}

// readSnapshot loads whatever the local store holds. Missing or unreadable
// keys are skipped; a nil snapshot means there is no local store.
func (s *Session) readSnapshot(ctx context.Context) *snapshot {
	if s.deps.Store == nil {
		return nil
	}
	snap := &snapshot{IsSaved: true}
	if v, ok := s.readValue(ctx, store.KeyDocumentID); ok {
		snap.DocumentID = string(v)
	}
	if v, ok := s.readValue(ctx, store.KeyDocument); ok {
		doc, err := schema.ParseNode(v)
		if err != nil {
			s.logger.Warn("discarding unreadable local document", slog.String("error", err.Error()))
		} else {
			snap.Document = doc
		}
	}
	if v, ok := s.readValue(ctx, store.KeyIsSaved); ok {
		// Anything but an explicit "false" counts as saved.
		if b, err := strconv.ParseBool(string(v)); err == nil {
			snap.IsSaved = b
		}
	}
	if v, ok := s.readValue(ctx, store.KeyClipboard); ok {
		var clip Clipboard
		if err := json.Unmarshal(v, &clip); err != nil || clip.Node == nil {
			s.logger.Warn("discarding unreadable clipboard")
		} else {
			snap.Clipboard = &clip
		}
	}
	return snap
}

func (s *Session) readValue(ctx context.Context, key string) ([]byte, bool) {
	v, err := s.deps.Store.GetValue(ctx, key)
	if err != nil {
		if !schema.IsCode(err, schema.ErrCodeNotFound) {
			s.logger.Warn("read local snapshot failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return nil, false
	}
	return v, true
}

func (s *Session) writeValueLocked(ctx context.Context, key string, value []byte) {
	if s.deps.Store == nil {
		return
	}
	var err error
	if value == nil {
		err = s.deps.Store.DeleteValue(ctx, key)
	} else {
		err = s.deps.Store.SetValue(ctx, key, value)
	}
	if err != nil {
		s.logger.Warn("write local snapshot failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// mirrorDocumentLocked writes the document and its id to the local store.
// An absent document removes both keys.
func (s *Session) mirrorDocumentLocked(ctx context.Context) {
	doc := s.history.Current()
	if doc == nil {
		s.writeValueLocked(ctx, store.KeyDocument, nil)
		s.writeValueLocked(ctx, store.KeyDocumentID, nil)
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("encode local document failed", slog.String("error", err.Error()))
		return
	}
	s.writeValueLocked(ctx, store.KeyDocument, raw)
	s.writeValueLocked(ctx, store.KeyDocumentID, []byte(s.documentID))
}

func (s *Session) setSavedLocked(ctx context.Context, saved bool) {
	s.saved = saved
	s.writeValueLocked(ctx, store.KeyIsSaved, []byte(strconv.FormatBool(saved)))
}

func (s *Session) mirrorClipboardLocked(ctx context.Context) {
	if s.clipboard == nil {
		s.writeValueLocked(ctx, store.KeyClipboard, nil)
		return
	}
	raw, err := json.Marshal(s.clipboard)
	if err != nil {
		s.logger.Warn("encode clipboard failed", slog.String("error", err.Error()))
		return
	}
	s.writeValueLocked(ctx, store.KeyClipboard, raw)
}

// journalLocked appends one entry to the edit journal.
func (s *Session) journalLocked(ctx context.Context, eventType, nodeID string, payload any) {
	if s.deps.Store == nil || s.documentID == "" {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn("encode journal payload failed", slog.String("error", err.Error()))
		} else {
			raw = b
		}
	}
	err := s.deps.Store.AppendEvent(ctx, &store.Event{
		DocumentID: s.documentID,
		NodeID:     nodeID,
		Type:       eventType,
		Payload:    raw,
		SessionID:  s.id,
	})
	if err != nil {
		s.logger.Warn("append journal event failed", slog.String("event_type", eventType), slog.String("error", err.Error()))
	}
}
