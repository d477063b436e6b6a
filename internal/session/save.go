package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/rendis/canopy/internal/logging"
	"github.com/rendis/canopy/pkg/schema"
)

type savedPayload struct {
	Manual   bool   `json:"manual"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// Save writes the current document to the backend now, dropping any
// pending autosave. The session stays dirty when the save fails or when
// the document was edited while the save was running.
func (s *Session) Save(ctx context.Context) error {
	return s.save(ctx, true)
}

func (s *Session) autosaveFired() {
	s.mu.Lock()
	if s.closed || s.saved || s.history.Current() == nil {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	// Errors are already reported as notices.
	_ = s.save(context.Background(), false)
}

func (s *Session) save(ctx context.Context, manual bool) error {
	s.mu.Lock()
	doc := s.history.Current()
	if doc == nil {
		s.mu.Unlock()
		return schema.NewError(schema.ErrCodeNoDocument, MsgNoDocument)
	}
	s.autosave.Cancel()
	s.saveSeq++
	seq, documentID := s.saveSeq, s.documentID
	s.mu.Unlock()

	saveCtx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
	defer cancel()
	start := time.Now()
	err := s.deps.Backend.Save(s.ctx(saveCtx, ""), documentID, doc)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	log := logging.LogWith(s.ctx(ctx, ""), s.logger)
	// A save that finished after a newer one, or for a document that is no
	// longer open, must not touch the session state.
	if seq <= s.savedSeq || documentID != s.documentID {
		log.Debug("discarding stale save result", slog.Uint64("seq", seq))
		return err
	}
	s.savedSeq = seq
	payload := savedPayload{Manual: manual, Duration: elapsed.String()}

	if err != nil {
		edErr := asEditorError(err, schema.ErrCodePersistence)
		payload.Error = edErr.Error()
		s.journalLocked(ctx, schema.EventDocumentSaveFailed, "", payload)
		s.publishLocked(ctx, schema.EventDocumentSaveFailed, "", payload)
		log.Error("save failed", slog.Bool("manual", manual), slog.String("error", edErr.Error()))
		return s.failLocked(ctx, edErr, MsgSaveFailed)
	}

	s.persisted = doc
	s.setSavedLocked(ctx, s.history.Current() == doc)
	s.journalLocked(ctx, schema.EventDocumentSaved, "", payload)
	s.publishLocked(ctx, schema.EventDocumentSaved, "", payload)
	if manual {
		s.noticeLocked(ctx, schema.Notice{Level: schema.NoticeSuccess, Message: MsgSaved})
	}
	log.Info("document saved",
		slog.Bool("manual", manual),
		slog.Duration("duration", elapsed),
		slog.Bool("is_saved", s.saved),
	)
	return nil
}
