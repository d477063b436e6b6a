// Package session is the editor's orchestrator. A Session owns one open
// document together with its selection, clipboard, undo history and save
// state, and turns user intents into engine calls.
//
// Every method serializes on one mutex. Backend calls run outside it; the
// local snapshot, the journal and the event hub are written under it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/canopy/internal/engine"
	"github.com/rendis/canopy/internal/expressions"
	"github.com/rendis/canopy/internal/history"
	"github.com/rendis/canopy/internal/logging"
	"github.com/rendis/canopy/internal/persistence"
	"github.com/rendis/canopy/internal/scheduler"
	"github.com/rendis/canopy/internal/selection"
	"github.com/rendis/canopy/internal/store"
	"github.com/rendis/canopy/internal/streaming"
	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/internal/validation"
	"github.com/rendis/canopy/pkg/schema"
)

const (
	// DefaultAutosaveDelay is how long the document must stay unchanged
	// before an autosave fires.
	DefaultAutosaveDelay = 3 * time.Second
	defaultSaveTimeout   = 30 * time.Second
)

// Messages shown to the user through notice events.
const (
	MsgNoSelectionDelete = "No node selected to delete"
	MsgIneligibleDelete  = "Only strict child of stack node can be deleted"
	MsgNoSelectionCopy   = "No node selected to copy"
	MsgIneligibleCopy    = "Only strict child of stack node can be copied"
	MsgNoSelectionCut    = "No node selected to cut"
	MsgIneligibleCut     = "Only strict child of stack node can be cut"
	MsgIneligibleAdd     = "Nodes can only be added to a stack"
	MsgCopied            = "Node copied successfully!"
	MsgClipboardEmpty    = "Nothing to paste"
	MsgNoDocument        = "No document loaded"
	MsgSaved             = "Saved"
	MsgSaveFailed        = "Failed to save"
)

// Config tunes a Session.
type Config struct {
	AutosaveDelay time.Duration
	SaveTimeout   time.Duration
	// HistoryLimit caps the undo stack; zero means unbounded.
	HistoryLimit int
	// SessionID tags journal entries and log records. Generated when empty.
	SessionID string
}

// Deps are the collaborators of a Session. Only Backend is required.
type Deps struct {
	Backend   persistence.Backend
	Store     store.Store
	Hub       streaming.EventHub
	Validator *validation.DocumentValidator
	Finder    *expressions.Finder
	Logger    *slog.Logger
	NewID     engine.IDFunc
}

// Clipboard is the single node held for paste. Cut marks a node that is
// removed from the document by the next paste.
type Clipboard struct {
	Node *schema.Node `json:"node"`
	Cut  bool         `json:"cut,omitempty"`
}

// Session is one editing session over one document at a time.
type Session struct {
	id     string
	cfg    Config
	deps   Deps
	logger *slog.Logger
	newID  engine.IDFunc

	mu         sync.Mutex
	documentID string
	history    *history.History
	selection  selection.Selection
	clipboard  *Clipboard
	saved      bool
	persisted  *schema.Node
	saveSeq    uint64
	savedSeq   uint64
	lastNotice *schema.Notice
	closed     bool

	autosave *scheduler.Debouncer
	inflight sync.WaitGroup
}

// New creates a Session with no document loaded.
func New(deps Deps, cfg Config) (*Session, error) {
	if deps.Backend == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "session requires a persistence backend")
	}
	if cfg.AutosaveDelay <= 0 {
		cfg.AutosaveDelay = DefaultAutosaveDelay
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaultSaveTimeout
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := deps.NewID
	if newID == nil {
		newID = engine.NewID
	}

	s := &Session{
		id:      cfg.SessionID,
		cfg:     cfg,
		deps:    deps,
		logger:  logger.With(slog.String("component", "session")),
		newID:   newID,
		history: history.New(cfg.HistoryLimit),
		saved:   true,
	}
	s.autosave = scheduler.NewDebouncer(cfg.AutosaveDelay, s.autosaveFired)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Close stops the autosave timer and waits for an autosave in flight. A
// pending autosave is dropped; call Save first to flush it.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.autosave.Stop()
	s.inflight.Wait()
	return nil
}

// SelectionState is the serializable view of the selection.
type SelectionState struct {
	ID               string          `json:"id"`
	NodeType         schema.NodeType `json:"nodeType"`
	IsChildOfStack   bool            `json:"is_child_of_stack"`
	IsAvailableToAdd bool            `json:"is_available_to_add"`
}

// State is a point-in-time view of the session.
type State struct {
	SessionID       string          `json:"session_id"`
	DocumentID      string          `json:"document_id,omitempty"`
	Document        *schema.Node    `json:"document,omitempty"`
	Selection       *SelectionState `json:"selection,omitempty"`
	Clipboard       *Clipboard      `json:"clipboard,omitempty"`
	IsSaved         bool            `json:"is_saved"`
	CanUndo         bool            `json:"can_undo"`
	CanRedo         bool            `json:"can_redo"`
	UndoDepth       int             `json:"undo_depth"`
	RedoDepth       int             `json:"redo_depth"`
	AutosavePending bool            `json:"autosave_pending"`
	LastNotice      *schema.Notice  `json:"last_notice,omitempty"`
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	undo, redo := s.history.Depth()
	return State{
		SessionID:       s.id,
		DocumentID:      s.documentID,
		Document:        s.history.Current(),
		Selection:       s.selectionStateLocked(),
		Clipboard:       s.clipboard,
		IsSaved:         s.saved,
		CanUndo:         s.history.CanUndo(),
		CanRedo:         s.history.CanRedo(),
		UndoDepth:       undo,
		RedoDepth:       redo,
		AutosavePending: s.autosave.Pending(),
		LastNotice:      s.lastNotice,
	}
}

// Document returns the current document and its id.
func (s *Session) Document() (string, *schema.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentID, s.history.Current()
}

// IsSaved reports whether the current document matches what was last
// persisted.
func (s *Session) IsSaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

func (s *Session) selectionStateLocked() *SelectionState {
	r := s.selection.Current()
	if !r.Found() {
		return nil
	}
	return &SelectionState{
		ID:               s.selection.ID(),
		NodeType:         r.Node.NodeType,
		IsChildOfStack:   r.IsChildOfStack,
		IsAvailableToAdd: r.IsAvailableToAdd,
	}
}

// ctx tags ctx with the session's correlation ids.
func (s *Session) ctx(ctx context.Context, nodeID string) context.Context {
	return logging.WithIDs(ctx, s.documentID, nodeID, s.id)
}

// --- change plumbing (callers hold s.mu) ---

// commitLocked records next as a new undoable step. It returns false when
// next is the current document.
func (s *Session) commitLocked(ctx context.Context, action, nodeID string, next *schema.Node) bool {
	if next == s.history.Current() {
		return false
	}
	s.history.Commit(next)
	s.changedLocked(ctx, action, nodeID, false)
	return true
}

// changedLocked runs after every document replacement: the selection is
// re-resolved, the dirty flag and local snapshot are updated, the change is
// journaled and published, and autosave is rearmed when needed.
func (s *Session) changedLocked(ctx context.Context, action, nodeID string, restoring bool) {
	doc := s.history.Current()
	s.selection.Refresh(doc)

	saved := false
	if restoring {
		saved = doc == s.persisted
	}
	s.setSavedLocked(ctx, saved)
	s.mirrorDocumentLocked(ctx)

	payload := store.ChangePayload{Action: action, Nodes: tree.Count(doc)}
	s.journalLocked(ctx, schema.EventDocumentChanged, nodeID, payload)
	s.publishLocked(ctx, schema.EventDocumentChanged, nodeID, payload)

	if saved {
		s.autosave.Cancel()
	} else {
		s.autosave.Trigger()
	}
	logging.LogWith(s.ctx(ctx, nodeID), s.logger).Debug("document changed",
		slog.String("action", action),
		slog.Bool("is_saved", saved),
	)
}

// failLocked publishes err as an error notice and returns it.
func (s *Session) failLocked(ctx context.Context, err *schema.EditorError, message string) error {
	s.noticeLocked(ctx, schema.Notice{Level: schema.NoticeError, Message: message, Code: err.Code})
	return err
}

// rejectLocked reports an engine error. NOT_FOUND is a race with an
// earlier edit and is only logged; everything else also becomes a notice.
func (s *Session) rejectLocked(ctx context.Context, err error) error {
	edErr := asEditorError(err, schema.ErrCodeValidation)
	if edErr.Code == schema.ErrCodeNotFound {
		logging.LogWith(s.ctx(ctx, edErr.NodeID), s.logger).Warn("edit target vanished", slog.String("error", edErr.Error()))
		return err
	}
	return s.failLocked(ctx, edErr, edErr.Message)
}

// asEditorError unwraps err to an EditorError, wrapping foreign errors
// under code.
func asEditorError(err error, code string) *schema.EditorError {
	var edErr *schema.EditorError
	if errors.As(err, &edErr) {
		return edErr
	}
	return schema.NewError(code, err.Error()).WithCause(err)
}

func (s *Session) noticeLocked(ctx context.Context, n schema.Notice) {
	s.lastNotice = &n
	s.publishLocked(ctx, schema.EventNotice, "", n)
}

func (s *Session) publishLocked(ctx context.Context, eventType, nodeID string, payload any) {
	if s.deps.Hub == nil {
		return
	}
	err := s.deps.Hub.Publish(ctx, streaming.StreamEvent{
		DocumentID: s.documentID,
		NodeID:     nodeID,
		EventType:  eventType,
		Payload:    payload,
	})
	if err != nil {
		s.logger.Warn("publish event failed", slog.String("event_type", eventType), slog.String("error", err.Error()))
	}
}
