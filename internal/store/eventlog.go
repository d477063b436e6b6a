package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rendis/canopy/pkg/schema"
)

// EventLog provides journal operations on top of a LibSQLStore.
type EventLog struct {
	store *LibSQLStore
}

// NewEventLog wraps a LibSQLStore to provide journal operations.
func NewEventLog(s *LibSQLStore) *EventLog {
	return &EventLog{store: s}
}

// AppendEvent appends an event with a monotonically increasing per-document
// sequence. The write lock is taken before the sequence is read so two
// writers can never pick the same number.
func (el *EventLog) AppendEvent(ctx context.Context, event *Event) error {
	db := el.store.DB()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin immediate tx: %w", err)
	}
	defer tx.Rollback()

	// In WAL mode BeginTx starts a deferred transaction; a write forces the lock.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_version WHERE version = -1`); err != nil {
		return fmt.Errorf("cleanup write lock: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM events WHERE document_id = ?`, event.DocumentID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	event.Sequence = seq

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (document_id, node_id, event_type, payload, session_id, timestamp, sequence)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.DocumentID, nullStr(event.NodeID), event.Type, nullRaw(event.Payload), nullStr(event.SessionID), event.Timestamp, seq,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event: %w", err)
	}
	return nil
}

// GetEvents returns events for a document with sequence > since, ordered by sequence ASC.
func (el *EventLog) GetEvents(ctx context.Context, documentID string, since int64) ([]*Event, error) {
	return el.store.GetEvents(ctx, documentID, since)
}

// ChangePayload is the payload recorded with every document.changed event.
type ChangePayload struct {
	Action string `json:"action"`
	Nodes  int    `json:"nodes,omitempty"`
}

// NodeActivity summarizes the journal entries that touched one node.
type NodeActivity struct {
	NodeID     string    `json:"node_id"`
	Edits      int       `json:"edits"`
	LastAction string    `json:"last_action"`
	LastAt     time.Time `json:"last_at"`
}

// JournalSummary is the result of replaying a document's journal.
type JournalSummary struct {
	DocumentID string                   `json:"document_id"`
	Changes    int                      `json:"changes"`
	Saves      int                      `json:"saves"`
	SaveErrors int                      `json:"save_errors"`
	Actions    map[string]int           `json:"actions"`
	Nodes      map[string]*NodeActivity `json:"nodes"`
}

// Replay folds every journal entry of a document into a JournalSummary.
// Returns an error if sequence gaps are detected. Pruned journals start at
// a later sequence; contiguity is checked from the first entry found.
func (el *EventLog) Replay(ctx context.Context, documentID string) (*JournalSummary, error) {
	events, err := el.store.GetEvents(ctx, documentID, 0)
	if err != nil {
		return nil, fmt.Errorf("get events for replay: %w", err)
	}

	summary := &JournalSummary{
		DocumentID: documentID,
		Actions:    make(map[string]int),
		Nodes:      make(map[string]*NodeActivity),
	}
	if len(events) == 0 {
		return summary, nil
	}

	first := events[0].Sequence
	for i, e := range events {
		expected := first + int64(i)
		if e.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in document %s: expected %d, got %d", documentID, expected, e.Sequence)
		}
	}

	for _, e := range events {
		switch e.Type {
		case schema.EventDocumentChanged:
			summary.Changes++
			var p ChangePayload
			if len(e.Payload) > 0 {
				_ = json.Unmarshal(e.Payload, &p)
			}
			if p.Action != "" {
				summary.Actions[p.Action]++
			}
			if e.NodeID == "" {
				continue
			}
			na, ok := summary.Nodes[e.NodeID]
			if !ok {
				na = &NodeActivity{NodeID: e.NodeID}
				summary.Nodes[e.NodeID] = na
			}
			na.Edits++
			na.LastAction = p.Action
			na.LastAt = e.Timestamp

		case schema.EventDocumentSaved:
			summary.Saves++

		case schema.EventDocumentSaveFailed:
			summary.SaveErrors++
		}
	}

	return summary, nil
}
