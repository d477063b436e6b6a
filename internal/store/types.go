package store

import (
	"encoding/json"
	"time"
)

// Local snapshot keys. The session mirrors its state under these names and
// reads them back on start before asking the backend.
const (
	KeyDocument   = "document"
	KeyDocumentID = "document_id"
	KeyIsSaved    = "is_saved"
	KeyClipboard  = "clipboard"
)

// Document is a persisted layout document.
type Document struct {
	ID        string          `json:"id"`
	Content   json.RawMessage `json:"content"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Event is an immutable entry in the edit journal.
type Event struct {
	ID         int64           `json:"id"`
	DocumentID string          `json:"document_id"`
	NodeID     string          `json:"node_id,omitempty"`
	Type       string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Sequence   int64           `json:"sequence"`
}

// --- Filter types ---

// DocumentFilter specifies criteria for listing documents.
type DocumentFilter struct {
	Since  *time.Time `json:"since,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// EventFilter specifies criteria for listing events.
type EventFilter struct {
	DocumentID string     `json:"document_id,omitempty"`
	NodeID     string     `json:"node_id,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}
