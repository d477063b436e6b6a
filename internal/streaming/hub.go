// Package streaming fans editor events out to live clients (SSE, WebSocket,
// MCP notifications).
package streaming

import (
	"context"
	"time"
)

// StreamEvent is a real-time event emitted by an editing session.
type StreamEvent struct {
	DocumentID string    `json:"document_id"`
	NodeID     string    `json:"node_id,omitempty"`
	EventType  string    `json:"event_type"`
	Payload    any       `json:"payload,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	DocumentID string   `json:"document_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for editor events.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
