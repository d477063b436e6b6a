// Package panel serves the editor over HTTP: a JSON API for every session
// operation, a Server-Sent Events stream and a WebSocket channel for live
// editor clients.
package panel

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/rendis/canopy/internal/scheduler"
	"github.com/rendis/canopy/internal/session"
	"github.com/rendis/canopy/internal/store"
	"github.com/rendis/canopy/internal/streaming"
)

// PanelDeps holds the dependencies for the panel server. Session and Hub
// are required; Journal and Maintenance enable their endpoints.
type PanelDeps struct {
	Session     *session.Session
	Hub         streaming.EventHub
	Journal     *store.EventLog
	Maintenance *scheduler.Maintenance
	Logger      *slog.Logger
}

// PanelServer serves the editor API.
type PanelServer struct {
	deps PanelDeps
}

// NewPanelServer creates a new PanelServer.
func NewPanelServer(deps PanelDeps) *PanelServer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &PanelServer{deps: deps}
}

// Handler returns the HTTP handler for the panel routes.
func (s *PanelServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Reads.
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/nodes/{id}", s.handleGetNode)
	mux.HandleFunc("GET /api/find", s.handleFind)
	mux.HandleFunc("GET /api/diagram", s.handleDiagram)
	mux.HandleFunc("GET /api/journal", s.handleJournal)

	// Document lifecycle.
	mux.HandleFunc("POST /api/open", s.handleOpen)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("POST /api/save", s.handleSave)

	// Editing.
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("DELETE /api/select", s.handleClearSelection)
	mux.HandleFunc("POST /api/keys", s.handleKey)
	mux.HandleFunc("POST /api/nodes", s.handleAddNode)
	mux.HandleFunc("DELETE /api/nodes/{id}", s.handleDeleteNode)
	mux.HandleFunc("POST /api/nodes/{id}/move", s.handleMoveNode)
	mux.HandleFunc("PUT /api/property", s.handleProperty)
	mux.HandleFunc("POST /api/drop", s.handleDrop)
	mux.HandleFunc("POST /api/copy", s.handleCopy)
	mux.HandleFunc("POST /api/cut", s.handleCut)
	mux.HandleFunc("POST /api/paste", s.handlePaste)
	mux.HandleFunc("POST /api/undo", s.handleUndo)
	mux.HandleFunc("POST /api/redo", s.handleRedo)

	// Maintenance.
	mux.HandleFunc("POST /api/maintenance", s.handleMaintenance)

	// Live channels.
	mux.HandleFunc("GET /sse/events", s.handleSSE)
	mux.HandleFunc("GET /ws", s.handleWS)

	return mux
}
