package panel

import (
	"net/http"

	"github.com/rendis/canopy/internal/diagram"
	"github.com/rendis/canopy/internal/expressions"
)

// handleState returns the session state.
func (s *PanelServer) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Session.State())
}

// handleGetNode returns one node of the current document.
func (s *PanelServer) handleGetNode(w http.ResponseWriter, r *http.Request) {
	n, ok := s.deps.Session.Node(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleFind searches the current document: /api/find?lang=jq&q=...
func (s *PanelServer) handleFind(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expr := q.Get("q")
	if expr == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	lang := q.Get("lang")
	if lang == "" {
		lang = expressions.LangCEL
	}
	matches, err := s.deps.Session.Find(r.Context(), lang, expr)
	if err != nil {
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lang":    lang,
		"matches": matches,
		"count":   len(matches),
	})
}

// handleDiagram renders the current document: format=mermaid (default),
// ascii or png.
func (s *PanelServer) handleDiagram(w http.ResponseWriter, r *http.Request) {
	model, err := s.deps.Session.Diagram()
	if err != nil {
		writeEditorError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(diagram.RenderMermaid(model)))
	case "ascii":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(diagram.RenderASCII(model)))
	case "png":
		png, err := diagram.RenderImage(r.Context(), model)
		if err != nil {
			s.deps.Logger.Error("render diagram failed", "error", err)
			writeError(w, http.StatusInternalServerError, "render failed")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	default:
		writeError(w, http.StatusBadRequest, "format must be mermaid, ascii or png")
	}
}

// handleJournal returns the edit journal of the open document, or its
// summary with ?summary=true.
func (s *PanelServer) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeError(w, http.StatusNotImplemented, "journal is not configured")
		return
	}
	docID, _ := s.deps.Session.Document()
	if id := r.URL.Query().Get("document_id"); id != "" {
		docID = id
	}
	if docID == "" {
		writeError(w, http.StatusConflict, "no document loaded")
		return
	}

	if r.URL.Query().Get("summary") == "true" {
		summary, err := s.deps.Journal.Replay(r.Context(), docID)
		if err != nil {
			writeEditorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	events, err := s.deps.Journal.GetEvents(r.Context(), docID, int64(queryInt(r, "since", 0)))
	if err != nil {
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": docID,
		"events":      events,
	})
}
