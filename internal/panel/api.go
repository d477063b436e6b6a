package panel

import (
	"net/http"

	"github.com/rendis/canopy/pkg/schema"
)

// respond writes the session state after a successful mutation.
func (s *PanelServer) respond(w http.ResponseWriter, err error) {
	if err != nil {
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Session.State())
}

func (s *PanelServer) handleOpen(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DocumentID string `json:"document_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.respond(w, s.deps.Session.Open(r.Context(), body.DocumentID))
}

func (s *PanelServer) handleReload(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.deps.Session.Reload(r.Context()))
}

func (s *PanelServer) handleReset(w http.ResponseWriter, r *http.Request) {
	s.deps.Session.Reset(r.Context())
	s.respond(w, nil)
}

func (s *PanelServer) handleSave(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.deps.Session.Save(r.Context()))
}

func (s *PanelServer) handleSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	_, err := s.deps.Session.Select(r.Context(), body.ID)
	s.respond(w, err)
}

func (s *PanelServer) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.deps.Session.ClearSelection(r.Context())
	s.respond(w, nil)
}

// handleKey forwards a keyboard event.
func (s *PanelServer) handleKey(w http.ResponseWriter, r *http.Request) {
	var ev schema.KeyEvent
	if !decodeBody(w, r, &ev) {
		return
	}
	handled, err := s.deps.Session.HandleKey(r.Context(), ev)
	if err != nil {
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"handled": handled,
		"state":   s.deps.Session.State(),
	})
}

// handleAddNode adds either an explicit node or a default chain of types to
// parent_id (or the selected stack).
func (s *PanelServer) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ParentID string            `json:"parent_id"`
		Types    []schema.NodeType `json:"types"`
		Node     *schema.Node      `json:"node"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	ctx := r.Context()

	switch {
	case body.Node != nil:
		if err := s.deps.Session.AddChild(ctx, body.ParentID, body.Node); err != nil {
			writeEditorError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": body.Node.ID})
	case len(body.Types) > 0:
		n, err := s.deps.Session.AddDefault(ctx, body.ParentID, body.Types...)
		if err != nil {
			writeEditorError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": n.ID})
	default:
		writeError(w, http.StatusBadRequest, "node or types is required")
	}
}

func (s *PanelServer) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.deps.Session.Delete(r.Context(), r.PathValue("id")))
}

// handleMoveNode applies {"move": "up"|"down"|"promote"|"demote"}.
func (s *PanelServer) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Move string `json:"move"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	ctx, id := r.Context(), r.PathValue("id")

	var err error
	switch body.Move {
	case "up":
		err = s.deps.Session.Reorder(ctx, id, schema.DirectionUp)
	case "down":
		err = s.deps.Session.Reorder(ctx, id, schema.DirectionDown)
	case "promote":
		err = s.deps.Session.Promote(ctx, id)
	case "demote":
		err = s.deps.Session.Demote(ctx, id)
	default:
		writeError(w, http.StatusBadRequest, "move must be up, down, promote or demote")
		return
	}
	s.respond(w, err)
}

func (s *PanelServer) handleProperty(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NodeID string `json:"node_id"`
		Key    string `json:"key"`
		Value  any    `json:"value"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	s.respond(w, s.deps.Session.UpdateProperty(r.Context(), body.NodeID, body.Key, body.Value))
}

// handleDrop relocates a node. Either position or offset_y with height
// must be given.
func (s *PanelServer) handleDrop(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DraggedID string              `json:"dragged_id"`
		TargetID  string              `json:"target_id"`
		Position  schema.DropPosition `json:"position"`
		OffsetY   *float64            `json:"offset_y"`
		Height    float64             `json:"height"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.DraggedID == "" || body.TargetID == "" {
		writeError(w, http.StatusBadRequest, "dragged_id and target_id are required")
		return
	}
	ctx := r.Context()

	if body.OffsetY != nil {
		_, err := s.deps.Session.DropAt(ctx, body.DraggedID, body.TargetID, *body.OffsetY, body.Height)
		s.respond(w, err)
		return
	}
	s.respond(w, s.deps.Session.Drop(ctx, body.DraggedID, body.TargetID, body.Position))
}

type idBody struct {
	ID string `json:"id"`
}

func (s *PanelServer) handleCopy(w http.ResponseWriter, r *http.Request) {
	var body idBody
	if !decodeBody(w, r, &body) {
		return
	}
	s.respond(w, s.deps.Session.Copy(r.Context(), body.ID))
}

func (s *PanelServer) handleCut(w http.ResponseWriter, r *http.Request) {
	var body idBody
	if !decodeBody(w, r, &body) {
		return
	}
	s.respond(w, s.deps.Session.Cut(r.Context(), body.ID))
}

func (s *PanelServer) handlePaste(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Session.Paste(r.Context())
	if err != nil {
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": n.ID})
}

func (s *PanelServer) handleUndo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"changed": s.deps.Session.Undo(r.Context())})
}

func (s *PanelServer) handleRedo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"changed": s.deps.Session.Redo(r.Context())})
}

// handleMaintenance runs journal maintenance now.
func (s *PanelServer) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	if s.deps.Maintenance == nil {
		writeError(w, http.StatusNotImplemented, "maintenance is not configured")
		return
	}
	report, err := s.deps.Maintenance.RunOnce(r.Context())
	if err != nil {
		s.deps.Logger.Error("maintenance failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
