package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/canopy/internal/diagram"
	"github.com/rendis/canopy/internal/expressions"
	"github.com/rendis/canopy/pkg/schema"
)

// handleOpen loads a document into the session.
func (s *CanopyServer) handleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID := req.GetString("document_id", "")
	if clientID := req.GetString("client_id", ""); clientID != "" {
		s.captureSession(ctx, clientID)
	}

	if err := s.session.Open(ctx, documentID); err != nil {
		return toolError(err), nil
	}
	return s.stateResult(true)
}

// handleState returns the editor state.
func (s *CanopyServer) handleState(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.stateResult(req.GetBool("include_document", true))
}

// handleSelect selects a node or clears the selection.
func (s *CanopyServer) handleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID := req.GetString("node_id", "")
	if nodeID == "" {
		s.session.ClearSelection(ctx)
		return s.stateResult(false)
	}
	if _, err := s.session.Select(ctx, nodeID); err != nil {
		return toolError(err), nil
	}
	return s.stateResult(false)
}

// handleKey dispatches a keyboard shortcut.
func (s *CanopyServer) handleKey(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError("key is required"), nil
	}
	ev := schema.KeyEvent{
		Key:   key,
		Ctrl:  req.GetBool("ctrl", false),
		Shift: req.GetBool("shift", false),
		Meta:  req.GetBool("meta", false),
	}

	handled, keyErr := s.session.HandleKey(ctx, ev)
	if keyErr != nil {
		return toolError(keyErr), nil
	}
	return marshalResult(map[string]any{
		"handled": handled,
		"state":   s.session.State(),
	})
}

// handleAdd inserts an explicit node or a default chain of node types.
func (s *CanopyServer) handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID := req.GetString("parent_id", "")

	if raw := mcp.ParseStringMap(req, "node", nil); raw != nil {
		data, marshalErr := json.Marshal(raw)
		if marshalErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid node: %v", marshalErr)), nil
		}
		node, parseErr := schema.ParseNode(data)
		if parseErr != nil {
			return toolError(parseErr), nil
		}
		if err := s.session.AddChild(ctx, parentID, node); err != nil {
			return toolError(err), nil
		}
		return marshalResult(map[string]any{"ok": true, "id": node.ID})
	}

	names := req.GetStringSlice("types", nil)
	if len(names) == 0 {
		return mcp.NewToolResultError("one of node or types is required"), nil
	}
	types := make([]schema.NodeType, 0, len(names))
	for _, name := range names {
		types = append(types, schema.NodeType(strings.ToUpper(name)))
	}
	node, err := s.session.AddDefault(ctx, parentID, types...)
	if err != nil {
		return toolError(err), nil
	}
	return marshalResult(map[string]any{"ok": true, "id": node.ID})
}

// handleUpdate sets one node property.
func (s *CanopyServer) handleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError("key is required"), nil
	}
	raw, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError("value is required"), nil
	}

	if updErr := s.session.UpdateProperty(ctx, req.GetString("node_id", ""), key, decodeValue(raw)); updErr != nil {
		return toolError(updErr), nil
	}
	return s.stateResult(false)
}

// decodeValue turns JSON literals into values and keeps anything else as a string.
func decodeValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// handleEdit applies a structural or history operation.
func (s *CanopyServer) handleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("op")
	if err != nil {
		return mcp.NewToolResultError("op is required"), nil
	}
	nodeID := req.GetString("node_id", "")
	sess := s.session

	var editErr error
	switch op {
	case "delete":
		editErr = sess.Delete(ctx, nodeID)
	case "up":
		editErr = sess.Reorder(ctx, nodeID, schema.DirectionUp)
	case "down":
		editErr = sess.Reorder(ctx, nodeID, schema.DirectionDown)
	case "promote":
		editErr = sess.Promote(ctx, nodeID)
	case "demote":
		editErr = sess.Demote(ctx, nodeID)
	case "copy":
		editErr = sess.Copy(ctx, nodeID)
	case "cut":
		editErr = sess.Cut(ctx, nodeID)
	case "paste":
		node, pasteErr := sess.Paste(ctx)
		if pasteErr != nil {
			return toolError(pasteErr), nil
		}
		return marshalResult(map[string]any{"ok": true, "id": node.ID})
	case "undo":
		return marshalResult(map[string]any{"changed": sess.Undo(ctx)})
	case "redo":
		return marshalResult(map[string]any{"changed": sess.Redo(ctx)})
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown op %q", op)), nil
	}

	if editErr != nil {
		return toolError(editErr), nil
	}
	return s.stateResult(false)
}

// handleDrop relocates a node.
func (s *CanopyServer) handleDrop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	draggedID, err := req.RequireString("dragged_id")
	if err != nil {
		return mcp.NewToolResultError("dragged_id is required"), nil
	}
	targetID, err := req.RequireString("target_id")
	if err != nil {
		return mcp.NewToolResultError("target_id is required"), nil
	}
	position, err := req.RequireString("position")
	if err != nil {
		return mcp.NewToolResultError("position is required"), nil
	}

	if dropErr := s.session.Drop(ctx, draggedID, targetID, schema.DropPosition(position)); dropErr != nil {
		return toolError(dropErr), nil
	}
	return s.stateResult(false)
}

// handleSave persists the document.
func (s *CanopyServer) handleSave(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.Save(ctx); err != nil {
		return toolError(err), nil
	}
	return s.stateResult(false)
}

// handleFind evaluates an expression against every node.
func (s *CanopyServer) handleFind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expression, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError("expression is required"), nil
	}
	lang := req.GetString("lang", expressions.LangCEL)

	matches, findErr := s.session.Find(ctx, lang, expression)
	if findErr != nil {
		return toolError(findErr), nil
	}
	return marshalResult(map[string]any{
		"lang":    lang,
		"matches": matches,
		"count":   len(matches),
	})
}

// handleDiagram renders the open document in the requested format.
func (s *CanopyServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" && format != "image" {
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}

	model, buildErr := s.session.Diagram()
	if buildErr != nil {
		return toolError(buildErr), nil
	}

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	default:
		png, imgErr := diagram.RenderImage(ctx, model)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	}
}

// captureSession maps the client ID to its current MCP session for notifications.
func (s *CanopyServer) captureSession(ctx context.Context, clientID string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.clients.Register(clientID, session.SessionID())
	}
}

// stateResult returns the session state, optionally without the document tree.
func (s *CanopyServer) stateResult(includeDocument bool) (*mcp.CallToolResult, error) {
	st := s.session.State()
	if !includeDocument {
		st.Document = nil
	}
	return marshalResult(st)
}

// toolError reports an editor error as "CODE: message".
func toolError(err error) *mcp.CallToolResult {
	var edErr *schema.EditorError
	if errors.As(err, &edErr) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", edErr.Code, edErr.Message))
	}
	return mcp.NewToolResultError(err.Error())
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
