package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/canopy/internal/expressions"
	"github.com/rendis/canopy/internal/session"
	"github.com/rendis/canopy/internal/streaming"
)

// CanopyServerDeps holds the dependencies for creating a CanopyServer.
type CanopyServerDeps struct {
	Session *session.Session
	Hub     streaming.EventHub
	Logger  *slog.Logger
}

// CanopyServer wraps an MCP server with editor tool handlers.
type CanopyServer struct {
	session   *session.Session
	hub       streaming.EventHub
	logger    *slog.Logger
	clients   *ClientRegistry
	mcpServer *server.MCPServer
}

// NewCanopyServer creates a CanopyServer with every editor tool registered.
func NewCanopyServer(deps CanopyServerDeps) *CanopyServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &CanopyServer{
		session: deps.Session,
		hub:     deps.Hub,
		logger:  logger,
		clients: NewClientRegistry(),
	}

	mcpSrv := server.NewMCPServer(
		"canopy",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Canopy edits layout documents: a tree of stacks, text, icon text, titled and centered containers, and images. Use canopy.open to load a document, canopy.state to inspect it, canopy.select and canopy.key to drive it like the editor UI, canopy.add, canopy.update, canopy.edit and canopy.drop to change it, canopy.find to search it, canopy.diagram to visualize it, and canopy.save to persist it."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or
// stdin closes. Editor events are forwarded to watching clients meanwhile.
func (s *CanopyServer) Serve(ctx context.Context) error {
	if s.hub != nil {
		notifier := NewMCPNotifier(s.mcpServer, s.clients, s.logger)
		go func() {
			if err := notifier.Forward(ctx, s.hub); err != nil {
				s.logger.Warn("event forwarding stopped", slog.String("error", err.Error()))
			}
		}()
	}
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *CanopyServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Clients returns the registry of clients watching editor events.
func (s *CanopyServer) Clients() *ClientRegistry {
	return s.clients
}

func (s *CanopyServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: openTool(), Handler: s.handleOpen},
		{Tool: stateTool(), Handler: s.handleState},
		{Tool: selectTool(), Handler: s.handleSelect},
		{Tool: keyTool(), Handler: s.handleKey},
		{Tool: addTool(), Handler: s.handleAdd},
		{Tool: updateTool(), Handler: s.handleUpdate},
		{Tool: editTool(), Handler: s.handleEdit},
		{Tool: dropTool(), Handler: s.handleDrop},
		{Tool: saveTool(), Handler: s.handleSave},
		{Tool: findTool(), Handler: s.handleFind},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

// --- Tool definitions ---

func openTool() mcp.Tool {
	return mcp.NewTool("canopy.open",
		mcp.WithDescription("Open a document for editing"),
		mcp.WithString("document_id", mcp.Description("Document to open (default: reopen the last document)")),
		mcp.WithString("client_id", mcp.Description("Register this client for editor event notifications")),
	)
}

func stateTool() mcp.Tool {
	return mcp.NewTool("canopy.state",
		mcp.WithDescription("Get the editor state"),
		mcp.WithBoolean("include_document", mcp.Description("Include the full document tree (default: true)")),
	)
}

func selectTool() mcp.Tool {
	return mcp.NewTool("canopy.select",
		mcp.WithDescription("Select a node, or clear the selection when node_id is empty"),
		mcp.WithString("node_id", mcp.Description("ID of the node to select")),
	)
}

func keyTool() mcp.Tool {
	return mcp.NewTool("canopy.key",
		mcp.WithDescription("Send a keyboard shortcut to the editor"),
		mcp.WithString("key", mcp.Required(), mcp.Description("Key name, e.g. z, Delete, ArrowUp, Escape")),
		mcp.WithBoolean("ctrl", mcp.Description("Control (or Meta) held")),
		mcp.WithBoolean("shift", mcp.Description("Shift held")),
		mcp.WithBoolean("meta", mcp.Description("Meta held")),
	)
}

func addTool() mcp.Tool {
	return mcp.NewTool("canopy.add",
		mcp.WithDescription("Add a node to a stack"),
		mcp.WithString("parent_id", mcp.Description("Target stack (default: the selected node)")),
		mcp.WithArray("types",
			mcp.Description("Node types to nest, outermost first, e.g. [\"CENTERED_CONTAINER\", \"TEXT\"]"),
			mcp.Items(map[string]any{
				"type": "string",
				"enum": []string{"STACK", "TEXT", "ICON_TEXT", "TITLED_CONTAINER", "CENTERED_CONTAINER", "IMAGE"},
			}),
		),
		mcp.WithObject("node", mcp.Description("Explicit node tree to insert instead of types")),
	)
}

func updateTool() mcp.Tool {
	return mcp.NewTool("canopy.update",
		mcp.WithDescription("Set one property of a node"),
		mcp.WithString("node_id", mcp.Description("Target node (default: the selected node)")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Property name, e.g. text, fontSize, direction")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value; JSON literals such as true or 12 are decoded")),
	)
}

func editTool() mcp.Tool {
	return mcp.NewTool("canopy.edit",
		mcp.WithDescription("Apply a structural edit or history operation"),
		mcp.WithString("op", mcp.Required(),
			mcp.Enum("delete", "up", "down", "promote", "demote", "copy", "cut", "paste", "undo", "redo"),
			mcp.Description("Operation to apply"),
		),
		mcp.WithString("node_id", mcp.Description("Target node (default: the selected node)")),
	)
}

func dropTool() mcp.Tool {
	return mcp.NewTool("canopy.drop",
		mcp.WithDescription("Move a node relative to a target node"),
		mcp.WithString("dragged_id", mcp.Required(), mcp.Description("Node being moved")),
		mcp.WithString("target_id", mcp.Required(), mcp.Description("Node it is dropped on")),
		mcp.WithString("position", mcp.Required(),
			mcp.Enum("before", "after", "inside"),
			mcp.Description("Where the node lands relative to the target"),
		),
	)
}

func saveTool() mcp.Tool {
	return mcp.NewTool("canopy.save",
		mcp.WithDescription("Save the document now"),
	)
}

func findTool() mcp.Tool {
	return mcp.NewTool("canopy.find",
		mcp.WithDescription("Find nodes matching a boolean expression over node, depth and path"),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Expression, e.g. node.nodeType == \"TEXT\"")),
		mcp.WithString("lang",
			mcp.Enum(expressions.LangCEL, expressions.LangExpr, expressions.LangJQ),
			mcp.Description("Expression language (default: cel)"),
		),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("canopy.diagram",
		mcp.WithDescription("Generate a visual diagram of the document. Returns ASCII art, Mermaid flowchart syntax, or base64-encoded PNG image"),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), or image (base64 PNG)"),
		),
	)
}
