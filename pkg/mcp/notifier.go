package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/canopy/internal/streaming"
)

// notificationSender is the part of server.MCPServer the notifier uses.
type notificationSender interface {
	SendNotificationToSpecificClient(sessionID string, method string, params map[string]any) error
}

// MCPNotifier pushes editor events to registered clients.
type MCPNotifier struct {
	sender  notificationSender
	clients *ClientRegistry
	logger  *slog.Logger
}

// NewMCPNotifier creates a notifier that pushes via MCP notifications.
func NewMCPNotifier(sender notificationSender, clients *ClientRegistry, logger *slog.Logger) *MCPNotifier {
	return &MCPNotifier{sender: sender, clients: clients, logger: logger}
}

// Notify sends one event to every registered session.
// Best-effort: sessions that went away are dropped from the registry.
func (n *MCPNotifier) Notify(_ context.Context, event streaming.StreamEvent) error {
	params := map[string]any{
		"level":  "info",
		"logger": "canopy",
		"data":   event,
	}
	var errs []error
	for _, sessionID := range n.clients.SessionIDs() {
		err := n.sender.SendNotificationToSpecificClient(sessionID, "notifications/message", params)
		if errors.Is(err, server.ErrSessionNotFound) {
			// Session expired between lookup and send.
			n.clients.Remove(sessionID)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forward subscribes to hub and notifies clients of every event until ctx
// is cancelled.
func (n *MCPNotifier) Forward(ctx context.Context, hub streaming.EventHub) error {
	events, unsubscribe, err := hub.Subscribe(ctx, streaming.EventFilter{})
	if err != nil {
		return err
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := n.Notify(ctx, ev); err != nil {
				n.logger.Debug("notify clients failed", slog.String("error", err.Error()))
			}
		}
	}
}
