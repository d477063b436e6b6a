package panel

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rendis/canopy/internal/session"
	"github.com/rendis/canopy/internal/streaming"
	"github.com/rendis/canopy/pkg/schema"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts clients without an Origin header (CLIs, agents) and
// browsers on a page served by this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// wsInbound is a command sent by an editor client.
type wsInbound struct {
	Type     string              `json:"type"`
	ID       string              `json:"id,omitempty"`
	Key      *schema.KeyEvent    `json:"key,omitempty"`
	Property string              `json:"property,omitempty"`
	Value    any                 `json:"value,omitempty"`
	TargetID string              `json:"targetId,omitempty"`
	Position schema.DropPosition `json:"position,omitempty"`
}

// wsOutbound is a message pushed to an editor client.
type wsOutbound struct {
	Type    string                 `json:"type"`
	State   *session.State         `json:"state,omitempty"`
	Event   *streaming.StreamEvent `json:"event,omitempty"`
	Handled bool                   `json:"handled,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// handleWS upgrades to a WebSocket. The client receives the state on
// connect, every hub event, and the state after each command it sends.
func (s *PanelServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		s.deps.Logger.Warn("ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	events, unsubscribe, err := s.deps.Hub.Subscribe(ctx, streaming.EventFilter{})
	if err != nil {
		pushWS(writeCh, wsOutbound{Type: "error", Code: "unavailable", Message: err.Error()})
		cancel()
		<-writerDone
		return
	}
	defer unsubscribe()

	s.pushState(writeCh)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				pushWS(writeCh, wsOutbound{Type: "event", Event: &ev})
			}
		}
	}()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		s.handleWSCommand(ctx, writeCh, in)
	}
}

func (s *PanelServer) handleWSCommand(ctx context.Context, writeCh chan<- wsOutbound, in wsInbound) {
	sess := s.deps.Session
	var (
		err     error
		handled bool
	)

	switch strings.ToLower(strings.TrimSpace(in.Type)) {
	case "":
		pushWS(writeCh, wsOutbound{Type: "error", Code: schema.ErrCodeValidation, Message: "type is required"})
		return
	case "ping":
		pushWS(writeCh, wsOutbound{Type: "pong"})
		return
	case "state":
	case "select":
		_, err = sess.Select(ctx, in.ID)
	case "clear":
		sess.ClearSelection(ctx)
	case "key":
		if in.Key == nil {
			err = schema.NewError(schema.ErrCodeValidation, "key is required")
			break
		}
		handled, err = sess.HandleKey(ctx, *in.Key)
	case "property":
		err = sess.UpdateProperty(ctx, in.ID, in.Property, in.Value)
	case "drop":
		err = sess.Drop(ctx, in.ID, in.TargetID, in.Position)
	case "undo":
		handled = sess.Undo(ctx)
	case "redo":
		handled = sess.Redo(ctx)
	case "save":
		err = sess.Save(ctx)
	default:
		pushWS(writeCh, wsOutbound{Type: "error", Code: schema.ErrCodeValidation, Message: "unknown type " + in.Type})
		return
	}

	if err != nil {
		out := wsOutbound{Type: "error", Message: err.Error()}
		var edErr *schema.EditorError
		if errors.As(err, &edErr) {
			out.Code, out.Message = edErr.Code, edErr.Message
		}
		pushWS(writeCh, out)
		return
	}
	st := sess.State()
	pushWS(writeCh, wsOutbound{Type: "state", State: &st, Handled: handled})
}

func (s *PanelServer) pushState(writeCh chan<- wsOutbound) {
	st := s.deps.Session.State()
	pushWS(writeCh, wsOutbound{Type: "state", State: &st})
}

// pushWS drops the message when the client is too slow to keep up.
func pushWS(writeCh chan<- wsOutbound, out wsOutbound) {
	select {
	case writeCh <- out:
	default:
	}
}
