package ws

import (
	"chatroom/domain"
	"chatroom/domain/event"
	"chatroom/runtime"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// Handler upgrades HTTP requests to websocket connections and runs one
// read loop per connection. The handshake may carry a user identity in the
// userId query parameter; without it the connection stays anonymous.
type Handler struct {
	log        *slog.Logger
	presence   *runtime.PresenceCoordinator
	relay      *runtime.EventRelay
	bufferSize int
}

func NewHandler(log *slog.Logger, presence *runtime.PresenceCoordinator,
	relay *runtime.EventRelay, bufferSize int) *Handler {
	return &Handler{log: log, presence: presence, relay: relay, bufferSize: bufferSize}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserID(r.URL.Query().Get("userId"))

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error("Websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "connection teardown")

	connID := domain.ConnID(uuid.NewString())
	sink := NewSink(h.log, h.bufferSize)

	h.presence.Connect(userID, connID, sink)
	defer h.presence.Disconnect(connID)

	// The request context is cancelled when the client goes away, which
	// unblocks both loops.
	ctx := r.Context()
	go h.writeLoop(ctx, c, sink)
	h.readLoop(ctx, c, connID)

	c.Close(websocket.StatusNormalClosure, "bye")
}

// readLoop dispatches inbound envelopes until the connection closes.
// A malformed frame is logged and skipped, never fatal for the
// connection. The persistence call inside send_message suspends only this
// connection's processing of that single event; other connections keep
// their own loops.
func (h *Handler) readLoop(ctx context.Context, c *websocket.Conn, connID domain.ConnID) {
	for {
		var in Inbound
		if err := wsjson.Read(ctx, c, &in); err != nil {
			h.log.Debug("Connection closed", "conn_id", connID, "reason", err)
			return
		}

		switch in.Event {
		case EventJoin:
			var p JoinPayload
			if err := json.Unmarshal(in.Data, &p); err != nil {
				h.logBadPayload(connID, in.Event, err)
				continue
			}
			h.presence.Join(ctx, connID, domain.RoomID(p.RoomID))
		case EventSendMessage:
			var p SendMessagePayload
			if err := json.Unmarshal(in.Data, &p); err != nil {
				h.logBadPayload(connID, in.Event, err)
				continue
			}
			// Persistence failure is already logged and suppresses the
			// relay; the sender gets no confirmation either way.
			_, _ = h.relay.SendMessage(ctx,
				domain.UserID(p.SenderID), domain.UserID(p.ReceiverID), p.Content)
		case EventTyping:
			var p TypingPayload
			if err := json.Unmarshal(in.Data, &p); err != nil {
				h.logBadPayload(connID, in.Event, err)
				continue
			}
			h.relay.Typing(ctx, domain.RoomID(p.To))
		case EventStopTyping:
			var p TypingPayload
			if err := json.Unmarshal(in.Data, &p); err != nil {
				h.logBadPayload(connID, in.Event, err)
				continue
			}
			h.relay.StopTyping(ctx, domain.RoomID(p.To))
		default:
			h.log.Warn("Unknown event ignored", "conn_id", connID, "event", in.Event)
		}
	}
}

// writeLoop drains the connection's sink and pushes envelopes onto the
// wire. A write error ends the loop; the read side notices the broken
// connection on its own.
func (h *Handler) writeLoop(ctx context.Context, c *websocket.Conn, sink *Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-sink.Events:
			out, ok := encode(e)
			if !ok {
				continue
			}
			if err := wsjson.Write(ctx, c, out); err != nil {
				h.log.Debug("Outbound write failed", "error", err)
				return
			}
		}
	}
}

func (h *Handler) logBadPayload(connID domain.ConnID, eventName string, err error) {
	h.log.Warn(fmt.Sprintf("Malformed %s payload ignored", eventName),
		"conn_id", connID, "error", err)
}

// encode maps a domain event to its wire envelope. Typing indicators
// deliberately carry no payload.
func encode(e event.DomainEvent) (Outbound, bool) {
	switch evt := e.(type) {
	case event.MessageReceived:
		return Outbound{Event: EventReceiveMessage, Data: ReceiveMessagePayload{
			Sender:  string(evt.Sender),
			Content: evt.Content,
		}}, true
	case event.RoomJoined:
		return Outbound{Event: EventRoomJoined, Data: RoomJoinedPayload{
			RoomID: string(evt.RoomID),
		}}, true
	case event.TypingStarted:
		return Outbound{Event: EventTyping}, true
	case event.TypingStopped:
		return Outbound{Event: EventStopTyping}, true
	default:
		return Outbound{}, false
	}
}
