package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"teamchat-service/internal/chat"
	"teamchat-service/internal/models"
	"teamchat-service/internal/observability"
	"teamchat-service/internal/presence"
	"teamchat-service/internal/repositories"
)

// TokenValidator verifies a session token and returns the user id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// SessionHandler owns the /ws endpoint: one connection per authenticated
// session, speaking the socket event vocabulary.
type SessionHandler struct {
	hub         *Hub
	messageRepo repositories.MessageRepository
	presence    presence.Store
	tokens      TokenValidator
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(hub *Hub, messageRepo repositories.MessageRepository, store presence.Store, tokens TokenValidator) *SessionHandler {
	return &SessionHandler{hub: hub, messageRepo: messageRepo, presence: store, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs the session read loop.
func (h *SessionHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("teamchat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.Register(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishSessionEvent(ctx, info, userID, "ws_connect", "")

	go h.readLoop(context.WithoutCancel(ctx), conn, info, userID)
}

func (h *SessionHandler) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo, tokenUserID string) {
	var closeReason string
	defer func() {
		boundUser, last := h.hub.Remove(conn)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishSessionEvent(ctx, info, tokenUserID, "ws_disconnect", closeReason)
		conn.Close()
		if boundUser != "" && last {
			if err := h.presence.MarkOffline(ctx, boundUser); err != nil {
				log.Printf("presence offline: %v", err)
			}
			h.broadcastPresence(models.EventUserOffline, boundUser)
		}
	}()

	for {
		var event models.SocketEvent
		if err := conn.ReadJSON(&event); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishSessionEvent(ctx, info, tokenUserID, "ws_error", closeReason)
			}
			return
		}
		if err := h.handleEvent(ctx, conn, tokenUserID, event); err != nil {
			log.Printf("ws event %s: %v", event.Event, err)
		}
	}
}

func (h *SessionHandler) handleEvent(ctx context.Context, conn *websocket.Conn, userID string, event models.SocketEvent) error {
	switch event.Event {
	case models.EventAuthenticate:
		var p models.AuthenticatePayload
		if err := event.Unmarshal(&p); err != nil {
			return err
		}
		// The channel identity comes from the validated token; the
		// payload only has to agree with it.
		if p.UserID != userID {
			return fmt.Errorf("authenticate user %q does not match token user %q", p.UserID, userID)
		}
		first := h.hub.BindUser(conn, userID)
		if err := h.presence.MarkOnline(ctx, userID); err != nil {
			log.Printf("presence online: %v", err)
		}
		if first {
			h.broadcastPresence(models.EventUserOnline, userID)
		}
		observability.IncWSEvent("authenticate")
		return nil

	case models.EventJoinPrivateChat:
		room, err := h.roomFor(event, userID)
		if err != nil {
			return err
		}
		h.hub.JoinRoom(room, conn)
		observability.IncWSEvent("join_room")
		return nil

	case models.EventLeavePrivateChat:
		room, err := h.roomFor(event, userID)
		if err != nil {
			return err
		}
		h.hub.LeaveRoom(room, conn)
		observability.IncWSEvent("leave_room")
		return nil

	case models.EventSendMessage:
		var p models.SendMessagePayload
		if err := event.Unmarshal(&p); err != nil {
			return err
		}
		return h.handleSend(ctx, userID, p)

	default:
		return fmt.Errorf("unknown event %q", event.Event)
	}
}

func (h *SessionHandler) roomFor(event models.SocketEvent, userID string) (string, error) {
	var p models.JoinPrivateChatPayload
	if err := event.Unmarshal(&p); err != nil {
		return "", err
	}
	if p.UserID1 != userID && p.UserID2 != userID {
		return "", fmt.Errorf("user %q is not a participant", userID)
	}
	return chat.PairID(p.UserID1, p.UserID2), nil
}

func (h *SessionHandler) handleSend(ctx context.Context, userID string, p models.SendMessagePayload) error {
	if p.SenderID != userID {
		return fmt.Errorf("sender %q does not match channel user %q", p.SenderID, userID)
	}
	peer, ok := chat.PairPeer(p.ChatID, userID)
	if !ok {
		return fmt.Errorf("user %q is not a participant of chat %q", userID, p.ChatID)
	}

	msg, err := h.messageRepo.CreateChatMessage(ctx, p.ChatID, p.SenderID, p.Content, p.Nonce)
	if err != nil {
		return fmt.Errorf("store message: %w", err)
	}

	for _, id := range []string{userID, peer} {
		if err := h.presence.RecordMessage(ctx, id, msg.Content, msg.Timestamp); err != nil {
			log.Printf("presence record: %v", err)
		}
	}

	frame, err := models.NewSocketEvent(models.EventReceiveMessage, msg)
	if err != nil {
		return err
	}
	h.hub.BroadcastToRoom(p.ChatID, frame)
	observability.IncWSEvent("message")
	return nil
}

func (h *SessionHandler) broadcastPresence(event, userID string) {
	frame, err := models.NewSocketEvent(event, models.PresencePayload{UserID: userID})
	if err != nil {
		return
	}
	h.hub.BroadcastAll(frame, userID)
}

func (h *SessionHandler) publishSessionEvent(ctx context.Context, info ConnInfo, userID, name, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.sessions", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       name,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   userID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func (h *SessionHandler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.tokens.ValidateToken(parts[1])
	}
	return "", fmt.Errorf("invalid token")
}
