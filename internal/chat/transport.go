package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"teamchat-service/internal/models"
)

// ErrNotConnected is returned when an emit happens with no live channel.
// The caller's optimistic state is unaffected; delivery is not guaranteed
// until the next successful send.
var ErrNotConnected = errors.New("transport not connected")

// Handlers receives inbound events. The set is swapped atomically through
// SetHandlers so no callback ever closes over a stale conversation.
type Handlers struct {
	OnMessage        func(models.ChatMessage)
	OnUserOnline     func(userID string)
	OnUserOffline    func(userID string)
	OnNewUser        func(models.Contact)
	OnMessageEdited  func(models.MessageRefPayload)
	OnMessageDeleted func(models.MessageRefPayload)
}

// TransportConfig configures the realtime channel.
type TransportConfig struct {
	// URL is the websocket endpoint, e.g. ws://host:8083/ws.
	URL   string
	Token string
	// UserID is re-announced via authenticate after every (re)connect;
	// channel identity does not survive a reconnect.
	UserID string
	// MaxAttempts caps one connect cycle; RetryDelay is the fixed pause
	// between attempts.
	MaxAttempts int
	RetryDelay  time.Duration
	// OnWarning surfaces connection trouble without crashing the caller.
	OnWarning func(error)
}

// Transport maintains one bidirectional channel per authenticated session
// and translates socket frames into typed handler callbacks.
type Transport struct {
	cfg    TransportConfig
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
	room *models.JoinPrivateChatPayload
	ctx  context.Context

	hmu      sync.RWMutex
	handlers Handlers

	closeOnce sync.Once
	closed    chan struct{}
}

// NewTransport builds a transport; Connect must be called before use.
func NewTransport(cfg TransportConfig) *Transport {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Transport{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		closed: make(chan struct{}),
	}
}

// SetHandlers swaps the inbound callback set.
func (t *Transport) SetHandlers(h Handlers) {
	t.hmu.Lock()
	t.handlers = h
	t.hmu.Unlock()
}

// Connect dials the channel, authenticates, and starts the read loop. Each
// attempt opens a fresh connection; a stale handshake is never reused. Up
// to MaxAttempts attempts are made with RetryDelay between them.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()
	return t.dial(ctx)
}

func (t *Transport) dial(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= t.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.closed:
			return ErrNotConnected
		default:
		}

		conn, _, err := t.dialer.DialContext(ctx, t.dialURL(), nil)
		if err != nil {
			lastErr = err
			t.warn(fmt.Errorf("connect attempt %d/%d: %w", attempt, t.cfg.MaxAttempts, err))
			if attempt < t.cfg.MaxAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(t.cfg.RetryDelay):
				}
			}
			continue
		}

		t.mu.Lock()
		t.conn = conn
		room := t.room
		t.mu.Unlock()

		// Identity and room membership do not survive a reconnect;
		// both are re-announced on every successful dial.
		if err := t.emit(models.EventAuthenticate, models.AuthenticatePayload{UserID: t.cfg.UserID}); err != nil {
			t.warn(err)
		}
		if room != nil {
			if err := t.emit(models.EventJoinPrivateChat, *room); err != nil {
				t.warn(err)
			}
		}

		go t.readLoop(conn)
		return nil
	}
	return fmt.Errorf("connect failed after %d attempts: %w", t.cfg.MaxAttempts, lastErr)
}

func (t *Transport) dialURL() string {
	if t.cfg.Token == "" {
		return t.cfg.URL
	}
	return t.cfg.URL + "?token=" + t.cfg.Token
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		var event models.SocketEvent
		if err := conn.ReadJSON(&event); err != nil {
			select {
			case <-t.closed:
				return
			default:
			}
			t.warn(fmt.Errorf("channel read: %w", err))
			conn.Close()
			t.mu.Lock()
			ctx := t.ctx
			t.mu.Unlock()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := t.dial(ctx); err != nil {
				t.warn(err)
			}
			return
		}
		t.dispatch(event)
	}
}

func (t *Transport) dispatch(event models.SocketEvent) {
	t.hmu.RLock()
	h := t.handlers
	t.hmu.RUnlock()

	switch event.Event {
	case models.EventReceiveMessage:
		var msg models.ChatMessage
		if err := json.Unmarshal(event.Data, &msg); err != nil {
			t.warn(fmt.Errorf("decode %s: %w", event.Event, err))
			return
		}
		if h.OnMessage != nil {
			h.OnMessage(msg)
		}
	case models.EventUserOnline, models.EventUserOffline:
		var p models.PresencePayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			t.warn(fmt.Errorf("decode %s: %w", event.Event, err))
			return
		}
		if event.Event == models.EventUserOnline {
			if h.OnUserOnline != nil {
				h.OnUserOnline(p.UserID)
			}
		} else if h.OnUserOffline != nil {
			h.OnUserOffline(p.UserID)
		}
	case models.EventNewUser:
		var c models.Contact
		if err := json.Unmarshal(event.Data, &c); err != nil {
			t.warn(fmt.Errorf("decode %s: %w", event.Event, err))
			return
		}
		if h.OnNewUser != nil {
			h.OnNewUser(c)
		}
	case models.EventMessageEdited:
		var ref models.MessageRefPayload
		if err := json.Unmarshal(event.Data, &ref); err != nil {
			return
		}
		if h.OnMessageEdited != nil {
			h.OnMessageEdited(ref)
		}
	case models.EventMessageDeleted:
		var ref models.MessageRefPayload
		if err := json.Unmarshal(event.Data, &ref); err != nil {
			return
		}
		if h.OnMessageDeleted != nil {
			h.OnMessageDeleted(ref)
		}
	default:
		log.Printf("transport: unhandled event %q", event.Event)
	}
}

// JoinRoom enters the pairwise room for the two participants and records
// it so the room is re-joined after a reconnect.
func (t *Transport) JoinRoom(userID1, userID2 string) error {
	payload := models.JoinPrivateChatPayload{UserID1: userID1, UserID2: userID2}
	t.mu.Lock()
	t.room = &payload
	t.mu.Unlock()
	return t.emit(models.EventJoinPrivateChat, payload)
}

// LeaveRoom exits the active room, if any.
func (t *Transport) LeaveRoom() error {
	t.mu.Lock()
	room := t.room
	t.room = nil
	t.mu.Unlock()
	if room == nil {
		return nil
	}
	return t.emit(models.EventLeavePrivateChat, *room)
}

// Send publishes a message to the active room.
func (t *Transport) Send(p models.SendMessagePayload) error {
	return t.emit(models.EventSendMessage, p)
}

func (t *Transport) emit(event string, payload any) error {
	frame, err := models.NewSocketEvent(event, payload)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ErrNotConnected
	}
	if err := t.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// Close tears the channel down. Used on unmount/logout; no reconnect
// follows.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}

func (t *Transport) warn(err error) {
	if t.cfg.OnWarning != nil {
		t.cfg.OnWarning(err)
		return
	}
	log.Printf("transport: %v", err)
}
