package chat

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"teamchat-service/internal/models"
)

var (
	// ErrNotSelectable covers self-chat and peers missing from the directory.
	ErrNotSelectable = errors.New("peer is not a selectable chat target")
	// ErrNoConversation is returned by Send before any peer is opened.
	ErrNoConversation = errors.New("no conversation selected")
)

// transport is the slice of Transport the session uses; tests substitute a
// fake.
type transport interface {
	SetHandlers(Handlers)
	JoinRoom(userID1, userID2 string) error
	LeaveRoom() error
	Send(models.SendMessagePayload) error
}

// Session owns one user's chat state: the contact list, the currently open
// conversation, and the wiring between transport events and both. All
// mutations funnel through one mutex, so transport callbacks never race
// with user actions and never close over a stale conversation.
type Session struct {
	selfID    string
	transport transport
	api       Directory

	mu       sync.Mutex
	contacts *ContactList
	conv     *Conversation
	gen      int

	// onNotify fires for messages that are not rendered in the open
	// conversation (another chat, or none open).
	onNotify func(peerID, content string)
}

// NewSession builds a session for selfID. onNotify may be nil.
func NewSession(selfID string, tr transport, api Directory, onNotify func(peerID, content string)) *Session {
	return &Session{
		selfID:    selfID,
		transport: tr,
		api:       api,
		contacts:  NewContactList(selfID),
		onNotify:  onNotify,
	}
}

// Start hydrates the contact list and registers the inbound handlers.
// Fetch failures degrade to empty lists rather than failing the session;
// the user sees an empty directory, not an error page.
func (s *Session) Start(ctx context.Context) error {
	users, err := s.api.Users(ctx)
	if err != nil {
		log.Printf("session: directory fetch: %v", err)
		users = nil
	}
	history, err := s.api.Messages(ctx)
	if err != nil {
		log.Printf("session: history fetch: %v", err)
		history = nil
	}

	s.mu.Lock()
	s.contacts.Hydrate(users, history)
	s.mu.Unlock()

	s.transport.SetHandlers(Handlers{
		OnMessage:        s.handleInbound,
		OnUserOnline:     func(id string) { s.setOnline(id, true) },
		OnUserOffline:    func(id string) { s.setOnline(id, false) },
		OnNewUser:        s.addContact,
		OnMessageEdited:  s.applyEdit,
		OnMessageDeleted: s.applyDelete,
	})
	return nil
}

// Open selects a peer: leaves the previous room, joins the pairwise room,
// and loads history scoped to the computed pair id. Loads are tagged with
// a generation; a load that resolves after the user has already switched
// again is discarded instead of overwriting the newer selection.
func (s *Session) Open(ctx context.Context, peerID string) error {
	s.mu.Lock()
	if !s.contacts.Selectable(peerID) {
		s.mu.Unlock()
		return ErrNotSelectable
	}
	s.gen++
	gen := s.gen
	hadConv := s.conv != nil
	s.conv = nil
	s.mu.Unlock()

	if hadConv {
		if err := s.transport.LeaveRoom(); err != nil {
			log.Printf("session: leave room: %v", err)
		}
	}
	if err := s.transport.JoinRoom(s.selfID, peerID); err != nil {
		log.Printf("session: join room: %v", err)
	}

	history, err := s.api.Messages(ctx)
	if err != nil {
		log.Printf("session: history fetch: %v", err)
		history = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// The selection changed while this load was in flight.
		return nil
	}
	conv := NewConversation(PairID(s.selfID, peerID))
	conv.Load(history)
	s.conv = conv
	return nil
}

// Send appends an optimistic entry and emits it. The optimistic entry is
// kept even when the emit fails; delivery while disconnected is not
// guaranteed and needs a manual resend.
func (s *Session) Send(content string) (models.ChatMessage, error) {
	s.mu.Lock()
	if s.conv == nil {
		s.mu.Unlock()
		return models.ChatMessage{}, ErrNoConversation
	}
	msg := s.conv.AppendLocal(s.selfID, content, uuid.NewString())
	peer, _ := PairPeer(s.conv.ChatID(), s.selfID)
	s.contacts.Touch(peer, content)
	s.mu.Unlock()

	err := s.transport.Send(models.SendMessagePayload{
		ChatID:   msg.ChatID,
		Content:  msg.Content,
		SenderID: msg.SenderID,
		Nonce:    msg.Nonce,
	})
	if err != nil {
		log.Printf("session: send: %v", err)
	}
	return msg, err
}

func (s *Session) handleInbound(m models.ChatMessage) {
	s.mu.Lock()
	outcome := Rejected
	open := ""
	if s.conv != nil {
		open = s.conv.ChatID()
		outcome = s.conv.Reconcile(m)
	}
	if outcome != Duplicate {
		peer := m.SenderID
		if peer == s.selfID {
			if p, ok := PairPeer(m.ChatID, s.selfID); ok {
				peer = p
			}
		}
		s.contacts.Touch(peer, m.Content)
	}
	notify := m.SenderID != s.selfID && m.ChatID != open
	onNotify := s.onNotify
	s.mu.Unlock()

	if notify && onNotify != nil {
		onNotify(m.SenderID, m.Content)
	}
}

func (s *Session) setOnline(id string, online bool) {
	s.mu.Lock()
	s.contacts.SetOnline(id, online)
	s.mu.Unlock()
}

func (s *Session) addContact(c models.Contact) {
	s.mu.Lock()
	s.contacts.Add(c)
	s.mu.Unlock()
}

func (s *Session) applyEdit(ref models.MessageRefPayload) {
	s.mu.Lock()
	if s.conv != nil && s.conv.ChatID() == ref.ChatID {
		s.conv.ApplyEdit(ref.MessageID, ref.Content)
	}
	s.mu.Unlock()
}

func (s *Session) applyDelete(ref models.MessageRefPayload) {
	s.mu.Lock()
	if s.conv != nil && s.conv.ChatID() == ref.ChatID {
		s.conv.MarkDeleted(ref.MessageID)
	}
	s.mu.Unlock()
}

// Contacts returns the visible contact list in display order.
func (s *Session) Contacts() []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contacts.Entries()
}

// Messages returns the open conversation's list, or nil while no peer is
// selected or a history load is in flight.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return nil
	}
	return s.conv.Messages()
}

// OpenChatID reports the pair id of the open conversation, empty if none.
func (s *Session) OpenChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return ""
	}
	return s.conv.ChatID()
}
