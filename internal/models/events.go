package models

import (
	"encoding/json"
	"errors"
)

// Socket event vocabulary. Direction is from the client's perspective.
const (
	// client → server
	EventAuthenticate     = "authenticate"
	EventJoinPrivateChat  = "joinPrivateChat"
	EventLeavePrivateChat = "leavePrivateChat"
	EventSendMessage      = "sendMessage"

	// server → client
	EventReceiveMessage = "receiveMessage"
	EventUserOnline     = "userOnline"
	EventUserOffline    = "userOffline"
	EventNewUser        = "newUser"
	EventMessageEdited  = "messageEdited"
	EventMessageDeleted = "messageDeleted"
)

// SocketEvent is the envelope for every frame on the realtime channel.
type SocketEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewSocketEvent marshals a payload into an envelope.
func NewSocketEvent(event string, payload any) (SocketEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return SocketEvent{}, err
	}
	return SocketEvent{Event: event, Data: data}, nil
}

// Unmarshal decodes the envelope payload into dest.
func (e SocketEvent) Unmarshal(dest any) error {
	if len(e.Data) == 0 {
		return errors.New("empty event payload")
	}
	return json.Unmarshal(e.Data, dest)
}

// AuthenticatePayload binds the channel to an identity. Sent after every
// connect, including reconnects.
type AuthenticatePayload struct {
	UserID string `json:"userId"`
}

// JoinPrivateChatPayload requests membership in the pairwise room for the
// two participants. Also used for leavePrivateChat.
type JoinPrivateChatPayload struct {
	UserID1 string `json:"userId1"`
	UserID2 string `json:"userId2"`
}

// SendMessagePayload publishes a new message. Nonce is a client-generated
// correlation id echoed back by the server.
type SendMessagePayload struct {
	ChatID   string `json:"chatId"`
	Content  string `json:"content"`
	SenderID string `json:"senderId"`
	Nonce    string `json:"nonce,omitempty"`
}

// PresencePayload carries userOnline / userOffline notifications.
type PresencePayload struct {
	UserID string `json:"userId"`
}

// MessageRefPayload identifies a message for edit/delete notifications.
type MessageRefPayload struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
	Content   string `json:"content,omitempty"`
}
