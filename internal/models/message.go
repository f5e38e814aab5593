package models

import (
	"time"

	"github.com/lib/pq"
)

// Message status values. The client marks optimistic messages "sent"
// immediately; "delivered" and "read" are reserved for servers that ack.
const (
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// ChatMessage represents one message in a pairwise chat. Server-issued ids
// are opaque strings; client-optimistic ids carry a temporary prefix.
type ChatMessage struct {
	ID        string         `db:"id" json:"id"`
	ChatID    string         `db:"chat_id" json:"chatId"`
	SenderID  string         `db:"sender_id" json:"senderId"`
	Content   string         `db:"content" json:"content"`
	Nonce     string         `db:"nonce" json:"nonce,omitempty"`
	Status    string         `db:"-" json:"status,omitempty"`
	ReadBy    pq.StringArray `db:"read_by" json:"readBy,omitempty"`
	Edited    bool           `db:"edited" json:"edited,omitempty"`
	Deleted   bool           `db:"deleted" json:"deleted,omitempty"`
	Timestamp time.Time      `db:"created_at" json:"timestamp"`
}
