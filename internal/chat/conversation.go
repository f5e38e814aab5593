package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"teamchat-service/internal/models"
)

// TempIDPrefix marks client-optimistic message ids. Server ids never carry it.
const TempIDPrefix = "temp-"

// Outcome reports what Reconcile did with an inbound message.
type Outcome int

const (
	// Appended: the message was new and added to the end of the list.
	Appended Outcome = iota
	// Replaced: the message superseded an optimistic entry in place.
	Replaced
	// Duplicate: a message with the same id was already present.
	Duplicate
	// Rejected: the message belongs to a different chat id.
	Rejected
)

// Conversation owns the append-only, duplicate-free message list for a
// single pairwise chat. Messages are ordered by arrival, not timestamp;
// clock skew between senders is not corrected.
type Conversation struct {
	chatID string
	msgs   []models.ChatMessage
}

// NewConversation creates an empty conversation scoped to chatID.
func NewConversation(chatID string) *Conversation {
	return &Conversation{chatID: chatID}
}

// ChatID returns the pairwise id this conversation is scoped to.
func (c *Conversation) ChatID() string { return c.chatID }

// Load replaces the list with the history entries belonging to this chat.
// The historical log arrives unscoped; the filter happens here.
func (c *Conversation) Load(history []models.ChatMessage) {
	c.msgs = c.msgs[:0]
	for _, m := range history {
		if m.ChatID == c.chatID {
			c.msgs = append(c.msgs, m)
		}
	}
}

// AppendLocal records an optimistic message: temp-prefixed id, status
// "sent" immediately (no ack is awaited), appended to the end of the list.
func (c *Conversation) AppendLocal(senderID, content, nonce string) models.ChatMessage {
	msg := models.ChatMessage{
		ID:        TempIDPrefix + uuid.NewString(),
		ChatID:    c.chatID,
		SenderID:  senderID,
		Content:   content,
		Nonce:     nonce,
		Status:    models.StatusSent,
		Timestamp: time.Now(),
	}
	c.msgs = append(c.msgs, msg)
	return msg
}

// Reconcile merges a server message into the list:
//
//  1. messages for another chat id are rejected, never buffered;
//  2. an optimistic entry matching the inbound (by echoed nonce when the
//     server provides one, otherwise by content+sender) is replaced in
//     place, keeping its position;
//  3. an entry with the same id means a re-delivery and is discarded;
//  4. anything else is appended to the end.
//
// The content+sender fallback keeps the first matching optimistic entry,
// so two identical messages sent back to back can reconcile against the
// wrong one; the nonce path has no such ambiguity.
func (c *Conversation) Reconcile(in models.ChatMessage) Outcome {
	if in.ChatID != c.chatID {
		return Rejected
	}

	if idx := c.matchOptimistic(in); idx >= 0 {
		in.Status = models.StatusSent
		c.msgs[idx] = in
		return Replaced
	}

	for _, m := range c.msgs {
		if m.ID == in.ID {
			return Duplicate
		}
	}

	c.msgs = append(c.msgs, in)
	return Appended
}

func (c *Conversation) matchOptimistic(in models.ChatMessage) int {
	for i, m := range c.msgs {
		if !strings.HasPrefix(m.ID, TempIDPrefix) {
			continue
		}
		if in.Nonce != "" {
			if m.Nonce == in.Nonce {
				return i
			}
			continue
		}
		if m.Content == in.Content && m.SenderID == in.SenderID {
			return i
		}
	}
	return -1
}

// MarkDeleted flags a message as deleted. The record stays in the list so
// ordering is preserved; content display is the renderer's concern.
func (c *Conversation) MarkDeleted(id string) bool {
	for i := range c.msgs {
		if c.msgs[i].ID == id {
			c.msgs[i].Deleted = true
			return true
		}
	}
	return false
}

// ApplyEdit replaces a message's content in place and flags it edited.
func (c *Conversation) ApplyEdit(id, content string) bool {
	for i := range c.msgs {
		if c.msgs[i].ID == id {
			c.msgs[i].Content = content
			c.msgs[i].Edited = true
			return true
		}
	}
	return false
}

// Messages returns the current list in arrival order.
func (c *Conversation) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len reports the number of entries, deleted ones included.
func (c *Conversation) Len() int { return len(c.msgs) }
