package chat

import (
	"sort"
	"time"

	"teamchat-service/internal/models"
)

// ContactList keeps the visible directory for one user: exactly one entry
// per known user, the owner pinned on top initially, and the most recently
// active conversation floated to the head on every touch.
type ContactList struct {
	selfID  string
	entries []models.Contact

	now func() time.Time
}

// NewContactList creates an empty list owned by selfID.
func NewContactList(selfID string) *ContactList {
	return &ContactList{selfID: selfID, now: time.Now}
}

// Hydrate loads the directory and joins the last message per peer from the
// historical log. Ordering: the owner first, then contacts by last-message
// time descending, contacts with no history after all of those.
func (l *ContactList) Hydrate(users []models.Contact, history []models.ChatMessage) {
	l.entries = l.entries[:0]
	seen := map[string]bool{}

	var self models.Contact
	hasSelf := false
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		if u.ID == l.selfID {
			self = u
			hasSelf = true
			continue
		}
		if last, at, ok := lastMessageWith(history, l.selfID, u.ID); ok {
			u.LastMessage = last
			t := at
			u.LastMessageTime = &t
		}
		l.entries = append(l.entries, u)
	}

	sort.SliceStable(l.entries, func(i, j int) bool {
		a, b := l.entries[i].LastMessageTime, l.entries[j].LastMessageTime
		switch {
		case a != nil && b != nil:
			return a.After(*b)
		case a != nil:
			return true
		default:
			return false
		}
	})

	if hasSelf {
		self.IsOnline = true
		l.entries = append([]models.Contact{self}, l.entries...)
	}
}

func lastMessageWith(history []models.ChatMessage, selfID, peerID string) (string, time.Time, bool) {
	chatID := PairID(selfID, peerID)
	var (
		content string
		at      time.Time
		found   bool
	)
	for _, m := range history {
		if m.ChatID != chatID {
			continue
		}
		if !found || m.Timestamp.After(at) {
			content, at, found = m.Content, m.Timestamp, true
		}
	}
	return content, at, found
}

// Touch moves peerID to the head of the list and updates its last-message
// summary. Unknown peers are ignored; the directory fetch is the only way
// a contact becomes known. Touching any non-self contact places it above
// everything, the pinned owner included: last touched wins.
func (l *ContactList) Touch(peerID, content string) bool {
	if peerID == l.selfID {
		return false
	}
	for i := range l.entries {
		if l.entries[i].ID != peerID {
			continue
		}
		entry := l.entries[i]
		entry.LastMessage = content
		at := l.now()
		entry.LastMessageTime = &at
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		l.entries = append([]models.Contact{entry}, l.entries...)
		return true
	}
	return false
}

// SetOnline updates a contact's presence flag. The owner stays online.
func (l *ContactList) SetOnline(id string, online bool) {
	for i := range l.entries {
		if l.entries[i].ID == id {
			if id == l.selfID {
				online = true
			}
			l.entries[i].IsOnline = online
			return
		}
	}
}

// Add appends a newly registered user. Duplicates are ignored.
func (l *ContactList) Add(c models.Contact) {
	for i := range l.entries {
		if l.entries[i].ID == c.ID {
			return
		}
	}
	l.entries = append(l.entries, c)
}

// Selectable reports whether id is a valid chat target: a known contact
// other than the owner. Self-chat is disallowed.
func (l *ContactList) Selectable(id string) bool {
	if id == l.selfID {
		return false
	}
	for i := range l.entries {
		if l.entries[i].ID == id {
			return true
		}
	}
	return false
}

// Entries returns the list in display order.
func (l *ContactList) Entries() []models.Contact {
	out := make([]models.Contact, len(l.entries))
	copy(out, l.entries)
	return out
}
