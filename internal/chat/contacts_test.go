package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat-service/internal/models"
)

func contact(id, name string) models.Contact {
	return models.Contact{ID: id, Name: name}
}

func historyMsg(chatID, senderID, content string, at time.Time) models.ChatMessage {
	return models.ChatMessage{
		ID:        chatID + "/" + content,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: at,
	}
}

func ids(entries []models.Contact) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestHydrateOrdersByRecency(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := NewContactList("alice")

	users := []models.Contact{
		contact("alice", "Alice"),
		contact("carol", "Carol"),
		contact("dave", "Dave"),
		contact("eve", "Eve"),
	}
	history := []models.ChatMessage{
		historyMsg(PairID("alice", "carol"), "carol", "old", base),
		historyMsg(PairID("alice", "dave"), "alice", "newer", base.Add(time.Hour)),
	}

	list.Hydrate(users, history)

	// Owner pinned first, then recency descending, no-history contacts last.
	assert.Equal(t, []string{"alice", "dave", "carol", "eve"}, ids(list.Entries()))
}

func TestHydrateOwnerIsOnline(t *testing.T) {
	list := NewContactList("alice")
	list.Hydrate([]models.Contact{contact("alice", "Alice"), contact("bob", "Bob")}, nil)

	entries := list.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsOnline)
	assert.False(t, entries[1].IsOnline)
}

func TestHydrateJoinsLastMessage(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := NewContactList("alice")

	history := []models.ChatMessage{
		historyMsg(PairID("alice", "bob"), "bob", "first", base),
		historyMsg(PairID("alice", "bob"), "alice", "latest", base.Add(time.Minute)),
	}
	list.Hydrate([]models.Contact{contact("alice", "Alice"), contact("bob", "Bob")}, history)

	entries := list.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "latest", entries[1].LastMessage)
	require.NotNil(t, entries[1].LastMessageTime)
	assert.True(t, entries[1].LastMessageTime.Equal(base.Add(time.Minute)))
}

func TestHydrateDeduplicates(t *testing.T) {
	list := NewContactList("alice")
	list.Hydrate([]models.Contact{
		contact("bob", "Bob"),
		contact("bob", "Bob"),
	}, nil)

	assert.Len(t, list.Entries(), 1)
}

func TestTouchMovesToHead(t *testing.T) {
	list := NewContactList("alice")
	list.Hydrate([]models.Contact{
		contact("alice", "Alice"),
		contact("bob", "Bob"),
		contact("carol", "Carol"),
	}, nil)

	assert.True(t, list.Touch("carol", "pinged you"))

	entries := list.Entries()
	// Last touched wins, above the pinned owner too.
	assert.Equal(t, []string{"carol", "alice", "bob"}, ids(entries))
	assert.Equal(t, "pinged you", entries[0].LastMessage)
	assert.NotNil(t, entries[0].LastMessageTime)
}

func TestTouchAlreadyAtHead(t *testing.T) {
	list := NewContactList("alice")
	list.Hydrate([]models.Contact{contact("bob", "Bob"), contact("carol", "Carol")}, nil)

	require.True(t, list.Touch("bob", "one"))
	require.True(t, list.Touch("bob", "two"))

	entries := list.Entries()
	assert.Equal(t, []string{"bob", "carol"}, ids(entries))
	assert.Equal(t, "two", entries[0].LastMessage)
}

func TestTouchUnknownPeerIgnored(t *testing.T) {
	list := NewContactList("alice")
	list.Hydrate([]models.Contact{contact("bob", "Bob")}, nil)

	assert.False(t, list.Touch("mallory", "hello"))
	assert.Equal(t, []string{"bob"}, ids(list.Entries()))
}

func TestTouchSelfIgnored(t *testing.T) {
	list := NewContactList("alice")
	list.Hydrate([]models.Contact{contact("alice", "Alice"), contact("bob", "Bob")}, nil)

	assert.False(t, list.Touch("alice", "note to self"))
	assert.Equal(t, []string{"alice", "bob"}, ids(list.Entries()))
}

func TestTouchUsesClock(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	list := NewContactList("alice")
	list.now = func() time.Time { return at }
	list.Hydrate([]models.Contact{contact("bob", "Bob")}, nil)

	require.True(t, list.Touch("bob", "hi"))
	entry := list.Entries()[0]
	require.NotNil(t, entry.LastMessageTime)
	assert.True(t, entry.LastMessageTime.Equal(at))
}

func TestSetOnline(t *testing.T) {
	list := NewContactList("alice")
	list.Hydrate([]models.Contact{contact("alice", "Alice"), contact("bob", "Bob")}, nil)

	list.SetOnline("bob", true)
	assert.True(t, list.Entries()[1].IsOnline)

	list.SetOnline("bob", false)
	assert.False(t, list.Entries()[1].IsOnline)

	// The owner's own presence flag never drops.
	list.SetOnline("alice", false)
	assert.True(t, list.Entries()[0].IsOnline)
}

func TestAddNewContact(t *testing.T) {
	list := NewContactList("alice")
	list.Hydrate([]models.Contact{contact("bob", "Bob")}, nil)

	list.Add(contact("carol", "Carol"))
	list.Add(contact("carol", "Carol"))

	assert.Equal(t, []string{"bob", "carol"}, ids(list.Entries()))
}

func TestSelectable(t *testing.T) {
	list := NewContactList("alice")
	list.Hydrate([]models.Contact{contact("alice", "Alice"), contact("bob", "Bob")}, nil)

	assert.True(t, list.Selectable("bob"))
	assert.False(t, list.Selectable("alice"))
	assert.False(t, list.Selectable("mallory"))
}
