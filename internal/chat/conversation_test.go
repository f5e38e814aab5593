package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat-service/internal/models"
)

func serverMsg(id, chatID, senderID, content, nonce string) models.ChatMessage {
	return models.ChatMessage{
		ID:        id,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Nonce:     nonce,
		Timestamp: time.Now(),
	}
}

func TestLoadFiltersByChatID(t *testing.T) {
	conv := NewConversation("1-2")
	conv.Load([]models.ChatMessage{
		serverMsg("a", "1-2", "1", "hi", ""),
		serverMsg("b", "1-3", "1", "other chat", ""),
		serverMsg("c", "1-2", "2", "hello", ""),
	})

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "c", msgs[1].ID)
}

func TestAppendLocalIsOptimistic(t *testing.T) {
	conv := NewConversation("1-2")
	msg := conv.AppendLocal("1", "hey", "n1")

	assert.True(t, strings.HasPrefix(msg.ID, TempIDPrefix))
	assert.Equal(t, models.StatusSent, msg.Status)
	assert.Equal(t, "1-2", msg.ChatID)
	assert.Equal(t, "n1", msg.Nonce)
	assert.Equal(t, 1, conv.Len())
}

func TestReconcileReplacesByNonce(t *testing.T) {
	conv := NewConversation("1-2")
	conv.Load([]models.ChatMessage{serverMsg("a", "1-2", "2", "earlier", "")})
	local := conv.AppendLocal("1", "hey", "n1")

	outcome := conv.Reconcile(serverMsg("srv-1", "1-2", "1", "hey", "n1"))
	assert.Equal(t, Replaced, outcome)

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	// The replacement keeps the optimistic entry's position.
	assert.Equal(t, "srv-1", msgs[1].ID)
	assert.Equal(t, models.StatusSent, msgs[1].Status)
	assert.NotEqual(t, local.ID, msgs[1].ID)
}

func TestReconcileReplacesByContentAndSender(t *testing.T) {
	conv := NewConversation("1-2")
	conv.AppendLocal("1", "hey", "n1")

	// No nonce echoed: fall back to content+sender correlation.
	outcome := conv.Reconcile(serverMsg("srv-1", "1-2", "1", "hey", ""))
	assert.Equal(t, Replaced, outcome)

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-1", msgs[0].ID)
}

func TestReconcileIdenticalContentMatchesFirst(t *testing.T) {
	conv := NewConversation("1-2")
	first := conv.AppendLocal("1", "ok", "n1")
	conv.AppendLocal("1", "ok", "n2")

	outcome := conv.Reconcile(serverMsg("srv-1", "1-2", "1", "ok", ""))
	assert.Equal(t, Replaced, outcome)

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	// Without a nonce the first optimistic twin wins, ambiguity and all.
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.NotEqual(t, first.ID, msgs[0].ID)
	assert.True(t, strings.HasPrefix(msgs[1].ID, TempIDPrefix))
}

func TestReconcileIdenticalContentNonceDisambiguates(t *testing.T) {
	conv := NewConversation("1-2")
	conv.AppendLocal("1", "ok", "n1")
	conv.AppendLocal("1", "ok", "n2")

	outcome := conv.Reconcile(serverMsg("srv-2", "1-2", "1", "ok", "n2"))
	assert.Equal(t, Replaced, outcome)

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0].ID, TempIDPrefix))
	assert.Equal(t, "srv-2", msgs[1].ID)
}

func TestReconcileAppendsPeerMessage(t *testing.T) {
	conv := NewConversation("1-2")
	conv.AppendLocal("1", "hey", "n1")

	outcome := conv.Reconcile(serverMsg("srv-9", "1-2", "2", "hello back", ""))
	assert.Equal(t, Appended, outcome)
	assert.Equal(t, 2, conv.Len())
}

func TestReconcileDiscardsDuplicateID(t *testing.T) {
	conv := NewConversation("1-2")
	msg := serverMsg("srv-1", "1-2", "2", "hi", "")

	assert.Equal(t, Appended, conv.Reconcile(msg))
	assert.Equal(t, Duplicate, conv.Reconcile(msg))
	assert.Equal(t, 1, conv.Len())
}

func TestReconcileRejectsOtherChat(t *testing.T) {
	conv := NewConversation("1-2")

	outcome := conv.Reconcile(serverMsg("srv-1", "1-3", "3", "wrong room", ""))
	assert.Equal(t, Rejected, outcome)
	assert.Equal(t, 0, conv.Len())
}

func TestPeerContentDoesNotMatchOptimistic(t *testing.T) {
	conv := NewConversation("1-2")
	conv.AppendLocal("1", "hey", "")

	// Same content, different sender: append, never replace.
	outcome := conv.Reconcile(serverMsg("srv-1", "1-2", "2", "hey", ""))
	assert.Equal(t, Appended, outcome)
	assert.Equal(t, 2, conv.Len())
}

func TestMarkDeletedRetainsEntry(t *testing.T) {
	conv := NewConversation("1-2")
	conv.Load([]models.ChatMessage{
		serverMsg("a", "1-2", "1", "one", ""),
		serverMsg("b", "1-2", "2", "two", ""),
	})

	assert.True(t, conv.MarkDeleted("a"))
	assert.False(t, conv.MarkDeleted("missing"))

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Deleted)
	assert.Equal(t, "a", msgs[0].ID)
}

func TestApplyEdit(t *testing.T) {
	conv := NewConversation("1-2")
	conv.Load([]models.ChatMessage{serverMsg("a", "1-2", "1", "one", "")})

	assert.True(t, conv.ApplyEdit("a", "one, edited"))
	assert.False(t, conv.ApplyEdit("missing", "x"))

	msgs := conv.Messages()
	assert.Equal(t, "one, edited", msgs[0].Content)
	assert.True(t, msgs[0].Edited)
}

func TestMessagesReturnsCopy(t *testing.T) {
	conv := NewConversation("1-2")
	conv.Load([]models.ChatMessage{serverMsg("a", "1-2", "1", "one", "")})

	msgs := conv.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "one", conv.Messages()[0].Content)
}
