package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"teamchat-service/internal/chat"
	"teamchat-service/internal/middleware"
	"teamchat-service/internal/models"
	"teamchat-service/internal/repositories"
	"teamchat-service/internal/ws"
)

// MessageHandler serves the message log and the edit/delete/read actions.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	hub         *ws.Hub
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo, hub: hub}
}

// ListAllMessages returns the flat historical log. Clients filter it by
// computed pair id; that contract is preserved here.
func (h *MessageHandler) ListAllMessages(c *gin.Context) {
	msgs, err := h.messageRepo.ListAllMessages(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ListChatMessages returns one chat's messages, participants only.
func (h *MessageHandler) ListChatMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString(middleware.UserIDKey)
	if _, ok := chat.PairPeer(chatID, userID); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	msgs, err := h.messageRepo.ListChatMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// EditMessage replaces a message's content (sender only) and notifies the
// room.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, ok := h.ownMessage(c)
	if !ok {
		return
	}

	userID := c.GetString(middleware.UserIDKey)
	if err := h.messageRepo.EditMessage(c.Request.Context(), msg.ID, userID, req.Content); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not edit message"})
		return
	}

	h.broadcastRef(models.EventMessageEdited, models.MessageRefPayload{
		MessageID: msg.ID, ChatID: msg.ChatID, Content: req.Content,
	})
	c.Status(http.StatusNoContent)
}

// DeleteMessage flags a message deleted (sender only). The record is
// retained so conversation ordering survives; only content display stops.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	msg, ok := h.ownMessage(c)
	if !ok {
		return
	}

	userID := c.GetString(middleware.UserIDKey)
	if err := h.messageRepo.MarkMessageDeleted(c.Request.Context(), msg.ID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete message"})
		return
	}

	h.broadcastRef(models.EventMessageDeleted, models.MessageRefPayload{
		MessageID: msg.ID, ChatID: msg.ChatID,
	})
	c.Status(http.StatusNoContent)
}

// MarkMessageRead adds the caller to a message's read set.
func (h *MessageHandler) MarkMessageRead(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := c.GetString(middleware.UserIDKey)

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if _, ok := chat.PairPeer(msg.ChatID, userID); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	if err := h.messageRepo.MarkMessageRead(c.Request.Context(), messageID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark read"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) ownMessage(c *gin.Context) (models.ChatMessage, bool) {
	messageID := c.Param("message_id")
	userID := c.GetString(middleware.UserIDKey)

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return models.ChatMessage{}, false
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can modify a message"})
		return models.ChatMessage{}, false
	}
	return msg, true
}

func (h *MessageHandler) broadcastRef(event string, ref models.MessageRefPayload) {
	if h.hub == nil {
		return
	}
	if frame, err := models.NewSocketEvent(event, ref); err == nil {
		h.hub.BroadcastToRoom(ref.ChatID, frame)
	}
}
