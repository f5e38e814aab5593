package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"teamchat-service/internal/models"
	"teamchat-service/internal/presence"
	"teamchat-service/internal/repositories"
)

// DirectoryHandler serves the user directory with presence and
// last-message summaries merged in.
type DirectoryHandler struct {
	userRepo repositories.UserRepository
	presence presence.Store
}

// NewDirectoryHandler builds a DirectoryHandler.
func NewDirectoryHandler(userRepo repositories.UserRepository, store presence.Store) *DirectoryHandler {
	return &DirectoryHandler{userRepo: userRepo, presence: store}
}

// ListUsers returns the directory, optionally scoped via ?org=.
func (h *DirectoryHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.ListUsers(c.Request.Context(), c.Query("org"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	online, err := h.presence.OnlineSet(c.Request.Context(), ids)
	if err != nil {
		// Presence is best-effort; the directory still renders.
		log.Printf("presence lookup: %v", err)
		online = map[string]bool{}
	}

	contacts := make([]models.Contact, 0, len(users))
	for _, u := range users {
		contact := models.ContactFromUser(u)
		contact.IsOnline = online[u.ID]
		if last, ok, err := h.presence.GetLastMessage(c.Request.Context(), u.ID); err == nil && ok {
			contact.LastMessage = last.Content
			at := last.At
			contact.LastMessageTime = &at
		}
		contacts = append(contacts, contact)
	}

	c.JSON(http.StatusOK, gin.H{"users": contacts})
}
