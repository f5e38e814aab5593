package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamchat-service/internal/auth"
	"teamchat-service/internal/models"
	"teamchat-service/internal/repositories"
	"teamchat-service/internal/telemetry"
	"teamchat-service/internal/ws"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	IssueToken(userID string) (string, error)
}

// AuthHandler manages registration and login. The token it issues is the
// client's persisted session state, together with the returned user record.
type AuthHandler struct {
	userRepo repositories.UserRepository
	tokens   TokenIssuer
	hub      *ws.Hub
	audit    *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(userRepo repositories.UserRepository, tokens TokenIssuer, hub *ws.Hub, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, tokens: tokens, hub: hub, audit: audit}
}

// Register creates a directory record and announces it to connected
// clients as a newUser event.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role"`
		Org      string `json:"org"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process password"})
		return
	}

	role := req.Role
	if role == "" {
		role = "member"
	}
	user, err := h.userRepo.CreateUser(c.Request.Context(), models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Org:          req.Org,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	if h.hub != nil {
		if event, err := models.NewSocketEvent(models.EventNewUser, models.ContactFromUser(user)); err == nil {
			h.hub.BroadcastAll(event, user.ID)
		}
	}
	h.audit.Emit(c.Request.Context(), "INFO", "user registered", requestIDFromContext(c), &user.ID)

	token, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": models.ContactFromUser(user)})
}

// Login verifies credentials and issues a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		h.audit.Emit(c.Request.Context(), "WARN", "login failed", requestIDFromContext(c), &user.ID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	h.audit.Emit(c.Request.Context(), "INFO", "login succeeded", requestIDFromContext(c), &user.ID)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": models.ContactFromUser(user)})
}
