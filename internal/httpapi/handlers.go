package httpapi

import (
	"errors"
	"net/http"
	"time"

	"whatsapp-console/internal/auth"
	"whatsapp-console/internal/conversation"
	"whatsapp-console/internal/message"
	"whatsapp-console/internal/pin"
	"whatsapp-console/internal/push"
	"whatsapp-console/internal/stats"
	"whatsapp-console/internal/template"
	"whatsapp-console/internal/user"
	"whatsapp-console/internal/webhookevent"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth          *auth.Manager
	Users         *user.Service
	Conversations *conversation.Service
	Messages      *message.Service
	Pins          *pin.Service
	Templates     *template.Service
	WebhookEvents *webhookevent.Service
	Stats         *stats.Service
	Push          push.Publisher

	WebhookSecret string

	clock func() time.Time
}

func New(deps Handlers) Handlers {
	deps.clock = time.Now
	return deps
}

// abortError maps service sentinel errors onto HTTP statuses. Unknown
// errors stay opaque to the client.
func abortError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, conversation.ErrNotFound),
		errors.Is(err, message.ErrNotFound),
		errors.Is(err, template.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, conversation.ErrPhoneExists),
		errors.Is(err, user.ErrUsernameExists):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pin.ErrPinLimit):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, conversation.ErrInvalidArgument),
		errors.Is(err, message.ErrInvalidArgument),
		errors.Is(err, message.ErrEmptyMessage),
		errors.Is(err, pin.ErrInvalidArgument),
		errors.Is(err, template.ErrInvalidArgument),
		errors.Is(err, user.ErrInvalidArgument),
		errors.Is(err, stats.ErrInvalidRange):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, user.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	u, err := h.Users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortError(c, err)
		return
	}

	pair, err := h.Auth.IssuePair(h.clock(), u.ID, u.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          u,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}

	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, h.clock())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	// Re-read the user so a disable since issuance cuts the session.
	u, err := h.Users.Get(c.Request.Context(), claims.UserID)
	if err != nil || u.Disabled {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account unavailable"})
		return
	}

	pair, err := h.Auth.IssuePair(h.clock(), u.ID, u.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

func (h Handlers) Me(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	u, err := h.Users.Get(c.Request.Context(), uid)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
