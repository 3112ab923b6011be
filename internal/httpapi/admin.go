package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Admin-gated endpoints: user management, webhook diagnostics, stats.

func (h Handlers) ListUsers(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type createUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Password    string `json:"password"`
}

func (h Handlers) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := h.Users.Create(c.Request.Context(), req.Username, req.DisplayName, req.Role, req.Password)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type disableUserRequest struct {
	Disabled bool `json:"disabled"`
}

func (h Handlers) SetUserDisabled(c *gin.Context) {
	var req disableUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := h.Users.SetDisabled(c.Request.Context(), c.Param("id"), req.Disabled)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

func (h Handlers) SetUserPassword(c *gin.Context) {
	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Users.SetPassword(c.Request.Context(), c.Param("id"), req.Password); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) DeleteUser(c *gin.Context) {
	if err := h.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Webhook diagnostics ---

func (h Handlers) ListWebhookEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	events, err := h.WebhookEvents.List(c.Request.Context(), limit, offset)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// --- Stats ---

func (h Handlers) ActivityStats(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
		return
	}

	out, err := h.Stats.ActivitySummary(c.Request.Context(), from, to)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
