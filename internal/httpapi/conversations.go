package httpapi

import (
	"net/http"
	"strconv"

	"whatsapp-console/internal/auth"
	"whatsapp-console/internal/message"

	"github.com/gin-gonic/gin"
)

// --- Conversations ---

func (h Handlers) ListConversations(c *gin.Context) {
	archived := c.Query("archived") == "true"
	convs, err := h.Conversations.List(c.Request.Context(), archived, c.Query("q"))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (h Handlers) GetConversation(c *gin.Context) {
	conv, err := h.Conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

type createConversationRequest struct {
	Phone       string `json:"phone"`
	DisplayName string `json:"display_name"`
}

func (h Handlers) CreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	conv, err := h.Conversations.Create(c.Request.Context(), req.Phone, req.DisplayName)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

type renameConversationRequest struct {
	DisplayName string `json:"display_name"`
}

func (h Handlers) RenameConversation(c *gin.Context) {
	var req renameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	conv, err := h.Conversations.Rename(c.Request.Context(), c.Param("id"), req.DisplayName)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

func (h Handlers) ArchiveConversation(c *gin.Context) {
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	conv, err := h.Conversations.SetArchived(c.Request.Context(), c.Param("id"), req.Archived)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

func (h Handlers) MuteConversation(c *gin.Context) {
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	conv, err := h.Conversations.SetMuted(c.Request.Context(), c.Param("id"), req.Muted)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// --- Messages ---

func (h Handlers) ListMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	msgs, err := h.Messages.ListByConversation(c.Request.Context(), c.Param("id"), limit, c.Query("before"))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h Handlers) SendMessage(c *gin.Context) {
	var req message.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	senderID, _ := auth.UserID(c.Request.Context())

	msg, err := h.Messages.Send(c.Request.Context(), c.Param("id"), senderID, req)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h Handlers) DeleteMessage(c *gin.Context) {
	if err := h.Messages.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updateMediaRequest struct {
	Media message.Media `json:"media"`
}

func (h Handlers) UpdateMessageMedia(c *gin.Context) {
	var req updateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	msg, err := h.Messages.UpdateMedia(c.Request.Context(), c.Param("id"), req.Media)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h Handlers) UpdateMessageStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Messages.UpdateStatus(c.Request.Context(), c.Param("id"), message.Status(req.Status)); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Pins ---

func (h Handlers) ListPins(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	pins, err := h.Pins.List(c.Request.Context(), uid)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pins": pins})
}

func (h Handlers) PinConversation(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	p, err := h.Pins.Pin(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) UnpinConversation(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	if err := h.Pins.Unpin(c.Request.Context(), uid, c.Param("id")); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Templates ---

func (h Handlers) ListTemplates(c *gin.Context) {
	ts, err := h.Templates.List(c.Request.Context())
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": ts})
}

type templateRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h Handlers) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	uid, _ := auth.UserID(c.Request.Context())

	t, err := h.Templates.Create(c.Request.Context(), req.Title, req.Body, uid)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h Handlers) UpdateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	t, err := h.Templates.Update(c.Request.Context(), c.Param("id"), req.Title, req.Body)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h Handlers) DeleteTemplate(c *gin.Context) {
	if err := h.Templates.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
