package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"whatsapp-console/internal/message"
	"whatsapp-console/internal/push"
	"whatsapp-console/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

// IngestWebhook is the public Business API callback. The signature is
// checked before anything touches the store; after that the payload is
// always appended to the diagnostics log, processing outcome included,
// and the provider gets a 200 so it stops retrying.
func (h Handlers) IngestWebhook(c *gin.Context) {
	wh, parseErr := whatsapp.ParseWebhook(c.Request)

	if !whatsapp.VerifySignature(wh.Raw, c.GetHeader(whatsapp.SignatureHeader), h.WebhookSecret) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad signature"})
		return
	}

	ev, err := h.WebhookEvents.Append(c.Request.Context(), "whatsapp", wh.Raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var procErrs []string
	if parseErr != nil {
		procErrs = append(procErrs, parseErr.Error())
	} else {
		procErrs = h.processWebhook(c.Request.Context(), wh)
	}

	_ = h.WebhookEvents.MarkProcessed(c.Request.Context(), ev.ID, strings.Join(procErrs, "; "))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h Handlers) processWebhook(ctx context.Context, wh whatsapp.Webhook) []string {
	var errs []string

	for _, m := range wh.Messages {
		in := message.InboundMessage{
			Phone:      m.From,
			Body:       m.Body,
			ReplyToID:  m.ReplyToID,
			ReceivedAt: h.clock(),
		}
		if m.Type != "" && m.Type != "text" {
			media := message.Media{Type: m.Type, Status: message.MediaStatusPending}
			if m.MediaURL != "" {
				media.Status = message.MediaStatusReady
				media.URL = m.MediaURL
			}
			in.Media = &media
		}
		if ts := parseEpoch(m.Timestamp); !ts.IsZero() {
			in.ReceivedAt = ts
		}
		if _, err := h.Messages.RecordInbound(ctx, in); err != nil {
			errs = append(errs, "message "+m.ProviderID+": "+err.Error())
		}
	}

	for _, st := range wh.Statuses {
		// Outbound sends carry our message id as the provider reference,
		// so the status key maps straight back. Unknown ids are stale
		// deliveries for rows already deleted; not worth logging.
		err := h.Messages.UpdateStatus(ctx, st.ProviderID, message.Status(st.Status))
		if err != nil && !errors.Is(err, message.ErrNotFound) {
			errs = append(errs, "status "+st.ProviderID+": "+err.Error())
		}
	}

	for _, call := range wh.Calls {
		if err := h.publishCall(ctx, call); err != nil {
			errs = append(errs, "call "+call.ProviderID+": "+err.Error())
		}
	}
	return errs
}

func (h Handlers) publishCall(ctx context.Context, call whatsapp.CallEvent) error {
	conv, err := h.Conversations.EnsureByPhone(ctx, call.From, "")
	if err != nil {
		return err
	}

	var name string
	switch call.Event {
	case "ringing", "incoming":
		name = push.EventCallIncoming
	default:
		name = push.EventCallEnded
	}
	return h.Push.Publish(ctx, push.Event{
		Event: name,
		Data:  push.CallData(call.ProviderID, conv.ID, conv.Phone, conv.DisplayName),
	})
}

func parseEpoch(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	var sec int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return time.Time{}
		}
		sec = sec*10 + int64(r-'0')
	}
	return time.Unix(sec, 0).UTC()
}
