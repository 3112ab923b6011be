package whatsapp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// Webhook captures the subset of Business API webhook fields we care
// about. The full payload carries far more; everything else is kept
// verbatim in Raw for the diagnostics log.
//
// Business logic (conversation lookup, event fanout) is not made here.

type InboundMessage struct {
	ProviderID string `json:"id"`
	From       string `json:"from"`
	Type       string `json:"type"`
	Body       string `json:"body"`
	MediaURL   string `json:"media_url"`
	ReplyToID  string `json:"reply_to_id"`
	Timestamp  string `json:"timestamp"`
}

type StatusUpdate struct {
	ProviderID string `json:"id"`
	Status     string `json:"status"`
	Recipient  string `json:"recipient_id"`
}

type CallEvent struct {
	ProviderID string `json:"id"`
	From       string `json:"from"`
	Event      string `json:"event"`
}

type Webhook struct {
	Messages []InboundMessage
	Statuses []StatusUpdate
	Calls    []CallEvent
	Raw      []byte
}

var ErrEmptyWebhook = errors.New("whatsapp: empty webhook body")

const maxWebhookBytes = 1 << 20

// ParseWebhook reads and decodes a webhook request body. The caller
// verifies the signature first; Raw holds the exact bytes signed.
func ParseWebhook(r *http.Request) (Webhook, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		return Webhook{}, err
	}
	if len(body) == 0 {
		return Webhook{}, ErrEmptyWebhook
	}

	var payload struct {
		Entry []struct {
			Changes []struct {
				Value struct {
					Messages []struct {
						ID        string `json:"id"`
						From      string `json:"from"`
						Type      string `json:"type"`
						Timestamp string `json:"timestamp"`
						Text      struct {
							Body string `json:"body"`
						} `json:"text"`
						Media struct {
							Link string `json:"link"`
						} `json:"media"`
						Context struct {
							ID string `json:"id"`
						} `json:"context"`
					} `json:"messages"`
					Statuses []struct {
						ID          string `json:"id"`
						Status      string `json:"status"`
						RecipientID string `json:"recipient_id"`
					} `json:"statuses"`
					Calls []struct {
						ID    string `json:"id"`
						From  string `json:"from"`
						Event string `json:"event"`
					} `json:"calls"`
				} `json:"value"`
			} `json:"changes"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Webhook{Raw: body}, err
	}

	out := Webhook{Raw: body}
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			for _, m := range v.Messages {
				out.Messages = append(out.Messages, InboundMessage{
					ProviderID: m.ID,
					From:       normalizePhone(m.From),
					Type:       m.Type,
					Body:       m.Text.Body,
					MediaURL:   m.Media.Link,
					ReplyToID:  m.Context.ID,
					Timestamp:  m.Timestamp,
				})
			}
			for _, st := range v.Statuses {
				out.Statuses = append(out.Statuses, StatusUpdate{
					ProviderID: st.ID,
					Status:     st.Status,
					Recipient:  normalizePhone(st.RecipientID),
				})
			}
			for _, c := range v.Calls {
				out.Calls = append(out.Calls, CallEvent{
					ProviderID: c.ID,
					From:       normalizePhone(c.From),
					Event:      c.Event,
				})
			}
		}
	}
	return out, nil
}

func normalizePhone(s string) string {
	// The API sometimes prefixes "+"; the store keys bare digits.
	return strings.TrimPrefix(strings.TrimSpace(s), "+")
}
