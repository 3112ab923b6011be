package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aniladanir/retry"
)

var ErrSendFailed = errors.New("whatsapp: send failed")

// Client talks to the WhatsApp Business API. Transient server errors
// are retried; client errors terminate immediately.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retrier *retry.Retrier
	log     *slog.Logger
}

func NewClient(baseURL, token string, log *slog.Logger) (*Client, error) {
	retrier, err := retry.New(retry.WithMaxAttemps(3))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: init retrier: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		retrier: retrier,
		log:     log,
	}, nil
}

func (c *Client) SendText(ctx context.Context, toPhone, body string) error {
	return c.send(ctx, map[string]any{
		"to":   toPhone,
		"type": "text",
		"text": map[string]string{"body": body},
	})
}

func (c *Client) SendMedia(ctx context.Context, toPhone, mediaURL, caption string) error {
	return c.send(ctx, map[string]any{
		"to":   toPhone,
		"type": "media",
		"media": map[string]string{
			"link":    mediaURL,
			"caption": caption,
		},
	})
}

func (c *Client) send(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var sent bool
	retryFunc := func(attempt int) (terminate bool) {
		resp, err := c.doRequest(ctx, body)
		if err != nil {
			c.log.Error("whatsapp request failed", "attempt", attempt, "error", err.Error())
			return false
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode < http.StatusMultipleChoices:
			sent = true
			return true
		case resp.StatusCode >= http.StatusInternalServerError:
			// 5xx may be transient, keep retrying
			c.log.Error("whatsapp server error", "attempt", attempt, "status", resp.StatusCode)
			return false
		default:
			// 4xx is ours to fix, retrying will not help
			c.log.Error("whatsapp request rejected", "status", resp.StatusCode)
			return true
		}
	}

	if ok := <-c.retrier.Retry(ctx, retryFunc, true); !ok || !sent {
		return ErrSendFailed
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.http.Do(req)
}
