// Package api is the console's REST client for the server. The cache
// layer fetches through it; mutations invalidate and refetch.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"whatsapp-console/internal/conversation"
	"whatsapp-console/internal/message"
	"whatsapp-console/internal/pin"
	"whatsapp-console/internal/template"
)

var ErrUnauthenticated = errors.New("api: unauthenticated")

type Client struct {
	baseURL string
	http    *http.Client

	accessToken  string
	refreshToken string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// AccessToken exposes the current token for the push channel dialer.
func (c *Client) AccessToken() string { return c.accessToken }

func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login",
		map[string]string{"username": username, "password": password}, &resp)
	if err != nil {
		return err
	}
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	return nil
}

func (c *Client) ListConversations(ctx context.Context, archived bool, query string) ([]conversation.Conversation, error) {
	q := url.Values{}
	if archived {
		q.Set("archived", "true")
	}
	if query != "" {
		q.Set("q", query)
	}
	var resp struct {
		Conversations []conversation.Conversation `json:"conversations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/conversations?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (conversation.Conversation, error) {
	var conv conversation.Conversation
	err := c.doJSON(ctx, http.MethodGet, "/v1/conversations/"+url.PathEscape(id), nil, &conv)
	return conv, err
}

func (c *Client) CreateConversation(ctx context.Context, phone, displayName string) (conversation.Conversation, error) {
	var conv conversation.Conversation
	err := c.doJSON(ctx, http.MethodPost, "/v1/conversations",
		map[string]string{"phone": phone, "display_name": displayName}, &conv)
	return conv, err
}

func (c *Client) SetArchived(ctx context.Context, id string, archived bool) error {
	return c.doJSON(ctx, http.MethodPatch, "/v1/conversations/"+url.PathEscape(id)+"/archive",
		map[string]bool{"archived": archived}, nil)
}

func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int, beforeID string) ([]message.Message, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if beforeID != "" {
		q.Set("before", beforeID)
	}
	var resp struct {
		Messages []message.Message `json:"messages"`
	}
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages?" + q.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID string, req message.SendRequest) (message.Message, error) {
	var msg message.Message
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	err := c.doJSON(ctx, http.MethodPost, path, req, &msg)
	return msg, err
}

func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/messages/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListPins(ctx context.Context) ([]pin.Pin, error) {
	var resp struct {
		Pins []pin.Pin `json:"pins"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/pins", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Pins, nil
}

func (c *Client) Pin(ctx context.Context, conversationID string) error {
	return c.doJSON(ctx, http.MethodPut, "/v1/pins/"+url.PathEscape(conversationID), nil, nil)
}

func (c *Client) Unpin(ctx context.Context, conversationID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/pins/"+url.PathEscape(conversationID), nil, nil)
}

func (c *Client) ListTemplates(ctx context.Context) ([]template.Template, error) {
	var resp struct {
		Templates []template.Template `json:"templates"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/templates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return ErrUnauthenticated
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return readError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// readError pulls the server's message out of a JSON {"error": ...}
// body, falling back to raw text.
func readError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("api: %s", payload.Error)
	}
	if len(body) > 0 {
		return fmt.Errorf("api: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return fmt.Errorf("api: status %d", resp.StatusCode)
}
