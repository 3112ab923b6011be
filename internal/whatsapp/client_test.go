package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_SendText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("unexpected auth header %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "tok", testLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.SendText(context.Background(), "9641234567", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["to"] != "9641234567" || got["type"] != "text" {
		t.Fatalf("payload mismatch: %+v", got)
	}
}

func TestClient_SendRejectedIsTerminal(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "tok", testLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.SendText(context.Background(), "9641234567", "hello"); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("client error should not be retried, got %d attempts", attempts)
	}
}
