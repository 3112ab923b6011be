package whatsapp

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseWebhook_ExtractsMessagesAndStatuses(t *testing.T) {
	body := `{
	  "entry": [{
	    "changes": [{
	      "value": {
	        "messages": [{
	          "id": "wamid.1",
	          "from": "+9641234567",
	          "type": "text",
	          "timestamp": "1700000000",
	          "text": {"body": "hello"},
	          "context": {"id": "wamid.0"}
	        }],
	        "statuses": [{
	          "id": "wamid.2",
	          "status": "delivered",
	          "recipient_id": "9647654321"
	        }]
	      }
	    }]
	  }]
	}`
	r := httptest.NewRequest("POST", "/webhooks/whatsapp", strings.NewReader(body))

	wh, err := ParseWebhook(r)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(wh.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(wh.Messages))
	}
	m := wh.Messages[0]
	if m.From != "9641234567" {
		t.Fatalf("expected normalized phone, got %q", m.From)
	}
	if m.Body != "hello" || m.ReplyToID != "wamid.0" {
		t.Fatalf("message mismatch: %+v", m)
	}
	if len(wh.Statuses) != 1 || wh.Statuses[0].Status != "delivered" {
		t.Fatalf("statuses mismatch: %+v", wh.Statuses)
	}
	if len(wh.Raw) == 0 {
		t.Fatalf("raw payload not kept")
	}
}

func TestParseWebhook_EmptyBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/webhooks/whatsapp", strings.NewReader(""))
	if _, err := ParseWebhook(r); err != ErrEmptyWebhook {
		t.Fatalf("expected ErrEmptyWebhook, got %v", err)
	}
}

func TestParseWebhook_MalformedKeepsRaw(t *testing.T) {
	r := httptest.NewRequest("POST", "/webhooks/whatsapp", strings.NewReader("not json"))
	wh, err := ParseWebhook(r)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if string(wh.Raw) != "not json" {
		t.Fatalf("raw not kept: %q", wh.Raw)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"entry":[]}`)
	// hmac-sha256 of body with key "secret"
	const header = "sha256=97f0eaf4fb539301c758929abea22432a8fed44f5ce20d65c6af41ff15dfb115"

	if !VerifySignature(body, header, "secret") {
		t.Fatalf("expected valid signature")
	}
	if VerifySignature(body, header, "wrong") {
		t.Fatalf("expected mismatch with wrong secret")
	}
	if VerifySignature(body, "", "secret") {
		t.Fatalf("expected empty header to fail")
	}
	if VerifySignature(body, header, "") {
		t.Fatalf("expected empty secret to fail")
	}
}
