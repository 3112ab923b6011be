package push

import "testing"

func TestParseEvent_RoundTrip(t *testing.T) {
	ev := Event{Event: EventMessageIncoming, Data: MessageData("c1", "m1")}
	raw, err := ev.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Event != EventMessageIncoming {
		t.Fatalf("unexpected event: %q", got.Event)
	}
	if got.Data["conversation_id"] != "c1" || got.Data["message_id"] != "m1" {
		t.Fatalf("unexpected data: %+v", got.Data)
	}
}

func TestParseEvent_RejectsMalformed(t *testing.T) {
	if _, err := ParseEvent([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
	if _, err := ParseEvent([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected error for missing event name")
	}
}

func TestMessageData_OmitsEmptyIDs(t *testing.T) {
	d := MessageData("", "m1")
	if _, ok := d["conversation_id"]; ok {
		t.Fatalf("expected conversation_id omitted")
	}
}

func TestCallData(t *testing.T) {
	d := CallData("c1", "", "9641234567", "")
	if d["call_id"] != "c1" || d["phone"] != "9641234567" {
		t.Fatalf("unexpected data: %+v", d)
	}
	if _, ok := d["display_name"]; ok {
		t.Fatalf("expected display_name omitted")
	}
}
