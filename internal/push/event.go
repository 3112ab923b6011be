package push

import "encoding/json"

// Event names carried on the notification channel. Keep these stable;
// they are part of the client contract.
const (
	EventMessageIncoming     = "message_incoming"
	EventMessageOutgoing     = "message_outgoing"
	EventMessageDeleted      = "message_deleted"
	EventMessageMediaUpdated = "message_media_updated"
	EventCallIncoming        = "call_incoming"
	EventCallEnded           = "call_ended"
)

// Event is a single push frame: {"event": ..., "data": ...}.
// Data is schema-flexible on purpose; clients validate at every read site.
type Event struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEvent decodes a push frame. A frame with an empty event name is
// rejected; malformed frames are the caller's cue to drop and move on.
func ParseEvent(raw []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, err
	}
	if e.Event == "" {
		return Event{}, ErrEmptyEvent
	}
	return e, nil
}

// MessageData builds the data payload for message events. A zero
// conversation id is omitted so clients fall back to a full refetch.
func MessageData(conversationID, messageID string) map[string]any {
	d := map[string]any{}
	if conversationID != "" {
		d["conversation_id"] = conversationID
	}
	if messageID != "" {
		d["message_id"] = messageID
	}
	return d
}

// CallData builds the data payload for call events.
func CallData(callID, conversationID, phone, displayName string) map[string]any {
	d := map[string]any{}
	if callID != "" {
		d["call_id"] = callID
	}
	if conversationID != "" {
		d["conversation_id"] = conversationID
	}
	if phone != "" {
		d["phone"] = phone
	}
	if displayName != "" {
		d["display_name"] = displayName
	}
	return d
}
