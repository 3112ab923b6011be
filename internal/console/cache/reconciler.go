package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"whatsapp-console/internal/push"
)

// UnreadCounter is the slice of the unread store the reconciler needs.
type UnreadCounter interface {
	Increment(conversationID string)
}

// IncomingCall carries the fields a call_incoming frame may supply.
type IncomingCall struct {
	CallID         string `json:"call_id"`
	ConversationID string `json:"conversation_id"`
	Phone          string `json:"phone"`
	DisplayName    string `json:"display_name"`
}

// CallSink is the slice of the call controller the reconciler needs.
type CallSink interface {
	HandleIncoming(in IncomingCall)
	HandleRemoteEnd(callID string)
}

// Reconciler translates push events into cache invalidations and state
// updates. The mapping is a fixed table so it can be tested without
// any transport underneath.
type Reconciler struct {
	Cache  *Cache
	Unread UnreadCounter
	Calls  CallSink
	Log    *slog.Logger
}

type messagePayload struct {
	ConversationID string `json:"conversation_id"`
}

type callEndPayload struct {
	CallID string `json:"call_id"`
}

// HandleEvent applies one push frame. Unknown events and undecodable
// payloads degrade to the broadest invalidation rather than erroring:
// a spurious refetch is cheaper than a stale view.
func (r *Reconciler) HandleEvent(ctx context.Context, event string, data json.RawMessage) {
	switch event {
	case push.EventMessageIncoming, push.EventMessageOutgoing, push.EventMessageMediaUpdated, push.EventMessageDeleted:
		var p messagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			r.Log.Warn("undecodable message payload", "event", event, "error", err.Error())
		}

		keys := []string{KeyConversationsActive, KeyConversationsArchived}
		if p.ConversationID != "" {
			keys = append(keys, MessagesKey(p.ConversationID))
		}
		if event == push.EventMessageIncoming && p.ConversationID != "" && r.Unread != nil {
			r.Unread.Increment(p.ConversationID)
		}
		r.Cache.InvalidateAndRefetch(ctx, keys...)

	case push.EventCallIncoming:
		if r.Calls == nil {
			return
		}
		var in IncomingCall
		if err := json.Unmarshal(data, &in); err != nil {
			r.Log.Warn("undecodable call payload", "error", err.Error())
			return
		}
		r.Calls.HandleIncoming(in)

	case push.EventCallEnded:
		if r.Calls == nil {
			return
		}
		var p callEndPayload
		if err := json.Unmarshal(data, &p); err != nil {
			r.Log.Warn("undecodable call payload", "error", err.Error())
		}
		r.Calls.HandleRemoteEnd(p.CallID)

	default:
		r.Log.Debug("ignoring unknown event", "event", event)
	}
}
