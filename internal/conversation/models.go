package conversation

import (
	"encoding/json"
	"time"
)

// Conversation is a phone-number-addressed message thread.
//
// Invariants:
// - Phone is unique; inbound traffic upserts by phone.
// - Metadata is auxiliary and schema-flexible; it must never be trusted
//   to have a particular shape at read time.
type Conversation struct {
	ID          string   `json:"id" db:"id"`
	Phone       string   `json:"phone" db:"phone"`
	DisplayName string   `json:"display_name" db:"display_name"`
	Archived    bool     `json:"archived" db:"archived"`
	Metadata    Metadata `json:"metadata" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Metadata carries the known auxiliary fields plus a catch-all for
// anything the store or older writers put there. Stored as JSONB.
type Metadata struct {
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Muted         bool       `json:"muted,omitempty"`
	Labels        []string   `json:"labels,omitempty"`

	// Extra holds unknown keys verbatim so round-trips never lose data.
	Extra map[string]any `json:"-"`
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.LastMessage != "" {
		out["last_message"] = m.LastMessage
	}
	if m.LastMessageAt != nil {
		out["last_message_at"] = m.LastMessageAt.UTC().Format(time.RFC3339)
	}
	if m.Muted {
		out["muted"] = true
	}
	if len(m.Labels) > 0 {
		out["labels"] = m.Labels
	}
	return json.Marshal(out)
}

func (m *Metadata) UnmarshalJSON(raw []byte) error {
	*m = DecodeMetadata(raw)
	return nil
}

// DecodeMetadata parses a metadata blob defensively: anything malformed
// (wrong types, invalid JSON) degrades to the zero value for that field
// rather than an error. Never trust shape.
func DecodeMetadata(raw []byte) Metadata {
	var m Metadata
	if len(raw) == 0 {
		return m
	}
	var blob map[string]any
	if err := json.Unmarshal(raw, &blob); err != nil {
		return m
	}
	for k, v := range blob {
		switch k {
		case "last_message":
			if s, ok := v.(string); ok {
				m.LastMessage = s
			}
		case "last_message_at":
			if s, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					t = t.UTC()
					m.LastMessageAt = &t
				}
			}
		case "muted":
			if b, ok := v.(bool); ok {
				m.Muted = b
			}
		case "labels":
			if list, ok := v.([]any); ok {
				for _, item := range list {
					if s, ok := item.(string); ok {
						m.Labels = append(m.Labels, s)
					}
				}
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
	return m
}
