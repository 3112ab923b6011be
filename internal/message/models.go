package message

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

type MediaStatus string

const (
	MediaStatusPending MediaStatus = "pending"
	MediaStatusReady   MediaStatus = "ready"
	MediaStatusFailed  MediaStatus = "failed"
)

// Media describes an attachment while it moves through processing.
// Optional on a message; shape-checked defensively at read sites.
type Media struct {
	Type         string      `json:"type"`
	Status       MediaStatus `json:"status"`
	URL          string      `json:"url,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// Message is a single entry in a conversation thread.
//
// Messages are immutable after insert except for delivery status and
// media processing updates. Deletion is a hard removal signaled via a
// push event.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Direction      Direction `json:"direction" db:"direction"`
	Body           string    `json:"body" db:"body"`
	Media          *Media    `json:"media,omitempty" db:"media"`
	ReplyToID      string    `json:"reply_to_id,omitempty" db:"reply_to_id"`

	// SenderID is the console user that sent an outbound message.
	SenderID string `json:"sender_id,omitempty" db:"sender_id"`

	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
