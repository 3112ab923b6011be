package stats

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DailyActivity is one day's worth of console activity.
type DailyActivity struct {
	Day              time.Time `json:"day"`
	InboundMessages  int       `json:"inbound_messages"`
	OutboundMessages int       `json:"outbound_messages"`
	NewConversations int       `json:"new_conversations"`
}

type Summary struct {
	Range TimeRange       `json:"range"`
	Days  []DailyActivity `json:"days"`

	TotalInbound          int `json:"total_inbound"`
	TotalOutbound         int `json:"total_outbound"`
	TotalNewConversations int `json:"total_new_conversations"`
}
