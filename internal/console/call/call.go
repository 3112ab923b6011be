// Package call owns the console's single live-call slot: at most one
// call exists at a time, and every mutation goes through a named
// transition that validates the current state first.
package call

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"whatsapp-console/internal/console/cache"
	"whatsapp-console/internal/console/calllog"
)

type Status string

const (
	StatusRinging Status = "ringing"
	StatusActive  Status = "active"
)

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Reason a call left the slot.
type Reason string

const (
	// ReasonEnded is a user-terminated active call.
	ReasonEnded Reason = "ended"
	// ReasonDeclined is an incoming call rejected while ringing.
	ReasonDeclined Reason = "declined"
	// ReasonCancelled is an outgoing call aborted while ringing.
	ReasonCancelled Reason = "cancelled"
	// ReasonRemote is a termination signaled by the server.
	ReasonRemote Reason = "remote"
)

var (
	ErrCallBusy   = errors.New("call: another call is in progress")
	ErrNoPhone    = errors.New("call: conversation has no phone number")
	ErrNoCall     = errors.New("call: no call in progress")
	ErrNotRinging = errors.New("call: answer is only valid for a ringing incoming call")
)

// State is the live call. ConnectedAt is set on answer only.
type State struct {
	ID             string
	ConversationID string
	Phone          string
	DisplayName    string
	Direction      Direction
	Status         Status
	StartedAt      time.Time
	ConnectedAt    *time.Time
}

// Log is the slice of the call log store the controller appends to.
type Log interface {
	Append(e calllog.Entry, current []calllog.Entry) []calllog.Entry
}

type Controller struct {
	mu      sync.Mutex
	current *State

	log   Log
	slog  *slog.Logger
	clock func() time.Time
}

func NewController(log Log, slogger *slog.Logger) *Controller {
	return &Controller{log: log, slog: slogger, clock: time.Now}
}

// Current returns a copy of the live call, or nil.
func (c *Controller) Current() *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// StartOutgoing places the slot into ringing/outgoing. Rejected while
// busy or when the conversation cannot be dialed.
func (c *Controller) StartOutgoing(conversationID, phone, displayName string) (State, error) {
	if phone == "" {
		return State{}, ErrNoPhone
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return State{}, ErrCallBusy
	}

	now := c.clock()
	if displayName == "" {
		displayName = phone
	}
	c.current = &State{
		ID:             fmt.Sprintf("out-%d", now.UnixNano()),
		ConversationID: conversationID,
		Phone:          phone,
		DisplayName:    displayName,
		Direction:      DirectionOutgoing,
		Status:         StatusRinging,
		StartedAt:      now,
	}
	return *c.current, nil
}

// HandleIncoming fills the slot from a call_incoming frame. A second
// incoming call while the slot is occupied is ignored outright: calls
// do not queue and do not interrupt.
func (c *Controller) HandleIncoming(in cache.IncomingCall) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.slog.Info("ignoring incoming call while busy", "call_id", in.CallID)
		return
	}

	now := c.clock()
	id := in.CallID
	if id == "" {
		id = fmt.Sprintf("in-%d", now.UnixNano())
	}
	name := in.DisplayName
	if name == "" {
		name = in.Phone
	}
	c.current = &State{
		ID:             id,
		ConversationID: in.ConversationID,
		Phone:          in.Phone,
		DisplayName:    name,
		Direction:      DirectionIncoming,
		Status:         StatusRinging,
		StartedAt:      now,
	}
}

// Answer connects a ringing incoming call.
func (c *Controller) Answer() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.Status != StatusRinging || c.current.Direction != DirectionIncoming {
		return ErrNotRinging
	}
	now := c.clock()
	c.current.Status = StatusActive
	c.current.ConnectedAt = &now
	return nil
}

// End terminates the call with an explicit reason. The log entry is
// appended under the same lock that clears the slot, so there is no
// terminal transition without its log record.
func (c *Controller) End(reason Reason) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endLocked(reason)
}

// Dismiss ends the call inferring the reason from its state: an active
// call ends, a ringing incoming call is declined, a ringing outgoing
// call is cancelled.
func (c *Controller) Dismiss() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoCall
	}
	switch {
	case c.current.Status == StatusActive:
		return c.endLocked(ReasonEnded)
	case c.current.Direction == DirectionIncoming:
		return c.endLocked(ReasonDeclined)
	default:
		return c.endLocked(ReasonCancelled)
	}
}

// HandleRemoteEnd applies a call_ended frame. An empty call id matches
// whatever call is live; a mismatching id is a stale event for a call
// already gone and is dropped.
func (c *Controller) HandleRemoteEnd(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}
	if callID != "" && callID != c.current.ID {
		return
	}
	_ = c.endLocked(ReasonRemote)
}

// Elapsed is the live duration shown while a call is active:
// now − (connectedAt ?? startedAt). Zero when nothing is active.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.Status != StatusActive {
		return 0
	}
	since := c.current.StartedAt
	if c.current.ConnectedAt != nil {
		since = *c.current.ConnectedAt
	}
	return c.clock().Sub(since)
}

func (c *Controller) endLocked(reason Reason) error {
	if c.current == nil {
		return ErrNoCall
	}

	endedAt := c.clock()
	entry := deriveLogEntry(*c.current, reason, endedAt)
	if c.log != nil {
		c.log.Append(entry, nil)
	}
	c.slog.Info("call ended",
		"call_id", c.current.ID, "reason", string(reason), "outcome", entry.Outcome)

	c.current = nil
	return nil
}

// deriveLogEntry maps (direction, reached-active, reason) onto the log
// outcome. Duration is nonzero only for completed calls.
func deriveLogEntry(s State, reason Reason, endedAt time.Time) calllog.Entry {
	e := calllog.Entry{
		ID:             s.ID,
		ConversationID: s.ConversationID,
		Phone:          s.Phone,
		DisplayName:    s.DisplayName,
		Direction:      string(s.Direction),
		StartedAt:      s.StartedAt.UnixMilli(),
		EndedAt:        endedAt.UnixMilli(),
	}

	switch {
	case s.ConnectedAt != nil:
		e.Outcome = calllog.OutcomeCompleted
		e.DurationSeconds = int(endedAt.Sub(*s.ConnectedAt) / time.Second)
		if e.DurationSeconds < 0 {
			e.DurationSeconds = 0
		}
	case s.Direction == DirectionIncoming && reason == ReasonDeclined:
		e.Outcome = calllog.OutcomeDeclined
	case s.Direction == DirectionIncoming:
		e.Outcome = calllog.OutcomeMissed
	default:
		e.Outcome = calllog.OutcomeCancelled
	}
	return e
}
