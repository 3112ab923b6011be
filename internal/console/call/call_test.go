package call

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"whatsapp-console/internal/console/cache"
	"whatsapp-console/internal/console/calllog"
)

type captureLog struct {
	entries []calllog.Entry
}

func (l *captureLog) Append(e calllog.Entry, current []calllog.Entry) []calllog.Entry {
	l.entries = append(l.entries, e)
	return l.entries
}

func newController() (*Controller, *captureLog, *time.Time) {
	log := &captureLog{}
	c := NewController(log, slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Unix(1700000000, 0).UTC()
	c.clock = func() time.Time { return now }
	return c, log, &now
}

func TestIncomingCallLifecycle(t *testing.T) {
	c, log, now := newController()

	c.HandleIncoming(cache.IncomingCall{CallID: "c1", Phone: "9641234567"})

	cur := c.Current()
	if cur == nil || cur.Status != StatusRinging || cur.Direction != DirectionIncoming {
		t.Fatalf("expected ringing incoming, got %+v", cur)
	}
	if cur.DisplayName != "9641234567" {
		t.Fatalf("display name must fall back to phone, got %q", cur.DisplayName)
	}

	*now = now.Add(3 * time.Second)
	if err := c.Answer(); err != nil {
		t.Fatalf("answer: %v", err)
	}
	cur = c.Current()
	if cur.Status != StatusActive || cur.ConnectedAt == nil {
		t.Fatalf("expected active with connect time, got %+v", cur)
	}

	*now = now.Add(42 * time.Second)
	if err := c.End(ReasonEnded); err != nil {
		t.Fatalf("end: %v", err)
	}
	if c.Current() != nil {
		t.Fatalf("slot must be empty after end")
	}
	if len(log.entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(log.entries))
	}
	e := log.entries[0]
	if e.Outcome != calllog.OutcomeCompleted || e.DurationSeconds != 42 {
		t.Fatalf("expected completed/42s, got %+v", e)
	}
}

func TestIncomingWhileBusyIgnored(t *testing.T) {
	c, _, _ := newController()

	c.HandleIncoming(cache.IncomingCall{CallID: "c1", Phone: "111"})
	for i := 0; i < 5; i++ {
		c.HandleIncoming(cache.IncomingCall{CallID: "other", Phone: "222"})
	}

	cur := c.Current()
	if cur.ID != "c1" || cur.Phone != "111" {
		t.Fatalf("active call must be unaffected, got %+v", cur)
	}
}

func TestIncomingFallbackID(t *testing.T) {
	c, _, _ := newController()
	c.HandleIncoming(cache.IncomingCall{Phone: "9641234567"})

	cur := c.Current()
	if cur == nil || cur.ID == "" {
		t.Fatalf("expected generated id, got %+v", cur)
	}
}

func TestStartOutgoing(t *testing.T) {
	c, log, _ := newController()

	if _, err := c.StartOutgoing("conv1", "", "Ali"); !errors.Is(err, ErrNoPhone) {
		t.Fatalf("expected ErrNoPhone, got %v", err)
	}

	s, err := c.StartOutgoing("conv1", "9641234567", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Direction != DirectionOutgoing || s.Status != StatusRinging || s.DisplayName != "9641234567" {
		t.Fatalf("unexpected state %+v", s)
	}

	if _, err := c.StartOutgoing("conv2", "9647654321", ""); !errors.Is(err, ErrCallBusy) {
		t.Fatalf("expected ErrCallBusy, got %v", err)
	}

	// cancelled before answer: outcome cancelled, zero duration
	if err := c.End(ReasonCancelled); err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(log.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(log.entries))
	}
	if e := log.entries[0]; e.Outcome != calllog.OutcomeCancelled || e.DurationSeconds != 0 {
		t.Fatalf("expected cancelled/0s, got %+v", e)
	}
}

func TestDeclineBeforeAnswer(t *testing.T) {
	c, log, _ := newController()
	c.HandleIncoming(cache.IncomingCall{CallID: "c1", Phone: "111"})

	if err := c.End(ReasonDeclined); err != nil {
		t.Fatalf("end: %v", err)
	}
	if e := log.entries[0]; e.Outcome != calllog.OutcomeDeclined || e.DurationSeconds != 0 {
		t.Fatalf("expected declined/0s, got %+v", e)
	}
}

func TestRemoteEndUnansweredIncomingIsMissed(t *testing.T) {
	c, log, _ := newController()
	c.HandleIncoming(cache.IncomingCall{CallID: "c1", Phone: "111"})

	c.HandleRemoteEnd("c1")
	if c.Current() != nil {
		t.Fatalf("slot must clear on remote end")
	}
	if e := log.entries[0]; e.Outcome != calllog.OutcomeMissed {
		t.Fatalf("expected missed, got %+v", e)
	}
}

func TestRemoteEndIDMatching(t *testing.T) {
	c, log, _ := newController()
	c.HandleIncoming(cache.IncomingCall{CallID: "c1", Phone: "111"})

	// stale event for a different call: no-op
	c.HandleRemoteEnd("zombie")
	if c.Current() == nil {
		t.Fatalf("mismatching id must not end the call")
	}

	// empty id matches whatever is live
	c.HandleRemoteEnd("")
	if c.Current() != nil || len(log.entries) != 1 {
		t.Fatalf("empty id must end the live call")
	}
}

func TestAnswerOnlyValidRingingIncoming(t *testing.T) {
	c, _, _ := newController()

	if err := c.Answer(); !errors.Is(err, ErrNotRinging) {
		t.Fatalf("answer with no call: expected ErrNotRinging, got %v", err)
	}

	c.StartOutgoing("conv1", "9641234567", "")
	if err := c.Answer(); !errors.Is(err, ErrNotRinging) {
		t.Fatalf("answer on outgoing: expected ErrNotRinging, got %v", err)
	}
	c.End(ReasonCancelled)

	c.HandleIncoming(cache.IncomingCall{CallID: "c1", Phone: "111"})
	if err := c.Answer(); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := c.Answer(); !errors.Is(err, ErrNotRinging) {
		t.Fatalf("double answer: expected ErrNotRinging, got %v", err)
	}
}

func TestDismissInfersReason(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(c *Controller)
		outcome string
	}{
		{
			name: "active ends completed",
			setup: func(c *Controller) {
				c.HandleIncoming(cache.IncomingCall{CallID: "c1", Phone: "111"})
				c.Answer()
			},
			outcome: calllog.OutcomeCompleted,
		},
		{
			name: "ringing incoming declines",
			setup: func(c *Controller) {
				c.HandleIncoming(cache.IncomingCall{CallID: "c1", Phone: "111"})
			},
			outcome: calllog.OutcomeDeclined,
		},
		{
			name: "ringing outgoing cancels",
			setup: func(c *Controller) {
				c.StartOutgoing("conv1", "111", "")
			},
			outcome: calllog.OutcomeCancelled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, log, _ := newController()
			tc.setup(c)
			if err := c.Dismiss(); err != nil {
				t.Fatalf("dismiss: %v", err)
			}
			if len(log.entries) != 1 || log.entries[0].Outcome != tc.outcome {
				t.Fatalf("expected outcome %s, got %+v", tc.outcome, log.entries)
			}
		})
	}

	c, _, _ := newController()
	if err := c.Dismiss(); !errors.Is(err, ErrNoCall) {
		t.Fatalf("dismiss with no call: expected ErrNoCall, got %v", err)
	}
}

func TestElapsedUsesConnectTime(t *testing.T) {
	c, _, now := newController()
	c.HandleIncoming(cache.IncomingCall{CallID: "c1", Phone: "111"})

	if c.Elapsed() != 0 {
		t.Fatalf("ringing call has no elapsed time")
	}

	*now = now.Add(5 * time.Second)
	c.Answer()
	*now = now.Add(7 * time.Second)

	if got := c.Elapsed(); got != 7*time.Second {
		t.Fatalf("expected 7s since connect, got %v", got)
	}
}
