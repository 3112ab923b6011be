package stats

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("stats: invalid range")

// Repository abstracts data access for activity reporting.
// Implementations aggregate over the immutable message and
// conversation rows rather than keeping separate counters.
type Repository interface {
	DailyActivity(ctx context.Context, from, to time.Time) ([]DailyActivity, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// ActivitySummary aggregates per-day activity over [from, to).
func (s *Service) ActivitySummary(ctx context.Context, from, to time.Time) (Summary, error) {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return Summary{}, ErrInvalidRange
	}
	if s.repo == nil {
		return Summary{}, errors.New("stats: repository not configured")
	}

	days, err := s.repo.DailyActivity(ctx, from.UTC(), to.UTC())
	if err != nil {
		return Summary{}, err
	}

	out := Summary{Range: TimeRange{From: from.UTC(), To: to.UTC()}, Days: days}
	for _, d := range days {
		out.TotalInbound += d.InboundMessages
		out.TotalOutbound += d.OutboundMessages
		out.TotalNewConversations += d.NewConversations
	}
	return out, nil
}
