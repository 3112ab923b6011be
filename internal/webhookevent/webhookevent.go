package webhookevent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is a raw WhatsApp webhook delivery captured for diagnostics.
//
// Invariants:
// - Payloads are never updated or deleted; only the processing outcome
//   is recorded after the fact.
// - The payload is stored verbatim so failed deliveries can be replayed
//   by an operator while debugging.
type Event struct {
	ID   string `json:"id" db:"id"`
	Kind string `json:"kind" db:"kind"`

	// Payload is the raw request body as received.
	Payload json.RawMessage `json:"payload" db:"payload"`

	ReceivedAt   time.Time  `json:"received_at" db:"received_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	ProcessError string     `json:"process_error,omitempty" db:"process_error"`
}

var ErrInvalidEvent = errors.New("webhookevent: invalid event")

type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, limit, offset int) ([]Event, error)
	MarkProcessed(ctx context.Context, id string, at time.Time, processErr string) error
}

// Service records webhook deliveries. Recording is best-effort from
// the ingest path's perspective; a failed append must not block
// message processing.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, kind string, payload []byte) (Event, error) {
	if kind == "" {
		return Event{}, ErrInvalidEvent
	}
	e := Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    json.RawMessage(payload),
		ReceivedAt: s.clock().UTC(),
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return Event{}, err
	}
	return e, nil
}

const defaultPageSize = 50
const maxPageSize = 500

// List pages events newest-first for the diagnostics view.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// MarkProcessed records the processing outcome. An empty processErr
// means success.
func (s *Service) MarkProcessed(ctx context.Context, id string, processErr string) error {
	if id == "" {
		return ErrInvalidEvent
	}
	return s.repo.MarkProcessed(ctx, id, s.clock().UTC(), processErr)
}
