package pin

import (
	"context"
	"errors"
	"time"
)

// Pin marks a conversation as pinned for one user. The pair is unique;
// pinning twice refreshes nothing and unpinning twice is a no-op.
type Pin struct {
	UserID         string    `json:"user_id" db:"user_id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	PinnedAt       time.Time `json:"pinned_at" db:"pinned_at"`
}

// MaxPerUser caps active pins per user. Clients pre-check before
// issuing the mutation; this server-side check is the source of truth.
const MaxPerUser = 10

var (
	ErrInvalidArgument = errors.New("pin: invalid argument")
	ErrPinLimit        = errors.New("pin: limit reached")
)

type Repository interface {
	List(ctx context.Context, userID string) ([]Pin, error)
	// Insert adds p unless the user already holds maxPerUser pins, in
	// which case it returns ErrPinLimit. The check and the insert must
	// be atomic: two racing inserts must never push a user past the cap.
	Insert(ctx context.Context, p Pin, maxPerUser int) error
	Delete(ctx context.Context, userID, conversationID string) error
	Exists(ctx context.Context, userID, conversationID string) (bool, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// List returns the user's pins newest-first.
func (s *Service) List(ctx context.Context, userID string) ([]Pin, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.List(ctx, userID)
}

func (s *Service) Pin(ctx context.Context, userID, conversationID string) (Pin, error) {
	if userID == "" || conversationID == "" {
		return Pin{}, ErrInvalidArgument
	}
	exists, err := s.repo.Exists(ctx, userID, conversationID)
	if err != nil {
		return Pin{}, err
	}
	if exists {
		// Idempotent: re-pinning keeps the original order position.
		list, err := s.repo.List(ctx, userID)
		if err != nil {
			return Pin{}, err
		}
		for _, p := range list {
			if p.ConversationID == conversationID {
				return p, nil
			}
		}
	}

	p := Pin{
		UserID:         userID,
		ConversationID: conversationID,
		PinnedAt:       s.clock().UTC(),
	}
	if err := s.repo.Insert(ctx, p, MaxPerUser); err != nil {
		return Pin{}, err
	}
	return p, nil
}

func (s *Service) Unpin(ctx context.Context, userID, conversationID string) error {
	if userID == "" || conversationID == "" {
		return ErrInvalidArgument
	}
	return s.repo.Delete(ctx, userID, conversationID)
}
