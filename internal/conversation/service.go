package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("conversation: not found")
	ErrInvalidArgument = errors.New("conversation: invalid argument")
	ErrPhoneExists     = errors.New("conversation: phone already exists")
)

// Repository is the persistence contract for conversations.
// Implementations must treat Metadata as an opaque blob.
type Repository interface {
	List(ctx context.Context, archived bool, search string) ([]Conversation, error)
	Get(ctx context.Context, id string) (Conversation, error)
	GetByPhone(ctx context.Context, phone string) (Conversation, error)
	Insert(ctx context.Context, conv Conversation) error
	Update(ctx context.Context, conv Conversation) error
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// List returns one partition of the inbox: archived or active, with an
// optional substring search over phone and display name.
func (s *Service) List(ctx context.Context, archived bool, search string) ([]Conversation, error) {
	return s.repo.List(ctx, archived, strings.TrimSpace(search))
}

func (s *Service) Get(ctx context.Context, id string) (Conversation, error) {
	if id == "" {
		return Conversation{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new conversation for a phone number.
func (s *Service) Create(ctx context.Context, phone, displayName string) (Conversation, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return Conversation{}, ErrInvalidArgument
	}
	if _, err := s.repo.GetByPhone(ctx, phone); err == nil {
		return Conversation{}, ErrPhoneExists
	} else if !errors.Is(err, ErrNotFound) {
		return Conversation{}, err
	}

	now := s.clock().UTC()
	conv := Conversation{
		ID:          uuid.NewString(),
		Phone:       phone,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if conv.DisplayName == "" {
		conv.DisplayName = phone
	}
	if err := s.repo.Insert(ctx, conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// EnsureByPhone returns the conversation for a phone number, creating
// it when the first inbound message arrives from an unknown contact.
func (s *Service) EnsureByPhone(ctx context.Context, phone, displayName string) (Conversation, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return Conversation{}, ErrInvalidArgument
	}
	conv, err := s.repo.GetByPhone(ctx, phone)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Conversation{}, err
	}
	return s.Create(ctx, phone, displayName)
}

func (s *Service) Rename(ctx context.Context, id, displayName string) (Conversation, error) {
	if id == "" || strings.TrimSpace(displayName) == "" {
		return Conversation{}, ErrInvalidArgument
	}
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Conversation{}, err
	}
	conv.DisplayName = strings.TrimSpace(displayName)
	conv.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (s *Service) SetArchived(ctx context.Context, id string, archived bool) (Conversation, error) {
	if id == "" {
		return Conversation{}, ErrInvalidArgument
	}
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Conversation{}, err
	}
	conv.Archived = archived
	conv.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (s *Service) SetMuted(ctx context.Context, id string, muted bool) (Conversation, error) {
	if id == "" {
		return Conversation{}, ErrInvalidArgument
	}
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Conversation{}, err
	}
	conv.Metadata.Muted = muted
	conv.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// TouchLastMessage refreshes the list snippet after any message write.
func (s *Service) TouchLastMessage(ctx context.Context, id, snippet string, at time.Time) error {
	if id == "" {
		return ErrInvalidArgument
	}
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	at = at.UTC()
	conv.Metadata.LastMessage = truncateSnippet(snippet)
	conv.Metadata.LastMessageAt = &at
	conv.UpdatedAt = s.clock().UTC()
	return s.repo.Update(ctx, conv)
}

const maxSnippetLen = 120

func truncateSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxSnippetLen {
		return s
	}
	// Cut on a rune boundary.
	runes := []rune(s)
	if len(runes) <= maxSnippetLen {
		return s
	}
	return string(runes[:maxSnippetLen]) + "…"
}

func normalizePhone(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "+")
	var b strings.Builder
	for _, r := range p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
