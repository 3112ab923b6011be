package template

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Template is a ready-made reply an operator can insert into the
// composer with one click.
type Template struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var (
	ErrNotFound        = errors.New("template: not found")
	ErrInvalidArgument = errors.New("template: invalid argument")
)

type Repository interface {
	List(ctx context.Context) ([]Template, error)
	Get(ctx context.Context, id string) (Template, error)
	Insert(ctx context.Context, t Template) error
	Update(ctx context.Context, t Template) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) List(ctx context.Context) ([]Template, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Template, error) {
	if id == "" {
		return Template{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, title, body, createdBy string) (Template, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return Template{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	t := Template{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, t); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, id, title, body string) (Template, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if id == "" || title == "" || body == "" {
		return Template{}, ErrInvalidArgument
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Template{}, err
	}
	t.Title = title
	t.Body = body
	t.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	return s.repo.Delete(ctx, id)
}
