package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is a console operator account.
type User struct {
	ID          string `json:"id" db:"id"`
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`
	Role        string `json:"role" db:"role"`
	Disabled    bool   `json:"disabled" db:"disabled"`

	// PasswordHash is bcrypt; never serialized.
	PasswordHash string `json:"-" db:"password_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var (
	ErrNotFound           = errors.New("user: not found")
	ErrInvalidArgument    = errors.New("user: invalid argument")
	ErrUsernameExists     = errors.New("user: username already exists")
	ErrInvalidCredentials = errors.New("user: invalid credentials")
)

type Repository interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Insert(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, username, displayName, role, password string) (User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || role == "" || len(password) < 8 {
		return User{}, ErrInvalidArgument
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return User{}, ErrUsernameExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    s.clock().UTC(),
	}
	if u.DisplayName == "" {
		u.DisplayName = username
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) SetDisabled(ctx context.Context, id string, disabled bool) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Disabled = disabled
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) SetPassword(ctx context.Context, id, password string) error {
	if id == "" || len(password) < 8 {
		return ErrInvalidArgument
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.repo.Update(ctx, u)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	return s.repo.Delete(ctx, id)
}

// Authenticate checks credentials for login. Disabled accounts fail
// with the same error as a wrong password; callers must not be able to
// distinguish the two.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if u.Disabled {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
