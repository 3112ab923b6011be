package user

import (
	"context"
	"errors"
	"testing"

	"whatsapp-console/internal/rbac"
)

func TestCreateAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	u, err := svc.Create(ctx, " Operator ", "Op", rbac.RoleAgent, "s3cret-pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Username != "operator" {
		t.Fatalf("expected lowercased username, got %q", u.Username)
	}

	got, err := svc.Authenticate(ctx, "operator", "s3cret-pass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("unexpected user")
	}

	if _, err := svc.Authenticate(ctx, "operator", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "missing", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_DisabledAccountRejected(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	u, err := svc.Create(ctx, "op", "Op", rbac.RoleAgent, "s3cret-pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SetDisabled(ctx, u.ID, true); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "op", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for disabled user, got %v", err)
	}
}

func TestCreate_DuplicateUsername(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "op", "A", rbac.RoleAgent, "password1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "OP", "B", rbac.RoleAgent, "password2"); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
}

func TestCreate_RejectsShortPassword(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, err := svc.Create(context.Background(), "op", "A", rbac.RoleAgent, "short"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
