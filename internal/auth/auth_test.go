package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store/memory"
)

func TestLogin(t *testing.T) {
	repo := memory.NewSeeded()
	m := NewManager(repo)
	ctx := context.Background()

	actor, err := m.Login(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if actor.Role != domain.RoleAdmin {
		t.Errorf("role = %q, want admin", actor.Role)
	}
	if actor.UserID == 0 {
		t.Error("actor has no user id")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	m := NewManager(memory.NewSeeded())

	_, err := m.Login(context.Background(), "admin", "nope")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	m := NewManager(memory.NewSeeded())

	_, err := m.Login(context.Background(), "ghost", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	repo := memory.NewSeeded()
	m := NewManager(repo)
	ctx := context.Background()

	user, err := repo.GetUserByUsername(ctx, "kasiyer")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if err := repo.SetUserActive(ctx, user.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = m.Login(ctx, "kasiyer", "kasiyer123")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestEnsureAdminSkipsWhenUsersExist(t *testing.T) {
	repo := memory.NewSeeded()
	m := NewManager(repo)
	ctx := context.Background()

	if err := m.EnsureAdmin(ctx, "boss", "bosspass"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if _, err := repo.GetUserByUsername(ctx, "boss"); err == nil {
		t.Fatal("bootstrap admin created despite existing users")
	}
}
