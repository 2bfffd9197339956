// Package auth verifies cashier logins against bcrypt password hashes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Manager struct {
	repo store.Repository
}

func NewManager(repo store.Repository) *Manager {
	return &Manager{repo: repo}
}

// Login returns the actor for a valid username and password. Wrong password,
// unknown user and disabled user all collapse into ErrInvalidCredentials so
// the prompt leaks nothing.
func (m *Manager) Login(ctx context.Context, username string, password string) (domain.Actor, error) {
	user, err := m.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Actor{}, ErrInvalidCredentials
		}
		return domain.Actor{}, err
	}
	if !user.Active {
		return domain.Actor{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.Actor{}, ErrInvalidCredentials
	}
	return domain.Actor{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func HashPassword(password string) (string, error) {
	if len(password) < 4 {
		return "", fmt.Errorf("password too short")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// EnsureAdmin creates the bootstrap admin account when the user table is
// empty, so a fresh install can log in at all.
func (m *Manager) EnsureAdmin(ctx context.Context, username string, password string) error {
	users, err := m.repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	if username == "" || password == "" {
		log.Printf("[auth] WARN: no users exist and ADMIN_USERNAME/ADMIN_PASSWORD are unset, skipping bootstrap")
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	_, err = m.repo.CreateUser(ctx, domain.UserAccount{
		Username:     username,
		FullName:     "Yönetici",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		return err
	}
	log.Printf("[auth] bootstrap admin %q created", username)
	return nil
}
