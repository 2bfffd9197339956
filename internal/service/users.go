package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kafisabah/HSP/internal/auth"
	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

func (s *Service) CreateUser(ctx context.Context, username string, fullName string, password string, role string) (*domain.UserAccount, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, store.ErrInvalidTransaction
	}
	if role != domain.RoleAdmin && role != domain.RoleCashier {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateUser(ctx, domain.UserAccount{
		Username:     username,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "user_create", fmt.Sprintf("id=%d,username=%s,role=%s", created.ID, created.Username, created.Role))
	return created, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) SetUserActive(ctx context.Context, id int64, active bool) error {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if actor.UserID == id && !active {
		return fmt.Errorf("cannot deactivate yourself")
	}
	if err := s.repo.SetUserActive(ctx, id, active); err != nil {
		return err
	}
	s.logAudit(ctx, "user_set_active", fmt.Sprintf("id=%d,active=%t", id, active))
	return nil
}

func (s *Service) SalesByShift(ctx context.Context, shiftID int64) ([]domain.Sale, error) {
	return s.repo.ListSalesByShift(ctx, shiftID)
}
