package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

func (s *Service) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return nil, store.ErrInvalidTransaction
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "customer_create", fmt.Sprintf("id=%d,name=%s", created.ID, created.Name))
	return created, nil
}

func (s *Service) CustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.GetCustomerByID(ctx, id)
}

func (s *Service) SearchCustomers(ctx context.Context, query string, includeInactive bool) ([]domain.Customer, error) {
	return s.repo.SearchCustomers(ctx, query, includeInactive)
}

func (s *Service) SetCustomerActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.SetCustomerActive(ctx, id, active); err != nil {
		return err
	}
	s.logAudit(ctx, "customer_set_active", fmt.Sprintf("id=%d,active=%t", id, active))
	return nil
}

// RecordCustomerPayment takes money against a customer's store-credit debt.
// The payment is tied to the cashier's open shift when one exists so the cash
// lands on that shift's Z-report.
func (s *Service) RecordCustomerPayment(ctx context.Context, customerID int64, amountCents int64, method string, notes string) (*domain.CustomerPayment, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if amountCents < 1 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	if method != domain.PaymentCash && method != domain.PaymentCard {
		return nil, fmt.Errorf("unknown payment method %q", method)
	}

	payment := domain.CustomerPayment{
		CustomerID:  customerID,
		AmountCents: amountCents,
		Method:      method,
		Notes:       notes,
		UserID:      actor.UserID,
	}
	if shift, err := s.repo.ActiveShiftForUser(ctx, actor.UserID); err == nil {
		payment.ShiftID = &shift.ID
	}

	recorded, err := s.repo.RecordCustomerPayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "customer_payment", fmt.Sprintf("customer=%d,amount=%d,method=%s", customerID, amountCents, method))
	return recorded, nil
}

func (s *Service) CustomerLedger(ctx context.Context, customerID int64, limit int) ([]domain.LedgerEntry, error) {
	return s.repo.CustomerLedger(ctx, customerID, limit)
}

func (s *Service) CreateCoupon(ctx context.Context, coupon domain.Coupon) (*domain.Coupon, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	coupon.Code = strings.TrimSpace(coupon.Code)
	if coupon.Code == "" || coupon.DiscountCents < 1 {
		return nil, store.ErrInvalidTransaction
	}

	created, err := s.repo.CreateCoupon(ctx, coupon)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "coupon_create", fmt.Sprintf("id=%d,code=%s,discount=%d", created.ID, created.Code, created.DiscountCents))
	return created, nil
}

func (s *Service) ListCoupons(ctx context.Context, includeInactive bool) ([]domain.Coupon, error) {
	return s.repo.ListCoupons(ctx, includeInactive)
}

func (s *Service) AssignCoupon(ctx context.Context, customerID int64, couponID int64) (*domain.CustomerCoupon, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	assigned, err := s.repo.AssignCouponToCustomer(ctx, customerID, couponID)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "coupon_assign", fmt.Sprintf("customer=%d,coupon=%d", customerID, couponID))
	return assigned, nil
}

func (s *Service) AvailableCoupons(ctx context.Context, customerID int64) ([]domain.CustomerCoupon, error) {
	return s.repo.AvailableCustomerCoupons(ctx, customerID, time.Now().UTC())
}
