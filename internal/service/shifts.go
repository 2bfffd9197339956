package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
)

func (s *Service) StartShift(ctx context.Context, startingCashCents int64) (*domain.Shift, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	shift, err := s.repo.StartShift(ctx, actor.UserID, startingCashCents)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "shift_start", fmt.Sprintf("shift=%d,starting_cash=%d", shift.ID, startingCashCents))
	return shift, nil
}

func (s *Service) ActiveShift(ctx context.Context) (*domain.Shift, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ActiveShiftForUser(ctx, actor.UserID)
}

// BuildZReport computes the cash-up for a shift without closing it:
// expected cash is the starting float plus cash sales plus cash customer
// payments taken during the shift.
func (s *Service) BuildZReport(ctx context.Context, shiftID int64, countedCashCents int64, notes string) (*domain.ZReport, error) {
	shift, err := s.repo.GetShiftByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	sales, err := s.repo.ShiftSalesSummary(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ShiftCustomerPayments(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	report := domain.ZReport{
		ShiftID:                 shift.ID,
		Username:                shift.Username,
		FullName:                shift.FullName,
		StartTime:               shift.StartTime,
		EndTime:                 time.Now().UTC(),
		StartingCashCents:       shift.StartingCashCents,
		TotalSalesCents:         sales.TotalSalesCents,
		TotalDiscountCents:      sales.TotalDiscountCents,
		TotalPromoDiscountCents: sales.TotalPromoDiscountCents,
		CashSalesCents:          sales.CashSalesCents,
		CardSalesCents:          sales.CardSalesCents,
		CreditSalesCents:        sales.CreditSalesCents,
		CashPaymentsCents:       payments.CashCents,
		CardPaymentsCents:       payments.CardCents,
		CountedCashCents:        countedCashCents,
		Notes:                   notes,
	}
	if shift.EndTime != nil {
		report.EndTime = *shift.EndTime
	}
	report.ExpectedCashCents = report.StartingCashCents + report.CashSalesCents + report.CashPaymentsCents
	report.DifferenceCents = report.CountedCashCents - report.ExpectedCashCents
	return &report, nil
}

// CloseShift builds the Z-report for the actor's open shift and persists it.
func (s *Service) CloseShift(ctx context.Context, countedCashCents int64, notes string) (*domain.ZReport, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if countedCashCents < 0 {
		return nil, fmt.Errorf("counted cash cannot be negative")
	}

	shift, err := s.repo.ActiveShiftForUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	report, err := s.BuildZReport(ctx, shift.ID, countedCashCents, notes)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CloseShift(ctx, *report); err != nil {
		return nil, err
	}
	s.logAudit(ctx, "shift_close", fmt.Sprintf("shift=%d,expected=%d,counted=%d,difference=%d",
		report.ShiftID, report.ExpectedCashCents, report.CountedCashCents, report.DifferenceCents))
	return report, nil
}
