package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

func (s *Store) StartShift(ctx context.Context, userID int64, startingCashCents int64) (*domain.Shift, error) {
	if startingCashCents < 0 {
		return nil, store.ErrInvalidTransaction
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var activeID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM shifts WHERE user_id = $1 AND active = true AND end_time IS NULL
	`, userID).Scan(&activeID)
	if err == nil {
		return nil, fmt.Errorf("user %d already has open shift %d: %w", userID, activeID, store.ErrDuplicate)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	shift := domain.Shift{UserID: userID, StartingCashCents: startingCashCents, Active: true}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO shifts (user_id, start_time, starting_cash_cents, active)
		VALUES ($1, now(), $2, true)
		RETURNING id, start_time
	`, userID, startingCashCents).Scan(&shift.ID, &shift.StartTime)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}
	shift.StartTime = shift.StartTime.UTC()

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &shift, nil
}

const shiftColumns = `s.id, s.user_id, u.username, COALESCE(u.full_name, ''), s.start_time, s.end_time,
	s.starting_cash_cents, s.ending_cash_cents, s.total_sales_cents, s.cash_sales_cents,
	s.card_sales_cents, s.credit_sales_cents, s.cash_payments_cents, s.card_payments_cents,
	s.difference_cents, COALESCE(s.notes, ''), s.active`

func scanShift(row interface{ Scan(...any) error }) (*domain.Shift, error) {
	var shift domain.Shift
	var endTime sql.NullTime
	var endingCash, difference sql.NullInt64
	err := row.Scan(&shift.ID, &shift.UserID, &shift.Username, &shift.FullName, &shift.StartTime,
		&endTime, &shift.StartingCashCents, &endingCash, &shift.TotalSalesCents,
		&shift.CashSalesCents, &shift.CardSalesCents, &shift.CreditSalesCents,
		&shift.CashPaymentsCents, &shift.CardPaymentsCents, &difference, &shift.Notes, &shift.Active)
	if err != nil {
		return nil, err
	}
	shift.StartTime = shift.StartTime.UTC()
	shift.EndTime = scanNullTime(endTime)
	shift.EndingCashCents = scanNullInt64(endingCash)
	shift.DifferenceCents = scanNullInt64(difference)
	return &shift, nil
}

func (s *Store) ActiveShiftForUser(ctx context.Context, userID int64) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts s
		JOIN users u ON u.id = s.user_id
		WHERE s.user_id = $1 AND s.active = true AND s.end_time IS NULL
	`, userID)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return shift, nil
}

func (s *Store) GetShiftByID(ctx context.Context, shiftID int64) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`, shiftID)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return shift, nil
}

func (s *Store) ShiftSalesSummary(ctx context.Context, shiftID int64) (*domain.ShiftSalesSummary, error) {
	var summary domain.ShiftSalesSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents), 0), COALESCE(SUM(discount_cents), 0),
			COALESCE(SUM(promo_discount_cents), 0)
		FROM sales
		WHERE shift_id = $1 AND status = $2
	`, shiftID, domain.SaleStatusCompleted).
		Scan(&summary.TotalSalesCents, &summary.TotalDiscountCents, &summary.TotalPromoDiscountCents)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.method, COALESCE(SUM(p.amount_cents), 0)
		FROM payments p
		JOIN sales s ON s.id = p.sale_id
		WHERE s.shift_id = $1 AND s.status = $2
		GROUP BY p.method
	`, shiftID, domain.SaleStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var total int64
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		switch method {
		case domain.PaymentCash:
			summary.CashSalesCents = total
		case domain.PaymentCard:
			summary.CardSalesCents = total
		case domain.PaymentStoreCredit:
			summary.CreditSalesCents = total
		}
	}
	return &summary, rows.Err()
}

func (s *Store) ShiftCustomerPayments(ctx context.Context, shiftID int64) (*domain.CustomerPaymentsSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT method, COALESCE(SUM(amount_cents), 0)
		FROM customer_payments
		WHERE shift_id = $1
		GROUP BY method
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summary domain.CustomerPaymentsSummary
	for rows.Next() {
		var method string
		var total int64
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		switch method {
		case domain.PaymentCash:
			summary.CashCents = total
		case domain.PaymentCard:
			summary.CardCents = total
		}
	}
	return &summary, rows.Err()
}

// CloseShift persists the computed Z-report onto the shift row. The guard
// keeps the close idempotent: a second attempt matches zero rows.
func (s *Store) CloseShift(ctx context.Context, report domain.ZReport) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shifts SET
			end_time = now(),
			ending_cash_cents = $2,
			total_sales_cents = $3,
			cash_sales_cents = $4,
			card_sales_cents = $5,
			credit_sales_cents = $6,
			cash_payments_cents = $7,
			card_payments_cents = $8,
			difference_cents = $9,
			notes = $10,
			active = false
		WHERE id = $1 AND active = true AND end_time IS NULL
	`, report.ShiftID, report.CountedCashCents, report.TotalSalesCents, report.CashSalesCents,
		report.CardSalesCents, report.CreditSalesCents, report.CashPaymentsCents,
		report.CardPaymentsCents, report.DifferenceCents, nullIfEmpty(report.Notes))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("shift %d not open: %w", report.ShiftID, store.ErrInvalidTransaction)
	}
	return nil
}
