package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
	"github.com/Kafisabah/HSP/internal/xid"
)

// FinalizeSale writes the whole sale in one serializable transaction: header,
// items, stock decrements for paid and free units, payments, store-credit
// balance, coupon consumption and loyalty accrual. Loyalty is the only
// best-effort step; everything else aborts the transaction on failure.
func (s *Store) FinalizeSale(ctx context.Context, draft domain.SaleDraft) (*domain.Sale, error) {
	if len(draft.Lines) == 0 || len(draft.Payments) == 0 {
		return nil, store.ErrInvalidTransaction
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	totalCents := maxInt64(0, draft.SubtotalCents-draft.DiscountCents-draft.PromoDiscountCents)

	sale := domain.Sale{
		ReceiptNo:          draft.ReceiptNo,
		CustomerID:         draft.CustomerID,
		UserID:             draft.UserID,
		ShiftID:            draft.ShiftID,
		TotalCents:         totalCents,
		DiscountCents:      draft.DiscountCents,
		PromoDiscountCents: draft.PromoDiscountCents,
		CustomerCouponID:   draft.CustomerCouponID,
		PromotionID:        draft.PromotionID,
		Status:             domain.SaleStatusCompleted,
	}
	if sale.ReceiptNo == "" {
		sale.ReceiptNo = xid.New("fis")
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales (receipt_no, customer_id, user_id, shift_id, total_cents, discount_cents,
			promo_discount_cents, customer_coupon_id, promotion_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
		RETURNING id, created_at
	`, sale.ReceiptNo, nullInt64(sale.CustomerID), sale.UserID, nullInt64(sale.ShiftID),
		sale.TotalCents, sale.DiscountCents, sale.PromoDiscountCents,
		nullInt64(sale.CustomerCouponID), nullInt64(sale.PromotionID), sale.Status).
		Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()

	for _, line := range draft.Lines {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidTransaction
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4)
		`, sale.ID, line.ProductID, line.Quantity, line.UnitPriceCents)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("product %d: %w", line.ProductID, store.ErrInvalidTransaction)
			}
			return nil, err
		}
	}

	// Free promotion units never appear as sale items, they only leave stock.
	deductions := make(map[int64]int64, len(draft.Lines))
	for _, line := range draft.Lines {
		deductions[line.ProductID] += line.Quantity
	}
	for _, free := range draft.FreeItems {
		if free.Quantity < 1 {
			continue
		}
		deductions[free.ProductID] += free.Quantity
	}
	if err := s.deductStock(ctx, tx, deductions); err != nil {
		return nil, err
	}

	storeCreditCents := int64(0)
	for _, payment := range draft.Payments {
		if payment.AmountCents < 0 {
			return nil, store.ErrInvalidTransaction
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (sale_id, method, amount_cents, status)
			VALUES ($1,$2,$3,$4)
		`, sale.ID, payment.Method, payment.AmountCents, domain.SaleStatusCompleted)
		if err != nil {
			return nil, err
		}
		if payment.Method == domain.PaymentStoreCredit {
			storeCreditCents += payment.AmountCents
		}
	}

	if storeCreditCents > 0 {
		if draft.CustomerID == nil {
			return nil, store.ErrInvalidTransaction
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE customers SET balance_cents = balance_cents + $1 WHERE id = $2
		`, storeCreditCents, *draft.CustomerID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("customer %d: %w", *draft.CustomerID, store.ErrInvalidTransaction)
		}
	}

	if draft.CustomerID != nil && draft.LoyaltyPoints > 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE customers SET loyalty_points = loyalty_points + $1 WHERE id = $2
		`, draft.LoyaltyPoints, *draft.CustomerID)
		if err != nil {
			return nil, err
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			log.Printf("[sale] WARN: loyalty accrual skipped, customer %d missing", *draft.CustomerID)
		}
	}

	if draft.CustomerCouponID != nil {
		if draft.CustomerID == nil {
			return nil, store.ErrInvalidTransaction
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE customer_coupons
			SET status = $1, used_sale_id = $2, used_at = now()
			WHERE id = $3 AND customer_id = $4 AND status = $5
		`, domain.CouponStatusUsed, sale.ID, *draft.CustomerCouponID, *draft.CustomerID, domain.CouponStatusAvailable)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("coupon %d not available: %w", *draft.CustomerCouponID, store.ErrInvalidTransaction)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) deductStock(ctx context.Context, tx *sql.Tx, deductions map[int64]int64) error {
	ids := make([]int64, 0, len(deductions))
	for id := range deductions {
		ids = append(ids, id)
	}
	// Deterministic lock order across concurrent checkouts.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		qty := deductions[id]
		if s.allowNegativeStock {
			var remaining int64
			err := tx.QueryRowContext(ctx, `
				UPDATE products SET stock = stock - $1, updated_at = now()
				WHERE id = $2
				RETURNING stock
			`, qty, id).Scan(&remaining)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("product %d: %w", id, store.ErrInvalidTransaction)
				}
				return err
			}
			if remaining < 0 {
				log.Printf("[stock] WARN: product %d stock below zero (%d)", id, remaining)
			}
			continue
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $1, updated_at = now()
			WHERE id = $2 AND stock >= $1
		`, qty, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT true FROM products WHERE id = $1`, id).Scan(&exists); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("product %d: %w", id, store.ErrInvalidTransaction)
				}
				return err
			}
			return fmt.Errorf("product %d: %w", id, store.ErrInsufficientStock)
		}
	}
	return nil
}

func (s *Store) GetSaleDetail(ctx context.Context, saleID int64) (*domain.SaleDetail, error) {
	var detail domain.SaleDetail
	var customerID, shiftID, couponID, promoID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, receipt_no, customer_id, user_id, shift_id, total_cents, discount_cents,
			promo_discount_cents, customer_coupon_id, promotion_id, status, created_at
		FROM sales
		WHERE id = $1
	`, saleID).Scan(&detail.Sale.ID, &detail.Sale.ReceiptNo, &customerID, &detail.Sale.UserID,
		&shiftID, &detail.Sale.TotalCents, &detail.Sale.DiscountCents, &detail.Sale.PromoDiscountCents,
		&couponID, &promoID, &detail.Sale.Status, &detail.Sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	detail.Sale.CustomerID = scanNullInt64(customerID)
	detail.Sale.ShiftID = scanNullInt64(shiftID)
	detail.Sale.CustomerCouponID = scanNullInt64(couponID)
	detail.Sale.PromotionID = scanNullInt64(promoID)
	detail.Sale.CreatedAt = detail.Sale.CreatedAt.UTC()

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, quantity, unit_price_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		detail.Items = append(detail.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, method, amount_cents, status
		FROM payments
		WHERE sale_id = $1
		ORDER BY id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer paymentRows.Close()
	for paymentRows.Next() {
		var payment domain.Payment
		if err := paymentRows.Scan(&payment.ID, &payment.SaleID, &payment.Method, &payment.AmountCents, &payment.Status); err != nil {
			return nil, err
		}
		detail.Payments = append(detail.Payments, payment)
	}
	return &detail, paymentRows.Err()
}

// ProcessSaleReturn restocks a completed sale and reverses its side effects.
// The row lock plus the status guard make the return at-most-once even under
// concurrent attempts.
func (s *Store) ProcessSaleReturn(ctx context.Context, draft domain.ReturnDraft) (*domain.Return, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var customerID sql.NullInt64
	var totalCents int64
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT customer_id, total_cents, status
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, draft.SaleID).Scan(&customerID, &totalCents, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("sale %d already %s: %w", draft.SaleID, status, store.ErrInvalidTransaction)
	}

	ret := domain.Return{
		OriginalSaleID: draft.SaleID,
		CustomerID:     scanNullInt64(customerID),
		AmountCents:    totalCents,
		Reason:         draft.Reason,
		Notes:          draft.Notes,
		UserID:         draft.UserID,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO returns (original_sale_id, customer_id, amount_cents, reason, notes, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
		RETURNING id, created_at
	`, ret.OriginalSaleID, customerID, ret.AmountCents, ret.Reason, nullIfEmpty(ret.Notes), ret.UserID).
		Scan(&ret.ID, &ret.CreatedAt)
	if err != nil {
		return nil, err
	}
	ret.CreatedAt = ret.CreatedAt.UTC()

	itemRows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity FROM sale_items WHERE sale_id = $1 ORDER BY product_id
	`, draft.SaleID)
	if err != nil {
		return nil, err
	}
	type restockItem struct {
		productID int64
		quantity  int64
	}
	items := make([]restockItem, 0, 8)
	for itemRows.Next() {
		var item restockItem
		if err := itemRows.Scan(&item.productID, &item.quantity); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	for _, item := range items {
		if item.quantity < 1 {
			log.Printf("[return] WARN: sale %d item product %d has quantity %d, skipped", draft.SaleID, item.productID, item.quantity)
			continue
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock + $1, updated_at = now() WHERE id = $2
		`, item.quantity, item.productID)
		if err != nil {
			return nil, err
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			log.Printf("[return] WARN: sale %d restock skipped, product %d missing", draft.SaleID, item.productID)
		}
	}

	if ret.CustomerID != nil && ret.AmountCents > 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE customers SET balance_cents = balance_cents - $1 WHERE id = $2
		`, ret.AmountCents, *ret.CustomerID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("customer %d: %w", *ret.CustomerID, store.ErrInvalidTransaction)
		}
	}

	// Releasing a consumed coupon is best effort; sales without one match
	// zero rows here.
	_, err = tx.ExecContext(ctx, `
		UPDATE customer_coupons
		SET status = $1, used_sale_id = NULL, used_at = NULL
		WHERE used_sale_id = $2 AND status = $3
	`, domain.CouponStatusAvailable, draft.SaleID, domain.CouponStatusUsed)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE sales SET status = $1 WHERE id = $2 AND status = $3
	`, domain.SaleStatusReturned, draft.SaleID, domain.SaleStatusCompleted)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrInvalidTransaction
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payments SET status = $1 WHERE sale_id = $2
	`, domain.SaleStatusReturned, draft.SaleID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (s *Store) ListSalesByShift(ctx context.Context, shiftID int64) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receipt_no, customer_id, user_id, shift_id, total_cents, discount_cents,
			promo_discount_cents, customer_coupon_id, promotion_id, status, created_at
		FROM sales
		WHERE shift_id = $1
		ORDER BY created_at
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		var customerID, saleShiftID, couponID, promoID sql.NullInt64
		if err := rows.Scan(&sale.ID, &sale.ReceiptNo, &customerID, &sale.UserID, &saleShiftID,
			&sale.TotalCents, &sale.DiscountCents, &sale.PromoDiscountCents,
			&couponID, &promoID, &sale.Status, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CustomerID = scanNullInt64(customerID)
		sale.ShiftID = scanNullInt64(saleShiftID)
		sale.CustomerCouponID = scanNullInt64(couponID)
		sale.PromotionID = scanNullInt64(promoID)
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) DailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error) {
	start := dateUTC(day)
	end := start.Add(24 * time.Hour)

	summary := domain.DailySummary{Date: start}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(total_cents + discount_cents + promo_discount_cents), 0),
			COALESCE(SUM(discount_cents), 0),
			COALESCE(SUM(promo_discount_cents), 0),
			COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE status = $1 AND created_at >= $2 AND created_at < $3
	`, domain.SaleStatusCompleted, start, end).
		Scan(&summary.SaleCount, &summary.GrossCents, &summary.DiscountCents,
			&summary.PromoDiscountCents, &summary.NetCents)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
