package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

// RecordPurchase writes the goods-in header and items and increases stock in
// one transaction. Unit costs stay on the items so LastCostPrice and the
// stock report can read them back.
func (s *Store) RecordPurchase(ctx context.Context, draft domain.PurchaseDraft) (*domain.Purchase, error) {
	if len(draft.Items) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	for _, item := range draft.Items {
		if item.ProductID == 0 || item.Quantity < 1 || item.UnitCostCents < 0 {
			return nil, store.ErrInvalidTransaction
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	totalCostCents := int64(0)
	for _, item := range draft.Items {
		totalCostCents += item.Quantity * item.UnitCostCents
	}

	purchase := domain.Purchase{
		SupplierID:     draft.SupplierID,
		InvoiceNo:      draft.InvoiceNo,
		UserID:         draft.UserID,
		TotalCostCents: totalCostCents,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO purchases (supplier_id, invoice_no, user_id, total_cost_cents, created_at)
		VALUES ($1,$2,$3,$4,now())
		RETURNING id, created_at
	`, nullInt64(purchase.SupplierID), nullIfEmpty(purchase.InvoiceNo), purchase.UserID, totalCostCents).
		Scan(&purchase.ID, &purchase.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}
	purchase.CreatedAt = purchase.CreatedAt.UTC()

	for _, item := range draft.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_cost_cents, expiry_date)
			VALUES ($1,$2,$3,$4,$5)
		`, purchase.ID, item.ProductID, item.Quantity, item.UnitCostCents, nullDate(item.ExpiryDate))
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("product %d: %w", item.ProductID, store.ErrInvalidTransaction)
			}
			return nil, err
		}

		var stock int64
		err = tx.QueryRowContext(ctx, `
			UPDATE products SET stock = stock + $1, updated_at = now()
			WHERE id = $2
			RETURNING stock
		`, item.Quantity, item.ProductID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("product %d: %w", item.ProductID, store.ErrInvalidTransaction)
			}
			return nil, err
		}
		if stock < 0 {
			log.Printf("[purchase] WARN: product %d still below zero after goods-in (%d)", item.ProductID, stock)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (s *Store) LastCostPrice(ctx context.Context, productID int64) (int64, error) {
	var cost int64
	err := s.db.QueryRowContext(ctx, `
		SELECT pi.unit_cost_cents
		FROM purchase_items pi
		JOIN purchases pu ON pu.id = pi.purchase_id
		WHERE pi.product_id = $1
		ORDER BY pu.created_at DESC, pi.id DESC
		LIMIT 1
	`, productID).Scan(&cost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return cost, nil
}
