package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

const promotionColumns = `id, name, type, product_id, required_quantity, discount_cents,
	required_buy_qty, free_quantity, free_product_id, start_date, end_date, active`

func scanPromotion(row interface{ Scan(...any) error }) (*domain.Promotion, error) {
	var p domain.Promotion
	var freeProductID sql.NullInt64
	var startDate, endDate sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.ProductID, &p.RequiredQuantity, &p.DiscountCents,
		&p.RequiredBuyQty, &p.FreeQuantity, &freeProductID, &startDate, &endDate, &p.Active)
	if err != nil {
		return nil, err
	}
	p.FreeProductID = scanNullInt64(freeProductID)
	p.StartDate = scanNullTime(startDate)
	p.EndDate = scanNullTime(endDate)
	return &p, nil
}

func (s *Store) CreatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if promo.Name == "" || promo.ProductID == 0 {
		return nil, store.ErrInvalidTransaction
	}
	switch promo.Type {
	case domain.PromoQuantityDiscount:
		if promo.RequiredQuantity < 1 || promo.DiscountCents < 1 {
			return nil, store.ErrInvalidTransaction
		}
	case domain.PromoBuyXGetYFree:
		if promo.RequiredBuyQty < 1 || promo.FreeQuantity < 1 {
			return nil, store.ErrInvalidTransaction
		}
	default:
		return nil, store.ErrInvalidTransaction
	}

	promo.Active = true
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO promotions (name, type, product_id, required_quantity, discount_cents,
			required_buy_qty, free_quantity, free_product_id, start_date, end_date, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,true)
		RETURNING id
	`, promo.Name, promo.Type, promo.ProductID, promo.RequiredQuantity, promo.DiscountCents,
		promo.RequiredBuyQty, promo.FreeQuantity, nullInt64(promo.FreeProductID),
		nullDate(promo.StartDate), nullDate(promo.EndDate)).Scan(&promo.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &promo, nil
}

func (s *Store) ListPromotions(ctx context.Context, includeInactive bool) ([]domain.Promotion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE active = true OR $1
		ORDER BY name
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := make([]domain.Promotion, 0, 16)
	for rows.Next() {
		promo, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, *promo)
	}
	return promos, rows.Err()
}

func (s *Store) SetPromotionActive(ctx context.Context, id int64, active bool) error {
	return s.setActive(ctx, "promotions", id, active)
}

func (s *Store) ActivePromotionsForProduct(ctx context.Context, productID int64, at time.Time) ([]domain.Promotion, error) {
	day := dateUTC(at)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE product_id = $1 AND active = true
			AND (start_date IS NULL OR start_date <= $2)
			AND (end_date IS NULL OR end_date >= $2)
		ORDER BY id
	`, productID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := make([]domain.Promotion, 0, 4)
	for rows.Next() {
		promo, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, *promo)
	}
	return promos, rows.Err()
}
