package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

const customerColumns = `id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''),
	balance_cents, loyalty_points, active, created_at`

func scanCustomer(row interface{ Scan(...any) error }) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address,
		&c.BalanceCents, &c.LoyaltyPoints, &c.Active, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidTransaction
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, email, address, balance_cents, loyalty_points, active, created_at)
		VALUES ($1,$2,$3,$4,0,0,true,now())
		RETURNING `+customerColumns+`
	`, customer.Name, nullIfEmpty(customer.Phone), nullIfEmpty(customer.Email), nullIfEmpty(customer.Address))

	created, err := scanCustomer(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("customer %s: %w", customer.Name, store.ErrDuplicate)
		}
		return nil, err
	}
	return created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return customer, nil
}

func (s *Store) SearchCustomers(ctx context.Context, query string, includeInactive bool) ([]domain.Customer, error) {
	query = strings.TrimSpace(query)
	filter := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR phone = $1)`
	if !includeInactive {
		filter += ` AND active = true`
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+` FROM customers `+filter+` ORDER BY name
	`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *customer)
	}
	return customers, rows.Err()
}

func (s *Store) SetCustomerActive(ctx context.Context, id int64, active bool) error {
	return s.setActive(ctx, "customers", id, active)
}

// RecordCustomerPayment lowers the customer's debt and writes the payment row
// in one transaction so the Z-report and the ledger never disagree.
func (s *Store) RecordCustomerPayment(ctx context.Context, payment domain.CustomerPayment) (*domain.CustomerPayment, error) {
	if payment.AmountCents < 1 {
		return nil, store.ErrInvalidTransaction
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE customers SET balance_cents = balance_cents - $1 WHERE id = $2
	`, payment.AmountCents, payment.CustomerID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO customer_payments (customer_id, amount_cents, method, notes, shift_id, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
		RETURNING id, created_at
	`, payment.CustomerID, payment.AmountCents, payment.Method, nullIfEmpty(payment.Notes),
		nullInt64(payment.ShiftID), payment.UserID).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return nil, err
	}
	payment.CreatedAt = payment.CreatedAt.UTC()

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *Store) CustomerLedger(ctx context.Context, customerID int64, limit int) ([]domain.LedgerEntry, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, ref_id, amount_cents, occurred_at FROM (
			SELECT 'sale' AS kind, id AS ref_id, total_cents AS amount_cents, created_at AS occurred_at
			FROM sales WHERE customer_id = $1
			UNION ALL
			SELECT 'payment', id, amount_cents, created_at
			FROM customer_payments WHERE customer_id = $1
			UNION ALL
			SELECT 'return', id, amount_cents, created_at
			FROM returns WHERE customer_id = $1
		) ledger
		ORDER BY occurred_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, limit)
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.Kind, &entry.RefID, &entry.AmountCents, &entry.OccurredAt); err != nil {
			return nil, err
		}
		entry.OccurredAt = entry.OccurredAt.UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) CreateCoupon(ctx context.Context, coupon domain.Coupon) (*domain.Coupon, error) {
	if coupon.Code == "" || coupon.DiscountCents < 1 {
		return nil, store.ErrInvalidTransaction
	}
	coupon.Active = true
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO coupons (code, description, discount_cents, expiry_date, active)
		VALUES ($1,$2,$3,$4,true)
		RETURNING id
	`, coupon.Code, nullIfEmpty(coupon.Description), coupon.DiscountCents, nullDate(coupon.ExpiryDate)).
		Scan(&coupon.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("coupon %s: %w", coupon.Code, store.ErrDuplicate)
		}
		return nil, err
	}
	return &coupon, nil
}

func (s *Store) ListCoupons(ctx context.Context, includeInactive bool) ([]domain.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, COALESCE(description, ''), discount_cents, expiry_date, active
		FROM coupons
		WHERE active = true OR $1
		ORDER BY code
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coupons := make([]domain.Coupon, 0, 16)
	for rows.Next() {
		var c domain.Coupon
		var expiry sql.NullTime
		if err := rows.Scan(&c.ID, &c.Code, &c.Description, &c.DiscountCents, &expiry, &c.Active); err != nil {
			return nil, err
		}
		c.ExpiryDate = scanNullTime(expiry)
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func (s *Store) AssignCouponToCustomer(ctx context.Context, customerID int64, couponID int64) (*domain.CustomerCoupon, error) {
	cc := domain.CustomerCoupon{CustomerID: customerID, CouponID: couponID, Status: domain.CouponStatusAvailable}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customer_coupons (customer_id, coupon_id, status)
		VALUES ($1,$2,$3)
		RETURNING id
	`, customerID, couponID, domain.CouponStatusAvailable).Scan(&cc.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT code, discount_cents FROM coupons WHERE id = $1
	`, couponID).Scan(&cc.Code, &cc.DiscountCents)
	if err != nil {
		return nil, err
	}
	return &cc, nil
}

func (s *Store) AvailableCustomerCoupons(ctx context.Context, customerID int64, at time.Time) ([]domain.CustomerCoupon, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cc.id, cc.customer_id, cc.coupon_id, cc.status, cc.used_sale_id, cc.used_at,
			c.code, c.discount_cents
		FROM customer_coupons cc
		JOIN coupons c ON c.id = cc.coupon_id
		WHERE cc.customer_id = $1 AND cc.status = $2 AND c.active = true
			AND (c.expiry_date IS NULL OR c.expiry_date >= $3)
		ORDER BY c.code
	`, customerID, domain.CouponStatusAvailable, dateUTC(at))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coupons := make([]domain.CustomerCoupon, 0, 8)
	for rows.Next() {
		cc, err := scanCustomerCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *cc)
	}
	return coupons, rows.Err()
}

func (s *Store) GetCustomerCoupon(ctx context.Context, id int64) (*domain.CustomerCoupon, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT cc.id, cc.customer_id, cc.coupon_id, cc.status, cc.used_sale_id, cc.used_at,
			c.code, c.discount_cents
		FROM customer_coupons cc
		JOIN coupons c ON c.id = cc.coupon_id
		WHERE cc.id = $1
	`, id)
	cc, err := scanCustomerCoupon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return cc, nil
}

func scanCustomerCoupon(row interface{ Scan(...any) error }) (*domain.CustomerCoupon, error) {
	var cc domain.CustomerCoupon
	var usedSaleID sql.NullInt64
	var usedAt sql.NullTime
	err := row.Scan(&cc.ID, &cc.CustomerID, &cc.CouponID, &cc.Status, &usedSaleID, &usedAt,
		&cc.Code, &cc.DiscountCents)
	if err != nil {
		return nil, err
	}
	cc.UsedSaleID = scanNullInt64(usedSaleID)
	cc.UsedAt = scanNullTime(usedAt)
	return &cc, nil
}
