package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

const productColumns = `id, barcode, name, brand_id, category_id, price_cents, price_ex_vat_cents,
	vat_rate_percent, stock, min_stock_level, active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	var brandID, categoryID sql.NullInt64
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &brandID, &categoryID, &p.PriceCents,
		&p.PriceExVATCents, &p.VATRatePercent, &p.Stock, &p.MinStockLevel, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.BrandID = scanNullInt64(brandID)
	p.CategoryID = scanNullInt64(categoryID)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Barcode == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidTransaction
	}
	if product.VATRatePercent < 0 || product.VATRatePercent > 100 {
		return nil, store.ErrInvalidTransaction
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (barcode, name, brand_id, category_id, price_cents, price_ex_vat_cents,
			vat_rate_percent, stock, min_stock_level, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,true,now(),now())
		RETURNING `+productColumns+`
	`, product.Barcode, product.Name, nullInt64(product.BrandID), nullInt64(product.CategoryID),
		product.PriceCents, product.PriceExVATCents, product.VATRatePercent,
		product.Stock, product.MinStockLevel)

	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("barcode %s: %w", product.Barcode, store.ErrDuplicate)
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error) {
	var vatRate any
	if update.VATRatePercent != nil {
		if *update.VATRatePercent < 0 || *update.VATRatePercent > 100 {
			return nil, store.ErrInvalidTransaction
		}
		vatRate = *update.VATRatePercent
	}
	var name any
	if update.Name != nil {
		if *update.Name == "" {
			return nil, store.ErrInvalidTransaction
		}
		name = *update.Name
	}
	var active any
	if update.Active != nil {
		active = *update.Active
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE products SET
			name = COALESCE($2, name),
			brand_id = COALESCE($3, brand_id),
			category_id = COALESCE($4, category_id),
			price_cents = COALESCE($5, price_cents),
			price_ex_vat_cents = COALESCE($6, price_ex_vat_cents),
			vat_rate_percent = COALESCE($7, vat_rate_percent),
			min_stock_level = COALESCE($8, min_stock_level),
			active = COALESCE($9, active),
			updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, name, nullInt64(update.BrandID), nullInt64(update.CategoryID),
		nullInt64(update.PriceCents), nullInt64(update.PriceExVATCents), vatRate,
		nullInt64(update.MinStockLevel), active)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) SearchProducts(ctx context.Context, query string, includeInactive bool) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	filter := `WHERE ($1 = '' OR barcode = $1 OR name ILIKE '%' || $1 || '%')`
	if !includeInactive {
		filter += ` AND active = true`
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		`+filter+`
		ORDER BY name
	`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) SetProductActive(ctx context.Context, id int64, active bool) error {
	return s.setActive(ctx, "products", id, active)
}

func (s *Store) SetStockLevel(ctx context.Context, id int64, stock int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET stock = $2, updated_at = now() WHERE id = $1
	`, id, stock)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpsertProductByBarcode adds the product or refreshes an existing row, used
// by the CSV import path. The bool reports whether a new row was created.
func (s *Store) UpsertProductByBarcode(ctx context.Context, product domain.Product) (*domain.Product, bool, error) {
	if product.Barcode == "" || product.Name == "" {
		return nil, false, store.ErrInvalidTransaction
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		UPDATE products SET
			name = $2, brand_id = $3, category_id = $4, price_cents = $5,
			price_ex_vat_cents = $6, vat_rate_percent = $7, stock = $8,
			min_stock_level = $9, active = $10, updated_at = now()
		WHERE barcode = $1
		RETURNING `+productColumns+`
	`, product.Barcode, product.Name, nullInt64(product.BrandID), nullInt64(product.CategoryID),
		product.PriceCents, product.PriceExVATCents, product.VATRatePercent,
		product.Stock, product.MinStockLevel, product.Active)

	updated, err := scanProduct(row)
	if err == nil {
		if err := tx.Commit(); err != nil {
			return nil, false, err
		}
		return updated, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	row = tx.QueryRowContext(ctx, `
		INSERT INTO products (barcode, name, brand_id, category_id, price_cents, price_ex_vat_cents,
			vat_rate_percent, stock, min_stock_level, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
		RETURNING `+productColumns+`
	`, product.Barcode, product.Name, nullInt64(product.BrandID), nullInt64(product.CategoryID),
		product.PriceCents, product.PriceExVATCents, product.VATRatePercent,
		product.Stock, product.MinStockLevel, product.Active)

	created, err := scanProduct(row)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *Store) CreateBrand(ctx context.Context, name string) (*domain.Brand, error) {
	brand := domain.Brand{Name: name, Active: true}
	if name == "" {
		return nil, store.ErrInvalidTransaction
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO brands (name, active) VALUES ($1, true) RETURNING id
	`, name).Scan(&brand.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("brand %s: %w", name, store.ErrDuplicate)
		}
		return nil, err
	}
	return &brand, nil
}

func (s *Store) ListBrands(ctx context.Context, includeInactive bool) ([]domain.Brand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, active FROM brands WHERE active = true OR $1 ORDER BY name
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brands := make([]domain.Brand, 0, 32)
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Active); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (s *Store) GetBrandByName(ctx context.Context, name string) (*domain.Brand, error) {
	var b domain.Brand
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, active FROM brands WHERE lower(name) = lower($1)
	`, name).Scan(&b.ID, &b.Name, &b.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Store) SetBrandActive(ctx context.Context, id int64, active bool) error {
	return s.setActive(ctx, "brands", id, active)
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	category := domain.Category{Name: name, Active: true}
	if name == "" {
		return nil, store.ErrInvalidTransaction
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, active) VALUES ($1, true) RETURNING id
	`, name).Scan(&category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %s: %w", name, store.ErrDuplicate)
		}
		return nil, err
	}
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, active FROM categories WHERE active = true OR $1 ORDER BY name
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Active); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, active FROM categories WHERE lower(name) = lower($1)
	`, name).Scan(&c.ID, &c.Name, &c.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) SetCategoryActive(ctx context.Context, id int64, active bool) error {
	return s.setActive(ctx, "categories", id, active)
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidTransaction
	}
	supplier.Active = true
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO suppliers (name, phone, email, address, active)
		VALUES ($1,$2,$3,$4,true)
		RETURNING id
	`, supplier.Name, nullIfEmpty(supplier.Phone), nullIfEmpty(supplier.Email),
		nullIfEmpty(supplier.Address)).Scan(&supplier.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("supplier %s: %w", supplier.Name, store.ErrDuplicate)
		}
		return nil, err
	}
	return &supplier, nil
}

func (s *Store) ListSuppliers(ctx context.Context, includeInactive bool) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), active
		FROM suppliers
		WHERE active = true OR $1
		ORDER BY name
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.Email, &sup.Address, &sup.Active); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *Store) SetSupplierActive(ctx context.Context, id int64, active bool) error {
	return s.setActive(ctx, "suppliers", id, active)
}

func (s *Store) StockReport(ctx context.Context, belowMinOnly bool) ([]domain.StockReportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.barcode, p.name, p.stock, p.min_stock_level, lc.unit_cost_cents
		FROM products p
		LEFT JOIN LATERAL (
			SELECT pi.unit_cost_cents
			FROM purchase_items pi
			JOIN purchases pu ON pu.id = pi.purchase_id
			WHERE pi.product_id = p.id
			ORDER BY pu.created_at DESC
			LIMIT 1
		) lc ON true
		WHERE p.active = true AND (NOT $1 OR p.stock < p.min_stock_level)
		ORDER BY p.name
	`, belowMinOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := make([]domain.StockReportRow, 0, 64)
	for rows.Next() {
		var row domain.StockReportRow
		var lastCost sql.NullInt64
		if err := rows.Scan(&row.ProductID, &row.Barcode, &row.Name, &row.Stock, &row.MinStockLevel, &lastCost); err != nil {
			return nil, err
		}
		row.LastCostCents = scanNullInt64(lastCost)
		row.SuggestedOrder = maxInt64(0, row.MinStockLevel-row.Stock)
		report = append(report, row)
	}
	return report, rows.Err()
}

func (s *Store) setActive(ctx context.Context, table string, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
