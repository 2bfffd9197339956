package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/Kafisabah/HSP/internal/csvio"
	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

type ImportSummary struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Skipped []csvio.RowError `json:"skipped,omitempty"`
}

// ImportProductsCSV upserts products by barcode. Unknown brand and category
// names are created on the fly; rows that fail to parse or persist are
// reported back without stopping the rest of the file.
func (s *Service) ImportProductsCSV(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	rows, rowErrs, err := csvio.Parse(r)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{Skipped: rowErrs}
	for i, row := range rows {
		product := domain.Product{
			Barcode:         row.Barcode,
			Name:            row.Name,
			PriceCents:      row.PriceCents,
			PriceExVATCents: row.PriceExVATCents,
			VATRatePercent:  row.VATRatePercent,
			Stock:           row.Stock,
			MinStockLevel:   row.MinStockLevel,
			Active:          row.Active,
		}
		if row.Brand != "" {
			brand, err := s.resolveBrand(ctx, row.Brand)
			if err != nil {
				summary.Skipped = append(summary.Skipped, csvio.RowError{Line: i + 2, Err: fmt.Errorf("brand %s: %w", row.Brand, err)})
				continue
			}
			product.BrandID = &brand.ID
		}
		if row.Category != "" {
			category, err := s.resolveCategory(ctx, row.Category)
			if err != nil {
				summary.Skipped = append(summary.Skipped, csvio.RowError{Line: i + 2, Err: fmt.Errorf("category %s: %w", row.Category, err)})
				continue
			}
			product.CategoryID = &category.ID
		}

		_, created, err := s.repo.UpsertProductByBarcode(ctx, product)
		if err != nil {
			summary.Skipped = append(summary.Skipped, csvio.RowError{Line: i + 2, Err: err})
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
		s.invalidateProduct(ctx, product.Barcode)
	}

	s.logAudit(ctx, "products_import", fmt.Sprintf("created=%d,updated=%d,skipped=%d", summary.Created, summary.Updated, len(summary.Skipped)))
	return summary, nil
}

// ExportProductsCSV writes the whole catalog, inactive products included.
func (s *Service) ExportProductsCSV(ctx context.Context, w io.Writer) (int, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return 0, err
	}

	products, err := s.repo.SearchProducts(ctx, "", true)
	if err != nil {
		return 0, err
	}

	brandNames := make(map[int64]string)
	if brands, err := s.repo.ListBrands(ctx, true); err == nil {
		for _, brand := range brands {
			brandNames[brand.ID] = brand.Name
		}
	} else {
		log.Printf("[csv] WARN: list brands failed: %v", err)
	}
	categoryNames := make(map[int64]string)
	if categories, err := s.repo.ListCategories(ctx, true); err == nil {
		for _, category := range categories {
			categoryNames[category.ID] = category.Name
		}
	} else {
		log.Printf("[csv] WARN: list categories failed: %v", err)
	}

	rows := make([]csvio.Row, 0, len(products))
	for _, product := range products {
		row := csvio.Row{
			Barcode:         product.Barcode,
			Name:            product.Name,
			Stock:           product.Stock,
			PriceExVATCents: product.PriceExVATCents,
			VATRatePercent:  product.VATRatePercent,
			PriceCents:      product.PriceCents,
			MinStockLevel:   product.MinStockLevel,
			Active:          product.Active,
		}
		if product.BrandID != nil {
			row.Brand = brandNames[*product.BrandID]
		}
		if product.CategoryID != nil {
			row.Category = categoryNames[*product.CategoryID]
		}
		rows = append(rows, row)
	}

	if err := csvio.Write(w, rows); err != nil {
		return 0, err
	}
	s.logAudit(ctx, "products_export", fmt.Sprintf("rows=%d", len(rows)))
	return len(rows), nil
}

func (s *Service) resolveBrand(ctx context.Context, name string) (*domain.Brand, error) {
	brand, err := s.repo.GetBrandByName(ctx, name)
	if err == nil {
		return brand, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.repo.CreateBrand(ctx, name)
}

func (s *Service) resolveCategory(ctx context.Context, name string) (*domain.Category, error) {
	category, err := s.repo.GetCategoryByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.repo.CreateCategory(ctx, name)
}
