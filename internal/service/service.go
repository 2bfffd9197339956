package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Kafisabah/HSP/internal/cache"
	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/promotion"
	"github.com/Kafisabah/HSP/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo            store.Repository
	productCache    cache.ProductCache
	promos          *promotion.Engine
	cacheTTL        time.Duration
	loyaltyEarnRate float64
}

func New(repo store.Repository, productCache cache.ProductCache, cacheTTL time.Duration, loyaltyEarnRate float64) *Service {
	if productCache == nil {
		productCache = cache.NoopProductCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	if loyaltyEarnRate < 0 {
		loyaltyEarnRate = 0
	}

	return &Service{
		repo:            repo,
		productCache:    productCache,
		promos:          promotion.NewEngine(repo),
		cacheTTL:        cacheTTL,
		loyaltyEarnRate: loyaltyEarnRate,
	}
}

func (s *Service) requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == 0 {
		return domain.Actor{}, fmt.Errorf("login required")
	}
	return actor, nil
}

func (s *Service) requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.Actor{}, fmt.Errorf("admin role required")
	}
	return actor, nil
}

func (s *Service) logAudit(ctx context.Context, action string, details string) {
	var userID *int64
	if actor, ok := ActorFromContext(ctx); ok && actor.UserID != 0 {
		id := actor.UserID
		userID = &id
	}
	err := s.repo.AppendActivity(ctx, domain.ActivityLog{UserID: userID, Action: action, Details: details})
	if err != nil {
		log.Printf("[audit] WARN: failed to append %s: %v", action, err)
	}
}

// ProductByBarcode serves the scan path, so lookups go through the cache.
func (s *Service) ProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, store.ErrInvalidTransaction
	}

	if cached, ok, err := s.productCache.Get(ctx, barcode); err == nil && ok {
		return cached, nil
	}

	product, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if err := s.productCache.Set(ctx, barcode, product, s.cacheTTL); err != nil {
		log.Printf("[cache] WARN: failed to cache product %s: %v", barcode, err)
	}
	return product, nil
}

func (s *Service) invalidateProduct(ctx context.Context, barcode string) {
	if barcode == "" {
		return
	}
	if err := s.productCache.Invalidate(ctx, barcode); err != nil {
		log.Printf("[cache] WARN: failed to invalidate product %s: %v", barcode, err)
	}
}

func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	product.Barcode = strings.TrimSpace(product.Barcode)
	product.Name = strings.TrimSpace(product.Name)
	if product.Barcode == "" || product.Name == "" {
		return nil, store.ErrInvalidTransaction
	}
	if product.Stock < 0 || product.MinStockLevel < 0 {
		return nil, store.ErrInvalidTransaction
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "product_create", fmt.Sprintf("barcode=%s,name=%s,price=%d", created.Barcode, created.Name, created.PriceCents))
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProduct(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.invalidateProduct(ctx, updated.Barcode)
	s.logAudit(ctx, "product_update", fmt.Sprintf("id=%d,barcode=%s", updated.ID, updated.Barcode))
	return updated, nil
}

func (s *Service) SetProductActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}

	if err := s.repo.SetProductActive(ctx, id, active); err != nil {
		return err
	}
	if product, err := s.repo.GetProductByID(ctx, id); err == nil {
		s.invalidateProduct(ctx, product.Barcode)
	}
	s.logAudit(ctx, "product_set_active", fmt.Sprintf("id=%d,active=%t", id, active))
	return nil
}

func (s *Service) SetStockLevel(ctx context.Context, id int64, stock int64) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}

	if err := s.repo.SetStockLevel(ctx, id, stock); err != nil {
		return err
	}
	if product, err := s.repo.GetProductByID(ctx, id); err == nil {
		s.invalidateProduct(ctx, product.Barcode)
	}
	s.logAudit(ctx, "stock_set", fmt.Sprintf("id=%d,stock=%d", id, stock))
	return nil
}

func (s *Service) SearchProducts(ctx context.Context, query string, includeInactive bool) ([]domain.Product, error) {
	return s.repo.SearchProducts(ctx, query, includeInactive)
}

func (s *Service) CreateBrand(ctx context.Context, name string) (*domain.Brand, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrInvalidTransaction
	}
	brand, err := s.repo.CreateBrand(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "brand_create", fmt.Sprintf("id=%d,name=%s", brand.ID, brand.Name))
	return brand, nil
}

func (s *Service) ListBrands(ctx context.Context, includeInactive bool) ([]domain.Brand, error) {
	return s.repo.ListBrands(ctx, includeInactive)
}

func (s *Service) SetBrandActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.SetBrandActive(ctx, id, active); err != nil {
		return err
	}
	s.logAudit(ctx, "brand_set_active", fmt.Sprintf("id=%d,active=%t", id, active))
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrInvalidTransaction
	}
	category, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "category_create", fmt.Sprintf("id=%d,name=%s", category.ID, category.Name))
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, includeInactive)
}

func (s *Service) SetCategoryActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.SetCategoryActive(ctx, id, active); err != nil {
		return err
	}
	s.logAudit(ctx, "category_set_active", fmt.Sprintf("id=%d,active=%t", id, active))
	return nil
}

func (s *Service) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	supplier.Name = strings.TrimSpace(supplier.Name)
	if supplier.Name == "" {
		return nil, store.ErrInvalidTransaction
	}
	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "supplier_create", fmt.Sprintf("id=%d,name=%s", created.ID, created.Name))
	return created, nil
}

func (s *Service) ListSuppliers(ctx context.Context, includeInactive bool) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx, includeInactive)
}

func (s *Service) SetSupplierActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.SetSupplierActive(ctx, id, active); err != nil {
		return err
	}
	s.logAudit(ctx, "supplier_set_active", fmt.Sprintf("id=%d,active=%t", id, active))
	return nil
}

func (s *Service) CreatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	created, err := s.repo.CreatePromotion(ctx, promo)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "promotion_create", fmt.Sprintf("id=%d,name=%s,type=%s", created.ID, created.Name, created.Type))
	return created, nil
}

func (s *Service) ListPromotions(ctx context.Context, includeInactive bool) ([]domain.Promotion, error) {
	return s.repo.ListPromotions(ctx, includeInactive)
}

func (s *Service) SetPromotionActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.SetPromotionActive(ctx, id, active); err != nil {
		return err
	}
	s.logAudit(ctx, "promotion_set_active", fmt.Sprintf("id=%d,active=%t", id, active))
	return nil
}

func (s *Service) RecordPurchase(ctx context.Context, draft domain.PurchaseDraft) (*domain.Purchase, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	draft.UserID = actor.UserID

	purchase, err := s.repo.RecordPurchase(ctx, draft)
	if err != nil {
		return nil, err
	}
	for _, item := range draft.Items {
		if product, err := s.repo.GetProductByID(ctx, item.ProductID); err == nil {
			s.invalidateProduct(ctx, product.Barcode)
		}
	}
	s.logAudit(ctx, "purchase_record", fmt.Sprintf("id=%d,total_cost=%d,items=%d", purchase.ID, purchase.TotalCostCents, len(draft.Items)))
	return purchase, nil
}

func (s *Service) LastCostPrice(ctx context.Context, productID int64) (int64, error) {
	return s.repo.LastCostPrice(ctx, productID)
}

func (s *Service) StockReport(ctx context.Context, belowMinOnly bool) ([]domain.StockReportRow, error) {
	return s.repo.StockReport(ctx, belowMinOnly)
}

func (s *Service) DailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error) {
	return s.repo.DailySummary(ctx, day)
}

func (s *Service) ListActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListActivity(ctx, limit)
}
