package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
	"github.com/Kafisabah/HSP/internal/xid"
)

type Store struct {
	mu                 sync.RWMutex
	allowNegativeStock bool
	seq                int64

	products           map[int64]domain.Product
	productIDByBarcode map[string]int64
	brands             map[int64]domain.Brand
	categories         map[int64]domain.Category
	suppliers          map[int64]domain.Supplier
	customers          map[int64]domain.Customer
	coupons            map[int64]domain.Coupon
	customerCoupons    map[int64]domain.CustomerCoupon
	promotions         map[int64]domain.Promotion
	sales              map[int64]domain.Sale
	saleItems          map[int64][]domain.SaleItem
	payments           map[int64][]domain.Payment
	returns            map[int64]domain.Return
	customerPayments   []domain.CustomerPayment
	shifts             map[int64]domain.Shift
	purchases          map[int64]domain.Purchase
	purchaseItems      map[int64][]domain.PurchaseItem
	users              map[int64]domain.UserAccount
	userIDByUsername   map[string]int64
	activity           []domain.ActivityLog
}

// NewSeeded builds an in-memory repository preloaded with demo users and a
// small catalog. Seed credentials come from SEED_ADMIN_PASSWORD and
// SEED_CASHIER_PASSWORD; dev defaults are used with a warning when unset.
func NewSeeded() *Store {
	s := &Store{
		allowNegativeStock: true,
		products:           make(map[int64]domain.Product),
		productIDByBarcode: make(map[string]int64),
		brands:             make(map[int64]domain.Brand),
		categories:         make(map[int64]domain.Category),
		suppliers:          make(map[int64]domain.Supplier),
		customers:          make(map[int64]domain.Customer),
		coupons:            make(map[int64]domain.Coupon),
		customerCoupons:    make(map[int64]domain.CustomerCoupon),
		promotions:         make(map[int64]domain.Promotion),
		sales:              make(map[int64]domain.Sale),
		saleItems:          make(map[int64][]domain.SaleItem),
		payments:           make(map[int64][]domain.Payment),
		returns:            make(map[int64]domain.Return),
		customerPayments:   make([]domain.CustomerPayment, 0, 32),
		shifts:             make(map[int64]domain.Shift),
		purchases:          make(map[int64]domain.Purchase),
		purchaseItems:      make(map[int64][]domain.PurchaseItem),
		users:              make(map[int64]domain.UserAccount),
		userIDByUsername:   make(map[string]int64),
		activity:           make([]domain.ActivityLog, 0, 128),
	}

	now := time.Now().UTC()
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "kasiyer123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}
	for _, u := range []struct {
		username string
		fullName string
		password string
		role     string
	}{
		{"admin", "Yönetici", adminPwd, domain.RoleAdmin},
		{"kasiyer", "Kasiyer", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		id := s.nextID()
		s.users[id] = domain.UserAccount{
			ID: id, Username: u.username, FullName: u.fullName,
			PasswordHash: string(hash), Role: u.role, Active: true, CreatedAt: now,
		}
		s.userIDByUsername[u.username] = id
	}

	for _, p := range []domain.Product{
		{Barcode: "8690504011001", Name: "Çay 1kg", PriceCents: 18500, PriceExVATCents: 17130, VATRatePercent: 8, Stock: 60, MinStockLevel: 10},
		{Barcode: "8690504011002", Name: "Toz Şeker 1kg", PriceCents: 4200, PriceExVATCents: 3889, VATRatePercent: 8, Stock: 120, MinStockLevel: 20},
		{Barcode: "8690504011003", Name: "Ayçiçek Yağı 1L", PriceCents: 9900, PriceExVATCents: 9167, VATRatePercent: 8, Stock: 40, MinStockLevel: 8},
		{Barcode: "8690504011004", Name: "Makarna 500g", PriceCents: 1500, PriceExVATCents: 1389, VATRatePercent: 8, Stock: 200, MinStockLevel: 30},
		{Barcode: "8690504011005", Name: "Su 5L", PriceCents: 2500, PriceExVATCents: 2315, VATRatePercent: 8, Stock: 80, MinStockLevel: 15},
		{Barcode: "8690504011006", Name: "Çikolata 80g", PriceCents: 3500, PriceExVATCents: 2917, VATRatePercent: 20, Stock: 90, MinStockLevel: 12},
	} {
		id := s.nextID()
		p.ID = id
		p.Active = true
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[id] = p
		s.productIDByBarcode[p.Barcode] = id
	}

	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetAllowNegativeStock toggles oversell. Seeded stores allow it, matching
// the default configuration.
func (s *Store) SetAllowNegativeStock(allow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowNegativeStock = allow
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// --- products ---

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Barcode == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidTransaction
	}
	if product.VATRatePercent < 0 || product.VATRatePercent > 100 {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productIDByBarcode[product.Barcode]; exists {
		return nil, fmt.Errorf("barcode %s: %w", product.Barcode, store.ErrDuplicate)
	}
	if err := s.checkProductRefs(product.BrandID, product.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product.ID = s.nextID()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	s.productIDByBarcode[product.Barcode] = product.ID

	created := product
	return &created, nil
}

func (s *Store) checkProductRefs(brandID *int64, categoryID *int64) error {
	if brandID != nil {
		if _, ok := s.brands[*brandID]; !ok {
			return store.ErrInvalidTransaction
		}
	}
	if categoryID != nil {
		if _, ok := s.categories[*categoryID]; !ok {
			return store.ErrInvalidTransaction
		}
	}
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := s.checkProductRefs(update.BrandID, update.CategoryID); err != nil {
		return nil, err
	}

	if update.Name != nil {
		if *update.Name == "" {
			return nil, store.ErrInvalidTransaction
		}
		product.Name = *update.Name
	}
	if update.BrandID != nil {
		product.BrandID = update.BrandID
	}
	if update.CategoryID != nil {
		product.CategoryID = update.CategoryID
	}
	if update.PriceCents != nil {
		product.PriceCents = *update.PriceCents
	}
	if update.PriceExVATCents != nil {
		product.PriceExVATCents = *update.PriceExVATCents
	}
	if update.VATRatePercent != nil {
		if *update.VATRatePercent < 0 || *update.VATRatePercent > 100 {
			return nil, store.ErrInvalidTransaction
		}
		product.VATRatePercent = *update.VATRatePercent
	}
	if update.MinStockLevel != nil {
		product.MinStockLevel = *update.MinStockLevel
	}
	if update.Active != nil {
		product.Active = *update.Active
	}
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product

	updated := product
	return &updated, nil
}

func (s *Store) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productIDByBarcode[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := s.products[id]
	return &copied, nil
}

func (s *Store) SearchProducts(_ context.Context, query string, includeInactive bool) ([]domain.Product, error) {
	query = strings.TrimSpace(strings.ToLower(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, 32)
	for _, product := range s.products {
		if !includeInactive && !product.Active {
			continue
		}
		if query != "" && product.Barcode != query && !strings.Contains(strings.ToLower(product.Name), query) {
			continue
		}
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) SetProductActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	product.Active = active
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	return nil
}

func (s *Store) SetStockLevel(_ context.Context, id int64, stock int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	product.Stock = stock
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	return nil
}

func (s *Store) UpsertProductByBarcode(_ context.Context, product domain.Product) (*domain.Product, bool, error) {
	if product.Barcode == "" || product.Name == "" {
		return nil, false, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if id, exists := s.productIDByBarcode[product.Barcode]; exists {
		existing := s.products[id]
		product.ID = id
		product.CreatedAt = existing.CreatedAt
		product.UpdatedAt = now
		s.products[id] = product
		copied := product
		return &copied, false, nil
	}

	product.ID = s.nextID()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	s.productIDByBarcode[product.Barcode] = product.ID
	copied := product
	return &copied, true, nil
}

// --- brands, categories, suppliers ---

func (s *Store) CreateBrand(_ context.Context, name string) (*domain.Brand, error) {
	if name == "" {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, brand := range s.brands {
		if strings.EqualFold(brand.Name, name) {
			return nil, fmt.Errorf("brand %s: %w", name, store.ErrDuplicate)
		}
	}
	brand := domain.Brand{ID: s.nextID(), Name: name, Active: true}
	s.brands[brand.ID] = brand
	return &brand, nil
}

func (s *Store) ListBrands(_ context.Context, includeInactive bool) ([]domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Brand, 0, len(s.brands))
	for _, brand := range s.brands {
		if !includeInactive && !brand.Active {
			continue
		}
		result = append(result, brand)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetBrandByName(_ context.Context, name string) (*domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, brand := range s.brands {
		if strings.EqualFold(brand.Name, name) {
			copied := brand
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetBrandActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	brand, ok := s.brands[id]
	if !ok {
		return store.ErrNotFound
	}
	brand.Active = active
	s.brands[id] = brand
	return nil
}

func (s *Store) CreateCategory(_ context.Context, name string) (*domain.Category, error) {
	if name == "" {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, category := range s.categories {
		if strings.EqualFold(category.Name, name) {
			return nil, fmt.Errorf("category %s: %w", name, store.ErrDuplicate)
		}
	}
	category := domain.Category{ID: s.nextID(), Name: name, Active: true}
	s.categories[category.ID] = category
	return &category, nil
}

func (s *Store) ListCategories(_ context.Context, includeInactive bool) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Category, 0, len(s.categories))
	for _, category := range s.categories {
		if !includeInactive && !category.Active {
			continue
		}
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetCategoryByName(_ context.Context, name string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, category := range s.categories {
		if strings.EqualFold(category.Name, name) {
			copied := category
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetCategoryActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[id]
	if !ok {
		return store.ErrNotFound
	}
	category.Active = active
	s.categories[id] = category
	return nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.suppliers {
		if strings.EqualFold(existing.Name, supplier.Name) {
			return nil, fmt.Errorf("supplier %s: %w", supplier.Name, store.ErrDuplicate)
		}
	}
	supplier.ID = s.nextID()
	supplier.Active = true
	s.suppliers[supplier.ID] = supplier
	copied := supplier
	return &copied, nil
}

func (s *Store) ListSuppliers(_ context.Context, includeInactive bool) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Supplier, 0, len(s.suppliers))
	for _, supplier := range s.suppliers {
		if !includeInactive && !supplier.Active {
			continue
		}
		result = append(result, supplier)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) SetSupplierActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	supplier, ok := s.suppliers[id]
	if !ok {
		return store.ErrNotFound
	}
	supplier.Active = active
	s.suppliers[id] = supplier
	return nil
}

// --- customers ---

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer.ID = s.nextID()
	customer.BalanceCents = 0
	customer.LoyaltyPoints = 0
	customer.Active = true
	customer.CreatedAt = time.Now().UTC()
	s.customers[customer.ID] = customer
	copied := customer
	return &copied, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := customer
	return &copied, nil
}

func (s *Store) SearchCustomers(_ context.Context, query string, includeInactive bool) ([]domain.Customer, error) {
	query = strings.TrimSpace(strings.ToLower(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Customer, 0, 16)
	for _, customer := range s.customers {
		if !includeInactive && !customer.Active {
			continue
		}
		if query != "" && customer.Phone != query && !strings.Contains(strings.ToLower(customer.Name), query) {
			continue
		}
		result = append(result, customer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) SetCustomerActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return store.ErrNotFound
	}
	customer.Active = active
	s.customers[id] = customer
	return nil
}

func (s *Store) RecordCustomerPayment(_ context.Context, payment domain.CustomerPayment) (*domain.CustomerPayment, error) {
	if payment.AmountCents < 1 {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[payment.CustomerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer.BalanceCents -= payment.AmountCents
	s.customers[payment.CustomerID] = customer

	payment.ID = s.nextID()
	payment.CreatedAt = time.Now().UTC()
	s.customerPayments = append(s.customerPayments, payment)
	copied := payment
	return &copied, nil
}

func (s *Store) CustomerLedger(_ context.Context, customerID int64, limit int) ([]domain.LedgerEntry, error) {
	if limit < 1 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.LedgerEntry, 0, 32)
	for _, sale := range s.sales {
		if sale.CustomerID != nil && *sale.CustomerID == customerID {
			entries = append(entries, domain.LedgerEntry{Kind: "sale", RefID: sale.ID, AmountCents: sale.TotalCents, OccurredAt: sale.CreatedAt})
		}
	}
	for _, payment := range s.customerPayments {
		if payment.CustomerID == customerID {
			entries = append(entries, domain.LedgerEntry{Kind: "payment", RefID: payment.ID, AmountCents: payment.AmountCents, OccurredAt: payment.CreatedAt})
		}
	}
	for _, ret := range s.returns {
		if ret.CustomerID != nil && *ret.CustomerID == customerID {
			entries = append(entries, domain.LedgerEntry{Kind: "return", RefID: ret.ID, AmountCents: ret.AmountCents, OccurredAt: ret.CreatedAt})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].OccurredAt.After(entries[j].OccurredAt) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// --- coupons ---

func (s *Store) CreateCoupon(_ context.Context, coupon domain.Coupon) (*domain.Coupon, error) {
	if coupon.Code == "" || coupon.DiscountCents < 1 {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.coupons {
		if existing.Code == coupon.Code {
			return nil, fmt.Errorf("coupon %s: %w", coupon.Code, store.ErrDuplicate)
		}
	}
	coupon.ID = s.nextID()
	coupon.Active = true
	s.coupons[coupon.ID] = coupon
	copied := coupon
	return &copied, nil
}

func (s *Store) ListCoupons(_ context.Context, includeInactive bool) ([]domain.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Coupon, 0, len(s.coupons))
	for _, coupon := range s.coupons {
		if !includeInactive && !coupon.Active {
			continue
		}
		result = append(result, coupon)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) AssignCouponToCustomer(_ context.Context, customerID int64, couponID int64) (*domain.CustomerCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coupon, ok := s.coupons[couponID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.customers[customerID]; !ok {
		return nil, store.ErrNotFound
	}

	cc := domain.CustomerCoupon{
		ID:            s.nextID(),
		CustomerID:    customerID,
		CouponID:      couponID,
		Status:        domain.CouponStatusAvailable,
		Code:          coupon.Code,
		DiscountCents: coupon.DiscountCents,
	}
	s.customerCoupons[cc.ID] = cc
	copied := cc
	return &copied, nil
}

func (s *Store) AvailableCustomerCoupons(_ context.Context, customerID int64, at time.Time) ([]domain.CustomerCoupon, error) {
	day := dateUTC(at)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CustomerCoupon, 0, 8)
	for _, cc := range s.customerCoupons {
		if cc.CustomerID != customerID || cc.Status != domain.CouponStatusAvailable {
			continue
		}
		coupon, ok := s.coupons[cc.CouponID]
		if !ok || !coupon.Active {
			continue
		}
		if coupon.ExpiryDate != nil && dateUTC(*coupon.ExpiryDate).Before(day) {
			continue
		}
		result = append(result, cc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) GetCustomerCoupon(_ context.Context, id int64) (*domain.CustomerCoupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cc, ok := s.customerCoupons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := cc
	return &copied, nil
}

// --- promotions ---

func (s *Store) CreatePromotion(_ context.Context, promo domain.Promotion) (*domain.Promotion, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[promo.ProductID]; !ok {
		return nil, store.ErrNotFound
	}
	promo.ID = s.nextID()
	promo.Active = true
	s.promotions[promo.ID] = promo
	copied := promo
	return &copied, nil
}

func (s *Store) ListPromotions(_ context.Context, includeInactive bool) ([]domain.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Promotion, 0, len(s.promotions))
	for _, promo := range s.promotions {
		if !includeInactive && !promo.Active {
			continue
		}
		result = append(result, promo)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) SetPromotionActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	promo, ok := s.promotions[id]
	if !ok {
		return store.ErrNotFound
	}
	promo.Active = active
	s.promotions[id] = promo
	return nil
}

func (s *Store) ActivePromotionsForProduct(_ context.Context, productID int64, at time.Time) ([]domain.Promotion, error) {
	day := dateUTC(at)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Promotion, 0, 4)
	for _, promo := range s.promotions {
		if promo.ProductID != productID || !promo.Active {
			continue
		}
		if promo.StartDate != nil && dateUTC(*promo.StartDate).After(day) {
			continue
		}
		if promo.EndDate != nil && dateUTC(*promo.EndDate).Before(day) {
			continue
		}
		result = append(result, promo)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// --- sales ---

// FinalizeSale checks every precondition before the first mutation so a
// failing checkout leaves the store untouched.
func (s *Store) FinalizeSale(_ context.Context, draft domain.SaleDraft) (*domain.Sale, error) {
	if len(draft.Lines) == 0 || len(draft.Payments) == 0 {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deductions := make(map[int64]int64, len(draft.Lines))
	for _, line := range draft.Lines {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidTransaction
		}
		deductions[line.ProductID] += line.Quantity
	}
	for _, free := range draft.FreeItems {
		if free.Quantity < 1 {
			continue
		}
		deductions[free.ProductID] += free.Quantity
	}
	for productID, qty := range deductions {
		product, ok := s.products[productID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", productID, store.ErrInvalidTransaction)
		}
		if !s.allowNegativeStock && product.Stock < qty {
			return nil, fmt.Errorf("product %d: %w", productID, store.ErrInsufficientStock)
		}
	}

	storeCreditCents := int64(0)
	for _, payment := range draft.Payments {
		if payment.AmountCents < 0 {
			return nil, store.ErrInvalidTransaction
		}
		if payment.Method == domain.PaymentStoreCredit {
			storeCreditCents += payment.AmountCents
		}
	}
	if storeCreditCents > 0 && draft.CustomerID == nil {
		return nil, store.ErrInvalidTransaction
	}
	if draft.CustomerID != nil {
		if _, ok := s.customers[*draft.CustomerID]; !ok {
			return nil, fmt.Errorf("customer %d: %w", *draft.CustomerID, store.ErrInvalidTransaction)
		}
	}
	if draft.CustomerCouponID != nil {
		if draft.CustomerID == nil {
			return nil, store.ErrInvalidTransaction
		}
		cc, ok := s.customerCoupons[*draft.CustomerCouponID]
		if !ok || cc.CustomerID != *draft.CustomerID || cc.Status != domain.CouponStatusAvailable {
			return nil, fmt.Errorf("coupon %d not available: %w", *draft.CustomerCouponID, store.ErrInvalidTransaction)
		}
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:                 s.nextID(),
		ReceiptNo:          draft.ReceiptNo,
		CustomerID:         draft.CustomerID,
		UserID:             draft.UserID,
		ShiftID:            draft.ShiftID,
		TotalCents:         maxInt64(0, draft.SubtotalCents-draft.DiscountCents-draft.PromoDiscountCents),
		DiscountCents:      draft.DiscountCents,
		PromoDiscountCents: draft.PromoDiscountCents,
		CustomerCouponID:   draft.CustomerCouponID,
		PromotionID:        draft.PromotionID,
		Status:             domain.SaleStatusCompleted,
		CreatedAt:          now,
	}
	if sale.ReceiptNo == "" {
		sale.ReceiptNo = xid.New("fis")
	}
	s.sales[sale.ID] = sale

	items := make([]domain.SaleItem, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		items = append(items, domain.SaleItem{
			ID:             s.nextID(),
			SaleID:         sale.ID,
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	s.saleItems[sale.ID] = items

	for productID, qty := range deductions {
		product := s.products[productID]
		product.Stock -= qty
		product.UpdatedAt = now
		s.products[productID] = product
		if product.Stock < 0 {
			log.Printf("[stock] WARN: product %d stock below zero (%d)", productID, product.Stock)
		}
	}

	payments := make([]domain.Payment, 0, len(draft.Payments))
	for _, entry := range draft.Payments {
		payments = append(payments, domain.Payment{
			ID:          s.nextID(),
			SaleID:      sale.ID,
			Method:      entry.Method,
			AmountCents: entry.AmountCents,
			Status:      domain.SaleStatusCompleted,
		})
	}
	s.payments[sale.ID] = payments

	if draft.CustomerID != nil {
		customer := s.customers[*draft.CustomerID]
		if storeCreditCents > 0 {
			customer.BalanceCents += storeCreditCents
		}
		if draft.LoyaltyPoints > 0 {
			customer.LoyaltyPoints += draft.LoyaltyPoints
		}
		s.customers[*draft.CustomerID] = customer
	}

	if draft.CustomerCouponID != nil {
		cc := s.customerCoupons[*draft.CustomerCouponID]
		cc.Status = domain.CouponStatusUsed
		saleID := sale.ID
		cc.UsedSaleID = &saleID
		usedAt := now
		cc.UsedAt = &usedAt
		s.customerCoupons[*draft.CustomerCouponID] = cc
	}

	copied := sale
	return &copied, nil
}

func (s *Store) GetSaleDetail(_ context.Context, saleID int64) (*domain.SaleDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	detail := domain.SaleDetail{Sale: sale}
	detail.Items = append(detail.Items, s.saleItems[saleID]...)
	detail.Payments = append(detail.Payments, s.payments[saleID]...)
	return &detail, nil
}

func (s *Store) ProcessSaleReturn(_ context.Context, draft domain.ReturnDraft) (*domain.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[draft.SaleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("sale %d already %s: %w", draft.SaleID, sale.Status, store.ErrInvalidTransaction)
	}
	if sale.CustomerID != nil && sale.TotalCents > 0 {
		if _, ok := s.customers[*sale.CustomerID]; !ok {
			return nil, fmt.Errorf("customer %d: %w", *sale.CustomerID, store.ErrInvalidTransaction)
		}
	}

	now := time.Now().UTC()
	ret := domain.Return{
		ID:             s.nextID(),
		OriginalSaleID: draft.SaleID,
		CustomerID:     sale.CustomerID,
		AmountCents:    sale.TotalCents,
		Reason:         draft.Reason,
		Notes:          draft.Notes,
		UserID:         draft.UserID,
		CreatedAt:      now,
	}
	s.returns[ret.ID] = ret

	for _, item := range s.saleItems[draft.SaleID] {
		if item.Quantity < 1 {
			log.Printf("[return] WARN: sale %d item product %d has quantity %d, skipped", draft.SaleID, item.ProductID, item.Quantity)
			continue
		}
		product, ok := s.products[item.ProductID]
		if !ok {
			log.Printf("[return] WARN: sale %d restock skipped, product %d missing", draft.SaleID, item.ProductID)
			continue
		}
		product.Stock += item.Quantity
		product.UpdatedAt = now
		s.products[item.ProductID] = product
	}

	if ret.CustomerID != nil && ret.AmountCents > 0 {
		customer := s.customers[*ret.CustomerID]
		customer.BalanceCents -= ret.AmountCents
		s.customers[*ret.CustomerID] = customer
	}

	for id, cc := range s.customerCoupons {
		if cc.UsedSaleID != nil && *cc.UsedSaleID == draft.SaleID && cc.Status == domain.CouponStatusUsed {
			cc.Status = domain.CouponStatusAvailable
			cc.UsedSaleID = nil
			cc.UsedAt = nil
			s.customerCoupons[id] = cc
		}
	}

	sale.Status = domain.SaleStatusReturned
	s.sales[draft.SaleID] = sale

	payments := s.payments[draft.SaleID]
	for i := range payments {
		payments[i].Status = domain.SaleStatusReturned
	}
	s.payments[draft.SaleID] = payments

	copied := ret
	return &copied, nil
}

func (s *Store) ListSalesByShift(_ context.Context, shiftID int64) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, 32)
	for _, sale := range s.sales {
		if sale.ShiftID != nil && *sale.ShiftID == shiftID {
			result = append(result, sale)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DailySummary(_ context.Context, day time.Time) (*domain.DailySummary, error) {
	start := dateUTC(day)
	end := start.Add(24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.DailySummary{Date: start}
	for _, sale := range s.sales {
		if sale.Status != domain.SaleStatusCompleted {
			continue
		}
		if sale.CreatedAt.Before(start) || !sale.CreatedAt.Before(end) {
			continue
		}
		summary.SaleCount++
		summary.GrossCents += sale.TotalCents + sale.DiscountCents + sale.PromoDiscountCents
		summary.DiscountCents += sale.DiscountCents
		summary.PromoDiscountCents += sale.PromoDiscountCents
		summary.NetCents += sale.TotalCents
	}
	return &summary, nil
}

// --- shifts ---

func (s *Store) StartShift(_ context.Context, userID int64, startingCashCents int64) (*domain.Shift, error) {
	if startingCashCents < 0 {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, store.ErrInvalidTransaction
	}
	for _, shift := range s.shifts {
		if shift.UserID == userID && shift.Active && shift.EndTime == nil {
			return nil, fmt.Errorf("user %d already has open shift %d: %w", userID, shift.ID, store.ErrDuplicate)
		}
	}

	shift := domain.Shift{
		ID:                s.nextID(),
		UserID:            userID,
		Username:          user.Username,
		FullName:          user.FullName,
		StartTime:         time.Now().UTC(),
		StartingCashCents: startingCashCents,
		Active:            true,
	}
	s.shifts[shift.ID] = shift
	copied := shift
	return &copied, nil
}

func (s *Store) ActiveShiftForUser(_ context.Context, userID int64) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, shift := range s.shifts {
		if shift.UserID == userID && shift.Active && shift.EndTime == nil {
			copied := shift
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetShiftByID(_ context.Context, shiftID int64) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, ok := s.shifts[shiftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := shift
	return &copied, nil
}

func (s *Store) ShiftSalesSummary(_ context.Context, shiftID int64) (*domain.ShiftSalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary domain.ShiftSalesSummary
	for _, sale := range s.sales {
		if sale.ShiftID == nil || *sale.ShiftID != shiftID || sale.Status != domain.SaleStatusCompleted {
			continue
		}
		summary.TotalSalesCents += sale.TotalCents
		summary.TotalDiscountCents += sale.DiscountCents
		summary.TotalPromoDiscountCents += sale.PromoDiscountCents
		for _, payment := range s.payments[sale.ID] {
			switch payment.Method {
			case domain.PaymentCash:
				summary.CashSalesCents += payment.AmountCents
			case domain.PaymentCard:
				summary.CardSalesCents += payment.AmountCents
			case domain.PaymentStoreCredit:
				summary.CreditSalesCents += payment.AmountCents
			}
		}
	}
	return &summary, nil
}

func (s *Store) ShiftCustomerPayments(_ context.Context, shiftID int64) (*domain.CustomerPaymentsSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary domain.CustomerPaymentsSummary
	for _, payment := range s.customerPayments {
		if payment.ShiftID == nil || *payment.ShiftID != shiftID {
			continue
		}
		switch payment.Method {
		case domain.PaymentCash:
			summary.CashCents += payment.AmountCents
		case domain.PaymentCard:
			summary.CardCents += payment.AmountCents
		}
	}
	return &summary, nil
}

func (s *Store) CloseShift(_ context.Context, report domain.ZReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	shift, ok := s.shifts[report.ShiftID]
	if !ok {
		return store.ErrNotFound
	}
	if !shift.Active || shift.EndTime != nil {
		return fmt.Errorf("shift %d not open: %w", report.ShiftID, store.ErrInvalidTransaction)
	}

	now := time.Now().UTC()
	shift.EndTime = &now
	counted := report.CountedCashCents
	shift.EndingCashCents = &counted
	shift.TotalSalesCents = report.TotalSalesCents
	shift.CashSalesCents = report.CashSalesCents
	shift.CardSalesCents = report.CardSalesCents
	shift.CreditSalesCents = report.CreditSalesCents
	shift.CashPaymentsCents = report.CashPaymentsCents
	shift.CardPaymentsCents = report.CardPaymentsCents
	difference := report.DifferenceCents
	shift.DifferenceCents = &difference
	shift.Notes = report.Notes
	shift.Active = false
	s.shifts[report.ShiftID] = shift
	return nil
}

// --- purchases ---

func (s *Store) RecordPurchase(_ context.Context, draft domain.PurchaseDraft) (*domain.Purchase, error) {
	if len(draft.Items) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	for _, item := range draft.Items {
		if item.ProductID == 0 || item.Quantity < 1 || item.UnitCostCents < 0 {
			return nil, store.ErrInvalidTransaction
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range draft.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, store.ErrInvalidTransaction)
		}
	}
	if draft.SupplierID != nil {
		if _, ok := s.suppliers[*draft.SupplierID]; !ok {
			return nil, store.ErrInvalidTransaction
		}
	}

	now := time.Now().UTC()
	purchase := domain.Purchase{
		ID:         s.nextID(),
		SupplierID: draft.SupplierID,
		InvoiceNo:  draft.InvoiceNo,
		UserID:     draft.UserID,
		CreatedAt:  now,
	}

	items := make([]domain.PurchaseItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		purchase.TotalCostCents += item.Quantity * item.UnitCostCents
		items = append(items, domain.PurchaseItem{
			ID:            s.nextID(),
			PurchaseID:    purchase.ID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitCostCents: item.UnitCostCents,
			ExpiryDate:    item.ExpiryDate,
		})
		product := s.products[item.ProductID]
		product.Stock += item.Quantity
		product.UpdatedAt = now
		s.products[item.ProductID] = product
	}
	s.purchases[purchase.ID] = purchase
	s.purchaseItems[purchase.ID] = items

	copied := purchase
	return &copied, nil
}

func (s *Store) LastCostPrice(_ context.Context, productID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Purchase
	var cost int64
	found := false
	for purchaseID, items := range s.purchaseItems {
		purchase := s.purchases[purchaseID]
		for _, item := range items {
			if item.ProductID != productID {
				continue
			}
			if latest == nil || purchase.CreatedAt.After(latest.CreatedAt) {
				p := purchase
				latest = &p
				cost = item.UnitCostCents
				found = true
			}
		}
	}
	if !found {
		return 0, store.ErrNotFound
	}
	return cost, nil
}

func (s *Store) StockReport(_ context.Context, belowMinOnly bool) ([]domain.StockReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockReportRow, 0, len(s.products))
	for _, product := range s.products {
		if !product.Active {
			continue
		}
		if belowMinOnly && product.Stock >= product.MinStockLevel {
			continue
		}
		row := domain.StockReportRow{
			ProductID:      product.ID,
			Barcode:        product.Barcode,
			Name:           product.Name,
			Stock:          product.Stock,
			MinStockLevel:  product.MinStockLevel,
			SuggestedOrder: maxInt64(0, product.MinStockLevel-product.Stock),
		}
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// --- users, activity ---

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	if user.Username == "" || user.PasswordHash == "" {
		return nil, store.ErrInvalidTransaction
	}
	if user.Role != domain.RoleAdmin && user.Role != domain.RoleCashier {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.userIDByUsername[user.Username]; exists {
		return nil, fmt.Errorf("username %s: %w", user.Username, store.ErrDuplicate)
	}
	user.ID = s.nextID()
	user.Active = true
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = user
	s.userIDByUsername[user.Username] = user.ID
	copied := user
	return &copied, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := s.users[id]
	return &copied, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (s *Store) SetUserActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Active = active
	s.users[id] = user
	return nil
}

func (s *Store) AppendActivity(_ context.Context, entry domain.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextID()
	entry.CreatedAt = time.Now().UTC()
	s.activity = append(s.activity, entry)
	return nil
}

func (s *Store) ListActivity(_ context.Context, limit int) ([]domain.ActivityLog, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ActivityLog, 0, limit)
	for i := len(s.activity) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.activity[i])
	}
	return result, nil
}

func maxInt64(a int64, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func dateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}
