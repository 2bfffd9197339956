package store

import (
	"context"
	"errors"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("duplicate entry")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

type Repository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	SearchProducts(ctx context.Context, query string, includeInactive bool) ([]domain.Product, error)
	SetProductActive(ctx context.Context, id int64, active bool) error
	SetStockLevel(ctx context.Context, id int64, stock int64) error
	UpsertProductByBarcode(ctx context.Context, product domain.Product) (*domain.Product, bool, error)

	CreateBrand(ctx context.Context, name string) (*domain.Brand, error)
	ListBrands(ctx context.Context, includeInactive bool) ([]domain.Brand, error)
	GetBrandByName(ctx context.Context, name string) (*domain.Brand, error)
	SetBrandActive(ctx context.Context, id int64, active bool) error
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	SetCategoryActive(ctx context.Context, id int64, active bool) error
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context, includeInactive bool) ([]domain.Supplier, error)
	SetSupplierActive(ctx context.Context, id int64, active bool) error

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error)
	SearchCustomers(ctx context.Context, query string, includeInactive bool) ([]domain.Customer, error)
	SetCustomerActive(ctx context.Context, id int64, active bool) error
	RecordCustomerPayment(ctx context.Context, payment domain.CustomerPayment) (*domain.CustomerPayment, error)
	CustomerLedger(ctx context.Context, customerID int64, limit int) ([]domain.LedgerEntry, error)

	CreateCoupon(ctx context.Context, coupon domain.Coupon) (*domain.Coupon, error)
	ListCoupons(ctx context.Context, includeInactive bool) ([]domain.Coupon, error)
	AssignCouponToCustomer(ctx context.Context, customerID int64, couponID int64) (*domain.CustomerCoupon, error)
	AvailableCustomerCoupons(ctx context.Context, customerID int64, at time.Time) ([]domain.CustomerCoupon, error)
	GetCustomerCoupon(ctx context.Context, id int64) (*domain.CustomerCoupon, error)

	CreatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error)
	ListPromotions(ctx context.Context, includeInactive bool) ([]domain.Promotion, error)
	SetPromotionActive(ctx context.Context, id int64, active bool) error
	ActivePromotionsForProduct(ctx context.Context, productID int64, at time.Time) ([]domain.Promotion, error)

	FinalizeSale(ctx context.Context, draft domain.SaleDraft) (*domain.Sale, error)
	GetSaleDetail(ctx context.Context, saleID int64) (*domain.SaleDetail, error)
	ProcessSaleReturn(ctx context.Context, draft domain.ReturnDraft) (*domain.Return, error)
	ListSalesByShift(ctx context.Context, shiftID int64) ([]domain.Sale, error)

	StartShift(ctx context.Context, userID int64, startingCashCents int64) (*domain.Shift, error)
	ActiveShiftForUser(ctx context.Context, userID int64) (*domain.Shift, error)
	GetShiftByID(ctx context.Context, shiftID int64) (*domain.Shift, error)
	ShiftSalesSummary(ctx context.Context, shiftID int64) (*domain.ShiftSalesSummary, error)
	ShiftCustomerPayments(ctx context.Context, shiftID int64) (*domain.CustomerPaymentsSummary, error)
	CloseShift(ctx context.Context, report domain.ZReport) error

	RecordPurchase(ctx context.Context, draft domain.PurchaseDraft) (*domain.Purchase, error)
	LastCostPrice(ctx context.Context, productID int64) (int64, error)

	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	SetUserActive(ctx context.Context, id int64, active bool) error

	AppendActivity(ctx context.Context, entry domain.ActivityLog) error
	ListActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error)

	DailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error)
	StockReport(ctx context.Context, belowMinOnly bool) ([]domain.StockReportRow, error)
}
