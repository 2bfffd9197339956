package domain

import "time"

const (
	PaymentCash        = "cash"
	PaymentCard        = "card"
	PaymentStoreCredit = "store_credit"
)

const (
	SaleStatusCompleted = "completed"
	SaleStatusReturned  = "returned"
)

const (
	CouponStatusAvailable = "available"
	CouponStatusUsed      = "used"
)

const (
	PromoQuantityDiscount = "quantity_discount"
	PromoBuyXGetYFree     = "buy_x_get_y_free"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type Brand struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type Supplier struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Active  bool   `json:"active"`
}

type Product struct {
	ID              int64     `json:"id"`
	Barcode         string    `json:"barcode"`
	Name            string    `json:"name"`
	BrandID         *int64    `json:"brand_id,omitempty"`
	CategoryID      *int64    `json:"category_id,omitempty"`
	PriceCents      int64     `json:"price_cents"`
	PriceExVATCents int64     `json:"price_ex_vat_cents"`
	VATRatePercent  float64   `json:"vat_rate_percent"`
	Stock           int64     `json:"stock"`
	MinStockLevel   int64     `json:"min_stock_level"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ProductUpdate struct {
	Name            *string  `json:"name,omitempty"`
	BrandID         *int64   `json:"brand_id,omitempty"`
	CategoryID      *int64   `json:"category_id,omitempty"`
	PriceCents      *int64   `json:"price_cents,omitempty"`
	PriceExVATCents *int64   `json:"price_ex_vat_cents,omitempty"`
	VATRatePercent  *float64 `json:"vat_rate_percent,omitempty"`
	MinStockLevel   *int64   `json:"min_stock_level,omitempty"`
	Active          *bool    `json:"active,omitempty"`
}

type Customer struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	BalanceCents  int64     `json:"balance_cents"`
	LoyaltyPoints int64     `json:"loyalty_points"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

type Coupon struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	Description   string     `json:"description,omitempty"`
	DiscountCents int64      `json:"discount_cents"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Active        bool       `json:"active"`
}

type CustomerCoupon struct {
	ID            int64      `json:"id"`
	CustomerID    int64      `json:"customer_id"`
	CouponID      int64      `json:"coupon_id"`
	Status        string     `json:"status"`
	UsedSaleID    *int64     `json:"used_sale_id,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	Code          string     `json:"code"`
	DiscountCents int64      `json:"discount_cents"`
}

type Promotion struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	ProductID        int64      `json:"product_id"`
	RequiredQuantity int64      `json:"required_quantity,omitempty"`
	DiscountCents    int64      `json:"discount_cents,omitempty"`
	RequiredBuyQty   int64      `json:"required_buy_qty,omitempty"`
	FreeQuantity     int64      `json:"free_quantity,omitempty"`
	FreeProductID    *int64     `json:"free_product_id,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	Active           bool       `json:"active"`
}

type CartLine struct {
	ProductID      int64  `json:"product_id"`
	Barcode        string `json:"barcode"`
	Name           string `json:"name"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

func (l CartLine) LineTotalCents() int64 {
	return l.Quantity * l.UnitPriceCents
}

type FreeItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type PaymentEntry struct {
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
}

type SaleDraft struct {
	Lines              []CartLine     `json:"lines"`
	SubtotalCents      int64          `json:"subtotal_cents"`
	DiscountCents      int64          `json:"discount_cents"`
	PromoDiscountCents int64          `json:"promo_discount_cents"`
	CustomerID         *int64         `json:"customer_id,omitempty"`
	CustomerCouponID   *int64         `json:"customer_coupon_id,omitempty"`
	PromotionID        *int64         `json:"promotion_id,omitempty"`
	FreeItems          []FreeItem     `json:"free_items,omitempty"`
	Payments           []PaymentEntry `json:"payments"`
	ShiftID            *int64         `json:"shift_id,omitempty"`
	UserID             int64          `json:"user_id"`
	LoyaltyPoints      int64          `json:"loyalty_points,omitempty"`
	ReceiptNo          string         `json:"receipt_no"`
}

type Sale struct {
	ID                 int64     `json:"id"`
	ReceiptNo          string    `json:"receipt_no"`
	CustomerID         *int64    `json:"customer_id,omitempty"`
	UserID             int64     `json:"user_id"`
	ShiftID            *int64    `json:"shift_id,omitempty"`
	TotalCents         int64     `json:"total_cents"`
	DiscountCents      int64     `json:"discount_cents"`
	PromoDiscountCents int64     `json:"promo_discount_cents"`
	CustomerCouponID   *int64    `json:"customer_coupon_id,omitempty"`
	PromotionID        *int64    `json:"promotion_id,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

type SaleItem struct {
	ID             int64 `json:"id"`
	SaleID         int64 `json:"sale_id"`
	ProductID      int64 `json:"product_id"`
	Quantity       int64 `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

type Payment struct {
	ID          int64  `json:"id"`
	SaleID      int64  `json:"sale_id"`
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}

type SaleDetail struct {
	Sale     Sale       `json:"sale"`
	Items    []SaleItem `json:"items"`
	Payments []Payment  `json:"payments"`
}

type ReturnDraft struct {
	SaleID int64  `json:"sale_id"`
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
	UserID int64  `json:"user_id"`
}

type Return struct {
	ID             int64     `json:"id"`
	OriginalSaleID int64     `json:"original_sale_id"`
	CustomerID     *int64    `json:"customer_id,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	Reason         string    `json:"reason"`
	Notes          string    `json:"notes,omitempty"`
	UserID         int64     `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type CustomerPayment struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
	Notes       string    `json:"notes,omitempty"`
	ShiftID     *int64    `json:"shift_id,omitempty"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type LedgerEntry struct {
	Kind        string    `json:"kind"`
	RefID       int64     `json:"ref_id"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Shift struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	Username          string     `json:"username,omitempty"`
	FullName          string     `json:"full_name,omitempty"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	StartingCashCents int64      `json:"starting_cash_cents"`
	EndingCashCents   *int64     `json:"ending_cash_cents,omitempty"`
	TotalSalesCents   int64      `json:"total_sales_cents"`
	CashSalesCents    int64      `json:"cash_sales_cents"`
	CardSalesCents    int64      `json:"card_sales_cents"`
	CreditSalesCents  int64      `json:"credit_sales_cents"`
	CashPaymentsCents int64      `json:"cash_payments_cents"`
	CardPaymentsCents int64      `json:"card_payments_cents"`
	DifferenceCents   *int64     `json:"difference_cents,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	Active            bool       `json:"active"`
}

type ShiftSalesSummary struct {
	TotalSalesCents         int64 `json:"total_sales_cents"`
	TotalDiscountCents      int64 `json:"total_discount_cents"`
	TotalPromoDiscountCents int64 `json:"total_promo_discount_cents"`
	CashSalesCents          int64 `json:"cash_sales_cents"`
	CardSalesCents          int64 `json:"card_sales_cents"`
	CreditSalesCents        int64 `json:"credit_sales_cents"`
}

type CustomerPaymentsSummary struct {
	CashCents int64 `json:"cash_cents"`
	CardCents int64 `json:"card_cents"`
}

type ZReport struct {
	ShiftID                 int64     `json:"shift_id"`
	Username                string    `json:"username"`
	FullName                string    `json:"full_name"`
	StartTime               time.Time `json:"start_time"`
	EndTime                 time.Time `json:"end_time"`
	StartingCashCents       int64     `json:"starting_cash_cents"`
	TotalSalesCents         int64     `json:"total_sales_cents"`
	TotalDiscountCents      int64     `json:"total_discount_cents"`
	TotalPromoDiscountCents int64     `json:"total_promo_discount_cents"`
	CashSalesCents          int64     `json:"cash_sales_cents"`
	CardSalesCents          int64     `json:"card_sales_cents"`
	CreditSalesCents        int64     `json:"credit_sales_cents"`
	CashPaymentsCents       int64     `json:"cash_payments_cents"`
	CardPaymentsCents       int64     `json:"card_payments_cents"`
	ExpectedCashCents       int64     `json:"expected_cash_cents"`
	CountedCashCents        int64     `json:"counted_cash_cents"`
	DifferenceCents         int64     `json:"difference_cents"`
	Notes                   string    `json:"notes,omitempty"`
}

type PurchaseItemDraft struct {
	ProductID     int64      `json:"product_id"`
	Quantity      int64      `json:"quantity"`
	UnitCostCents int64      `json:"unit_cost_cents"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

type PurchaseDraft struct {
	SupplierID *int64              `json:"supplier_id,omitempty"`
	InvoiceNo  string              `json:"invoice_no,omitempty"`
	UserID     int64               `json:"user_id"`
	Items      []PurchaseItemDraft `json:"items"`
}

type Purchase struct {
	ID             int64     `json:"id"`
	SupplierID     *int64    `json:"supplier_id,omitempty"`
	InvoiceNo      string    `json:"invoice_no,omitempty"`
	UserID         int64     `json:"user_id"`
	TotalCostCents int64     `json:"total_cost_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

type PurchaseItem struct {
	ID            int64      `json:"id"`
	PurchaseID    int64      `json:"purchase_id"`
	ProductID     int64      `json:"product_id"`
	Quantity      int64      `json:"quantity"`
	UnitCostCents int64      `json:"unit_cost_cents"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

type UserAccount struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Actor struct {
	UserID   int64
	Username string
	Role     string
}

type ActivityLog struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type DailySummary struct {
	Date               time.Time `json:"date"`
	SaleCount          int64     `json:"sale_count"`
	GrossCents         int64     `json:"gross_cents"`
	DiscountCents      int64     `json:"discount_cents"`
	PromoDiscountCents int64     `json:"promo_discount_cents"`
	NetCents           int64     `json:"net_cents"`
}

type StockReportRow struct {
	ProductID      int64  `json:"product_id"`
	Barcode        string `json:"barcode"`
	Name           string `json:"name"`
	Stock          int64  `json:"stock"`
	MinStockLevel  int64  `json:"min_stock_level"`
	LastCostCents  *int64 `json:"last_cost_cents,omitempty"`
	SuggestedOrder int64  `json:"suggested_order"`
}
