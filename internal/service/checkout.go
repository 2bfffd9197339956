package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/promotion"
)

type CheckoutRequest struct {
	Lines               []domain.CartLine     `json:"lines"`
	ManualDiscountCents int64                 `json:"manual_discount_cents"`
	CustomerID          *int64                `json:"customer_id,omitempty"`
	CustomerCouponID    *int64                `json:"customer_coupon_id,omitempty"`
	Payments            []domain.PaymentEntry `json:"payments"`
	ShiftID             *int64                `json:"shift_id,omitempty"`
}

type CheckoutResult struct {
	Sale               *domain.Sale      `json:"sale"`
	SubtotalCents      int64             `json:"subtotal_cents"`
	DiscountCents      int64             `json:"discount_cents"`
	PromoDiscountCents int64             `json:"promo_discount_cents"`
	TotalCents         int64             `json:"total_cents"`
	ChangeCents        int64             `json:"change_cents"`
	FreeItems          []domain.FreeItem `json:"free_items,omitempty"`
	LoyaltyPoints      int64             `json:"loyalty_points"`
}

type CartPreview struct {
	SubtotalCents      int64             `json:"subtotal_cents"`
	PromoDiscountCents int64             `json:"promo_discount_cents"`
	FreeItems          []domain.FreeItem `json:"free_items,omitempty"`
}

// PreviewCart prices a cart without touching any state, so the register can
// show the promotion outcome before asking for payment.
func (s *Service) PreviewCart(ctx context.Context, lines []domain.CartLine) CartPreview {
	preview := CartPreview{}
	for _, line := range lines {
		preview.SubtotalCents += line.LineTotalCents()
	}
	result := s.promos.Apply(ctx, lines, time.Now().UTC())
	preview.PromoDiscountCents = result.DiscountCents
	preview.FreeItems = result.FreeItems
	return preview
}

// Checkout validates the cart, prices promotions and hands the finished
// draft to the repository as one atomic write. Validation failures here never
// touch the database. Cash above the total comes back as change; the
// recorded payments always sum to the sale total.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}
	if len(req.Payments) == 0 {
		return nil, fmt.Errorf("at least one payment is required")
	}
	if req.ManualDiscountCents < 0 {
		return nil, fmt.Errorf("discount cannot be negative")
	}

	subtotalCents := int64(0)
	for _, line := range req.Lines {
		if line.ProductID == 0 || line.Quantity < 1 || line.UnitPriceCents < 0 {
			return nil, fmt.Errorf("invalid cart line (product %d)", line.ProductID)
		}
		subtotalCents += line.LineTotalCents()
	}

	discountCents := req.ManualDiscountCents
	if req.CustomerCouponID != nil {
		if req.CustomerID == nil {
			return nil, fmt.Errorf("coupon requires a customer")
		}
		coupon, err := s.repo.GetCustomerCoupon(ctx, *req.CustomerCouponID)
		if err != nil {
			return nil, err
		}
		if coupon.CustomerID != *req.CustomerID || coupon.Status != domain.CouponStatusAvailable {
			return nil, fmt.Errorf("coupon %d is not available for this customer", *req.CustomerCouponID)
		}
		discountCents += coupon.DiscountCents
	}

	promoResult := s.promos.Apply(ctx, req.Lines, time.Now().UTC())

	totalCents := subtotalCents - discountCents - promoResult.DiscountCents
	if totalCents < 0 {
		totalCents = 0
	}

	paidCents := int64(0)
	cashCents := int64(0)
	for _, payment := range req.Payments {
		switch payment.Method {
		case domain.PaymentCash:
			cashCents += payment.AmountCents
		case domain.PaymentCard, domain.PaymentStoreCredit:
		default:
			return nil, fmt.Errorf("unknown payment method %q", payment.Method)
		}
		if payment.AmountCents < 0 {
			return nil, fmt.Errorf("payment amount cannot be negative")
		}
		if payment.Method == domain.PaymentStoreCredit && req.CustomerID == nil {
			return nil, fmt.Errorf("store credit requires a customer")
		}
		paidCents += payment.AmountCents
	}
	if paidCents < totalCents {
		return nil, fmt.Errorf("payments add up to %d, sale total is %d", paidCents, totalCents)
	}
	changeCents := paidCents - totalCents
	payments := req.Payments
	if changeCents > 0 {
		if changeCents > cashCents {
			return nil, fmt.Errorf("only cash can exceed the sale total")
		}
		payments = deductChange(req.Payments, changeCents)
	}

	loyaltyPoints := int64(0)
	if req.CustomerID != nil && s.loyaltyEarnRate > 0 {
		loyaltyPoints = int64(float64(subtotalCents) * s.loyaltyEarnRate / 100)
	}

	draft := domain.SaleDraft{
		Lines:              req.Lines,
		SubtotalCents:      subtotalCents,
		DiscountCents:      discountCents,
		PromoDiscountCents: promoResult.DiscountCents,
		CustomerID:         req.CustomerID,
		CustomerCouponID:   req.CustomerCouponID,
		PromotionID:        promoResult.PromotionID,
		FreeItems:          promoResult.FreeItems,
		Payments:           payments,
		ShiftID:            req.ShiftID,
		UserID:             actor.UserID,
		LoyaltyPoints:      loyaltyPoints,
	}

	sale, err := s.repo.FinalizeSale(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.invalidateCheckoutProducts(ctx, req.Lines, promoResult)
	s.logAudit(ctx, "sale_finalize", describeSale(sale, req.Lines, promoResult.FreeItems))

	return &CheckoutResult{
		Sale:               sale,
		SubtotalCents:      subtotalCents,
		DiscountCents:      discountCents,
		PromoDiscountCents: promoResult.DiscountCents,
		TotalCents:         totalCents,
		ChangeCents:        changeCents,
		FreeItems:          promoResult.FreeItems,
		LoyaltyPoints:      loyaltyPoints,
	}, nil
}

// deductChange trims the change off the cash entries, last one first, so the
// stored payments match the sale total.
func deductChange(payments []domain.PaymentEntry, changeCents int64) []domain.PaymentEntry {
	adjusted := make([]domain.PaymentEntry, len(payments))
	copy(adjusted, payments)
	for i := len(adjusted) - 1; i >= 0 && changeCents > 0; i-- {
		if adjusted[i].Method != domain.PaymentCash {
			continue
		}
		take := adjusted[i].AmountCents
		if take > changeCents {
			take = changeCents
		}
		adjusted[i].AmountCents -= take
		changeCents -= take
	}

	kept := make([]domain.PaymentEntry, 0, len(adjusted))
	for _, payment := range adjusted {
		if payment.AmountCents > 0 {
			kept = append(kept, payment)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, domain.PaymentEntry{Method: domain.PaymentCash})
	}
	return kept
}

func (s *Service) invalidateCheckoutProducts(ctx context.Context, lines []domain.CartLine, promoResult promotion.Result) {
	for _, line := range lines {
		s.invalidateProduct(ctx, line.Barcode)
	}
	for _, free := range promoResult.FreeItems {
		if product, err := s.repo.GetProductByID(ctx, free.ProductID); err == nil {
			s.invalidateProduct(ctx, product.Barcode)
		}
	}
}

func describeSale(sale *domain.Sale, lines []domain.CartLine, freeItems []domain.FreeItem) string {
	parts := []string{
		fmt.Sprintf("sale=%d", sale.ID),
		fmt.Sprintf("receipt=%s", sale.ReceiptNo),
		fmt.Sprintf("total=%d", sale.TotalCents),
		fmt.Sprintf("items=%d", len(lines)),
	}
	if sale.CustomerID != nil {
		parts = append(parts, fmt.Sprintf("customer=%d", *sale.CustomerID))
	}
	if len(freeItems) > 0 {
		parts = append(parts, fmt.Sprintf("free_items=%d", len(freeItems)))
	}
	return strings.Join(parts, ",")
}

// ReturnSale reverses a completed sale in full. The repository enforces the
// at-most-once guarantee; the lookup here only produces friendlier errors.
func (s *Service) ReturnSale(ctx context.Context, saleID int64, reason string, notes string) (*domain.Return, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("return reason is required")
	}

	detail, err := s.repo.GetSaleDetail(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if detail.Sale.Status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("sale %d is already %s", saleID, detail.Sale.Status)
	}

	ret, err := s.repo.ProcessSaleReturn(ctx, domain.ReturnDraft{
		SaleID: saleID,
		Reason: reason,
		Notes:  notes,
		UserID: actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	for _, item := range detail.Items {
		if product, err := s.repo.GetProductByID(ctx, item.ProductID); err == nil {
			s.invalidateProduct(ctx, product.Barcode)
		}
	}
	s.logAudit(ctx, "sale_return", fmt.Sprintf("return=%d,sale=%d,amount=%d,reason=%s", ret.ID, saleID, ret.AmountCents, reason))
	return ret, nil
}

func (s *Service) SaleDetail(ctx context.Context, saleID int64) (*domain.SaleDetail, error) {
	return s.repo.GetSaleDetail(ctx, saleID)
}
