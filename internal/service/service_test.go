package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
	"github.com/Kafisabah/HSP/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	return New(repo, nil, 0, 0), repo
}

func actorCtx(t *testing.T, repo *memory.Store, username string) context.Context {
	t.Helper()
	user, err := repo.GetUserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return WithActor(context.Background(), domain.Actor{UserID: user.ID, Username: user.Username, Role: user.Role})
}

func productByBarcode(t *testing.T, repo *memory.Store, barcode string) *domain.Product {
	t.Helper()
	product, err := repo.GetProductByBarcode(context.Background(), barcode)
	if err != nil {
		t.Fatalf("seed product %s: %v", barcode, err)
	}
	return product
}

func cartLine(p *domain.Product, qty int64) domain.CartLine {
	return domain.CartLine{ProductID: p.ID, Barcode: p.Barcode, Name: p.Name, Quantity: qty, UnitPriceCents: p.PriceCents}
}

func cashPayment(amount int64) []domain.PaymentEntry {
	return []domain.PaymentEntry{{Method: domain.PaymentCash, AmountCents: amount}}
}

func TestCheckoutCashSale(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	water := productByBarcode(t, repo, "8690504011005")

	result, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(water, 4)},
		Payments: cashPayment(4 * water.PriceCents),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.TotalCents != 4*water.PriceCents {
		t.Errorf("total = %d, want %d", result.TotalCents, 4*water.PriceCents)
	}
	if result.Sale.Status != domain.SaleStatusCompleted {
		t.Errorf("status = %q, want completed", result.Sale.Status)
	}
	if result.Sale.ReceiptNo == "" {
		t.Error("sale has no receipt number")
	}

	after := productByBarcode(t, repo, water.Barcode)
	if after.Stock != water.Stock-4 {
		t.Errorf("stock = %d, want %d", after.Stock, water.Stock-4)
	}
}

func TestCheckoutRejectsPaymentMismatch(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	water := productByBarcode(t, repo, "8690504011005")

	_, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(water, 2)},
		Payments: cashPayment(water.PriceCents),
	})
	if err == nil {
		t.Fatal("expected payment mismatch error")
	}

	after := productByBarcode(t, repo, water.Barcode)
	if after.Stock != water.Stock {
		t.Errorf("stock changed on failed checkout: %d -> %d", water.Stock, after.Stock)
	}
}

func TestCheckoutCashOverpaymentGivesChange(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	tea := productByBarcode(t, repo, "8690504011001")

	result, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(tea, 1)},
		Payments: cashPayment(20000),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.TotalCents != tea.PriceCents {
		t.Errorf("total = %d, want %d", result.TotalCents, tea.PriceCents)
	}
	if result.ChangeCents != 20000-tea.PriceCents {
		t.Errorf("change = %d, want %d", result.ChangeCents, 20000-tea.PriceCents)
	}

	detail, err := svc.SaleDetail(ctx, result.Sale.ID)
	if err != nil {
		t.Fatalf("sale detail: %v", err)
	}
	recorded := int64(0)
	for _, payment := range detail.Payments {
		recorded += payment.AmountCents
	}
	if recorded != tea.PriceCents {
		t.Errorf("recorded payments = %d, want sale total %d", recorded, tea.PriceCents)
	}
}

func TestCheckoutCardOverpaymentRejected(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	tea := productByBarcode(t, repo, "8690504011001")

	_, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(tea, 1)},
		Payments: []domain.PaymentEntry{{Method: domain.PaymentCard, AmountCents: 20000}},
	})
	if err == nil {
		t.Fatal("card payment above the total was accepted")
	}
}

func TestCheckoutFailureLeavesStoreUntouched(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	water := productByBarcode(t, repo, "8690504011005")

	missing := domain.CartLine{ProductID: 9999, Barcode: "no-such", Name: "Hayalet", Quantity: 1, UnitPriceCents: 100}
	_, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(water, 2), missing},
		Payments: cashPayment(2*water.PriceCents + 100),
	})
	if !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("err = %v, want ErrInvalidTransaction", err)
	}

	after := productByBarcode(t, repo, water.Barcode)
	if after.Stock != water.Stock {
		t.Errorf("stock changed on failed checkout: %d -> %d", water.Stock, after.Stock)
	}
}

func TestCheckoutRequiresLogin(t *testing.T) {
	svc, repo := newTestService(t)
	water := productByBarcode(t, repo, "8690504011005")

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(water, 1)},
		Payments: cashPayment(water.PriceCents),
	})
	if err == nil || !strings.Contains(err.Error(), "login required") {
		t.Fatalf("err = %v, want login required", err)
	}
}

func TestReturnRestoresStockAtMostOnce(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	pasta := productByBarcode(t, repo, "8690504011004")

	result, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(pasta, 5)},
		Payments: cashPayment(5 * pasta.PriceCents),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	ret, err := svc.ReturnSale(ctx, result.Sale.ID, "vazgeçti", "")
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if ret.AmountCents != result.TotalCents {
		t.Errorf("refund = %d, want %d", ret.AmountCents, result.TotalCents)
	}

	after := productByBarcode(t, repo, pasta.Barcode)
	if after.Stock != pasta.Stock {
		t.Errorf("stock = %d, want %d after return", after.Stock, pasta.Stock)
	}

	if _, err := svc.ReturnSale(ctx, result.Sale.ID, "tekrar", ""); err == nil {
		t.Fatal("second return of the same sale succeeded")
	}
	after = productByBarcode(t, repo, pasta.Barcode)
	if after.Stock != pasta.Stock {
		t.Errorf("stock = %d after double return, want %d", after.Stock, pasta.Stock)
	}
}

func TestStoreCreditRoundTrip(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	water := productByBarcode(t, repo, "8690504011005")

	customer, err := svc.CreateCustomer(ctx, domain.Customer{Name: "Ayşe Yılmaz", Phone: "05321112233"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	total := 4 * water.PriceCents
	_, err = svc.Checkout(ctx, CheckoutRequest{
		Lines:      []domain.CartLine{cartLine(water, 4)},
		CustomerID: &customer.ID,
		Payments:   []domain.PaymentEntry{{Method: domain.PaymentStoreCredit, AmountCents: total}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	debtor, err := svc.CustomerByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if debtor.BalanceCents != total {
		t.Fatalf("balance = %d, want %d", debtor.BalanceCents, total)
	}

	if _, err := svc.RecordCustomerPayment(ctx, customer.ID, total, domain.PaymentCash, ""); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	settled, err := svc.CustomerByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if settled.BalanceCents != 0 {
		t.Errorf("balance = %d after payment, want 0", settled.BalanceCents)
	}
}

func TestStoreCreditRequiresCustomer(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	water := productByBarcode(t, repo, "8690504011005")

	_, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(water, 1)},
		Payments: []domain.PaymentEntry{{Method: domain.PaymentStoreCredit, AmountCents: water.PriceCents}},
	})
	if err == nil {
		t.Fatal("store credit without customer succeeded")
	}
}

func TestCouponLifecycle(t *testing.T) {
	svc, repo := newTestService(t)
	adminCtx := actorCtx(t, repo, "admin")
	cashierCtx := actorCtx(t, repo, "kasiyer")
	tea := productByBarcode(t, repo, "8690504011001")

	customer, err := svc.CreateCustomer(cashierCtx, domain.Customer{Name: "Mehmet Demir"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	coupon, err := svc.CreateCoupon(adminCtx, domain.Coupon{Code: "HOSGELDIN", DiscountCents: 2000, Active: true})
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	assigned, err := svc.AssignCoupon(adminCtx, customer.ID, coupon.ID)
	if err != nil {
		t.Fatalf("assign coupon: %v", err)
	}

	result, err := svc.Checkout(cashierCtx, CheckoutRequest{
		Lines:            []domain.CartLine{cartLine(tea, 1)},
		CustomerID:       &customer.ID,
		CustomerCouponID: &assigned.ID,
		Payments:         cashPayment(tea.PriceCents - 2000),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.DiscountCents != 2000 {
		t.Errorf("discount = %d, want 2000", result.DiscountCents)
	}

	used, err := repo.GetCustomerCoupon(context.Background(), assigned.ID)
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if used.UsedSaleID == nil || *used.UsedSaleID != result.Sale.ID {
		t.Errorf("coupon used_sale_id = %v, want %d", used.UsedSaleID, result.Sale.ID)
	}

	available, err := svc.AvailableCoupons(cashierCtx, customer.ID)
	if err != nil {
		t.Fatalf("available coupons: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("coupon still available after use: %+v", available)
	}

	if _, err := svc.Checkout(cashierCtx, CheckoutRequest{
		Lines:            []domain.CartLine{cartLine(tea, 1)},
		CustomerID:       &customer.ID,
		CustomerCouponID: &assigned.ID,
		Payments:         cashPayment(tea.PriceCents - 2000),
	}); err == nil {
		t.Fatal("used coupon accepted a second time")
	}

	if _, err := svc.ReturnSale(cashierCtx, result.Sale.ID, "iade", ""); err != nil {
		t.Fatalf("return: %v", err)
	}
	available, err = svc.AvailableCoupons(cashierCtx, customer.ID)
	if err != nil {
		t.Fatalf("available coupons: %v", err)
	}
	if len(available) != 1 {
		t.Fatalf("coupon not released after return, got %d", len(available))
	}
	released, err := repo.GetCustomerCoupon(context.Background(), assigned.ID)
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if released.UsedSaleID != nil {
		t.Errorf("coupon still references sale %d after return", *released.UsedSaleID)
	}
}

func TestQuantityPromotionAppliedAtCheckout(t *testing.T) {
	svc, repo := newTestService(t)
	adminCtx := actorCtx(t, repo, "admin")
	cashierCtx := actorCtx(t, repo, "kasiyer")
	pasta := productByBarcode(t, repo, "8690504011004")

	promo, err := svc.CreatePromotion(adminCtx, domain.Promotion{
		Name: "3 makarna 5 lira indirim", Type: domain.PromoQuantityDiscount,
		ProductID: pasta.ID, RequiredQuantity: 3, DiscountCents: 500, Active: true,
	})
	if err != nil {
		t.Fatalf("create promotion: %v", err)
	}

	total := 3*pasta.PriceCents - 500
	result, err := svc.Checkout(cashierCtx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(pasta, 3)},
		Payments: cashPayment(total),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.PromoDiscountCents != 500 {
		t.Errorf("promo discount = %d, want 500", result.PromoDiscountCents)
	}
	if result.Sale.PromotionID == nil || *result.Sale.PromotionID != promo.ID {
		t.Errorf("sale promotion id = %v, want %d", result.Sale.PromotionID, promo.ID)
	}
}

func TestBuyXGetYFreeDeductsFreeStock(t *testing.T) {
	svc, repo := newTestService(t)
	adminCtx := actorCtx(t, repo, "admin")
	cashierCtx := actorCtx(t, repo, "kasiyer")
	tea := productByBarcode(t, repo, "8690504011001")

	_, err := svc.CreatePromotion(adminCtx, domain.Promotion{
		Name: "2 al 1 öde", Type: domain.PromoBuyXGetYFree,
		ProductID: tea.ID, RequiredBuyQty: 2, FreeQuantity: 1, Active: true,
	})
	if err != nil {
		t.Fatalf("create promotion: %v", err)
	}

	result, err := svc.Checkout(cashierCtx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(tea, 2)},
		Payments: cashPayment(tea.PriceCents),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.PromoDiscountCents != tea.PriceCents {
		t.Errorf("promo discount = %d, want %d", result.PromoDiscountCents, tea.PriceCents)
	}
	if len(result.FreeItems) != 1 || result.FreeItems[0].Quantity != 1 {
		t.Fatalf("free items = %+v, want one unit", result.FreeItems)
	}

	after := productByBarcode(t, repo, tea.Barcode)
	if after.Stock != tea.Stock-3 {
		t.Errorf("stock = %d, want %d (paid units plus free unit)", after.Stock, tea.Stock-3)
	}
}

func TestShiftZReport(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	water := productByBarcode(t, repo, "8690504011005")

	shift, err := svc.StartShift(ctx, 10000)
	if err != nil {
		t.Fatalf("start shift: %v", err)
	}

	_, err = svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(water, 10)},
		Payments: cashPayment(10 * water.PriceCents),
		ShiftID:  &shift.ID,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	customer, err := svc.CreateCustomer(ctx, domain.Customer{Name: "Veresiye Müşterisi"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if _, err := svc.RecordCustomerPayment(ctx, customer.ID, 3000, domain.PaymentCash, ""); err != nil {
		t.Fatalf("customer payment: %v", err)
	}

	report, err := svc.CloseShift(ctx, 37500, "kasa sayımı")
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if report.CashSalesCents != 25000 {
		t.Errorf("cash sales = %d, want 25000", report.CashSalesCents)
	}
	if report.CashPaymentsCents != 3000 {
		t.Errorf("cash payments = %d, want 3000", report.CashPaymentsCents)
	}
	if report.ExpectedCashCents != 38000 {
		t.Errorf("expected cash = %d, want 38000", report.ExpectedCashCents)
	}
	if report.DifferenceCents != -500 {
		t.Errorf("difference = %d, want -500", report.DifferenceCents)
	}

	closed, err := repo.GetShiftByID(context.Background(), shift.ID)
	if err != nil {
		t.Fatalf("get shift: %v", err)
	}
	if closed.Active || closed.EndTime == nil {
		t.Error("shift still open after close")
	}

	if _, err := svc.CloseShift(ctx, 37500, ""); err == nil {
		t.Fatal("second close succeeded")
	}
}

func TestStartShiftRejectsSecondOpenShift(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")

	if _, err := svc.StartShift(ctx, 5000); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	_, err := svc.StartShift(ctx, 5000)
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestOversellAllowedByDefault(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx(t, repo, "kasiyer")
	oil := productByBarcode(t, repo, "8690504011003")

	qty := oil.Stock + 10
	_, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(oil, qty)},
		Payments: cashPayment(qty * oil.PriceCents),
	})
	if err != nil {
		t.Fatalf("oversell checkout: %v", err)
	}

	after := productByBarcode(t, repo, oil.Barcode)
	if after.Stock != -10 {
		t.Errorf("stock = %d, want -10", after.Stock)
	}
}

func TestOversellBlockedWhenDisabled(t *testing.T) {
	svc, repo := newTestService(t)
	repo.SetAllowNegativeStock(false)
	ctx := actorCtx(t, repo, "kasiyer")
	oil := productByBarcode(t, repo, "8690504011003")

	qty := oil.Stock + 1
	_, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:    []domain.CartLine{cartLine(oil, qty)},
		Payments: cashPayment(qty * oil.PriceCents),
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	after := productByBarcode(t, repo, oil.Barcode)
	if after.Stock != oil.Stock {
		t.Errorf("stock changed on blocked oversell: %d -> %d", oil.Stock, after.Stock)
	}
}

func TestLoyaltyPointsAccrue(t *testing.T) {
	repo := memory.NewSeeded()
	svc := New(repo, nil, 0, 1.0)
	ctx := actorCtx(t, repo, "kasiyer")
	pasta := productByBarcode(t, repo, "8690504011004")

	customer, err := svc.CreateCustomer(ctx, domain.Customer{Name: "Puan Müşterisi"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	total := 10 * pasta.PriceCents
	result, err := svc.Checkout(ctx, CheckoutRequest{
		Lines:      []domain.CartLine{cartLine(pasta, 10)},
		CustomerID: &customer.ID,
		Payments:   cashPayment(total),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	wantPoints := int64(float64(total) * 1.0 / 100)
	if result.LoyaltyPoints != wantPoints {
		t.Errorf("points = %d, want %d", result.LoyaltyPoints, wantPoints)
	}

	after, err := svc.CustomerByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if after.LoyaltyPoints != wantPoints {
		t.Errorf("customer points = %d, want %d", after.LoyaltyPoints, wantPoints)
	}
}

func TestAdminGuards(t *testing.T) {
	svc, repo := newTestService(t)
	cashierCtx := actorCtx(t, repo, "kasiyer")

	_, err := svc.CreateProduct(cashierCtx, domain.Product{Barcode: "869000", Name: "Deneme", PriceCents: 100})
	if err == nil || !strings.Contains(err.Error(), "admin role required") {
		t.Fatalf("err = %v, want admin role required", err)
	}
	if _, err := svc.CreateUser(cashierCtx, "yeni", "", "sifre123", domain.RoleCashier); err == nil {
		t.Fatal("cashier created a user")
	}
	if _, err := svc.ListActivity(cashierCtx, 10); err == nil {
		t.Fatal("cashier read the activity log")
	}
}

func TestProductCacheInvalidationOnUpdate(t *testing.T) {
	svc, repo := newTestService(t)
	adminCtx := actorCtx(t, repo, "admin")
	tea := productByBarcode(t, repo, "8690504011001")

	if _, err := svc.ProductByBarcode(adminCtx, tea.Barcode); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	newPrice := tea.PriceCents + 1000
	if _, err := svc.UpdateProduct(adminCtx, tea.ID, domain.ProductUpdate{PriceCents: &newPrice}); err != nil {
		t.Fatalf("update: %v", err)
	}

	fresh, err := svc.ProductByBarcode(adminCtx, tea.Barcode)
	if err != nil {
		t.Fatalf("lookup after update: %v", err)
	}
	if fresh.PriceCents != newPrice {
		t.Errorf("price = %d, want %d", fresh.PriceCents, newPrice)
	}
}

func TestImportExportProductsCSV(t *testing.T) {
	svc, repo := newTestService(t)
	adminCtx := actorCtx(t, repo, "admin")

	input := strings.Join([]string{
		"barkod;urun_adi;marka;kategori;stok;kdv_haric_fiyat;kdv_orani;satis_fiyati;min_stok;aktif",
		"8691234500017;Deterjan 4kg;Temizmax;Temizlik;25;120,00;20;144,00;5;1",
		"8690504011001;Çay 1kg;;;70;171,30;8;185,00;10;1",
		";Bozuk Satır;;;1;1,00;1;1,01;0;1",
	}, "\n")

	summary, err := svc.ImportProductsCSV(adminCtx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Created != 1 || summary.Updated != 1 {
		t.Errorf("created=%d updated=%d, want 1/1", summary.Created, summary.Updated)
	}
	if len(summary.Skipped) != 1 {
		t.Errorf("skipped = %d, want 1", len(summary.Skipped))
	}

	tea := productByBarcode(t, repo, "8690504011001")
	if tea.Stock != 70 {
		t.Errorf("updated stock = %d, want 70", tea.Stock)
	}
	detergent := productByBarcode(t, repo, "8691234500017")
	if detergent.PriceCents != 14400 {
		t.Errorf("imported price = %d, want 14400", detergent.PriceCents)
	}
	if detergent.BrandID == nil || detergent.CategoryID == nil {
		t.Error("brand and category were not created for the new product")
	}

	var out strings.Builder
	count, err := svc.ExportProductsCSV(adminCtx, &out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if count < 7 {
		t.Errorf("exported %d rows, want at least 7", count)
	}
	if !strings.Contains(out.String(), "8691234500017;Deterjan 4kg;Temizmax;Temizlik") {
		t.Errorf("export missing imported product:\n%s", out.String())
	}
}
