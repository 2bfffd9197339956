package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
)

func TestReturnRestocksInventory(t *testing.T) {
	databaseURL := os.Getenv("HSP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set HSP_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL, true)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	barcode := fmt.Sprintf("IT-RET-%d", stamp)
	username := fmt.Sprintf("it-ret-%d", stamp)

	user, err := s.CreateUser(ctx, domain.UserAccount{
		Username:     username,
		PasswordHash: "x",
		Role:         domain.RoleCashier,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	product, err := s.CreateProduct(ctx, domain.Product{
		Barcode:    barcode,
		Name:       "İade Entegrasyon Ürünü",
		PriceCents: 12000,
		Stock:      10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM returns WHERE user_id = $1`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM payments WHERE sale_id IN (SELECT id FROM sales WHERE user_id = $1)`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id IN (SELECT id FROM sales WHERE user_id = $1)`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE user_id = $1`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE barcode = $1`, barcode)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM activity_logs WHERE user_id = $1`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	})

	sale, err := s.FinalizeSale(ctx, domain.SaleDraft{
		Lines: []domain.CartLine{{
			ProductID:      product.ID,
			Barcode:        product.Barcode,
			Name:           product.Name,
			Quantity:       2,
			UnitPriceCents: product.PriceCents,
		}},
		SubtotalCents: 24000,
		Payments:      []domain.PaymentEntry{{Method: domain.PaymentCash, AmountCents: 24000}},
		UserID:        user.ID,
	})
	if err != nil {
		t.Fatalf("finalize sale: %v", err)
	}

	after, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 8 {
		t.Fatalf("expected stock 8 after sale, got %d", after.Stock)
	}

	if _, err := s.ProcessSaleReturn(ctx, domain.ReturnDraft{
		SaleID: sale.ID,
		Reason: "integration test return",
		UserID: user.ID,
	}); err != nil {
		t.Fatalf("process return: %v", err)
	}

	restocked, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if restocked.Stock != 10 {
		t.Fatalf("expected stock 10 after return, got %d", restocked.Stock)
	}

	detail, err := s.GetSaleDetail(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale detail: %v", err)
	}
	if detail.Sale.Status != domain.SaleStatusReturned {
		t.Fatalf("expected sale status returned, got %s", detail.Sale.Status)
	}
}
