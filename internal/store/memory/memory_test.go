package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/store"
)

func TestUpsertProductByBarcode(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	created, wasNew, err := s.UpsertProductByBarcode(ctx, domain.Product{
		Barcode: "8699999000011", Name: "Yeni Ürün", PriceCents: 1000, Stock: 5, Active: true,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !wasNew {
		t.Fatal("expected a freshly created product")
	}

	updated, wasNew, err := s.UpsertProductByBarcode(ctx, domain.Product{
		Barcode: "8699999000011", Name: "Yeni Ürün v2", PriceCents: 1200, Stock: 9, Active: true,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if wasNew {
		t.Fatal("second upsert created a duplicate")
	}
	if updated.ID != created.ID {
		t.Errorf("id changed on update: %d -> %d", created.ID, updated.ID)
	}
	if updated.PriceCents != 1200 || updated.Stock != 9 {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestCustomerLedgerCollectsAllKinds(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	user, err := s.GetUserByUsername(ctx, "kasiyer")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "Ekstre Müşterisi"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	product, err := s.GetProductByBarcode(ctx, "8690504011004")
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	sale, err := s.FinalizeSale(ctx, domain.SaleDraft{
		Lines: []domain.CartLine{{
			ProductID: product.ID, Barcode: product.Barcode, Name: product.Name,
			Quantity: 2, UnitPriceCents: product.PriceCents,
		}},
		SubtotalCents: 2 * product.PriceCents,
		CustomerID:    &customer.ID,
		Payments:      []domain.PaymentEntry{{Method: domain.PaymentStoreCredit, AmountCents: 2 * product.PriceCents}},
		UserID:        user.ID,
	})
	if err != nil {
		t.Fatalf("finalize sale: %v", err)
	}
	if _, err := s.RecordCustomerPayment(ctx, domain.CustomerPayment{
		CustomerID: customer.ID, AmountCents: 1000, Method: domain.PaymentCash, UserID: user.ID,
	}); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if _, err := s.ProcessSaleReturn(ctx, domain.ReturnDraft{SaleID: sale.ID, Reason: "test", UserID: user.ID}); err != nil {
		t.Fatalf("process return: %v", err)
	}

	entries, err := s.CustomerLedger(ctx, customer.ID, 10)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	kinds := make(map[string]int)
	for _, e := range entries {
		kinds[e.Kind]++
	}
	if kinds["sale"] != 1 || kinds["payment"] != 1 || kinds["return"] != 1 {
		t.Errorf("ledger kinds = %v, want one sale, one payment, one return", kinds)
	}
}

func TestLastCostPrice(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	user, err := s.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	product, err := s.GetProductByBarcode(ctx, "8690504011002")
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	if _, err := s.LastCostPrice(ctx, product.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound before any purchase", err)
	}

	if _, err := s.RecordPurchase(ctx, domain.PurchaseDraft{
		UserID: user.ID,
		Items:  []domain.PurchaseItemDraft{{ProductID: product.ID, Quantity: 10, UnitCostCents: 3100}},
	}); err != nil {
		t.Fatalf("record purchase: %v", err)
	}

	cost, err := s.LastCostPrice(ctx, product.ID)
	if err != nil {
		t.Fatalf("last cost: %v", err)
	}
	if cost != 3100 {
		t.Errorf("cost = %d, want 3100", cost)
	}

	after, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != product.Stock+10 {
		t.Errorf("stock = %d, want %d after purchase", after.Stock, product.Stock+10)
	}
}

func TestSearchProductsFiltersInactive(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, err := s.GetProductByBarcode(ctx, "8690504011006")
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := s.SetProductActive(ctx, product.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := s.SearchProducts(ctx, "Çikolata", false)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("inactive product returned in active-only search: %+v", active)
	}

	all, err := s.SearchProducts(ctx, "Çikolata", true)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d results with inactive included, want 1", len(all))
	}
}
