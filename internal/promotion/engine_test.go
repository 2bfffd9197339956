package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
)

type stubSource struct {
	promos   map[int64][]domain.Promotion
	products map[int64]domain.Product
}

func (s *stubSource) ActivePromotionsForProduct(_ context.Context, productID int64, _ time.Time) ([]domain.Promotion, error) {
	return s.promos[productID], nil
}

func (s *stubSource) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &product, nil
}

func TestApplyPicksHighestDiscount(t *testing.T) {
	source := &stubSource{promos: map[int64][]domain.Promotion{
		1: {
			{ID: 10, Type: domain.PromoQuantityDiscount, ProductID: 1, RequiredQuantity: 2, DiscountCents: 500},
			{ID: 11, Type: domain.PromoQuantityDiscount, ProductID: 1, RequiredQuantity: 2, DiscountCents: 800},
		},
	}}
	engine := NewEngine(source)

	result := engine.Apply(context.Background(), []domain.CartLine{
		{ProductID: 1, Quantity: 3, UnitPriceCents: 1000},
	}, time.Now())

	if result.DiscountCents != 800 {
		t.Fatalf("expected discount 800, got %d", result.DiscountCents)
	}
	if result.PromotionID == nil || *result.PromotionID != 11 {
		t.Fatalf("expected promotion 11 applied, got %v", result.PromotionID)
	}
}

func TestApplyBuyXGetYFree(t *testing.T) {
	freeID := int64(2)
	source := &stubSource{
		promos: map[int64][]domain.Promotion{
			1: {{ID: 20, Type: domain.PromoBuyXGetYFree, ProductID: 1, RequiredBuyQty: 2, FreeQuantity: 1, FreeProductID: &freeID}},
		},
		products: map[int64]domain.Product{
			2: {ID: 2, PriceCents: 350},
		},
	}
	engine := NewEngine(source)

	result := engine.Apply(context.Background(), []domain.CartLine{
		{ProductID: 1, Quantity: 5, UnitPriceCents: 1000},
	}, time.Now())

	// 5 / 2 = 2 grants, 2 free units at 350 each.
	if result.DiscountCents != 700 {
		t.Fatalf("expected discount 700, got %d", result.DiscountCents)
	}
	if len(result.FreeItems) != 1 || result.FreeItems[0].ProductID != 2 || result.FreeItems[0].Quantity != 2 {
		t.Fatalf("unexpected free items: %+v", result.FreeItems)
	}
}

func TestApplyFreeProductPriceLookupFailureValuesGrantAtZero(t *testing.T) {
	missingID := int64(99)
	source := &stubSource{
		promos: map[int64][]domain.Promotion{
			1: {{ID: 30, Type: domain.PromoBuyXGetYFree, ProductID: 1, RequiredBuyQty: 1, FreeQuantity: 1, FreeProductID: &missingID}},
		},
	}
	engine := NewEngine(source)

	result := engine.Apply(context.Background(), []domain.CartLine{
		{ProductID: 1, Quantity: 1, UnitPriceCents: 1000},
	}, time.Now())

	if result.DiscountCents != 0 {
		t.Fatalf("expected zero-valued grant, got %d", result.DiscountCents)
	}
	if result.PromotionID == nil || *result.PromotionID != 30 {
		t.Fatalf("expected promotion 30 still applied, got %v", result.PromotionID)
	}
	if len(result.FreeItems) != 1 || result.FreeItems[0].ProductID != missingID {
		t.Fatalf("expected free item staged despite price failure, got %+v", result.FreeItems)
	}
}

func TestApplyAggregatesDuplicateLines(t *testing.T) {
	source := &stubSource{promos: map[int64][]domain.Promotion{
		1: {{ID: 40, Type: domain.PromoQuantityDiscount, ProductID: 1, RequiredQuantity: 4, DiscountCents: 600}},
	}}
	engine := NewEngine(source)

	// Two lines of the same product must count as one quantity of 4.
	result := engine.Apply(context.Background(), []domain.CartLine{
		{ProductID: 1, Quantity: 2, UnitPriceCents: 1000},
		{ProductID: 1, Quantity: 2, UnitPriceCents: 1000},
	}, time.Now())

	if result.DiscountCents != 600 {
		t.Fatalf("expected discount 600, got %d", result.DiscountCents)
	}
}
