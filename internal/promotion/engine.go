package promotion

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
)

type Source interface {
	ActivePromotionsForProduct(ctx context.Context, productID int64, at time.Time) ([]domain.Promotion, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
}

type Result struct {
	DiscountCents int64             `json:"discount_cents"`
	PromotionID   *int64            `json:"promotion_id,omitempty"`
	FreeItems     []domain.FreeItem `json:"free_items,omitempty"`
}

type Engine struct {
	source Source
}

func NewEngine(source Source) *Engine {
	return &Engine{source: source}
}

// Apply evaluates active promotions per distinct cart product and keeps the
// highest-valued candidate for each. A failed promotion lookup skips that
// product only. The returned PromotionID is the last one applied.
func (e *Engine) Apply(ctx context.Context, lines []domain.CartLine, at time.Time) Result {
	result := Result{}
	freeByProduct := make(map[int64]int64)

	for _, line := range normalizeLines(lines) {
		promos, err := e.source.ActivePromotionsForProduct(ctx, line.ProductID, at)
		if err != nil {
			log.Printf("[promo] WARN: promotion lookup failed (product %d): %v", line.ProductID, err)
			continue
		}

		best := int64(-1)
		var bestID int64
		var bestFree *domain.FreeItem

		for _, promo := range promos {
			switch promo.Type {
			case domain.PromoQuantityDiscount:
				if promo.RequiredQuantity < 1 || line.Quantity < promo.RequiredQuantity {
					continue
				}
				if promo.DiscountCents > best {
					best = promo.DiscountCents
					bestID = promo.ID
					bestFree = nil
				}
			case domain.PromoBuyXGetYFree:
				if promo.RequiredBuyQty < 1 || line.Quantity < promo.RequiredBuyQty {
					continue
				}
				grants := line.Quantity / promo.RequiredBuyQty
				freeQty := grants * promo.FreeQuantity
				if freeQty < 1 {
					continue
				}
				freeProductID := line.ProductID
				if promo.FreeProductID != nil {
					freeProductID = *promo.FreeProductID
				}
				discount := freeQty * e.unitPrice(ctx, freeProductID, line)
				if discount > best {
					best = discount
					bestID = promo.ID
					bestFree = &domain.FreeItem{ProductID: freeProductID, Quantity: freeQty}
				}
			}
		}

		if best >= 0 {
			result.DiscountCents += best
			id := bestID
			result.PromotionID = &id
			if bestFree != nil {
				freeByProduct[bestFree.ProductID] += bestFree.Quantity
			}
		}
	}

	if len(freeByProduct) > 0 {
		ids := make([]int64, 0, len(freeByProduct))
		for id := range freeByProduct {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			result.FreeItems = append(result.FreeItems, domain.FreeItem{ProductID: id, Quantity: freeByProduct[id]})
		}
	}

	return result
}

// unitPrice values the granted item at its selling price. When the price
// cannot be resolved the grant is still given, valued at zero.
func (e *Engine) unitPrice(ctx context.Context, productID int64, line domain.CartLine) int64 {
	if productID == line.ProductID {
		return line.UnitPriceCents
	}
	product, err := e.source.GetProductByID(ctx, productID)
	if err != nil {
		log.Printf("[promo] WARN: free product price lookup failed (product %d): %v", productID, err)
		return 0
	}
	return product.PriceCents
}

func normalizeLines(lines []domain.CartLine) []domain.CartLine {
	aggregated := make(map[int64]domain.CartLine, len(lines))
	for _, line := range lines {
		if line.ProductID == 0 || line.Quantity < 1 {
			continue
		}
		existing, ok := aggregated[line.ProductID]
		if ok {
			existing.Quantity += line.Quantity
			aggregated[line.ProductID] = existing
			continue
		}
		aggregated[line.ProductID] = line
	}

	result := make([]domain.CartLine, 0, len(aggregated))
	for _, line := range aggregated {
		result = append(result, line)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })
	return result
}
