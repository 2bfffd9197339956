package terminal

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Kafisabah/HSP/internal/auth"
	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/service"
	"github.com/Kafisabah/HSP/internal/store"
	"github.com/Kafisabah/HSP/internal/store/memory"
)

func runScript(t *testing.T, repo store.Repository, script string) string {
	t.Helper()
	svc := service.New(repo, nil, 0, 0)
	var out bytes.Buffer
	term := New(svc, auth.NewManager(repo), strings.NewReader(script), &out, "Test Market")
	if err := term.Run(context.Background()); err != nil {
		t.Fatalf("run: %v\noutput:\n%s", err, out.String())
	}
	return out.String()
}

// conflictOnceRepo fails the first finalize the way a serialization conflict
// would, then behaves normally.
type conflictOnceRepo struct {
	store.Repository
	remaining int
}

func (r *conflictOnceRepo) FinalizeSale(ctx context.Context, draft domain.SaleDraft) (*domain.Sale, error) {
	if r.remaining > 0 {
		r.remaining--
		return nil, fmt.Errorf("finalize sale: %w", store.ErrInvalidTransaction)
	}
	return r.Repository.FinalizeSale(ctx, draft)
}

func TestSaleKeepsCartAfterFailedFinalize(t *testing.T) {
	seeded := memory.NewSeeded()
	repo := &conflictOnceRepo{Repository: seeded, remaining: 1}

	script := strings.Join([]string{
		"kasiyer", "kasiyer123",
		"1",
		"8690504011004", "2", "bitir",
		"", "", // no customer, no manual discount
		"1", "", // cash, full amount
		"", "", // retry: no customer, no manual discount
		"1", "",
		"0",
		"",
	}, "\n") + "\n"

	out := runScript(t, repo, script)

	if !strings.Contains(out, "Sepet korundu") {
		t.Fatalf("failed finalize did not keep the cart:\n%s", out)
	}
	if !strings.Contains(out, "Fiş No:") {
		t.Fatalf("retry did not produce a receipt:\n%s", out)
	}
	if got := strings.Count(out, "Barkod"); got != 2 {
		t.Errorf("barcode prompt shown %d times, want 2 (no rescan on retry)", got)
	}
	if !strings.Contains(out, "TOPLAM: 30,00 TL") {
		t.Errorf("receipt total missing:\n%s", out)
	}

	product, err := seeded.GetProductByBarcode(context.Background(), "8690504011004")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 198 {
		t.Errorf("stock = %d, want 198 (deducted exactly once)", product.Stock)
	}
}

func TestSaleCashOverpaymentPrintsChange(t *testing.T) {
	script := strings.Join([]string{
		"kasiyer", "kasiyer123",
		"1",
		"8690504011005", "", "bitir",
		"", "",
		"1", "30", // 30,00 TL cash on a 25,00 TL sale
		"0",
		"",
	}, "\n") + "\n"

	out := runScript(t, memory.NewSeeded(), script)

	if !strings.Contains(out, "TOPLAM: 25,00 TL") {
		t.Fatalf("receipt total missing:\n%s", out)
	}
	if !strings.Contains(out, "Para üstü: 5,00 TL") {
		t.Fatalf("change line missing:\n%s", out)
	}
}
