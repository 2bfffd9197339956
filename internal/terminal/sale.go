package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/service"
	"github.com/Kafisabah/HSP/internal/store"
)

func (t *Terminal) saleFlow(ctx context.Context) error {
	var shiftID *int64
	if shift, err := t.svc.ActiveShift(ctx); err == nil {
		shiftID = &shift.ID
	} else {
		fmt.Fprintln(t.out, "Uyarı: açık vardiya yok, satış vardiyasız kaydedilecek.")
	}

	lines, err := t.scanItems(ctx)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Fprintln(t.out, "Satış iptal edildi.")
		return nil
	}

	preview := t.svc.PreviewCart(ctx, lines)
	fmt.Fprintf(t.out, "Ara toplam: %s\n", lira(preview.SubtotalCents))
	if preview.PromoDiscountCents > 0 {
		fmt.Fprintf(t.out, "Kampanya indirimi: %s\n", lira(preview.PromoDiscountCents))
	}
	for _, free := range preview.FreeItems {
		fmt.Fprintf(t.out, "Hediye ürün: %d adet (ürün %d)\n", free.Quantity, free.ProductID)
	}

	// A failed finalize keeps the scanned cart and loops back to the
	// customer/payment step so nothing has to be rescanned.
	for {
		customerID, couponID, couponDiscount, err := t.pickCustomerAndCoupon(ctx)
		if err != nil {
			return err
		}

		manualDiscount, err := t.promptCents("Manuel indirim (boş: 0)", 0)
		if err != nil {
			return err
		}

		total := preview.SubtotalCents - manualDiscount - couponDiscount - preview.PromoDiscountCents
		if total < 0 {
			total = 0
		}
		fmt.Fprintf(t.out, "Ödenecek tutar: %s\n", lira(total))

		payments, err := t.collectPayments(total, customerID != nil)
		if err != nil {
			return err
		}
		if payments == nil {
			fmt.Fprintln(t.out, "Satış iptal edildi.")
			return nil
		}

		result, err := t.svc.Checkout(ctx, service.CheckoutRequest{
			Lines:               lines,
			ManualDiscountCents: manualDiscount,
			CustomerID:          customerID,
			CustomerCouponID:    couponID,
			Payments:            payments,
			ShiftID:             shiftID,
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(t.out, "Satış tamamlanamadı: %v. Sepet korundu, tekrar deneyin.\n", err)
			continue
		}

		t.printReceipt(result, lines)
		return nil
	}
}

func (t *Terminal) scanItems(ctx context.Context) ([]domain.CartLine, error) {
	lines := make([]domain.CartLine, 0, 8)
	for {
		raw, err := t.prompt("Barkod (bitir / iptal)")
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(raw) {
		case "":
			continue
		case "bitir":
			return lines, nil
		case "iptal":
			return nil, nil
		}

		product, err := t.svc.ProductByBarcode(ctx, raw)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintf(t.out, "Ürün bulunamadı: %s\n", raw)
				continue
			}
			return nil, err
		}
		if !product.Active {
			fmt.Fprintf(t.out, "Ürün pasif: %s\n", product.Name)
			continue
		}

		qty, err := t.promptInt("Adet (boş: 1)", 1)
		if err != nil {
			fmt.Fprintln(t.out, "Geçersiz adet.")
			continue
		}
		if qty < 1 {
			fmt.Fprintln(t.out, "Adet 1'den küçük olamaz.")
			continue
		}

		merged := false
		for i := range lines {
			if lines[i].ProductID == product.ID {
				lines[i].Quantity += qty
				merged = true
				break
			}
		}
		if !merged {
			lines = append(lines, domain.CartLine{
				ProductID:      product.ID,
				Barcode:        product.Barcode,
				Name:           product.Name,
				Quantity:       qty,
				UnitPriceCents: product.PriceCents,
			})
		}
		fmt.Fprintf(t.out, "+ %dx %s (%s)\n", qty, product.Name, lira(product.PriceCents))
	}
}

func (t *Terminal) pickCustomerAndCoupon(ctx context.Context) (*int64, *int64, int64, error) {
	raw, err := t.prompt("Müşteri telefonu/adı (boş: yok)")
	if err != nil {
		return nil, nil, 0, err
	}
	if raw == "" {
		return nil, nil, 0, nil
	}

	customers, err := t.svc.SearchCustomers(ctx, raw, false)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(customers) == 0 {
		fmt.Fprintln(t.out, "Müşteri bulunamadı, satış müşterisiz devam ediyor.")
		return nil, nil, 0, nil
	}
	customer := customers[0]
	if len(customers) > 1 {
		for i, c := range customers {
			fmt.Fprintf(t.out, " %d) %s %s (bakiye %s)\n", i+1, c.Name, c.Phone, lira(c.BalanceCents))
		}
		pick, err := t.promptInt("Müşteri no", 1)
		if err != nil || pick < 1 || pick > int64(len(customers)) {
			return nil, nil, 0, fmt.Errorf("geçersiz müşteri seçimi")
		}
		customer = customers[pick-1]
	}
	fmt.Fprintf(t.out, "Müşteri: %s (bakiye %s, puan %d)\n", customer.Name, lira(customer.BalanceCents), customer.LoyaltyPoints)

	coupons, err := t.svc.AvailableCoupons(ctx, customer.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(coupons) == 0 {
		return &customer.ID, nil, 0, nil
	}

	fmt.Fprintln(t.out, "Kullanılabilir kuponlar:")
	for i, c := range coupons {
		fmt.Fprintf(t.out, " %d) %s (%s)\n", i+1, c.Code, lira(c.DiscountCents))
	}
	pick, err := t.promptInt("Kupon no (boş: kullanma)", 0)
	if err != nil || pick == 0 {
		return &customer.ID, nil, 0, nil
	}
	if pick < 1 || pick > int64(len(coupons)) {
		return &customer.ID, nil, 0, fmt.Errorf("geçersiz kupon seçimi")
	}
	chosen := coupons[pick-1]
	return &customer.ID, &chosen.ID, chosen.DiscountCents, nil
}

// collectPayments keeps asking until the remaining amount is covered. Cash
// may exceed the remainder, the service returns the surplus as change.
// Returning a nil slice means the cashier cancelled.
func (t *Terminal) collectPayments(total int64, hasCustomer bool) ([]domain.PaymentEntry, error) {
	if total == 0 {
		return []domain.PaymentEntry{{Method: domain.PaymentCash, AmountCents: 0}}, nil
	}

	payments := make([]domain.PaymentEntry, 0, 2)
	remaining := total
	for remaining > 0 {
		fmt.Fprintf(t.out, "Kalan: %s\n", lira(remaining))
		raw, err := t.prompt("Ödeme (1=nakit 2=kart 3=veresiye, iptal)")
		if err != nil {
			return nil, err
		}

		var method string
		switch raw {
		case "1":
			method = domain.PaymentCash
		case "2":
			method = domain.PaymentCard
		case "3":
			if !hasCustomer {
				fmt.Fprintln(t.out, "Veresiye için müşteri seçilmeli.")
				continue
			}
			method = domain.PaymentStoreCredit
		case "iptal":
			return nil, nil
		default:
			fmt.Fprintln(t.out, "Geçersiz seçim.")
			continue
		}

		amount, err := t.promptCents(fmt.Sprintf("Tutar (boş: %s)", lira(remaining)), remaining)
		if err != nil {
			fmt.Fprintln(t.out, "Geçersiz tutar.")
			continue
		}
		if amount < 1 {
			fmt.Fprintln(t.out, "Geçersiz tutar.")
			continue
		}
		if method != domain.PaymentCash && amount > remaining {
			fmt.Fprintln(t.out, "Tutar kalan borcu aşamaz.")
			continue
		}
		payments = append(payments, domain.PaymentEntry{Method: method, AmountCents: amount})
		remaining -= amount
	}
	return payments, nil
}

func (t *Terminal) printReceipt(result *service.CheckoutResult, lines []domain.CartLine) {
	fmt.Fprintln(t.out, "--------------------------------")
	fmt.Fprintf(t.out, "%s\n", t.storeName)
	fmt.Fprintf(t.out, "Fiş No: %s\n", result.Sale.ReceiptNo)
	fmt.Fprintf(t.out, "Tarih: %s\n", result.Sale.CreatedAt.Local().Format("02.01.2006 15:04"))
	fmt.Fprintln(t.out, "--------------------------------")
	for _, line := range lines {
		fmt.Fprintf(t.out, "%-20s %3dx %10s\n", line.Name, line.Quantity, lira(line.LineTotalCents()))
	}
	for _, free := range result.FreeItems {
		fmt.Fprintf(t.out, "%-20s %3dx %10s\n", "HEDIYE", free.Quantity, lira(0))
	}
	fmt.Fprintln(t.out, "--------------------------------")
	fmt.Fprintf(t.out, "Ara toplam: %s\n", lira(result.SubtotalCents))
	if result.DiscountCents > 0 {
		fmt.Fprintf(t.out, "İndirim: -%s\n", lira(result.DiscountCents))
	}
	if result.PromoDiscountCents > 0 {
		fmt.Fprintf(t.out, "Kampanya: -%s\n", lira(result.PromoDiscountCents))
	}
	fmt.Fprintf(t.out, "TOPLAM: %s\n", lira(result.TotalCents))
	if result.ChangeCents > 0 {
		fmt.Fprintf(t.out, "Para üstü: %s\n", lira(result.ChangeCents))
	}
	if result.LoyaltyPoints > 0 {
		fmt.Fprintf(t.out, "Kazanılan puan: %d\n", result.LoyaltyPoints)
	}
	fmt.Fprintln(t.out, "Teşekkür ederiz!")
	fmt.Fprintln(t.out, "--------------------------------")
}

func (t *Terminal) returnFlow(ctx context.Context) error {
	saleID, err := t.promptInt("İade edilecek satış no", 0)
	if err != nil || saleID < 1 {
		return fmt.Errorf("geçersiz satış no")
	}

	detail, err := t.svc.SaleDetail(ctx, saleID)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Satış %d (%s): %s, durum %s\n",
		detail.Sale.ID, detail.Sale.ReceiptNo, lira(detail.Sale.TotalCents), detail.Sale.Status)
	for _, item := range detail.Items {
		fmt.Fprintf(t.out, "  ürün %d x%d (%s)\n", item.ProductID, item.Quantity, lira(item.UnitPriceCents))
	}

	ok, err := t.confirm("Tamamı iade edilsin mi?")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	reason, err := t.prompt("İade sebebi")
	if err != nil {
		return err
	}

	ret, err := t.svc.ReturnSale(ctx, saleID, reason, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "İade %d tamamlandı, tutar %s.\n", ret.ID, lira(ret.AmountCents))
	return nil
}

func (t *Terminal) shiftMenu(ctx context.Context) error {
	fmt.Fprintln(t.out, " 1) Vardiya başlat")
	fmt.Fprintln(t.out, " 2) Vardiya durumu")
	fmt.Fprintln(t.out, " 3) Vardiya kapat (Z raporu)")
	choice, err := t.prompt("Seçim")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		starting, err := t.promptCents("Açılış kasası", 0)
		if err != nil {
			return err
		}
		shift, err := t.svc.StartShift(ctx, starting)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "Vardiya %d başladı, açılış %s.\n", shift.ID, lira(shift.StartingCashCents))
	case "2":
		shift, err := t.svc.ActiveShift(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(t.out, "Açık vardiya yok.")
				return nil
			}
			return err
		}
		report, err := t.svc.BuildZReport(ctx, shift.ID, 0, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "Vardiya %d, başlangıç %s\n", shift.ID, shift.StartTime.Local().Format("02.01.2006 15:04"))
		fmt.Fprintf(t.out, "Satış: %s (nakit %s, kart %s, veresiye %s)\n",
			lira(report.TotalSalesCents), lira(report.CashSalesCents), lira(report.CardSalesCents), lira(report.CreditSalesCents))
		fmt.Fprintf(t.out, "Beklenen kasa: %s\n", lira(report.ExpectedCashCents))
	case "3":
		counted, err := t.promptCents("Sayılan nakit", 0)
		if err != nil {
			return err
		}
		notes, err := t.prompt("Not (boş geçilebilir)")
		if err != nil {
			return err
		}
		report, err := t.svc.CloseShift(ctx, counted, notes)
		if err != nil {
			return err
		}
		t.printZReport(report)
	default:
		fmt.Fprintln(t.out, "Geçersiz seçim.")
	}
	return nil
}

func (t *Terminal) printZReport(report *domain.ZReport) {
	fmt.Fprintln(t.out, "========= Z RAPORU =========")
	fmt.Fprintf(t.out, "Vardiya: %d (%s)\n", report.ShiftID, report.Username)
	fmt.Fprintf(t.out, "Başlangıç: %s\n", report.StartTime.Local().Format("02.01.2006 15:04"))
	fmt.Fprintf(t.out, "Bitiş: %s\n", report.EndTime.Local().Format("02.01.2006 15:04"))
	fmt.Fprintf(t.out, "Açılış kasası: %s\n", lira(report.StartingCashCents))
	fmt.Fprintf(t.out, "Toplam satış: %s\n", lira(report.TotalSalesCents))
	fmt.Fprintf(t.out, "  Nakit: %s\n", lira(report.CashSalesCents))
	fmt.Fprintf(t.out, "  Kart: %s\n", lira(report.CardSalesCents))
	fmt.Fprintf(t.out, "  Veresiye: %s\n", lira(report.CreditSalesCents))
	fmt.Fprintf(t.out, "Tahsilat (nakit): %s\n", lira(report.CashPaymentsCents))
	fmt.Fprintf(t.out, "Tahsilat (kart): %s\n", lira(report.CardPaymentsCents))
	fmt.Fprintf(t.out, "Beklenen kasa: %s\n", lira(report.ExpectedCashCents))
	fmt.Fprintf(t.out, "Sayılan kasa: %s\n", lira(report.CountedCashCents))
	fmt.Fprintf(t.out, "Fark: %s\n", lira(report.DifferenceCents))
	if report.Notes != "" {
		fmt.Fprintf(t.out, "Not: %s\n", report.Notes)
	}
	fmt.Fprintln(t.out, "============================")
}
