package terminal

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Kafisabah/HSP/internal/domain"
)

func (t *Terminal) customerMenu(ctx context.Context) error {
	fmt.Fprintln(t.out, " 1) Müşteri ara")
	fmt.Fprintln(t.out, " 2) Yeni müşteri")
	fmt.Fprintln(t.out, " 3) Tahsilat (veresiye ödemesi)")
	fmt.Fprintln(t.out, " 4) Hesap ekstresi")
	fmt.Fprintln(t.out, " 5) Kupon tanımla / ata")
	choice, err := t.prompt("Seçim")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		query, err := t.prompt("Ad veya telefon")
		if err != nil {
			return err
		}
		customers, err := t.svc.SearchCustomers(ctx, query, true)
		if err != nil {
			return err
		}
		for _, c := range customers {
			fmt.Fprintf(t.out, " %d) %s %s bakiye %s puan %d aktif=%t\n",
				c.ID, c.Name, c.Phone, lira(c.BalanceCents), c.LoyaltyPoints, c.Active)
		}
		if len(customers) == 0 {
			fmt.Fprintln(t.out, "Sonuç yok.")
		}
	case "2":
		name, err := t.prompt("Ad soyad")
		if err != nil {
			return err
		}
		phone, err := t.prompt("Telefon")
		if err != nil {
			return err
		}
		customer, err := t.svc.CreateCustomer(ctx, domain.Customer{Name: name, Phone: phone})
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "Müşteri %d kaydedildi.\n", customer.ID)
	case "3":
		customerID, err := t.promptInt("Müşteri no", 0)
		if err != nil || customerID < 1 {
			return fmt.Errorf("geçersiz müşteri no")
		}
		amount, err := t.promptCents("Tutar", 0)
		if err != nil {
			return err
		}
		methodRaw, err := t.prompt("Yöntem (1=nakit 2=kart)")
		if err != nil {
			return err
		}
		method := domain.PaymentCash
		if methodRaw == "2" {
			method = domain.PaymentCard
		}
		payment, err := t.svc.RecordCustomerPayment(ctx, customerID, amount, method, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "Tahsilat %d kaydedildi (%s).\n", payment.ID, lira(payment.AmountCents))
	case "4":
		customerID, err := t.promptInt("Müşteri no", 0)
		if err != nil || customerID < 1 {
			return fmt.Errorf("geçersiz müşteri no")
		}
		entries, err := t.svc.CustomerLedger(ctx, customerID, 50)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(t.out, " %s %s #%d %s\n",
				e.OccurredAt.Local().Format("02.01.2006 15:04"), e.Kind, e.RefID, lira(e.AmountCents))
		}
		if len(entries) == 0 {
			fmt.Fprintln(t.out, "Hareket yok.")
		}
	case "5":
		return t.couponMenu(ctx)
	default:
		fmt.Fprintln(t.out, "Geçersiz seçim.")
	}
	return nil
}

func (t *Terminal) couponMenu(ctx context.Context) error {
	fmt.Fprintln(t.out, " 1) Yeni kupon")
	fmt.Fprintln(t.out, " 2) Müşteriye kupon ata")
	choice, err := t.prompt("Seçim")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		code, err := t.prompt("Kupon kodu")
		if err != nil {
			return err
		}
		discount, err := t.promptCents("İndirim tutarı", 0)
		if err != nil {
			return err
		}
		coupon, err := t.svc.CreateCoupon(ctx, domain.Coupon{Code: code, DiscountCents: discount})
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "Kupon %d (%s) oluşturuldu.\n", coupon.ID, coupon.Code)
	case "2":
		customerID, err := t.promptInt("Müşteri no", 0)
		if err != nil || customerID < 1 {
			return fmt.Errorf("geçersiz müşteri no")
		}
		coupons, err := t.svc.ListCoupons(ctx, false)
		if err != nil {
			return err
		}
		for _, c := range coupons {
			fmt.Fprintf(t.out, " %d) %s %s\n", c.ID, c.Code, lira(c.DiscountCents))
		}
		couponID, err := t.promptInt("Kupon no", 0)
		if err != nil || couponID < 1 {
			return fmt.Errorf("geçersiz kupon no")
		}
		if _, err := t.svc.AssignCoupon(ctx, customerID, couponID); err != nil {
			return err
		}
		fmt.Fprintln(t.out, "Kupon atandı.")
	default:
		fmt.Fprintln(t.out, "Geçersiz seçim.")
	}
	return nil
}

func (t *Terminal) catalogMenu(ctx context.Context) error {
	fmt.Fprintln(t.out, " 1) Ürün ara")
	fmt.Fprintln(t.out, " 2) Yeni ürün")
	fmt.Fprintln(t.out, " 3) Fiyat güncelle")
	fmt.Fprintln(t.out, " 4) Stok düzelt")
	fmt.Fprintln(t.out, " 5) Kampanyalar")
	choice, err := t.prompt("Seçim")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		query, err := t.prompt("Barkod veya ad")
		if err != nil {
			return err
		}
		products, err := t.svc.SearchProducts(ctx, query, true)
		if err != nil {
			return err
		}
		for _, p := range products {
			fmt.Fprintf(t.out, " %d) %s %s fiyat %s stok %d min %d aktif=%t\n",
				p.ID, p.Barcode, p.Name, lira(p.PriceCents), p.Stock, p.MinStockLevel, p.Active)
		}
		if len(products) == 0 {
			fmt.Fprintln(t.out, "Sonuç yok.")
		}
	case "2":
		return t.newProductFlow(ctx)
	case "3":
		productID, err := t.promptInt("Ürün no", 0)
		if err != nil || productID < 1 {
			return fmt.Errorf("geçersiz ürün no")
		}
		price, err := t.promptCents("Yeni satış fiyatı", 0)
		if err != nil {
			return err
		}
		updated, err := t.svc.UpdateProduct(ctx, productID, domain.ProductUpdate{PriceCents: &price})
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "%s yeni fiyat %s.\n", updated.Name, lira(updated.PriceCents))
	case "4":
		productID, err := t.promptInt("Ürün no", 0)
		if err != nil || productID < 1 {
			return fmt.Errorf("geçersiz ürün no")
		}
		stock, err := t.promptInt("Yeni stok", 0)
		if err != nil {
			return err
		}
		if err := t.svc.SetStockLevel(ctx, productID, stock); err != nil {
			return err
		}
		fmt.Fprintln(t.out, "Stok güncellendi.")
	case "5":
		return t.promotionMenu(ctx)
	default:
		fmt.Fprintln(t.out, "Geçersiz seçim.")
	}
	return nil
}

func (t *Terminal) newProductFlow(ctx context.Context) error {
	barcode, err := t.prompt("Barkod")
	if err != nil {
		return err
	}
	name, err := t.prompt("Ürün adı")
	if err != nil {
		return err
	}
	price, err := t.promptCents("Satış fiyatı", 0)
	if err != nil {
		return err
	}
	vat, err := t.promptInt("KDV oranı (boş: 20)", 20)
	if err != nil {
		return err
	}
	stock, err := t.promptInt("Başlangıç stoğu (boş: 0)", 0)
	if err != nil {
		return err
	}
	minStock, err := t.promptInt("Minimum stok (boş: 0)", 0)
	if err != nil {
		return err
	}

	product := domain.Product{
		Barcode:        barcode,
		Name:           name,
		PriceCents:     price,
		VATRatePercent: float64(vat),
		Stock:          stock,
		MinStockLevel:  minStock,
	}
	if vat > 0 {
		product.PriceExVATCents = int64(float64(price)/(1+float64(vat)/100) + 0.5)
	} else {
		product.PriceExVATCents = price
	}

	created, err := t.svc.CreateProduct(ctx, product)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Ürün %d kaydedildi.\n", created.ID)
	return nil
}

func (t *Terminal) promotionMenu(ctx context.Context) error {
	fmt.Fprintln(t.out, " 1) Kampanya listesi")
	fmt.Fprintln(t.out, " 2) Adet indirimi tanımla")
	fmt.Fprintln(t.out, " 3) X al Y bedava tanımla")
	choice, err := t.prompt("Seçim")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		promos, err := t.svc.ListPromotions(ctx, true)
		if err != nil {
			return err
		}
		for _, p := range promos {
			fmt.Fprintf(t.out, " %d) %s [%s] ürün %d aktif=%t\n", p.ID, p.Name, p.Type, p.ProductID, p.Active)
		}
		if len(promos) == 0 {
			fmt.Fprintln(t.out, "Kampanya yok.")
		}
	case "2":
		promo, err := t.promptPromotionBase(domain.PromoQuantityDiscount)
		if err != nil {
			return err
		}
		promo.RequiredQuantity, err = t.promptInt("Gereken adet", 0)
		if err != nil {
			return err
		}
		promo.DiscountCents, err = t.promptCents("İndirim tutarı", 0)
		if err != nil {
			return err
		}
		created, err := t.svc.CreatePromotion(ctx, promo)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "Kampanya %d oluşturuldu.\n", created.ID)
	case "3":
		promo, err := t.promptPromotionBase(domain.PromoBuyXGetYFree)
		if err != nil {
			return err
		}
		promo.RequiredBuyQty, err = t.promptInt("Alınması gereken adet", 0)
		if err != nil {
			return err
		}
		promo.FreeQuantity, err = t.promptInt("Bedava adet", 0)
		if err != nil {
			return err
		}
		freeID, err := t.promptInt("Bedava ürün no (boş: aynı ürün)", 0)
		if err != nil {
			return err
		}
		if freeID > 0 {
			promo.FreeProductID = &freeID
		}
		created, err := t.svc.CreatePromotion(ctx, promo)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "Kampanya %d oluşturuldu.\n", created.ID)
	default:
		fmt.Fprintln(t.out, "Geçersiz seçim.")
	}
	return nil
}

func (t *Terminal) promptPromotionBase(promoType string) (domain.Promotion, error) {
	name, err := t.prompt("Kampanya adı")
	if err != nil {
		return domain.Promotion{}, err
	}
	productID, err := t.promptInt("Ürün no", 0)
	if err != nil || productID < 1 {
		return domain.Promotion{}, fmt.Errorf("geçersiz ürün no")
	}
	return domain.Promotion{Name: name, Type: promoType, ProductID: productID, Active: true}, nil
}

func (t *Terminal) purchaseFlow(ctx context.Context) error {
	invoiceNo, err := t.prompt("Fatura no (boş geçilebilir)")
	if err != nil {
		return err
	}
	supplierID, err := t.pickSupplier(ctx)
	if err != nil {
		return err
	}

	items := make([]domain.PurchaseItemDraft, 0, 8)
	for {
		productID, err := t.promptInt("Ürün no (0: bitir)", 0)
		if err != nil {
			return err
		}
		if productID == 0 {
			break
		}
		qty, err := t.promptInt("Adet", 0)
		if err != nil || qty < 1 {
			fmt.Fprintln(t.out, "Geçersiz adet.")
			continue
		}
		cost, err := t.promptCents("Birim alış fiyatı", 0)
		if err != nil {
			fmt.Fprintln(t.out, "Geçersiz tutar.")
			continue
		}
		items = append(items, domain.PurchaseItemDraft{ProductID: productID, Quantity: qty, UnitCostCents: cost})
	}
	if len(items) == 0 {
		fmt.Fprintln(t.out, "Mal kabul iptal edildi.")
		return nil
	}

	purchase, err := t.svc.RecordPurchase(ctx, domain.PurchaseDraft{SupplierID: supplierID, InvoiceNo: invoiceNo, Items: items})
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Mal kabul %d kaydedildi, toplam maliyet %s.\n", purchase.ID, lira(purchase.TotalCostCents))
	return nil
}

// pickSupplier lists active suppliers and lets the admin choose one or add a
// new one on the spot. A nil id means the purchase has no supplier.
func (t *Terminal) pickSupplier(ctx context.Context) (*int64, error) {
	suppliers, err := t.svc.ListSuppliers(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, s := range suppliers {
		fmt.Fprintf(t.out, " %d) %s %s\n", s.ID, s.Name, s.Phone)
	}
	raw, err := t.prompt("Tedarikçi no (boş: yok, y: yeni)")
	if err != nil {
		return nil, err
	}
	switch raw {
	case "":
		return nil, nil
	case "y":
		name, err := t.prompt("Tedarikçi adı")
		if err != nil {
			return nil, err
		}
		phone, err := t.prompt("Telefon")
		if err != nil {
			return nil, err
		}
		created, err := t.svc.CreateSupplier(ctx, domain.Supplier{Name: name, Phone: phone})
		if err != nil {
			return nil, err
		}
		return &created.ID, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return nil, fmt.Errorf("geçersiz tedarikçi no")
	}
	return &id, nil
}

func (t *Terminal) reportsMenu(ctx context.Context) error {
	fmt.Fprintln(t.out, " 1) Günlük satış özeti")
	fmt.Fprintln(t.out, " 2) Stok raporu (kritik)")
	fmt.Fprintln(t.out, " 3) İşlem kayıtları")
	choice, err := t.prompt("Seçim")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		raw, err := t.prompt("Tarih GG.AA.YYYY (boş: bugün)")
		if err != nil {
			return err
		}
		day := time.Now()
		if raw != "" {
			day, err = time.Parse("02.01.2006", raw)
			if err != nil {
				return fmt.Errorf("geçersiz tarih")
			}
		}
		summary, err := t.svc.DailySummary(ctx, day)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "%s: %d satış, brüt %s, indirim %s, kampanya %s, net %s\n",
			summary.Date.Format("02.01.2006"), summary.SaleCount, lira(summary.GrossCents),
			lira(summary.DiscountCents), lira(summary.PromoDiscountCents), lira(summary.NetCents))
	case "2":
		rows, err := t.svc.StockReport(ctx, true)
		if err != nil {
			return err
		}
		for _, row := range rows {
			lastCost := "-"
			if row.LastCostCents != nil {
				lastCost = lira(*row.LastCostCents)
			}
			fmt.Fprintf(t.out, " %s %s stok %d min %d öneri %d son alış %s\n",
				row.Barcode, row.Name, row.Stock, row.MinStockLevel, row.SuggestedOrder, lastCost)
		}
		if len(rows) == 0 {
			fmt.Fprintln(t.out, "Kritik stok yok.")
		}
	case "3":
		entries, err := t.svc.ListActivity(ctx, 30)
		if err != nil {
			return err
		}
		for _, e := range entries {
			user := "-"
			if e.UserID != nil {
				user = fmt.Sprintf("%d", *e.UserID)
			}
			fmt.Fprintf(t.out, " %s kullanıcı=%s %s %s\n",
				e.CreatedAt.Local().Format("02.01.2006 15:04"), user, e.Action, e.Details)
		}
	default:
		fmt.Fprintln(t.out, "Geçersiz seçim.")
	}
	return nil
}

func (t *Terminal) userMenu(ctx context.Context) error {
	fmt.Fprintln(t.out, " 1) Kullanıcı listesi")
	fmt.Fprintln(t.out, " 2) Yeni kullanıcı")
	fmt.Fprintln(t.out, " 3) Kullanıcı aktif/pasif")
	choice, err := t.prompt("Seçim")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		users, err := t.svc.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(t.out, " %d) %s (%s) %s aktif=%t\n", u.ID, u.Username, u.FullName, u.Role, u.Active)
		}
	case "2":
		username, err := t.prompt("Kullanıcı adı")
		if err != nil {
			return err
		}
		fullName, err := t.prompt("Ad soyad")
		if err != nil {
			return err
		}
		password, err := t.prompt("Şifre")
		if err != nil {
			return err
		}
		roleRaw, err := t.prompt("Rol (1=kasiyer 2=admin)")
		if err != nil {
			return err
		}
		role := domain.RoleCashier
		if roleRaw == "2" {
			role = domain.RoleAdmin
		}
		user, err := t.svc.CreateUser(ctx, username, fullName, password, role)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "Kullanıcı %d oluşturuldu.\n", user.ID)
	case "3":
		userID, err := t.promptInt("Kullanıcı no", 0)
		if err != nil || userID < 1 {
			return fmt.Errorf("geçersiz kullanıcı no")
		}
		active, err := t.confirm("Aktif olsun mu?")
		if err != nil {
			return err
		}
		if err := t.svc.SetUserActive(ctx, userID, active); err != nil {
			return err
		}
		fmt.Fprintln(t.out, "Güncellendi.")
	default:
		fmt.Fprintln(t.out, "Geçersiz seçim.")
	}
	return nil
}

func (t *Terminal) csvMenu(ctx context.Context) error {
	fmt.Fprintln(t.out, " 1) Ürünleri CSV'den yükle")
	fmt.Fprintln(t.out, " 2) Ürünleri CSV'ye aktar")
	choice, err := t.prompt("Seçim")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		path, err := t.prompt("Dosya yolu")
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		summary, err := t.svc.ImportProductsCSV(ctx, file)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "Yeni: %d, güncellenen: %d, atlanan: %d\n",
			summary.Created, summary.Updated, len(summary.Skipped))
		for _, skipped := range summary.Skipped {
			fmt.Fprintf(t.out, "  atlandı: %v\n", skipped)
		}
	case "2":
		path, err := t.prompt("Dosya yolu")
		if err != nil {
			return err
		}
		if !strings.HasSuffix(path, ".csv") {
			path += ".csv"
		}
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()

		count, err := t.svc.ExportProductsCSV(ctx, file)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "%d ürün %s dosyasına yazıldı.\n", count, path)
	default:
		fmt.Fprintln(t.out, "Geçersiz seçim.")
	}
	return nil
}
