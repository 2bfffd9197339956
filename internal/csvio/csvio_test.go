package csvio

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseWriteRoundTrip(t *testing.T) {
	rows := []Row{
		{Barcode: "8690504011001", Name: "Çay 1kg", Brand: "Çaykur", Category: "İçecek", Stock: 40, PriceExVATCents: 12500, VATRatePercent: 1, PriceCents: 12625, MinStockLevel: 10, Active: true},
		{Barcode: "8690526081208", Name: "Bisküvi", Stock: 0, PriceCents: 1550, VATRatePercent: 20, Active: false},
	}

	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}

	parsed, rowErrs, err := Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("unexpected row errors: %v", rowErrs)
	}
	if len(parsed) != len(rows) {
		t.Fatalf("got %d rows, want %d", len(parsed), len(rows))
	}
	for i := range rows {
		if parsed[i] != rows[i] {
			t.Errorf("row %d: got %+v, want %+v", i, parsed[i], rows[i])
		}
	}
}

func TestParseCommaDecimals(t *testing.T) {
	input := strings.Join([]string{
		strings.Join(Header, ";"),
		"869123;Süt 1L;;;12;20,50;10;22,55;5;1",
	}, "\n")

	rows, rowErrs, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("unexpected row errors: %v", rowErrs)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].PriceCents != 2255 {
		t.Errorf("price = %d, want 2255", rows[0].PriceCents)
	}
	if rows[0].PriceExVATCents != 2050 {
		t.Errorf("price ex vat = %d, want 2050", rows[0].PriceExVATCents)
	}
}

func TestParseSkipsBadRows(t *testing.T) {
	input := strings.Join([]string{
		strings.Join(Header, ";"),
		"869001;Tuz;;;10;5,00;1;5,05;2;1",
		";Eksik Barkod;;;1;1,00;1;1,01;0;1",
		"869002;Şeker;;;abc;5,00;1;5,05;2;1",
	}, "\n")

	rows, rowErrs, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d good rows, want 1", len(rows))
	}
	if len(rowErrs) != 2 {
		t.Fatalf("got %d row errors, want 2: %v", len(rowErrs), rowErrs)
	}
	if rowErrs[0].Line != 3 || rowErrs[1].Line != 4 {
		t.Errorf("error lines = %d,%d, want 3,4", rowErrs[0].Line, rowErrs[1].Line)
	}
}
