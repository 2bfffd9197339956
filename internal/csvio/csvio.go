// Package csvio reads and writes the semicolon separated product lists used
// for bulk catalog exchange with spreadsheet tools.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var Header = []string{
	"barkod", "urun_adi", "marka", "kategori", "stok",
	"kdv_haric_fiyat", "kdv_orani", "satis_fiyati", "min_stok", "aktif",
}

type Row struct {
	Barcode         string
	Name            string
	Brand           string
	Category        string
	Stock           int64
	PriceExVATCents int64
	VATRatePercent  float64
	PriceCents      int64
	MinStockLevel   int64
	Active          bool
}

type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Parse reads every data row, collecting per-row errors instead of aborting
// so one bad line does not sink a whole import.
func Parse(r io.Reader) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = len(Header)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}

	rows := make([]Row, 0, len(records)-1)
	var rowErrs []RowError
	for i, record := range records {
		if i == 0 && strings.EqualFold(strings.TrimSpace(record[0]), Header[0]) {
			continue
		}
		row, err := parseRecord(record)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: i + 1, Err: err})
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}

func parseRecord(record []string) (Row, error) {
	var row Row
	row.Barcode = strings.TrimSpace(record[0])
	row.Name = strings.TrimSpace(record[1])
	if row.Barcode == "" || row.Name == "" {
		return Row{}, fmt.Errorf("barcode and name are required")
	}
	row.Brand = strings.TrimSpace(record[2])
	row.Category = strings.TrimSpace(record[3])

	var err error
	if row.Stock, err = parseInt(record[4]); err != nil {
		return Row{}, fmt.Errorf("stock: %w", err)
	}
	if row.PriceExVATCents, err = parseCents(record[5]); err != nil {
		return Row{}, fmt.Errorf("price ex vat: %w", err)
	}
	if row.VATRatePercent, err = parseFloat(record[6]); err != nil {
		return Row{}, fmt.Errorf("vat rate: %w", err)
	}
	if row.PriceCents, err = parseCents(record[7]); err != nil {
		return Row{}, fmt.Errorf("price: %w", err)
	}
	if row.MinStockLevel, err = parseInt(record[8]); err != nil {
		return Row{}, fmt.Errorf("min stock: %w", err)
	}
	if row.PriceCents < 0 || row.Stock < 0 || row.MinStockLevel < 0 {
		return Row{}, fmt.Errorf("negative value")
	}

	switch strings.ToLower(strings.TrimSpace(record[9])) {
	case "", "1", "true", "evet":
		row.Active = true
	case "0", "false", "hayir", "hayır":
		row.Active = false
	default:
		return Row{}, fmt.Errorf("active flag %q", record[9])
	}
	return row, nil
}

// Write emits the header plus one line per row, prices as decimal lira.
func Write(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		active := "1"
		if !row.Active {
			active = "0"
		}
		record := []string{
			row.Barcode,
			row.Name,
			row.Brand,
			row.Category,
			strconv.FormatInt(row.Stock, 10),
			formatCents(row.PriceExVATCents),
			strconv.FormatFloat(row.VATRatePercent, 'f', -1, 64),
			formatCents(row.PriceCents),
			strconv.FormatInt(row.MinStockLevel, 10),
			active,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseInt(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseFloat(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// parseCents accepts "12.50" and "12,50" alike and returns cents.
func parseCents(raw string) (int64, error) {
	value, err := parseFloat(raw)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, fmt.Errorf("negative amount")
	}
	return int64(value*100 + 0.5), nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
