// Package export renders directory snapshots as XLSX, CSV or PDF.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"collectorkit/internal/domain/entities"
	"collectorkit/pkg/textutil"
)

// Report is a directory snapshot.
type Report struct {
	GeneratedAt time.Time
	Customers   []entities.Customer
	Devices     []entities.Device
}

// Labeler localizes column headers. A nil Labeler keeps them in English.
type Labeler func(text string) string

func (l Labeler) label(text string) string {
	if l == nil {
		return text
	}
	return l(text)
}

func (l Labeler) customerHeader() []string {
	return []string{"ID", l.label("Name"), l.label("Devices"), l.label("Active devices"), l.label("Inactive devices")}
}

func (l Labeler) deviceHeader() []string {
	return []string{"ID", l.label("Customer"), l.label("Site"), l.label("Name"), l.label("Serial"), l.label("Active"), l.label("Created")}
}

func customerRow(c entities.Customer) []any {
	return []any{c.ID, c.Name, c.DeviceCount, c.ActiveDevices, c.InactiveDevices}
}

func (l Labeler) deviceRow(d entities.Device) []any {
	state := l.label("No")
	if d.Active {
		state = l.label("Yes")
	}
	created := ""
	if !d.CreatedAt.IsZero() {
		created = d.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []any{d.ID, d.CustomerID, d.SiteID, d.Name, d.Serial, state, created}
}

// XLSX writes a workbook with a customers sheet and a devices sheet.
func XLSX(w io.Writer, r Report, labels Labeler) error {
	f := excelize.NewFile()
	defer f.Close()

	customers := labels.label("Customers")
	devices := labels.label("Devices")
	if err := f.SetSheetName("Sheet1", customers); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	if _, err := f.NewSheet(devices); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}

	if err := writeRows(f, customers, labels.customerHeader(), len(r.Customers), func(i int) []any {
		return customerRow(r.Customers[i])
	}); err != nil {
		return err
	}
	if err := writeRows(f, devices, labels.deviceHeader(), len(r.Devices), func(i int) []any {
		return labels.deviceRow(r.Devices[i])
	}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []string, n int, row func(int) []any) error {
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("export xlsx %s: %w", sheet, err)
	}
	for i := 0; i < n; i++ {
		values := row(i)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export xlsx %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("export xlsx %s: %w", sheet, err)
		}
	}
	return nil
}

// DevicesCSV writes the devices as comma-separated, fully quoted records.
func DevicesCSV(w io.Writer, devices []entities.Device, labels Labeler) error {
	records := make([][]string, 0, len(devices)+1)
	records = append(records, labels.deviceHeader())
	for _, d := range devices {
		row := labels.deviceRow(d)
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = stringify(v)
		}
		records = append(records, rec)
	}
	if _, err := io.WriteString(w, textutil.GenerateCSV(records, ',')); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

// PDF writes a printable summary: one table of customers, one of devices.
func PDF(w io.Writer, r Report, labels Labeler) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("collectorkit directory", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, tr("collectorkit directory"))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.Cell(0, 6, generated.UTC().Format(time.RFC3339))
	pdf.Ln(10)

	table(pdf, tr, labels.label("Customers"), labels.customerHeader(), []float64{20, 90, 40, 50, 50}, len(r.Customers), func(i int) []any {
		return customerRow(r.Customers[i])
	})
	pdf.Ln(6)
	table(pdf, tr, labels.label("Devices"), labels.deviceHeader(), []float64{20, 30, 25, 70, 50, 25, 50}, len(r.Devices), func(i int) []any {
		return labels.deviceRow(r.Devices[i])
	})

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	return nil
}

func table(pdf *gofpdf.Fpdf, tr func(string) string, title string, header []string, widths []float64, n int, row func(int) []any) {
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, tr(title))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	for i, h := range header {
		pdf.CellFormat(widths[i], 6, tr(h), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for i := 0; i < n; i++ {
		for j, v := range row(i) {
			align := "L"
			if _, ok := v.(string); !ok {
				align = "R"
			}
			pdf.CellFormat(widths[j], 6, tr(stringify(v)), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
