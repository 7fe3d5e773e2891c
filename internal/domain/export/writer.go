package export

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

const (
	LedgerSheet  = "Ventas"
	InvoiceSheet = "Sheet1"

	// excel number format for "dd/mm/yyyy hh:mm"
	dateTimeFormat = "dd/mm/yyyy hh:mm"
)

var ledgerHeaders = []string{"Fecha", "Cliente", "Mesa", "Método", "Items", "Total (ARS)", "Ganancia (ARS)"}
var ledgerWidths = []float64{20, 20, 12, 16, 50, 14, 14}

var invoiceHeaders = []string{
	"Fecha Comprobante", "Producto / Servicio", "Precio Unitario", "Cantidad", "Total", "Tipo",
	"Facturado Desde", "Facturado Hasta", "Condicion de Venta", "Condicion de IVA",
	"CUIT o DNI (Opcional)", "Email (Opcional)",
}
var invoiceWidths = []float64{20, 60, 16, 10, 14, 12, 20, 20, 34, 20, 22, 24}

// invoiceDateColumns are the 1-based invoice columns holding dates.
var invoiceDateColumns = []int{1, 7, 8}

// sheetSpec is one worksheet to write.
type sheetSpec struct {
	name        string
	headers     []string
	widths      []float64
	rows        [][]any
	dateColumns []int
}

// WriteLedgerXLSX writes the ledger view as a single-sheet workbook.
func WriteLedgerXLSX(w io.Writer, all []sales.Sale, opts Options) error {
	if len(all) == 0 {
		return ErrNoSales
	}
	ledger := Ledger(all, opts)
	rows := make([][]any, len(ledger))
	for i, r := range ledger {
		rows[i] = []any{r.Date, r.Customer, r.Table, r.Method, r.Items, r.Total, r.Profit}
	}
	return writeWorkbook(w, sheetSpec{name: LedgerSheet, headers: ledgerHeaders, widths: ledgerWidths, rows: rows})
}

// WriteInvoiceXLSX writes the invoice-line view as a single-sheet workbook.
func WriteInvoiceXLSX(w io.Writer, all []sales.Sale, opts Options) error {
	if len(all) == 0 {
		return ErrNoSales
	}
	invoice := Invoice(all, opts)
	rows := make([][]any, len(invoice))
	for i, r := range invoice {
		rows[i] = []any{
			wallClock(r.Date), r.Product, r.UnitPrice, r.Quantity, r.Total, r.Kind,
			wallClock(r.BilledFrom), wallClock(r.BilledTo), r.SaleCondition, r.TaxCondition, r.TaxID, r.Email,
		}
	}
	return writeWorkbook(w, sheetSpec{
		name:        InvoiceSheet,
		headers:     invoiceHeaders,
		widths:      invoiceWidths,
		rows:        rows,
		dateColumns: invoiceDateColumns,
	})
}

// WriteLedgerCSV writes the ledger view as CSV with a header line.
func WriteLedgerCSV(w io.Writer, all []sales.Sale, opts Options) error {
	if len(all) == 0 {
		return ErrNoSales
	}
	rows := Ledger(all, opts)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write ledger CSV: %w", err)
	}
	return nil
}

func writeWorkbook(w io.Writer, layout sheetSpec) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", layout.name); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	fmtCode := dateTimeFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &fmtCode})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	header := make([]any, len(layout.headers))
	for i, h := range layout.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(layout.name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(layout.headers), 1)
	if err != nil {
		return fmt.Errorf("failed to resolve header range: %w", err)
	}
	if err := f.SetCellStyle(layout.name, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range layout.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(layout.name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	for _, col := range layout.dateColumns {
		top, _ := excelize.CoordinatesToCellName(col, 2)
		bottom, _ := excelize.CoordinatesToCellName(col, len(layout.rows)+1)
		if err := f.SetCellStyle(layout.name, top, bottom, dateStyle); err != nil {
			return fmt.Errorf("failed to style date column: %w", err)
		}
	}

	for i, width := range layout.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(layout.name, col, col, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// wallClock keeps the local date and time but drops the zone, since
// spreadsheet dates carry no offset.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
