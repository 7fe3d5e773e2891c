package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/sniffer"
)

// preferredSheets are checked before falling back to the first sheet.
var preferredSheets = []string{"ventas", "respuestas", "pedidos", "sales", "orders", "sheet1", "hoja 1", "hoja1"}

// ReadXLSX reads the sales sheet of a workbook. Cells are read raw so date
// cells come through as spreadsheet serials instead of display strings.
func ReadXLSX(reader io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(reader, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := findSalesSheet(f)
	if sheet == "" {
		return nil, fmt.Errorf("no suitable sheet found")
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create row iterator: %w", err)
	}
	defer rows.Close()

	table := &Table{Format: FormatXLSX}
	rowNum := 0
	for rows.Next() {
		rowNum++
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, ParseError{Row: rowNum, Message: err.Error()}
		}

		if table.Headers == nil {
			if isBlankRecord(cols) {
				continue
			}
			table.Headers = uniqueHeaders(cols)
			continue
		}
		if isBlankRecord(cols) {
			table.SkippedRows++
			continue
		}
		table.Rows = append(table.Rows, recordToRow(table.Headers, cols))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if table.Headers == nil {
		return nil, sniffer.ErrNoHeadersFound
	}

	table.Fingerprint = sniffer.Fingerprint(table.Headers)
	return table, nil
}

func findSalesSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, preferred := range preferredSheets {
		for _, sheet := range sheets {
			if strings.EqualFold(strings.TrimSpace(sheet), preferred) {
				return sheet
			}
		}
	}
	return sheets[0]
}
