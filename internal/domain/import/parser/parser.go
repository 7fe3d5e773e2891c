// Package parser turns a raw sales export (CSV, JSON or XLSX) into ordered
// rows, and provides the locale aware value parsers used by normalization.
// CSV decoding goes through gocsv with format sniffing; XLSX through excelize.
package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/sniffer"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

// Format identifies the encoding of a raw export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned when no reader handles the payload.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Table is a materialized export: ordered rows plus the detected headers.
type Table struct {
	Format      Format
	Headers     []string
	Rows        []*sales.Row
	Fingerprint string
	SkippedRows int
}

// ParseError reports a record that could not be read.
type ParseError struct {
	Row     int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// DetectFormat guesses the payload encoding from its content type and first bytes.
func DetectFormat(data []byte, contentType string) Format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "spreadsheetml"), strings.Contains(ct, "ms-excel"):
		return FormatXLSX
	case strings.Contains(ct, "json"):
		return FormatJSON
	}

	// xlsx files are zip archives
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatCSV
}

// Read materializes the payload using the reader for format.
func Read(data []byte, format Format) (*Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(data)
	case FormatJSON:
		return ReadJSON(data)
	case FormatXLSX:
		return ReadXLSX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ReadCSV reads a delimited export. The delimiter and header row are sniffed;
// blank records are skipped and duplicate header names get a numeric suffix.
func ReadCSV(data []byte) (*Table, error) {
	cfg, err := sniffer.DetectConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to detect CSV layout: %w", err)
	}

	reader := gocsv.LazyCSVReader(skipLines(bytes.NewReader(data), cfg.SkipLines))
	if r, ok := reader.(*csv.Reader); ok {
		r.Comma = cfg.Delimiter
		r.FieldsPerRecord = -1
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, sniffer.ErrNoHeadersFound
	}

	headers := uniqueHeaders(records[0])
	table := &Table{
		Format:      FormatCSV,
		Headers:     headers,
		Rows:        make([]*sales.Row, 0, len(records)-1),
		Fingerprint: sniffer.Fingerprint(headers),
	}

	for _, record := range records[1:] {
		if isBlankRecord(record) {
			table.SkippedRows++
			continue
		}
		table.Rows = append(table.Rows, recordToRow(headers, record))
	}
	return table, nil
}

// ReadJSON reads either an array of objects or an object wrapping one under
// rows, data, items or ventas. Object key order is kept.
func ReadJSON(data []byte) (*Table, error) {
	doc, err := sales.DecodeJSON(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var list []any
	switch v := doc.(type) {
	case []any:
		list = v
	case *sales.Row:
		for _, key := range []string{"rows", "data", "items", "ventas"} {
			if inner, ok := v.Get(key); ok {
				if arr, ok := inner.([]any); ok {
					list = arr
					break
				}
			}
		}
		if list == nil {
			list = []any{v}
		}
	default:
		return nil, fmt.Errorf("%w: JSON document is neither an array nor an object", ErrUnsupportedFormat)
	}

	table := &Table{Format: FormatJSON, Rows: make([]*sales.Row, 0, len(list))}
	seen := make(map[string]bool)
	for _, entry := range list {
		row, ok := entry.(*sales.Row)
		if !ok || row.Len() == 0 {
			table.SkippedRows++
			continue
		}
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				table.Headers = append(table.Headers, k)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	table.Fingerprint = sniffer.Fingerprint(table.Headers)
	return table, nil
}

func recordToRow(headers, record []string) *sales.Row {
	row := sales.NewRow()
	for i, h := range headers {
		value := ""
		if i < len(record) {
			value = record[i]
		}
		row.Set(h, value)
	}
	return row
}

func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	counts := make(map[string]int)
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if h == "" {
			h = fmt.Sprintf("column%d", i+1)
		}
		if n := counts[h]; n > 0 {
			counts[h]++
			h = fmt.Sprintf("%s_%d", h, n)
		} else {
			counts[h] = 1
		}
		headers[i] = h
	}
	return headers
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// skipLines drops the first n lines of r.
func skipLines(r io.Reader, n int) io.Reader {
	if n <= 0 {
		return r
	}
	br := bufio.NewReader(r)
	for i := 0; i < n; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			break
		}
	}
	return br
}
