package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/export"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

type exportWriter func(w io.Writer, all []sales.Sale, opts export.Options) error

// ExportLedgerXLSX handles GET /api/export/ledger.xlsx.
func (h *ReportHandler) ExportLedgerXLSX(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, export.WriteLedgerXLSX, export.LedgerFileName, xlsxContentType)
}

// ExportLedgerCSV handles GET /api/export/ledger.csv.
func (h *ReportHandler) ExportLedgerCSV(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, export.WriteLedgerCSV, export.LedgerCSVFileName, csvContentType)
}

// ExportInvoiceXLSX handles GET /api/export/invoice.xlsx.
func (h *ReportHandler) ExportInvoiceXLSX(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, export.WriteInvoiceXLSX, export.InvoiceFileName, xlsxContentType)
}

// download renders the filtered table into memory first so a failure can
// still be reported as JSON.
func (h *ReportHandler) download(w http.ResponseWriter, r *http.Request, write exportWriter, name func(export.Options) string, contentType string) {
	all, f, err := h.filtered(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	opts := export.Options{
		Venue:    h.opts.Venue,
		Month:    f.Month,
		Expanded: parseBoolParam(r.URL.Query(), "expanded", false),
		Location: h.opts.Location,
		Now:      h.opts.Now(),
	}

	var buf bytes.Buffer
	if err := write(&buf, all, opts); err != nil {
		h.fail(w, r, fmt.Errorf("failed to export sales: %w", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name(opts)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
