// Package handler serves the sales dashboard API over the current snapshot.
package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/export"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/parser"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/service"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/sniffer"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/insights"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/report"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/source"
)

const maxImportBody = 32 << 20

// Options configures naming and clock for the dashboard.
type Options struct {
	Venue    string
	Location *time.Location
	Now      func() time.Time
}

// ReportHandler serves the dashboard endpoints.
type ReportHandler struct {
	store  *report.Store
	opts   Options
	logger *slog.Logger
}

// NewReportHandler creates a handler reading from store.
func NewReportHandler(store *report.Store, logger *slog.Logger, opts Options) *ReportHandler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReportHandler{store: store, opts: opts, logger: logger}
}

// Routes registers the dashboard endpoints on r.
func (h *ReportHandler) Routes(r chi.Router) {
	r.Get("/sales", h.Sales)
	r.Get("/months", h.Months)
	r.Get("/kpis", h.KPIs)
	r.Get("/categories", h.Categories)
	r.Get("/categories/daily", h.CategoriesDaily)
	r.Get("/items", h.Items)
	r.Get("/hours", h.Hours)
	r.Get("/close", h.Close)
	r.Get("/diagnostics", h.Diagnostics)
	r.Post("/reload", h.Reload)
	r.Post("/import", h.Import)

	r.Get("/export/ledger.xlsx", h.ExportLedgerXLSX)
	r.Get("/export/ledger.csv", h.ExportLedgerCSV)
	r.Get("/export/invoice.xlsx", h.ExportInvoiceXLSX)
}

func (h *ReportHandler) today() string {
	return h.opts.Now().In(h.opts.Location).Format("2006-01-02")
}

// state builds the dashboard view for the request's filter and scope.
func (h *ReportHandler) state(r *http.Request) (insights.State, error) {
	all, err := h.store.Sales()
	if err != nil {
		return insights.State{}, err
	}
	q := r.URL.Query()

	st := insights.NewState(all)
	f, err := parseFilter(q, st.Filter.Month)
	if err != nil {
		return insights.State{}, err
	}
	st = st.WithFilter(f)

	if q.Has("scope") {
		sc, err := parseScope(q, f.Month, h.today())
		if err != nil {
			return insights.State{}, err
		}
		st = st.WithScope(sc)
	}
	return st, nil
}

// fail maps an error to a status and writes it.
func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badRequest *BadRequestError
		noRows     *service.NoRowsError
		upstream   *source.StatusError
		status     = http.StatusInternalServerError
	)
	switch {
	case errors.As(err, &badRequest):
		status = http.StatusBadRequest
	case errors.Is(err, report.ErrNotLoaded), errors.Is(err, source.ErrNoURL):
		status = http.StatusServiceUnavailable
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
	case errors.Is(err, export.ErrNoSales):
		status = http.StatusNotFound
	case errors.As(err, &noRows),
		errors.Is(err, sniffer.ErrEmptyFile),
		errors.Is(err, sniffer.ErrNoHeadersFound),
		errors.Is(err, sniffer.ErrInvalidDelimiter),
		errors.Is(err, parser.ErrUnsupportedFormat):
		status = http.StatusUnprocessableEntity
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("report request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	writeError(w, status, err)
}

// Sales handles GET /api/sales - one page of the filtered table.
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	st, err := h.state(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.Paginate(st.Filtered(), parseIntParam(r.URL.Query(), "page", 1)))
}

type monthsResponse struct {
	Months  []string `json:"months"`
	Current string   `json:"current"`
}

// Months handles GET /api/months - months present in the snapshot, newest first.
func (h *ReportHandler) Months(w http.ResponseWriter, r *http.Request) {
	st, err := h.state(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthsResponse{Months: insights.Months(st.Sales), Current: st.Filter.Month})
}

// KPIs handles GET /api/kpis.
func (h *ReportHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	st, err := h.state(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	hours, err := parseHours(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.ComputeKPIs(st.Sales, st.Filter, dayParam(q, h.today()), hours))
}

// Categories handles GET /api/categories - totals per category in scope.
func (h *ReportHandler) Categories(w http.ResponseWriter, r *http.Request) {
	st, err := h.state(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.ByCategory(st.Scoped()))
}

// CategoriesDaily handles GET /api/categories/daily.
func (h *ReportHandler) CategoriesDaily(w http.ResponseWriter, r *http.Request) {
	st, err := h.state(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.ByDayAndCategory(st.Scoped()))
}

// Items handles GET /api/items - the item explorer.
func (h *ReportHandler) Items(w http.ResponseWriter, r *http.Request) {
	st, err := h.state(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	category, err := parseCategory(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	query := insights.ItemQuery{
		Category: category,
		Text:     q.Get("item"),
		Sort:     insights.ParseSortKey(q.Get("sort")),
		TopN:     parseIntParam(q, "top", 0),
	}
	writeJSON(w, http.StatusOK, insights.ByItem(st.Scoped(), query))
}

// Hours handles GET /api/hours - revenue by hour of day.
func (h *ReportHandler) Hours(w http.ResponseWriter, r *http.Request) {
	st, err := h.state(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.ByHour(st.Scoped()))
}

// Close handles GET /api/close - the day cash-up.
func (h *ReportHandler) Close(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.Sales()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	hours, err := parseHours(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in := insights.CloseInput{
		Day:      dayParam(q, h.today()),
		Hours:    hours,
		Expenses: parseAmount(q, "expenses"),
		Persons:  parseIntParam(q, "persons", 0),
	}
	writeJSON(w, http.StatusOK, insights.DayClose(all, in))
}

// Diagnostics handles GET /api/diagnostics - metadata of the current load.
func (h *ReportHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	if snap == nil {
		h.fail(w, r, report.ErrNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Reload handles POST /api/reload - refetches the sheet.
func (h *ReportHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Reload(r.Context())
	if err != nil {
		h.fail(w, r, fmt.Errorf("failed to reload sales: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Import handles POST /api/import - loads an uploaded CSV, JSON or XLSX body.
func (h *ReportHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		h.fail(w, r, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	snap, err := h.store.Import(r.Context(), data, r.Header.Get("Content-Type"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("failed to import sales: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// filtered returns the table rows an export covers.
func (h *ReportHandler) filtered(r *http.Request) ([]sales.Sale, insights.Filter, error) {
	st, err := h.state(r)
	if err != nil {
		return nil, insights.Filter{}, err
	}
	return st.Filtered(), st.Filter, nil
}
