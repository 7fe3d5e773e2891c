package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/service"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/insights"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/report"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/report/handler"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/source"
)

type stubLoader struct {
	snap *service.Snapshot
	err  error
}

func (l *stubLoader) Reload(context.Context) (*service.Snapshot, error) {
	return l.snap, l.err
}

func (l *stubLoader) LoadBytes(context.Context, []byte, string) (*service.Snapshot, error) {
	return l.snap, l.err
}

func fixtureSales() []sales.Sale {
	return []sales.Sale{
		{
			OccurredAt:    time.Date(2024, 3, 5, 9, 15, 0, 0, time.UTC),
			Customer:      "Ana",
			PaymentMethod: "Efectivo",
			TotalAmount:   3000,
			TotalCost:     600,
			GrossProfit:   2400,
			Items: []sales.CanonicalLineItem{
				{CanonicalName: "Café", Category: sales.CategoryCoffee, Quantity: 2, Revenue: 2400, Cost: 600, Profit: 1800, UnitPriceAvg: 1200, OccurrenceCount: 1},
			},
		},
		{
			OccurredAt:    time.Date(2024, 3, 5, 21, 40, 0, 0, time.UTC),
			Table:         "Mesa 3",
			PaymentMethod: "Mercado Pago",
			TotalAmount:   1500,
			GrossProfit:   1500,
			Items: []sales.CanonicalLineItem{
				{CanonicalName: "Pinta IPA", Category: sales.CategoryBeer, Quantity: 1, Revenue: 1500, Profit: 1500, UnitPriceAvg: 1500, OccurrenceCount: 1},
			},
		},
		{
			OccurredAt:    time.Date(2024, 2, 28, 13, 0, 0, 0, time.UTC),
			Customer:      "Carla",
			PaymentMethod: "Débito",
			TotalAmount:   1000,
			GrossProfit:   1000,
		},
	}
}

func fixtureSnapshot() *service.Snapshot {
	return &service.Snapshot{
		ID:          uuid.New(),
		LoadedAt:    time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC),
		Headers:     []string{"Fecha", "Cliente", "Total"},
		Fingerprint: "abc",
		Sales:       fixtureSales(),
	}
}

type testEnv struct {
	router http.Handler
	store  *report.Store
	loader *stubLoader
}

func newEnv(t *testing.T, loaded bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := &stubLoader{snap: fixtureSnapshot()}
	store := report.NewStore(loader, logger, nil)
	if loaded {
		store.Set(fixtureSnapshot())
	}

	h := handler.NewReportHandler(store, logger, handler.Options{
		Venue:    "Once y Doce",
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC) },
	})
	r := chi.NewRouter()
	r.Route("/api", h.Routes)
	return &testEnv{router: r, store: store, loader: loader}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestReportHandler_NotLoaded(t *testing.T) {
	env := newEnv(t, false)

	for _, path := range []string{"/api/sales", "/api/kpis", "/api/diagnostics", "/api/close", "/api/export/ledger.xlsx"} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, report.ErrNotLoaded.Error(), decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestReportHandler_Sales(t *testing.T) {
	env := newEnv(t, true)

	tests := []struct {
		name  string
		query string
		total int
	}{
		{"defaults to newest month", "", 2},
		{"all months", "?month=all", 3},
		{"text filter", "?month=all&q=carla", 1},
		{"category filter", "?category=Cerveza", 1},
		{"empty month", "?month=2023-01", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/sales"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			page := decode[insights.Page](t, rec)
			assert.Equal(t, tt.total, page.Total)
			assert.Len(t, page.Sales, tt.total)
		})
	}
}

func TestReportHandler_Months(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/months", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Months  []string `json:"months"`
		Current string   `json:"current"`
	}](t, rec)
	assert.Equal(t, []string{"2024-03", "2024-02"}, body.Months)
	assert.Equal(t, "2024-03", body.Current)
}

func TestReportHandler_KPIs(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/kpis?hour_from=20:00", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	k := decode[insights.KPIs](t, rec)
	assert.Equal(t, 2, k.Sales)
	assert.InDelta(t, 4500, k.Revenue, 1e-9)
	assert.InDelta(t, 3900, k.MonthProfit, 1e-9)
	assert.InDelta(t, 3000, k.MonthCash, 1e-9)
	assert.InDelta(t, 1500, k.MonthMercadoPago, 1e-9)
	assert.Equal(t, "2024-03-05", k.Day)
	assert.Equal(t, 1, k.DaySales)
	assert.InDelta(t, 1500, k.DayRevenue, 1e-9)
}

func TestReportHandler_Categories(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/categories?scope=day&day=2024-03-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	totals := decode[[]insights.CategoryTotal](t, rec)
	require.Len(t, totals, len(sales.Categories))
	assert.Equal(t, sales.CategoryCoffee, totals[0].Category)
	assert.InDelta(t, 2, totals[0].Units, 1e-9)

	rec = env.do(t, http.MethodGet, "/api/categories/daily?scope=range&from=2024-02-01&to=2024-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode[[]insights.DayUnits](t, rec)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-02-28", days[0].Day)
}

func TestReportHandler_Items(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/items?sort=revenue&top=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[insights.ItemReport](t, rec)
	require.Len(t, items.Items, 2)
	assert.Equal(t, "Café", items.Items[0].Name)

	rec = env.do(t, http.MethodGet, "/api/items?item=pinta", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items = decode[insights.ItemReport](t, rec)
	require.Len(t, items.Items, 1)
	assert.Equal(t, "Pinta IPA", items.Items[0].Name)
}

func TestReportHandler_Hours(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/hours", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hours := decode[insights.HourReport](t, rec)
	assert.Equal(t, 9, hours.PeakHour)
	assert.InDelta(t, 3000, hours.PeakValue, 1e-9)
}

func TestReportHandler_Close(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/close?day=2024-03-05&expenses=1.000,00&persons=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	c := decode[insights.DayCloseReport](t, rec)
	assert.InDelta(t, 4500, c.Income, 1e-9)
	assert.InDelta(t, 600, c.Cost, 1e-9)
	assert.InDelta(t, 3900, c.Gross, 1e-9)
	assert.InDelta(t, 2900, c.Net, 1e-9)
	assert.InDelta(t, 1450, c.PerPerson, 1e-9)
}

func TestReportHandler_BadRequests(t *testing.T) {
	env := newEnv(t, true)

	for _, path := range []string{
		"/api/sales?category=Pizza",
		"/api/kpis?hour_from=25:00",
		"/api/hours?scope=day&hour_to=nope",
		"/api/items?category=x",
	} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestReportHandler_Diagnostics(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/diagnostics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "abc", body["fingerprint"])
	assert.NotContains(t, body, "sales")
}

func TestReportHandler_Reload(t *testing.T) {
	env := newEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.store.Current())

	env.loader.err = fmt.Errorf("failed to fetch sales sheet: %w", &source.StatusError{URL: "x", StatusCode: 503})
	rec = env.do(t, http.MethodPost, "/api/reload", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "HTTP 503")

	env.loader.err = &service.NoRowsError{Headers: []string{"Foo"}}
	rec = env.do(t, http.MethodPost, "/api/import", strings.NewReader("Foo\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "Foo")
}

func TestReportHandler_ExportLedgerXLSX(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/export/ledger.xlsx?expanded=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="Ventas_OnceyDoce_2024-03_20240305_2300.xlsx"`)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Ventas")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestReportHandler_ExportInvoiceAndCSV(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/export/invoice.xlsx?month=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Facturacion_OnceyDoce_mes_20240305.xlsx")

	rec = env.do(t, http.MethodGet, "/api/export/ledger.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Fecha,Cliente,Mesa,"))

	rec = env.do(t, http.MethodGet, "/api/export/ledger.csv?month=2023-01", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
