// Package service turns raw sales rows into normalized Sale records.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/headers"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/items"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/normalizer"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/parser"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/sniffer"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

const maxPaymentLabelRunes = 25

var (
	tablePattern   = regexp.MustCompile(`(?i)^mesa\s*\d+`)
	numericPattern = regexp.MustCompile(`^[\s$€%+\-.,\d]*$`)

	// paymentHints are the normalized column name fragments searched when the
	// payment method column is empty.
	paymentHints = []string{"forma", "medio", "metodo", "pago", "costo"}

	// totalFallbacks lists the columns tried, in order, for the sale total.
	totalFallbacks = []headers.Field{
		headers.FieldTotal,
		headers.FieldProfit,
		headers.FieldCost,
		headers.FieldPaid,
	}
)

// Snapshot is one immutable load of the sales source.
type Snapshot struct {
	ID          uuid.UUID     `json:"id"`
	LoadedAt    time.Time     `json:"loaded_at"`
	Format      parser.Format `json:"format,omitempty"`
	Headers     []string      `json:"headers"`
	Fingerprint string        `json:"fingerprint"`
	Sales       []sales.Sale  `json:"-"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}

// Diagnostics summarizes how a load went, for operators chasing header mismatches.
type Diagnostics struct {
	RowsRead       int                      `json:"rows_read"`
	RowsSkipped    int                      `json:"rows_skipped"`
	SalesLoaded    int                      `json:"sales_loaded"`
	DateFallbacks  int                      `json:"date_fallbacks"`
	WithoutItems   int                      `json:"without_items"`
	ZeroTotals     int                      `json:"zero_totals"`
	InferredPaying int                      `json:"inferred_payment_methods"`
	Columns        map[headers.Field]string `json:"columns"`
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLocation sets the zone used for naive timestamps and spreadsheet serials.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// WithClock overrides the clock used for undated rows and load stamps.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithWorkers caps the number of goroutines used by Load.
func WithWorkers(workers int) Option {
	return func(n *Normalizer) {
		if workers > 0 {
			n.workers = workers
		}
	}
}

// WithItemParser replaces the default item list parser.
func WithItemParser(p *items.Parser) Option {
	return func(n *Normalizer) {
		if p != nil {
			n.items = p
		}
	}
}

// Normalizer converts raw rows into Sale records. It holds no mutable state
// and is safe for concurrent use.
type Normalizer struct {
	resolver *headers.Resolver
	items    *items.Parser
	canon    *normalizer.Canonicalizer
	loc      *time.Location
	now      func() time.Time
	workers  int
	logger   *slog.Logger
}

// NewNormalizer creates a Normalizer from its collaborators.
func NewNormalizer(resolver *headers.Resolver, canon *normalizer.Canonicalizer, logger *slog.Logger, opts ...Option) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Normalizer{
		resolver: resolver,
		items:    items.NewParser(),
		canon:    canon,
		loc:      time.Local,
		now:      time.Now,
		workers:  runtime.GOMAXPROCS(0),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.workers < 1 {
		n.workers = 1
	}
	return n
}

// Normalize converts one row. Missing or malformed values degrade the sale
// rather than rejecting it.
func (n *Normalizer) Normalize(row *sales.Row) sales.Sale {
	sale, _ := n.normalize(row)
	return sale
}

type rowFlags struct {
	dateFallback    bool
	inferredPayment bool
}

func (n *Normalizer) normalize(row *sales.Row) (sales.Sale, rowFlags) {
	var flags rowFlags
	b := n.resolver.Bind(row)

	var sale sales.Sale
	if raw, ok := b.Value(headers.FieldDate); ok {
		sale.RawTimestamp = strings.TrimSpace(parser.ToString(raw))
		if t, ok := parser.ParseDateValue(raw, n.loc); ok {
			sale.OccurredAt = t
		}
	}
	if sale.OccurredAt.IsZero() {
		sale.OccurredAt = n.now().In(n.loc)
		flags.dateFallback = true
	}

	sale.Customer = b.String(headers.FieldCustomer)
	sale.Table = b.String(headers.FieldTable)
	if sale.Table == "" && tablePattern.MatchString(sale.Customer) {
		sale.Table = sale.Customer
		sale.Customer = ""
	}

	for _, field := range totalFallbacks {
		if v := b.Number(field); v != 0 {
			sale.TotalAmount = v
			break
		}
	}
	cost := b.Number(headers.FieldCost)
	profit := b.Number(headers.FieldProfit)

	sale.PaymentMethod = b.String(headers.FieldPaymentMethod)
	if sale.PaymentMethod == "" {
		sale.PaymentMethod = inferPaymentMethod(b)
		flags.inferredPayment = sale.PaymentMethod != ""
	}

	cell, found := b.Value(headers.FieldItems)
	sale.Items = n.canon.Merge(n.items.Parse(row, cell, found))

	if cost == 0 {
		for _, it := range sale.Items {
			cost += it.Cost
		}
	}
	if profit == 0 {
		profit = sale.TotalAmount - cost
	}
	sale.TotalCost = cost
	sale.GrossProfit = profit

	return sale, flags
}

// inferPaymentMethod returns the first short textual value held by a column
// whose name suggests a payment method.
func inferPaymentMethod(b *headers.Bound) string {
	keys, normalized := b.NormalizedColumns()
	for i, col := range normalized {
		if !hasPaymentHint(col) {
			continue
		}
		v, ok := b.Row().Get(keys[i])
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if looksLikeLabel(s) {
			return s
		}
	}
	return ""
}

func hasPaymentHint(col string) bool {
	for _, hint := range paymentHints {
		if strings.Contains(col, hint) {
			return true
		}
	}
	return false
}

func looksLikeLabel(s string) bool {
	if s == "" || utf8.RuneCountInString(s) >= maxPaymentLabelRunes {
		return false
	}
	if numericPattern.MatchString(s) {
		return false
	}
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

type normalizeJob struct {
	index int
	row   *sales.Row
}

type normalizeResult struct {
	index int
	sale  sales.Sale
	flags rowFlags
}

// Load normalizes every usable row into a new Snapshot. Rows are processed
// concurrently; the output keeps source order.
func (n *Normalizer) Load(ctx context.Context, rows []*sales.Row) (*Snapshot, error) {
	return n.load(ctx, &parser.Table{Headers: collectHeaders(rows), Rows: rows})
}

// LoadTable is Load for a parsed table, keeping its format and header fingerprint.
func (n *Normalizer) LoadTable(ctx context.Context, table *parser.Table) (*Snapshot, error) {
	if table == nil {
		return nil, &NoRowsError{}
	}
	return n.load(ctx, table)
}

func (n *Normalizer) load(ctx context.Context, table *parser.Table) (*Snapshot, error) {
	usable := make([]*sales.Row, 0, len(table.Rows))
	for _, row := range table.Rows {
		if isUsable(row) {
			usable = append(usable, row)
		}
	}

	diag := Diagnostics{
		RowsRead:    len(table.Rows) + table.SkippedRows,
		RowsSkipped: len(table.Rows) - len(usable) + table.SkippedRows,
		Columns:     map[headers.Field]string{},
	}
	if len(usable) == 0 {
		return nil, &NoRowsError{Headers: table.Headers}
	}

	probe := n.resolver.Bind(usable[0])
	for _, field := range headers.Fields {
		if col, ok := probe.Column(field); ok {
			diag.Columns[field] = col
		}
	}

	results, err := n.normalizeAll(ctx, usable)
	if err != nil {
		return nil, err
	}

	out := make([]sales.Sale, len(results))
	for i, r := range results {
		out[i] = r.sale
		if r.flags.dateFallback {
			diag.DateFallbacks++
		}
		if r.flags.inferredPayment {
			diag.InferredPaying++
		}
		if len(r.sale.Items) == 0 {
			diag.WithoutItems++
		}
		if r.sale.TotalAmount == 0 {
			diag.ZeroTotals++
		}
	}
	diag.SalesLoaded = len(out)

	fingerprint := table.Fingerprint
	if fingerprint == "" {
		fingerprint = sniffer.Fingerprint(table.Headers)
	}

	snap := &Snapshot{
		ID:          uuid.New(),
		LoadedAt:    n.now(),
		Format:      table.Format,
		Headers:     append([]string(nil), table.Headers...),
		Fingerprint: fingerprint,
		Sales:       out,
		Diagnostics: diag,
	}

	n.logger.Info("sales snapshot loaded",
		slog.String("snapshot_id", snap.ID.String()),
		slog.Int("sales", diag.SalesLoaded),
		slog.Int("rows_skipped", diag.RowsSkipped),
		slog.Int("date_fallbacks", diag.DateFallbacks),
		slog.String("fingerprint", fingerprint),
		slog.Any("headers", snap.Headers),
	)
	if diag.DateFallbacks > 0 {
		n.logger.Warn("rows without a readable date were stamped with the load time",
			slog.Int("rows", diag.DateFallbacks),
			slog.String("date_column", diag.Columns[headers.FieldDate]),
		)
	}

	return snap, nil
}

// normalizeAll fans rows out to a fixed worker pool and collects results by index.
func (n *Normalizer) normalizeAll(ctx context.Context, rows []*sales.Row) ([]normalizeResult, error) {
	workerCount := n.workers
	if workerCount > len(rows) {
		workerCount = len(rows)
	}

	jobs := make(chan normalizeJob, workerCount*4)
	results := make(chan normalizeResult, workerCount*4)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				sale, flags := n.normalize(job.row)
				select {
				case results <- normalizeResult{index: job.index, sale: sale, flags: flags}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, row := range rows {
			select {
			case jobs <- normalizeJob{index: i, row: row}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]normalizeResult, len(rows))
	received := 0
	for r := range results {
		out[r.index] = r
		received++
	}
	if received == len(rows) {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to normalize sales rows: %w", err)
	}
	return nil, fmt.Errorf("failed to normalize sales rows: got %d of %d", received, len(rows))
}

// isUsable reports whether row holds at least one non-blank value.
func isUsable(row *sales.Row) bool {
	usable := false
	row.Range(func(_ string, v any) bool {
		if strings.TrimSpace(parser.ToString(v)) != "" {
			usable = true
			return false
		}
		return true
	})
	return usable
}

func collectHeaders(rows []*sales.Row) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}
