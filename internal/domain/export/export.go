// Package export renders filtered sales as spreadsheet downloads: a ledger
// view of every sale and an invoice-line view for the billing system.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/textnorm"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
	"github.com/FACorreiaa/venue-sales-report/pkg/money"
)

// ErrNoSales is returned when there is nothing to export.
var ErrNoSales = errors.New("no sales to export")

const (
	displayDateLayout = "02/01/2006 15:04"
	stampLayout       = "20060102_1504"
	dayStampLayout    = "20060102"
	emptyCell         = "-"
)

// Payment conditions accepted by the billing import.
const (
	ConditionCash        = "EFECTIVO"
	ConditionMercadoPago = "MERCADO PAGO"
	ConditionDebitCard   = "TARJETA DE DÉBITO"
	ConditionCreditCard  = "TARJETA DE CRÉDITO"
	ConditionTransfer    = "TRANSFERENCIA BANCARIA"
	ConditionOther       = "OTROS MEDIOS DE PAGO ELECTRÓNICO"
)

// conditionRules run in order on the folded payment method.
var conditionRules = []struct {
	pattern   *regexp.Regexp
	condition string
}{
	{regexp.MustCompile(`efec`), ConditionCash},
	{regexp.MustCompile(`mercado|\bmp\b`), ConditionMercadoPago},
	{regexp.MustCompile(`debito`), ConditionDebitCard},
	{regexp.MustCompile(`credito`), ConditionCreditCard},
	{regexp.MustCompile(`transfer`), ConditionTransfer},
}

// MapPaymentCondition maps a free-text payment method to the billing vocabulary.
func MapPaymentCondition(method string) string {
	m := textnorm.Fold(method)
	for _, r := range conditionRules {
		if r.pattern.MatchString(m) {
			return r.condition
		}
	}
	return ConditionOther
}

// BuildItemsText renders sale items as "2× Café, 1× Medialuna". The expanded
// form adds the average unit price and puts one item per line.
func BuildItemsText(items []sales.CanonicalLineItem, expanded bool) string {
	if len(items) == 0 {
		return emptyCell
	}
	parts := make([]string, len(items))
	for i, it := range items {
		if expanded {
			parts[i] = fmt.Sprintf("%v× %s ($%v)", it.Quantity, it.CanonicalName, money.RoundCents(it.UnitPriceAvg))
		} else {
			parts[i] = fmt.Sprintf("%v× %s", it.Quantity, it.CanonicalName)
		}
	}
	if expanded {
		return strings.Join(parts, "\n")
	}
	return strings.Join(parts, ", ")
}

// Options controls layout and naming of an export.
type Options struct {
	Venue    string
	Month    string
	Expanded bool
	Location *time.Location
	Now      time.Time
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().In(o.location())
	}
	return o.Now.In(o.location())
}

// LedgerRow is one sale in the ledger view.
type LedgerRow struct {
	Date     string  `csv:"Fecha"`
	Customer string  `csv:"Cliente"`
	Table    string  `csv:"Mesa"`
	Method   string  `csv:"Método"`
	Items    string  `csv:"Items"`
	Total    float64 `csv:"Total (ARS)"`
	Profit   float64 `csv:"Ganancia (ARS)"`
}

// Ledger builds the ledger view. Missing text fields show as "-".
func Ledger(all []sales.Sale, opts Options) []LedgerRow {
	loc := opts.location()
	rows := make([]LedgerRow, len(all))
	for i, s := range all {
		rows[i] = LedgerRow{
			Date:     s.OccurredAt.In(loc).Format(displayDateLayout),
			Customer: orDash(s.Customer),
			Table:    orDash(s.Table),
			Method:   orDash(s.PaymentMethod),
			Items:    BuildItemsText(s.Items, opts.Expanded),
			Total:    money.RoundCents(s.TotalAmount),
			Profit:   money.RoundCents(s.GrossProfit),
		}
	}
	return rows
}

// InvoiceRow is one sale as a single billed line.
type InvoiceRow struct {
	Date          time.Time `csv:"Fecha Comprobante"`
	Product       string    `csv:"Producto / Servicio"`
	UnitPrice     float64   `csv:"Precio Unitario"`
	Quantity      int       `csv:"Cantidad"`
	Total         float64   `csv:"Total"`
	Kind          string    `csv:"Tipo"`
	BilledFrom    time.Time `csv:"Facturado Desde"`
	BilledTo      time.Time `csv:"Facturado Hasta"`
	SaleCondition string    `csv:"Condicion de Venta"`
	TaxCondition  string    `csv:"Condicion de IVA"`
	TaxID         string    `csv:"CUIT o DNI (Opcional)"`
	Email         string    `csv:"Email (Opcional)"`
}

// Invoice builds the invoice-line view: one product line per sale billed at
// the sale total to a final consumer.
func Invoice(all []sales.Sale, opts Options) []InvoiceRow {
	loc := opts.location()
	rows := make([]InvoiceRow, len(all))
	for i, s := range all {
		at := s.OccurredAt.In(loc)
		total := money.RoundCents(s.TotalAmount)
		rows[i] = InvoiceRow{
			Date:          at,
			Product:       BuildItemsText(s.Items, false),
			UnitPrice:     total,
			Quantity:      1,
			Total:         total,
			Kind:          "PRODUCTO",
			BilledFrom:    at,
			BilledTo:      at,
			SaleCondition: MapPaymentCondition(s.PaymentMethod),
			TaxCondition:  "CONSUMIDOR FINAL",
		}
	}
	return rows
}

var fileNameUnsafe = regexp.MustCompile(`[^0-9A-Za-z]+`)
var monthUnsafe = regexp.MustCompile(`[^0-9-]`)

func fileParts(opts Options) (string, string) {
	venue := fileNameUnsafe.ReplaceAllString(textnorm.StripAccents(opts.Venue), "")
	if venue == "" {
		venue = "Venue"
	}
	month := monthUnsafe.ReplaceAllString(opts.Month, "")
	if month == "" {
		month = "mes"
	}
	return venue, month
}

// LedgerFileName is Ventas_<venue>_<month>_<YYYYMMDD_HHMM>.xlsx.
func LedgerFileName(opts Options) string {
	venue, month := fileParts(opts)
	return fmt.Sprintf("Ventas_%s_%s_%s.xlsx", venue, month, opts.now().Format(stampLayout))
}

// LedgerCSVFileName is LedgerFileName with a .csv extension.
func LedgerCSVFileName(opts Options) string {
	return strings.TrimSuffix(LedgerFileName(opts), ".xlsx") + ".csv"
}

// InvoiceFileName is Facturacion_<venue>_<month>_<YYYYMMDD>.xlsx.
func InvoiceFileName(opts Options) string {
	venue, month := fileParts(opts)
	return fmt.Sprintf("Facturacion_%s_%s_%s.xlsx", venue, month, opts.now().Format(dayStampLayout))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyCell
	}
	return s
}
