package insights

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/textnorm"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

var (
	cashPattern        = regexp.MustCompile(`efec`)
	mercadoPagoPattern = regexp.MustCompile(`(mercado\s*pago|\bmp\b)`)
)

// IsCash reports whether a payment method label means cash.
func IsCash(method string) bool {
	return cashPattern.MatchString(strings.ToLower(method))
}

// IsMercadoPago reports whether a payment method label means Mercado Pago.
func IsMercadoPago(method string) bool {
	return mercadoPagoPattern.MatchString(strings.ToLower(method))
}

// Filter narrows the sales table: by month, free text over customer, table
// and item names, and item category. Empty fields match everything.
type Filter struct {
	Month    string         `json:"month,omitempty"`
	Text     string         `json:"text,omitempty"`
	Category sales.Category `json:"category,omitempty"`
}

// Apply returns the matching sales in input order.
func (f Filter) Apply(all []sales.Sale) []sales.Sale {
	text := textnorm.Fold(strings.TrimSpace(f.Text))
	out := make([]sales.Sale, 0, len(all))
	for _, sale := range all {
		if f.Month != "" && sale.MonthKey() != f.Month {
			continue
		}
		if text != "" && !strings.Contains(searchText(sale), text) {
			continue
		}
		if f.Category != "" && !sale.HasCategory(f.Category) {
			continue
		}
		out = append(out, sale)
	}
	return out
}

func searchText(sale sales.Sale) string {
	var b strings.Builder
	b.WriteString(sale.Customer)
	b.WriteByte(' ')
	b.WriteString(sale.Table)
	for _, it := range sale.Items {
		b.WriteByte(' ')
		b.WriteString(it.CanonicalName)
	}
	return textnorm.Fold(b.String())
}

// Months lists the distinct YYYY-MM keys present, newest first.
func Months(all []sales.Sale) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sale := range all {
		k := sale.MonthKey()
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// KPIs are the dashboard headline numbers.
type KPIs struct {
	// filtered table
	Sales   int     `json:"sales"`
	Units   float64 `json:"units"`
	Revenue float64 `json:"revenue"`

	// whole month, ignoring text and category
	Month            string  `json:"month"`
	MonthProfit      float64 `json:"month_profit"`
	MonthCash        float64 `json:"month_cash"`
	MonthMercadoPago float64 `json:"month_mercado_pago"`

	// selected day inside the hour window
	Day        string  `json:"day"`
	Hours      string  `json:"hours,omitempty"`
	DaySales   int     `json:"day_sales"`
	DayUnits   float64 `json:"day_units"`
	DayRevenue float64 `json:"day_revenue"`
	DayCost    float64 `json:"day_cost"`
	DayProfit  float64 `json:"day_profit"`
}

// ComputeKPIs builds the headline numbers for filter f and the given day.
func ComputeKPIs(all []sales.Sale, f Filter, day string, hours HourWindow) KPIs {
	k := KPIs{Month: f.Month, Day: day, Hours: hours.String()}

	for _, sale := range f.Apply(all) {
		k.Sales++
		k.Units += sale.Units()
		k.Revenue += sale.TotalAmount
	}

	for _, sale := range (Filter{Month: f.Month}).Apply(all) {
		k.MonthProfit += sale.GrossProfit
		if IsCash(sale.PaymentMethod) {
			k.MonthCash += sale.TotalAmount
		}
		if IsMercadoPago(sale.PaymentMethod) {
			k.MonthMercadoPago += sale.TotalAmount
		}
	}

	for _, sale := range (Scope{Kind: ScopeDay, Day: day, Hours: hours}).Apply(all) {
		k.DaySales++
		k.DayUnits += sale.Units()
		k.DayRevenue += sale.TotalAmount
		k.DayCost += sale.TotalCost
		k.DayProfit += sale.GrossProfit
	}
	return k
}

// DefaultPersons is the head count used when a close does not give one.
const DefaultPersons = 4

// CloseInput describes a day close: which sales, what was spent and how many
// people split the result. A zero Persons means DefaultPersons.
type CloseInput struct {
	Day      string     `json:"day"`
	Hours    HourWindow `json:"hours"`
	Expenses float64    `json:"expenses"`
	Persons  int        `json:"persons"`
}

// DayCloseReport is the cash-up for one day.
type DayCloseReport struct {
	Day       string  `json:"day"`
	Hours     string  `json:"hours,omitempty"`
	Income    float64 `json:"income"`
	Cost      float64 `json:"cost"`
	Gross     float64 `json:"gross"`
	Expenses  float64 `json:"expenses"`
	Net       float64 `json:"net"`
	Persons   int     `json:"persons"`
	PerPerson float64 `json:"per_person"`
}

// DayClose computes income, cost and the net split for the selected day.
func DayClose(all []sales.Sale, in CloseInput) DayCloseReport {
	persons := in.Persons
	if persons == 0 {
		persons = DefaultPersons
	}
	persons = max(persons, 1)

	r := DayCloseReport{Day: in.Day, Hours: in.Hours.String(), Expenses: in.Expenses, Persons: persons}
	for _, sale := range (Scope{Kind: ScopeDay, Day: in.Day, Hours: in.Hours}).Apply(all) {
		r.Income += sale.TotalAmount
		r.Cost += sale.TotalCost
	}
	r.Gross = r.Income - r.Cost
	r.Net = r.Gross - r.Expenses
	r.PerPerson = r.Net / float64(persons)
	return r
}

// PageSize is the number of sales per table page.
const PageSize = 15

// Page is one page of the sales table. Page numbers start at 1; From and To
// are 1-based and inclusive, both 0 when there is nothing to show.
type Page struct {
	Sales []sales.Sale `json:"sales"`
	Page  int          `json:"page"`
	Pages int          `json:"pages"`
	Total int          `json:"total"`
	From  int          `json:"from"`
	To    int          `json:"to"`
}

// Paginate returns page n of all, clamped to the valid range.
func Paginate(all []sales.Sale, n int) Page {
	total := len(all)
	pages := max(1, int(math.Ceil(float64(total)/PageSize)))
	n = min(max(n, 1), pages)

	from := (n - 1) * PageSize
	to := min(from+PageSize, total)

	p := Page{Sales: all[from:to:to], Page: n, Pages: pages, Total: total}
	if total > 0 {
		p.From, p.To = from+1, to
	}
	return p
}
