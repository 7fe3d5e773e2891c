// Package sales holds the canonical sale model produced by the import pipeline
// and consumed by the insights and export layers.
package sales

import "time"

// Category is one of the fixed product categories shown on the dashboard.
type Category string

const (
	CategoryCoffee   Category = "Café"
	CategoryFood     Category = "Comida"
	CategoryBeer     Category = "Cerveza"
	CategorySoda     Category = "Gaseosa"
	CategoryWater    Category = "Agua"
	CategoryWine     Category = "Vino"
	CategoryWhisky   Category = "Whisky"
	CategoryCocktail Category = "Tragos"
)

// DefaultCategory is assigned when no categorization rule matches.
const DefaultCategory = CategoryFood

// Categories lists every category in display order.
var Categories = []Category{
	CategoryCoffee,
	CategoryFood,
	CategoryBeer,
	CategorySoda,
	CategoryWater,
	CategoryWine,
	CategoryWhisky,
	CategoryCocktail,
}

// ParseCategory maps a label back to a Category. Matching is exact.
func ParseCategory(label string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == label {
			return c, true
		}
	}
	return "", false
}

// LineItem is a raw item as extracted from a row, before canonicalization.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	UnitCost  float64 `json:"unit_cost"`
}

// CanonicalLineItem aggregates every raw item of a sale sharing one canonical name.
type CanonicalLineItem struct {
	CanonicalName   string   `json:"canonical_name"`
	Category        Category `json:"category"`
	Quantity        float64  `json:"quantity"`
	Revenue         float64  `json:"revenue"`
	Cost            float64  `json:"cost"`
	Profit          float64  `json:"profit"`
	UnitPriceAvg    float64  `json:"unit_price_avg"`
	OccurrenceCount int      `json:"occurrence_count"`
}

// Sale is one normalized transaction row.
type Sale struct {
	OccurredAt    time.Time           `json:"occurred_at"`
	RawTimestamp  string              `json:"raw_timestamp,omitempty"`
	Customer      string              `json:"customer,omitempty"`
	Table         string              `json:"table,omitempty"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	TotalAmount   float64             `json:"total_amount"`
	TotalCost     float64             `json:"total_cost"`
	GrossProfit   float64             `json:"gross_profit"`
	Items         []CanonicalLineItem `json:"items"`
}

// Units returns the summed quantity of every item in the sale.
func (s Sale) Units() float64 {
	var total float64
	for _, it := range s.Items {
		total += it.Quantity
	}
	return total
}

// ItemRevenue returns the summed revenue of the sale's items.
func (s Sale) ItemRevenue() float64 {
	var total float64
	for _, it := range s.Items {
		total += it.Revenue
	}
	return total
}

// HasCategory reports whether any item of the sale belongs to c.
func (s Sale) HasCategory(c Category) bool {
	for _, it := range s.Items {
		if it.Category == c {
			return true
		}
	}
	return false
}

// DayKey formats the sale date as YYYY-MM-DD in its own location.
func (s Sale) DayKey() string {
	return s.OccurredAt.Format("2006-01-02")
}

// MonthKey formats the sale date as YYYY-MM in its own location.
func (s Sale) MonthKey() string {
	return s.OccurredAt.Format("2006-01")
}
