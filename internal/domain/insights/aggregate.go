package insights

import (
	"math"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

// CategoryTotal is the per-category summary shown in the category charts.
type CategoryTotal struct {
	Category    sales.Category `json:"category"`
	Units       float64        `json:"units"`
	Occurrences int            `json:"occurrences"`
	Profit      float64        `json:"profit"`
}

// ItemProfit is the profit attributed to item within sale. A known cost gives
// revenue minus cost; otherwise the sale's profit is split by revenue share.
// Imputation only happens when the sale has positive item revenue and a
// non-zero profit.
func ItemProfit(sale sales.Sale, item sales.CanonicalLineItem) float64 {
	if item.Cost != 0 {
		return item.Revenue - item.Cost
	}
	total := sale.ItemRevenue()
	if total > 0 && sale.GrossProfit != 0 {
		return sale.GrossProfit * (item.Revenue / total)
	}
	return 0
}

// ByCategory returns one entry per category, in display order, with units
// and profit rounded to whole numbers.
func ByCategory(all []sales.Sale) []CategoryTotal {
	index := make(map[sales.Category]int, len(sales.Categories))
	out := make([]CategoryTotal, len(sales.Categories))
	for i, c := range sales.Categories {
		index[c] = i
		out[i].Category = c
	}

	for _, sale := range all {
		for _, item := range sale.Items {
			i, ok := index[item.Category]
			if !ok {
				i = index[sales.DefaultCategory]
			}
			out[i].Units += item.Quantity
			out[i].Occurrences += item.OccurrenceCount
			out[i].Profit += ItemProfit(sale, item)
		}
	}

	for i := range out {
		out[i].Units = math.Round(out[i].Units)
		out[i].Profit = math.Round(out[i].Profit)
	}
	return out
}

// DayUnits holds the units sold per category on one day.
type DayUnits struct {
	Day   string                     `json:"day"`
	Units map[sales.Category]float64 `json:"units"`
}

// ByDayAndCategory returns unit counts per day, sorted by day, with every
// category present.
func ByDayAndCategory(all []sales.Sale) []DayUnits {
	byDay := make(map[string]map[sales.Category]float64)
	for _, sale := range all {
		day := sale.DayKey()
		units, ok := byDay[day]
		if !ok {
			units = make(map[sales.Category]float64, len(sales.Categories))
			for _, c := range sales.Categories {
				units[c] = 0
			}
			byDay[day] = units
		}
		for _, item := range sale.Items {
			units[item.Category] += item.Quantity
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]DayUnits, len(days))
	for i, day := range days {
		out[i] = DayUnits{Day: day, Units: byDay[day]}
	}
	return out
}

// ItemTotal aggregates one canonical item across sales.
type ItemTotal struct {
	Name        string         `json:"name"`
	Category    sales.Category `json:"category"`
	Units       float64        `json:"units"`
	Occurrences int            `json:"occurrences"`
	Revenue     float64        `json:"revenue"`
	Profit      float64        `json:"profit"`
}

// SortKey orders the item explorer.
type SortKey string

const (
	SortUnits       SortKey = "units"
	SortOccurrences SortKey = "occurrences"
	SortRevenue     SortKey = "revenue"
	SortProfit      SortKey = "profit"
)

// ParseSortKey maps a query value to a SortKey, defaulting to units.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "occurrences", "veces":
		return SortOccurrences
	case "revenue", "ingreso":
		return SortRevenue
	case "profit", "ganancia":
		return SortProfit
	default:
		return SortUnits
	}
}

const (
	DefaultTopN = 10
	MinTopN     = 3
)

// ItemQuery filters and orders the item explorer.
type ItemQuery struct {
	Category sales.Category `json:"category,omitempty"`
	Text     string         `json:"text,omitempty"`
	Sort     SortKey        `json:"sort,omitempty"`
	TopN     int            `json:"top_n,omitempty"`
}

func (q ItemQuery) topN() int {
	switch {
	case q.TopN == 0:
		return DefaultTopN
	case q.TopN < MinTopN:
		return MinTopN
	default:
		return q.TopN
	}
}

// ItemReport is the full explorer table plus its top slice.
type ItemReport struct {
	Items []ItemTotal `json:"items"`
	Top   []ItemTotal `json:"top"`
}

// ByItem aggregates items by canonical name, applies q and sorts descending
// by the chosen key. Ties fall back to units, then name.
func ByItem(all []sales.Sale, q ItemQuery) ItemReport {
	index := make(map[string]int)
	var items []ItemTotal
	for _, sale := range all {
		for _, it := range sale.Items {
			i, ok := index[it.CanonicalName]
			if !ok {
				i = len(items)
				index[it.CanonicalName] = i
				items = append(items, ItemTotal{Name: it.CanonicalName, Category: it.Category})
			}
			acc := &items[i]
			acc.Units += it.Quantity
			acc.Occurrences += it.OccurrenceCount
			acc.Revenue += it.Revenue
			acc.Profit += it.Revenue - it.Cost
		}
	}

	text := strings.TrimSpace(q.Text)
	filtered := make([]ItemTotal, 0, len(items))
	for _, it := range items {
		if q.Category != "" && it.Category != q.Category {
			continue
		}
		if text != "" && !fuzzy.MatchNormalizedFold(text, it.Name) {
			continue
		}
		filtered = append(filtered, it)
	}

	key := sortValue(q.Sort)
	sort.SliceStable(filtered, func(a, b int) bool {
		x, y := filtered[a], filtered[b]
		if kx, ky := key(x), key(y); kx != ky {
			return kx > ky
		}
		if x.Units != y.Units {
			return x.Units > y.Units
		}
		return x.Name < y.Name
	})

	top := filtered
	if n := q.topN(); len(top) > n {
		top = top[:n]
	}
	return ItemReport{Items: filtered, Top: append([]ItemTotal(nil), top...)}
}

func sortValue(k SortKey) func(ItemTotal) float64 {
	switch k {
	case SortOccurrences:
		return func(it ItemTotal) float64 { return float64(it.Occurrences) }
	case SortRevenue:
		return func(it ItemTotal) float64 { return it.Revenue }
	case SortProfit:
		return func(it ItemTotal) float64 { return it.Profit }
	default:
		return func(it ItemTotal) float64 { return it.Units }
	}
}

// NoPeak is the peak hour reported when no bucket has revenue.
const NoPeak = -1

// HourReport is the revenue histogram by hour of day.
type HourReport struct {
	Buckets   [24]float64 `json:"buckets"`
	PeakHour  int         `json:"peak_hour"`
	PeakValue float64     `json:"peak_value"`
}

// ByHour sums sale totals per hour. The peak is the first hour holding the
// maximum; NoPeak when that maximum is not positive.
func ByHour(all []sales.Sale) HourReport {
	var r HourReport
	for _, sale := range all {
		r.Buckets[sale.OccurredAt.Hour()] += sale.TotalAmount
	}

	r.PeakHour = NoPeak
	peak := r.Buckets[0]
	peakIdx := 0
	for h := 1; h < len(r.Buckets); h++ {
		if r.Buckets[h] > peak {
			peak, peakIdx = r.Buckets[h], h
		}
	}
	if peak > 0 {
		r.PeakHour, r.PeakValue = peakIdx, peak
	}
	return r
}
