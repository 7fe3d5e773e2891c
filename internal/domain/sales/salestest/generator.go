// Package salestest generates realistic venue order sheets for tests and
// local runs.
package salestest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/venue-sales-report/pkg/money"
)

// Product is one entry of the generated menu.
type Product struct {
	Name  string
	Price float64
	Cost  float64
}

// Menu is the product list orders are drawn from. Names use the spellings
// waiters actually type so canonicalization gets exercised.
var Menu = []Product{
	{"Café", 1200, 300},
	{"cafe con leche", 1500, 400},
	{"Medialunas", 600, 150},
	{"Tostado JyQ", 3200, 1100},
	{"Pinta IPA", 2800, 900},
	{"Pinta Golden", 2600, 850},
	{"Coca", 1400, 600},
	{"Agua sin gas", 1000, 300},
	{"Malbec copa", 2500, 800},
	{"Fernet", 3000, 1000},
	{"Gin tonic", 3500, 1100},
	{"Papas", 2700, 700},
	{"Hamburguesa simple", 5200, 2100},
	{"Whisky JB", 4000, 1500},
}

var paymentMethods = []string{"Efectivo", "Mercado Pago", "Tarjeta de débito", "Tarjeta de crédito", "Transferencia"}

// OrderItem is the JSON shape the order form writes into the items column.
type OrderItem struct {
	Name     string  `json:"nombre"`
	Quantity int     `json:"qty"`
	Price    float64 `json:"precio"`
	Cost     float64 `json:"costo,omitempty"`
}

// OrderRow is one line of a form-backed sales sheet.
type OrderRow struct {
	Timestamp     string `csv:"Marca temporal"`
	Customer      string `csv:"Cliente"`
	Table         string `csv:"Mesa"`
	PaymentMethod string `csv:"MetodoPago"`
	Total         string `csv:"Total"`
	TotalCost     string `csv:"TotalCosto"`
	Items         string `csv:"items(json)"`

	// OccurredAt and Amount keep the generated values for assertions.
	OccurredAt time.Time `csv:"-"`
	Amount     float64   `csv:"-"`
	Cost       float64   `csv:"-"`
}

// TestDataGenerator builds order rows from a seeded faker.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	start time.Time
	loc   *time.Location
}

// NewTestDataGenerator creates a generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return NewTestDataGeneratorWithSeed(0)
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for
// reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
		start: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		loc:   time.UTC,
	}
}

// WithStart moves the first generated timestamp.
func (g *TestDataGenerator) WithStart(start time.Time) *TestDataGenerator {
	g.start = start
	g.loc = start.Location()
	return g
}

// Order generates one sale with one to four distinct products.
func (g *TestDataGenerator) Order(at time.Time) OrderRow {
	n := g.faker.Number(1, 4)
	picked := make(map[int]bool, n)
	items := make([]OrderItem, 0, n)

	var totalCents, costCents int64
	for len(items) < n {
		idx := g.faker.Number(0, len(Menu)-1)
		if picked[idx] {
			continue
		}
		picked[idx] = true
		p := Menu[idx]
		qty := g.faker.Number(1, 3)
		items = append(items, OrderItem{Name: p.Name, Quantity: qty, Price: p.Price, Cost: p.Cost})
		totalCents += money.Pesos(p.Price).Amount() * int64(qty)
		costCents += money.Pesos(p.Cost).Amount() * int64(qty)
	}

	payload, _ := json.Marshal(items)
	total := money.New(totalCents, money.ARS)
	cost := money.New(costCents, money.ARS)

	row := OrderRow{
		Timestamp:     at.Format("2/1/2006 15:04:05"),
		PaymentMethod: paymentMethods[g.faker.Number(0, len(paymentMethods)-1)],
		Total:         localeAmount(total),
		TotalCost:     localeAmount(cost),
		Items:         string(payload),
		OccurredAt:    at,
		Amount:        total.ToFloat64(),
		Cost:          cost.ToFloat64(),
	}
	if g.faker.Bool() {
		row.Table = fmt.Sprintf("Mesa %d", g.faker.Number(1, 12))
	} else {
		row.Customer = g.faker.FirstName()
	}
	return row
}

// Orders generates count sales spread through consecutive days.
func (g *TestDataGenerator) Orders(count int) []OrderRow {
	rows := make([]OrderRow, 0, count)
	at := g.start
	for i := 0; i < count; i++ {
		at = at.Add(time.Duration(g.faker.Number(5, 90)) * time.Minute)
		rows = append(rows, g.Order(at.In(g.loc)))
	}
	return rows
}

// CSV renders rows as a comma separated sheet export.
func CSV(rows []OrderRow) ([]byte, error) {
	data, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order rows: %w", err)
	}
	return data, nil
}

// localeAmount writes an amount with a decimal comma, the way the sheet does.
func localeAmount(m *money.Money) string {
	cents := m.Amount()
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d,%02d", sign, cents/100, cents%100)
}
