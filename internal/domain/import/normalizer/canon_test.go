package normalizer

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

func newTestCanonicalizer(t *testing.T) *Canonicalizer {
	t.Helper()
	c, err := NewDefaultCanonicalizer()
	require.NoError(t, err)
	return c
}

func TestCanonicalizer_IsNoise(t *testing.T) {
	c := newTestCanonicalizer(t)

	noise := []string{"", "   ", "Gasto insumos", "gasto: hielo", "Turno tarde", "Cerramos el turno con 3 mesas",
		"Pero fue poco", "— cierre", "-> pasar a caja", "→ ver", "1500", "12.5", "x", "!!"}
	for _, name := range noise {
		assert.True(t, c.IsNoise(name), "%q should be noise", name)
	}

	products := []string{"Café", "Cerveza IPA", "Gastón special", "2 medialunas", "Agua"}
	for _, name := range products {
		assert.False(t, c.IsNoise(name), "%q should not be noise", name)
	}
}

func TestCanonicalizer_Canonicalize(t *testing.T) {
	c := newTestCanonicalizer(t)

	tests := []struct {
		in   string
		want string
	}{
		{"café", "Café"},
		{"Café ", "Café"},
		{"CAFE", "Café"},
		{"cafe con leche", "Café con leche"},
		{"Latte vainilla", "Latte"},
		{"capuchino", "Capuccino"},
		{"jamón y queso", "Tostado JyQ"},
		{"Café + 2 medialunas", "PROMO: 2 Medialunas + Café con leche"},
		{"cafe con jyq", "PROMO: 2 Medialunas + Café con leche"},
		{"Cerveza  IPA", "Cerveza IPA"},
		{"  Lomito   completo ", "Lomito completo"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Canonicalize(tt.in))
		})
	}
}

func TestCanonicalizer_Categorize(t *testing.T) {
	c := newTestCanonicalizer(t)

	tests := []struct {
		in   string
		want sales.Category
	}{
		{"Agua sin gas", sales.CategoryWater},
		{"Agua", sales.CategoryWater},
		{"Agua tónica", sales.CategorySoda},
		{"Café con leche", sales.CategoryCoffee},
		{"Cortado", sales.CategoryCoffee},
		{"Cerveza IPA", sales.CategoryBeer},
		{"Pinta golden", sales.CategoryBeer},
		{"Quilmes 600ml", sales.CategoryBeer},
		{"Lata 500ml", sales.CategoryBeer},
		{"Agua 500ml", sales.CategoryWater},
		{"Malbec copa", sales.CategoryWine},
		{"Torrontés", sales.CategoryWine},
		{"Whisky JB", sales.CategoryWhisky},
		{"Fernet con Coca", sales.CategoryCocktail},
		{"Gin tonic", sales.CategoryCocktail},
		{"Coca-Cola", sales.CategorySoda},
		{"Schweppes pomelo", sales.CategorySoda},
		{"Papas fritas", sales.CategoryFood},
		{"Tostado JyQ", sales.CategoryFood},
		{"xyz-unrecognized-item", sales.CategoryFood},
		{"", sales.CategoryFood},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Categorize(tt.in))
		})
	}
}

func TestCanonicalizer_CategorizeIsTotal(t *testing.T) {
	c := newTestCanonicalizer(t)
	faker := gofakeit.New(7)
	for i := 0; i < 500; i++ {
		got := c.Categorize(faker.Sentence(3))
		_, ok := sales.ParseCategory(string(got))
		assert.True(t, ok, "category %q is not a known label", got)
	}
}

func TestCanonicalizer_Merge(t *testing.T) {
	c := newTestCanonicalizer(t)

	t.Run("single item totals", func(t *testing.T) {
		merged := c.Merge([]sales.LineItem{{Name: "Café con leche", Quantity: 2, UnitPrice: 500, UnitCost: 200}})
		require.Len(t, merged, 1)
		got := merged[0]
		assert.Equal(t, "Café con leche", got.CanonicalName)
		assert.Equal(t, 2.0, got.Quantity)
		assert.Equal(t, 1000.0, got.Revenue)
		assert.Equal(t, 400.0, got.Cost)
		assert.Equal(t, 600.0, got.Profit)
		assert.Equal(t, 500.0, got.UnitPriceAvg)
		assert.Equal(t, 1, got.OccurrenceCount)
		assert.Equal(t, sales.CategoryCoffee, got.Category)
	})

	t.Run("near duplicates fold together in first appearance order", func(t *testing.T) {
		merged := c.Merge([]sales.LineItem{
			{Name: "café", Quantity: 1, UnitPrice: 1000},
			{Name: "Medialuna", Quantity: 2, UnitPrice: 400},
			{Name: "Café ", Quantity: 2, UnitPrice: 1300},
		})
		require.Len(t, merged, 2)
		assert.Equal(t, "Café", merged[0].CanonicalName)
		assert.Equal(t, 3.0, merged[0].Quantity)
		assert.Equal(t, 3600.0, merged[0].Revenue)
		assert.Equal(t, 1200.0, merged[0].UnitPriceAvg)
		assert.Equal(t, 2, merged[0].OccurrenceCount)
		assert.Equal(t, "Medialuna", merged[1].CanonicalName)
	})

	t.Run("noise and empty quantities are dropped", func(t *testing.T) {
		merged := c.Merge([]sales.LineItem{
			{Name: "Gasto insumos", Quantity: 3, UnitPrice: 100},
			{Name: "Agua", Quantity: 0, UnitPrice: 800},
			{Name: "Soda", Quantity: -1},
			{Name: "   ", Quantity: 1},
		})
		assert.Empty(t, merged)
	})

	t.Run("every merged item is positive and named", func(t *testing.T) {
		faker := gofakeit.New(99)
		items := make([]sales.LineItem, 0, 300)
		for i := 0; i < 300; i++ {
			items = append(items, sales.LineItem{
				Name:      faker.RandomString([]string{"café", "Gasto hielo", "", "Pinta IPA", "1200", faker.BeerName()}),
				Quantity:  float64(faker.IntRange(-2, 4)),
				UnitPrice: float64(faker.IntRange(0, 5000)),
			})
		}
		for _, m := range c.Merge(items) {
			assert.Greater(t, m.Quantity, 0.0)
			assert.NotEmpty(t, m.CanonicalName)
			assert.False(t, c.IsNoise(m.CanonicalName))
		}
	})
}

func TestCanonicalizer_AddRewrite(t *testing.T) {
	c := newTestCanonicalizer(t)
	require.NoError(t, c.AddRewrite(`^submarino\b`, "Submarino"))
	assert.Equal(t, "Submarino", c.Canonicalize("submarino grande"))

	assert.Error(t, c.AddRewrite(`(`, "broken"))
}

func TestParseRules(t *testing.T) {
	t.Run("custom table", func(t *testing.T) {
		rs, err := ParseRules([]byte(`
overrides:
  birra: Cerveza tirada
categories:
  - category: Cerveza
    match: 'cerveza'
`))
		require.NoError(t, err)
		c, err := NewCanonicalizer(rs)
		require.NoError(t, err)

		assert.Equal(t, "Cerveza tirada", c.Canonicalize("Birra"))
		assert.Equal(t, sales.CategoryBeer, c.Categorize("Cerveza tirada"))
		assert.Equal(t, sales.CategoryFood, c.Categorize("Vino"))
		assert.True(t, c.IsNoise("a"))
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := ParseRules([]byte("categories:\n  - category: Postres\n    match: flan\n"))
		assert.Error(t, err)
	})

	t.Run("bad pattern", func(t *testing.T) {
		rs, err := ParseRules([]byte("rewrites:\n  - pattern: '('\n    name: x\n"))
		require.NoError(t, err)
		_, err = NewCanonicalizer(rs)
		assert.Error(t, err)
	})
}
