package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewDefaultResolver()

	tests := []struct {
		name  string
		row   *sales.Row
		field Field
		want  any
		found bool
	}{
		{
			name:  "exact match beats earlier containment match",
			row:   sales.RowOf("Fecha de entrega", "x", "Fecha", "2024-03-05"),
			field: FieldDate,
			want:  "2024-03-05",
			found: true,
		},
		{
			name:  "earliest declared synonym wins among exact matches",
			row:   sales.RowOf("date", "a", "Timestamp", "b"),
			field: FieldDate,
			want:  "b",
			found: true,
		},
		{
			name:  "first containment match in row order",
			row:   sales.RowOf("Cliente", "Ana", "Total a cobrar", "1200", "Total neto", "1000"),
			field: FieldTotal,
			want:  "1200",
			found: true,
		},
		{
			name:  "cost and profit columns never resolve as total",
			row:   sales.RowOf("Fecha", "x", "totalCosto", "800", "Total ganancia", "400"),
			field: FieldTotal,
			found: false,
		},
		{
			name:  "containment skips the cost column",
			row:   sales.RowOf("TotalCosto", "800", "Total a cobrar", "1200"),
			field: FieldTotal,
			want:  "1200",
			found: true,
		},
		{
			name:  "bom and diacritics are ignored",
			row:   sales.RowOf("\uFEFFMétodo de Pago", "Efectivo"),
			field: FieldPaymentMethod,
			want:  "Efectivo",
			found: true,
		},
		{
			name:  "items json header",
			row:   sales.RowOf("items(json)", "[]"),
			field: FieldItems,
			want:  "[]",
			found: true,
		},
		{
			name:  "paid needs an exact header",
			row:   sales.RowOf("Forma de pago", "Efectivo"),
			field: FieldPaid,
			found: false,
		},
		{
			name:  "no match",
			row:   sales.RowOf("foo", "bar"),
			field: FieldCustomer,
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.row, tt.field)
			require.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBound_Accessors(t *testing.T) {
	r := NewDefaultResolver()
	b := r.Bind(sales.RowOf("Cliente", "  Ana  ", "Total", "3.500,00", "Mesa", 4.0))

	assert.Equal(t, "Ana", b.String(FieldCustomer))
	assert.Equal(t, 3500.0, b.Number(FieldTotal))
	assert.Equal(t, "4", b.String(FieldTable))
	assert.Equal(t, "", b.String(FieldItems))
	assert.Zero(t, b.Number(FieldProfit))

	col, ok := b.Column(FieldTotal)
	require.True(t, ok)
	assert.Equal(t, "Total", col)
}

func TestNewResolver_CustomSynonyms(t *testing.T) {
	r := NewResolver(map[Field]Synonyms{
		FieldTotal: {Names: []string{"Importe Final"}},
	})

	v, ok := r.Resolve(sales.RowOf("importe_final", 10.0), FieldTotal)
	require.True(t, ok)
	assert.Equal(t, 10.0, v)

	_, ok = r.Resolve(sales.RowOf("fecha", "x"), FieldDate)
	assert.False(t, ok)
}
