// Package headers maps arbitrary sheet column names onto the semantic fields
// the sale normalizer needs, using synonym tables and containment matching.
package headers

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/parser"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/textnorm"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

// Field is a semantic column of a sale row.
type Field string

const (
	FieldDate          Field = "date"
	FieldTotal         Field = "total"
	FieldCost          Field = "cost"
	FieldProfit        Field = "profit"
	FieldCustomer      Field = "customer"
	FieldTable         Field = "table"
	FieldPaymentMethod Field = "paymentMethod"
	FieldItems         Field = "items"
	// FieldPaid is the amount paid column, last candidate for the sale total.
	FieldPaid Field = "paid"
)

// Fields lists every field a Resolver knows about.
var Fields = []Field{
	FieldDate, FieldTotal, FieldCost, FieldProfit, FieldCustomer,
	FieldTable, FieldPaymentMethod, FieldItems, FieldPaid,
}

// Synonyms holds the normalized column names accepted for one field, in
// priority order. ExactOnly disables the containment pass. Columns that
// belong to a field in Excludes are skipped by the containment pass.
type Synonyms struct {
	Names     []string
	ExactOnly bool
	Excludes  []Field
}

// DefaultSynonyms covers the headers seen in venue order sheets.
func DefaultSynonyms() map[Field]Synonyms {
	return map[Field]Synonyms{
		FieldDate:          {Names: []string{"timestamp", "fecha", "marca temporal", "fecha hora", "date", "datetime", "created at"}},
		FieldTotal:         {Names: []string{"total", "total ars", "importe", "monto", "importe total", "amount"}, Excludes: []Field{FieldCost, FieldProfit}},
		FieldCost:          {Names: []string{"totalcosto", "total costo", "costo total", "costototal", "costo", "cost"}},
		FieldProfit:        {Names: []string{"ganancia", "ganancia ars", "profit", "utilidad"}},
		FieldCustomer:      {Names: []string{"cliente", "customer", "nombre cliente", "nombre"}},
		FieldTable:         {Names: []string{"mesa", "table", "nro mesa"}},
		FieldPaymentMethod: {Names: []string{"metodopago", "metodo pago", "metodo de pago", "metodo", "medio de pago", "forma de pago", "payment method"}},
		FieldItems:         {Names: []string{"items json", "items", "detalle", "productos", "pedido"}},
		FieldPaid:          {Names: []string{"pago", "pagado", "abonado", "paid"}, ExactOnly: true},
	}
}

type fieldMatcher struct {
	names     []string
	exactOnly bool
	excludes  []Field
	matcher   *ahocorasick.Matcher
}

// claims reports whether col is an exact or containment match of fm.
func (fm fieldMatcher) claims(col string) bool {
	for _, syn := range fm.names {
		if col == syn {
			return true
		}
	}
	if fm.exactOnly || fm.matcher == nil {
		return false
	}
	return len(fm.matcher.MatchThreadSafe([]byte(col))) > 0
}

// Resolver finds the column holding each semantic field. It is immutable
// and safe for concurrent use.
type Resolver struct {
	fields map[Field]fieldMatcher
}

// NewResolver builds a resolver from synonym tables. Synonyms are normalized
// the same way as column names.
func NewResolver(table map[Field]Synonyms) *Resolver {
	r := &Resolver{fields: make(map[Field]fieldMatcher, len(table))}
	for field, syn := range table {
		names := make([]string, 0, len(syn.Names))
		for _, n := range syn.Names {
			if key := Normalize(n); key != "" {
				names = append(names, key)
			}
		}
		fm := fieldMatcher{names: names, exactOnly: syn.ExactOnly, excludes: syn.Excludes}
		if len(names) > 0 && !syn.ExactOnly {
			fm.matcher = ahocorasick.NewStringMatcher(names)
		}
		r.fields[field] = fm
	}
	return r
}

// NewDefaultResolver returns a resolver over DefaultSynonyms.
func NewDefaultResolver() *Resolver {
	return NewResolver(DefaultSynonyms())
}

// Normalize folds a column name: BOM stripped, lowercase, no diacritics,
// punctuation and whitespace collapsed to single spaces.
func Normalize(name string) string {
	return textnorm.Key(name)
}

// Bound is a resolver applied to one row, with column names normalized once.
type Bound struct {
	resolver   *Resolver
	row        *sales.Row
	keys       []string
	normalized []string
}

// Bind prepares row for repeated lookups.
func (r *Resolver) Bind(row *sales.Row) *Bound {
	keys := row.Keys()
	normalized := make([]string, len(keys))
	for i, k := range keys {
		normalized[i] = Normalize(k)
	}
	return &Bound{resolver: r, row: row, keys: keys, normalized: normalized}
}

// Resolve returns the raw value of field in row.
func (r *Resolver) Resolve(row *sales.Row, field Field) (any, bool) {
	return r.Bind(row).Value(field)
}

// Column returns the source column name matched for field. Exact matches are
// tried in synonym order; otherwise the first column, in row order, whose
// normalized name contains any synonym wins.
func (b *Bound) Column(field Field) (string, bool) {
	fm, ok := b.resolver.fields[field]
	if !ok {
		return "", false
	}

	for _, syn := range fm.names {
		for i, col := range b.normalized {
			if col == syn {
				return b.keys[i], true
			}
		}
	}

	if fm.exactOnly || fm.matcher == nil {
		return "", false
	}
	for i, col := range b.normalized {
		if col == "" || b.excluded(fm.excludes, col) {
			continue
		}
		if len(fm.matcher.MatchThreadSafe([]byte(col))) > 0 {
			return b.keys[i], true
		}
	}
	return "", false
}

// excluded reports whether col belongs to any of fields.
func (b *Bound) excluded(fields []Field, col string) bool {
	for _, f := range fields {
		if other, ok := b.resolver.fields[f]; ok && other.claims(col) {
			return true
		}
	}
	return false
}

// Value returns the raw value stored under the column matched for field.
func (b *Bound) Value(field Field) (any, bool) {
	col, ok := b.Column(field)
	if !ok {
		return nil, false
	}
	return b.row.Get(col)
}

// String returns the matched value as trimmed text, or "".
func (b *Bound) String(field Field) string {
	v, ok := b.Value(field)
	if !ok {
		return ""
	}
	return strings.TrimSpace(parser.ToString(v))
}

// Number returns the matched value parsed as a locale number, or 0.
func (b *Bound) Number(field Field) float64 {
	v, ok := b.Value(field)
	if !ok {
		return 0
	}
	return parser.ParseLocaleNumber(v)
}

// Row returns the bound row.
func (b *Bound) Row() *sales.Row {
	return b.row
}

// NormalizedColumns returns (column, normalized name) pairs in row order.
func (b *Bound) NormalizedColumns() ([]string, []string) {
	return b.keys, b.normalized
}
