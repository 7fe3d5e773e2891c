// Package items extracts the raw line items of a sale row. The items cell may
// hold a JSON list, a JSON object, delimited "2x Name" text, or be missing, in
// which case indexed item/quantity columns are paired up.
package items

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/parser"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/textnorm"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

// SubFields lists the accepted keys, already normalized, for each attribute
// of a JSON item entry. Earlier keys win.
type SubFields struct {
	Name     []string
	Quantity []string
	Price    []string
	Cost     []string
}

// DefaultSubFields covers the keys written by the venue order form.
func DefaultSubFields() SubFields {
	return SubFields{
		Name:     []string{"nombre", "producto", "item", "name", "descripcion", "product", "articulo"},
		Quantity: []string{"qty", "cantidad", "cant", "quantity", "unidades", "q"},
		Price:    []string{"precio", "price", "precio unitario", "unit price", "importe", "pu"},
		Cost:     []string{"costo", "cost", "costo unitario", "unit cost"},
	}
}

var (
	qtyPrefix     = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*[x×*]\s*(.+)$`)
	qtySuffix     = regexp.MustCompile(`(?i)^(.+?)\s+[x×*]\s*(\d+(?:[.,]\d+)?)$`)
	priceSuffix   = regexp.MustCompile(`\(\s*\$?\s*([\d.,]+)\s*\)\s*$`)
	indexedColumn = regexp.MustCompile(`^([a-z]+?) ?(\d+)$`)
	jsonLooking   = regexp.MustCompile(`(?s)^\s*[\[{].*[\]}]\s*$`)
)

// indexedRoles maps the normalized stem of an indexed column to its role.
var indexedRoles = map[string]string{
	"item": "name", "items": "name", "producto": "name", "prod": "name", "articulo": "name", "nombre": "name",
	"cantidad": "qty", "cant": "qty", "qty": "qty", "unidades": "qty",
	"precio": "price", "price": "price",
	"costo": "cost", "cost": "cost",
}

// Parser extracts line items. It holds no mutable state.
type Parser struct {
	fields SubFields
}

// NewParser returns a parser using DefaultSubFields.
func NewParser() *Parser {
	return NewParserWithFields(DefaultSubFields())
}

// NewParserWithFields returns a parser with custom sub-field keys.
func NewParserWithFields(fields SubFields) *Parser {
	norm := func(keys []string) []string {
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, textnorm.Key(k))
		}
		return out
	}
	return &Parser{fields: SubFields{
		Name:     norm(fields.Name),
		Quantity: norm(fields.Quantity),
		Price:    norm(fields.Price),
		Cost:     norm(fields.Cost),
	}}
}

// Parse returns the raw items of row. cell is the resolved items cell and
// found tells whether the row has an items column at all. An empty result is
// valid.
func (p *Parser) Parse(row *sales.Row, cell any, found bool) []sales.LineItem {
	if found && !isEmptyCell(cell) {
		return p.ParseCell(cell)
	}

	// no usable items column: look for any cell carrying an embedded list
	var embedded []sales.LineItem
	row.Range(func(_ string, v any) bool {
		s, ok := v.(string)
		if !ok || !jsonLooking.MatchString(s) {
			return true
		}
		if parsed, ok := p.parseJSON(s); ok {
			embedded = parsed
			return false
		}
		return true
	})
	if embedded != nil {
		return embedded
	}
	return p.ParseIndexed(row)
}

// ParseCell extracts items from a single cell value.
func (p *Parser) ParseCell(cell any) []sales.LineItem {
	switch v := cell.(type) {
	case nil:
		return nil
	case []sales.LineItem:
		return v
	case []any:
		return p.fromList(v)
	case []map[string]any:
		list := make([]any, len(v))
		for i, m := range v {
			list[i] = m
		}
		return p.fromList(list)
	case *sales.Row:
		return p.fromObject(v)
	case string:
		if parsed, ok := p.parseJSON(v); ok {
			return parsed
		}
		if looksStructured(v) {
			return nil
		}
		return p.ParseText(v)
	default:
		return nil
	}
}

// looksStructured reports whether s opens like a JSON list or object.
func looksStructured(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && (s[0] == '[' || s[0] == '{')
}

// parseJSON strictly parses s when it looks like a JSON list or object. When
// the text is not valid JSON as is, doubled quotes left over from CSV
// escaping are folded and the parse retried.
func (p *Parser) parseJSON(s string) ([]sales.LineItem, bool) {
	if !looksStructured(s) {
		return nil, false
	}
	raw := strings.TrimSpace(s)

	doc, err := sales.DecodeJSON([]byte(raw))
	if err != nil {
		folded := strings.ReplaceAll(raw, `""`, `"`)
		if folded == raw {
			return nil, false
		}
		if doc, err = sales.DecodeJSON([]byte(folded)); err != nil {
			return nil, false
		}
	}
	switch v := doc.(type) {
	case []any:
		return p.fromList(v), true
	case *sales.Row:
		return p.fromObject(v), true
	}
	return nil, false
}

// fromObject handles {"items":[...]} wrappers and name to quantity maps.
func (p *Parser) fromObject(obj *sales.Row) []sales.LineItem {
	if inner, ok := obj.Get("items"); ok {
		if list, ok := inner.([]any); ok {
			return p.fromList(list)
		}
	}

	out := make([]sales.LineItem, 0, obj.Len())
	obj.Range(func(name string, v any) bool {
		qty := parser.ParseLocaleNumber(v)
		if strings.TrimSpace(name) != "" && qty != 0 {
			out = append(out, sales.LineItem{Name: name, Quantity: qty})
		}
		return true
	})
	return out
}

func (p *Parser) fromList(list []any) []sales.LineItem {
	out := make([]sales.LineItem, 0, len(list))
	for _, entry := range list {
		switch e := entry.(type) {
		case *sales.Row:
			out = append(out, p.fromEntry(e))
		case map[string]any:
			out = append(out, p.fromEntry(mapToRow(e)))
		case sales.LineItem:
			out = append(out, e)
		case string:
			if it, ok := parseSegment(e); ok {
				out = append(out, it)
			}
		}
	}
	return out
}

// fromEntry reads one JSON item. Numeric fields default to 0, so an entry
// without a quantity is dropped when items are merged.
func (p *Parser) fromEntry(e *sales.Row) sales.LineItem {
	lookup := make(map[string]any, e.Len())
	e.Range(func(k string, v any) bool {
		key := textnorm.Key(k)
		if _, dup := lookup[key]; !dup {
			lookup[key] = v
		}
		return true
	})
	first := func(keys []string) (any, bool) {
		for _, k := range keys {
			if v, ok := lookup[k]; ok && !isEmptyCell(v) {
				return v, true
			}
		}
		return nil, false
	}

	var it sales.LineItem
	if v, ok := first(p.fields.Name); ok {
		it.Name = strings.TrimSpace(parser.ToString(v))
	}
	if v, ok := first(p.fields.Quantity); ok {
		it.Quantity = parser.ParseLocaleNumber(v)
	}
	if v, ok := first(p.fields.Price); ok {
		it.UnitPrice = parser.ParseLocaleNumber(v)
	}
	if v, ok := first(p.fields.Cost); ok {
		it.UnitCost = parser.ParseLocaleNumber(v)
	}
	return it
}

// ParseText reads delimited "2x Name ($price)" segments. A segment with no
// quantity counts as one unit.
func (p *Parser) ParseText(s string) []sales.LineItem {
	var out []sales.LineItem
	for _, seg := range splitSegments(s) {
		if it, ok := parseSegment(seg); ok {
			out = append(out, it)
		}
	}
	return out
}

// splitSegments splits on | ; and newlines outside parentheses, so a
// "($1.200,50)" price suffix stays in its segment. Commas only delimit when
// none of those is present, and never between two digits, so "1,5x Café"
// keeps its decimal quantity.
func splitSegments(s string) []string {
	commas := !strings.ContainsAny(s, "|;\n")
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '|', ';', '\n':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		case ',':
			if depth == 0 && commas && !decimalComma(s, i) {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// decimalComma reports whether the comma at i sits between two digits.
func decimalComma(s string, i int) bool {
	return i > 0 && i+1 < len(s) && isDigit(s[i-1]) && isDigit(s[i+1])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func parseSegment(seg string) (sales.LineItem, bool) {
	seg = strings.TrimSpace(seg)
	if seg == "" || seg == "-" {
		return sales.LineItem{}, false
	}

	it := sales.LineItem{Quantity: 1}
	if m := priceSuffix.FindStringSubmatchIndex(seg); m != nil {
		it.UnitPrice = parser.ParseLocaleNumber(seg[m[2]:m[3]])
		seg = strings.TrimSpace(seg[:m[0]])
	}

	switch {
	case qtyPrefix.MatchString(seg):
		m := qtyPrefix.FindStringSubmatch(seg)
		it.Quantity = parser.ParseLocaleNumber(m[1])
		it.Name = strings.TrimSpace(m[2])
	case qtySuffix.MatchString(seg):
		m := qtySuffix.FindStringSubmatch(seg)
		it.Name = strings.TrimSpace(m[1])
		it.Quantity = parser.ParseLocaleNumber(m[2])
	default:
		it.Name = seg
	}
	return it, it.Name != ""
}

// ParseIndexed pairs item1/cantidad1/precio1... columns by numeric suffix.
// Pairs are returned in suffix order; a missing quantity counts as one unit.
func (p *Parser) ParseIndexed(row *sales.Row) []sales.LineItem {
	type slot struct {
		name, qty, price, cost any
		hasQty                 bool
	}
	slots := make(map[int]*slot)

	row.Range(func(col string, v any) bool {
		m := indexedColumn.FindStringSubmatch(textnorm.Key(col))
		if m == nil {
			return true
		}
		role, ok := indexedRoles[m[1]]
		if !ok {
			return true
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return true
		}
		s, ok := slots[n]
		if !ok {
			s = &slot{}
			slots[n] = s
		}
		switch role {
		case "name":
			if s.name == nil {
				s.name = v
			}
		case "qty":
			if !s.hasQty && !isEmptyCell(v) {
				s.qty, s.hasQty = v, true
			}
		case "price":
			if s.price == nil {
				s.price = v
			}
		case "cost":
			if s.cost == nil {
				s.cost = v
			}
		}
		return true
	})

	suffixes := make([]int, 0, len(slots))
	for n := range slots {
		suffixes = append(suffixes, n)
	}
	sort.Ints(suffixes)

	var out []sales.LineItem
	for _, n := range suffixes {
		s := slots[n]
		name := strings.TrimSpace(parser.ToString(s.name))
		if name == "" {
			continue
		}
		it := sales.LineItem{
			Name:      name,
			Quantity:  1,
			UnitPrice: parser.ParseLocaleNumber(s.price),
			UnitCost:  parser.ParseLocaleNumber(s.cost),
		}
		if s.hasQty {
			it.Quantity = parser.ParseLocaleNumber(s.qty)
		}
		out = append(out, it)
	}
	return out
}

func isEmptyCell(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(c) == ""
	case []any:
		return len(c) == 0
	}
	return false
}

func mapToRow(m map[string]any) *sales.Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	row := sales.NewRow()
	for _, k := range keys {
		row.Set(k, m[k])
	}
	return row
}
