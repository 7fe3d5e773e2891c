// Package normalizer folds noisy product names typed by staff into stable
// labels, drops notes that are not products, and assigns each product one of
// the fixed dashboard categories.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/textnorm"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

var spaceRun = regexp.MustCompile(`\s+`)

// Canonicalizer applies a compiled RuleSet. It is safe for concurrent use
// once built; AddRewrite must not race with lookups.
type Canonicalizer struct {
	overrides     map[string]string
	rewrites      []compiledRewrite
	combos        []compiledRewrite
	noisePrefixes []string
	noise         []*regexp.Regexp
	minLength     int
	categories    []compiledCategory
}

// NewCanonicalizer compiles rs.
func NewCanonicalizer(rs *RuleSet) (*Canonicalizer, error) {
	c := &Canonicalizer{
		overrides: make(map[string]string, len(rs.Overrides)),
		minLength: rs.Noise.MinLength,
	}
	for k, v := range rs.Overrides {
		c.overrides[NormKey(k)] = v
	}

	var err error
	if c.rewrites, err = compileRewrites(rs.Rewrites); err != nil {
		return nil, err
	}
	if c.combos, err = compileRewrites(rs.Combos); err != nil {
		return nil, err
	}
	if c.categories, err = compileCategories(rs.Categories); err != nil {
		return nil, err
	}

	for _, p := range rs.Noise.Prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			c.noisePrefixes = append(c.noisePrefixes, p)
		}
	}
	for _, p := range rs.Noise.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		c.noise = append(c.noise, re)
	}
	if c.minLength < 1 {
		c.minLength = 2
	}
	return c, nil
}

// NewDefaultCanonicalizer builds a Canonicalizer over the embedded rules.
func NewDefaultCanonicalizer() (*Canonicalizer, error) {
	rs, err := DefaultRules()
	if err != nil {
		return nil, err
	}
	return NewCanonicalizer(rs)
}

// NormKey lowercases, strips diacritics and collapses non alphanumeric runs
// into single spaces.
func NormKey(s string) string {
	return textnorm.Key(s)
}

// IsNoise reports whether name is a note rather than a product: empty, an
// expense line, a turn-closing annotation, an arrow marker, a bare number or
// a single character.
func (c *Canonicalizer) IsNoise(name string) bool {
	key := NormKey(name)
	if len(key) < c.minLength {
		return true
	}
	for _, re := range c.noise {
		if re.MatchString(key) {
			return true
		}
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.noisePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Canonicalize maps name to its stable label: exact override, then the first
// matching rewrite, then combo detection, else the trimmed original.
func (c *Canonicalizer) Canonicalize(name string) string {
	trimmed := strings.TrimSpace(spaceRun.ReplaceAllString(name, " "))
	if trimmed == "" {
		return ""
	}
	key := NormKey(trimmed)
	if label, ok := c.overrides[key]; ok {
		return label
	}
	for _, r := range c.rewrites {
		if r.pattern.MatchString(key) {
			return r.name
		}
	}
	for _, r := range c.combos {
		if r.pattern.MatchString(key) {
			return r.name
		}
	}
	return trimmed
}

// Categorize returns the first category whose rule matches name, or
// sales.DefaultCategory.
func (c *Canonicalizer) Categorize(name string) sales.Category {
	folded := textnorm.Fold(name)
	for _, rule := range c.categories {
		if !rule.match.MatchString(folded) {
			continue
		}
		if rule.exclude != nil && rule.exclude.MatchString(folded) {
			continue
		}
		return rule.category
	}
	return sales.DefaultCategory
}

// AddRewrite appends a rewrite rule after the configured ones.
func (c *Canonicalizer) AddRewrite(pattern, name string) error {
	compiled, err := compileRewrites([]RewriteRule{{Pattern: pattern, Name: name}})
	if err != nil {
		return err
	}
	c.rewrites = append(c.rewrites, compiled...)
	return nil
}

// Merge canonicalizes items and folds those sharing a canonical name into one
// entry, in order of first appearance. Noise, unnamed and non positive
// quantity items are dropped.
func (c *Canonicalizer) Merge(items []sales.LineItem) []sales.CanonicalLineItem {
	out := make([]sales.CanonicalLineItem, 0, len(items))
	index := make(map[string]int, len(items))

	for _, it := range items {
		if c.IsNoise(it.Name) || it.Quantity <= 0 {
			continue
		}
		label := c.Canonicalize(it.Name)
		key := NormKey(label)
		if key == "" {
			continue
		}

		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, sales.CanonicalLineItem{
				CanonicalName: label,
				Category:      c.Categorize(label),
			})
		}
		acc := &out[i]
		acc.Quantity += it.Quantity
		acc.Revenue += it.UnitPrice * it.Quantity
		acc.Cost += it.UnitCost * it.Quantity
		acc.OccurrenceCount++
	}

	for i := range out {
		out[i].Profit = out[i].Revenue - out[i].Cost
		if out[i].Quantity > 0 {
			out[i].UnitPriceAvg = out[i].Revenue / out[i].Quantity
		}
	}
	return out
}
