package normalizer

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// RuleSet is the data form of the canonicalization and categorization tables.
type RuleSet struct {
	Overrides  map[string]string `yaml:"overrides"`
	Rewrites   []RewriteRule     `yaml:"rewrites"`
	Combos     []RewriteRule     `yaml:"combos"`
	Noise      NoiseRules        `yaml:"noise"`
	Categories []CategoryRule    `yaml:"categories"`
}

// RewriteRule maps every name whose key matches Pattern to Name.
type RewriteRule struct {
	Pattern string `yaml:"pattern"`
	Name    string `yaml:"name"`
}

// NoiseRules describe entries that are notes rather than products.
type NoiseRules struct {
	Prefixes  []string `yaml:"prefixes"`
	Patterns  []string `yaml:"patterns"`
	MinLength int      `yaml:"min_length"`
}

// CategoryRule assigns Category to names matching Match and not Exclude.
type CategoryRule struct {
	Category sales.Category `yaml:"category"`
	Match    string         `yaml:"match"`
	Exclude  string         `yaml:"exclude,omitempty"`
}

// DefaultRules returns the embedded rule set.
func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads a rule set from a YAML file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rule set.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	for _, c := range rs.Categories {
		if _, ok := sales.ParseCategory(string(c.Category)); !ok {
			return nil, fmt.Errorf("unknown category %q in rules", c.Category)
		}
	}
	return &rs, nil
}

type compiledRewrite struct {
	pattern *regexp.Regexp
	name    string
}

type compiledCategory struct {
	category sales.Category
	match    *regexp.Regexp
	exclude  *regexp.Regexp
}

func compileRewrites(rules []RewriteRule) ([]compiledRewrite, error) {
	out := make([]compiledRewrite, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid rewrite pattern %q: %w", r.Pattern, err)
		}
		out = append(out, compiledRewrite{pattern: re, name: r.Name})
	}
	return out, nil
}

func compileCategories(rules []CategoryRule) ([]compiledCategory, error) {
	out := make([]compiledCategory, 0, len(rules))
	for _, r := range rules {
		match, err := regexp.Compile(r.Match)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for %s: %w", r.Category, err)
		}
		cc := compiledCategory{category: r.Category, match: match}
		if r.Exclude != "" {
			if cc.exclude, err = regexp.Compile(r.Exclude); err != nil {
				return nil, fmt.Errorf("invalid exclusion for %s: %w", r.Category, err)
			}
		}
		out = append(out, cc)
	}
	return out, nil
}
