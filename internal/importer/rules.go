package importer

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"duoledger/internal/core"
)

//go:embed rules.yaml
var defaultRules []byte

var ErrInvalidRules = errors.New("invalid classifier rules")

// Rule assigns Category when any keyword occurs in a comment.
type Rule struct {
	Category core.Category `yaml:"category"`
	Keywords []string      `yaml:"keywords"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded classifier rules: %v", err))
	}
	return rules
}

// LoadRules reads a rule file, or returns the built-in table when path is empty.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule table. Keywords are
// normalized to lower case.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("%w: no rules", ErrInvalidRules)
	}
	for i, r := range f.Rules {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("%w: rule %d has unknown category %q", ErrInvalidRules, i+1, r.Category)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("%w: rule %d (%s) has no keywords", ErrInvalidRules, i+1, r.Category)
		}
		for j, k := range r.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				return nil, fmt.Errorf("%w: rule %d (%s) has an empty keyword", ErrInvalidRules, i+1, r.Category)
			}
			f.Rules[i].Keywords[j] = k
		}
	}
	return f.Rules, nil
}

// Categorize returns the category of the first matching rule, or Other.
func Categorize(rules []Rule, comment string) core.Category {
	c := strings.ToLower(comment)
	for _, r := range rules {
		for _, k := range r.Keywords {
			if strings.Contains(c, k) {
				return r.Category
			}
		}
	}
	return core.Other
}
