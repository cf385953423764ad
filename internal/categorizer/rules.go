package categorizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"fjacquet/stmt-forensics/internal/models"

	"gopkg.in/yaml.v3"
)

// Rule maps description keywords to a category. When CounterpartyPattern is set,
// its first capture group names the counterparty.
type Rule struct {
	Category            string   `yaml:"name"`
	Keywords            []string `yaml:"keywords"`
	CounterpartyPattern string   `yaml:"counterparty_pattern,omitempty"`

	counterparty *regexp.Regexp
}

// RuleFile is the YAML layout of a custom rule file.
type RuleFile struct {
	Categories []Rule `yaml:"categories"`
}

func (r *Rule) compile() error {
	if r.Category == "" {
		return fmt.Errorf("rule without name")
	}
	if len(r.Keywords) == 0 {
		return fmt.Errorf("rule %q has no keywords", r.Category)
	}
	for i, k := range r.Keywords {
		r.Keywords[i] = strings.ToLower(strings.TrimSpace(k))
	}
	if r.CounterpartyPattern != "" {
		re, err := regexp.Compile(r.CounterpartyPattern)
		if err != nil {
			return fmt.Errorf("rule %q: invalid counterparty pattern: %w", r.Category, err)
		}
		r.counterparty = re
	}
	return nil
}

// matches reports whether any keyword occurs in the lowercased description.
func (r *Rule) matches(lower string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (r *Rule) extractCounterparty(lower string) string {
	if r.counterparty == nil {
		return ""
	}
	m := r.counterparty.FindStringSubmatch(lower)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// BuiltinRules returns the default ordered rule list. Order matters: the
// first matching rule wins, so salary credits routed over NEFT stay Salary.
func BuiltinRules() []Rule {
	return []Rule{
		{Category: models.CategorySalary, Keywords: []string{"salary", "bulk posting"}},
		{Category: models.CategoryUPI, Keywords: []string{"upi"}, CounterpartyPattern: `upi/p2[am]/\d+/([^/]+)`},
		{Category: models.CategoryNEFT, Keywords: []string{"neft"}, CounterpartyPattern: `neft/[^/]+/([^/]+)`},
		{Category: models.CategoryIMPS, Keywords: []string{"imps"}},
		{Category: models.CategoryCash, Keywords: []string{"atm", "cash"}},
		{Category: models.CategoryLoan, Keywords: []string{"emi", "loan"}},
		{Category: models.CategoryFees, Keywords: []string{"fee", "charge", "chrg"}},
		{Category: models.CategoryInterest, Keywords: []string{"interest"}},
		{Category: models.CategoryCard, Keywords: []string{"card", "pos"}},
		{Category: models.CategoryInsurance, Keywords: []string{"insurance", "premium"}},
		{Category: models.CategoryTransfer, Keywords: []string{"transfer", "trf"}},
		{Category: models.CategoryBillPayment, Keywords: []string{"bill", "recharge"}},
	}
}

// LoadRules reads a YAML rule file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML rules and validates them.
func ParseRules(data []byte) ([]Rule, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}
	for i := range file.Categories {
		if err := file.Categories[i].compile(); err != nil {
			return nil, err
		}
	}
	return file.Categories, nil
}
