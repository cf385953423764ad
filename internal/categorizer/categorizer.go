// Package categorizer assigns a category and a counterparty name to statement
// transactions using ordered keyword rules on the description.
package categorizer

import (
	"strings"

	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/textutils"

	"github.com/shopspring/decimal"
)

// fallbackWords is how many leading words of a description name the counterparty
// when no rule extracts one.
const fallbackWords = 3

// Result is the classification of one description.
type Result struct {
	Category     string
	Counterparty string
}

// Classifier evaluates custom rules before the built-in ones. It is read-only
// after construction and safe for concurrent use.
type Classifier struct {
	rules  []Rule
	logger logging.Logger
}

// New creates a Classifier. Custom rules take precedence over the built-in list.
func New(custom []Rule, logger logging.Logger) *Classifier {
	rules := make([]Rule, 0, len(custom)+12)
	rules = append(rules, custom...)
	for _, r := range BuiltinRules() {
		if err := r.compile(); err == nil {
			rules = append(rules, r)
		}
	}
	return &Classifier{rules: rules, logger: logging.OrDefault(logger)}
}

// NewFromFile creates a Classifier with rules loaded from path. An empty path
// yields the built-in rules only.
func NewFromFile(path string, logger logging.Logger) (*Classifier, error) {
	if path == "" {
		return New(nil, logger), nil
	}
	custom, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	c := New(custom, logger)
	c.logger.Debug("Loaded custom categorization rules",
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(custom)})
	return c, nil
}

// Classify returns the category and counterparty for a description. Descriptions
// no rule matches fall back to Income, Expense or Other by the sign of amount.
func (c *Classifier) Classify(description string, amount decimal.Decimal) Result {
	lower := strings.ToLower(description)
	res := Result{Category: models.CategoryOther}

	matched := false
	for i := range c.rules {
		r := &c.rules[i]
		if !r.matches(lower) {
			continue
		}
		res.Category = r.Category
		if cp := r.extractCounterparty(lower); cp != "" {
			res.Counterparty = textutils.TitleCase(cp)
		}
		matched = true
		break
	}
	if !matched {
		switch {
		case amount.IsPositive():
			res.Category = models.CategoryIncome
		case amount.IsNegative():
			res.Category = models.CategoryExpense
		}
	}

	if res.Counterparty == "" && description != "" {
		res.Counterparty = textutils.FirstWords(description, fallbackWords)
	}
	return res
}

// Rules returns the effective rule list in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}
