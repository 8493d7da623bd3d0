// Package taxonomy holds the ordered category rules and the keyword sets used
// to tell income from expenses and loans from repayments.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/gmsas95/ledgerbot/internal/textnorm"
	"gopkg.in/yaml.v3"
)

// Other is the category of descriptions no rule matches
const Other = "Other"

// Income is the category name that forces the Income row type
const Income = "Income"

//go:embed categories.yaml
var defaultYAML []byte

// Rule is one category with its substring keywords
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy is an immutable, folded rule set
type Taxonomy struct {
	Categories        []Rule   `yaml:"categories"`
	IncomeKeywords    []string `yaml:"income_keywords"`
	LoanKeywords      []string `yaml:"loan_keywords"`
	RepaymentKeywords []string `yaml:"repayment_keywords"`
}

// Default returns the embedded taxonomy
func Default() *Taxonomy {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy: %v", err))
	}
	return t
}

// Load reads a taxonomy file
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML taxonomy. Keywords are folded so that
// matching only has to fold the input.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(t.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}

	seen := make(map[string]bool, len(t.Categories))
	for i := range t.Categories {
		r := &t.Categories[i]
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i+1)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate category %q", r.Name)
		}
		seen[r.Name] = true
		r.Keywords = foldAll(r.Keywords)
	}
	t.IncomeKeywords = foldAll(t.IncomeKeywords)
	t.LoanKeywords = foldAll(t.LoanKeywords)
	t.RepaymentKeywords = foldAll(t.RepaymentKeywords)
	return &t, nil
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = textnorm.Fold(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Classify returns the first category, in declaration order, with a keyword
// contained in the description.
func (t *Taxonomy) Classify(description string) string {
	d := textnorm.Fold(description)
	for _, r := range t.Categories {
		for _, k := range r.Keywords {
			if strings.Contains(d, k) {
				return r.Name
			}
		}
	}
	return Other
}

// IsIncome decides the row type. The Income category always wins; otherwise
// only whole words count, so "coffee" never matches "fee".
func (t *Taxonomy) IsIncome(category, description string) bool {
	if category == Income {
		return true
	}
	d := textnorm.Fold(description)
	for _, k := range t.IncomeKeywords {
		if textnorm.ContainsWord(d, k) {
			return true
		}
	}
	return false
}

// IsLoan reports loan issuance phrasing
func (t *Taxonomy) IsLoan(description string) bool {
	return containsAny(textnorm.Fold(description), t.LoanKeywords)
}

// IsRepayment reports loan repayment phrasing
func (t *Taxonomy) IsRepayment(description string) bool {
	return containsAny(textnorm.Fold(description), t.RepaymentKeywords)
}

// Names lists category names in declaration order followed by Other
func (t *Taxonomy) Names() []string {
	out := make([]string, 0, len(t.Categories)+1)
	for _, r := range t.Categories {
		out = append(out, r.Name)
	}
	return append(out, Other)
}

// Lookup resolves a folded user word ("groceries", "eating") to a category name
func (t *Taxonomy) Lookup(word string) (string, bool) {
	w := textnorm.Fold(word)
	if w == "" {
		return "", false
	}
	for _, name := range t.Names() {
		n := textnorm.Fold(name)
		if n == w || (len([]rune(w)) >= 4 && strings.HasPrefix(n, w)) {
			return name, true
		}
	}
	return "", false
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
