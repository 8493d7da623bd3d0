package bills

import (
	"strings"

	"github.com/gmsas95/ledgerbot/internal/textnorm"
)

// Aliases maps common synonyms to a canonical bill key fragment
var Aliases = map[string]string{
	"gas":         "gas",
	"điện":        "electricity",
	"electric":    "electricity",
	"electricity": "electricity",
	"internet":    "internet",
	"wifi":        "internet",
	"rent":        "rent",
	"nhà":         "rent",
	"phone":       "phone",
	"điện thoại":  "phone",
	"groceries":   "groceries",
	"grocery":     "groceries",
	"đi chợ":      "groceries",
	"eating":      "eating out",
	"ăn ngoài":    "eating out",
	"dinner":      "eating out",
	"transport":   "transport",
	"đi lại":      "transport",
	"netflix":     "disney +",
	"disney":      "disney +",
	"youtube":     "youtube premium",
	"claude":      "claude pro",
	"chatgpt":     "chatgpt pro",
	"microsoft":   "microsoft 365",
	"canva":       "canva pro",
	"icloud":      "icloud storage",
	"insurance":   "health insurance",
	"bảo hiểm":    "health insurance",
	"전기":          "electricity",
	"가스":          "gas",
	"인터넷":         "internet",
	"월세":          "rent",
	"보험":          "health insurance",
}

type entry struct {
	key  string
	bill Bill
}

// Matcher resolves a description fragment to a bill in three stages:
// exact key, substring in either direction, then alias.
type Matcher struct {
	entries []entry
	aliases map[string]string
}

// NewMatcher indexes bills in the order given; earlier bills win ties.
func NewMatcher(bs []Bill) *Matcher {
	m := &Matcher{aliases: Aliases}
	for _, b := range bs {
		for _, k := range keys(b) {
			m.entries = append(m.entries, entry{key: k, bill: b})
		}
	}
	return m
}

// Match returns the bill for text, if any stage matches
func (m *Matcher) Match(text string) (Bill, bool) {
	t := textnorm.Fold(text)
	if t == "" || len(m.entries) == 0 {
		return Bill{}, false
	}

	for _, e := range m.entries {
		if e.key == t {
			return e.bill, true
		}
	}

	for _, e := range m.entries {
		if strings.Contains(e.key, t) || strings.Contains(t, e.key) {
			return e.bill, true
		}
	}

	if canonical, ok := m.aliases[t]; ok {
		for _, e := range m.entries {
			if strings.Contains(e.key, canonical) {
				return e.bill, true
			}
		}
	}
	return Bill{}, false
}
