package dedup

import (
	"strings"
	"time"

	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/textnorm"
)

// SynonymPairs are English/Vietnamese words treated as the same income source
var SynonymPairs = [][2]string{
	{"salary", "lương"},
	{"commission", "hoa hồng"},
	{"bonus", "thưởng"},
}

// IncomeDetector finds an already logged income that looks like the same one.
// It is a heuristic: a hit only produces a warning.
type IncomeDetector struct {
	pairs [][2]string
}

// NewIncomeDetector uses SynonymPairs
func NewIncomeDetector() *IncomeDetector {
	return &IncomeDetector{pairs: SynonymPairs}
}

// Find returns a same-day Income row with the same amount and a related description
func (d *IncomeDetector) Find(rows []ledger.Row, day time.Time, amount int64, description string) (ledger.Row, bool) {
	desc := textnorm.Fold(description)
	for _, r := range rows {
		if r.Type != ledger.TypeIncome || r.Amount != amount || !ledger.SameDay(r.Date, day) {
			continue
		}
		if d.related(desc, textnorm.Fold(r.Description)) {
			return r, true
		}
	}
	return ledger.Row{}, false
}

func (d *IncomeDetector) related(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	for _, p := range d.pairs {
		if mentions(a, p) && mentions(b, p) {
			return true
		}
	}
	return false
}

func mentions(s string, pair [2]string) bool {
	return strings.Contains(s, pair[0]) || strings.Contains(s, pair[1])
}
