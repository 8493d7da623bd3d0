// Package bills resolves free text to the household's recurring fixed bills.
package bills

import (
	"context"
	"strings"

	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/textnorm"
)

// Bill is one active recurring expense template
type Bill struct {
	Category      string
	DefaultAmount int64
	Owner         ledger.Person
	AutoInclude   bool
}

// Source yields the currently active bills. It is read on every request.
type Source interface {
	ActiveBills(ctx context.Context) ([]Bill, error)
}

// Static is a Source over a fixed list, used for config-defined bills and tests
type Static []Bill

// ActiveBills implements Source
func (s Static) ActiveBills(context.Context) ([]Bill, error) {
	return []Bill(s), nil
}

// NormalizeOwner maps the sheet's owner text to a member; "Both" and unknown values are Joint
func NormalizeOwner(s string) ledger.Person {
	if p, ok := ledger.ParsePerson(s); ok {
		return p
	}
	return ledger.PersonJoint
}

// Total sums default amounts, optionally only the auto-included bills
func Total(bs []Bill, autoOnly bool) int64 {
	var sum int64
	for _, b := range bs {
		if autoOnly && !b.AutoInclude {
			continue
		}
		sum += b.DefaultAmount
	}
	return sum
}

// ByOwner groups bills by owner, keeping input order within each group
func ByOwner(bs []Bill) map[ledger.Person][]Bill {
	out := make(map[ledger.Person][]Bill)
	for _, b := range bs {
		owner := b.Owner
		if owner == "" {
			owner = ledger.PersonJoint
		}
		out[owner] = append(out[owner], b)
	}
	return out
}

// keys derives the lookup keys of a bill: the folded category text and,
// when different, its simple key ("Phone - Jacob" → "phone").
func keys(b Bill) []string {
	key := textnorm.Fold(b.Category)
	if key == "" {
		return nil
	}
	fields := strings.Fields(strings.Split(key, " - ")[0])
	if len(fields) == 0 || fields[0] == key {
		return []string{key}
	}
	return []string{key, fields[0]}
}
