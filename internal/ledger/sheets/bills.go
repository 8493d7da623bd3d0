package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/gmsas95/ledgerbot/internal/bills"
)

// Bills reads active fixed bills from the bills tab. Columns are located by
// header name: Category, Amount, Type, Person, Auto_Include, Status.
type Bills struct {
	store *Store
}

// Bills returns the fixed-bill source sharing this store's quota and breaker
func (s *Store) Bills() *Bills {
	return &Bills{store: s}
}

// ActiveBills implements bills.Source
func (b *Bills) ActiveBills(ctx context.Context) ([]bills.Bill, error) {
	var values [][]any
	tab := quoteTab(b.store.cfg.BillsTab)
	err := b.store.call(ctx, "read_bills", func(ctx context.Context) error {
		var err error
		values, err = b.store.api.Get(ctx, tab+"!A1:Z")
		return err
	})
	if err != nil {
		return nil, err
	}
	return parseBills(values), nil
}

func parseBills(values [][]any) []bills.Bill {
	if len(values) < 2 {
		return nil
	}
	cols := make(map[string]int)
	for i, h := range values[0] {
		cols[strings.ToLower(strings.TrimSpace(fmt.Sprint(h)))] = i
	}
	get := func(row []any, name string) any {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}
	str := func(row []any, name string) string {
		v := get(row, name)
		if v == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(v))
	}

	var out []bills.Bill
	for _, row := range values[1:] {
		category := str(row, "category")
		if category == "" || !strings.EqualFold(str(row, "status"), "Active") {
			continue
		}
		out = append(out, bills.Bill{
			Category:      category,
			DefaultAmount: parseAmount(get(row, "amount")),
			Owner:         bills.NormalizeOwner(str(row, "person")),
			AutoInclude:   strings.EqualFold(str(row, "auto_include"), "Yes"),
		})
	}
	return out
}
