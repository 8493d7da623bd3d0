package sheets

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gmsas95/ledgerbot/internal/ledger"
)

var dateLayouts = []string{ledger.DateLayout, "2006/01/02", "1/2/2006", "2006-01"}

// encodeRow lays a row out as columns A..I
func encodeRow(r ledger.Row) []any {
	month := ""
	if !r.MonthStart.IsZero() {
		month = r.MonthStart.Format(ledger.DateLayout)
	}
	return []any{
		r.Date.Format(ledger.DateLayout),
		string(r.Type),
		r.Category,
		r.Amount,
		r.Description,
		string(r.Person),
		month,
		r.Source,
		r.ID,
	}
}

// decodeRow reads columns A..I of the sheet row at the given 1-based position
func decodeRow(cells []any, index int, loc *time.Location) ledger.Row {
	return ledger.Row{
		Index:       index,
		Date:        parseDate(cell(cells, ledger.ColDate), loc),
		Type:        ledger.RowType(cell(cells, ledger.ColType)),
		Category:    cell(cells, ledger.ColCategory),
		Amount:      parseAmount(at(cells, int(ledger.ColAmount))),
		Description: cell(cells, ledger.ColDescription),
		Person:      ledger.Person(cell(cells, ledger.ColPerson)),
		MonthStart:  parseDate(cell(cells, ledger.ColMonth), loc),
		Source:      cell(cells, ledger.ColSource),
		ID:          cell(cells, ledger.ColID),
	}
}

// encodeValue converts an UpdateCell value to what the sheet stores
func encodeValue(col ledger.Column, value any) (any, error) {
	switch col {
	case ledger.ColAmount:
		v, ok := value.(int64)
		if !ok {
			return nil, fmt.Errorf("amount must be int64, got %T", value)
		}
		return v, nil
	case ledger.ColDescription, ledger.ColCategory, ledger.ColPerson, ledger.ColType, ledger.ColSource:
		return fmt.Sprint(value), nil
	}
	return nil, fmt.Errorf("column %s is not editable", col)
}

func at(cells []any, i int) any {
	if i < len(cells) {
		return cells[i]
	}
	return nil
}

func cell(cells []any, col ledger.Column) string {
	v := at(cells, int(col))
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// parseAmount accepts numbers and display strings like "₩150,000"
func parseAmount(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(math.Round(n))
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		s := strings.NewReplacer("₩", "", ",", "", " ", "").Replace(n)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return int64(math.Round(f))
	}
	return 0
}

func parseDate(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

var a1Row = regexp.MustCompile(`![A-Z]+(\d+)`)

// rowOf extracts the first row number of an A1 range such as "Transaction!A12:I12"
func rowOf(rng string) int {
	m := a1Row.FindStringSubmatch(rng)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// quoteTab quotes a tab title for A1 notation when it contains spaces
func quoteTab(tab string) string {
	if strings.ContainsAny(tab, " '!") {
		return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
	}
	return tab
}
