package ledger

import (
	"time"
)

// MonthSummary aggregates income and expenses for one month
type MonthSummary struct {
	Year          int
	Month         time.Month
	Income        map[Person]int64
	Expenses      map[Person]int64
	TotalIncome   int64
	TotalExpenses int64
}

// Net returns income minus expenses
func (s MonthSummary) Net() int64 {
	return s.TotalIncome - s.TotalExpenses
}

// Summarize aggregates Income and Expense rows of the given month.
// Fund rows are not transactions and are skipped.
func Summarize(rows []Row, year int, month time.Month) MonthSummary {
	s := MonthSummary{
		Year:     year,
		Month:    month,
		Income:   make(map[Person]int64),
		Expenses: make(map[Person]int64),
	}

	for _, r := range rows {
		if !r.InMonth(year, month) {
			continue
		}
		person := r.Person
		if person == "" {
			person = PersonJoint
		}
		switch r.Type {
		case TypeIncome:
			s.Income[person] += r.Amount
			s.TotalIncome += r.Amount
		case TypeExpense:
			s.Expenses[person] += r.Amount
			s.TotalExpenses += r.Amount
		}
	}
	return s
}

// FundBalance is the current balance of one savings fund
type FundBalance struct {
	Name   string
	Amount int64
	AsOf   time.Time
}

// FundBalances computes each fund's balance: the latest Fund Balance row plus
// every Fund Add row recorded after it. Result keeps first-seen order.
func FundBalances(rows []Row) []FundBalance {
	idx := make(map[string]int)
	var out []FundBalance

	for _, r := range rows {
		if r.Type != TypeFundBalance && r.Type != TypeFundAdd {
			continue
		}
		i, ok := idx[r.Category]
		if !ok {
			i = len(out)
			idx[r.Category] = i
			out = append(out, FundBalance{Name: r.Category})
		}
		if r.Type == TypeFundBalance {
			out[i].Amount = r.Amount
		} else {
			out[i].Amount += r.Amount
		}
		out[i].AsOf = r.Date
	}
	return out
}

// FundBalanceOf returns the balance of a single fund, 0 when unknown
func FundBalanceOf(rows []Row, name string) int64 {
	for _, f := range FundBalances(rows) {
		if f.Name == name {
			return f.Amount
		}
	}
	return 0
}

// LatestFundBalanceRow returns the most recent Fund Balance row of a fund
func LatestFundBalanceRow(rows []Row, name string) (Row, bool) {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Type == TypeFundBalance && rows[i].Category == name {
			return rows[i], true
		}
	}
	return Row{}, false
}

// OutstandingLoans returns unsettled loan rows, oldest first
func OutstandingLoans(rows []Row) []Row {
	var out []Row
	for _, r := range rows {
		if r.IsOutstandingLoan() {
			out = append(out, r)
		}
	}
	return out
}
