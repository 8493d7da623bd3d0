// Package parser turns a free-form chat message into a structured transaction.
package parser

import (
	"time"

	"github.com/gmsas95/ledgerbot/internal/bills"
	"github.com/gmsas95/ledgerbot/internal/ledger"
)

// BackdatedDay is the synthetic day of month used for back-dated rows
const BackdatedDay = 15

// Transaction is one interpreted message. Category and Type are always set together.
type Transaction struct {
	Person      ledger.Person
	Amount      int64
	Description string
	Category    string
	Type        ledger.RowType
	Year        int
	Month       time.Month
	IsBackdated bool
	IsLoan      bool
	IsRepayment bool
	IsJoint     bool
	Bill        *bills.Bill
}

// Date returns the row date: today, or the 15th of the effective month when back-dated
func (t Transaction) Date(now time.Time) time.Time {
	if !t.IsBackdated {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	return time.Date(t.Year, t.Month, BackdatedDay, 0, 0, 0, 0, now.Location())
}

// MonthStart returns the first day of the effective month
func (t Transaction) MonthStart(loc *time.Location) time.Time {
	return time.Date(t.Year, t.Month, 1, 0, 0, 0, 0, loc)
}

// Row converts the transaction into a ledger row
func (t Transaction) Row(now time.Time, source string) ledger.Row {
	return ledger.Row{
		Date:        t.Date(now),
		Type:        t.Type,
		Category:    t.Category,
		Amount:      t.Amount,
		Description: t.Description,
		Person:      t.Person,
		MonthStart:  t.MonthStart(now.Location()),
		Source:      source,
	}
}
