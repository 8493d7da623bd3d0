// Package ledger defines the ledger row model and the store contract every
// backend (Google Sheets, SQLite, memory) implements.
package ledger

import (
	"context"
	"strings"
	"time"
)

// RowType is the value of the Type column
type RowType string

const (
	TypeIncome      RowType = "Income"
	TypeExpense     RowType = "Expense"
	TypeFundAdd     RowType = "Fund Add"
	TypeFundBalance RowType = "Fund Balance"
)

// Person is a household member
type Person string

const (
	PersonJacob Person = "Jacob"
	PersonNaomi Person = "Naomi"
	PersonJoint Person = "Joint"
)

// Members lists the household in display order
var Members = []Person{PersonJoint, PersonJacob, PersonNaomi}

// ParsePerson matches a member name case-insensitively. "Both" maps to Joint.
func ParsePerson(s string) (Person, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jacob":
		return PersonJacob, true
	case "naomi":
		return PersonNaomi, true
	case "joint", "both":
		return PersonJoint, true
	}
	return "", false
}

// Column is a positional column of the transaction sheet
type Column int

const (
	ColDate Column = iota
	ColType
	ColCategory
	ColAmount
	ColDescription
	ColPerson
	ColMonth
	ColSource
	ColID
)

// Header is the header row, in column order
var Header = []string{"Date", "Type", "Category", "Amount", "Description", "Person", "Month", "Source", "ID"}

// Letter returns the A1 column letter
func (c Column) Letter() string {
	return string(rune('A' + int(c)))
}

func (c Column) String() string {
	if c < 0 || int(c) >= len(Header) {
		return "Unknown"
	}
	return Header[c]
}

// Date layouts used in the sheet
const (
	DateLayout = "2006-01-02"
)

// CategoryLoan is shared by loan issuance and repayment rows
const CategoryLoan = "Loan & Debt"

// PaidMarker prefixes the description of a settled loan row
const PaidMarker = "[PAID]"

// Row is one persisted ledger line.
//
// ID is a stable handle that survives deletions of other rows. Index is the
// physical 2-based sheet position at read time and is only informational.
type Row struct {
	ID          string
	Index       int
	Date        time.Time
	Type        RowType
	Category    string
	Amount      int64
	Description string
	Person      Person
	MonthStart  time.Time
	Source      string
}

// IsPaid reports whether a loan row has been marked settled
func (r Row) IsPaid() bool {
	return strings.HasPrefix(strings.TrimSpace(r.Description), PaidMarker)
}

// IsOutstandingLoan reports whether the row is an unsettled loan issuance
func (r Row) IsOutstandingLoan() bool {
	return r.Type == TypeExpense && r.Category == CategoryLoan && !r.IsPaid()
}

// InMonth reports whether the row aggregates into the given month
func (r Row) InMonth(year int, month time.Month) bool {
	ms := r.MonthStart
	if ms.IsZero() {
		ms = r.Date
	}
	return ms.Year() == year && ms.Month() == month
}

// Store is the ledger contract. All calls block on the backend.
type Store interface {
	// Append writes a row at the end of the ledger and returns it with ID and Index set.
	Append(ctx context.Context, row Row) (Row, error)
	// ReadAll returns data rows ordered by physical position.
	ReadAll(ctx context.Context) ([]Row, error)
	// UpdateCell overwrites one column of the row with the given ID.
	UpdateCell(ctx context.Context, id string, col Column, value any) error
	// Delete removes the row with the given ID.
	Delete(ctx context.Context, id string) error
}

// MonthStart returns the first day of t's month
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
