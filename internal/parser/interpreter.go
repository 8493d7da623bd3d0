package parser

import (
	"strings"
	"time"

	"github.com/gmsas95/ledgerbot/internal/bills"
	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/money"
	"github.com/gmsas95/ledgerbot/internal/taxonomy"
)

// Classifier is the taxonomy view the interpreter needs
type Classifier interface {
	LoanDetector
	Classify(description string) string
	IsIncome(category, description string) bool
}

// Interpreter runs the parsing stages in a fixed order
type Interpreter struct {
	classifier Classifier
	now        func() time.Time
}

// NewInterpreter creates an interpreter; now defaults to time.Now
func NewInterpreter(classifier Classifier, now func() time.Time) *Interpreter {
	if now == nil {
		now = time.Now
	}
	return &Interpreter{classifier: classifier, now: now}
}

// Interpret parses text sent by sender. It returns ErrNotTransaction when no
// positive amount is present, which callers treat as chat and ignore.
// matcher may be nil when no fixed bills are configured.
func (i *Interpreter) Interpret(text string, sender ledger.Person, matcher *bills.Matcher) (Transaction, error) {
	now := i.now()
	tokens := strings.Fields(text)

	mres := ExtractMonth(tokens, now)
	pres := ExtractPerson(mres.Rest, sender)

	amount, rest, ok := extractAmount(pres.Rest)
	if !ok || amount <= 0 {
		return Transaction{}, apperrors.ErrNotTransaction
	}
	description := strings.Join(rest, " ")

	tx := Transaction{
		Person:      pres.Person,
		Amount:      amount,
		Description: description,
		Year:        mres.Year,
		Month:       mres.Month,
		IsBackdated: mres.IsBackdated,
		IsJoint:     pres.IsJoint,
	}

	if matcher != nil {
		if b, ok := matcher.Match(description); ok {
			tx.Bill = &b
			tx.Person = b.Owner
			if tx.Person == "" {
				tx.Person = ledger.PersonJoint
			}
			tx.IsJoint = tx.Person == ledger.PersonJoint
			tx.Description = b.Category
			tx.Category = b.Category
		}
	}

	if tx.Description == "" {
		return Transaction{}, apperrors.ErrNotTransaction
	}

	loan := DetectLoan(i.classifier, tx.Description)
	if tx.Bill == nil {
		if loan == LoanIssued {
			tx.Category = ledger.CategoryLoan
			tx.IsLoan = true
		} else {
			tx.Category = i.classifier.Classify(tx.Description)
			// only issuance phrasing opens a loan; anything else would show up under debts
			if tx.Category == ledger.CategoryLoan && loan == NotLoan {
				tx.Category = taxonomy.Other
			}
		}
	}

	tx.Type = ledger.TypeExpense
	if !tx.IsLoan && i.classifier.IsIncome(tx.Category, tx.Description) {
		tx.Type = ledger.TypeIncome
	}
	if loan == LoanRepaid {
		tx.Category = ledger.CategoryLoan
		tx.Type = ledger.TypeIncome
		tx.IsLoan = false
		tx.IsRepayment = true
	}
	return tx, nil
}

// extractAmount takes the first amount-shaped token; the others stay in order
func extractAmount(tokens []string) (int64, []string, bool) {
	for idx, tok := range tokens {
		if v, ok := money.ParseAmount(tok); ok {
			rest := append(append([]string{}, tokens[:idx]...), tokens[idx+1:]...)
			return v, rest, true
		}
	}
	return 0, tokens, false
}
