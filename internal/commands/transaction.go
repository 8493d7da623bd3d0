package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gmsas95/ledgerbot/internal/bills"
	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/money"
	"github.com/gmsas95/ledgerbot/internal/undo"
	"go.uber.org/zap"
)

// handleTransaction is the fallback: interpret, append, record undo, annotate
func (r *Router) handleTransaction(ctx context.Context, msg Message, text string) (string, error) {
	matcher := bills.NewMatcher(r.activeBills(ctx))
	tx, err := r.interpreter.Interpret(text, r.sender(msg), matcher)
	if err != nil {
		return "", err
	}
	now := r.now()

	var rows []ledger.Row
	limit, hasBudget := r.budgets[strings.ToLower(tx.Category)]
	if tx.Type == ledger.TypeIncome || (hasBudget && tx.Type == ledger.TypeExpense) {
		if rows, err = r.store.ReadAll(ctx); err != nil {
			return "", storeErr(err)
		}
	}

	row, err := r.store.Append(ctx, tx.Row(now, msg.Source))
	if err != nil {
		return "", storeErr(err)
	}

	label := "logging " + tx.Description + " " + money.Format(tx.Amount)
	if err := r.undo.Record(ctx, msg.Channel, undo.Add{RowID: row.ID, Label: label}); err != nil {
		r.logger.Warn("Failed to record undo", zap.String("channel", msg.Channel), zap.Error(err))
	}

	r.logger.Info("Transaction logged",
		zap.String("channel", msg.Channel),
		zap.String("person", string(tx.Person)),
		zap.String("type", string(tx.Type)),
		zap.String("category", tx.Category),
		zap.Int64("amount", tx.Amount),
		zap.Bool("backdated", tx.IsBackdated))

	lines := []string{transactionHeadline(tx)}
	if tx.Bill != nil {
		if note := fixedBillNote(tx.Amount, *tx.Bill); note != "" {
			lines = append(lines, note)
		}
	}
	if tx.IsBackdated {
		lines = append(lines, backdateNote(tx.Year, tx.Month))
	}
	if tx.Type == ledger.TypeIncome {
		if prev, dup := r.incomeDup.Find(rows, row.Date, tx.Amount, tx.Description); dup {
			lines = append(lines, duplicateIncomeNote(prev))
		}
	}
	if hasBudget && tx.Type == ledger.TypeExpense {
		spent := categorySpend(rows, tx.Category, tx.Year, tx.Month) + tx.Amount
		if note := budgetNote(tx.Category, spent, limit); note != "" {
			lines = append(lines, note)
		}
	}
	if tx.IsLoan {
		lines = append(lines, "💸 Added to `debts`. Use `paid <n>` when it comes back.")
	}

	pool := expenseFlavor
	if tx.Type == ledger.TypeIncome {
		pool = incomeFlavor
	}
	if flavor := r.picker.Pick(pool); flavor != "" {
		lines = append(lines, flavor)
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Router) handleUndo(ctx context.Context, msg Message, _ string) (string, error) {
	a, err := r.undo.Consume(ctx, msg.Channel)
	if r.metrics != nil && a != nil {
		r.metrics.RecordUndo(string(a.Kind()), err == nil)
	}
	if err != nil {
		return "", err
	}
	return "↩️ Undid " + a.Summary(), nil
}

func (r *Router) handleHelp(context.Context, Message, string) (string, error) {
	return helpText, nil
}

func categorySpend(rows []ledger.Row, category string, year int, month time.Month) int64 {
	var sum int64
	for _, row := range rows {
		if row.Type == ledger.TypeExpense && row.Category == category && row.InMonth(year, month) {
			sum += row.Amount
		}
	}
	return sum
}

// storeErr classifies a raw store failure; typed errors pass through
func storeErr(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.From(apperrors.ErrStoreUnavailable, err)
	}
	return apperrors.From(apperrors.ErrStoreFailed, err)
}
