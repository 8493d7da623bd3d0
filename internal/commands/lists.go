package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/money"
	"github.com/gmsas95/ledgerbot/internal/parser"
	"github.com/gmsas95/ledgerbot/internal/textnorm"
	"github.com/gmsas95/ledgerbot/internal/undo"
	"go.uber.org/zap"
)

const (
	defaultListSize = 10
	maxListSize     = 100
)

// listFilter is a parsed "list" argument set
type listFilter struct {
	rowType  ledger.RowType
	hasMonth bool
	year     int
	month    time.Month
	person   ledger.Person
	category string
	text     string
	limit    int
}

func (f listFilter) match(r ledger.Row) bool {
	if r.Type != ledger.TypeIncome && r.Type != ledger.TypeExpense {
		return false
	}
	if f.rowType != "" && r.Type != f.rowType {
		return false
	}
	if f.hasMonth && !r.InMonth(f.year, f.month) {
		return false
	}
	if f.person != "" && r.Person != f.person {
		return false
	}
	if f.category != "" && r.Category != f.category {
		return false
	}
	if f.text != "" && !strings.Contains(textnorm.Fold(r.Description), f.text) {
		return false
	}
	return true
}

func (f listFilter) title(n int) string {
	var parts []string
	if f.rowType != "" {
		parts = append(parts, strings.ToLower(string(f.rowType)))
	}
	if f.category != "" {
		parts = append(parts, f.category)
	}
	if f.person != "" {
		parts = append(parts, string(f.person))
	}
	if f.text != "" {
		parts = append(parts, "“"+f.text+"”")
	}
	if f.hasMonth {
		parts = append(parts, monthLabel(f.year, f.month))
	}
	title := fmt.Sprintf("📋 *Last %d entries*", n)
	if len(parts) > 0 {
		title += " · " + strings.Join(parts, " · ")
	}
	return title
}

func (r *Router) parseListFilter(args string) listFilter {
	f := listFilter{limit: defaultListSize}
	var rest []string

	for _, tok := range strings.Fields(args) {
		switch tok {
		case "income", "thu", "수입":
			f.rowType = ledger.TypeIncome
			continue
		case "expense", "expenses", "chi", "지출":
			f.rowType = ledger.TypeExpense
			continue
		}
		if isNumber(tok) {
			if n, _ := strconv.Atoi(tok); n > 0 {
				f.limit = min(n, maxListSize)
			}
			continue
		}
		if !f.hasMonth {
			if y, m, ok := parser.ParseMonthToken(tok, r.now()); ok {
				f.hasMonth, f.year, f.month = true, y, m
				continue
			}
		}
		if p, ok := ledger.ParsePerson(tok); ok {
			f.person = p
			continue
		}
		rest = append(rest, tok)
	}

	if len(rest) > 0 {
		phrase := strings.Join(rest, " ")
		if name, ok := r.classifier.Current().Lookup(phrase); ok {
			f.category = name
		} else {
			f.text = phrase
		}
	}
	return f
}

func (r *Router) handleList(ctx context.Context, msg Message, args string) (string, error) {
	return r.showList(ctx, msg, r.parseListFilter(args))
}

func (r *Router) handleLast(ctx context.Context, msg Message, args string) (string, error) {
	f := listFilter{limit: defaultListSize}
	if n, err := strconv.Atoi(args); err == nil && n > 0 {
		f.limit = min(n, maxListSize)
	}
	return r.showList(ctx, msg, f)
}

// showList renders matching rows newest first and caches their IDs
func (r *Router) showList(ctx context.Context, msg Message, f listFilter) (string, error) {
	rows, err := r.store.ReadAll(ctx)
	if err != nil {
		return "", storeErr(err)
	}

	var picked []ledger.Row
	for i := len(rows) - 1; i >= 0 && len(picked) < f.limit; i-- {
		if f.match(rows[i]) {
			picked = append(picked, rows[i])
		}
	}

	if err := r.cacheList(ctx, msg.Channel, ListTransactions, picked); err != nil {
		return "", err
	}
	if len(picked) == 0 {
		return "📋 No matching entries.", nil
	}

	lines := []string{f.title(len(picked))}
	for i, row := range picked {
		lines = append(lines, rowLine(i+1, row))
	}
	lines = append(lines, "_`delete 2` · `edit 1 150k` · `undo`_")
	return strings.Join(lines, "\n"), nil
}

func (r *Router) handleDebts(ctx context.Context, msg Message, _ string) (string, error) {
	rows, err := r.store.ReadAll(ctx)
	if err != nil {
		return "", storeErr(err)
	}
	loans := ledger.OutstandingLoans(rows)
	if err := r.cacheList(ctx, msg.Channel, ListDebts, loans); err != nil {
		return "", err
	}
	if len(loans) == 0 {
		return "🎉 No outstanding loans!", nil
	}

	var total int64
	lines := []string{"💸 *Outstanding loans:*"}
	for i, l := range loans {
		total += l.Amount
		lines = append(lines, rowLine(i+1, l))
	}
	lines = append(lines, fmt.Sprintf("*Total: %s*", money.Format(total)), "_`paid 1` when it comes back_")
	return strings.Join(lines, "\n"), nil
}

func (r *Router) cacheList(ctx context.Context, channel string, kind ListKind, rows []ledger.Row) error {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if err := r.lists.Put(ctx, channel, ListResult{Kind: kind, IDs: ids}); err != nil {
		return apperrors.From(apperrors.ErrInternal, err)
	}
	return nil
}

// resolve maps targets to cached rows, re-read from the store. Positions
// whose row has vanished are reported in missing.
func (r *Router) resolve(ctx context.Context, channel, spec string) (rows []ledger.Row, positions []int, missing []int, err error) {
	targets, err := ParseTargets(spec)
	if err != nil {
		return nil, nil, nil, err
	}
	list, ok, err := r.lists.Get(ctx, channel)
	if err != nil {
		return nil, nil, nil, apperrors.From(apperrors.ErrInternal, err)
	}
	if !ok {
		return nil, nil, nil, apperrors.ErrNoList
	}
	pos, err := targets.Resolve(len(list.IDs))
	if err != nil {
		return nil, nil, nil, err
	}

	all, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, nil, nil, storeErr(err)
	}
	byID := make(map[string]ledger.Row, len(all))
	for _, row := range all {
		byID[row.ID] = row
	}

	for _, p := range pos {
		row, found := byID[list.IDs[p-1]]
		if !found {
			missing = append(missing, p)
			continue
		}
		rows = append(rows, row)
		positions = append(positions, p)
	}
	return rows, positions, missing, nil
}

func (r *Router) handleDelete(ctx context.Context, msg Message, args string) (string, error) {
	rows, _, missing, err := r.resolve(ctx, msg.Channel, args)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", apperrors.ErrRowNotFound
	}

	// Highest physical position first keeps the remaining positions valid
	// for stores that address rows by position.
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index > rows[j].Index })

	var deleted []ledger.Row
	var delErr error
	for _, row := range rows {
		if delErr = r.store.Delete(ctx, row.ID); delErr != nil {
			break
		}
		deleted = append(deleted, row)
	}

	if len(deleted) > 0 {
		if err := r.undo.Record(ctx, msg.Channel, undo.Delete{Rows: deleted}); err != nil {
			r.logger.Warn("Failed to record undo", zap.String("channel", msg.Channel), zap.Error(err))
		}
	}
	if delErr != nil {
		if len(deleted) == 0 {
			return "", storeErr(delErr)
		}
		r.logger.Error("Delete stopped part way",
			zap.String("channel", msg.Channel),
			zap.Int("deleted", len(deleted)),
			zap.Error(delErr))
	}

	lines := []string{fmt.Sprintf("🗑️ Deleted %d %s:", len(deleted), plural(len(deleted), "entry", "entries"))}
	for _, row := range deleted {
		lines = append(lines, fmt.Sprintf("• %s %s (%s)", row.Description, money.Format(row.Amount), row.Person))
	}
	if delErr != nil {
		lines = append(lines, fmt.Sprintf("⚠️ Stopped after %d: the ledger call failed.", len(deleted)))
	}
	if len(missing) > 0 {
		lines = append(lines, fmt.Sprintf("ℹ️ Already gone: %s", joinPositions(missing)))
	}
	lines = append(lines, "_Type `undo` to restore_")
	return strings.Join(lines, "\n"), nil
}

func (r *Router) handleEdit(ctx context.Context, msg Message, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", apperrors.ErrInvalidAmount
	}
	amount, ok := money.ParseAmount(fields[len(fields)-1])
	if !ok || amount <= 0 {
		return "", apperrors.From(apperrors.ErrInvalidAmount, fmt.Errorf("%q", fields[len(fields)-1]))
	}
	spec := strings.Join(fields[:len(fields)-1], " ")

	rows, positions, _, err := r.resolve(ctx, msg.Channel, spec)
	if err != nil {
		return "", err
	}
	if len(positions) != 1 {
		if len(rows) == 0 {
			return "", apperrors.ErrRowNotFound
		}
		return "", apperrors.From(apperrors.ErrInvalidTarget, fmt.Errorf("edit takes one entry"))
	}
	row := rows[0]

	if err := r.store.UpdateCell(ctx, row.ID, ledger.ColAmount, amount); err != nil {
		return "", storeErr(err)
	}
	label := fmt.Sprintf("edit of %s (back to %s)", row.Description, money.Format(row.Amount))
	if err := r.undo.Record(ctx, msg.Channel, undo.Edit{RowID: row.ID, OldAmount: row.Amount, Label: label}); err != nil {
		r.logger.Warn("Failed to record undo", zap.String("channel", msg.Channel), zap.Error(err))
	}

	return fmt.Sprintf("✏️ Updated #%d %s: %s → %s", positions[0], row.Description,
		money.Format(row.Amount), money.Format(amount)), nil
}

func (r *Router) handlePaid(ctx context.Context, msg Message, args string) (string, error) {
	rows, positions, missing, err := r.resolve(ctx, msg.Channel, args)
	if err != nil {
		return "", err
	}
	if len(missing) > 0 {
		return "", apperrors.From(apperrors.ErrNotOutstanding, fmt.Errorf("#%d", missing[0]))
	}
	for i, row := range rows {
		if !row.IsOutstandingLoan() {
			return "", apperrors.From(apperrors.ErrNotOutstanding, fmt.Errorf("#%d", positions[i]))
		}
	}

	now := r.now()
	var (
		entries  []undo.PaidEntry
		lines    []string
		total    int64
		payErr   error
		stranded string
	)
	for _, loan := range rows {
		if payErr = r.store.UpdateCell(ctx, loan.ID, ledger.ColDescription, ledger.PaidMarker+" "+loan.Description); payErr != nil {
			break
		}
		entry := undo.PaidEntry{LoanID: loan.ID, OldDescription: loan.Description}

		repayment, err := r.store.Append(ctx, ledger.Row{
			Date:        now,
			Type:        ledger.TypeIncome,
			Category:    ledger.CategoryLoan,
			Amount:      loan.Amount,
			Description: "Repayment: " + loan.Description,
			Person:      loan.Person,
			MonthStart:  ledger.MonthStart(now),
			Source:      msg.Source,
		})
		if err != nil {
			payErr = err
			// put the description back so the loan stays listed under debts
			if rerr := r.store.UpdateCell(ctx, loan.ID, ledger.ColDescription, loan.Description); rerr != nil {
				r.logger.Error("Failed to restore loan after repayment error",
					zap.String("loan_id", loan.ID), zap.Error(rerr))
				entries = append(entries, entry)
				stranded = loan.Description
			}
			break
		}
		entry.RepaymentID = repayment.ID
		entries = append(entries, entry)
		total += loan.Amount
		lines = append(lines, fmt.Sprintf("• %s %s", loan.Description, money.Format(loan.Amount)))
	}

	if len(entries) > 0 {
		if err := r.undo.Record(ctx, msg.Channel, undo.Paid{Entries: entries}); err != nil {
			r.logger.Warn("Failed to record undo", zap.String("channel", msg.Channel), zap.Error(err))
		}
	}
	strandedNote := fmt.Sprintf("⚠️ %s is marked paid but its repayment was not logged. Type `undo` to restore it.", stranded)
	if payErr != nil && len(lines) == 0 {
		if stranded == "" {
			return "", storeErr(payErr)
		}
		return strandedNote, nil
	}

	out := append([]string{"✅ Marked paid:"}, lines...)
	out = append(out, fmt.Sprintf("💰 Logged %s repayment as income", money.Format(total)))
	if payErr != nil {
		out = append(out, "⚠️ Stopped part way: the ledger call failed. Type `undo` to roll back.")
		if stranded != "" {
			out = append(out, strandedNote)
		}
	}
	return strings.Join(out, "\n"), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func joinPositions(ps []int) string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = "#" + strconv.Itoa(p)
	}
	return strings.Join(out, ", ")
}
