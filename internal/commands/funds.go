package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gmsas95/ledgerbot/internal/bills"
	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/money"
	"github.com/gmsas95/ledgerbot/internal/parser"
	"github.com/gmsas95/ledgerbot/internal/textnorm"
	"github.com/gmsas95/ledgerbot/internal/undo"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (r *Router) handleStatus(ctx context.Context, _ Message, args string) (string, error) {
	now := r.now()
	year, month := now.Year(), now.Month()
	if args != "" {
		if y, m, ok := parser.ParseMonthToken(args, now); ok {
			year, month = y, m
		}
	}

	rows, err := r.store.ReadAll(ctx)
	if err != nil {
		return "", storeErr(err)
	}
	sum := ledger.Summarize(rows, year, month)
	fixed := bills.Total(r.activeBills(ctx), true)

	var b strings.Builder
	b.WriteString("📊 *Status Update*\n\n")
	fmt.Fprintf(&b, "*%s:*\n", monthLabel(year, month))
	fmt.Fprintf(&b, "• Income: %s%s\n", money.Format(sum.TotalIncome), breakdown(sum.Income))
	fmt.Fprintf(&b, "• Expenses: %s%s\n", money.Format(sum.TotalExpenses), breakdown(sum.Expenses))
	fmt.Fprintf(&b, "• Fixed Bills (default): %s\n", money.Format(fixed))
	fmt.Fprintf(&b, "• Net: %s\n", money.Format(sum.Net()))

	funds := ledger.FundBalances(rows)
	if len(funds) > 0 {
		b.WriteString("\n*Fund Balances:*\n")
		for _, f := range funds {
			fmt.Fprintf(&b, "• %s: %s\n", f.Name, money.Format(f.Amount))
		}
	}
	if target := r.funds.EmergencyTarget; target > 0 {
		if bal := ledger.FundBalanceOf(rows, r.funds.Emergency); bal > 0 {
			progress := float64(bal) / float64(target) * 100
			fmt.Fprintf(&b, "\n🎯 %s: %.1f%% → %s", r.funds.Emergency, progress, money.FormatFull(target))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// breakdown renders per-member amounts, omitting zeros
func breakdown(by map[ledger.Person]int64) string {
	var parts []string
	for _, p := range ledger.Members {
		if v := by[p]; v != 0 {
			parts = append(parts, fmt.Sprintf("%s %s", p, money.Format(v)))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, " · ") + ")"
}

func (r *Router) handleBills(ctx context.Context, _ Message, _ string) (string, error) {
	bs, err := r.bills.ActiveBills(ctx)
	if err != nil {
		return "", storeErr(err)
	}
	if len(bs) == 0 {
		return "📋 No active fixed bills.", nil
	}

	seen := make(map[string]bool)
	var unique []bills.Bill
	for _, bill := range bs {
		if !seen[bill.Category] {
			seen[bill.Category] = true
			unique = append(unique, bill)
		}
	}

	var b strings.Builder
	b.WriteString("📋 *Fixed Bills (Active):*\n\n")
	groups := bills.ByOwner(unique)
	for _, owner := range ledger.Members {
		group := groups[owner]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "*%s:*\n", owner)
		for _, bill := range group {
			fmt.Fprintf(&b, "• %s: %s\n", bill.Category, money.Format(bill.DefaultAmount))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "*Total: %s*", money.Format(bills.Total(unique, false)))
	return b.String(), nil
}

func (r *Router) handleFundCalc(ctx context.Context, msg Message, _ string) (string, error) {
	if len(r.funds.Shares) == 0 {
		return "🧮 No fund shares configured.", nil
	}
	now := r.now()
	rows, err := r.store.ReadAll(ctx)
	if err != nil {
		return "", storeErr(err)
	}
	net := ledger.Summarize(rows, now.Year(), now.Month()).Net()
	label := monthLabel(now.Year(), now.Month())

	if net <= 0 {
		_ = r.proposals.Delete(ctx, msg.Channel)
		return fmt.Sprintf("📉 No surplus to allocate for %s (net %s).", label, money.Format(net)), nil
	}

	p := Allocate(net, r.funds.Shares)
	p.Year, p.Month = now.Year(), now.Month()
	if err := r.proposals.Put(ctx, msg.Channel, p); err != nil {
		return "", apperrors.From(apperrors.ErrInternal, err)
	}

	lines := []string{
		fmt.Sprintf("🧮 *Fund Calculator: %s*", label),
		fmt.Sprintf("Net surplus: %s", money.Format(net)),
		"",
	}
	for _, a := range p.Allocations {
		lines = append(lines, fmt.Sprintf("• %s (%d%%): %s", a.Fund, a.Percent, money.Format(a.Amount)))
	}
	lines = append(lines, "", "_Type `fund apply` to log these allocations._")
	return strings.Join(lines, "\n"), nil
}

// Allocate splits net by percentage. Rounding leftovers go to the first fund
// so that shares summing to 100 allocate exactly net.
func Allocate(net int64, shares []FundShare) FundProposal {
	p := FundProposal{Net: net}
	var pct, allocated int64
	for _, s := range shares {
		amt := net * int64(s.Percent) / 100
		pct += int64(s.Percent)
		allocated += amt
		p.Allocations = append(p.Allocations, Allocation{Fund: s.Name, Percent: s.Percent, Amount: amt})
	}
	if len(p.Allocations) > 0 {
		p.Allocations[0].Amount += net*pct/100 - allocated
	}
	return p
}

func (r *Router) handleFundApply(ctx context.Context, msg Message, _ string) (string, error) {
	p, ok, err := r.proposals.Get(ctx, msg.Channel)
	if err != nil {
		return "", apperrors.From(apperrors.ErrInternal, err)
	}
	if !ok {
		return "🧮 Run `fund calc` first.", nil
	}

	rows, err := r.store.ReadAll(ctx)
	if err != nil {
		return "", storeErr(err)
	}
	emergencyBefore := ledger.FundBalanceOf(rows, r.funds.Emergency)

	now := r.now()
	var (
		created  []string
		lines    []string
		applyErr error
	)
	for _, a := range p.Allocations {
		if a.Amount <= 0 {
			continue
		}
		row, err := r.store.Append(ctx, ledger.Row{
			Date:        now,
			Type:        ledger.TypeFundAdd,
			Category:    a.Fund,
			Amount:      a.Amount,
			Description: "Allocation for " + monthLabel(p.Year, p.Month),
			Person:      ledger.PersonJoint,
			MonthStart:  time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, now.Location()),
			Source:      msg.Source,
		})
		if err != nil {
			applyErr = err
			break
		}
		created = append(created, row.ID)
		lines = append(lines, fmt.Sprintf("• %s +%s → %s", a.Fund, money.Format(a.Amount),
			money.Format(ledger.FundBalanceOf(rows, a.Fund)+a.Amount)))
	}

	if len(created) > 0 {
		if err := r.undo.Record(ctx, msg.Channel, undo.FundApply{RowIDs: created}); err != nil {
			r.logger.Warn("Failed to record undo", zap.String("channel", msg.Channel), zap.Error(err))
		}
	}
	if applyErr != nil && len(created) == 0 {
		return "", storeErr(applyErr)
	}
	_ = r.proposals.Delete(ctx, msg.Channel)

	out := append([]string{"✅ Applied fund allocation:"}, lines...)
	if applyErr != nil {
		out = append(out, "⚠️ Stopped part way: the ledger call failed. Type `undo` to roll back.")
	}
	for _, a := range p.Allocations {
		if a.Fund == r.funds.Emergency && len(created) > 0 {
			if note := milestoneNote(a.Fund, emergencyBefore, emergencyBefore+a.Amount, r.funds.EmergencyTarget); note != "" {
				out = append(out, note)
			}
		}
	}
	if flavor := r.picker.Pick(fundFlavor); flavor != "" {
		out = append(out, flavor)
	}
	return strings.Join(out, "\n"), nil
}

// handleFundAdd handles "fund <amount> [name]"
func (r *Router) handleFundAdd(ctx context.Context, msg Message, args string) (string, error) {
	fields := strings.Fields(args)
	amount, ok := money.ParseAmount(fields[0])
	if !ok || amount <= 0 {
		return "", apperrors.ErrInvalidAmount
	}

	rows, err := r.store.ReadAll(ctx)
	if err != nil {
		return "", storeErr(err)
	}
	fund := r.fundName(strings.Join(fields[1:], " "), rows)
	before := ledger.FundBalanceOf(rows, fund)

	now := r.now()
	row, err := r.store.Append(ctx, ledger.Row{
		Date:        now,
		Type:        ledger.TypeFundAdd,
		Category:    fund,
		Amount:      amount,
		Description: "Quick save",
		Person:      r.sender(msg),
		MonthStart:  ledger.MonthStart(now),
		Source:      msg.Source,
	})
	if err != nil {
		return "", storeErr(err)
	}
	if err := r.undo.Record(ctx, msg.Channel, undo.FundUpdate{RowID: row.ID, Created: true, Fund: fund}); err != nil {
		r.logger.Warn("Failed to record undo", zap.String("channel", msg.Channel), zap.Error(err))
	}

	lines := []string{fmt.Sprintf("🏦 Added %s to %s → %s", money.Format(amount), fund, money.Format(before+amount))}
	if fund == r.funds.Emergency {
		if note := milestoneNote(fund, before, before+amount, r.funds.EmergencyTarget); note != "" {
			lines = append(lines, note)
		}
	}
	if flavor := r.picker.Pick(fundFlavor); flavor != "" {
		lines = append(lines, flavor)
	}
	return strings.Join(lines, "\n"), nil
}

// handleFundSet handles "fund set <name> <amount>". The latest balance row is
// overwritten when no adds follow it; otherwise a new balance row is appended.
func (r *Router) handleFundSet(ctx context.Context, msg Message, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", apperrors.ErrInvalidAmount
	}
	amount, ok := money.ParseAmount(fields[len(fields)-1])
	if !ok || amount < 0 {
		return "", apperrors.From(apperrors.ErrInvalidAmount, fmt.Errorf("%q", fields[len(fields)-1]))
	}

	rows, err := r.store.ReadAll(ctx)
	if err != nil {
		return "", storeErr(err)
	}
	fund := r.fundName(strings.Join(fields[:len(fields)-1], " "), rows)
	before := ledger.FundBalanceOf(rows, fund)

	var action undo.FundUpdate
	if latest, ok := ledger.LatestFundBalanceRow(rows, fund); ok && !addsAfter(rows, latest, fund) {
		if err := r.store.UpdateCell(ctx, latest.ID, ledger.ColAmount, amount); err != nil {
			return "", storeErr(err)
		}
		action = undo.FundUpdate{RowID: latest.ID, OldAmount: latest.Amount, Fund: fund}
	} else {
		now := r.now()
		row, err := r.store.Append(ctx, ledger.Row{
			Date:        now,
			Type:        ledger.TypeFundBalance,
			Category:    fund,
			Amount:      amount,
			Description: "Balance set",
			Person:      ledger.PersonJoint,
			MonthStart:  ledger.MonthStart(now),
			Source:      msg.Source,
		})
		if err != nil {
			return "", storeErr(err)
		}
		action = undo.FundUpdate{RowID: row.ID, Created: true, Fund: fund}
	}
	if err := r.undo.Record(ctx, msg.Channel, action); err != nil {
		r.logger.Warn("Failed to record undo", zap.String("channel", msg.Channel), zap.Error(err))
	}

	lines := []string{fmt.Sprintf("🏦 %s set to %s (was %s)", fund, money.Format(amount), money.Format(before))}
	if fund == r.funds.Emergency {
		if note := milestoneNote(fund, before, amount, r.funds.EmergencyTarget); note != "" {
			lines = append(lines, note)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func addsAfter(rows []ledger.Row, balance ledger.Row, fund string) bool {
	after := false
	for _, row := range rows {
		if row.ID == balance.ID {
			after = true
			continue
		}
		if after && row.Type == ledger.TypeFundAdd && row.Category == fund {
			return true
		}
	}
	return false
}

// fundName resolves a typed fund name against configured and existing funds.
// Empty input is the default fund; unknown names are title-cased as given.
func (r *Router) fundName(typed string, rows []ledger.Row) string {
	typed = textnorm.Fold(typed)
	if typed == "" {
		return r.funds.Default
	}

	known := []string{r.funds.Default, r.funds.Emergency}
	for _, s := range r.funds.Shares {
		known = append(known, s.Name)
	}
	for _, f := range ledger.FundBalances(rows) {
		known = append(known, f.Name)
	}

	for _, name := range known {
		if textnorm.Fold(name) == typed {
			return name
		}
	}
	for _, name := range known {
		if strings.HasPrefix(textnorm.Fold(name), typed) {
			return name
		}
	}
	return cases.Title(language.Und).String(typed)
}
