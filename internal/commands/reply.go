package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gmsas95/ledgerbot/internal/bills"
	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/money"
	"github.com/gmsas95/ledgerbot/internal/parser"
)

// Reply is what a channel adapter posts back. Silent replies are not posted.
type Reply struct {
	Text   string
	Silent bool
}

func silent() Reply { return Reply{Silent: true} }

var (
	expenseFlavor = []string{"Got it 👍", "Noted 📝", "All set ✨", "Tracked 🧾", ""}
	incomeFlavor  = []string{"Nice work 💪", "Money in 🎉", "Cha-ching 💸", "Great month ahead 🚀"}
	fundFlavor    = []string{"Future you says thanks 🙏", "Slowly but surely 🐢", "Building that cushion 🛋️"}
)

// transactionHeadline is the first reply line for a logged transaction
func transactionHeadline(tx parser.Transaction) string {
	if tx.Bill != nil {
		return fmt.Sprintf("✅ Logged: %s %s", tx.Category, money.Format(tx.Amount))
	}
	line := fmt.Sprintf("✅ Logged: %s - %s - %s - %s", tx.Type, tx.Person, money.Format(tx.Amount), tx.Description)
	if tx.Category != "" && !strings.EqualFold(tx.Category, tx.Description) {
		line += fmt.Sprintf(" (%s)", tx.Category)
	}
	return line
}

// fixedBillNote compares an amount against the bill's default
func fixedBillNote(amount int64, bill bills.Bill) string {
	def := bill.DefaultAmount
	if def <= 0 {
		return ""
	}
	ratio := float64(amount) / float64(def)
	diff := amount - def
	category := strings.ToLower(bill.Category)

	switch {
	case ratio > 2:
		note := fmt.Sprintf("📊 Note: Usually %s - this is %.0fx higher!\n", money.Format(def), ratio)
		switch {
		case strings.Contains(category, "gas"):
			note += "🔥 Winter heating? (Default unchanged)"
		case strings.Contains(category, "electric"):
			note += "❄️ AC or heating? (Default unchanged)"
		case strings.Contains(category, "groceries"):
			note += "🛒 Big shopping trip? (Default unchanged)"
		default:
			note += "(Default unchanged for future months)"
		}
		return note
	case ratio > 1.2:
		return fmt.Sprintf("📊 Note: %s more than usual (%s)", money.Format(diff), money.Format(def))
	case ratio < 0.5:
		return fmt.Sprintf("📊 Note: Usually %s - nice savings! 🎉", money.Format(def))
	case ratio < 0.8:
		return fmt.Sprintf("📊 Note: %s less than usual (%s)", money.Format(-diff), money.Format(def))
	}
	return ""
}

// budgetNote warns once spending reaches 80% of a category budget
func budgetNote(category string, spent, limit int64) string {
	if limit <= 0 {
		return ""
	}
	pct := float64(spent) / float64(limit) * 100
	switch {
	case spent > limit:
		return fmt.Sprintf("🚨 Over budget: %s %s of %s (%.0f%%)", category, money.Format(spent), money.Format(limit), pct)
	case pct >= 80:
		return fmt.Sprintf("⚠️ %s budget: %s of %s used (%.0f%%)", category, money.Format(spent), money.Format(limit), pct)
	}
	return ""
}

var milestones = []int64{100, 75, 50, 25}

// milestoneNote reports the highest progress milestone crossed by a balance change
func milestoneNote(fund string, before, after, target int64) string {
	if target <= 0 || after <= before {
		return ""
	}
	for _, pct := range milestones {
		mark := target * pct / 100
		if before < mark && after >= mark {
			if pct == 100 {
				return fmt.Sprintf("🏆 %s reached its %s target!", fund, money.Format(target))
			}
			return fmt.Sprintf("🎯 %s passed %d%% of %s!", fund, pct, money.Format(target))
		}
	}
	return ""
}

func backdateNote(year int, month time.Month) string {
	return fmt.Sprintf("📅 Logged for %s %d", month, year)
}

func duplicateIncomeNote(prev ledger.Row) string {
	return fmt.Sprintf("⚠️ Possible duplicate: %s %s (%s) was already logged today. Type `undo` if this was a mistake.",
		prev.Description, money.Format(prev.Amount), prev.Person)
}

func monthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month, year)
}

// rowLine renders one list entry
func rowLine(pos int, r ledger.Row) string {
	desc := r.Description
	if r.Category != "" && !strings.EqualFold(r.Category, r.Description) {
		desc += " (" + r.Category + ")"
	}
	icon := ""
	if r.Type == ledger.TypeIncome {
		icon = "💰 "
	}
	return fmt.Sprintf("%d. %s · %s%s · %s · %s", pos, r.Date.Format("01-02"), icon, desc, money.Format(r.Amount), r.Person)
}

// errorReply converts a handler error into user text; ok is false for errors
// that must stay silent.
func errorReply(err error) (string, bool) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return "❌ Something went wrong. Nothing was changed.", true
	}

	switch appErr.Code {
	case apperrors.ErrNotTransaction.Code:
		return "", false
	case apperrors.ErrInvalidAmount.Code:
		return "❌ Invalid amount. Try something like `edit 1 150k`.", true
	case apperrors.ErrInvalidTarget.Code:
		return "❌ I couldn't read those numbers. Try `delete 2`, `delete 1,3` or `delete 2-4`.", true
	case apperrors.ErrNoList.Code:
		return "📋 Use `list` first, then refer to entries by number.", true
	case apperrors.ErrOutOfRange.Code:
		return fmt.Sprintf("📋 %s isn't in the last list. Use `list` first.", causeText(appErr)), true
	case apperrors.ErrNotOutstanding.Code:
		return fmt.Sprintf("❌ %s is not an outstanding loan. Use `debts` to see open loans.", causeText(appErr)), true
	case apperrors.ErrRowNotFound.Code:
		return "❌ That entry no longer exists in the ledger. Use `list` again.", true
	case apperrors.ErrStoreUnavailable.Code:
		return "❌ Cannot connect to the ledger. Please try again in a moment.", true
	case apperrors.ErrStoreFailed.Code:
		return "❌ The ledger call failed. Please check the sheet and retry.", true
	case apperrors.ErrNothingToUndo.Code:
		return "🤷 Nothing to undo.", true
	case apperrors.ErrUndoExpired.Code:
		return "⌛ Too late to undo, the undo window has expired.", true
	case apperrors.ErrUndoFailed.Code:
		return fmt.Sprintf("⚠️ Undo failed: %s. Please check the sheet.", causeText(appErr)), true
	}
	return "❌ " + appErr.Message, true
}

func causeText(e *apperrors.AppError) string {
	if e.Cause == nil {
		return "That entry"
	}
	return e.Cause.Error()
}

const helpText = `🤖 *Finance Bot Commands:*

*Log Income/Expense:*
• ` + "`jacob 2.8M salary`" + ` - Log Jacob's income
• ` + "`naomi 5M commission`" + ` - Log Naomi's income
• ` + "`joint 500K groceries`" + ` - Log joint expense
• ` + "`2.8M salary`" + ` - Log for yourself
• ` + "`dec 150K gas`" + ` - Log for a past month
• ` + "`lent minh 500K`" + ` - Log a loan

*Log Fixed Bills (with smart comparison):*
• ` + "`gas 150K`" + ` - Log gas bill
• ` + "`electricity 80K`" + ` - Log electricity

*Review & Fix:*
• ` + "`list`" + `, ` + "`list expense march`" + `, ` + "`last 5`" + ` - Recent entries
• ` + "`delete 2`" + `, ` + "`delete 1,3`" + `, ` + "`delete 2-4`" + ` - Remove entries from the last list
• ` + "`edit 1 150K`" + ` - Change an amount
• ` + "`debts`" + ` then ` + "`paid 1`" + ` - Settle a loan
• ` + "`undo`" + ` - Reverse the last change

*Funds:*
• ` + "`fund 500K`" + `, ` + "`fund 200K travel`" + ` - Add to a fund
• ` + "`fund set travel 1.2M`" + ` - Set a fund balance
• ` + "`fund calc`" + ` then ` + "`fund apply`" + ` - Split this month's surplus

*Check Status:*
• ` + "`status`" + ` - See fund balances & monthly summary
• ` + "`bills`" + ` - See all fixed bills

*Amount formats:*
• ` + "`2.8M`" + ` = ₩2,800,000
• ` + "`500K`" + ` = ₩500,000
• ` + "`15,5K`" + ` = ₩15,500
• ` + "`2800000`" + ` = ₩2,800,000`
