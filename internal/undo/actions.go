// Package undo records the last ledger mutation per channel and reverses it.
package undo

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
)

// Kind names a reversal strategy
type Kind string

const (
	KindAdd        Kind = "add"
	KindDelete     Kind = "delete"
	KindEdit       Kind = "edit"
	KindPaid       Kind = "paid"
	KindFundUpdate Kind = "fund_update"
	KindFundApply  Kind = "fund_apply"
)

// TTL is how long an action of kind stays undoable
func (k Kind) TTL() time.Duration {
	switch k {
	case KindDelete, KindPaid, KindFundApply:
		return 10 * time.Minute
	default:
		return 5 * time.Minute
	}
}

// Action is a recorded mutation. The set of implementations is closed.
type Action interface {
	Kind() Kind
	// Summary is the user-facing description of what was done
	Summary() string
	// Revert undoes the mutation against store. When the store becomes
	// unreachable part way, the returned action holds only the steps not yet
	// applied; otherwise it is nil.
	Revert(ctx context.Context, store ledger.Store) (Action, error)
	sealed()
}

func unreachable(err error) bool {
	return errors.Is(err, apperrors.ErrStoreUnavailable)
}

// single reverts a one-call action; it stays whole when the store is down
func single(a Action, err error) (Action, error) {
	if unreachable(err) {
		return a, err
	}
	return nil, err
}

// Add reverses an appended transaction row
type Add struct {
	RowID string `json:"row_id"`
	Label string `json:"label"`
}

func (Add) Kind() Kind        { return KindAdd }
func (a Add) Summary() string { return a.Label }
func (Add) sealed()           {}

func (a Add) Revert(ctx context.Context, store ledger.Store) (Action, error) {
	return single(a, store.Delete(ctx, a.RowID))
}

// Delete restores deleted rows. They are re-appended with their original IDs.
type Delete struct {
	Rows []ledger.Row `json:"rows"`
}

func (Delete) Kind() Kind { return KindDelete }
func (Delete) sealed()    {}

func (d Delete) Summary() string {
	if len(d.Rows) == 1 {
		return "delete of " + d.Rows[0].Description
	}
	return fmt.Sprintf("delete of %d entries", len(d.Rows))
}

func (d Delete) Revert(ctx context.Context, store ledger.Store) (Action, error) {
	for i, r := range d.Rows {
		if _, err := store.Append(ctx, r); err != nil {
			if unreachable(err) {
				return Delete{Rows: d.Rows[i:]}, err
			}
			return nil, err
		}
	}
	return nil, nil
}

// Edit restores a previous amount
type Edit struct {
	RowID     string `json:"row_id"`
	OldAmount int64  `json:"old_amount"`
	Label     string `json:"label"`
}

func (Edit) Kind() Kind        { return KindEdit }
func (e Edit) Summary() string { return e.Label }
func (Edit) sealed()           {}

func (e Edit) Revert(ctx context.Context, store ledger.Store) (Action, error) {
	return single(e, store.UpdateCell(ctx, e.RowID, ledger.ColAmount, e.OldAmount))
}

// PaidEntry is one loan settled by a paid command
type PaidEntry struct {
	LoanID         string `json:"loan_id"`
	OldDescription string `json:"old_description"`
	RepaymentID    string `json:"repayment_id"`
	// Restored is set once the loan description is back and only the
	// repayment row remains to be removed
	Restored bool `json:"restored,omitempty"`
}

// Paid reverses a batch of loan settlements
type Paid struct {
	Entries []PaidEntry `json:"entries"`
}

func (Paid) Kind() Kind { return KindPaid }
func (Paid) sealed()    {}

func (p Paid) Summary() string {
	if len(p.Entries) == 1 {
		return "paid mark on " + p.Entries[0].OldDescription
	}
	return fmt.Sprintf("paid mark on %d loans", len(p.Entries))
}

func (p Paid) Revert(ctx context.Context, store ledger.Store) (Action, error) {
	var errs []error
	for i, e := range p.Entries {
		if !e.Restored {
			if err := store.UpdateCell(ctx, e.LoanID, ledger.ColDescription, e.OldDescription); err != nil {
				if unreachable(err) {
					return Paid{Entries: p.Entries[i:]}, errors.Join(append(errs, err)...)
				}
				errs = append(errs, err)
				continue
			}
			e.Restored = true
		}
		if e.RepaymentID != "" {
			if err := store.Delete(ctx, e.RepaymentID); err != nil {
				if unreachable(err) {
					rest := append([]PaidEntry{e}, p.Entries[i+1:]...)
					return Paid{Entries: rest}, errors.Join(append(errs, err)...)
				}
				errs = append(errs, err)
			}
		}
	}
	return nil, errors.Join(errs...)
}

// FundUpdate reverses a quick fund add or a fund set. A created row is
// deleted; an overwritten balance gets its old amount back.
type FundUpdate struct {
	RowID     string `json:"row_id"`
	Created   bool   `json:"created"`
	OldAmount int64  `json:"old_amount"`
	Fund      string `json:"fund"`
}

func (FundUpdate) Kind() Kind        { return KindFundUpdate }
func (f FundUpdate) Summary() string { return "update of " + f.Fund }
func (FundUpdate) sealed()           {}

func (f FundUpdate) Revert(ctx context.Context, store ledger.Store) (Action, error) {
	if f.Created {
		return single(f, store.Delete(ctx, f.RowID))
	}
	return single(f, store.UpdateCell(ctx, f.RowID, ledger.ColAmount, f.OldAmount))
}

// FundApply deletes every row a fund allocation created
type FundApply struct {
	RowIDs []string `json:"row_ids"`
}

func (FundApply) Kind() Kind { return KindFundApply }
func (FundApply) sealed()    {}

func (f FundApply) Summary() string {
	return fmt.Sprintf("fund allocation (%d funds)", len(f.RowIDs))
}

func (f FundApply) Revert(ctx context.Context, store ledger.Store) (Action, error) {
	var errs []error
	for i, id := range f.RowIDs {
		if err := store.Delete(ctx, id); err != nil {
			if unreachable(err) {
				return FundApply{RowIDs: f.RowIDs[i:]}, errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
		}
	}
	return nil, errors.Join(errs...)
}
