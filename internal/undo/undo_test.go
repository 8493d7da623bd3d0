package undo

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T, rows ...ledger.Row) (*Manager, *ledger.MemoryStore, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := ledger.NewMemoryStore(rows...)
	return NewManager(state.NewMemory(), store, c.now, nil), store, c
}

func TestConsume_NothingToUndo(t *testing.T) {
	m, _, _ := setup(t)
	_, err := m.Consume(context.Background(), "C1")
	assert.ErrorIs(t, err, apperrors.ErrNothingToUndo)
}

func TestAdd_Revert(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setup(t)

	row, err := store.Append(ctx, ledger.Row{Type: ledger.TypeExpense, Amount: 150_000, Description: "Gas"})
	require.NoError(t, err)
	require.NoError(t, m.Record(ctx, "C1", Add{RowID: row.ID, Label: "Gas ₩150K"}))

	a, err := m.Consume(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, KindAdd, a.Kind())
	assert.Equal(t, 0, store.Len())

	_, err = m.Consume(ctx, "C1")
	assert.ErrorIs(t, err, apperrors.ErrNothingToUndo, "consumed actions are cleared")
}

func TestDelete_RevertRestoresRows(t *testing.T) {
	ctx := context.Background()
	var seed []ledger.Row
	for i := 1; i <= 10; i++ {
		seed = append(seed, ledger.Row{Type: ledger.TypeExpense, Amount: int64(i * 1000), Description: "item"})
	}
	m, store, _ := setup(t, seed...)

	before, err := store.ReadAll(ctx)
	require.NoError(t, err)

	removed := []ledger.Row{before[4], before[3], before[2]}
	for _, r := range removed {
		require.NoError(t, store.Delete(ctx, r.ID))
	}
	require.NoError(t, m.Record(ctx, "C1", Delete{Rows: removed}))
	assert.Equal(t, 7, store.Len())

	_, err = m.Consume(ctx, "C1")
	require.NoError(t, err)

	after, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(before), ids(after))
	assert.ElementsMatch(t, amounts(before), amounts(after))
}

func TestEdit_Revert(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setup(t, ledger.Row{ID: "r1", Amount: 100})

	require.NoError(t, store.UpdateCell(ctx, "r1", ledger.ColAmount, int64(900)))
	require.NoError(t, m.Record(ctx, "C1", Edit{RowID: "r1", OldAmount: 100}))

	_, err := m.Consume(ctx, "C1")
	require.NoError(t, err)

	rows, _ := store.ReadAll(ctx)
	assert.Equal(t, int64(100), rows[0].Amount)
}

func TestPaid_RevertBatch(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setup(t,
		ledger.Row{ID: "loan1", Type: ledger.TypeExpense, Category: ledger.CategoryLoan, Description: "lent minh"},
		ledger.Row{ID: "loan2", Type: ledger.TypeExpense, Category: ledger.CategoryLoan, Description: "lent tuan"},
	)

	var entries []PaidEntry
	for _, id := range []string{"loan1", "loan2"} {
		rows, _ := store.ReadAll(ctx)
		var desc string
		for _, r := range rows {
			if r.ID == id {
				desc = r.Description
			}
		}
		require.NoError(t, store.UpdateCell(ctx, id, ledger.ColDescription, ledger.PaidMarker+" "+desc))
		rep, err := store.Append(ctx, ledger.Row{Type: ledger.TypeIncome, Category: ledger.CategoryLoan, Description: "Repayment: " + desc})
		require.NoError(t, err)
		entries = append(entries, PaidEntry{LoanID: id, OldDescription: desc, RepaymentID: rep.ID})
	}
	require.NoError(t, m.Record(ctx, "C1", Paid{Entries: entries}))

	rows, _ := store.ReadAll(ctx)
	assert.Empty(t, ledger.OutstandingLoans(rows))

	_, err := m.Consume(ctx, "C1")
	require.NoError(t, err)

	rows, _ = store.ReadAll(ctx)
	assert.Len(t, rows, 2)
	assert.Len(t, ledger.OutstandingLoans(rows), 2)
}

func TestFundUpdate_Revert(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setup(t, ledger.Row{ID: "bal", Type: ledger.TypeFundBalance, Category: "Emergency Fund", Amount: 5_000_000})

	require.NoError(t, store.UpdateCell(ctx, "bal", ledger.ColAmount, int64(6_000_000)))
	require.NoError(t, m.Record(ctx, "C1", FundUpdate{RowID: "bal", OldAmount: 5_000_000, Fund: "Emergency Fund"}))
	_, err := m.Consume(ctx, "C1")
	require.NoError(t, err)
	rows, _ := store.ReadAll(ctx)
	assert.Equal(t, int64(5_000_000), rows[0].Amount)

	added, err := store.Append(ctx, ledger.Row{Type: ledger.TypeFundAdd, Category: "Emergency Fund", Amount: 500_000})
	require.NoError(t, err)
	require.NoError(t, m.Record(ctx, "C1", FundUpdate{RowID: added.ID, Created: true, Fund: "Emergency Fund"}))
	_, err = m.Consume(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestFundApply_Revert(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setup(t, ledger.Row{ID: "keep", Type: ledger.TypeExpense})

	var created []string
	for _, fund := range []string{"Emergency Fund", "Travel"} {
		r, err := store.Append(ctx, ledger.Row{Type: ledger.TypeFundAdd, Category: fund, Amount: 100})
		require.NoError(t, err)
		created = append(created, r.ID)
	}
	require.NoError(t, m.Record(ctx, "C1", FundApply{RowIDs: created}))

	_, err := m.Consume(ctx, "C1")
	require.NoError(t, err)
	rows, _ := store.ReadAll(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, "keep", rows[0].ID)
}

func TestConsume_Expired(t *testing.T) {
	ctx := context.Background()
	m, store, c := setup(t, ledger.Row{ID: "r1"})

	require.NoError(t, m.Record(ctx, "C1", Add{RowID: "r1"}))
	c.t = c.t.Add(KindAdd.TTL() + time.Second)

	_, err := m.Consume(ctx, "C1")
	assert.ErrorIs(t, err, apperrors.ErrUndoExpired)
	assert.Equal(t, 1, store.Len(), "expired actions are not applied")

	_, err = m.Consume(ctx, "C1")
	assert.ErrorIs(t, err, apperrors.ErrNothingToUndo)
}

func TestConsume_DeleteLivesLongerThanAdd(t *testing.T) {
	ctx := context.Background()
	m, _, c := setup(t)

	require.NoError(t, m.Record(ctx, "C1", Delete{Rows: []ledger.Row{{Description: "x"}}}))
	c.t = c.t.Add(7 * time.Minute)

	_, err := m.Consume(ctx, "C1")
	assert.NoError(t, err)
}

func TestRecord_LastMutationWins(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setup(t, ledger.Row{ID: "a"}, ledger.Row{ID: "b"})

	require.NoError(t, m.Record(ctx, "C1", Add{RowID: "a"}))
	require.NoError(t, m.Record(ctx, "C1", Add{RowID: "b"}))

	a, err := m.Consume(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, Add{RowID: "b"}, a)
	rows, _ := store.ReadAll(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].ID)
}

func TestConsume_StoreUnavailableKeepsAction(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setup(t, ledger.Row{ID: "r1"})
	require.NoError(t, m.Record(ctx, "C1", Add{RowID: "r1"}))

	store.SetError(apperrors.ErrStoreUnavailable)
	_, err := m.Consume(ctx, "C1")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	store.SetError(nil)
	_, err = m.Consume(ctx, "C1")
	assert.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

// flakyStore fails the nth Append or Delete once as if the store were down
type flakyStore struct {
	*ledger.MemoryStore
	appends, deletes       int
	failAppend, failDelete int
}

func (f *flakyStore) Append(ctx context.Context, row ledger.Row) (ledger.Row, error) {
	f.appends++
	if f.appends == f.failAppend {
		return ledger.Row{}, apperrors.ErrStoreUnavailable
	}
	return f.MemoryStore.Append(ctx, row)
}

func (f *flakyStore) Delete(ctx context.Context, id string) error {
	f.deletes++
	if f.deletes == f.failDelete {
		return apperrors.ErrStoreUnavailable
	}
	return f.MemoryStore.Delete(ctx, id)
}

func flakySetup(store *flakyStore) *Manager {
	c := &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	return NewManager(state.NewMemory(), store, c.now, nil)
}

func TestConsume_DeleteResumesAfterOutage(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: ledger.NewMemoryStore(), failAppend: 2}
	m := flakySetup(store)

	removed := []ledger.Row{{ID: "r1", Amount: 100}, {ID: "r2", Amount: 200}}
	require.NoError(t, m.Record(ctx, "C1", Delete{Rows: removed}))

	_, err := m.Consume(ctx, "C1")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	rows, _ := store.ReadAll(ctx)
	assert.Equal(t, []string{"r1"}, ids(rows))

	_, err = m.Consume(ctx, "C1")
	require.NoError(t, err)
	rows, _ = store.ReadAll(ctx)
	assert.Equal(t, []string{"r1", "r2"}, ids(rows))

	_, err = m.Consume(ctx, "C1")
	assert.ErrorIs(t, err, apperrors.ErrNothingToUndo)
}

func TestConsume_FundApplyResumesAfterOutage(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{
		MemoryStore: ledger.NewMemoryStore(
			ledger.Row{ID: "keep"}, ledger.Row{ID: "f1"}, ledger.Row{ID: "f2"}, ledger.Row{ID: "f3"}),
		failDelete: 2,
	}
	m := flakySetup(store)
	require.NoError(t, m.Record(ctx, "C1", FundApply{RowIDs: []string{"f1", "f2", "f3"}}))

	_, err := m.Consume(ctx, "C1")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	rows, _ := store.ReadAll(ctx)
	assert.Equal(t, []string{"keep", "f2", "f3"}, ids(rows))

	_, err = m.Consume(ctx, "C1")
	require.NoError(t, err, "rows removed by the first attempt are not deleted again")
	rows, _ = store.ReadAll(ctx)
	assert.Equal(t, []string{"keep"}, ids(rows))
}

func TestConsume_PaidResumesAfterOutage(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{
		MemoryStore: ledger.NewMemoryStore(
			ledger.Row{ID: "loan1", Type: ledger.TypeExpense, Category: ledger.CategoryLoan, Description: "[PAID] lent minh"},
			ledger.Row{ID: "rep1", Type: ledger.TypeIncome, Category: ledger.CategoryLoan, Description: "Repayment: lent minh"},
		),
		failDelete: 1,
	}
	m := flakySetup(store)
	require.NoError(t, m.Record(ctx, "C1", Paid{Entries: []PaidEntry{
		{LoanID: "loan1", OldDescription: "lent minh", RepaymentID: "rep1"},
	}}))

	_, err := m.Consume(ctx, "C1")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	_, err = m.Consume(ctx, "C1")
	require.NoError(t, err)
	rows, _ := store.ReadAll(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, "lent minh", rows[0].Description)
	assert.Len(t, ledger.OutstandingLoans(rows), 1)
}

func TestConsume_RevertFailure(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setup(t)
	require.NoError(t, m.Record(ctx, "C1", Add{RowID: "gone"}))

	_, err := m.Consume(ctx, "C1")
	assert.ErrorIs(t, err, apperrors.ErrUndoFailed)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	actions := []Action{
		Add{RowID: "a", Label: "Gas"},
		Delete{Rows: []ledger.Row{{ID: "x", Amount: 5, Person: ledger.PersonNaomi}}},
		Edit{RowID: "e", OldAmount: 10},
		Paid{Entries: []PaidEntry{{LoanID: "l", OldDescription: "lent", RepaymentID: "r"}}},
		FundUpdate{RowID: "f", Created: true, Fund: "Travel"},
		FundApply{RowIDs: []string{"1", "2"}},
	}

	for _, a := range actions {
		env, err := Seal(a, at)
		require.NoError(t, err)
		got, err := env.Open()
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := Envelope{Kind: "bogus"}.Open()
	assert.Error(t, err)
}

func ids(rows []ledger.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func amounts(rows []ledger.Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Amount
	}
	return out
}
