package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gmsas95/ledgerbot/internal/bills"
	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	a, err := s.Append(ctx, ledger.Row{Date: day, Type: ledger.TypeExpense, Category: "Gas", Amount: 150_000, Description: "Gas", Person: ledger.PersonJoint, MonthStart: ledger.MonthStart(day), Source: "test"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, 2, a.Index)

	b, err := s.Append(ctx, ledger.Row{Date: day, Type: ledger.TypeIncome, Amount: 2_800_000, Description: "salary", Person: ledger.PersonJacob})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Index)

	rows, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, a.ID, rows[0].ID)
	assert.Equal(t, ledger.PersonJoint, rows[0].Person)
	assert.True(t, rows[0].InMonth(2025, time.March))

	require.NoError(t, s.UpdateCell(ctx, b.ID, ledger.ColAmount, int64(3_000_000)))
	require.NoError(t, s.Delete(ctx, a.ID))

	rows, err = s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3_000_000), rows[0].Amount)
	assert.Equal(t, 2, rows[0].Index)
}

func TestStore_MissingRow(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Delete(ctx, "nope"), apperrors.ErrRowNotFound)
	assert.ErrorIs(t, s.UpdateCell(ctx, "nope", ledger.ColDescription, "x"), apperrors.ErrRowNotFound)
	assert.ErrorIs(t, s.UpdateCell(ctx, "nope", ledger.ColDate, "x"), apperrors.ErrStoreFailed)
}

func TestStore_ReappendKeepsID(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	a, err := s.Append(ctx, ledger.Row{Type: ledger.TypeExpense, Amount: 1000, Description: "a"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, a.ID))

	again, err := s.Append(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)
}

func TestStore_Bills(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seed := []bills.Bill{
		{Category: "Gas", DefaultAmount: 100_000, Owner: ledger.PersonJoint, AutoInclude: true},
		{Category: "Phone - Naomi", DefaultAmount: 55_000, Owner: ledger.PersonNaomi},
	}
	require.NoError(t, s.SeedBills(ctx, seed))
	require.NoError(t, s.SeedBills(ctx, seed))

	bs, err := s.ActiveBills(ctx)
	require.NoError(t, err)
	require.Len(t, bs, 2)
	assert.Equal(t, "Gas", bs[0].Category)
	assert.True(t, bs[0].AutoInclude)
	assert.Equal(t, ledger.PersonNaomi, bs[1].Owner)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Append(context.Background(), ledger.Row{Type: ledger.TypeExpense, Amount: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
