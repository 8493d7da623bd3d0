package sheets

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// fakeAPI keeps tabs as 2D grids including the header row
type fakeAPI struct {
	mu    sync.Mutex
	tabs  map[string][][]any
	err   error
	calls int
}

func newFakeAPI() *fakeAPI {
	header := make([]any, len(ledger.Header))
	for i, h := range ledger.Header {
		header[i] = h
	}
	return &fakeAPI{tabs: map[string][][]any{"Transaction": {header}}}
}

var a1 = regexp.MustCompile(`^([A-Z]+)(\d*)(?::([A-Z]+)(\d*))?$`)

func splitRange(rng string) (tab string, col0, row0, col1 int) {
	i := strings.LastIndex(rng, "!")
	tab = strings.Trim(strings.ReplaceAll(rng[:i], "''", "'"), "'")
	m := a1.FindStringSubmatch(rng[i+1:])
	col0 = int(m[1][0] - 'A')
	row0 = 1
	if m[2] != "" {
		row0, _ = strconv.Atoi(m[2])
	}
	col1 = 25
	if m[3] != "" {
		col1 = int(m[3][0] - 'A')
	}
	return tab, col0, row0, col1
}

func (f *fakeAPI) Get(_ context.Context, rng string) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tab, c0, r0, c1 := splitRange(rng)
	var out [][]any
	for _, row := range f.tabs[tab][r0-1:] {
		var cells []any
		for c := c0; c <= c1 && c < len(row); c++ {
			cells = append(cells, row[c])
		}
		out = append(out, cells)
	}
	return out, nil
}

func (f *fakeAPI) Append(_ context.Context, rng string, row []any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	tab, _, _, _ := splitRange(rng)
	f.tabs[tab] = append(f.tabs[tab], row)
	n := len(f.tabs[tab])
	return fmt.Sprintf("%s!A%d:I%d", tab, n, n), nil
}

func (f *fakeAPI) Update(_ context.Context, rng string, rows [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	tab, c, r, _ := splitRange(rng)
	row := f.tabs[tab][r-1]
	for len(row) <= c {
		row = append(row, "")
	}
	row[c] = rows[0][0]
	f.tabs[tab][r-1] = row
	return nil
}

func (f *fakeAPI) DeleteRow(_ context.Context, tab string, row int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	grid := f.tabs[tab]
	f.tabs[tab] = append(grid[:row-1], grid[row:]...)
	return nil
}

func newTestStore(api *fakeAPI) *Store {
	return newStore(api, Config{RequestsPerMinute: 600_000, Location: time.UTC}, nil)
}

var march = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func TestStore_AppendAndRead(t *testing.T) {
	api := newFakeAPI()
	s := newTestStore(api)
	ctx := context.Background()

	row, err := s.Append(ctx, ledger.Row{
		Date:        march,
		Type:        ledger.TypeExpense,
		Category:    "Gas",
		Amount:      150_000,
		Description: "Gas",
		Person:      ledger.PersonJoint,
		MonthStart:  ledger.MonthStart(march),
		Source:      "slack",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, 2, row.Index)
	assert.Equal(t, "2025-03-01", api.tabs["Transaction"][1][ledger.ColMonth])

	rows, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row.ID, rows[0].ID)
	assert.Equal(t, int64(150_000), rows[0].Amount)
	assert.Equal(t, ledger.PersonJoint, rows[0].Person)
	assert.True(t, rows[0].InMonth(2025, time.March))
}

func TestStore_BackfillsMissingIDs(t *testing.T) {
	api := newFakeAPI()
	api.tabs["Transaction"] = append(api.tabs["Transaction"],
		[]any{"2025-03-02", "Expense", "Groceries", "₩45,000", "emart", "Naomi", "2025-03-01", "manual"})
	s := newTestStore(api)

	rows, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(45_000), rows[0].Amount)
	require.NotEmpty(t, rows[0].ID)
	assert.Equal(t, rows[0].ID, api.tabs["Transaction"][1][ledger.ColID])

	again, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rows[0].ID, again[0].ID)
}

func TestStore_UpdateAndDeleteByID(t *testing.T) {
	api := newFakeAPI()
	s := newTestStore(api)
	ctx := context.Background()

	var ids []string
	for i := 1; i <= 3; i++ {
		row, err := s.Append(ctx, ledger.Row{Date: march, Type: ledger.TypeExpense, Amount: int64(i * 1000), Description: fmt.Sprintf("e%d", i)})
		require.NoError(t, err)
		ids = append(ids, row.ID)
	}

	require.NoError(t, s.Delete(ctx, ids[0]))
	require.NoError(t, s.UpdateCell(ctx, ids[2], ledger.ColAmount, int64(9000)))
	require.NoError(t, s.UpdateCell(ctx, ids[1], ledger.ColDescription, "[PAID] e2"))

	rows, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "[PAID] e2", rows[0].Description)
	assert.Equal(t, 2, rows[0].Index)
	assert.Equal(t, int64(9000), rows[1].Amount)

	err = s.Delete(ctx, ids[0])
	assert.ErrorIs(t, err, apperrors.ErrRowNotFound)
	err = s.UpdateCell(ctx, ids[1], ledger.ColDate, "2025-01-01")
	assert.ErrorIs(t, err, apperrors.ErrStoreFailed)
}

func TestStore_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected *apperrors.AppError
	}{
		{"server error", &googleapi.Error{Code: 503}, apperrors.ErrStoreUnavailable},
		{"quota", &googleapi.Error{Code: 429}, apperrors.ErrStoreUnavailable},
		{"forbidden", &googleapi.Error{Code: 403}, apperrors.ErrStoreUnavailable},
		{"bad range", &googleapi.Error{Code: 400}, apperrors.ErrStoreFailed},
		{"deadline", context.DeadlineExceeded, apperrors.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.err = tt.err
			_, err := newTestStore(api).ReadAll(context.Background())
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestStore_BreakerOpens(t *testing.T) {
	api := newFakeAPI()
	api.err = &googleapi.Error{Code: 500}
	s := newTestStore(api)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = s.ReadAll(ctx)
	}
	before := api.calls

	_, err := s.ReadAll(ctx)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.Equal(t, before, api.calls, "open breaker must not reach the API")
}

func TestStore_ClientErrorsDoNotTrip(t *testing.T) {
	api := newFakeAPI()
	api.err = &googleapi.Error{Code: 400}
	s := newTestStore(api)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _ = s.ReadAll(ctx)
	}
	assert.Equal(t, 10, api.calls)
}

func TestBills_ActiveBills(t *testing.T) {
	api := newFakeAPI()
	api.tabs["Fixed Bills"] = [][]any{
		{"Category", "Amount", "Type", "Person", "Auto_Include", "Status"},
		{"Gas", float64(100_000), "Shared", "Both", "Yes", "Active"},
		{"Phone - Naomi", "55,000", "Personal", "Naomi", "No", "Active"},
		{"Gym", float64(60_000), "Personal", "Jacob", "Yes", "Cancelled"},
		{"", float64(1), "", "", "", "Active"},
	}
	s := newTestStore(api)

	bs, err := s.Bills().ActiveBills(context.Background())
	require.NoError(t, err)
	require.Len(t, bs, 2)

	assert.Equal(t, "Gas", bs[0].Category)
	assert.Equal(t, int64(100_000), bs[0].DefaultAmount)
	assert.Equal(t, ledger.PersonJoint, bs[0].Owner)
	assert.True(t, bs[0].AutoInclude)

	assert.Equal(t, ledger.PersonNaomi, bs[1].Owner)
	assert.Equal(t, int64(55_000), bs[1].DefaultAmount)
	assert.False(t, bs[1].AutoInclude)
}

func TestRowOf(t *testing.T) {
	assert.Equal(t, 12, rowOf("Transaction!A12:I12"))
	assert.Equal(t, 7, rowOf("'Fixed Bills'!A7:F7"))
	assert.Equal(t, 0, rowOf(""))
}

func TestQuoteTab(t *testing.T) {
	assert.Equal(t, "Transaction", quoteTab("Transaction"))
	assert.Equal(t, "'Fixed Bills'", quoteTab("Fixed Bills"))
}
