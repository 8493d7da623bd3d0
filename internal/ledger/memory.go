package ledger

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/google/uuid"
)

// MemoryStore is a process-local Store. It backs the dry-run REPL and tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows []Row
	err  error
}

// NewMemoryStore creates a store pre-filled with rows (IDs are assigned when missing)
func NewMemoryStore(rows ...Row) *MemoryStore {
	s := &MemoryStore{}
	for _, r := range rows {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.rows = append(s.rows, r)
	}
	return s
}

// SetError makes every subsequent call fail with err; nil restores normal operation.
func (s *MemoryStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Append implements Store
func (s *MemoryStore) Append(ctx context.Context, row Row) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return Row{}, s.err
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	s.rows = append(s.rows, row)
	row.Index = len(s.rows) + 1
	return row, nil
}

// ReadAll implements Store
func (s *MemoryStore) ReadAll(ctx context.Context) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		r.Index = i + 2
		out[i] = r
	}
	return out, nil
}

// UpdateCell implements Store
func (s *MemoryStore) UpdateCell(ctx context.Context, id string, col Column, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	i := s.find(id)
	if i < 0 {
		return apperrors.From(apperrors.ErrRowNotFound, fmt.Errorf("id %s", id))
	}
	return SetColumn(&s.rows[i], col, value)
}

// Delete implements Store
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	i := s.find(id)
	if i < 0 {
		return apperrors.From(apperrors.ErrRowNotFound, fmt.Errorf("id %s", id))
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	return nil
}

// Len returns the number of data rows
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *MemoryStore) find(id string) int {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return i
		}
	}
	return -1
}

// SetColumn applies a single-cell update to an in-memory row
func SetColumn(r *Row, col Column, value any) error {
	switch col {
	case ColAmount:
		v, ok := value.(int64)
		if !ok {
			return fmt.Errorf("amount must be int64, got %T", value)
		}
		r.Amount = v
	case ColDescription:
		r.Description = fmt.Sprint(value)
	case ColCategory:
		r.Category = fmt.Sprint(value)
	case ColPerson:
		r.Person = Person(fmt.Sprint(value))
	case ColType:
		r.Type = RowType(fmt.Sprint(value))
	case ColSource:
		r.Source = fmt.Sprint(value)
	default:
		return fmt.Errorf("column %s is not editable", col)
	}
	return nil
}

// Unavailable is the Store used when the backend cannot be reached at startup
// (for example missing credentials). Every call fails with ErrStoreUnavailable.
type Unavailable struct {
	Reason error
}

func (u Unavailable) fail() error {
	return apperrors.From(apperrors.ErrStoreUnavailable, u.Reason)
}

func (u Unavailable) Append(context.Context, Row) (Row, error) { return Row{}, u.fail() }
func (u Unavailable) ReadAll(context.Context) ([]Row, error)   { return nil, u.fail() }
func (u Unavailable) UpdateCell(context.Context, string, Column, any) error {
	return u.fail()
}
func (u Unavailable) Delete(context.Context, string) error { return u.fail() }
