// Package sheets implements the ledger on a Google Sheets spreadsheet.
//
// The Transaction tab holds one row per ledger entry in columns A..I with a
// header in row 1. Rows are addressed by the ID in column I; the physical row
// is looked up again before every mutation.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
)

// Config holds spreadsheet settings
type Config struct {
	SpreadsheetID string
	// Credentials is the service-account JSON key
	Credentials []byte
	Tab         string
	BillsTab    string
	// RequestsPerMinute caps outbound calls under the Sheets quota
	RequestsPerMinute int
	Location          *time.Location
}

func (c *Config) defaults() {
	if c.Tab == "" {
		c.Tab = "Transaction"
	}
	if c.BillsTab == "" {
		c.BillsTab = "Fixed Bills"
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.Location == nil {
		c.Location = time.Local
	}
}

// Store is a ledger.Store backed by a spreadsheet tab
type Store struct {
	api     valuesAPI
	cfg     Config
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger

	// mu keeps ID lookups and the mutation that follows them atomic
	mu sync.Mutex
}

// New connects to the spreadsheet with service-account credentials
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, apperrors.From(apperrors.ErrConfigInvalid, errors.New("spreadsheet id is empty"))
	}
	if len(cfg.Credentials) == 0 {
		return nil, apperrors.From(apperrors.ErrConfigInvalid, errors.New("google credentials are empty"))
	}
	svc, err := newService(ctx, cfg.SpreadsheetID, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	return newStore(svc, cfg, logger), nil
}

func newStore(api valuesAPI, cfg Config, logger *zap.Logger) *Store {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60)

	return &Store{
		api:     api,
		cfg:     cfg,
		limiter: rate.NewLimiter(perSecond, max(1, cfg.RequestsPerMinute/6)),
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "sheets",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isClientError(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		logger: logger,
	}
}

func (s *Store) rng(a1 string) string {
	return quoteTab(s.cfg.Tab) + "!" + a1
}

// Append implements ledger.Store
func (s *Store) Append(ctx context.Context, row ledger.Row) (ledger.Row, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	err := s.call(ctx, "append", func(ctx context.Context) error {
		updated, err := s.api.Append(ctx, s.rng("A:I"), encodeRow(row))
		if err != nil {
			return err
		}
		row.Index = rowOf(updated)
		return nil
	})
	if err != nil {
		return ledger.Row{}, err
	}
	return row, nil
}

// ReadAll implements ledger.Store. Rows without an ID, typically typed into
// the sheet by hand, get one written back.
func (s *Store) ReadAll(ctx context.Context) ([]ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var values [][]any
	err := s.call(ctx, "read_all", func(ctx context.Context) error {
		var err error
		values, err = s.api.Get(ctx, s.rng("A2:I"))
		return err
	})
	if err != nil {
		return nil, err
	}

	rows := make([]ledger.Row, 0, len(values))
	for i, cells := range values {
		if len(cells) == 0 {
			continue
		}
		row := decodeRow(cells, i+2, s.cfg.Location)
		if row.ID == "" {
			row.ID = uuid.NewString()
			if err := s.writeID(ctx, row.Index, row.ID); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) writeID(ctx context.Context, index int, id string) error {
	err := s.call(ctx, "backfill_id", func(ctx context.Context) error {
		return s.api.Update(ctx, s.rng(fmt.Sprintf("%s%d", ledger.ColID.Letter(), index)), [][]any{{id}})
	})
	if err != nil {
		s.logger.Warn("Failed to backfill row id", zap.Int("row", index), zap.Error(err))
		return err
	}
	s.logger.Info("Backfilled row id", zap.Int("row", index), zap.String("id", id))
	return nil
}

// UpdateCell implements ledger.Store
func (s *Store) UpdateCell(ctx context.Context, id string, col ledger.Column, value any) error {
	v, err := encodeValue(col, value)
	if err != nil {
		return apperrors.From(apperrors.ErrStoreFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.locate(ctx, id)
	if err != nil {
		return err
	}
	return s.call(ctx, "update_cell", func(ctx context.Context) error {
		return s.api.Update(ctx, s.rng(fmt.Sprintf("%s%d", col.Letter(), index)), [][]any{{v}})
	})
}

// Delete implements ledger.Store
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.locate(ctx, id)
	if err != nil {
		return err
	}
	return s.call(ctx, "delete", func(ctx context.Context) error {
		return s.api.DeleteRow(ctx, s.cfg.Tab, index)
	})
}

// locate finds the physical row of an ID by scanning column I
func (s *Store) locate(ctx context.Context, id string) (int, error) {
	var ids [][]any
	col := ledger.ColID.Letter()
	err := s.call(ctx, "locate", func(ctx context.Context) error {
		var err error
		ids, err = s.api.Get(ctx, s.rng(col+"2:"+col))
		return err
	})
	if err != nil {
		return 0, err
	}
	for i, cells := range ids {
		if len(cells) > 0 && fmt.Sprint(cells[0]) == id {
			return i + 2, nil
		}
	}
	return 0, apperrors.From(apperrors.ErrRowNotFound, fmt.Errorf("id %s", id))
}

// call runs one API request through the limiter and the breaker
func (s *Store) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return apperrors.From(apperrors.ErrStoreUnavailable, err)
	}
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	if err != nil {
		s.logger.Debug("Sheets call failed", zap.String("op", op), zap.Error(err))
	}
	return classify(op, err)
}

// classify maps API failures onto the store error codes. Outages,
// throttling and credential problems are "unavailable"; everything else failed.
func classify(op string, err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	wrapped := fmt.Errorf("sheets %s: %w", op, err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.From(apperrors.ErrStoreUnavailable, wrapped)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests, gerr.Code >= 500,
			gerr.Code == http.StatusUnauthorized, gerr.Code == http.StatusForbidden:
			return apperrors.From(apperrors.ErrStoreUnavailable, wrapped)
		}
		return apperrors.From(apperrors.ErrStoreFailed, wrapped)
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return apperrors.From(apperrors.ErrStoreUnavailable, wrapped)
	}
	return apperrors.From(apperrors.ErrStoreFailed, wrapped)
}

func isClientError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != http.StatusTooManyRequests
	}
	return false
}
