package undo

import (
	"context"
	"time"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/state"
	"go.uber.org/zap"
)

// retention keeps expired actions around long enough to answer "expired"
// instead of "nothing to undo".
const retention = time.Hour

// Manager holds at most one pending action per channel. Record always
// overwrites; Consume reverts and clears.
type Manager struct {
	pending *state.Bucket[Envelope]
	store   ledger.Store
	now     func() time.Time
	logger  *zap.Logger
}

// NewManager creates a manager; now defaults to time.Now
func NewManager(kv state.Store, store ledger.Store, now func() time.Time, logger *zap.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		pending: state.NewBucket[Envelope](kv, "undo", 0),
		store:   store,
		now:     now,
		logger:  logger,
	}
}

// Record replaces the channel's pending action
func (m *Manager) Record(ctx context.Context, channel string, a Action) error {
	env, err := Seal(a, m.now())
	if err != nil {
		return err
	}
	return m.pending.PutTTL(ctx, channel, env, a.Kind().TTL()+retention)
}

// Consume reverts the pending action. It fails with ErrNothingToUndo,
// ErrUndoExpired or ErrUndoFailed. When the store becomes unreachable part way
// the steps not yet applied stay pending and ErrStoreUnavailable is returned;
// any other failure clears the action.
func (m *Manager) Consume(ctx context.Context, channel string) (Action, error) {
	env, ok, err := m.pending.Get(ctx, channel)
	if err != nil {
		return nil, apperrors.From(apperrors.ErrUndoFailed, err)
	}
	if !ok {
		return nil, apperrors.ErrNothingToUndo
	}

	if m.now().Sub(env.RecordedAt) > env.Kind.TTL() {
		_ = m.pending.Delete(ctx, channel)
		return nil, apperrors.ErrUndoExpired
	}

	a, err := env.Open()
	if err != nil {
		_ = m.pending.Delete(ctx, channel)
		return nil, apperrors.From(apperrors.ErrUndoFailed, err)
	}

	rest, err := a.Revert(ctx, m.store)
	if err != nil {
		m.logger.Error("Undo failed",
			zap.String("channel", channel),
			zap.String("kind", string(a.Kind())),
			zap.Bool("resumable", rest != nil),
			zap.Error(err))
		if rest != nil {
			m.keep(ctx, channel, env, rest)
			return a, apperrors.From(apperrors.ErrStoreUnavailable, err)
		}
		m.clear(ctx, channel)
		return a, apperrors.From(apperrors.ErrUndoFailed, err)
	}
	m.clear(ctx, channel)

	m.logger.Info("Undo applied", zap.String("channel", channel), zap.String("kind", string(a.Kind())))
	return a, nil
}

// keep stores the unapplied remainder under the original record time
func (m *Manager) keep(ctx context.Context, channel string, env Envelope, rest Action) {
	next, err := Seal(rest, env.RecordedAt)
	if err == nil {
		err = m.pending.PutTTL(ctx, channel, next, rest.Kind().TTL()+retention)
	}
	if err != nil {
		m.logger.Warn("Failed to keep undo remainder", zap.String("channel", channel), zap.Error(err))
		m.clear(ctx, channel)
	}
}

func (m *Manager) clear(ctx context.Context, channel string) {
	if err := m.pending.Delete(ctx, channel); err != nil {
		m.logger.Warn("Failed to clear undo state", zap.String("channel", channel), zap.Error(err))
	}
}
