package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	IDs  []string `json:"ids"`
	Kind string   `json:"kind"`
}

func testStores(t *testing.T) map[string]Store {
	b, err := NewBadger()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"badger": b,
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)

			require.NoError(t, s.Delete(ctx, "k"))
			_, err = s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m := NewMemoryWithClock(func() time.Time { return now })

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 5*time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("v"), 0))

	now = now.Add(4 * time.Minute)
	_, err := m.Get(ctx, "k")
	assert.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestBucket(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			b := NewBucket[sample](s, "list", time.Hour)

			_, ok, err := b.Get(ctx, "C1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Put(ctx, "C1", sample{IDs: []string{"a", "b"}, Kind: "transactions"}))

			got, ok, err := b.Get(ctx, "C1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []string{"a", "b"}, got.IDs)

			_, ok, _ = b.Get(ctx, "C2")
			assert.False(t, ok, "channels are isolated")

			require.NoError(t, b.Delete(ctx, "C1"))
			_, ok, _ = b.Get(ctx, "C1")
			assert.False(t, ok)
		})
	}
}
