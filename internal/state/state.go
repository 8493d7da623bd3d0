// Package state keeps short-lived per-channel conversation state (undo, list
// cache, fund proposals, seen events). Values live for the process only.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired
var ErrNotFound = errors.New("state: key not found")

// Store is a goroutine-safe byte KV with per-key expiry. A zero ttl never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Bucket is a typed, namespaced view over a Store. Values are JSON encoded.
type Bucket[T any] struct {
	store  Store
	prefix string
	ttl    time.Duration
}

// NewBucket creates a bucket whose keys are "<prefix>:<channel>"
func NewBucket[T any](store Store, prefix string, ttl time.Duration) *Bucket[T] {
	return &Bucket[T]{store: store, prefix: prefix, ttl: ttl}
}

func (b *Bucket[T]) key(channel string) string {
	return b.prefix + ":" + channel
}

// Get returns the value for channel; ok is false when absent or expired
func (b *Bucket[T]) Get(ctx context.Context, channel string) (T, bool, error) {
	var zero T
	data, err := b.store.Get(ctx, b.key(channel))
	if errors.Is(err, ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("failed to decode %s: %w", b.key(channel), err)
	}
	return v, true, nil
}

// Put stores v for channel with the bucket's TTL
func (b *Bucket[T]) Put(ctx context.Context, channel string, v T) error {
	return b.PutTTL(ctx, channel, v, b.ttl)
}

// PutTTL stores v for channel with an explicit TTL
func (b *Bucket[T]) PutTTL(ctx context.Context, channel string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", b.key(channel), err)
	}
	return b.store.Set(ctx, b.key(channel), data, ttl)
}

// Delete clears the value for channel
func (b *Bucket[T]) Delete(ctx context.Context, channel string) error {
	return b.store.Delete(ctx, b.key(channel))
}
