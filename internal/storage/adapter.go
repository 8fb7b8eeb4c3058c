// Package storage implements the tiered key/value adapter: a uniform
// get/set/remove over the Local and Synced areas, each with its own quota
// and availability.
//
// Every call resolves exactly once. Area panics are recovered, and calls
// that never return are abandoned after the configured timeout. A tier
// with no area behaves as empty on reads and reports
// common.ErrStorageUnavailable on writes.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/logging"
	"github.com/pixian5/homepage-sub000/internal/repositories/kv"
)

// Tier selects one of the two storage areas.
type Tier int

const (
	Local Tier = iota
	Synced
)

func (t Tier) String() string {
	switch t {
	case Local:
		return "local"
	case Synced:
		return "synced"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Quota limits are in bytes of serialized value; zero means no limit.
type Quota struct {
	TotalBytes   int64
	PerItemBytes int64
}

const defaultTimeout = 5 * time.Second

// Adapter routes calls to the area of a tier.
type Adapter struct {
	areas   [2]kv.Repository
	quotas  [2]Quota
	timeout time.Duration
	log     logging.Logger
}

type Option func(*Adapter)

func WithQuota(t Tier, q Quota) Option {
	return func(a *Adapter) { a.quotas[t] = q }
}

// WithTimeout bounds every area call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// NewAdapter binds the areas. A nil area makes its tier unavailable.
func NewAdapter(local, synced kv.Repository, opts ...Option) *Adapter {
	a := &Adapter{
		areas:   [2]kv.Repository{local, synced},
		timeout: defaultTimeout,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Available reports whether the tier has an area behind it.
func (a *Adapter) Available(t Tier) bool {
	return a.area(t) != nil
}

func (a *Adapter) Quota(t Tier) Quota {
	if t != Local && t != Synced {
		return Quota{}
	}
	return a.quotas[t]
}

func (a *Adapter) area(t Tier) kv.Repository {
	if t != Local && t != Synced {
		return nil
	}
	return a.areas[t]
}

// Get returns the stored value, or nil when the key is absent or the tier
// is unavailable. Read failures are returned so callers can tell "absent"
// from "could not read".
func (a *Adapter) Get(ctx context.Context, t Tier, key string) ([]byte, error) {
	area := a.area(t)
	if area == nil {
		return nil, nil
	}
	return a.call(ctx, t, "get", key, func(ctx context.Context) ([]byte, error) {
		return area.Get(ctx, key)
	})
}

// Set writes value under key after checking the tier quota.
func (a *Adapter) Set(ctx context.Context, t Tier, key string, value []byte) error {
	area := a.area(t)
	if area == nil {
		return fmt.Errorf("%s set %s: %w", t, key, common.ErrStorageUnavailable)
	}

	q := a.quotas[t]
	size := int64(len(value))
	if q.PerItemBytes > 0 && size > q.PerItemBytes {
		return fmt.Errorf("%s set %s: %d bytes over per-item limit %d: %w",
			t, key, size, q.PerItemBytes, common.ErrQuotaExceeded)
	}

	_, err := a.call(ctx, t, "set", key, func(ctx context.Context) ([]byte, error) {
		if q.TotalBytes <= 0 {
			return nil, area.Set(ctx, key, value)
		}
		if qs, ok := area.(kv.QuotaSetter); ok {
			return nil, qs.SetWithinQuota(ctx, key, value, q.TotalBytes)
		}
		used, err := usageExcept(ctx, area, key)
		if err != nil {
			return nil, err
		}
		if used+size > q.TotalBytes {
			return nil, fmt.Errorf("%d bytes with %d in use over %d: %w", size, used, q.TotalBytes, common.ErrQuotaExceeded)
		}
		return nil, area.Set(ctx, key, value)
	})
	return err
}

// Remove deletes key. Removing an absent key succeeds.
func (a *Adapter) Remove(ctx context.Context, t Tier, key string) error {
	area := a.area(t)
	if area == nil {
		return fmt.Errorf("%s remove %s: %w", t, key, common.ErrStorageUnavailable)
	}
	_, err := a.call(ctx, t, "remove", key, func(ctx context.Context) ([]byte, error) {
		return nil, area.Delete(ctx, key)
	})
	return err
}

// GetJSON decodes the value under key into v. It reports false when there
// is nothing stored.
func (a *Adapter) GetJSON(ctx context.Context, t Tier, key string, v any) (bool, error) {
	raw, err := a.Get(ctx, t, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%s decode %s: %w", t, key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func (a *Adapter) SetJSON(ctx context.Context, t Tier, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s encode %s: %w", t, key, err)
	}
	return a.Set(ctx, t, key, raw)
}

type result struct {
	value []byte
	err   error
}

// call runs fn on its own goroutine and resolves exactly once: with fn's
// result, with a recovered panic, or with ErrStorageTimeout.
func (a *Adapter) call(ctx context.Context, t Tier, op, key string, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("%s %s %s: storage call panicked: %v", t, op, key, p)}
			}
		}()
		v, err := fn(callCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			a.log.Debug(ctx, "storage call failed", "tier", t.String(), "op", op, "key", key, "error", r.err)
		}
		return r.value, r.err
	case <-callCtx.Done():
		if err := ctx.Err(); errors.Is(err, context.Canceled) {
			a.log.Debug(ctx, "storage call cancelled", "tier", t.String(), "op", op, "key", key)
			return nil, fmt.Errorf("%s %s %s: %w", t, op, key, err)
		}
		a.log.Warn(ctx, "storage call abandoned", "tier", t.String(), "op", op, "key", key)
		return nil, fmt.Errorf("%s %s %s: %w", t, op, key, common.ErrStorageTimeout)
	}
}

func usageExcept(ctx context.Context, area kv.Repository, key string) (int64, error) {
	all, err := area.List(ctx)
	if err != nil {
		return 0, err
	}
	var used int64
	for k, v := range all {
		if k != key {
			used += int64(len(v))
		}
	}
	return used, nil
}
