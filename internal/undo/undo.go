// Package undo runs a delete as a short reversible transaction. The
// removal is persisted at once and a pre-delete snapshot is held for a
// grace period. Reverting inside the window puts the snapshot back;
// otherwise the snapshot is dropped and the delete stands.
package undo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/document"
	"github.com/pixian5/homepage-sub000/internal/logging"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/persist"
)

// DefaultGracePeriod is how long a delete stays revertible.
const DefaultGracePeriod = 5 * time.Second

type State int

const (
	Idle State = iota
	PendingDeletion
	Committed
	Reverted
)

func (s State) String() string {
	switch s {
	case PendingDeletion:
		return "pending"
	case Committed:
		return "committed"
	case Reverted:
		return "reverted"
	default:
		return "idle"
	}
}

// Store gives access to the live document. Calls happen while the owner
// already serializes access, so implementations need no locking of their
// own.
type Store interface {
	Current() *models.Document
	Replace(d *models.Document)
	Persist(ctx context.Context) persist.Outcome
}

// Timer is the part of *time.Timer the manager uses.
type Timer interface {
	Stop() bool
}

type Manager struct {
	store     Store
	grace     time.Duration
	afterFunc func(time.Duration, func()) Timer
	log       logging.Logger

	mu       sync.Mutex
	state    State
	snapshot *models.Document
	removed  []string
	timer    Timer
	gen      uint64
}

type Option func(*Manager)

func WithGracePeriod(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.grace = d
		}
	}
}

func WithLogger(l logging.Logger) Option { return func(m *Manager) { m.log = l } }

// WithAfterFunc replaces time.AfterFunc.
func WithAfterFunc(f func(time.Duration, func()) Timer) Option {
	return func(m *Manager) { m.afterFunc = f }
}

func New(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		grace: DefaultGracePeriod,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Delete removes ids (and folder descendants) from every group and
// folder, persists the result and opens the undo window. A delete while
// another is pending abandons the earlier one.
func (m *Manager) Delete(ctx context.Context, ids []string) ([]string, persist.Outcome, error) {
	return m.DeleteFrom(ctx, m.store.Current().Clone(), ids)
}

// DeleteFrom is Delete with before as the document a revert brings back.
// Callers that touch the live document ahead of the delete, such as taking
// a backup, pass the copy they made first.
func (m *Manager) DeleteFrom(ctx context.Context, before *models.Document, ids []string) ([]string, persist.Outcome, error) {
	cur := m.store.Current()
	snap := before

	removed := document.Remove(cur, ids)
	if len(removed) == 0 {
		return nil, persist.Outcome{}, fmt.Errorf("nodes %v: %w", ids, common.ErrNotFound)
	}
	out := m.store.Persist(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.log.Debug(ctx, "pending delete superseded", "ids", m.removed)
	}
	m.gen++
	gen := m.gen
	m.state = PendingDeletion
	m.snapshot = snap
	m.removed = removed
	m.timer = m.afterFunc(m.grace, func() { m.expire(gen) })

	m.log.Info(ctx, "nodes deleted", "count", len(removed), "grace", m.grace.String())
	return removed, out, nil
}

// Revert restores the pre-delete document if the window is still open.
// It reports false, and does nothing, otherwise.
func (m *Manager) Revert(ctx context.Context) (persist.Outcome, bool) {
	m.mu.Lock()
	if m.state != PendingDeletion {
		m.mu.Unlock()
		return persist.Outcome{}, false
	}
	m.timer.Stop()
	snap := m.snapshot
	m.gen++
	m.state = Reverted
	m.snapshot, m.removed, m.timer = nil, nil, nil
	m.mu.Unlock()

	// The restored document must still be newer than the delete.
	snap.LastUpdated = m.store.Current().LastUpdated
	m.store.Replace(snap)
	out := m.store.Persist(ctx)
	m.log.Info(ctx, "delete reverted", "status", out.Status.String())
	return out, true
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.state != PendingDeletion {
		return
	}
	m.state = Committed
	m.snapshot, m.removed, m.timer = nil, nil, nil
	m.log.Debug(context.Background(), "delete committed")
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending returns the ids removed by the open transaction, if any.
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}
