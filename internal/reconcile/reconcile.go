// Package reconcile picks the authoritative document at startup, or when
// sync is switched on, by comparing the Local and Synced copies.
package reconcile

import (
	"context"
	"time"

	"github.com/pixian5/homepage-sub000/internal/document"
	"github.com/pixian5/homepage-sub000/internal/logging"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/persist"
	"github.com/pixian5/homepage-sub000/internal/storage"
)

// Store is the read side of the storage adapter, plus the write used to
// preserve an undecodable document.
type Store interface {
	Get(ctx context.Context, t storage.Tier, key string) ([]byte, error)
	Set(ctx context.Context, t storage.Tier, key string, value []byte) error
	Available(t storage.Tier) bool
}

type Saver interface {
	Save(ctx context.Context, d *models.Document, tier storage.Tier) persist.Outcome
}

// Winner says where the loaded document came from.
type Winner int

const (
	WinnerDefault Winner = iota
	WinnerLocal
	WinnerSynced
)

func (w Winner) String() string {
	switch w {
	case WinnerLocal:
		return "local"
	case WinnerSynced:
		return "synced"
	default:
		return "default"
	}
}

type Result struct {
	Document *models.Document
	Winner   Winner
	// Corrupt is set when the stored Local document could not be decoded.
	// Its bytes were kept under models.CorruptKey.
	Corrupt bool
	// LocalErr is a Local read failure. The default document is then used
	// in memory only, so an unreadable store is never overwritten.
	LocalErr error
}

type Reconciler struct {
	store Store
	saver Saver
	log   logging.Logger
	now   func() time.Time
}

type Option func(*Reconciler)

func WithLogger(l logging.Logger) Option { return func(r *Reconciler) { r.log = l } }

func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

func New(store Store, saver Saver, opts ...Option) *Reconciler {
	r := &Reconciler{store: store, saver: saver, log: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads Local, synthesizing and saving a default when it is absent,
// then reads Synced if the document has sync on, and resolves the two.
func (r *Reconciler) Load(ctx context.Context) Result {
	var res Result

	local, err := r.readLocal(ctx, &res)
	if err != nil {
		res.LocalErr = err
		r.log.Error(ctx, "reading local document failed, using defaults", "error", err)
	}

	fresh := local == nil
	if fresh {
		local = document.CreateDefault(r.now())
		if res.LocalErr == nil {
			if out := r.saver.Save(ctx, local, storage.Local); !out.Persisted() {
				r.log.Warn(ctx, "saving default document failed", "error", out.Err)
			}
		}
	}

	var synced *models.Document
	if local.Settings.SyncEnabled {
		synced = r.ReadSynced(ctx)
	}

	res.Document, res.Winner = Resolve(local, synced)
	if fresh && res.Winner == WinnerLocal {
		res.Winner = WinnerDefault
	}
	r.log.Info(ctx, "document loaded", "winner", res.Winner.String(), "lastUpdated", res.Document.LastUpdated)
	return res
}

// ReadSynced returns the Synced document, or nil when the tier is
// unavailable, empty or unreadable.
func (r *Reconciler) ReadSynced(ctx context.Context) *models.Document {
	if !r.store.Available(storage.Synced) {
		return nil
	}
	raw, err := r.store.Get(ctx, storage.Synced, models.DocumentKey)
	if err != nil {
		r.log.Warn(ctx, "reading synced document failed", "error", err)
		return nil
	}
	if raw == nil {
		return nil
	}
	d, err := document.Decode(raw)
	if err != nil {
		r.log.Warn(ctx, "synced document is corrupt, ignoring it", "error", err)
		return nil
	}
	return d
}

// Resolve applies the timestamp rule: the newer document wins and a tie
// goes to synced. A nil side loses.
func Resolve(local, synced *models.Document) (*models.Document, Winner) {
	switch {
	case synced == nil && local == nil:
		return nil, WinnerDefault
	case synced == nil:
		return local, WinnerLocal
	case local == nil || synced.LastUpdated >= local.LastUpdated:
		return Adopt(synced, local), WinnerSynced
	default:
		return local, WinnerLocal
	}
}

// Adopt prepares a winning synced document for use: the Synced tier never
// holds backups, so Local's are carried over, and sync stays on.
func Adopt(synced, local *models.Document) *models.Document {
	if local != nil && len(synced.Backups) == 0 {
		synced.Backups = local.Clone().Backups
	}
	synced.Settings.SyncEnabled = true
	return synced
}

func (r *Reconciler) readLocal(ctx context.Context, res *Result) (*models.Document, error) {
	raw, err := r.store.Get(ctx, storage.Local, models.DocumentKey)
	if err != nil || raw == nil {
		return nil, err
	}
	d, err := document.Decode(raw)
	if err == nil {
		return d, nil
	}

	res.Corrupt = true
	r.log.Error(ctx, "local document is corrupt, starting over", "error", err)
	if err := r.store.Set(ctx, storage.Local, models.CorruptKey(models.DocumentKey), raw); err != nil {
		r.log.Warn(ctx, "preserving corrupt document failed", "error", err)
	}
	return nil, nil
}
