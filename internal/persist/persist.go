// Package persist writes the homepage document to a storage tier.
//
// Local writes that hit the quota shed data in a fixed order and retry:
// backups first, then uploaded icons, then an uploaded background. Synced
// writes go out as a sanitized payload; when that payload is too large or
// the area rejects it, sync is switched off on the document and the
// document is written to Local instead.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/document"
	"github.com/pixian5/homepage-sub000/internal/logging"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/storage"
	"github.com/pixian5/homepage-sub000/internal/timex"
)

// DefaultSyncIconMaxBytes caps an uploaded icon carried to the Synced tier.
const DefaultSyncIconMaxBytes = 2048

// Writer is the slice of the storage adapter the pipeline needs.
type Writer interface {
	Set(ctx context.Context, t storage.Tier, key string, value []byte) error
	Quota(t storage.Tier) storage.Quota
}

type Pipeline struct {
	store       Writer
	log         logging.Logger
	now         func() time.Time
	syncIconMax int
}

type Option func(*Pipeline)

func WithLogger(l logging.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

func WithSyncIconMaxBytes(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.syncIconMax = n
		}
	}
}

func New(store Writer, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       store,
		log:         logging.Nop(),
		now:         time.Now,
		syncIconMax: DefaultSyncIconMaxBytes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Save stamps d and writes it to tier.
func (p *Pipeline) Save(ctx context.Context, d *models.Document, tier storage.Tier) Outcome {
	p.stamp(d)
	if tier == storage.Synced {
		return p.saveSynced(ctx, d)
	}
	return p.saveLocal(ctx, d)
}

// Persist stamps d once and writes it to every tier it belongs in: Synced
// first when sync is on, then Local, which alone keeps the backups.
func (p *Pipeline) Persist(ctx context.Context, d *models.Document) Outcome {
	p.stamp(d)
	if !d.Settings.SyncEnabled {
		return p.saveLocal(ctx, d)
	}

	out := p.saveSynced(ctx, d)
	if out.Status != StatusSaved {
		// The fallback already wrote Local.
		return out
	}
	local := p.saveLocal(ctx, d)
	local.Tier = storage.Synced
	return local
}

// stamp moves LastUpdated to now, and always forward.
func (p *Pipeline) stamp(d *models.Document) {
	d.LastUpdated = max(timex.UnixMilli(p.now()), d.LastUpdated+1)
}

func (p *Pipeline) saveLocal(ctx context.Context, d *models.Document) Outcome {
	out := Outcome{Tier: storage.Local}

	err := p.write(ctx, storage.Local, d)
	for _, step := range degradation {
		if err == nil || !errors.Is(err, common.ErrQuotaExceeded) {
			break
		}
		if !step.apply(d) {
			continue
		}
		out.Steps = append(out.Steps, step.name)
		p.log.Warn(ctx, "local quota exceeded, degrading document", "step", string(step.name))
		err = p.write(ctx, storage.Local, d)
	}

	switch {
	case err != nil:
		out.Status = StatusFailed
		out.Err = err
		p.log.Error(ctx, "local save failed", "error", err, "steps", len(out.Steps))
	case len(out.Steps) > 0:
		out.Status = StatusDegraded
	default:
		out.Status = StatusSaved
	}
	return out
}

func (p *Pipeline) saveSynced(ctx context.Context, d *models.Document) Outcome {
	raw, err := document.Encode(SyncPayload(d, p.syncIconMax))
	if err != nil {
		return Outcome{Status: StatusFailed, Tier: storage.Synced, Err: err}
	}

	status := StatusSaved
	var cause error
	if limit := p.store.Quota(storage.Synced).PerItemBytes; limit > 0 && int64(len(raw)) > limit {
		status = StatusSyncQuotaExceeded
		cause = fmt.Errorf("sync payload is %d bytes, limit %d: %w", len(raw), limit, common.ErrQuotaExceeded)
	} else if err := p.store.Set(ctx, storage.Synced, models.DocumentKey, raw); err != nil {
		if errors.Is(err, common.ErrQuotaExceeded) {
			status = StatusSyncQuotaExceeded
			cause = err
		} else {
			status = StatusSyncRejected
			cause = fmt.Errorf("%w: %w", common.ErrSyncRejected, err)
		}
	}
	if status == StatusSaved {
		return Outcome{Status: StatusSaved, Tier: storage.Synced}
	}

	p.log.Warn(ctx, "sync write failed, disabling sync", "error", cause)
	d.Settings.SyncEnabled = false

	local := p.saveLocal(ctx, d)
	out := Outcome{Status: status, Tier: storage.Local, Steps: local.Steps, SyncDisabled: true, Err: cause}
	if local.Err != nil {
		out.Status = StatusFailed
		out.Err = errors.Join(cause, local.Err)
	}
	return out
}

func (p *Pipeline) write(ctx context.Context, tier storage.Tier, d *models.Document) error {
	raw, err := document.Encode(d)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, tier, models.DocumentKey, raw)
}
