// Package backup takes, rotates and restores point-in-time copies of the
// homepage document. Backups are kept newest first.
package backup

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/document"
	"github.com/pixian5/homepage-sub000/internal/logging"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/timex"
)

type Manager struct {
	log   logging.Logger
	now   func() time.Time
	newID func() string
}

type Option func(*Manager)

func WithLogger(l logging.Logger) Option { return func(m *Manager) { m.log = l } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func New(opts ...Option) *Manager {
	m := &Manager{log: logging.Nop(), now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot deep-copies d into a new backup. The copy drops d's own backup
// list so backups never nest.
func (m *Manager) Snapshot(d *models.Document) models.Backup {
	data := d.Clone()
	data.Backups = []models.Backup{}
	return models.Backup{ID: m.newID(), Timestamp: timex.UnixMilli(m.now()), Data: data}
}

// Push prepends a snapshot of d to d.Backups and trims the list to the
// retention in d.Settings. With retention zero nothing is taken and ok is
// false.
func (m *Manager) Push(ctx context.Context, d *models.Document) (b models.Backup, ok bool) {
	if !d.Settings.BackupsEnabled() {
		return models.Backup{}, false
	}
	b = m.Snapshot(d)
	d.Backups = Trim(append([]models.Backup{b}, d.Backups...), d.Settings)
	m.log.Debug(ctx, "backup taken", "id", b.ID, "kept", len(d.Backups))
	return b, true
}

// Trim drops the oldest backups beyond the retention limit.
func Trim(backups []models.Backup, s models.Settings) []models.Backup {
	limit, bounded := s.BackupLimit()
	if !bounded || len(backups) <= limit {
		return backups
	}
	return slices.Clip(backups[:limit])
}

func Find(d *models.Document, id string) (models.Backup, bool) {
	i := slices.IndexFunc(d.Backups, func(b models.Backup) bool { return b.ID == id })
	if i < 0 {
		return models.Backup{}, false
	}
	return d.Backups[i], true
}

// Restore returns a new live document built from backup id. The current
// document is backed up first, the backup list carries over, and the sync
// setting is left as it is now. d itself is not replaced; the caller swaps
// and saves.
func (m *Manager) Restore(ctx context.Context, d *models.Document, id string) (*models.Document, error) {
	b, ok := Find(d, id)
	if !ok || b.Data == nil {
		return nil, fmt.Errorf("backup %s: %w", id, common.ErrNotFound)
	}

	restored := document.ApplyDefaults(b.Data.Clone())
	document.NormalizeOwnership(restored)

	m.Push(ctx, d)
	restored.Backups = d.Clone().Backups
	restored.Settings.SyncEnabled = d.Settings.SyncEnabled
	restored.Settings.MaxBackups = d.Settings.MaxBackups
	restored.Settings.UnlimitedBackups = d.Settings.UnlimitedBackups
	restored.LastUpdated = d.LastUpdated

	m.log.Info(ctx, "backup restored", "id", id, "taken", b.Timestamp)
	return restored, nil
}

// Delete removes backup id from d.
func Delete(d *models.Document, id string) error {
	n := len(d.Backups)
	d.Backups = slices.DeleteFunc(d.Backups, func(b models.Backup) bool { return b.ID == id })
	if len(d.Backups) == n {
		return fmt.Errorf("backup %s: %w", id, common.ErrNotFound)
	}
	return nil
}
