// Package document creates, decodes and mutates the homepage document.
//
// Mutations work on an in-memory *models.Document. Taking a backup first
// and persisting afterwards is the caller's job.
package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/timex"
)

// DefaultGroupName labels the group every new document starts with.
const DefaultGroupName = "Home"

// CreateDefault returns a fresh document with a single empty group.
func CreateDefault(now time.Time) *models.Document {
	return &models.Document{
		SchemaVersion: models.SchemaVersion,
		Settings:      models.DefaultSettings(),
		Groups:        []models.Group{newGroup(DefaultGroupName, 0)},
		Nodes:         map[string]models.Node{},
		Backups:       []models.Backup{},
		LastUpdated:   timex.UnixMilli(now),
	}
}

// ApplyDefaults fills every absent top-level field of a decoded document.
// Settings are overlaid on the defaults while decoding, so stored values
// win per key. A document left without groups gets the default group.
func ApplyDefaults(d *models.Document) *models.Document {
	if d == nil {
		d = &models.Document{Settings: models.DefaultSettings()}
	}
	if d.SchemaVersion == 0 {
		d.SchemaVersion = models.SchemaVersion
	}
	if len(d.Groups) == 0 {
		d.Groups = []models.Group{newGroup(DefaultGroupName, 0)}
	}
	for i := range d.Groups {
		if d.Groups[i].Nodes == nil {
			d.Groups[i].Nodes = []string{}
		}
	}
	if d.Nodes == nil {
		d.Nodes = map[string]models.Node{}
	}
	for id, n := range d.Nodes {
		if n.Kind == models.KindHistory {
			delete(d.Nodes, id)
			continue
		}
		if n.ID == "" {
			n.ID = id
			d.Nodes[id] = n
		}
	}
	if d.Backups == nil {
		d.Backups = []models.Backup{}
	}
	return d
}

// Migrate upgrades d to the current schema version. No layout change has
// shipped since version 1, so it passes d through.
// Documents written by a newer build keep the fields this build knows.
func Migrate(d *models.Document) *models.Document {
	return d
}

// Decode parses a stored document and brings it to the current shape:
// defaults, migration and ownership normalization.
func Decode(raw []byte) (*models.Document, error) {
	d := models.Document{Settings: models.DefaultSettings()}
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc := Migrate(ApplyDefaults(&d))
	NormalizeOwnership(doc)
	return doc, nil
}

// Encode serializes d for storage.
func Encode(d *models.Document) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

func newGroup(name string, order int) models.Group {
	return models.Group{ID: uuid.NewString(), Name: name, Order: order, Nodes: []string{}}
}
