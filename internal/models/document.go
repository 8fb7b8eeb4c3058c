// Package models defines the persisted homepage document and the cache
// entries stored next to it.
package models

// SchemaVersion is the document layout written by this build.
const SchemaVersion = 1

// Well-known storage keys.
const (
	DocumentKey       = "homepageData"
	IconCacheKey      = "iconCache"
	WallpaperCacheKey = "wallpaperCache"
	IconRetryKey      = "iconRetryWindow"
)

// CorruptKey is where an undecodable value for key is preserved.
func CorruptKey(key string) string { return key + ".corrupt" }

// Document is the root record, one per storage tier.
type Document struct {
	SchemaVersion int             `json:"schemaVersion"`
	Settings      Settings        `json:"settings"`
	Groups        []Group         `json:"groups"`
	Nodes         map[string]Node `json:"nodes"`
	Backups       []Backup        `json:"backups"`
	// LastUpdated is epoch milliseconds and strictly increases on every save.
	LastUpdated int64 `json:"lastUpdated"`
}

// Group is a top-level container of node ids.
type Group struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Order int      `json:"order"`
	Nodes []string `json:"nodes"`
}

// Backup is an independent deep copy of a document.
type Backup struct {
	ID        string    `json:"id"`
	Timestamp int64     `json:"timestamp"`
	Data      *Document `json:"data"`
}

// Clone returns a deep copy sharing no memory with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		SchemaVersion: d.SchemaVersion,
		Settings:      d.Settings,
		LastUpdated:   d.LastUpdated,
	}
	if d.Groups != nil {
		out.Groups = make([]Group, len(d.Groups))
		for i, g := range d.Groups {
			out.Groups[i] = g.Clone()
		}
	}
	if d.Nodes != nil {
		out.Nodes = make(map[string]Node, len(d.Nodes))
		for id, n := range d.Nodes {
			out.Nodes[id] = n.Clone()
		}
	}
	if d.Backups != nil {
		out.Backups = make([]Backup, len(d.Backups))
		for i, b := range d.Backups {
			out.Backups[i] = Backup{ID: b.ID, Timestamp: b.Timestamp, Data: b.Data.Clone()}
		}
	}
	return out
}

func (g Group) Clone() Group {
	if g.Nodes != nil {
		g.Nodes = append([]string(nil), g.Nodes...)
	}
	return g
}

// Group returns the group with id, or nil.
func (d *Document) Group(id string) *Group {
	for i := range d.Groups {
		if d.Groups[i].ID == id {
			return &d.Groups[i]
		}
	}
	return nil
}
