package document

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/timex"
)

// Location names a container: a folder when FolderID is set, otherwise a
// group.
type Location struct {
	GroupID  string
	FolderID string
}

func (l Location) String() string {
	if l.FolderID != "" {
		return "folder " + l.FolderID
	}
	return "group " + l.GroupID
}

// ItemPatch holds the fields to change on an item; nil means unchanged.
type ItemPatch struct {
	Title    *string
	URL      *string
	IconType *models.IconType
	IconData *string
	Color    *string
}

// AddItem normalizes the item URL and appends the item to loc.
func AddItem(d *models.Document, loc Location, n models.Node, now time.Time) (models.Node, error) {
	u, err := NormalizeURL(n.URL)
	if err != nil {
		return models.Node{}, err
	}
	n.URL = u
	n.Kind = models.KindItem
	n.Children = nil
	if n.IconType == "" {
		n.IconType = models.IconAuto
	}
	if strings.TrimSpace(n.Title) == "" {
		n.Title = u
	}
	return insertNew(d, loc, n, now)
}

// AddFolder appends an empty folder to loc.
func AddFolder(d *models.Document, loc Location, title string, now time.Time) (models.Node, error) {
	n := models.Node{Kind: models.KindFolder, Title: title, Children: []string{}}
	return insertNew(d, loc, n, now)
}

func insertNew(d *models.Document, loc Location, n models.Node, now time.Time) (models.Node, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := d.Nodes[n.ID]; exists {
		return models.Node{}, fmt.Errorf("node %s already exists", n.ID)
	}
	ts := timex.UnixMilli(now)
	n.CreatedAt, n.UpdatedAt = ts, ts

	if !exists(d, loc) {
		return models.Node{}, fmt.Errorf("%s: %w", loc, common.ErrNotFound)
	}
	d.Nodes[n.ID] = n
	err := editContainer(d, loc, func(ids []string) []string { return append(ids, n.ID) })
	return n, err
}

// UpdateItem applies p to the item id. A new URL is normalized before
// anything is changed.
func UpdateItem(d *models.Document, id string, p ItemPatch, now time.Time) (models.Node, error) {
	n, ok := d.Nodes[id]
	if !ok {
		return models.Node{}, fmt.Errorf("node %s: %w", id, common.ErrNotFound)
	}
	if p.URL != nil {
		if n.IsFolder() {
			return models.Node{}, fmt.Errorf("node %s is a folder", id)
		}
		u, err := NormalizeURL(*p.URL)
		if err != nil {
			return models.Node{}, err
		}
		n.URL = u
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.IconType != nil {
		n.IconType = *p.IconType
		if n.IconType == models.IconAuto || n.IconType == models.IconColor {
			n.IconData = ""
		}
	}
	if p.IconData != nil {
		n.IconData = *p.IconData
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	n.UpdatedAt = timex.UnixMilli(now)
	d.Nodes[id] = n
	return n, nil
}

// Move detaches id from wherever it is and inserts it into loc at index.
// A negative or out-of-range index appends.
func Move(d *models.Document, id string, loc Location, index int) error {
	if _, ok := d.Nodes[id]; !ok {
		return fmt.Errorf("node %s: %w", id, common.ErrNotFound)
	}
	if loc.FolderID != "" && (loc.FolderID == id || slices.Contains(Descendants(d, id), loc.FolderID)) {
		return fmt.Errorf("cannot move %s into itself", id)
	}
	if !exists(d, loc) {
		return fmt.Errorf("%s: %w", loc, common.ErrNotFound)
	}

	detach(d, map[string]bool{id: true})

	return editContainer(d, loc, func(ids []string) []string {
		if index < 0 || index > len(ids) {
			index = len(ids)
		}
		return slices.Insert(ids, index, id)
	})
}

// Remove deletes ids and every descendant of removed folders. References
// are scanned out of every group and folder, not only the expected parent.
// It returns the ids actually deleted from the node table.
func Remove(d *models.Document, ids []string) []string {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
		for _, c := range Descendants(d, id) {
			doomed[c] = true
		}
	}

	detach(d, doomed)

	var removed []string
	for id := range doomed {
		if _, ok := d.Nodes[id]; ok {
			delete(d.Nodes, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}

// Descendants lists every node below folder id, depth first.
func Descendants(d *models.Document, id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	var walk func(string)
	walk = func(fid string) {
		f, ok := d.Nodes[fid]
		if !ok || !f.IsFolder() {
			return
		}
		for _, c := range f.Children {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// Locate returns the container currently holding id.
func Locate(d *models.Document, id string) (Location, bool) {
	for _, g := range d.Groups {
		if slices.Contains(g.Nodes, id) {
			return Location{GroupID: g.ID}, true
		}
	}
	for fid, f := range d.Nodes {
		if f.IsFolder() && slices.Contains(f.Children, id) {
			return Location{FolderID: fid}, true
		}
	}
	return Location{}, false
}

func detach(d *models.Document, ids map[string]bool) {
	keep := func(id string) bool { return ids[id] }
	for i := range d.Groups {
		d.Groups[i].Nodes = slices.DeleteFunc(d.Groups[i].Nodes, keep)
	}
	for fid, f := range d.Nodes {
		if !f.IsFolder() {
			continue
		}
		if slices.ContainsFunc(f.Children, keep) {
			f.Children = slices.DeleteFunc(slices.Clone(f.Children), keep)
			d.Nodes[fid] = f
		}
	}
}

// editContainer replaces the id list behind loc with edit's result.
func editContainer(d *models.Document, loc Location, edit func([]string) []string) error {
	if loc.FolderID != "" {
		f, ok := d.Nodes[loc.FolderID]
		if !ok || !f.IsFolder() {
			return fmt.Errorf("%s: %w", loc, common.ErrNotFound)
		}
		f.Children = edit(f.Children)
		d.Nodes[loc.FolderID] = f
		return nil
	}
	g := d.Group(loc.GroupID)
	if g == nil {
		return fmt.Errorf("%s: %w", loc, common.ErrNotFound)
	}
	g.Nodes = edit(g.Nodes)
	return nil
}

func exists(d *models.Document, loc Location) bool {
	return editContainer(d, loc, func(ids []string) []string { return ids }) == nil
}
