package document

import (
	"slices"

	"github.com/pixian5/homepage-sub000/internal/models"
)

// NormalizeOwnership enforces single ownership. References to missing
// nodes are dropped, and a node referenced from several containers stays
// only in the first one met walking groups in display order, depth first.
// Folder cycles are broken the same way. It reports whether d changed.
func NormalizeOwnership(d *models.Document) bool {
	changed := false
	claimed := make(map[string]bool, len(d.Nodes))

	filter := func(ids []string) []string {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := d.Nodes[id]; !ok || claimed[id] {
				changed = true
				continue
			}
			claimed[id] = true
			out = append(out, id)
		}
		return out
	}

	var walk func(fid string)
	walk = func(fid string) {
		f := d.Nodes[fid]
		if !f.IsFolder() {
			return
		}
		f.Children = filter(f.Children)
		d.Nodes[fid] = f
		for _, c := range f.Children {
			walk(c)
		}
	}

	for _, g := range SortedGroups(d) {
		grp := d.Group(g.ID)
		grp.Nodes = filter(grp.Nodes)
		for _, id := range grp.Nodes {
			walk(id)
		}
	}

	// Folders unreachable from any group still must not share children.
	var orphans []string
	for id, n := range d.Nodes {
		if n.IsFolder() && !claimed[id] {
			orphans = append(orphans, id)
		}
	}
	slices.Sort(orphans)
	for _, id := range orphans {
		if !claimed[id] {
			claimed[id] = true
			walk(id)
		}
	}
	return changed
}
