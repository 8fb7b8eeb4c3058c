package document

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/models"
)

// AddGroup appends a group after the current last one.
func AddGroup(d *models.Document, name string) models.Group {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Group %d", len(d.Groups)+1)
	}
	order := 0
	for _, g := range d.Groups {
		order = max(order, g.Order+1)
	}
	g := newGroup(name, order)
	d.Groups = append(d.Groups, g)
	return g
}

func RenameGroup(d *models.Document, id, name string) error {
	g := d.Group(id)
	if g == nil {
		return fmt.Errorf("group %s: %w", id, common.ErrNotFound)
	}
	if name = strings.TrimSpace(name); name != "" {
		g.Name = name
	}
	return nil
}

// ReorderGroups assigns display order from ids. Groups not listed keep
// their relative order after the listed ones.
func ReorderGroups(d *models.Document, ids []string) error {
	for _, id := range ids {
		if d.Group(id) == nil {
			return fmt.Errorf("group %s: %w", id, common.ErrNotFound)
		}
	}
	rest := SortedGroups(d)
	order := 0
	for _, id := range ids {
		d.Group(id).Order = order
		order++
	}
	for _, g := range rest {
		if !slices.Contains(ids, g.ID) {
			d.Group(g.ID).Order = order
			order++
		}
	}
	return nil
}

// DeleteGroup removes the group and every node it holds. The last
// remaining group cannot be deleted.
func DeleteGroup(d *models.Document, id string) ([]string, error) {
	idx := slices.IndexFunc(d.Groups, func(g models.Group) bool { return g.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("group %s: %w", id, common.ErrNotFound)
	}
	if len(d.Groups) == 1 {
		return nil, common.ErrLastGroup
	}
	held := slices.Clone(d.Groups[idx].Nodes)
	d.Groups = slices.Delete(d.Groups, idx, idx+1)
	return Remove(d, held), nil
}

// SortedGroups returns the groups in display order. Ties keep insertion
// order.
func SortedGroups(d *models.Document) []models.Group {
	out := slices.Clone(d.Groups)
	slices.SortStableFunc(out, func(a, b models.Group) int { return cmp.Compare(a.Order, b.Order) })
	return out
}
