// Package browser holds the collaborators the homepage calls into: browser
// history for the transient "recent" group, the current tab, and opening
// URLs.
package browser

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pixian5/homepage-sub000/internal/document"
	"github.com/pixian5/homepage-sub000/internal/models"
)

// RecentGroupID identifies the pseudo-group built from history. It is
// never persisted.
const RecentGroupID = "recent"

type HistoryEntry struct {
	URL       string
	Title     string
	LastVisit time.Time
}

// HistoryProvider returns recently visited pages, newest first.
type HistoryProvider interface {
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
}

type Tab struct {
	ID    string
	URL   string
	Title string
}

// TabAccessor reports the tab the homepage is shown in.
type TabAccessor interface {
	Current(ctx context.Context) (Tab, error)
}

// Opener opens a URL in the way mode asks for.
type Opener interface {
	Open(ctx context.Context, url string, mode models.OpenMode) error
}

// ParseOpenMode accepts the settings spelling of an open mode.
func ParseOpenMode(s string) (models.OpenMode, error) {
	switch m := models.OpenMode(s); m {
	case models.OpenCurrent, models.OpenNewTab, models.OpenBackground:
		return m, nil
	default:
		return "", fmt.Errorf("unknown open mode %q", s)
	}
}

// RecentGroup builds the "recent" pseudo-group from history. Entries with
// URLs that do not normalize, and repeats, are skipped. The nodes are of
// kind history and must not be stored in the document.
func RecentGroup(ctx context.Context, hp HistoryProvider, limit int) (models.Group, []models.Node, error) {
	g := models.Group{ID: RecentGroupID, Name: "Recent", Order: -1, Nodes: []string{}}
	if hp == nil || limit <= 0 {
		return g, nil, nil
	}

	// Ask for extra rows since some will be dropped.
	entries, err := hp.Recent(ctx, limit*2)
	if err != nil {
		return g, nil, fmt.Errorf("recent history: %w", err)
	}

	seen := map[string]bool{}
	var nodes []models.Node
	for _, e := range entries {
		if len(nodes) == limit {
			break
		}
		u, err := document.NormalizeURL(e.URL)
		if err != nil || seen[u] {
			continue
		}
		seen[u] = true
		title := e.Title
		if title == "" {
			title = u
		}
		ts := e.LastVisit.UnixMilli()
		n := models.Node{
			ID:        "history:" + strconv.Itoa(len(nodes)),
			Kind:      models.KindHistory,
			Title:     title,
			URL:       u,
			IconType:  models.IconAuto,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		nodes = append(nodes, n)
		g.Nodes = append(g.Nodes, n.ID)
	}
	return g, nodes, nil
}
