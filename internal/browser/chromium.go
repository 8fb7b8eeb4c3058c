package browser

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// chromiumEpoch is where Chromium's visit timestamps (microseconds) start.
var chromiumEpoch = time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)

// ChromiumHistory reads the "History" SQLite file of a Chromium profile.
// The file is opened read-only and immutable, so it is safe to point at a
// copy or at a profile whose browser is closed.
type ChromiumHistory struct {
	Path string
}

func (h ChromiumHistory) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	dsn := (&url.URL{Scheme: "file", Path: h.Path, RawQuery: "mode=ro&immutable=1"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT url, title, last_visit_time FROM urls WHERE hidden = 0 ORDER BY last_visit_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var visit int64
		if err := rows.Scan(&e.URL, &e.Title, &visit); err != nil {
			return nil, err
		}
		e.LastVisit = chromiumEpoch.Add(time.Duration(visit) * time.Microsecond)
		out = append(out, e)
	}
	return out, rows.Err()
}
