package models

// IconEntry is a cached icon keyed by node URL, or node id without one.
type IconEntry struct {
	DataURL string `json:"dataUrl"`
	TS      int64  `json:"ts"`
	Failed  bool   `json:"failed,omitempty"`
}

// IconCache maps cache keys to entries.
type IconCache map[string]IconEntry

// WallpaperEntry is a daily wallpaper keyed by its date.
type WallpaperEntry struct {
	Date    string `json:"date"`
	URL     string `json:"url"`
	DataURL string `json:"dataUrl"`
	TS      int64  `json:"ts"`
}

type WallpaperCache map[string]WallpaperEntry
