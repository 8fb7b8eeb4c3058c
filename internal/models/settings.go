package models

import "encoding/json"

// OpenMode selects where a shortcut opens.
type OpenMode string

const (
	OpenCurrent    OpenMode = "current"
	OpenNewTab     OpenMode = "new-tab"
	OpenBackground OpenMode = "background"
)

// Background kinds.
const (
	BackgroundColor     = "color"
	BackgroundUpload    = "upload"
	BackgroundWallpaper = "wallpaper"
)

// DefaultMaxBackups applies when the stored retention is negative.
const DefaultMaxBackups = 10

// Settings is the flat user preference map. Decoding overlays stored keys
// on DefaultSettings, so fields added later pick up their defaults.
type Settings struct {
	SyncEnabled        bool     `json:"syncEnabled"`
	EnableSearchEngine bool     `json:"enableSearchEngine"`
	SearchEngine       string   `json:"searchEngine"`
	OpenMode           OpenMode `json:"openMode"`

	BackgroundType  string `json:"backgroundType"`
	BackgroundColor string `json:"backgroundColor"`
	BackgroundImage string `json:"backgroundImage,omitempty"`

	FetchIcons       bool `json:"fetchIcons"`
	IconRetryEnabled bool `json:"iconRetryEnabled"`
	IconRetryHour    int  `json:"iconRetryHour"`

	// MaxBackups of zero disables backups.
	MaxBackups       int  `json:"maxBackups"`
	UnlimitedBackups bool `json:"unlimitedBackups"`

	Columns     int    `json:"columns"`
	IconSize    int    `json:"iconSize"`
	ShowTitles  bool   `json:"showTitles"`
	Theme       string `json:"theme"`
	ShowRecent  bool   `json:"showRecent"`
	RecentCount int    `json:"recentCount"`
}

func DefaultSettings() Settings {
	return Settings{
		SyncEnabled:        false,
		EnableSearchEngine: true,
		SearchEngine:       "google",
		OpenMode:           OpenCurrent,
		BackgroundType:     BackgroundColor,
		BackgroundColor:    "#f3f4f6",
		FetchIcons:         true,
		IconRetryEnabled:   true,
		IconRetryHour:      18,
		MaxBackups:         DefaultMaxBackups,
		Columns:            6,
		IconSize:           48,
		ShowTitles:         true,
		Theme:              "auto",
		ShowRecent:         false,
		RecentCount:        8,
	}
}

func (s *Settings) UnmarshalJSON(b []byte) error {
	type plain Settings
	p := plain(DefaultSettings())
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Settings(p)
	return nil
}

// BackupLimit returns the retention cap and whether it applies.
// A zero cap means backups are disabled.
func (s Settings) BackupLimit() (limit int, bounded bool) {
	if s.UnlimitedBackups {
		return 0, false
	}
	if s.MaxBackups < 0 {
		return DefaultMaxBackups, true
	}
	return s.MaxBackups, true
}

// BackupsEnabled reports whether a snapshot should be taken at all.
func (s Settings) BackupsEnabled() bool {
	limit, bounded := s.BackupLimit()
	return !bounded || limit > 0
}
