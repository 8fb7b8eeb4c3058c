package config

import (
	"os"
	"path/filepath"
	"time"
)

// Sync backends accepted by SyncBackend.
const (
	SyncNone     = "none"
	SyncMemory   = "memory"
	SyncPostgres = "postgres"
	SyncS3       = "s3"
)

// Config holds runtime settings for the homepage store.
//
// Quotas are byte counts of serialized values. LocalQuotaBytes caps the sum
// over all Local keys; the synced tier has both a per-item and a total cap.
type Config struct {
	DataDir string

	LocalQuotaBytes       int64
	SyncQuotaBytes        int64
	SyncQuotaBytesPerItem int64
	// SyncIconMaxBytes is the largest uploaded icon kept in the synced payload.
	SyncIconMaxBytes int

	SyncBackend    string
	SyncDSN        string
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3Prefix       string

	StorageTimeout   time.Duration
	UndoGracePeriod  time.Duration
	IconFetchTimeout time.Duration
	IconMaxBytes     int64
	// WallpaperURL is the daily wallpaper image; "{date}" is replaced with
	// YYYY-MM-DD. Empty disables wallpapers.
	WallpaperURL string
	// HistoryPath is a Chromium "History" database feeding the recent
	// group. Empty disables it.
	HistoryPath string

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with defaults matching the browser storage limits.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.LocalQuotaBytes = 10 * 1024 * 1024
	c.SyncQuotaBytes = 100 * 1024
	c.SyncQuotaBytesPerItem = 8 * 1024
	c.SyncIconMaxBytes = 2 * 1024
	c.SyncBackend = SyncNone
	c.S3Bucket = "homepage"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3Prefix = "sync/"
	c.StorageTimeout = 5 * time.Second
	c.UndoGracePeriod = 5 * time.Second
	c.IconFetchTimeout = 8 * time.Second
	c.IconMaxBytes = 256 * 1024
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig applies defaults, then the optional config file named by
// -c/-config, then flags. Later sources take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LocalDSN is the SQLite file backing the Local tier.
func (c *Config) LocalDSN() string {
	return filepath.Join(c.DataDir, "homepage.db")
}

// LogPath is where the command-line tool writes its log.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "homepage.log")
}

// LockPath guards DataDir against a second writer.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "homepage.lock")
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "homepage-data"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "homepage")
}

// EnsureDataDir creates DataDir if needed.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}
