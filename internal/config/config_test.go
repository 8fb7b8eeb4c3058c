package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")

	var c Config
	c.LoadDefaults()

	assert.Equal(t, filepath.Join("/xdg", "homepage"), c.DataDir)
	assert.Equal(t, int64(10*1024*1024), c.LocalQuotaBytes)
	assert.Equal(t, int64(8192), c.SyncQuotaBytesPerItem)
	assert.Equal(t, SyncNone, c.SyncBackend)
	assert.Equal(t, 5*time.Second, c.UndoGracePeriod)
	assert.Equal(t, filepath.Join("/xdg", "homepage", "homepage.db"), c.LocalDSN())
	assert.Equal(t, filepath.Join("/xdg", "homepage", "homepage.lock"), c.LockPath())
	assert.Equal(t, filepath.Join("/xdg", "homepage", "homepage.log"), c.LogPath())
}

func TestLoadConfig_NoArgsUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Empty(t, cmp.Diff(&want, cfg))
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, c *Config)
		wantErr bool
	}{
		{
			name: "short flags",
			args: []string{"show", "-d", "/tmp/hp", "-s", "postgres", "-l", "debug"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "/tmp/hp", c.DataDir)
				assert.Equal(t, SyncPostgres, c.SyncBackend)
				assert.Equal(t, "debug", c.LogLevel)
			},
		},
		{
			name: "long flags with equals",
			args: []string{"--data-dir=/srv/hp", "--sync=memory", "--dsn", "postgres://x"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "/srv/hp", c.DataDir)
				assert.Equal(t, SyncMemory, c.SyncBackend)
				assert.Equal(t, "postgres://x", c.SyncDSN)
			},
		},
		{
			name:    "unknown backend",
			args:    []string{"-s", "ftp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.LoadDefaults()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseFile_SourcesAndPrecedence(t *testing.T) {
	t.Run("json file", func(t *testing.T) {
		path := writeTemp(t, "cfg.json", `{"data_dir":"/json","undo_grace_period":"10s","sync_quota_bytes_per_item":4096}`)

		cfg, err := LoadConfig([]string{"-c", path})
		require.NoError(t, err)
		assert.Equal(t, "/json", cfg.DataDir)
		assert.Equal(t, 10*time.Second, cfg.UndoGracePeriod)
		assert.Equal(t, int64(4096), cfg.SyncQuotaBytesPerItem)
		assert.Equal(t, int64(10*1024*1024), cfg.LocalQuotaBytes, "absent keys keep defaults")
	})

	t.Run("yaml file", func(t *testing.T) {
		path := writeTemp(t, "cfg.yaml", "sync_backend: s3\ns3_bucket: bucket\nicon_fetch_timeout: 2s\nwallpaper_url: https://img.example/{date}.jpg\nhistory_path: /tmp/History\n")

		cfg, err := LoadConfig([]string{"-config", path})
		require.NoError(t, err)
		assert.Equal(t, SyncS3, cfg.SyncBackend)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, 2*time.Second, cfg.IconFetchTimeout)
		assert.Equal(t, "https://img.example/{date}.jpg", cfg.WallpaperURL)
		assert.Equal(t, "/tmp/History", cfg.HistoryPath)
	})

	t.Run("flags override file", func(t *testing.T) {
		path := writeTemp(t, "cfg.json", `{"data_dir":"/json"}`)

		cfg, err := LoadConfig([]string{"-c", path, "-d", "/flag"})
		require.NoError(t, err)
		assert.Equal(t, "/flag", cfg.DataDir)
	})

	t.Run("invalid file is an error", func(t *testing.T) {
		path := writeTemp(t, "bad.json", `{ this is not valid json`)

		_, err := LoadConfig([]string{"-c", path})
		require.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "absent.json")})
		require.Error(t, err)
	})
}
