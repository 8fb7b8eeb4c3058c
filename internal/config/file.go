package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pixian5/homepage-sub000/internal/flagx"
	"github.com/pixian5/homepage-sub000/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Pointer fields tell
// "absent" from "zero" so that only keys present in the file override defaults.
type FileConfig struct {
	DataDir               *string         `json:"data_dir" yaml:"data_dir"`
	LocalQuotaBytes       *int64          `json:"local_quota_bytes" yaml:"local_quota_bytes"`
	SyncQuotaBytes        *int64          `json:"sync_quota_bytes" yaml:"sync_quota_bytes"`
	SyncQuotaBytesPerItem *int64          `json:"sync_quota_bytes_per_item" yaml:"sync_quota_bytes_per_item"`
	SyncIconMaxBytes      *int            `json:"sync_icon_max_bytes" yaml:"sync_icon_max_bytes"`
	SyncBackend           *string         `json:"sync_backend" yaml:"sync_backend"`
	SyncDSN               *string         `json:"sync_dsn" yaml:"sync_dsn"`
	S3RootUser            *string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword        *string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket              *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region              *string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint        *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3Prefix              *string         `json:"s3_prefix" yaml:"s3_prefix"`
	StorageTimeout        *timex.Duration `json:"storage_timeout" yaml:"storage_timeout"`
	UndoGracePeriod       *timex.Duration `json:"undo_grace_period" yaml:"undo_grace_period"`
	IconFetchTimeout      *timex.Duration `json:"icon_fetch_timeout" yaml:"icon_fetch_timeout"`
	IconMaxBytes          *int64          `json:"icon_max_bytes" yaml:"icon_max_bytes"`
	WallpaperURL          *string         `json:"wallpaper_url" yaml:"wallpaper_url"`
	HistoryPath           *string         `json:"history_path" yaml:"history_path"`
	LogLevel              *string         `json:"log_level" yaml:"log_level"`
	LogFormat             *string         `json:"log_format" yaml:"log_format"`
}

// parseFile overlays cfg with the file named by -c/-config. Files ending in
// .yaml or .yml are decoded as YAML, anything else as JSON. No flag means no
// change.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.DataDir, fc.DataDir)
	setInt64(&cfg.LocalQuotaBytes, fc.LocalQuotaBytes)
	setInt64(&cfg.SyncQuotaBytes, fc.SyncQuotaBytes)
	setInt64(&cfg.SyncQuotaBytesPerItem, fc.SyncQuotaBytesPerItem)
	if fc.SyncIconMaxBytes != nil {
		cfg.SyncIconMaxBytes = *fc.SyncIconMaxBytes
	}
	setString(&cfg.SyncBackend, fc.SyncBackend)
	setString(&cfg.SyncDSN, fc.SyncDSN)
	setString(&cfg.S3RootUser, fc.S3RootUser)
	setString(&cfg.S3RootPassword, fc.S3RootPassword)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.S3Prefix, fc.S3Prefix)
	if fc.StorageTimeout != nil {
		cfg.StorageTimeout = fc.StorageTimeout.Duration
	}
	if fc.UndoGracePeriod != nil {
		cfg.UndoGracePeriod = fc.UndoGracePeriod.Duration
	}
	if fc.IconFetchTimeout != nil {
		cfg.IconFetchTimeout = fc.IconFetchTimeout.Duration
	}
	setInt64(&cfg.IconMaxBytes, fc.IconMaxBytes)
	setString(&cfg.WallpaperURL, fc.WallpaperURL)
	setString(&cfg.HistoryPath, fc.HistoryPath)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt64(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}
