// Package config loads runtime configuration for the homepage store.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. JSON by default,
//     YAML when the file ends in .yaml or .yml.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
// Durations accept strings like "5s" or integer nanoseconds:
//
//	{
//	  "data_dir": "/home/me/.local/share/homepage",
//	  "sync_backend": "postgres",
//	  "sync_dsn": "postgres://homepage@localhost/homepage?sslmode=disable",
//	  "undo_grace_period": "5s",
//	  "sync_quota_bytes_per_item": 8192
//	}
//
// Environment variables are not read directly, except XDG_DATA_HOME for
// the default DataDir.
package config
