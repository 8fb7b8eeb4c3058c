package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/pixian5/homepage-sub000/internal/flagx"
)

var knownFlags = []string{
	"-d", "--d", "-data-dir", "--data-dir",
	"-s", "--s", "-sync", "--sync",
	"-dsn", "--dsn",
	"-l", "--l", "-log-level", "--log-level",
}

// parseFlags overlays cfg with the flags it knows about:
//
//	-d, --data-dir string   directory for the local database
//	-s, --sync string       synced tier backend: none, memory, postgres, s3
//	--dsn string            Postgres DSN for the synced tier
//	-l, --log-level string  debug, info, warn, error
//
// Other arguments are filtered out first so subcommand flags do not fail the parse.
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("homepage", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.SyncBackend, "s", cfg.SyncBackend, "synced tier backend")
	fs.StringVar(&cfg.SyncBackend, "sync", cfg.SyncBackend, "synced tier backend")
	fs.StringVar(&cfg.SyncDSN, "dsn", cfg.SyncDSN, "postgres dsn for the synced tier")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	switch cfg.SyncBackend {
	case SyncNone, SyncMemory, SyncPostgres, SyncS3:
	default:
		return fmt.Errorf("unknown sync backend %q", cfg.SyncBackend)
	}
	return nil
}
