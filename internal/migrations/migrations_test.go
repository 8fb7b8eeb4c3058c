package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	for name, fsys := range map[string]fs.FS{"sqlite": SQLite(), "postgres": Postgres()} {
		t.Run(name, func(t *testing.T) {
			b, err := fs.ReadFile(fsys, "00001_kv.sql")
			require.NoError(t, err)
			require.True(t, strings.Contains(string(b), "-- +goose Up"))
			require.True(t, strings.Contains(string(b), "CREATE TABLE IF NOT EXISTS kv"))
		})
	}
}
