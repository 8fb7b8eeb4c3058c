package app

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/config"
	"github.com/pixian5/homepage-sub000/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.DataDir = t.TempDir()
	c.SyncBackend = config.SyncMemory
	return c
}

func newTestApp(t *testing.T, c *config.Config, out *bytes.Buffer) *App {
	t.Helper()
	a, err := NewApp(context.Background(), c,
		WithLogger(logging.Nop()),
		WithIO(strings.NewReader(""), out, out),
	)
	require.NoError(t, err)
	return a
}

func TestApp_PersistsAcrossRuns(t *testing.T) {
	c := testConfig(t)
	var out bytes.Buffer

	a := newTestApp(t, c, &out)
	require.NoError(t, a.Run(context.Background(), []string{"add", "example.com", "-t", "Example"}))
	require.NoError(t, a.Close())
	assert.Contains(t, out.String(), "Added Example")

	out.Reset()
	a = newTestApp(t, c, &out)
	defer a.Close()
	require.NoError(t, a.Run(context.Background(), []string{"show"}))
	assert.Contains(t, out.String(), "https://example.com")
}

func TestApp_SecondInstanceIsLockedOut(t *testing.T) {
	prev := lockWait
	lockWait = 150 * time.Millisecond
	t.Cleanup(func() { lockWait = prev })

	c := testConfig(t)
	var out bytes.Buffer
	a := newTestApp(t, c, &out)

	_, err := NewApp(context.Background(), c, WithLogger(logging.Nop()))
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, a.Close())
	b, err := NewApp(context.Background(), c, WithLogger(logging.Nop()))
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestApp_WritesLogFile(t *testing.T) {
	c := testConfig(t)
	c.LogLevel = "debug"
	a, err := NewApp(context.Background(), c, WithIO(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}))
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background(), []string{"groups"}))
	require.NoError(t, a.Close())

	b, err := os.ReadFile(c.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(b), "command started")
}

func TestApp_UnreachableSyncBackendLeavesSyncOff(t *testing.T) {
	c := testConfig(t)
	c.SyncBackend = config.SyncPostgres
	c.SyncDSN = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"

	var out bytes.Buffer
	a := newTestApp(t, c, &out)
	defer a.Close()

	err := a.Run(context.Background(), []string{"sync", "on"})
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
	out.Reset()
	require.NoError(t, a.Run(context.Background(), []string{"sync"}))
	assert.Contains(t, out.String(), "Sync is off.")
}
