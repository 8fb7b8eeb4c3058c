// Package app assembles the homepage store from configuration: it takes
// the data directory lock, opens the Local and Synced areas, builds the
// session and hands control to the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/pixian5/homepage-sub000/internal/browser"
	"github.com/pixian5/homepage-sub000/internal/cli"
	"github.com/pixian5/homepage-sub000/internal/config"
	"github.com/pixian5/homepage-sub000/internal/icons"
	"github.com/pixian5/homepage-sub000/internal/logging"
	"github.com/pixian5/homepage-sub000/internal/repositories/kv"
	"github.com/pixian5/homepage-sub000/internal/services"
	"github.com/pixian5/homepage-sub000/internal/storage"
	"github.com/pixian5/homepage-sub000/internal/wallpaper"
)

// ErrLocked means another process owns the data directory.
var ErrLocked = errors.New("data directory is in use by another homepage process")

// lockWait bounds how long NewApp waits for the data directory lock.
var lockWait = 2 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	session services.Session
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	closers []func() error
}

// Option adjusts an App before it opens anything.
type Option func(*App)

// WithIO replaces the process stdio.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) { a.in, a.out, a.errOut = in, out, errOut }
}

// WithLogger replaces the file logger.
func WithLogger(l logging.Logger) Option { return func(a *App) { a.logger = l } }

// NewApp locks the data directory and opens the storage areas. Close must
// be called to release them.
func NewApp(ctx context.Context, c *config.Config, opts ...Option) (*App, error) {
	a := &App{config: c, in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}

	if err := c.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	if err := a.lock(ctx); err != nil {
		return nil, err
	}
	if a.logger == nil {
		if err := a.openLog(); err != nil {
			a.Close()
			return nil, err
		}
	}

	localDB, err := kv.OpenSQLite(ctx, c.LocalDSN())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("local storage: %w", err)
	}
	a.closers = append(a.closers, localDB.Close)
	local := kv.NewSQLiteRepository(localDB)

	synced := a.openSynced(ctx)

	store := storage.NewAdapter(local, synced,
		storage.WithQuota(storage.Local, storage.Quota{TotalBytes: c.LocalQuotaBytes}),
		storage.WithQuota(storage.Synced, storage.Quota{
			TotalBytes:   c.SyncQuotaBytes,
			PerItemBytes: c.SyncQuotaBytesPerItem,
		}),
		storage.WithTimeout(c.StorageTimeout),
		storage.WithLogger(a.logger),
	)

	sOpts := []services.Option{
		services.WithLogger(a.logger),
		services.WithIconFetcher(icons.NewHTTPFetcher(c.IconFetchTimeout, c.IconMaxBytes), 0),
		services.WithOpener(browser.SystemOpener{}),
		services.WithGracePeriod(c.UndoGracePeriod),
		services.WithSyncIconMaxBytes(c.SyncIconMaxBytes),
	}
	if c.WallpaperURL != "" {
		dl := &wallpaper.HTTPDownloader{
			Client:   &http.Client{Timeout: c.IconFetchTimeout},
			MaxBytes: 8 * c.IconMaxBytes,
		}
		sOpts = append(sOpts, services.WithWallpaper(c.WallpaperURL, dl))
	}
	if c.HistoryPath != "" {
		sOpts = append(sOpts, services.WithHistory(browser.ChromiumHistory{Path: c.HistoryPath}))
	}
	a.session = services.NewSession(store, sOpts...)
	return a, nil
}

func (a *App) lock(ctx context.Context) error {
	fl := flock.New(a.config.LockPath())
	ctx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	ok, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if !ok {
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("lock %s: %w", fl.Path(), err)
		}
		return ErrLocked
	}
	a.closers = append(a.closers, fl.Unlock)
	return nil
}

func (a *App) openLog() error {
	f, err := os.OpenFile(a.config.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	a.closers = append(a.closers, f.Close)
	a.logger = logging.New(f, a.config.LogFormat, a.config.LogLevel)
	return nil
}

// openSynced returns the configured Synced area, or nil when sync is off
// or the backend cannot be reached. A nil area makes the tier unavailable,
// which the session reports when sync is turned on.
func (a *App) openSynced(ctx context.Context) kv.Repository {
	c := a.config
	switch c.SyncBackend {
	case config.SyncMemory:
		return kv.NewMemoryRepository()
	case config.SyncPostgres:
		db, err := kv.OpenPostgres(ctx, c.SyncDSN)
		if err != nil {
			a.logger.Warn(ctx, "synced storage unavailable", "backend", c.SyncBackend, "error", err)
			return nil
		}
		a.closers = append(a.closers, db.Close)
		return kv.NewPostgresRepository(db)
	case config.SyncS3:
		repo, err := kv.NewS3Repository(ctx, kv.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Prefix:       c.S3Prefix,
		})
		if err != nil {
			a.logger.Warn(ctx, "synced storage unavailable", "backend", c.SyncBackend, "error", err)
			return nil
		}
		return repo
	default:
		return nil
	}
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run executes args as one command. A signal cancels the command context.
func (a *App) Run(ctx context.Context, args []string) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	stop := a.initSignalHandler(cancelFunc)
	defer stop()

	a.logger.Debug(ctx, "command started", "args", args)
	err := cli.NewApp(a.session, a.in, a.out, a.errOut).Run(ctx, args)
	if err != nil {
		a.logger.Error(ctx, "command failed", "args", args, "error", err)
	}
	return err
}

// Close releases everything NewApp opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
