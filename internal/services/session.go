package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pixian5/homepage-sub000/internal/backup"
	"github.com/pixian5/homepage-sub000/internal/browser"
	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/document"
	"github.com/pixian5/homepage-sub000/internal/icons"
	"github.com/pixian5/homepage-sub000/internal/logging"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/persist"
	"github.com/pixian5/homepage-sub000/internal/reconcile"
	"github.com/pixian5/homepage-sub000/internal/storage"
	"github.com/pixian5/homepage-sub000/internal/transfer"
	"github.com/pixian5/homepage-sub000/internal/undo"
	"github.com/pixian5/homepage-sub000/internal/wallpaper"
)

var (
	ErrNotLoaded = errors.New("session not loaded")
	ErrNoOpener  = errors.New("no url opener configured")
	ErrNoTabs    = errors.New("no tab accessor configured")
)

// Session owns the live document. Every operation after Load works on it
// and saves it through the degradation pipeline before returning.
type Session interface {
	Load(ctx context.Context) (reconcile.Result, icons.Sweep)
	Loaded() bool
	Document() *models.Document

	AddItem(ctx context.Context, loc document.Location, n models.Node) (models.Node, persist.Outcome, error)
	AddCurrentTab(ctx context.Context, loc document.Location) (models.Node, persist.Outcome, error)
	AddFolder(ctx context.Context, loc document.Location, title string) (models.Node, persist.Outcome, error)
	UpdateItem(ctx context.Context, id string, p document.ItemPatch) (models.Node, persist.Outcome, error)
	Move(ctx context.Context, id string, loc document.Location, index int) (persist.Outcome, error)
	Delete(ctx context.Context, ids []string) ([]string, persist.Outcome, error)
	Undo(ctx context.Context) (persist.Outcome, bool)
	PendingDelete() []string

	AddGroup(ctx context.Context, name string) (models.Group, persist.Outcome, error)
	RenameGroup(ctx context.Context, id, name string) (persist.Outcome, error)
	ReorderGroups(ctx context.Context, ids []string) (persist.Outcome, error)
	DeleteGroup(ctx context.Context, id string) ([]string, persist.Outcome, error)

	UpdateSettings(ctx context.Context, edit func(*models.Settings)) (persist.Outcome, error)
	SetSync(ctx context.Context, on bool) (reconcile.Winner, persist.Outcome, error)

	Import(ctx context.Context, raw []byte, st transfer.Strategy) (transfer.Report, persist.Outcome, error)
	Export(ctx context.Context) ([]byte, error)

	Backups() []models.Backup
	TakeBackup(ctx context.Context) (models.Backup, persist.Outcome, error)
	Restore(ctx context.Context, id string) (persist.Outcome, error)
	DeleteBackup(ctx context.Context, id string) (persist.Outcome, error)

	Icon(ctx context.Context, id string) (icons.Artifact, error)
	RefreshIcon(ctx context.Context, id string) (icons.Artifact, error)
	RetryIcons(ctx context.Context) icons.Sweep
	PruneIcons(ctx context.Context) int

	Wallpaper(ctx context.Context) (models.WallpaperEntry, bool)
	Recent(ctx context.Context) (models.Group, []models.Node, error)
	Open(ctx context.Context, id string) error
}

type session struct {
	store      *storage.Adapter
	pipeline   *persist.Pipeline
	reconciler *reconcile.Reconciler
	backups    *backup.Manager
	undo       *undo.Manager
	icons      *icons.Cache
	wallpapers *wallpaper.Cache
	history    browser.HistoryProvider
	tabs       browser.TabAccessor
	opener     browser.Opener
	log        logging.Logger
	now        func() time.Time

	mu     sync.Mutex
	doc    *models.Document
	recent map[string]models.Node
}

type sessionConfig struct {
	log          logging.Logger
	now          func() time.Time
	fetcher      icons.Fetcher
	concurrency  int
	wpPattern    string
	wpDownloader wallpaper.Downloader
	history      browser.HistoryProvider
	tabs         browser.TabAccessor
	opener       browser.Opener
	grace        time.Duration
	afterFunc    func(time.Duration, func()) undo.Timer
	iconMax      int
}

type Option func(*sessionConfig)

func WithLogger(l logging.Logger) Option { return func(c *sessionConfig) { c.log = l } }

func WithClock(now func() time.Time) Option { return func(c *sessionConfig) { c.now = now } }

// WithIconFetcher enables favicon fetching with up to concurrency parallel
// retries.
func WithIconFetcher(f icons.Fetcher, concurrency int) Option {
	return func(c *sessionConfig) { c.fetcher, c.concurrency = f, concurrency }
}

// WithWallpaper enables the daily wallpaper. pattern may contain "{date}".
func WithWallpaper(pattern string, dl wallpaper.Downloader) Option {
	return func(c *sessionConfig) { c.wpPattern, c.wpDownloader = pattern, dl }
}

func WithHistory(hp browser.HistoryProvider) Option { return func(c *sessionConfig) { c.history = hp } }

func WithTabs(t browser.TabAccessor) Option { return func(c *sessionConfig) { c.tabs = t } }

func WithOpener(o browser.Opener) Option { return func(c *sessionConfig) { c.opener = o } }

func WithGracePeriod(d time.Duration) Option { return func(c *sessionConfig) { c.grace = d } }

// WithAfterFunc replaces the undo timer factory.
func WithAfterFunc(f func(time.Duration, func()) undo.Timer) Option {
	return func(c *sessionConfig) { c.afterFunc = f }
}

func WithSyncIconMaxBytes(n int) Option { return func(c *sessionConfig) { c.iconMax = n } }

// NewSession wires the persistence components around store. The session is
// unusable until Load.
func NewSession(store *storage.Adapter, opts ...Option) Session {
	cfg := sessionConfig{log: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &session{
		store:   store,
		history: cfg.history,
		tabs:    cfg.tabs,
		opener:  cfg.opener,
		log:     cfg.log,
		now:     cfg.now,
	}

	pOpts := []persist.Option{persist.WithLogger(cfg.log), persist.WithClock(cfg.now)}
	if cfg.iconMax > 0 {
		pOpts = append(pOpts, persist.WithSyncIconMaxBytes(cfg.iconMax))
	}
	s.pipeline = persist.New(store, pOpts...)
	s.reconciler = reconcile.New(store, s.pipeline, reconcile.WithLogger(cfg.log), reconcile.WithClock(cfg.now))
	s.backups = backup.New(backup.WithLogger(cfg.log), backup.WithClock(cfg.now))

	uOpts := []undo.Option{undo.WithLogger(cfg.log), undo.WithGracePeriod(cfg.grace)}
	if cfg.afterFunc != nil {
		uOpts = append(uOpts, undo.WithAfterFunc(cfg.afterFunc))
	}
	s.undo = undo.New(undoStore{s}, uOpts...)

	iOpts := []icons.Option{icons.WithLogger(cfg.log), icons.WithClock(cfg.now)}
	if cfg.concurrency > 0 {
		iOpts = append(iOpts, icons.WithConcurrency(cfg.concurrency))
	}
	s.icons = icons.NewCache(store, cfg.fetcher, iOpts...)

	if cfg.wpPattern != "" && cfg.wpDownloader != nil {
		s.wallpapers = wallpaper.New(store, cfg.wpPattern, cfg.wpDownloader,
			wallpaper.WithLogger(cfg.log), wallpaper.WithClock(cfg.now))
	}
	return s
}

// Load reconciles the tiers into the live document and then runs the icon
// retry sweep if it is due.
func (s *session) Load(ctx context.Context) (reconcile.Result, icons.Sweep) {
	res := s.reconciler.Load(ctx)

	s.mu.Lock()
	s.doc = res.Document
	settings := s.doc.Settings
	s.mu.Unlock()

	return res, s.icons.RetryIfDue(ctx, settings)
}

func (s *session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil
}

// Document returns a deep copy of the live document.
func (s *session) Document() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	return s.doc.Clone()
}

// mutate applies edit to a copy of the live document. The copy replaces
// the live document and is saved only when edit succeeds, so a rejected
// edit leaves nothing behind.
func (s *session) mutate(ctx context.Context, edit func(d *models.Document) error) (persist.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return persist.Outcome{}, ErrNotLoaded
	}
	next := s.doc.Clone()
	if err := edit(next); err != nil {
		return persist.Outcome{}, err
	}
	s.doc = next
	return s.persistLocked(ctx), nil
}

func (s *session) persistLocked(ctx context.Context) persist.Outcome {
	out := s.pipeline.Persist(ctx, s.doc)
	if !out.Persisted() {
		s.log.Error(ctx, "document not saved", "error", out.Err)
	}
	return out
}

func (s *session) AddItem(ctx context.Context, loc document.Location, n models.Node) (models.Node, persist.Outcome, error) {
	var added models.Node
	out, err := s.mutate(ctx, func(d *models.Document) error {
		var err error
		added, err = document.AddItem(d, loc, n, s.now())
		return err
	})
	return added, out, err
}

// AddCurrentTab bookmarks the tab the homepage is shown in.
func (s *session) AddCurrentTab(ctx context.Context, loc document.Location) (models.Node, persist.Outcome, error) {
	if s.tabs == nil {
		return models.Node{}, persist.Outcome{}, ErrNoTabs
	}
	tab, err := s.tabs.Current(ctx)
	if err != nil {
		return models.Node{}, persist.Outcome{}, fmt.Errorf("current tab: %w", err)
	}
	return s.AddItem(ctx, loc, models.Node{Title: tab.Title, URL: tab.URL})
}

func (s *session) AddFolder(ctx context.Context, loc document.Location, title string) (models.Node, persist.Outcome, error) {
	var added models.Node
	out, err := s.mutate(ctx, func(d *models.Document) error {
		var err error
		added, err = document.AddFolder(d, loc, title, s.now())
		return err
	})
	return added, out, err
}

func (s *session) UpdateItem(ctx context.Context, id string, p document.ItemPatch) (models.Node, persist.Outcome, error) {
	var updated models.Node
	out, err := s.mutate(ctx, func(d *models.Document) error {
		var err error
		updated, err = document.UpdateItem(d, id, p, s.now())
		return err
	})
	return updated, out, err
}

func (s *session) Move(ctx context.Context, id string, loc document.Location, index int) (persist.Outcome, error) {
	return s.mutate(ctx, func(d *models.Document) error {
		return document.Move(d, id, loc, index)
	})
}

// Delete backs the document up, removes ids and opens the undo window.
func (s *session) Delete(ctx context.Context, ids []string) ([]string, persist.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, persist.Outcome{}, ErrNotLoaded
	}
	found := false
	for _, id := range ids {
		if _, ok := s.doc.Nodes[id]; ok {
			found = true
			break
		}
	}
	if !found {
		return nil, persist.Outcome{}, fmt.Errorf("nodes %v: %w", ids, common.ErrNotFound)
	}

	before := s.doc.Clone()
	s.backups.Push(ctx, s.doc)
	return s.undo.DeleteFrom(ctx, before, ids)
}

func (s *session) Undo(ctx context.Context) (persist.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return persist.Outcome{}, false
	}
	return s.undo.Revert(ctx)
}

func (s *session) PendingDelete() []string {
	return s.undo.Pending()
}

func (s *session) AddGroup(ctx context.Context, name string) (models.Group, persist.Outcome, error) {
	var g models.Group
	out, err := s.mutate(ctx, func(d *models.Document) error {
		g = document.AddGroup(d, name)
		return nil
	})
	return g, out, err
}

func (s *session) RenameGroup(ctx context.Context, id, name string) (persist.Outcome, error) {
	return s.mutate(ctx, func(d *models.Document) error {
		return document.RenameGroup(d, id, name)
	})
}

func (s *session) ReorderGroups(ctx context.Context, ids []string) (persist.Outcome, error) {
	return s.mutate(ctx, func(d *models.Document) error {
		return document.ReorderGroups(d, ids)
	})
}

// DeleteGroup drops a group with its nodes after taking a backup.
func (s *session) DeleteGroup(ctx context.Context, id string) ([]string, persist.Outcome, error) {
	var removed []string
	out, err := s.mutate(ctx, func(d *models.Document) error {
		if d.Group(id) == nil {
			return fmt.Errorf("group %s: %w", id, common.ErrNotFound)
		}
		if len(d.Groups) == 1 {
			return common.ErrLastGroup
		}
		s.backups.Push(ctx, d)
		var err error
		removed, err = document.DeleteGroup(d, id)
		return err
	})
	return removed, out, err
}

// UpdateSettings applies edit to the settings. The sync flag is not
// changed here; SetSync does that since it has to reconcile.
func (s *session) UpdateSettings(ctx context.Context, edit func(*models.Settings)) (persist.Outcome, error) {
	return s.mutate(ctx, func(d *models.Document) error {
		syncOn := d.Settings.SyncEnabled
		edit(&d.Settings)
		d.Settings.SyncEnabled = syncOn
		d.Backups = backup.Trim(d.Backups, d.Settings)
		return nil
	})
}

// SetSync turns sync on or off. Turning it on reconciles against the
// Synced document first, so a newer copy from another device wins.
func (s *session) SetSync(ctx context.Context, on bool) (reconcile.Winner, persist.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return reconcile.WinnerDefault, persist.Outcome{}, ErrNotLoaded
	}

	if !on {
		s.doc.Settings.SyncEnabled = false
		return reconcile.WinnerLocal, s.persistLocked(ctx), nil
	}
	if !s.store.Available(storage.Synced) {
		return reconcile.WinnerLocal, persist.Outcome{}, fmt.Errorf("sync: %w", common.ErrStorageUnavailable)
	}

	local := s.doc.Clone()
	local.Settings.SyncEnabled = true
	doc, winner := reconcile.Resolve(local, s.reconciler.ReadSynced(ctx))
	s.doc = doc
	s.log.Info(ctx, "sync enabled", "winner", winner.String())
	return winner, s.persistLocked(ctx), nil
}

// Import validates raw and merges it in with st. A backup of the current
// document is kept before the import lands.
func (s *session) Import(ctx context.Context, raw []byte, st transfer.Strategy) (transfer.Report, persist.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return transfer.Report{}, persist.Outcome{}, ErrNotLoaded
	}

	cur := s.doc.Clone()
	s.backups.Push(ctx, cur)
	next, rep, err := transfer.Import(cur, raw, st, s.now())
	if err != nil {
		s.log.Warn(ctx, "import rejected", "strategy", string(st), "error", err)
		return transfer.Report{}, persist.Outcome{}, err
	}
	s.doc = next
	s.log.Info(ctx, "import applied", "strategy", string(st),
		"addedNodes", rep.AddedNodes, "updatedNodes", rep.UpdatedNodes, "addedGroups", rep.AddedGroups)
	return rep, s.persistLocked(ctx), nil
}

func (s *session) Export(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	return transfer.Export(s.doc)
}

func (s *session) Backups() []models.Backup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	return s.doc.Clone().Backups
}

// TakeBackup pushes a manual snapshot. It fails when backups are
// disabled in the settings.
func (s *session) TakeBackup(ctx context.Context) (models.Backup, persist.Outcome, error) {
	var b models.Backup
	out, err := s.mutate(ctx, func(d *models.Document) error {
		var ok bool
		if b, ok = s.backups.Push(ctx, d); !ok {
			return errors.New("backups are disabled")
		}
		return nil
	})
	return b, out, err
}

func (s *session) Restore(ctx context.Context, id string) (persist.Outcome, error) {
	return s.mutate(ctx, func(d *models.Document) error {
		restored, err := s.backups.Restore(ctx, d, id)
		if err != nil {
			return err
		}
		*d = *restored
		return nil
	})
}

func (s *session) DeleteBackup(ctx context.Context, id string) (persist.Outcome, error) {
	return s.mutate(ctx, func(d *models.Document) error {
		return backup.Delete(d, id)
	})
}

func (s *session) node(id string) (models.Node, models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return models.Node{}, models.Settings{}, ErrNotLoaded
	}
	if n, ok := s.doc.Nodes[id]; ok {
		return n.Clone(), s.doc.Settings, nil
	}
	if n, ok := s.recent[id]; ok {
		return n, s.doc.Settings, nil
	}
	return models.Node{}, models.Settings{}, fmt.Errorf("node %s: %w", id, common.ErrNotFound)
}

// Icon resolves the icon for node id. Fetch failures end in a generated
// avatar, never an error.
func (s *session) Icon(ctx context.Context, id string) (icons.Artifact, error) {
	n, settings, err := s.node(id)
	if err != nil {
		return icons.Artifact{}, err
	}
	return s.icons.Resolve(ctx, n, settings), nil
}

func (s *session) RefreshIcon(ctx context.Context, id string) (icons.Artifact, error) {
	n, settings, err := s.node(id)
	if err != nil {
		return icons.Artifact{}, err
	}
	return s.icons.Refresh(ctx, n, settings), nil
}

func (s *session) RetryIcons(ctx context.Context) icons.Sweep {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return icons.Sweep{}
	}
	settings := s.doc.Settings
	s.mu.Unlock()
	return s.icons.RetryIfDue(ctx, settings)
}

func (s *session) PruneIcons(ctx context.Context) int {
	d := s.Document()
	if d == nil {
		return 0
	}
	return s.icons.Prune(ctx, d)
}

// Wallpaper returns today's wallpaper, or the newest earlier one.
func (s *session) Wallpaper(ctx context.Context) (models.WallpaperEntry, bool) {
	if s.wallpapers == nil {
		return models.WallpaperEntry{}, false
	}
	return s.wallpapers.Today(ctx)
}

// Recent builds the recent pseudo-group when the settings show it. Its
// nodes are remembered for Icon and Open but never enter the document.
func (s *session) Recent(ctx context.Context) (models.Group, []models.Node, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return models.Group{}, nil, ErrNotLoaded
	}
	limit := 0
	if s.doc.Settings.ShowRecent {
		limit = s.doc.Settings.RecentCount
	}
	s.mu.Unlock()

	g, nodes, err := browser.RecentGroup(ctx, s.history, limit)
	if err != nil {
		return g, nil, err
	}

	recent := make(map[string]models.Node, len(nodes))
	for _, n := range nodes {
		recent[n.ID] = n
	}
	s.mu.Lock()
	s.recent = recent
	s.mu.Unlock()
	return g, nodes, nil
}

// Open opens node id with the configured open mode.
func (s *session) Open(ctx context.Context, id string) error {
	if s.opener == nil {
		return ErrNoOpener
	}
	n, settings, err := s.node(id)
	if err != nil {
		return err
	}
	if n.IsFolder() || n.URL == "" {
		return fmt.Errorf("node %s has no url: %w", id, common.ErrInvalidURL)
	}
	return s.opener.Open(ctx, n.URL, settings.OpenMode)
}

// undoStore hands the live document to the undo manager. The session
// holds mu around every undo call.
type undoStore struct{ s *session }

func (u undoStore) Current() *models.Document { return u.s.doc }

func (u undoStore) Replace(d *models.Document) { u.s.doc = d }

func (u undoStore) Persist(ctx context.Context) persist.Outcome { return u.s.persistLocked(ctx) }
