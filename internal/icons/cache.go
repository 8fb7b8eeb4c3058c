// Package icons resolves the icon shown for a node. Fetched favicons are
// cached in the Local tier under models.IconCacheKey. Failed fetches are
// remembered so renders do not hit the network again, and a daily sweep
// retries them.
package icons

import (
	"context"
	"net/url"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pixian5/homepage-sub000/internal/logging"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/storage"
	"github.com/pixian5/homepage-sub000/internal/timex"
)

// Store is the JSON side of the storage adapter.
type Store interface {
	GetJSON(ctx context.Context, t storage.Tier, key string, v any) (bool, error)
	SetJSON(ctx context.Context, t storage.Tier, key string, v any) error
}

// Source says how an artifact was produced.
type Source int

const (
	SourceInline Source = iota
	SourceCache
	SourceFetched
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceInline:
		return "inline"
	case SourceCache:
		return "cache"
	case SourceFetched:
		return "fetched"
	default:
		return "fallback"
	}
}

// Artifact is what to render: a data URL, or an image URL for remote
// icons.
type Artifact struct {
	Ref    string
	Source Source
}

const defaultConcurrency = 4

type Cache struct {
	store       Store
	fetcher     Fetcher
	log         logging.Logger
	now         func() time.Time
	concurrency int

	mu      sync.Mutex
	entries models.IconCache
	loaded  bool
}

type Option func(*Cache)

func WithLogger(l logging.Logger) Option { return func(c *Cache) { c.log = l } }

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithConcurrency bounds parallel fetches during a retry sweep.
func WithConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func NewCache(store Store, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		store:       store,
		fetcher:     fetcher,
		log:         logging.Nop(),
		now:         time.Now,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key is the cache key for n: its URL, or its id without one.
func Key(n models.Node) string {
	if n.URL != "" {
		return n.URL
	}
	return n.ID
}

// Resolve never fails: every path ends in at least a generated avatar.
func (c *Cache) Resolve(ctx context.Context, n models.Node, s models.Settings) Artifact {
	if n.HasInlineIcon() {
		return Artifact{Ref: n.IconData, Source: SourceInline}
	}
	if n.IconType == models.IconColor {
		return Artifact{Ref: ColorTile(n.Title, n.URL, n.Color), Source: SourceFallback}
	}

	key := Key(n)
	c.mu.Lock()
	c.loadLocked(ctx)
	e, ok := c.entries[key]
	c.mu.Unlock()

	switch {
	case ok && !e.Failed:
		return Artifact{Ref: e.DataURL, Source: SourceCache}
	case ok:
		// Failed entries wait for the retry sweep.
	case s.FetchIcons && n.URL != "" && c.fetcher != nil:
		dataURL, err := c.fetcher.Fetch(ctx, n.URL)
		ts := timex.UnixMilli(c.now())
		if err == nil {
			c.put(ctx, key, models.IconEntry{DataURL: dataURL, TS: ts})
			return Artifact{Ref: dataURL, Source: SourceFetched}
		}
		c.log.Debug(ctx, "icon fetch failed", "url", n.URL, "error", err)
		c.put(ctx, key, models.IconEntry{TS: ts, Failed: true})
	}
	return Artifact{Ref: Avatar(n.Title, n.URL), Source: SourceFallback}
}

// Refresh drops the cached entry for n and resolves it again.
func (c *Cache) Refresh(ctx context.Context, n models.Node, s models.Settings) Artifact {
	c.mu.Lock()
	c.loadLocked(ctx)
	delete(c.entries, Key(n))
	c.mu.Unlock()
	return c.Resolve(ctx, n, s)
}

// Entry returns the cached entry for key.
func (c *Cache) Entry(ctx context.Context, key string) (models.IconEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked(ctx)
	e, ok := c.entries[key]
	return e, ok
}

// Prune drops entries no node of d refers to and reports how many went.
func (c *Cache) Prune(ctx context.Context, d *models.Document) int {
	live := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		live[Key(n)] = true
	}

	c.mu.Lock()
	c.loadLocked(ctx)
	dropped := 0
	for k := range c.entries {
		if !live[k] {
			delete(c.entries, k)
			dropped++
		}
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if dropped > 0 {
		c.save(ctx, snapshot)
	}
	return dropped
}

// Sweep summarizes a RetryIfDue call.
type Sweep struct {
	Ran       bool
	Retried   int
	Recovered int
}

// RetryIfDue retries every failed entry when retries are on, the clock is
// in the configured hour, and no sweep has run in this hour window yet.
// The window is recorded in Local so restarts do not repeat a sweep.
func (c *Cache) RetryIfDue(ctx context.Context, s models.Settings) Sweep {
	now := c.now()
	if !s.IconRetryEnabled || now.Hour() != s.IconRetryHour || c.fetcher == nil {
		return Sweep{}
	}

	window := timex.HourWindow(now)
	var last string
	if _, err := c.store.GetJSON(ctx, storage.Local, models.IconRetryKey, &last); err != nil {
		c.log.Warn(ctx, "reading icon retry window failed", "error", err)
	}
	if last == window {
		return Sweep{}
	}
	if err := c.store.SetJSON(ctx, storage.Local, models.IconRetryKey, window); err != nil {
		c.log.Warn(ctx, "recording icon retry window failed", "error", err)
	}

	c.mu.Lock()
	c.loadLocked(ctx)
	var keys []string
	for k, e := range c.entries {
		if e.Failed && fetchable(k) {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()
	slices.Sort(keys)

	results := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, k := range keys {
		g.Go(func() error {
			dataURL, err := c.fetcher.Fetch(gctx, k)
			if err == nil {
				results[i] = dataURL
			}
			return nil
		})
	}
	_ = g.Wait()

	ts := timex.UnixMilli(c.now())
	sweep := Sweep{Ran: true, Retried: len(keys)}
	c.mu.Lock()
	for i, k := range keys {
		e, ok := c.entries[k]
		if !ok {
			continue
		}
		if results[i] != "" {
			e = models.IconEntry{DataURL: results[i], TS: ts}
			sweep.Recovered++
		} else {
			e.TS = ts
		}
		c.entries[k] = e
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if len(keys) > 0 {
		c.save(ctx, snapshot)
	}
	c.log.Info(ctx, "icon retry sweep", "window", window, "retried", sweep.Retried, "recovered", sweep.Recovered)
	return sweep
}

func (c *Cache) put(ctx context.Context, key string, e models.IconEntry) {
	c.mu.Lock()
	c.entries[key] = e
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.save(ctx, snapshot)
}

func (c *Cache) save(ctx context.Context, entries models.IconCache) {
	if err := c.store.SetJSON(ctx, storage.Local, models.IconCacheKey, entries); err != nil {
		c.log.Warn(ctx, "saving icon cache failed", "error", err)
	}
}

func (c *Cache) loadLocked(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true
	c.entries = models.IconCache{}
	if _, err := c.store.GetJSON(ctx, storage.Local, models.IconCacheKey, &c.entries); err != nil {
		c.log.Warn(ctx, "reading icon cache failed, starting empty", "error", err)
		c.entries = models.IconCache{}
	}
	if c.entries == nil {
		c.entries = models.IconCache{}
	}
}

func (c *Cache) snapshotLocked() models.IconCache {
	out := make(models.IconCache, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

func fetchable(key string) bool {
	u, err := url.Parse(key)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
