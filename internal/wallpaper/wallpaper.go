// Package wallpaper keeps the daily background image in the Local tier,
// keyed by date, and falls back to the most recent earlier day when
// today's image cannot be fetched.
package wallpaper

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pixian5/homepage-sub000/internal/logging"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/netx"
	"github.com/pixian5/homepage-sub000/internal/storage"
	"github.com/pixian5/homepage-sub000/internal/timex"
)

// keep is how many days of entries stay cached.
const keep = 3

type Store interface {
	GetJSON(ctx context.Context, t storage.Tier, key string, v any) (bool, error)
	SetJSON(ctx context.Context, t storage.Tier, key string, v any) error
}

// Downloader turns an image URL into a data URL.
type Downloader interface {
	Download(ctx context.Context, imageURL string) (string, error)
}

type Cache struct {
	store   Store
	pattern string
	dl      Downloader
	log     logging.Logger
	now     func() time.Time

	mu sync.Mutex
}

type Option func(*Cache)

func WithLogger(l logging.Logger) Option { return func(c *Cache) { c.log = l } }

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// New builds a cache for the image at pattern, where "{date}" becomes
// the day being fetched.
func New(store Store, pattern string, dl Downloader, opts ...Option) *Cache {
	c := &Cache{store: store, pattern: pattern, dl: dl, log: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URLFor expands the pattern for date.
func (c *Cache) URLFor(date string) string {
	return strings.ReplaceAll(c.pattern, "{date}", date)
}

// Today returns today's wallpaper, fetching it on first use. When the
// fetch fails the newest cached earlier day is returned instead.
func (c *Cache) Today(ctx context.Context) (models.WallpaperEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load(ctx)
	now := c.now()
	today := timex.Date(now)
	if e, ok := entries[today]; ok {
		return e, true
	}

	if c.pattern != "" && c.dl != nil {
		u := c.URLFor(today)
		dataURL, err := c.dl.Download(ctx, u)
		if err == nil {
			e := models.WallpaperEntry{Date: today, URL: u, DataURL: dataURL, TS: timex.UnixMilli(now)}
			entries[today] = e
			prune(entries)
			if err := c.store.SetJSON(ctx, storage.Local, models.WallpaperCacheKey, entries); err != nil {
				c.log.Warn(ctx, "saving wallpaper cache failed", "error", err)
			}
			return e, true
		}
		c.log.Warn(ctx, "wallpaper fetch failed", "url", u, "error", err)
	}

	return latest(entries, today)
}

func (c *Cache) load(ctx context.Context) models.WallpaperCache {
	entries := models.WallpaperCache{}
	if _, err := c.store.GetJSON(ctx, storage.Local, models.WallpaperCacheKey, &entries); err != nil {
		c.log.Warn(ctx, "reading wallpaper cache failed", "error", err)
	}
	if entries == nil {
		entries = models.WallpaperCache{}
	}
	return entries
}

// latest returns the newest entry dated before today.
func latest(entries models.WallpaperCache, today string) (models.WallpaperEntry, bool) {
	var best string
	for d := range entries {
		if d < today && d > best {
			best = d
		}
	}
	if best == "" {
		return models.WallpaperEntry{}, false
	}
	return entries[best], true
}

func prune(entries models.WallpaperCache) {
	dates := make([]string, 0, len(entries))
	for d := range entries {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	for len(dates) > keep {
		delete(entries, dates[0])
		dates = dates[1:]
	}
}

// HTTPDownloader fetches images with a size cap.
type HTTPDownloader struct {
	Client   *http.Client
	MaxBytes int64
}

func (h *HTTPDownloader) Download(ctx context.Context, imageURL string) (string, error) {
	resp, err := netx.Fetch(ctx, h.Client, imageURL, h.MaxBytes)
	if err != nil {
		return "", err
	}
	if mt := netx.MediaType(resp.ContentType); !strings.HasPrefix(mt, "image/") {
		return "", fmt.Errorf("%s: not an image (%s)", imageURL, mt)
	}
	return netx.DataURL(resp.ContentType, resp.Body), nil
}
