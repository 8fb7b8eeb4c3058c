package icons

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pixian5/homepage-sub000/internal/netx"
)

var ErrNoIcon = errors.New("no icon found")

// Fetcher derives an icon for a page. It returns a data URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

const maxPageBytes = 1 << 20

// HTTPFetcher looks for <link rel="icon"> on the page and falls back to
// /favicon.ico.
type HTTPFetcher struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
}

func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}, Timeout: timeout, MaxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return "", fmt.Errorf("%s: %w", pageURL, ErrNoIcon)
	}

	var candidates []string
	if page, err := netx.Fetch(ctx, f.Client, pageURL, maxPageBytes); err == nil {
		base = page.URL
		if netx.MediaType(page.ContentType) == "text/html" {
			candidates = IconLinks(page.Body, base)
		}
	}
	candidates = appendUnique(candidates, base.ResolveReference(&url.URL{Path: "/favicon.ico"}).String())

	var lastErr error
	for _, c := range candidates {
		if strings.HasPrefix(c, "data:image/") {
			return c, nil
		}
		resp, err := netx.Fetch(ctx, f.Client, c, f.MaxBytes)
		if err != nil {
			lastErr = err
			continue
		}
		ct, ok := imageType(resp)
		if !ok {
			lastErr = fmt.Errorf("%s: not an image (%s)", c, resp.ContentType)
			continue
		}
		return netx.DataURL(ct, resp.Body), nil
	}
	return "", fmt.Errorf("%s: %w", pageURL, errors.Join(ErrNoIcon, lastErr))
}

func imageType(resp *netx.Response) (string, bool) {
	if len(resp.Body) == 0 {
		return "", false
	}
	if mt := netx.MediaType(resp.ContentType); strings.HasPrefix(mt, "image/") {
		return mt, true
	}
	if detected := netx.MediaType(http.DetectContentType(resp.Body)); strings.HasPrefix(detected, "image/") {
		return detected, true
	}
	return "", false
}

// IconLinks returns the icon URLs declared in an HTML document, resolved
// against base. Plain icons come before apple-touch-icon.
func IconLinks(body []byte, base *url.URL) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var icons, touch []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "link" {
			var rel, href string
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case "rel":
					rel = strings.ToLower(a.Val)
				case "href":
					href = strings.TrimSpace(a.Val)
				}
			}
			if href != "" {
				if ref, err := url.Parse(href); err == nil {
					abs := base.ResolveReference(ref).String()
					switch {
					case strings.Contains(rel, "apple-touch-icon"):
						touch = appendUnique(touch, abs)
					case hasToken(rel, "icon"):
						icons = appendUnique(icons, abs)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return append(icons, touch...)
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if f == token {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
