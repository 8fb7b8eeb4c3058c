package document

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pixian5/homepage-sub000/internal/common"
)

// schemes that can be opened from the homepage. The bool says whether a
// host is required.
var allowedSchemes = map[string]bool{
	"http":             true,
	"https":            true,
	"ftp":              true,
	"file":             false,
	"about":            false,
	"chrome":           false,
	"edge":             false,
	"chrome-extension": true,
	"moz-extension":    true,
}

// NormalizeURL turns user input into an absolute URL. Input without a
// scheme is treated as https.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty url: %w", common.ErrInvalidURL)
	}
	if !hasScheme(s) {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%q: %w", raw, common.ErrInvalidURL)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	needHost, ok := allowedSchemes[u.Scheme]
	if !ok {
		return "", fmt.Errorf("%q: scheme %q not allowed: %w", raw, u.Scheme, common.ErrInvalidURL)
	}
	if needHost && u.Hostname() == "" {
		return "", fmt.Errorf("%q: missing host: %w", raw, common.ErrInvalidURL)
	}
	if u.Host != "" {
		u.Host = strings.ToLower(u.Host)
	}
	return u.String(), nil
}

func hasScheme(s string) bool {
	if strings.Contains(s, "://") {
		return true
	}
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return false
	}
	_, ok := allowedSchemes[strings.ToLower(s[:i])]
	return ok && !needsHost(s[:i])
}

func needsHost(scheme string) bool {
	return allowedSchemes[strings.ToLower(scheme)]
}
