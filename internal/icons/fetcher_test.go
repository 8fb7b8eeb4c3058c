package icons

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestHTTPFetcher_LinkRelIcon(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head>
			<link rel="apple-touch-icon" href="/touch.png">
			<link rel="shortcut icon" href="/static/icon.png">
		</head><body></body></html>`))
	})
	mux.HandleFunc("/static/icon.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	got, err := NewHTTPFetcher(time.Second, 1024).Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, got, "data:image/png;base64,")
}

func TestHTTPFetcher_FaviconFallbackWithSniffing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>x</title></head></html>`))
	})
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(png)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	got, err := NewHTTPFetcher(time.Second, 1024).Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Contains(t, got, "data:image/png;base64,")
}

func TestHTTPFetcher_NoIcon(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewHTTPFetcher(time.Second, 1024).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrNoIcon)

	_, err = NewHTTPFetcher(time.Second, 1024).Fetch(context.Background(), "ftp://example.com")
	require.ErrorIs(t, err, ErrNoIcon)
}

func TestHTTPFetcher_TooLarge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/x-icon")
		_, _ = w.Write(make([]byte, 4096))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := NewHTTPFetcher(time.Second, 1024).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrNoIcon)
}

func TestIconLinks(t *testing.T) {
	base, _ := url.Parse("https://example.com/dir/page")
	body := []byte(`<link rel="apple-touch-icon" href="touch.png">
		<link rel="icon" href="/a.ico"><link rel="ICON" href="/a.ico">
		<link rel="stylesheet" href="s.css"><link rel="icon" href="data:image/png;base64,AA==">`)

	got := IconLinks(body, base)
	assert.Equal(t, []string{
		"https://example.com/a.ico",
		"data:image/png;base64,AA==",
		"https://example.com/dir/touch.png",
	}, got)
}
