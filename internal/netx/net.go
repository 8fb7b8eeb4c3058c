// Package netx contains the bounded HTTP download used by the icon and
// wallpaper fetchers.
package netx

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// ErrTooLarge is returned when a response body exceeds the caller's limit.
var ErrTooLarge = errors.New("response body too large")

// Response is a fully read HTTP response body.
type Response struct {
	Body        []byte
	ContentType string
	// URL is the final URL after redirects; relative links resolve against it.
	URL *url.URL
}

// Fetch performs a GET and reads at most maxBytes of the body. Non-2xx
// statuses are errors.
func Fetch(ctx context.Context, client *http.Client, rawURL string, maxBytes int64) (*Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s failed: %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, ErrTooLarge
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return &Response{Body: body, ContentType: ct, URL: resp.Request.URL}, nil
}

// MediaType returns the bare media type of a Content-Type header value.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return mt
}

// DataURL encodes body as a base64 data URL.
func DataURL(contentType string, body []byte) string {
	return "data:" + MediaType(contentType) + ";base64," + base64.StdEncoding.EncodeToString(body)
}
