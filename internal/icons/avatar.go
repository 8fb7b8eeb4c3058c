package icons

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/net/html"
)

// Avatar returns a generated SVG tile for a node without an icon. The same
// title and URL always give the same tile.
func Avatar(title, rawURL string) string {
	sum := blake2b.Sum256([]byte(title + "\x00" + rawURL))
	hue := binary.BigEndian.Uint16(sum[:2]) % 360
	return tile(initial(title, rawURL), fmt.Sprintf("hsl(%d,55%%,45%%)", hue))
}

// ColorTile is the tile for a node with a solid colour icon.
func ColorTile(title, rawURL, color string) string {
	if color == "" {
		return Avatar(title, rawURL)
	}
	return tile(initial(title, rawURL), color)
}

func tile(letter, fill string) string {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64">` +
		`<rect width="64" height="64" rx="12" fill="` + html.EscapeString(fill) + `"/>` +
		`<text x="32" y="43" text-anchor="middle" font-family="sans-serif" font-size="30" fill="#fff">` +
		html.EscapeString(letter) + `</text></svg>`
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

func initial(title, rawURL string) string {
	for _, s := range []string{title, hostOf(rawURL)} {
		s = strings.TrimSpace(s)
		if r, _ := utf8.DecodeRuneInString(s); r != utf8.RuneError {
			return string(unicode.ToUpper(r))
		}
	}
	return "?"
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
