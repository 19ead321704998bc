// Package clipboard reads a download URL from the system clipboard.
package clipboard

import (
	"errors"
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

// maxURLLength rejects pasted blobs that cannot reasonably be a URL.
const maxURLLength = 2048

var (
	ErrClipboardRead = errors.New("failed to read from clipboard")
	ErrInvalidURL    = errors.New("clipboard does not contain a valid URL")
)

// Source returns the current clipboard text.
type Source func() (string, error)

// System reads the OS clipboard.
var System Source = clipboard.ReadAll

// ExtractURL returns text as a normalized http(s) URL, or "" when it is not one.
// Surrounding whitespace, quotes and angle brackets are ignored.
func ExtractURL(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"'<>`)

	if text == "" || len(text) > maxURLLength || strings.ContainsAny(text, " \t\n\r") {
		return ""
	}

	parsed, err := url.Parse(text)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if strings.TrimSpace(parsed.Hostname()) == "" {
		return ""
	}
	return parsed.String()
}

// ReadURL reads the system clipboard and returns the URL it holds.
func ReadURL() (string, error) {
	return ReadURLFrom(System)
}

// ReadURLFrom is ReadURL with an explicit source.
func ReadURLFrom(src Source) (string, error) {
	text, err := src()
	if err != nil {
		return "", errors.Join(ErrClipboardRead, err)
	}
	u := ExtractURL(text)
	if u == "" {
		return "", ErrInvalidURL
	}
	return u, nil
}
