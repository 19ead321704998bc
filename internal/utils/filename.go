// Package utils holds small helpers shared by the downloader and the CLI:
// filename resolution from HTTP metadata, file type sniffing and path handling.
package utils

import (
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/h2non/filetype"
	"github.com/vfaronov/httpheader"
)

// DefaultFilename is used when nothing better can be derived.
const DefaultFilename = "download.bin"

// FilenameFromResponse picks a local file name for rawurl using, in order,
// the Content-Disposition header, the filename/file query parameters and the
// last URL path segment. The result is always safe to join onto a directory.
func FilenameFromResponse(rawurl string, header http.Header) string {
	var candidate string

	if header != nil {
		if _, name, _ := httpheader.ContentDisposition(header); name != "" {
			candidate = name
		}
	}

	parsed, err := url.Parse(rawurl)
	if candidate == "" && err == nil {
		q := parsed.Query()
		if name := q.Get("filename"); name != "" {
			candidate = name
		} else if name := q.Get("file"); name != "" {
			candidate = name
		}
	}

	if candidate == "" && err == nil {
		candidate = filepath.Base(parsed.Path)
	}

	filename := sanitizeFilename(candidate)
	if filename == "" || filename == "." || filename == "_" {
		return DefaultFilename
	}
	return filename
}

// Kind is the sniffed type of a finished file.
type Kind struct {
	Extension string
	MIME      string
}

// DetectKind inspects the magic bytes of the file at path. Unknown types
// return ok=false.
func DetectKind(path string) (Kind, bool, error) {
	kind, err := filetype.MatchFile(path)
	if err != nil {
		return Kind{}, false, err
	}
	if kind == filetype.Unknown {
		return Kind{}, false, nil
	}
	return Kind{Extension: kind.Extension, MIME: kind.MIME.Value}, true, nil
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

var unsafeChars = strings.NewReplacer(
	"/", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// sanitizeFilename removes characters that are unsafe or invalid across platforms.
func sanitizeFilename(name string) string {
	// Backslashes become separators so filepath.Base strips Windows-style paths too.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." {
		return name
	}
	if name == "/" {
		return "_"
	}
	name = strings.TrimSpace(name)
	name = ansiRegex.ReplaceAllString(name, "")

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	return unsafeChars.Replace(name)
}
