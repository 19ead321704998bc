package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EnsureAbsPath normalizes a path so locks and history rows agree on one key.
func EnsureAbsPath(path string) string {
	if path == "" {
		path = "."
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// UniqueFilePath returns path if nothing exists there, otherwise the first free
// "name(N).ext" sibling. An existing "(N)" counter in the name is continued.
func UniqueFilePath(path string) string {
	if !exists(path) {
		return path
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)

	base := name
	counter := 1

	clean := strings.TrimSpace(name)
	if len(clean) > 3 && clean[len(clean)-1] == ')' {
		if open := strings.LastIndexByte(clean, '('); open != -1 {
			if num, err := strconv.Atoi(clean[open+1 : len(clean)-1]); err == nil && num > 0 {
				base = clean[:open]
				counter = num + 1
			}
		}
	}

	for i := 0; i < 100; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, counter+i, ext))
		if !exists(candidate) {
			return candidate
		}
	}

	// Out of counters: hand back the original and let the caller overwrite.
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
