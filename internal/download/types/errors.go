package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("download: invalid request")
	ErrProbeFailed    = errors.New("download: probe failed")
	ErrPartFailed     = errors.New("download: part fetch failed")
	ErrMergeFailed    = errors.New("download: merge failed")
	ErrHashMismatch   = errors.New("download: hash mismatch")
	ErrRangeIgnored   = errors.New("download: server ignored range request")
	ErrShortPart      = errors.New("download: part size mismatch")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
