package staticfiles

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Backdrops load failures. Callers only ever see a generic internal error;
// these exist for logging and metrics.
var (
	ErrBackdropsMissing    = errors.New("backdrops file not found")
	ErrBackdropsUnreadable = errors.New("backdrops file unreadable")
	ErrBackdropsMalformed  = errors.New("backdrops file malformed")
)

// LoadBackdrops reads and parses the backdrops listing at path. The file is
// read on every call. Numbers are kept as json.Number so they are written
// back exactly as they appear on disk.
func LoadBackdrops(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrBackdropsMissing, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrBackdropsUnreadable, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var info any
	if err := dec.Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackdropsMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrBackdropsMalformed)
	}
	return info, nil
}

// backdropsErrorReason returns the metrics label for a LoadBackdrops error.
func backdropsErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrBackdropsMissing):
		return "missing"
	case errors.Is(err, ErrBackdropsMalformed):
		return "malformed"
	default:
		return "unreadable"
	}
}
