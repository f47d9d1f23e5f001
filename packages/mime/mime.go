// Package mime maps file extensions to MIME types for multipart uploads.
//
// The table is fixed at build time. Lookups for extensions that are not in
// the table fail with ErrUnknownExtension; no default type is substituted.
package mime

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownExtension is returned when an extension has no registered type.
var ErrUnknownExtension = errors.New("unknown file extension")

// TypeOf returns the MIME type registered for ext. A leading dot is ignored
// and the lookup is case-insensitive.
func TypeOf(ext string) (string, error) {
	key := strings.ToLower(strings.TrimPrefix(ext, "."))
	t, ok := types[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownExtension, key)
	}
	return t, nil
}

// TypeByFilename looks up the MIME type for the extension of path.
// A name without a dot is treated as its own extension, so it only
// resolves if the whole name is registered.
func TypeByFilename(path string) (string, error) {
	return TypeOf(Extension(path))
}

// Extension returns the text after the last dot of the base name of path.
func Extension(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i+1:]
	}
	return base
}

// Extensions returns every registered extension in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(types))
	for ext := range types {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
