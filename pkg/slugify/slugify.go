// Package slugify normalizes uploaded file names into URL- and
// filesystem-safe slugs. The transform is total and idempotent, so a
// stored name can be re-slugged without changing.
package slugify

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Filename lowercases the base name, collapses every run of characters
// outside [a-z0-9] into a single dash, trims edge dashes, and reattaches
// the lowercased extension. The extension is everything after the last
// dot; a name without a dot has no extension.
func Filename(name string) string {
	base := name
	ext := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		base = name[:i]
		ext = name[i:]
	}

	base = strings.ToLower(base)
	base = nonAlnum.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	return base + strings.ToLower(ext)
}
