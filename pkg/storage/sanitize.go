package storage

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// maxNameBytes is the per-component limit of ext4, APFS and NTFS
	maxNameBytes = 255

	// partSuffix marks files still being written by Save
	partSuffix = ".part"

	// maxFileNameBytes leaves room for partSuffix while a file is in flight
	maxFileNameBytes = maxNameBytes - len(partSuffix)

	maxExtBytes = 16
)

var unsafeReplacer = strings.NewReplacer(
	"/", "／",
	"\\", "＼",
	":", "：",
	"*", "＊",
	"?", "？",
	"\"", "”",
	"<", "＜",
	">", "＞",
	"|", "｜",
)

// SanitizeName makes s usable as a single path component on every common filesystem.
// Reserved characters become their full-width forms so Japanese titles stay readable.
// The result never exceeds 255 bytes.
func SanitizeName(s string) string {
	return sanitize(s, maxNameBytes)
}

// SanitizeFileName builds a file name from stem and ext (no leading dot). The
// stem is shortened first so the extension survives, and the whole name stays
// short enough to carry the temporary suffix used while downloading.
func SanitizeFileName(stem, ext string) string {
	if ext == "" {
		return sanitize(stem, maxFileNameBytes)
	}

	ext = truncateBytes(clean(ext), maxExtBytes)
	ext = strings.Trim(ext, " .")
	if ext == "" {
		return sanitize(stem, maxFileNameBytes)
	}
	return sanitize(stem, maxFileNameBytes-len(ext)-1) + "." + ext
}

func sanitize(s string, limit int) string {
	s = truncateBytes(clean(s), limit)

	// Truncation may expose new trailing spaces or dots
	s = strings.TrimRight(s, " .")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

func clean(s string) string {
	s = unsafeReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	return strings.TrimRight(s, ".")
}

// truncateBytes cuts s to at most limit bytes without splitting a rune
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
