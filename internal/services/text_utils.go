package services

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vish4lsharma/extractor/internal/models"
)

const maxFilenameLen = 255

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	wordPattern         = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// SanitizeFilename replaces characters that are unsafe in file names and
// caps the length at 255 bytes, keeping the extension.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(name, "_"))
	return truncateFilename(name, maxFilenameLen)
}

// truncateFilename shortens name to at most limit bytes, keeping the
// extension and never splitting a UTF-8 sequence.
func truncateFilename(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= limit {
		ext = ""
	}
	base := name[:limit-len(ext)]
	for !utf8.ValidString(base) {
		base = base[:len(base)-1]
	}
	return base + ext
}

// ComputeTextStats counts words, lines and characters of extracted content.
// Lines are newline-separated segments, so "" is one line and a trailing
// newline opens another.
func ComputeTextStats(text string) models.TextStats {
	return models.TextStats{
		WordCount: len(wordPattern.FindAllStringIndex(text, -1)),
		LineCount: strings.Count(text, "\n") + 1,
		CharCount: utf8.RuneCountInString(text),
	}
}
