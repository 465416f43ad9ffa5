package common

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const maxFilenameLength = 100

// SanitizeFilename replaces characters that are unsafe in blob names and
// truncates the result to 100 characters.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		":", "-",
		"\"", "",
		"/", "_",
		"\\", "_",
		"?", "",
		"*", "",
	)
	sanitized := strings.TrimSpace(replacer.Replace(name))
	sanitized = strings.Join(strings.Fields(sanitized), " ")
	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
	}
	return sanitized
}

// BlobName builds the canonical blob name for a scraped document:
// scraped_{yyyymmdd_hhmmss}_{sanitized_title}.{ext}
func BlobName(title, ext string, fetchedAt time.Time) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("scraped_%s_%s.%s", fetchedAt.Format("20060102_150405"), SanitizeFilename(title), ext)
}

// SafeTitle returns the string unchanged if it is printable ASCII,
// otherwise a placeholder that any log sink can represent.
func SafeTitle(s string) string {
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return fmt.Sprintf("[non-ascii title, %d chars]", len([]rune(s)))
		}
	}
	return s
}

// TitleFromURL derives a fallback title from the last path segment of a URL.
func TitleFromURL(rawURL string) string {
	segment := path.Base(strings.TrimSuffix(rawURL, "/"))
	if idx := strings.IndexAny(segment, "?#"); idx >= 0 {
		segment = segment[:idx]
	}
	if ext := path.Ext(segment); ext != "" {
		segment = strings.TrimSuffix(segment, ext)
	}
	segment = strings.NewReplacer("-", " ", "_", " ", "%20", " ").Replace(segment)
	segment = strings.TrimSpace(segment)
	if segment == "" || segment == "." {
		return "Untitled Document"
	}
	return segment
}
