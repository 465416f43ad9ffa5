package scraper

import (
	"net/url"
	"strings"

	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// documentExtensions maps link extensions to the canonical file type
// used by the extraction pipeline.
var documentExtensions = map[string]string{
	"pdf":  "pdf",
	"doc":  "docx",
	"docx": "docx",
	"ppt":  "pptx",
	"pptx": "pptx",
	"png":  "png",
	"jpg":  "jpg",
	"jpeg": "jpg",
	"tif":  "tiff",
	"tiff": "tiff",
}

// ForDialect returns the discovery strategy for a source dialect.
// Unknown dialects fall back to the generic heuristic.
func ForDialect(dialect string) interfaces.DialectScraper {
	switch dialect {
	case models.DialectMoE:
		return &moeDialect{}
	case models.DialectUGC:
		return &ugcDialect{}
	case models.DialectAICTE:
		return &aicteDialect{}
	default:
		return &genericDialect{}
	}
}

// resolveURL makes href absolute against base, dropping fragments and
// schemes that cannot be fetched.
func resolveURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}

	resolved := baseURL.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// extensionOf returns the lowercase extension of the URL path without
// the dot, ignoring query strings.
func extensionOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := parsed.Path
	idx := strings.LastIndex(p, ".")
	if idx < 0 || idx == len(p)-1 {
		return ""
	}
	ext := strings.ToLower(p[idx+1:])
	if strings.ContainsAny(ext, "/") {
		return ""
	}
	return ext
}

// linkTitle prefers the anchor text and falls back to the last URL
// path segment.
func linkTitle(text, linkURL string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text != "" {
		return text
	}
	segment := lastPathSegment(linkURL)
	if segment != "" {
		return segment
	}
	return linkURL
}

func lastPathSegment(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := strings.TrimSuffix(parsed.Path, "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		p = p[idx+1:]
	}
	return p
}

// matchesKeywords reports whether the text contains any keyword.
// An empty keyword list matches everything.
func matchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
