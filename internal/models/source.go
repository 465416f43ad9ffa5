package models

import (
	"fmt"
	"strings"
	"time"
)

// Dialect constants select the discovery strategy for a source.
const (
	DialectMoE     = "moe"
	DialectUGC     = "ugc"
	DialectAICTE   = "aicte"
	DialectGeneric = "generic"
)

// SourceStats tracks cumulative scraping outcomes for a source.
type SourceStats struct {
	TotalRuns      int        `json:"total_runs"`
	TotalNew       int        `json:"total_new"`
	TotalUnchanged int        `json:"total_unchanged"`
	TotalFailed    int        `json:"total_failed"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus  string     `json:"last_run_status,omitempty"`
}

// Source is a registered scraping source with its discovery policy.
type Source struct {
	ID                string      `json:"id" badgerhold:"key"`
	Name              string      `json:"name" validate:"required"`
	BaseURL           string      `json:"base_url" validate:"required,url"`
	Dialect           string      `json:"dialect"`
	Keywords          []string    `json:"keywords"`
	MaxDocs           int         `json:"max_docs"`
	MaxPages          int         `json:"max_pages"`
	PaginationEnabled bool        `json:"pagination_enabled"`
	WindowSize        int         `json:"window_size"`
	Schedule          string      `json:"schedule,omitempty"`
	Enabled           bool        `json:"enabled"`
	RenderJS          bool        `json:"render_js,omitempty"`
	LastScrapedAt     *time.Time  `json:"last_scraped_at,omitempty"`
	Stats             SourceStats `json:"stats"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// ValidDialects lists the accepted dialect values.
var ValidDialects = map[string]bool{
	DialectMoE:     true,
	DialectUGC:     true,
	DialectAICTE:   true,
	DialectGeneric: true,
}

// Validate checks the source configuration and applies defaults.
func (s *Source) Validate() error {
	if err := checkStruct(s); err != nil {
		return err
	}
	if s.Dialect == "" {
		s.Dialect = DialectGeneric
	}
	if !ValidDialects[s.Dialect] {
		return fmt.Errorf("invalid dialect: %s (supported: moe, ugc, aicte, generic)", s.Dialect)
	}
	if s.MaxDocs < 0 {
		return fmt.Errorf("max docs must be non-negative")
	}
	if s.MaxPages < 0 {
		return fmt.Errorf("max pages must be non-negative")
	}
	if s.MaxPages == 0 {
		s.MaxPages = 10
	}
	if s.WindowSize <= 0 {
		s.WindowSize = 3
	}
	if s.WindowSize > s.MaxPages {
		return fmt.Errorf("window size (%d) must not exceed max pages (%d)", s.WindowSize, s.MaxPages)
	}
	s.Keywords = NormalizeKeywords(s.Keywords)
	return nil
}

// NormalizeKeywords trims, case-folds, and dedupes a keyword list,
// preserving first-seen order.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		normalized = append(normalized, kw)
	}
	return normalized
}
