package models

import (
	"time"
)

// ScrapeJob status values. Transitions are monotonic except
// running -> stopping -> stopped.
const (
	JobStatusRunning   = "running"
	JobStatusStopping  = "stopping"
	JobStatusStopped   = "stopped"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// JobStats tracks per-run scraping counters, updated incrementally
// while the job runs.
type JobStats struct {
	Discovered     int `json:"discovered"`
	New            int `json:"new"`
	Unchanged      int `json:"unchanged"`
	Failed         int `json:"failed"`
	FailedMetadata int `json:"failed_metadata"`
	PagesScraped   int `json:"pages_scraped"`
}

// ScrapeJob is the lifecycle record for one scraping run.
type ScrapeJob struct {
	JobID      string     `json:"job_id" badgerhold:"key"`
	SourceID   string     `json:"source_id" badgerhold:"index"`
	Status     string     `json:"status"`
	StopSignal bool       `json:"stop_signal"`
	Stats      JobStats   `json:"stats"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// IsTerminal reports whether the job has reached a final status.
func (j *ScrapeJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusStopped, JobStatusSucceeded, JobStatusFailed:
		return true
	}
	return false
}

// ScrapeOverrides carries per-run overrides of the source policy.
type ScrapeOverrides struct {
	MaxDocuments      *int  `json:"max_documents,omitempty"`
	PaginationEnabled *bool `json:"pagination_enabled,omitempty"`
	MaxPages          *int  `json:"max_pages,omitempty"`
	ForceFullScan     bool  `json:"force_full_scan,omitempty"`
}
