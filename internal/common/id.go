package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewJobID generates a unique scrape job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewSourceID generates a unique source ID with the "src_" prefix
func NewSourceID() string {
	return "src_" + uuid.New().String()
}

// NewSyncLogID generates a unique sync log ID with the "sync_" prefix
func NewSyncLogID() string {
	return "sync_" + uuid.New().String()
}

// NewExternalSourceID generates a unique external data source ID with
// the "ext_" prefix
func NewExternalSourceID() string {
	return "ext_" + uuid.New().String()
}
