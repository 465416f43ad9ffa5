package models

import (
	"time"
)

// Visibility constants control who may read a document.
const (
	VisibilityPublic          = "public"
	VisibilityInstitutionOnly = "institution_only"
	VisibilityRestricted      = "restricted"
	VisibilityConfidential    = "confidential"
)

// Approval status lifecycle values.
const (
	ApprovalDraft              = "draft"
	ApprovalPending            = "pending"
	ApprovalUnderReview        = "under_review"
	ApprovalChangesRequested   = "changes_requested"
	ApprovalApproved           = "approved"
	ApprovalRestrictedApproved = "restricted_approved"
	ApprovalRejected           = "rejected"
	ApprovalArchived           = "archived"
	ApprovalFlagged            = "flagged"
	ApprovalExpired            = "expired"
)

// Embedding lifecycle values.
const (
	EmbeddingNotEmbedded = "not_embedded"
	EmbeddingInProgress  = "embedding"
	EmbeddingEmbedded    = "embedded"
	EmbeddingFailed      = "failed"
)

// Metadata lifecycle values.
const (
	MetadataProcessing = "processing"
	MetadataReady      = "ready"
	MetadataFailed     = "failed"
)

// DocumentRecord is the durable record of one ingested document.
// It is created once per unique (source_id, content_hash); metadata and
// embeddings are satellites keyed by doc ID with independent lifecycles.
type DocumentRecord struct {
	ID                string     `json:"id" badgerhold:"key"`
	SourceID          string     `json:"source_id" badgerhold:"index"`
	SourceURL         string     `json:"source_url" badgerhold:"index"`
	CanonicalFilename string     `json:"canonical_filename"`
	FileType          string     `json:"file_type"`
	BlobURL           string     `json:"blob_url,omitempty"`
	ContentHash       string     `json:"content_hash" badgerhold:"index"`
	UploadedAt        time.Time  `json:"uploaded_at"`
	UploaderID        string     `json:"uploader_id,omitempty"`
	InstitutionID     string     `json:"institution_id,omitempty"`
	Visibility        string     `json:"visibility"`
	ApprovalStatus    string     `json:"approval_status"`
	RequiresMoEApproval bool     `json:"requires_moe_approval"`
	Version           int        `json:"version"`
	VersionDate       *time.Time `json:"version_date,omitempty"`
	IsScanned         bool       `json:"is_scanned"`
	ExtractedText     string     `json:"extracted_text,omitempty"`
	ParentDocumentID  string     `json:"parent_document_id,omitempty"`
	DownloadFailed    bool       `json:"download_failed,omitempty"`
	ETag              string     `json:"etag,omitempty"`
	LastModified      string     `json:"last_modified,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DocumentMetadata is the 1:1 satellite produced by LLM extraction.
type DocumentMetadata struct {
	DocID           string    `json:"doc_id" badgerhold:"key"`
	Title           string    `json:"title"`
	Department      string    `json:"department"`
	DocumentType    string    `json:"document_type"`
	Summary         string    `json:"summary"`
	Keywords        []string  `json:"keywords"`
	Language        string    `json:"language"`
	QualityScore    float64   `json:"quality_score"`
	EmbeddingStatus string    `json:"embedding_status"`
	MetadataStatus  string    `json:"metadata_status"`
	Provider        string    `json:"provider,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DocumentStats summarizes the stored corpus.
type DocumentStats struct {
	TotalDocuments    int            `json:"total_documents"`
	DocumentsBySource map[string]int `json:"documents_by_source"`
	DocumentsByType   map[string]int `json:"documents_by_type"`
	EmbeddedCount     int            `json:"embedded_count"`
	PendingEmbed      int            `json:"pending_embed"`
	FailedMetadata    int            `json:"failed_metadata"`
	LastUpdated       time.Time      `json:"last_updated"`
}

// DocumentView joins the record with its metadata for API responses.
type DocumentView struct {
	Record   DocumentRecord    `json:"record"`
	Metadata *DocumentMetadata `json:"metadata,omitempty"`
}

// Provenance is the tuple that justifies a document's presence in the store.
type Provenance struct {
	SourceURL   string    `json:"source_url"`
	FetchedAt   time.Time `json:"fetched_at"`
	BlobURL     string    `json:"blob_url"`
	ContentHash string    `json:"content_hash"`
}
