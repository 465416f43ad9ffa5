package interfaces

import (
	"context"

	"github.com/mandate-ai/mandate/internal/models"
)

// DownloadResult is the outcome of a successful document fetch.
type DownloadResult struct {
	Bytes       []byte
	ContentType string
	FinalURL    string
}

// HeadResult carries the validators returned by a HEAD probe.
type HeadResult struct {
	ETag         string
	LastModified string
	StatusCode   int
}

// Downloader fetches documents with retry and rotating user agents.
type Downloader interface {
	Fetch(ctx context.Context, url, referer string) (*DownloadResult, error)
	Head(ctx context.Context, url, referer string) (*HeadResult, error)
}

// ExtractionResult is normalized plain text plus scan detection.
type ExtractionResult struct {
	Text      string
	IsScanned bool
	Pages     int
}

// TextExtractor converts raw document bytes to plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, declaredType string) (*ExtractionResult, error)
}

// OCRClient is the external OCR collaborator used for scanned inputs.
type OCRClient interface {
	Recognize(ctx context.Context, data []byte, contentType string) (string, error)
}

// MetadataExtractor produces document metadata via the provider chain.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, docID, filename, text string) (*models.DocumentMetadata, error)
}

// BlobStore persists raw document bytes under canonical names.
// Uploads are idempotent by name.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, canonicalName string) (string, error)
	Download(ctx context.Context, canonicalName string) ([]byte, error)
	Exists(ctx context.Context, canonicalName string) (bool, error)
	Delete(ctx context.Context, canonicalName string) error
	PublicURL(canonicalName string) string
}

// Chunker splits extracted text into section-aware chunks.
type Chunker interface {
	Chunk(docID, text string) []models.Chunk
}

// Embedder generates canonical-dimension vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	CanonicalDimension() int
}

// EmbeddingCoordinator drives the chunk-embed-upsert pipeline for documents.
type EmbeddingCoordinator interface {
	EmbedDocument(ctx context.Context, docID string) error
	EmbedDocuments(ctx context.Context, docIDs []string) error
	EnsureEmbedded(ctx context.Context, docID string) error
}
