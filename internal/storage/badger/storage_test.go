package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(common.GetLogger(), &common.StorageConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDocumentStorage_HashAndURLLookup(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	storage := NewDocumentStorage(db, common.GetLogger())

	doc := &models.DocumentRecord{
		ID:          "doc_1",
		SourceID:    "src_moe",
		SourceURL:   "https://example.gov/docs/circular.pdf",
		ContentHash: "abc123",
		FileType:    "pdf",
		Visibility:  models.VisibilityPublic,
	}
	require.NoError(t, storage.SaveDocument(ctx, doc))

	byURL, err := storage.GetDocumentByURL(ctx, doc.SourceURL)
	require.NoError(t, err)
	require.NotNil(t, byURL)
	assert.Equal(t, "doc_1", byURL.ID)

	byHash, err := storage.GetDocumentByHash(ctx, "src_moe", "abc123")
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, "doc_1", byHash.ID)

	// Same hash under a different source is not a duplicate
	other, err := storage.GetDocumentByHash(ctx, "src_ugc", "abc123")
	require.NoError(t, err)
	assert.Nil(t, other)

	missing, err := storage.GetDocumentByURL(ctx, "https://example.gov/absent.pdf")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentStorage_NotFound(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	storage := NewDocumentStorage(db, common.GetLogger())

	_, err := storage.GetDocument(ctx, "doc_missing")
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestDocumentStorage_ListFiltersByTypeAndYear(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	documents := NewDocumentStorage(db, common.GetLogger())
	metadata := NewMetadataStorage(db, common.GetLogger())

	v2023 := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, documents.SaveDocument(ctx, &models.DocumentRecord{
		ID: "doc_circ", SourceID: "src_moe", SourceURL: "https://x.gov/a.pdf",
		VersionDate: &v2023,
	}))
	require.NoError(t, documents.SaveDocument(ctx, &models.DocumentRecord{
		ID: "doc_guide", SourceID: "src_moe", SourceURL: "https://x.gov/b.pdf",
		UploadedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, metadata.SaveMetadata(ctx, &models.DocumentMetadata{DocID: "doc_circ", DocumentType: "circular"}))
	require.NoError(t, metadata.SaveMetadata(ctx, &models.DocumentMetadata{DocID: "doc_guide", DocumentType: "guideline"}))

	docs, total, err := documents.ListDocuments(ctx, interfaces.DocumentListOptions{DocumentType: "circular"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "doc_circ", docs[0].ID)

	docs, total, err = documents.ListDocuments(ctx, interfaces.DocumentListOptions{Year: 2024})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "doc_guide", docs[0].ID)

	_, total, err = documents.ListDocuments(ctx, interfaces.DocumentListOptions{DocumentType: "circular", Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestMetadataStorage_BrowseFiltersByYear(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	documents := NewDocumentStorage(db, common.GetLogger())
	metadata := NewMetadataStorage(db, common.GetLogger())

	v2022 := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, documents.SaveDocument(ctx, &models.DocumentRecord{
		ID: "doc_old", SourceID: "src_moe", SourceURL: "https://x.gov/old.pdf", VersionDate: &v2022,
	}))
	require.NoError(t, documents.SaveDocument(ctx, &models.DocumentRecord{
		ID: "doc_new", SourceID: "src_moe", SourceURL: "https://x.gov/new.pdf",
		UploadedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, metadata.SaveMetadata(ctx, &models.DocumentMetadata{DocID: "doc_old", Department: "UGC"}))
	require.NoError(t, metadata.SaveMetadata(ctx, &models.DocumentMetadata{DocID: "doc_new", Department: "UGC"}))

	metas, total, err := metadata.BrowseMetadata(ctx, interfaces.DocumentListOptions{Department: "UGC", Year: 2022})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "doc_old", metas[0].DocID)
}

func TestMetadataStorage_SearchMatchesFilename(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	documents := NewDocumentStorage(db, common.GetLogger())
	metadata := NewMetadataStorage(db, common.GetLogger())

	require.NoError(t, documents.SaveDocument(ctx, &models.DocumentRecord{
		ID: "doc_f", SourceID: "src_moe", SourceURL: "https://x.gov/f.pdf",
		CanonicalFilename: "scraped_20240101_000000_nep_implementation.pdf",
	}))
	require.NoError(t, metadata.SaveMetadata(ctx, &models.DocumentMetadata{
		DocID:   "doc_f",
		Title:   "Policy Rollout Plan",
		Summary: "Phased rollout schedule for the national policy.",
	}))

	results, err := metadata.SearchMetadata(ctx, "nep_implementation", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc_f", results[0].DocID)
}

func TestMetadataStorage_SearchRanking(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	storage := NewMetadataStorage(db, common.GetLogger())

	require.NoError(t, storage.SaveMetadata(ctx, &models.DocumentMetadata{
		DocID:    "doc_a",
		Title:    "Fee Regulation Circular",
		Summary:  "Rules on fee structure for universities.",
		Keywords: []string{"fee", "regulation"},
	}))
	require.NoError(t, storage.SaveMetadata(ctx, &models.DocumentMetadata{
		DocID:    "doc_b",
		Title:    "Annual Report",
		Summary:  "General activities of the department.",
		Keywords: []string{"report"},
	}))

	results, err := storage.SearchMetadata(ctx, "fee regulation", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc_a", results[0].DocID)
}

func TestMetadataStorage_EmbeddingStatus(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	storage := NewMetadataStorage(db, common.GetLogger())

	require.NoError(t, storage.SaveMetadata(ctx, &models.DocumentMetadata{DocID: "doc_a", Title: "A"}))

	meta, err := storage.GetMetadata(ctx, "doc_a")
	require.NoError(t, err)
	assert.Equal(t, models.EmbeddingNotEmbedded, meta.EmbeddingStatus)

	require.NoError(t, storage.SetEmbeddingStatus(ctx, "doc_a", models.EmbeddingEmbedded))

	pending, err := storage.ListByEmbeddingStatus(ctx, models.EmbeddingNotEmbedded, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	embedded, err := storage.ListByEmbeddingStatus(ctx, models.EmbeddingEmbedded, 10)
	require.NoError(t, err)
	require.Len(t, embedded, 1)
	assert.Equal(t, "doc_a", embedded[0].DocID)
}

func TestJobStorage_RetentionPurge(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	storage := NewJobStorage(db, common.GetLogger())

	old := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, storage.SaveJob(ctx, &models.ScrapeJob{
		JobID: "job_old", SourceID: "src_1", Status: models.JobStatusSucceeded, StartedAt: old,
	}))
	require.NoError(t, storage.SaveJob(ctx, &models.ScrapeJob{
		JobID: "job_running", SourceID: "src_1", Status: models.JobStatusRunning, StartedAt: old,
	}))
	require.NoError(t, storage.SaveJob(ctx, &models.ScrapeJob{
		JobID: "job_recent", SourceID: "src_1", Status: models.JobStatusSucceeded, StartedAt: time.Now(),
	}))

	deleted, err := storage.DeleteJobsBefore(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// Running jobs survive retention regardless of age
	_, err = storage.GetJob(ctx, "job_running")
	assert.NoError(t, err)

	_, err = storage.GetJob(ctx, "job_old")
	assert.Error(t, err)
}
