package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// docOutcome classifies what processing one discovered link did.
type docOutcome int

const (
	outcomeNew docOutcome = iota
	outcomeUnchanged
	outcomeFailed
	outcomeAborted
)

// processDocument runs the per-document pipeline: dedup by URL
// validators and content hash, download, extract, blob upload,
// record persistence, then metadata extraction. The stop signal is
// observed between stages.
func (s *Service) processDocument(
	ctx context.Context,
	handle *jobHandle,
	job *models.ScrapeJob,
	source *models.Source,
	link interfaces.DiscoveredLink,
	referer string,
	forceFullScan bool,
) docOutcome {
	existing, err := s.documents.GetDocumentByURL(ctx, link.URL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", link.URL).Msg("Document lookup failed")
		return outcomeFailed
	}

	// A known URL whose validators still match needs no download.
	if existing != nil && !existing.DownloadFailed && !forceFullScan {
		if head, headErr := s.downloader.Head(ctx, link.URL, referer); headErr == nil {
			if validatorsMatch(existing, head) {
				return outcomeUnchanged
			}
		}
	}

	if handle.stop.Load() {
		return outcomeAborted
	}

	result, err := s.downloader.Fetch(ctx, link.URL, referer)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("job_id", job.JobID).
			Str("url", link.URL).
			Msg("Document download failed")
		s.recordDownloadFailure(ctx, existing, source, link)
		return outcomeFailed
	}

	hash := sha256.Sum256(result.Bytes)
	contentHash := hex.EncodeToString(hash[:])

	if existing != nil && existing.ContentHash == contentHash {
		s.refreshValidators(ctx, existing, link.URL, referer)
		return outcomeUnchanged
	}
	if existing == nil {
		byHash, hashErr := s.documents.GetDocumentByHash(ctx, source.ID, contentHash)
		if hashErr == nil && byHash != nil {
			return outcomeUnchanged
		}
	}

	if handle.stop.Load() {
		return outcomeAborted
	}

	fileType := link.FileType
	if fileType == "" {
		fileType = typeFromContentType(result.ContentType)
	}

	extraction, err := s.extractor.Extract(ctx, result.Bytes, fileType)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("url", link.URL).
			Str("file_type", fileType).
			Msg("Text extraction failed")
		extraction = &interfaces.ExtractionResult{}
	}

	now := time.Now().UTC()
	blobName := common.BlobName(link.Title, fileType, now)
	blobURL, err := s.blobs.Upload(ctx, result.Bytes, blobName)
	if err != nil {
		s.logger.Error().Err(err).Str("url", link.URL).Msg("Blob upload failed")
		return outcomeFailed
	}

	doc := existing
	if doc == nil {
		doc = &models.DocumentRecord{
			ID:        common.NewDocumentID(),
			SourceID:  source.ID,
			SourceURL: link.URL,
			CreatedAt: now,
		}
	} else {
		doc.Version++
		doc.VersionDate = &now
	}
	doc.CanonicalFilename = blobName
	doc.FileType = fileType
	doc.BlobURL = blobURL
	doc.ContentHash = contentHash
	doc.UploadedAt = now
	doc.Visibility = models.VisibilityPublic
	doc.ApprovalStatus = models.ApprovalApproved
	doc.IsScanned = extraction.IsScanned
	doc.ExtractedText = extraction.Text
	doc.DownloadFailed = false
	doc.UpdatedAt = now
	if doc.Version == 0 {
		doc.Version = 1
	}
	if head, headErr := s.downloader.Head(ctx, link.URL, referer); headErr == nil {
		doc.ETag = head.ETag
		doc.LastModified = head.LastModified
	}

	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		s.logger.Error().Err(err).Str("url", link.URL).Msg("Failed to persist document record")
		return outcomeFailed
	}

	s.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventDocumentNew,
		Payload: map[string]interface{}{
			"doc_id":    doc.ID,
			"source_id": source.ID,
			"url":       link.URL,
			"title":     common.SafeTitle(link.Title),
			"file_type": fileType,
		},
	})

	if handle.stop.Load() {
		return outcomeAborted
	}

	s.extractDocumentMetadata(ctx, job, doc, link.Title)
	return outcomeNew
}

// extractDocumentMetadata runs the provider chain and applies the
// delete-without-metadata policy on total failure.
func (s *Service) extractDocumentMetadata(ctx context.Context, job *models.ScrapeJob, doc *models.DocumentRecord, title string) {
	if doc.ExtractedText == "" {
		job.Stats.FailedMetadata++
		s.applyMetadataPolicy(ctx, doc)
		return
	}

	meta, err := s.metaExtractor.ExtractMetadata(ctx, doc.ID, doc.CanonicalFilename, doc.ExtractedText)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("doc_id", doc.ID).
			Str("title", common.SafeTitle(title)).
			Msg("Metadata extraction failed")
		job.Stats.FailedMetadata++
		s.applyMetadataPolicy(ctx, doc)
		return
	}

	if meta.MetadataStatus == models.MetadataFailed {
		job.Stats.FailedMetadata++
	}
	if err := s.metadata.SaveMetadata(ctx, meta); err != nil {
		s.logger.Error().Err(err).Str("doc_id", doc.ID).Msg("Failed to save metadata")
	}
}

// applyMetadataPolicy resolves a total metadata failure: under the
// strict policy the document and its blob are removed; otherwise the
// document is kept with an empty metadata record marked failed.
func (s *Service) applyMetadataPolicy(ctx context.Context, doc *models.DocumentRecord) {
	if !s.deleteWithoutMetadata {
		now := time.Now().UTC()
		meta := &models.DocumentMetadata{
			DocID:           doc.ID,
			MetadataStatus:  models.MetadataFailed,
			EmbeddingStatus: models.EmbeddingNotEmbedded,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.metadata.SaveMetadata(ctx, meta); err != nil {
			s.logger.Error().Err(err).Str("doc_id", doc.ID).Msg("Failed to save failed-metadata record")
		}
		return
	}
	if err := s.documents.DeleteDocument(ctx, doc.ID); err != nil {
		s.logger.Error().Err(err).Str("doc_id", doc.ID).Msg("Failed to delete document without metadata")
		return
	}
	if doc.CanonicalFilename != "" {
		if err := s.blobs.Delete(ctx, doc.CanonicalFilename); err != nil {
			s.logger.Warn().Err(err).Str("doc_id", doc.ID).Msg("Failed to delete blob for removed document")
		}
	}
	s.logger.Info().Str("doc_id", doc.ID).Msg("Document removed under delete_without_metadata policy")
}

// recordDownloadFailure keeps a stub record so the failure is visible
// in the document listing and retried on the next run.
func (s *Service) recordDownloadFailure(ctx context.Context, existing *models.DocumentRecord, source *models.Source, link interfaces.DiscoveredLink) {
	now := time.Now().UTC()
	doc := existing
	if doc == nil {
		doc = &models.DocumentRecord{
			ID:             common.NewDocumentID(),
			SourceID:       source.ID,
			SourceURL:      link.URL,
			FileType:       link.FileType,
			Visibility:     models.VisibilityPublic,
			ApprovalStatus: models.ApprovalApproved,
			Version:        1,
			CreatedAt:      now,
		}
	}
	doc.DownloadFailed = true
	doc.UpdatedAt = now
	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		s.logger.Error().Err(err).Str("url", link.URL).Msg("Failed to record download failure")
	}
}

// refreshValidators stores current HEAD validators so the next run can
// short-circuit before downloading.
func (s *Service) refreshValidators(ctx context.Context, doc *models.DocumentRecord, url, referer string) {
	head, err := s.downloader.Head(ctx, url, referer)
	if err != nil {
		return
	}
	if head.ETag == doc.ETag && head.LastModified == doc.LastModified {
		return
	}
	doc.ETag = head.ETag
	doc.LastModified = head.LastModified
	doc.UpdatedAt = time.Now().UTC()
	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		s.logger.Warn().Err(err).Str("doc_id", doc.ID).Msg("Failed to refresh validators")
	}
}

// validatorsMatch reports whether the HEAD response proves the stored
// copy is current. Absent validators prove nothing.
func validatorsMatch(doc *models.DocumentRecord, head *interfaces.HeadResult) bool {
	if head.ETag != "" && doc.ETag != "" {
		return head.ETag == doc.ETag
	}
	if head.LastModified != "" && doc.LastModified != "" {
		return head.LastModified == doc.LastModified
	}
	return false
}

// typeFromContentType maps a response content type to the canonical
// file type used by extraction.
func typeFromContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "pdf"):
		return "pdf"
	case strings.Contains(contentType, "wordprocessingml"), strings.Contains(contentType, "msword"):
		return "docx"
	case strings.Contains(contentType, "presentationml"), strings.Contains(contentType, "ms-powerpoint"):
		return "pptx"
	case strings.Contains(contentType, "html"):
		return "html"
	case strings.HasPrefix(contentType, "image/"):
		ext := strings.TrimPrefix(contentType, "image/")
		if ext == "jpeg" {
			ext = "jpg"
		}
		return ext
	default:
		return "pdf"
	}
}
