package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// estimated wall time per document embed, for the response hint only
const embedEstimatePerDoc = 8 * time.Second

// DocumentHandler serves document lifecycle status, metadata browsing,
// and manual embedding.
type DocumentHandler struct {
	documents   interfaces.DocumentStorage
	metadata    interfaces.MetadataStorage
	coordinator interfaces.EmbeddingCoordinator
	logger      arbor.ILogger
}

// NewDocumentHandler creates the document lifecycle handler
func NewDocumentHandler(
	documents interfaces.DocumentStorage,
	metadata interfaces.MetadataStorage,
	coordinator interfaces.EmbeddingCoordinator,
	logger arbor.ILogger,
) *DocumentHandler {
	return &DocumentHandler{documents: documents, metadata: metadata, coordinator: coordinator, logger: logger}
}

// Embed handles POST /documents/embed
func (h *DocumentHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DocIDs []string `json:"doc_ids"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}
	if len(body.DocIDs) == 0 {
		WriteDetail(w, http.StatusBadRequest, "doc_ids is required")
		return
	}

	for _, docID := range body.DocIDs {
		if _, err := h.documents.GetDocument(r.Context(), docID); err != nil {
			WriteError(w, err)
			return
		}
	}

	docIDs := body.DocIDs
	go func() {
		if err := h.coordinator.EmbedDocuments(context.Background(), docIDs); err != nil {
			h.logger.Error().Err(err).Int("docs", len(docIDs)).Msg("Background embedding failed")
		}
	}()

	estimate := time.Duration(len(docIDs)) * embedEstimatePerDoc
	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":         "embedding",
		"documents":      len(docIDs),
		"estimated_time": estimate.String(),
	})
}

// Status handles GET /documents/{id}/status
func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/documents")
	if !RequireID(w, id, "document") {
		return
	}

	doc, err := h.documents.GetDocument(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	status := map[string]interface{}{
		"doc_id":           doc.ID,
		"source_id":        doc.SourceID,
		"filename":         doc.CanonicalFilename,
		"file_type":        doc.FileType,
		"approval_status":  doc.ApprovalStatus,
		"visibility":       doc.Visibility,
		"version":          doc.Version,
		"is_scanned":       doc.IsScanned,
		"download_failed":  doc.DownloadFailed,
		"uploaded_at":      doc.UploadedAt,
		"metadata_status":  "missing",
		"embedding_status": models.EmbeddingNotEmbedded,
	}
	if meta, metaErr := h.metadata.GetMetadata(r.Context(), id); metaErr == nil {
		status["metadata_status"] = meta.MetadataStatus
		status["embedding_status"] = meta.EmbeddingStatus
		status["quality_score"] = meta.QualityScore
		status["provider"] = meta.Provider
	}

	WriteJSON(w, http.StatusOK, status)
}

// BrowseMetadata handles GET /documents/browse/metadata
func (h *DocumentHandler) BrowseMetadata(w http.ResponseWriter, r *http.Request) {
	offset, limit := Pagination(r)
	opts := interfaces.DocumentListOptions{
		Department:   r.URL.Query().Get("department"),
		DocumentType: r.URL.Query().Get("document_type"),
		Year:         QueryInt(r, "year", 0),
		Offset:       offset,
		Limit:        limit,
	}

	metas, total, err := h.metadata.BrowseMetadata(r.Context(), opts)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"metadata": metas,
		"total":    total,
		"offset":   opts.Offset,
		"limit":    opts.Limit,
	})
}

// Stats handles GET /documents/stats
func (h *DocumentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.documents.GetStats(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
