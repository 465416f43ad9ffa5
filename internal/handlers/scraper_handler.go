package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// ScraperHandler serves scrape job control and the scraped document
// listing.
type ScraperHandler struct {
	scraper   interfaces.ScraperService
	documents interfaces.DocumentStorage
	metadata  interfaces.MetadataStorage
	logger    arbor.ILogger
}

// NewScraperHandler creates the scrape control handler
func NewScraperHandler(
	scraper interfaces.ScraperService,
	documents interfaces.DocumentStorage,
	metadata interfaces.MetadataStorage,
	logger arbor.ILogger,
) *ScraperHandler {
	return &ScraperHandler{scraper: scraper, documents: documents, metadata: metadata, logger: logger}
}

// Scrape handles POST /web-scraping/sources/{id}/scrape
func (h *ScraperHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/web-scraping/sources")
	if !RequireID(w, id, "source") {
		return
	}

	var overrides models.ScrapeOverrides
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &overrides); err != nil {
			WriteError(w, err)
			return
		}
	}

	jobID, err := h.scraper.StartScrape(r.Context(), id, &overrides)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// Stop handles POST /web-scraping/stop
func (h *ScraperHandler) Stop(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JobID string `json:"job_id"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}
	if body.JobID == "" {
		WriteDetail(w, http.StatusBadRequest, "job_id is required")
		return
	}

	if err := h.scraper.StopScrape(body.JobID); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

// ActiveJobs handles GET /web-scraping/active-jobs
func (h *ScraperHandler) ActiveJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.scraper.ActiveJobs(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Job handles GET /web-scraping/jobs/{id}
func (h *ScraperHandler) Job(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/web-scraping/jobs")
	if !RequireID(w, id, "job") {
		return
	}

	job, err := h.scraper.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ScrapedDocuments handles GET /web-scraping/scraped-documents
func (h *ScraperHandler) ScrapedDocuments(w http.ResponseWriter, r *http.Request) {
	offset, limit := Pagination(r)
	opts := interfaces.DocumentListOptions{
		SourceID:     r.URL.Query().Get("source_id"),
		Query:        r.URL.Query().Get("query"),
		DocumentType: r.URL.Query().Get("document_type"),
		Year:         QueryInt(r, "year", 0),
		Offset:       offset,
		Limit:        limit,
	}

	docs, total, err := h.documents.ListDocuments(r.Context(), opts)
	if err != nil {
		WriteError(w, err)
		return
	}

	views := make([]models.DocumentView, 0, len(docs))
	for _, doc := range docs {
		view := models.DocumentView{Record: *doc}
		view.Record.ExtractedText = ""
		if meta, metaErr := h.metadata.GetMetadata(r.Context(), doc.ID); metaErr == nil {
			view.Metadata = meta
		}
		views = append(views, view)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": views,
		"total":     total,
		"offset":    opts.Offset,
		"limit":     opts.Limit,
	})
}
