package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
	"github.com/mandate-ai/mandate/internal/services/scheduler"
)

// SourceHandler serves the scraping source registry.
type SourceHandler struct {
	sources   interfaces.SourceStorage
	scheduler *scheduler.Service
	logger    arbor.ILogger
}

// NewSourceHandler creates the source registry handler. scheduler may
// be nil in tests.
func NewSourceHandler(sources interfaces.SourceStorage, sched *scheduler.Service, logger arbor.ILogger) *SourceHandler {
	return &SourceHandler{sources: sources, scheduler: sched, logger: logger}
}

// List handles GET /web-scraping/sources
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.ListSources(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sources": sources,
		"count":   len(sources),
	})
}

// Create handles POST /web-scraping/sources
func (h *SourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var source models.Source
	if err := DecodeJSON(r, &source); err != nil {
		WriteError(w, err)
		return
	}

	if err := source.Validate(); err != nil {
		WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	source.ID = common.NewSourceID()
	source.CreatedAt = now
	source.UpdatedAt = now

	if err := h.sources.SaveSource(r.Context(), &source); err != nil {
		WriteError(w, err)
		return
	}
	h.registerSchedule(&source)

	h.logger.Info().
		Str("source_id", source.ID).
		Str("dialect", source.Dialect).
		Msg("Source created")
	WriteJSON(w, http.StatusCreated, &source)
}

// Update handles PUT /web-scraping/sources/{id}
func (h *SourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/web-scraping/sources")
	if !RequireID(w, id, "source") {
		return
	}

	existing, err := h.sources.GetSource(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	var source models.Source
	if err := DecodeJSON(r, &source); err != nil {
		WriteError(w, err)
		return
	}
	if err := source.Validate(); err != nil {
		WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	source.ID = existing.ID
	source.Stats = existing.Stats
	source.LastScrapedAt = existing.LastScrapedAt
	source.CreatedAt = existing.CreatedAt
	source.UpdatedAt = time.Now().UTC()

	if err := h.sources.SaveSource(r.Context(), &source); err != nil {
		WriteError(w, err)
		return
	}
	h.registerSchedule(&source)

	WriteJSON(w, http.StatusOK, &source)
}

// Delete handles DELETE /web-scraping/sources/{id}
func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/web-scraping/sources")
	if !RequireID(w, id, "source") {
		return
	}

	if _, err := h.sources.GetSource(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.sources.DeleteSource(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	if h.scheduler != nil {
		h.scheduler.UnregisterSource(id)
	}

	h.logger.Info().Str("source_id", id).Msg("Source deleted")
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Stats handles GET /web-scraping/sources/{id}/stats
func (h *SourceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/web-scraping/sources")
	if !RequireID(w, id, "source") {
		return
	}

	source, err := h.sources.GetSource(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"source_id":       source.ID,
		"stats":           source.Stats,
		"last_scraped_at": source.LastScrapedAt,
	})
}

func (h *SourceHandler) registerSchedule(source *models.Source) {
	if h.scheduler == nil {
		return
	}
	if err := h.scheduler.RegisterSource(source); err != nil {
		h.logger.Warn().Err(err).
			Str("source_id", source.ID).
			Msg("Source saved but schedule not registered")
	}
}
