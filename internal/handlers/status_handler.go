package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
)

// StatusHandler serves liveness, version, and corpus status.
type StatusHandler struct {
	documents interfaces.DocumentStorage
	sources   interfaces.SourceStorage
	scraper   interfaces.ScraperService
	startedAt time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates the status handler
func NewStatusHandler(
	documents interfaces.DocumentStorage,
	sources interfaces.SourceStorage,
	scraper interfaces.ScraperService,
	logger arbor.ILogger,
) *StatusHandler {
	return &StatusHandler{
		documents: documents,
		sources:   sources,
		scraper:   scraper,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// Health handles GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version handles GET /version
func (h *StatusHandler) Version(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
	})
}

// Status handles GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
		"started": h.startedAt,
	}

	if stats, err := h.documents.GetStats(ctx); err == nil {
		status["documents"] = stats
	} else {
		h.logger.Warn().Err(err).Msg("Failed to collect document stats")
	}
	if sources, err := h.sources.ListSources(ctx); err == nil {
		status["sources"] = len(sources)
	}
	if jobs, err := h.scraper.ActiveJobs(ctx); err == nil {
		status["active_jobs"] = len(jobs)
	}

	WriteJSON(w, http.StatusOK, status)
}
