package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/interfaces"
)

// CompareHandler serves document comparison, conflict detection, and
// PDF export of comparison matrices.
type CompareHandler struct {
	compare interfaces.CompareService
	logger  arbor.ILogger
}

// NewCompareHandler creates the comparison handler
func NewCompareHandler(compare interfaces.CompareService, logger arbor.ILogger) *CompareHandler {
	return &CompareHandler{compare: compare, logger: logger}
}

type compareRequest struct {
	DocumentIDs       []string `json:"document_ids"`
	ComparisonAspects []string `json:"comparison_aspects,omitempty"`
}

// Compare handles POST /documents/compare
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var body compareRequest
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.compare.Compare(r.Context(), body.DocumentIDs, body.ComparisonAspects)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// Conflicts handles POST /documents/compare/conflicts
func (h *CompareHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	var body compareRequest
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	conflicts, err := h.compare.Conflicts(r.Context(), body.DocumentIDs)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conflicts": conflicts,
		"count":     len(conflicts),
	})
}

// Export handles POST /documents/compare/export
func (h *CompareHandler) Export(w http.ResponseWriter, r *http.Request) {
	var body compareRequest
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.compare.Compare(r.Context(), body.DocumentIDs, body.ComparisonAspects)
	if err != nil {
		WriteError(w, err)
		return
	}

	pdf, err := h.compare.ExportPDF(r.Context(), result)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="comparison.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
