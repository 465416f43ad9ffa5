package compare

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
	"github.com/mandate-ai/mandate/internal/services/llm"
)

const compareSystemPrompt = `You compare government policy documents aspect by aspect. For every
aspect give each document's position in one short sentence, quoting
figures and dates exactly as written. Write "not addressed" when a
document is silent on an aspect.`

const conflictSystemPrompt = `You find direct contradictions between government policy documents:
places where two documents state incompatible rules, figures or dates
on the same subject. Report only genuine contradictions, not
differences in scope or coverage.`

// excerptChars of each document shown to the provider
const excerptChars = 6000

// defaultAspects used when the caller does not name any
var defaultAspects = []string{"scope", "eligibility", "fees", "deadlines", "compliance requirements"}

var compareSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"rows": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"aspect": map[string]interface{}{"type": "string"},
					"cells": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"doc_id": map[string]interface{}{"type": "string"},
								"value":  map[string]interface{}{"type": "string"},
							},
							"required": []interface{}{"doc_id", "value"},
						},
					},
				},
				"required": []interface{}{"aspect", "cells"},
			},
		},
		"summary": map[string]interface{}{"type": "string"},
	},
	"required": []interface{}{"rows"},
}

var conflictSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"conflicts": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"aspect":      map[string]interface{}{"type": "string"},
					"doc_a":       map[string]interface{}{"type": "string"},
					"doc_b":       map[string]interface{}{"type": "string"},
					"statement_a": map[string]interface{}{"type": "string"},
					"statement_b": map[string]interface{}{"type": "string"},
					"severity":    map[string]interface{}{"type": "string", "enum": []interface{}{"low", "medium", "high"}},
					"explanation": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"aspect", "doc_a", "doc_b", "statement_a", "statement_b", "severity"},
			},
		},
	},
	"required": []interface{}{"conflicts"},
}

// Service builds comparison matrices and conflict reports across
// documents the caller names.
type Service struct {
	documents interfaces.DocumentStorage
	metadata  interfaces.MetadataStorage
	factory   *llm.ProviderFactory
	model     string
	logger    arbor.ILogger
}

// NewService creates the compare service
func NewService(documents interfaces.DocumentStorage, metadata interfaces.MetadataStorage, factory *llm.ProviderFactory, config *common.ChatConfig, logger arbor.ILogger) interfaces.CompareService {
	return &Service{
		documents: documents,
		metadata:  metadata,
		factory:   factory,
		model:     config.Model,
		logger:    logger,
	}
}

// Compare produces an aspect-by-document matrix
func (s *Service) Compare(ctx context.Context, docIDs []string, aspects []string) (*models.ComparisonResult, error) {
	if len(docIDs) < 2 {
		return nil, models.NewError(models.KindInputInvalid, "comparison requires at least two documents")
	}
	if len(docIDs) > 5 {
		return nil, models.NewError(models.KindInputInvalid, "comparison is limited to five documents")
	}
	if len(aspects) == 0 {
		aspects = defaultAspects
	}

	prompt, err := s.buildDocumentPrompt(ctx, docIDs)
	if err != nil {
		return nil, err
	}
	prompt += fmt.Sprintf("\nCompare these documents on the following aspects: %s.", strings.Join(aspects, ", "))

	jsonText, err := s.factory.GenerateStructured(ctx, s.model, compareSystemPrompt, prompt, compareSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Rows []struct {
			Aspect string `json:"aspect"`
			Cells  []struct {
				DocID string `json:"doc_id"`
				Value string `json:"value"`
			} `json:"cells"`
		} `json:"rows"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, models.WrapError(models.KindMetadataFailed, "unparseable comparison response", err)
	}

	result := &models.ComparisonResult{
		Documents: docIDs,
		Summary:   parsed.Summary,
	}
	for _, row := range parsed.Rows {
		cells := make([]models.ComparisonCell, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, models.ComparisonCell{DocID: cell.DocID, Value: cell.Value})
		}
		result.Rows = append(result.Rows, models.ComparisonRow{Aspect: row.Aspect, Cells: cells})
	}

	return result, nil
}

// Conflicts reports direct contradictions between the documents
func (s *Service) Conflicts(ctx context.Context, docIDs []string) ([]models.Conflict, error) {
	if len(docIDs) < 2 {
		return nil, models.NewError(models.KindInputInvalid, "conflict detection requires at least two documents")
	}

	prompt, err := s.buildDocumentPrompt(ctx, docIDs)
	if err != nil {
		return nil, err
	}
	prompt += "\nList the contradictions between these documents."

	jsonText, err := s.factory.GenerateStructured(ctx, s.model, conflictSystemPrompt, prompt, conflictSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Conflicts []models.Conflict `json:"conflicts"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, models.WrapError(models.KindMetadataFailed, "unparseable conflict response", err)
	}
	if parsed.Conflicts == nil {
		parsed.Conflicts = []models.Conflict{}
	}

	return parsed.Conflicts, nil
}

// buildDocumentPrompt loads each document and renders its labelled excerpt
func (s *Service) buildDocumentPrompt(ctx context.Context, docIDs []string) (string, error) {
	var prompt strings.Builder
	for _, docID := range docIDs {
		doc, err := s.documents.GetDocument(ctx, docID)
		if err != nil {
			return "", err
		}
		if doc.ExtractedText == "" {
			return "", models.NewError(models.KindExtractionFailed,
				fmt.Sprintf("document %s has no extracted text", docID))
		}

		title := doc.CanonicalFilename
		if meta, err := s.metadata.GetMetadata(ctx, docID); err == nil && meta.Title != "" {
			title = meta.Title
		}

		text := doc.ExtractedText
		if len(text) > excerptChars {
			text = text[:excerptChars]
		}

		fmt.Fprintf(&prompt, "Document %s (%s):\n%s\n\n", docID, common.SafeTitle(title), text)
	}
	return prompt.String(), nil
}
