package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
	"github.com/mandate-ai/mandate/internal/services/llm"
)

const extractionSystemPrompt = `You are a document analyst for a government policy repository covering
education ministries, university grants bodies and technical education councils.
Given the opening text of a document, extract structured metadata.
Document types include: circular, notification, policy, regulation, guideline,
order, report, act, amendment, scheme, advisory.
Use the document's own language for the title; summarize in English.`

// metadataSchema constrains the structured output of the provider.
var metadataSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"title":         map[string]interface{}{"type": "string", "description": "Official document title"},
		"department":    map[string]interface{}{"type": "string", "description": "Issuing department or body"},
		"document_type": map[string]interface{}{"type": "string", "description": "Document category, lowercase"},
		"summary":       map[string]interface{}{"type": "string", "description": "1-3 sentence summary in English"},
		"keywords": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"language": map[string]interface{}{"type": "string", "description": "Primary language, e.g. en, hi"},
	},
	"required": []interface{}{"title", "summary", "keywords", "document_type"},
}

// placeholders providers emit when they cannot determine a field
var placeholderValues = map[string]bool{
	"unknown": true, "untitled": true, "n/a": true, "na": true,
	"none": true, "title": true, "document": true, "not available": true,
	"no title": true, "unspecified": true,
}

// Extractor produces document metadata through a primary provider with
// a single fallback, gated on minimum quality.
type Extractor struct {
	factory *llm.ProviderFactory
	config  *common.MetadataConfig
	timeout time.Duration
	logger  arbor.ILogger
}

// NewExtractor creates a metadata extractor
func NewExtractor(factory *llm.ProviderFactory, config *common.MetadataConfig, logger arbor.ILogger) interfaces.MetadataExtractor {
	return &Extractor{
		factory: factory,
		config:  config,
		timeout: 60 * time.Second,
		logger:  logger,
	}
}

type rawMetadata struct {
	Title        string   `json:"title"`
	Department   string   `json:"department"`
	DocumentType string   `json:"document_type"`
	Summary      string   `json:"summary"`
	Keywords     []string `json:"keywords"`
	Language     string   `json:"language"`
}

// ExtractMetadata runs the provider chain over the document's leading
// text. A gate failure on both providers returns the best partial
// result with metadata_status=failed; the caller applies retention
// policy.
func (e *Extractor) ExtractMetadata(ctx context.Context, docID, filename, text string) (*models.DocumentMetadata, error) {
	excerpt := text
	if e.config.MaxChars > 0 && len(excerpt) > e.config.MaxChars {
		excerpt = excerpt[:e.config.MaxChars]
	}

	prompt := fmt.Sprintf("Filename: %s\n\nDocument text:\n%s", common.SafeTitle(filename), excerpt)

	providers := []string{e.config.PrimaryModel}
	if e.config.FallbackModel != "" && e.config.FallbackModel != e.config.PrimaryModel {
		providers = append(providers, e.config.FallbackModel)
	}

	var lastRaw *rawMetadata
	for _, model := range providers {
		raw, err := e.extractWith(ctx, model, prompt)
		if err != nil {
			e.logger.Warn().
				Str("doc_id", docID).
				Str("model", model).
				Err(err).
				Msg("Metadata extraction attempt failed")
			continue
		}

		lastRaw = raw
		if !e.config.QualityGate || e.passesGate(raw) {
			meta := e.build(docID, raw, model)
			meta.MetadataStatus = models.MetadataReady
			meta.QualityScore = e.score(raw)
			return meta, nil
		}

		e.logger.Warn().
			Str("doc_id", docID).
			Str("model", model).
			Str("title", common.SafeTitle(raw.Title)).
			Msg("Metadata failed quality gate")
	}

	if lastRaw != nil {
		meta := e.build(docID, lastRaw, "")
		meta.MetadataStatus = models.MetadataFailed
		meta.QualityScore = e.score(lastRaw)
		return meta, nil
	}

	return nil, models.NewError(models.KindMetadataFailed,
		fmt.Sprintf("metadata extraction failed for %s on all providers", docID))
}

func (e *Extractor) extractWith(ctx context.Context, model, prompt string) (*rawMetadata, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	jsonText, err := e.factory.GenerateStructured(callCtx, model, extractionSystemPrompt, prompt, metadataSchema)
	if err != nil {
		return nil, err
	}

	var raw rawMetadata
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, models.WrapError(models.KindMetadataFailed, "provider returned unparseable JSON", err)
	}
	return &raw, nil
}

// passesGate applies the minimum quality requirements
func (e *Extractor) passesGate(raw *rawMetadata) bool {
	if isPlaceholder(raw.Title) || len(strings.TrimSpace(raw.Title)) < e.config.MinTitleLen {
		return false
	}
	if isPlaceholder(raw.Summary) || len(strings.TrimSpace(raw.Summary)) < e.config.MinSummaryLen {
		return false
	}
	return len(cleanKeywords(raw.Keywords)) >= e.config.MinKeywords
}

func (e *Extractor) score(raw *rawMetadata) float64 {
	score := 0.0
	if !isPlaceholder(raw.Title) && len(strings.TrimSpace(raw.Title)) >= e.config.MinTitleLen {
		score += 0.3
	}
	if !isPlaceholder(raw.Summary) && len(strings.TrimSpace(raw.Summary)) >= e.config.MinSummaryLen {
		score += 0.3
	}
	if len(cleanKeywords(raw.Keywords)) >= e.config.MinKeywords {
		score += 0.2
	}
	if raw.DocumentType != "" && !isPlaceholder(raw.DocumentType) {
		score += 0.1
	}
	if raw.Department != "" && !isPlaceholder(raw.Department) {
		score += 0.1
	}
	return score
}

func (e *Extractor) build(docID string, raw *rawMetadata, provider string) *models.DocumentMetadata {
	language := strings.ToLower(strings.TrimSpace(raw.Language))
	if language == "" {
		language = "en"
	}

	return &models.DocumentMetadata{
		DocID:           docID,
		Title:           strings.TrimSpace(raw.Title),
		Department:      strings.TrimSpace(raw.Department),
		DocumentType:    strings.ToLower(strings.TrimSpace(raw.DocumentType)),
		Summary:         strings.TrimSpace(raw.Summary),
		Keywords:        cleanKeywords(raw.Keywords),
		Language:        language,
		EmbeddingStatus: models.EmbeddingNotEmbedded,
		Provider:        provider,
	}
}

func isPlaceholder(value string) bool {
	return placeholderValues[strings.ToLower(strings.TrimSpace(value))]
}

// cleanKeywords trims, lowercases and dedupes, capping at 10
func cleanKeywords(keywords []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] || isPlaceholder(kw) {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
		if len(out) == 10 {
			break
		}
	}
	return out
}
