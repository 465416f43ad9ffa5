package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// Service extracts plain text from downloaded document bytes. PDFs go
// through pdfcpu with an OCR fallback when the native text layer is
// missing, DOCX/PPTX are unpacked from their XML, and images go
// straight to OCR.
type Service struct {
	ocr             interfaces.OCRClient
	minCharsPerPage int
	tempDir         string
	logger          arbor.ILogger
}

// NewService creates a text extractor. ocr may be nil, in which case
// scanned documents are reported as is_scanned with empty text.
func NewService(config *common.ExtractorConfig, ocr interfaces.OCRClient, logger arbor.ILogger) (*Service, error) {
	tempDir := filepath.Join(os.TempDir(), "mandate-extract")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create extraction temp dir: %w", err)
	}

	minChars := config.MinCharsPerPage
	if minChars <= 0 {
		minChars = 50
	}

	return &Service{
		ocr:             ocr,
		minCharsPerPage: minChars,
		tempDir:         tempDir,
		logger:          logger,
	}, nil
}

// Extract converts document bytes to normalized UTF-8 plain text.
func (s *Service) Extract(ctx context.Context, data []byte, declaredType string) (*interfaces.ExtractionResult, error) {
	if len(data) == 0 {
		return nil, models.NewError(models.KindExtractionFailed, "empty document")
	}

	switch normalizeType(declaredType) {
	case "pdf":
		return s.extractPDF(ctx, data)
	case "docx":
		text, err := extractDocx(data)
		if err != nil {
			return nil, models.WrapError(models.KindExtractionFailed, "DOCX extraction failed", err)
		}
		return &interfaces.ExtractionResult{Text: normalizeText(text), Pages: 1}, nil
	case "pptx":
		text, pages, err := extractPptx(data)
		if err != nil {
			return nil, models.WrapError(models.KindExtractionFailed, "PPTX extraction failed", err)
		}
		return &interfaces.ExtractionResult{Text: normalizeText(text), Pages: pages}, nil
	case "html", "htm":
		text, err := extractHTML(data)
		if err != nil {
			return nil, models.WrapError(models.KindExtractionFailed, "HTML extraction failed", err)
		}
		return &interfaces.ExtractionResult{Text: normalizeText(text), Pages: 1}, nil
	case "png", "jpg", "tiff":
		return s.extractImage(ctx, data, declaredType)
	default:
		return nil, models.NewError(models.KindInputInvalid,
			fmt.Sprintf("unsupported document type: %s", declaredType))
	}
}

// extractPDF extracts the native text layer page by page. A document
// whose pages average below the character threshold is treated as a
// scan and routed through OCR.
func (s *Service) extractPDF(ctx context.Context, data []byte) (*interfaces.ExtractionResult, error) {
	tempFile := filepath.Join(s.tempDir, fmt.Sprintf("extract_%s.pdf", uuid.New().String()))
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, models.WrapError(models.KindExtractionFailed, "failed to read PDF", err)
	}
	pageCount := pdfCtx.PageCount
	if pageCount == 0 {
		return nil, models.NewError(models.KindExtractionFailed, "PDF has no pages")
	}

	outDir := filepath.Join(s.tempDir, fmt.Sprintf("pages_%s", uuid.New().String()))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create page output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	pageTexts := make(map[int]string)
	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		s.logger.Warn().Err(err).Msg("PDF content extraction failed, treating as scanned")
	} else {
		files, _ := os.ReadDir(outDir)
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			content, readErr := os.ReadFile(filepath.Join(outDir, file.Name()))
			if readErr != nil {
				continue
			}
			var pageNum int
			if _, scanErr := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); scanErr == nil {
				pageTexts[pageNum] = string(content)
			} else if _, scanErr := fmt.Sscanf(file.Name(), "page_%d", &pageNum); scanErr == nil {
				pageTexts[pageNum] = string(content)
			}
		}
	}

	var builder strings.Builder
	totalChars := 0
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := strings.TrimSpace(pageTexts[pageNum])
		totalChars += len(text)
		if pageNum > 1 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	if isScanned(totalChars, pageCount, s.minCharsPerPage) {
		s.logger.Info().
			Int("pages", pageCount).
			Int("chars", totalChars).
			Msg("PDF below text threshold, routing to OCR")
		return s.ocrFallback(ctx, data, "application/pdf", pageCount)
	}

	return &interfaces.ExtractionResult{
		Text:  normalizeText(builder.String()),
		Pages: pageCount,
	}, nil
}

// extractImage routes image bytes to the OCR collaborator
func (s *Service) extractImage(ctx context.Context, data []byte, declaredType string) (*interfaces.ExtractionResult, error) {
	contentType := "image/" + normalizeType(declaredType)
	if normalizeType(declaredType) == "jpg" {
		contentType = "image/jpeg"
	}
	return s.ocrFallback(ctx, data, contentType, 1)
}

func (s *Service) ocrFallback(ctx context.Context, data []byte, contentType string, pages int) (*interfaces.ExtractionResult, error) {
	if s.ocr == nil {
		return &interfaces.ExtractionResult{IsScanned: true, Pages: pages}, nil
	}

	text, err := s.ocr.Recognize(ctx, data, contentType)
	if err != nil {
		return nil, models.WrapError(models.KindExtractionFailed, "OCR failed", err)
	}

	return &interfaces.ExtractionResult{
		Text:      normalizeText(text),
		IsScanned: true,
		Pages:     pages,
	}, nil
}

// isScanned reports whether the average text density falls below the
// per-page character threshold.
func isScanned(totalChars, pages, minCharsPerPage int) bool {
	if pages <= 0 {
		return true
	}
	return totalChars/pages < minCharsPerPage
}

// normalizeType maps declared types and common aliases to a canonical
// lowercase form.
func normalizeType(declaredType string) string {
	t := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(declaredType), "."))
	switch t {
	case "jpeg":
		return "jpg"
	case "tif":
		return "tiff"
	default:
		return t
	}
}

// normalizeText converts line endings to \n and collapses runs of
// more than two blank lines, preserving page boundaries.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	var out []string
	blanks := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, trimmed)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
