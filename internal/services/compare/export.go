package compare

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/mandate-ai/mandate/internal/models"
)

// ExportPDF renders a comparison matrix as a landscape PDF table, one
// column per document.
func (s *Service) ExportPDF(ctx context.Context, result *models.ComparisonResult) ([]byte, error) {
	if result == nil || len(result.Rows) == 0 {
		return nil, models.NewError(models.KindInputInvalid, "comparison result is empty")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Document Comparison", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right
	aspectWidth := usable * 0.2
	cellWidth := (usable - aspectWidth) / float64(len(result.Documents))

	// Header row
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(aspectWidth, 8, "Aspect", "1", 0, "L", true, 0, "")
	for _, docID := range result.Documents {
		pdf.CellFormat(cellWidth, 8, docID, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range result.Rows {
		values := make(map[string]string, len(row.Cells))
		for _, cell := range row.Cells {
			values[cell.DocID] = cell.Value
		}

		rowHeight := s.measureRow(pdf, row.Aspect, values, result.Documents, aspectWidth, cellWidth)

		x, y := pdf.GetXY()
		pdf.Rect(x, y, aspectWidth, rowHeight, "D")
		pdf.MultiCell(aspectWidth, 4, row.Aspect, "", "L", false)
		x += aspectWidth

		for _, docID := range result.Documents {
			pdf.SetXY(x, y)
			pdf.Rect(x, y, cellWidth, rowHeight, "D")
			pdf.MultiCell(cellWidth, 4, values[docID], "", "L", false)
			x += cellWidth
		}
		pdf.SetXY(left, y+rowHeight)
	}

	if result.Summary != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, "Summary", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, result.Summary, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render comparison PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// measureRow computes the tallest cell in a row so all cells share a height
func (s *Service) measureRow(pdf *fpdf.Fpdf, aspect string, values map[string]string, docIDs []string, aspectWidth, cellWidth float64) float64 {
	height := cellHeight(pdf, aspect, aspectWidth)
	for _, docID := range docIDs {
		if h := cellHeight(pdf, values[docID], cellWidth); h > height {
			height = h
		}
	}
	return height
}

func cellHeight(pdf *fpdf.Fpdf, text string, width float64) float64 {
	lines := pdf.SplitText(text, width)
	if len(lines) == 0 {
		return 4
	}
	return float64(len(lines)) * 4
}
