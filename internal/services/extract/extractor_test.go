package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/models"
)

type stubOCR struct {
	text string
	err  error
}

func (s *stubOCR) Recognize(ctx context.Context, data []byte, contentType string) (string, error) {
	return s.text, s.err
}

func newTestExtractor(t *testing.T, ocr *stubOCR) *Service {
	t.Helper()
	var svc *Service
	var err error
	if ocr != nil {
		svc, err = NewService(&common.ExtractorConfig{MinCharsPerPage: 50}, ocr, common.GetLogger())
	} else {
		svc, err = NewService(&common.ExtractorConfig{MinCharsPerPage: 50}, nil, common.GetLogger())
	}
	require.NoError(t, err)
	return svc
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtract_Docx(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>National Education Policy</w:t></w:r></w:p>
    <w:p><w:r><w:t>Section 1: </w:t></w:r><w:r><w:t>Scope</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": docXML})

	svc := newTestExtractor(t, nil)
	result, err := svc.Extract(context.Background(), data, "docx")
	require.NoError(t, err)
	assert.False(t, result.IsScanned)
	assert.Contains(t, result.Text, "National Education Policy")
	assert.Contains(t, result.Text, "Section 1: Scope")
}

func TestExtract_PptxSlideOrder(t *testing.T) {
	slide := func(text string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <a:p><a:r><a:t>` + text + `</a:t></a:r></a:p>
</p:sld>`
	}
	data := buildZip(t, map[string]string{
		"ppt/slides/slide2.xml":  slide("Second"),
		"ppt/slides/slide1.xml":  slide("First"),
		"ppt/slides/slide10.xml": slide("Tenth"),
	})

	svc := newTestExtractor(t, nil)
	result, err := svc.Extract(context.Background(), data, "pptx")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Pages)
	first := bytes.Index([]byte(result.Text), []byte("First"))
	second := bytes.Index([]byte(result.Text), []byte("Second"))
	tenth := bytes.Index([]byte(result.Text), []byte("Tenth"))
	assert.Less(t, first, second)
	assert.Less(t, second, tenth)
}

func TestExtract_ImageUsesOCR(t *testing.T) {
	svc := newTestExtractor(t, &stubOCR{text: "recognized text"})
	result, err := svc.Extract(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47}, "png")
	require.NoError(t, err)
	assert.True(t, result.IsScanned)
	assert.Equal(t, "recognized text", result.Text)
}

func TestExtract_UnsupportedType(t *testing.T) {
	svc := newTestExtractor(t, nil)
	_, err := svc.Extract(context.Background(), []byte("x"), "xlsx")
	require.Error(t, err)
	assert.Equal(t, models.KindInputInvalid, models.KindOf(err))
}

func TestExtract_EmptyInput(t *testing.T) {
	svc := newTestExtractor(t, nil)
	_, err := svc.Extract(context.Background(), nil, "pdf")
	require.Error(t, err)
	assert.Equal(t, models.KindExtractionFailed, models.KindOf(err))
}

func TestIsScanned(t *testing.T) {
	assert.True(t, isScanned(40, 1, 50))
	assert.False(t, isScanned(500, 2, 50))
	assert.True(t, isScanned(90, 2, 50))
	assert.True(t, isScanned(0, 0, 50))
}

func TestNormalizeText(t *testing.T) {
	in := "Line one\r\nLine two\r\n\r\n\r\n\r\n\r\nLine three  \n"
	out := normalizeText(in)
	assert.Equal(t, "Line one\nLine two\n\n\nLine three", out)
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, "pdf", normalizeType(".PDF"))
	assert.Equal(t, "jpg", normalizeType("jpeg"))
	assert.Equal(t, "tiff", normalizeType("tif"))
}
