package extract

import (
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

// extractHTML converts a scraped HTML page to markdown text. Markdown
// keeps headings and tables legible for the chunker's section
// detection and for the metadata prompt.
func extractHTML(data []byte) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	text, err := converter.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("markdown conversion failed: %w", err)
	}
	return text, nil
}
