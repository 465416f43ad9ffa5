package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// genericDialect discovers documents heuristically: any anchor whose
// href ends in a known document extension, or whose link text matches
// a configured keyword.
type genericDialect struct{}

func (d *genericDialect) Name() string { return models.DialectGeneric }

func (d *genericDialect) DiscoverLinks(pageHTML, pageURL string, keywords []string) []interfaces.DiscoveredLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}
	return discoverAnchors(doc.Find("a[href]"), pageURL, keywords)
}

func (d *genericDialect) NextPage(pageHTML, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}
	return nextPageLink(doc, pageURL)
}

// discoverAnchors applies the shared heuristic to a set of anchors.
// Links with a document extension are always kept; bare page links
// need a keyword match on the anchor text.
func discoverAnchors(anchors *goquery.Selection, pageURL string, keywords []string) []interfaces.DiscoveredLink {
	var links []interfaces.DiscoveredLink
	seen := make(map[string]bool)

	anchors.Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		resolved := resolveURL(href, pageURL)
		if resolved == "" || resolved == pageURL || seen[resolved] {
			return
		}

		text := sel.Text()
		fileType, isDocument := documentExtensions[extensionOf(resolved)]
		if !isDocument {
			if len(keywords) == 0 || !matchesKeywords(text, keywords) {
				return
			}
			fileType = "html"
		} else if !matchesKeywords(text, keywords) && !matchesKeywords(resolved, keywords) {
			return
		}

		seen[resolved] = true
		links = append(links, interfaces.DiscoveredLink{
			URL:      resolved,
			Title:    linkTitle(text, resolved),
			FileType: fileType,
		})
	})

	return links
}

// nextPageLink finds the pagination successor: rel=next first, then
// anchors whose text reads as a next control.
func nextPageLink(doc *goquery.Document, pageURL string) string {
	if href, ok := doc.Find(`a[rel="next"]`).First().Attr("href"); ok {
		return resolveURL(href, pageURL)
	}

	next := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		switch text {
		case "next", "next »", "next >", "»", ">", "older", "next page":
			if href, ok := sel.Attr("href"); ok {
				if resolved := resolveURL(href, pageURL); resolved != "" && resolved != pageURL {
					next = resolved
					return false
				}
			}
		}
		return true
	})
	return next
}
