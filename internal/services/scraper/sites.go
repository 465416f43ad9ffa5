package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// Site dialects know where the listing tables live on the ministry and
// council portals. Each falls back to the generic heuristic when the
// expected markup is absent, so a site redesign degrades instead of
// going silent.

// moeDialect targets the Ministry of Education document archive:
// table rows with the title in the second cell and the file link in
// the last.
type moeDialect struct{}

func (d *moeDialect) Name() string { return models.DialectMoE }

func (d *moeDialect) DiscoverLinks(pageHTML, pageURL string, keywords []string) []interfaces.DiscoveredLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	var links []interfaces.DiscoveredLink
	seen := make(map[string]bool)

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		anchor := row.Find("td a[href]").Last()
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		resolved := resolveURL(href, pageURL)
		fileType, isDocument := documentExtensions[extensionOf(resolved)]
		if resolved == "" || !isDocument || seen[resolved] {
			return
		}

		title := strings.Join(strings.Fields(row.Find("td").First().Text()), " ")
		if cells := row.Find("td"); cells.Length() > 1 {
			if t := strings.Join(strings.Fields(cells.Eq(1).Text()), " "); t != "" {
				title = t
			}
		}
		if title == "" {
			title = linkTitle(anchor.Text(), resolved)
		}
		if !matchesKeywords(title, keywords) && !matchesKeywords(resolved, keywords) {
			return
		}

		seen[resolved] = true
		links = append(links, interfaces.DiscoveredLink{URL: resolved, Title: title, FileType: fileType})
	})

	if len(links) == 0 {
		return discoverAnchors(doc.Find("a[href]"), pageURL, keywords)
	}
	return links
}

func (d *moeDialect) NextPage(pageHTML, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}
	if href, ok := doc.Find("li.pager-next a, li.next a").First().Attr("href"); ok {
		return resolveURL(href, pageURL)
	}
	return nextPageLink(doc, pageURL)
}

// ugcDialect targets the UGC circulars listing: a content view whose
// rows link straight to the uploaded PDF.
type ugcDialect struct{}

func (d *ugcDialect) Name() string { return models.DialectUGC }

func (d *ugcDialect) DiscoverLinks(pageHTML, pageURL string, keywords []string) []interfaces.DiscoveredLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	anchors := doc.Find("div.view-content a[href], table.views-table a[href]")
	if anchors.Length() == 0 {
		anchors = doc.Find("a[href]")
	}
	return discoverAnchors(anchors, pageURL, keywords)
}

func (d *ugcDialect) NextPage(pageHTML, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}
	if href, ok := doc.Find("li.pager__item--next a, li.pager-next a").First().Attr("href"); ok {
		return resolveURL(href, pageURL)
	}
	return nextPageLink(doc, pageURL)
}

// aicteDialect targets the AICTE bulletin lists: notice items as list
// entries with the attachment inline.
type aicteDialect struct{}

func (d *aicteDialect) Name() string { return models.DialectAICTE }

func (d *aicteDialect) DiscoverLinks(pageHTML, pageURL string, keywords []string) []interfaces.DiscoveredLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	anchors := doc.Find("ul.notifications a[href], div.circular-list a[href], ul li a[href]")
	if anchors.Length() == 0 {
		anchors = doc.Find("a[href]")
	}
	return discoverAnchors(anchors, pageURL, keywords)
}

func (d *aicteDialect) NextPage(pageHTML, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}
	return nextPageLink(doc, pageURL)
}
