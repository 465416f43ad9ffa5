package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/models"
)

const genericListingHTML = `
<html><body>
  <h1>Circulars</h1>
  <ul>
    <li><a href="/docs/fee-circular-2025.pdf">Fee Regulation Circular 2025</a></li>
    <li><a href="notices/scholarship.docx">Scholarship Notification</a></li>
    <li><a href="/news/sports-day">Annual Sports Day</a></li>
    <li><a href="/policy/admission-guidelines">Admission Guidelines for 2025</a></li>
    <li><a href="javascript:void(0)">Share</a></li>
    <li><a href="mailto:info@example.gov.in">Contact</a></li>
    <li><a href="/docs/fee-circular-2025.pdf">Duplicate link</a></li>
  </ul>
  <a rel="next" href="/circulars?page=2">Next</a>
</body></html>`

func TestGenericDialect_DiscoverLinks(t *testing.T) {
	d := ForDialect(models.DialectGeneric)
	links := d.DiscoverLinks(genericListingHTML, "https://example.gov.in/circulars", nil)

	require.Len(t, links, 2)
	assert.Equal(t, "https://example.gov.in/docs/fee-circular-2025.pdf", links[0].URL)
	assert.Equal(t, "Fee Regulation Circular 2025", links[0].Title)
	assert.Equal(t, "pdf", links[0].FileType)
	assert.Equal(t, "docx", links[1].FileType)
}

func TestGenericDialect_KeywordMatchesPageLinks(t *testing.T) {
	d := ForDialect(models.DialectGeneric)
	links := d.DiscoverLinks(genericListingHTML, "https://example.gov.in/circulars", []string{"admission"})

	urls := make(map[string]string)
	for _, link := range links {
		urls[link.URL] = link.FileType
	}
	// Keyword match promotes the bare page link as an HTML document.
	assert.Equal(t, "html", urls["https://example.gov.in/policy/admission-guidelines"])
	assert.NotContains(t, urls, "https://example.gov.in/news/sports-day")
}

func TestGenericDialect_NextPage(t *testing.T) {
	d := ForDialect(models.DialectGeneric)
	next := d.NextPage(genericListingHTML, "https://example.gov.in/circulars")
	assert.Equal(t, "https://example.gov.in/circulars?page=2", next)

	assert.Empty(t, d.NextPage("<html><body><p>done</p></body></html>", "https://example.gov.in/circulars"))
}

func TestGenericDialect_NextPageByText(t *testing.T) {
	html := `<html><body><div class="pager"><a href="?page=1">1</a><a href="?page=2">Next</a></div></body></html>`
	d := ForDialect(models.DialectGeneric)
	assert.Equal(t, "https://example.gov.in/list?page=2",
		d.NextPage(html, "https://example.gov.in/list"))
}

const moeListingHTML = `
<html><body>
<table>
  <tr><th>S.No</th><th>Title</th><th>Date</th><th>Download</th></tr>
  <tr>
    <td>1</td>
    <td>National Education Policy Implementation Order</td>
    <td>12-03-2025</td>
    <td><a href="/upload_files/mhrd/files/nep-order.pdf">Download</a></td>
  </tr>
  <tr>
    <td>2</td>
    <td>Mid Day Meal Scheme Revision</td>
    <td>02-01-2025</td>
    <td><a href="/upload_files/mhrd/files/mdm-revision.pdf">Download</a></td>
  </tr>
</table>
<ul class="pager"><li class="pager-next"><a href="/documents?page=1">next ›</a></li></ul>
</body></html>`

func TestMoEDialect_TableDiscovery(t *testing.T) {
	d := ForDialect(models.DialectMoE)
	links := d.DiscoverLinks(moeListingHTML, "https://www.education.gov.in/documents", nil)

	require.Len(t, links, 2)
	assert.Equal(t, "National Education Policy Implementation Order", links[0].Title)
	assert.Equal(t, "https://www.education.gov.in/upload_files/mhrd/files/nep-order.pdf", links[0].URL)
	assert.Equal(t, "pdf", links[0].FileType)
	assert.Equal(t, "Mid Day Meal Scheme Revision", links[1].Title)
}

func TestMoEDialect_NextPage(t *testing.T) {
	d := ForDialect(models.DialectMoE)
	assert.Equal(t, "https://www.education.gov.in/documents?page=1",
		d.NextPage(moeListingHTML, "https://www.education.gov.in/documents"))
}

func TestMoEDialect_FallsBackToGeneric(t *testing.T) {
	html := `<html><body><a href="/files/circular.pdf">Hostel Circular</a></body></html>`
	d := ForDialect(models.DialectMoE)
	links := d.DiscoverLinks(html, "https://www.education.gov.in/notices", nil)
	require.Len(t, links, 1)
	assert.Equal(t, "Hostel Circular", links[0].Title)
}

func TestUGCDialect_ViewContent(t *testing.T) {
	html := `
<html><body>
<div class="view-content">
  <table><tr><td><a href="/pdfnews/1234_fellowship.pdf">Junior Research Fellowship Notice</a></td></tr></table>
</div>
<div class="footer"><a href="/sitemap.pdf">Sitemap</a></div>
</body></html>`
	d := ForDialect(models.DialectUGC)
	links := d.DiscoverLinks(html, "https://www.ugc.gov.in/ugc_notices", nil)

	require.Len(t, links, 1)
	assert.Equal(t, "https://www.ugc.gov.in/pdfnews/1234_fellowship.pdf", links[0].URL)
}

func TestAICTEDialect_ListDiscovery(t *testing.T) {
	html := `
<html><body>
<ul class="notifications">
  <li><a href="/assets/circulars/approval-process.pdf">Approval Process Handbook</a></li>
  <li><a href="/assets/circulars/fee-committee.pdf">Fee Committee Report</a></li>
</ul>
</body></html>`
	d := ForDialect(models.DialectAICTE)
	links := d.DiscoverLinks(html, "https://www.aicte-india.org/bulletins", nil)

	require.Len(t, links, 2)
	assert.Equal(t, "pdf", links[0].FileType)
}

func TestForDialect_UnknownFallsBack(t *testing.T) {
	assert.Equal(t, models.DialectGeneric, ForDialect("something-else").Name())
	assert.Equal(t, models.DialectMoE, ForDialect(models.DialectMoE).Name())
	assert.Equal(t, models.DialectUGC, ForDialect(models.DialectUGC).Name())
	assert.Equal(t, models.DialectAICTE, ForDialect(models.DialectAICTE).Name())
}

func TestResolveURL(t *testing.T) {
	base := "https://example.gov.in/list/page"

	assert.Equal(t, "https://example.gov.in/doc.pdf", resolveURL("/doc.pdf", base))
	assert.Equal(t, "https://example.gov.in/list/doc.pdf", resolveURL("doc.pdf", base))
	assert.Equal(t, "https://other.org/doc.pdf", resolveURL("https://other.org/doc.pdf", base))
	assert.Empty(t, resolveURL("#top", base))
	assert.Empty(t, resolveURL("javascript:alert(1)", base))
	assert.Empty(t, resolveURL("mailto:a@b.c", base))
	assert.Empty(t, resolveURL("ftp://example.com/doc.pdf", base))
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, "pdf", extensionOf("https://x.gov/a/b.PDF"))
	assert.Equal(t, "pdf", extensionOf("https://x.gov/a/b.pdf?dl=1"))
	assert.Empty(t, extensionOf("https://x.gov/a/b"))
	assert.Empty(t, extensionOf("https://x.gov/"))
}

func TestLinkTitle(t *testing.T) {
	assert.Equal(t, "Fee Circular", linkTitle("  Fee \n Circular ", "https://x.gov/doc.pdf"))
	assert.Equal(t, "fee-circular.pdf", linkTitle("", "https://x.gov/files/fee-circular.pdf"))
}
