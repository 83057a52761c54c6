package extract_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/extract"
)

const listHTML = `
<html><body><ul class="list">
<li><a href="/news/t20260215_001.html">First item</a></li>
<li><a href="/news/t20260220_002.html">Second item</a></li>
</ul></body></html>`

func TestExtractList_S1StaticWithURLDates(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listHTML))
	require.NoError(t, err)

	sel := domain.ListSelectors{ListItem: "ul.list li", Title: "a", Link: "a"}
	items, err := extract.ExtractList(doc, sel, "https://site/news/", nil)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://site/news/t20260215_001.html", items[0].URL)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, "2026-02-15", items[0].PublishedAt.Format("2006-01-02"))

	assert.Equal(t, "2026-02-20", items[1].PublishedAt.Format("2006-01-02"))
}

func TestExtractList_SelectorMissIsError(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)
	_, err = extract.ExtractList(doc, domain.ListSelectors{ListItem: "ul.missing li"}, "https://site/", nil)
	assert.ErrorIs(t, err, domain.ErrSelectorMiss)
}

func TestExtractList_KeywordFilter(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listHTML))
	require.NoError(t, err)
	sel := domain.ListSelectors{ListItem: "ul.list li", Title: "a", Link: "a"}
	items, err := extract.ExtractList(doc, sel, "https://site/news/", nil)
	require.NoError(t, err)

	filtered := extract.ApplyKeywordFilter(items, []string{"second"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "Second item", filtered[0].Title)
}

func TestExtractDetail_SanitizesScriptTags(t *testing.T) {
	html := `<html><body><div class="content"><p>Hello</p><script>alert(1)</script></div></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	result := extract.ExtractDetail(doc, domain.DetailSelectors{Content: "div.content"}, "https://site/")
	assert.NotContains(t, result.ContentHTML, "<script>")
	assert.Contains(t, result.Content, "Hello")
	assert.NotEmpty(t, result.ContentHash)
}

func TestExtractDetail_MissingSelectorIsNonFatal(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)
	result := extract.ExtractDetail(doc, domain.DetailSelectors{}, "https://site/")
	assert.Empty(t, result.Content)
	assert.Empty(t, result.ContentHash)
}

func TestExtractDetailAuto_DelegatesToSelectorWhenConfigured(t *testing.T) {
	html := `<html><body><div class="content"><p>Hello there</p></div></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	result := extract.ExtractDetailAuto(doc, domain.DetailSelectors{Content: "div.content"}, "https://site/")
	assert.Contains(t, result.Content, "Hello there")
}

func TestExtractDetailAuto_FallsBackToReadabilityWithNoSelector(t *testing.T) {
	html := `<html><head><title>Article</title></head><body>
<article><h1>A Real Headline</h1>
<p>This is the first paragraph of a long article with enough prose that
readability's scoring heuristics should recognize it as the main content
block rather than boilerplate navigation or a sidebar.</p>
<p>A second paragraph continues the same thought with more real sentences
so the extracted text is unambiguously the article body.</p></article>
</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	result := extract.ExtractDetailAuto(doc, domain.DetailSelectors{}, "https://site/articles/1")
	assert.Contains(t, result.Content, "first paragraph")
	assert.NotEmpty(t, result.ContentHash)
}
