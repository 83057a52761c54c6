package fetchstrategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/extract"
)

func TestToCrawledItem(t *testing.T) {
	src := domain.SourceDefinition{
		ID: "src1", Dimension: domain.DimensionNationalPolicy, Tags: []string{"tag1"},
	}
	li := extractListItemFixture("Title One", "https://a.example/1")

	item := toCrawledItem(li, src)

	assert.Equal(t, "Title One", item.Title)
	assert.Equal(t, "https://a.example/1", item.URL)
	assert.NotEmpty(t, item.URLHash)
	assert.Equal(t, "src1", item.SourceID)
	assert.Equal(t, domain.DimensionNationalPolicy, item.Dimension)
	assert.Equal(t, []string{"tag1"}, item.Tags)
}

func extractListItemFixture(title, url string) extract.ListItem {
	return extract.ListItem{Title: title, URL: url}
}

func TestOptionsForAppliesHeadersEncodingAndVerifySSL(t *testing.T) {
	verify := false
	src := domain.SourceDefinition{
		Headers:   map[string]string{"User-Agent": "custom"},
		Encoding:  "gbk",
		VerifySSL: &verify,
	}

	opts := optionsFor(src)

	assert.Equal(t, "custom", opts.Headers["User-Agent"])
	assert.Equal(t, "gbk", opts.EncodingOverride)
	assert.NotNil(t, opts.VerifyTLS)
	assert.False(t, *opts.VerifyTLS)
}

func TestOptionsForOmitsVerifyTLSWhenUnset(t *testing.T) {
	opts := optionsFor(domain.SourceDefinition{})
	assert.Nil(t, opts.VerifyTLS)
}

func TestApplyDetailPopulatesExtraOnlyWhenPresent(t *testing.T) {
	item := &domain.CrawledItem{}
	applyDetail(item, extract.DetailResult{Content: "body text"})
	assert.Equal(t, "body text", item.Content)
	assert.Nil(t, item.Extra)

	applyDetail(item, extract.DetailResult{
		Content: "body", PDFURL: "https://a.example/doc.pdf",
		Images: []domain.Image{{Src: "https://a.example/a.png"}},
	})
	assert.NotNil(t, item.Extra)
	assert.Equal(t, "https://a.example/doc.pdf", item.Extra["pdf_url"])
}
