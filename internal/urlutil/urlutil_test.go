package urlutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

func TestCanonicalize_StripsBlacklistedParams(t *testing.T) {
	a, err := urlutil.Canonicalize("https://Example.com/news?utm_source=x&id=1")
	require.NoError(t, err)
	b, err := urlutil.Canonicalize("https://example.com/news?id=1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	raw := "https://Example.com/news/?utm_campaign=x&b=2&a=1"
	once, err := urlutil.Canonicalize(raw)
	require.NoError(t, err)
	twice, err := urlutil.Canonicalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestCanonicalize_PreservesFragment(t *testing.T) {
	got, err := urlutil.Canonicalize("https://site/leaders#snapshot-abc123456789")
	require.NoError(t, err)
	assert.Contains(t, got, "#snapshot-abc123456789")
}

func TestURLHash_SameForBlacklistedParamVariants(t *testing.T) {
	h1 := urlutil.URLHash("https://example.com/a?utm_source=x")
	h2 := urlutil.URLHash("https://example.com/a")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestContentHash_NullOnEmpty(t *testing.T) {
	assert.Empty(t, urlutil.ContentHash("   \n\t  "))
	assert.NotEmpty(t, urlutil.ContentHash("hello world"))
}

func TestContentHash_CollapsesWhitespace(t *testing.T) {
	h1 := urlutil.ContentHash("hello   world\n\n")
	h2 := urlutil.ContentHash("hello world")
	assert.Equal(t, h1, h2)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://x/a/b/", urlutil.NormalizeBaseURL("https://x/a/b"))
	assert.Equal(t, "https://x/a/b/", urlutil.NormalizeBaseURL("https://x/a/b/"))
	assert.Equal(t, "", urlutil.NormalizeBaseURL(""))
}

func TestMakeAbsolute_RespectsBaseAsDirectory(t *testing.T) {
	got, err := urlutil.MakeAbsolute("https://x/a/b", "c")
	require.NoError(t, err)
	assert.Equal(t, "https://x/a/b/c", got)
}

func TestMakeAbsolute_PassesThroughAbsoluteLinks(t *testing.T) {
	got, err := urlutil.MakeAbsolute("https://x/a/", "https://other.com/z")
	require.NoError(t, err)
	assert.Equal(t, "https://other.com/z", got)
}

func TestValidateURL_RejectsPrivateHostLiteral(t *testing.T) {
	err := urlutil.ValidateURL("http://127.0.0.1/admin")
	assert.Error(t, err)
}

func TestValidateURL_RejectsNonHTTPScheme(t *testing.T) {
	err := urlutil.ValidateURL("ftp://example.com/file")
	assert.Error(t, err)
}
