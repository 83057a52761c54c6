package fetchstrategy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

// GitHubTrendingParser is a bespoke API parser (parser_kind =
// "github_trending") combining the trending HTML page (GitHub has no
// public trending REST endpoint) with per-repo metadata pulled from the
// REST API, per spec §4.5 ("GitHub trending (REST + HTML)").
type GitHubTrendingParser struct {
	Client *httpclient.Client
}

func NewGitHubTrendingParser(client *httpclient.Client) *GitHubTrendingParser {
	return &GitHubTrendingParser{Client: client}
}

type githubRepo struct {
	FullName        string `json:"full_name"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description"`
	StargazersCount int    `json:"stargazers_count"`
	Language        string `json:"language"`
	PushedAt        string `json:"pushed_at"`
}

func (p *GitHubTrendingParser) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	body, _, err := p.Client.FetchPage(ctx, src.URL, optionsFor(src))
	if err != nil {
		return nil, 0, fmt.Errorf("fetch trending page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(newReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse trending html: %w", err)
	}

	var repoNames []string
	doc.Find("article.Box-row h2 a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		repoNames = append(repoNames, strings.Trim(href, "/"))
	})

	maxEntries := src.MaxEntries
	if maxEntries <= 0 || maxEntries > len(repoNames) {
		maxEntries = len(repoNames)
	}

	var itemErrs int
	items := make([]domain.CrawledItem, 0, maxEntries)
	for _, name := range repoNames[:maxEntries] {
		repo, err := p.fetchRepoMeta(ctx, name)
		if err != nil {
			itemErrs++
			continue
		}
		var publishedAt *time.Time
		if t, err := time.Parse(time.RFC3339, repo.PushedAt); err == nil {
			publishedAt = &t
		}
		items = append(items, domain.CrawledItem{
			Title:       repo.FullName,
			URL:         repo.HTMLURL,
			URLHash:     urlutil.URLHash(repo.HTMLURL),
			PublishedAt: publishedAt,
			Summary:     repo.Description,
			Content:     repo.Description,
			ContentHash: urlutil.ContentHash(repo.Description),
			SourceID:    src.ID,
			Dimension:   src.Dimension,
			Tags:        src.Tags,
			Extra: map[string]any{
				"stars":    strconv.Itoa(repo.StargazersCount),
				"language": repo.Language,
			},
		})
	}
	return items, itemErrs, nil
}

func (p *GitHubTrendingParser) fetchRepoMeta(ctx context.Context, fullName string) (githubRepo, error) {
	var repo githubRepo
	url := fmt.Sprintf("https://api.github.com/repos/%s", fullName)
	err := p.Client.FetchJSON(ctx, url, httpclient.Options{
		Headers: map[string]string{"Accept": "application/vnd.github+json"},
	}, &repo)
	return repo, err
}
