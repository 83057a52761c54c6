package domain

import (
	"fmt"
	"strings"
)

// FetchStrategy names one of the built-in fetcher variants a
// SourceDefinition can resolve to when ParserKind is not set.
type FetchStrategy string

const (
	StrategyStatic   FetchStrategy = "static"
	StrategyDynamic  FetchStrategy = "dynamic"
	StrategyRSS      FetchStrategy = "rss"
	StrategySnapshot FetchStrategy = "snapshot"
	StrategyFaculty  FetchStrategy = "faculty"
)

// Schedule is the symbolic crawl frequency attached to a source.
type Schedule string

const (
	ScheduleEvery2h Schedule = "2h"
	ScheduleEvery4h Schedule = "4h"
	ScheduleDaily   Schedule = "daily"
	ScheduleWeekly  Schedule = "weekly"
	ScheduleMonthly Schedule = "monthly"
)

// Dimension is the closed set of top-level categories a source belongs to.
type Dimension string

const (
	DimensionNationalPolicy   Dimension = "national_policy"
	DimensionBeijingPolicy    Dimension = "beijing_policy"
	DimensionTechnology       Dimension = "technology"
	DimensionTalent           Dimension = "talent"
	DimensionIndustry         Dimension = "industry"
	DimensionUniversities     Dimension = "universities"
	DimensionEvents           Dimension = "events"
	DimensionPersonnel        Dimension = "personnel"
	DimensionSentiment        Dimension = "sentiment"
	DimensionTwitter          Dimension = "twitter"
	DimensionUniversityFacult Dimension = "university_faculty"
)

var validDimensions = map[Dimension]bool{
	DimensionNationalPolicy: true, DimensionBeijingPolicy: true,
	DimensionTechnology: true, DimensionTalent: true, DimensionIndustry: true,
	DimensionUniversities: true, DimensionEvents: true, DimensionPersonnel: true,
	DimensionSentiment: true, DimensionTwitter: true, DimensionUniversityFacult: true,
}

// ListSelectors drives C4's list-page extraction for a given source.
type ListSelectors struct {
	ListItem   string `yaml:"list_item"`
	Title      string `yaml:"title"`
	Link       string `yaml:"link"`
	LinkAttr   string `yaml:"link_attr"`
	Date       string `yaml:"date"`
	DateFormat string `yaml:"date_format"`
	DateRegex  string `yaml:"date_regex"`
}

// DetailSelectors drives C4's detail-page extraction for a given source.
type DetailSelectors struct {
	Content             string            `yaml:"content"`
	Author              string            `yaml:"author"`
	Images              string            `yaml:"images"`
	PDFURL              string            `yaml:"pdf_url"`
	HeadingSections     map[string]string `yaml:"heading_sections"`
	LabelPrefixSections map[string]string `yaml:"label_prefix_sections"`
}

// SnapshotSelectors configures the snapshot strategy's content area and
// noise-stripping patterns.
type SnapshotSelectors struct {
	ContentArea     string   `yaml:"content_area"`
	IgnorePatterns  []string `yaml:"ignore_patterns"`
}

// SourceDefinition is the immutable, config-loaded description of one
// monitored source. Exactly one of ParserKind or FetchStrategy is honored
// when resolving a fetcher (ParserKind wins).
type SourceDefinition struct {
	ID                  string            `yaml:"id"`
	Name                string            `yaml:"name"`
	Dimension           Dimension         `yaml:"dimension"`
	Group               string            `yaml:"group"`
	URL                 string            `yaml:"url"`
	FetchStrategy       FetchStrategy     `yaml:"fetch_strategy"`
	ParserKind          string            `yaml:"parser_kind"`
	Schedule            Schedule          `yaml:"schedule"`
	Enabled             bool              `yaml:"enabled"`
	Priority            int               `yaml:"priority"`
	ListSelectors       ListSelectors     `yaml:"list_selectors"`
	DetailSelectors     DetailSelectors   `yaml:"detail_selectors"`
	SnapshotSelectors   SnapshotSelectors `yaml:"snapshot_selectors"`
	WaitCondition       string            `yaml:"wait_condition"`
	KeywordFilter       []string          `yaml:"keyword_filter"`
	BaseURL             string            `yaml:"base_url"`
	Tags                []string          `yaml:"tags"`
	Headers             map[string]string `yaml:"headers"`
	Encoding            string            `yaml:"encoding"`
	RequestDelaySeconds float64           `yaml:"request_delay_seconds"`
	VerifySSL           *bool             `yaml:"verify_ssl"`
	MaxEntries          int               `yaml:"max_entries"`
	MaxPages            int               `yaml:"max_pages"`
	DetailViaPlainHTTP  bool              `yaml:"detail_via_plain_http"`
}

// Validate checks the invariants from the data model: a globally unique id
// (checked by the caller across the whole catalog), exactly one fetch
// routing mechanism, and dimension membership in the closed set.
func (s *SourceDefinition) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	if !validDimensions[s.Dimension] {
		return &ValidationError{Field: "dimension", Message: fmt.Sprintf("unknown dimension %q", s.Dimension)}
	}
	if s.ParserKind == "" && s.FetchStrategy == "" {
		s.FetchStrategy = StrategyRSS
	}
	if s.ParserKind == "" {
		switch s.FetchStrategy {
		case StrategyStatic, StrategyDynamic, StrategyRSS, StrategySnapshot, StrategyFaculty:
		default:
			return &ValidationError{Field: "fetch_strategy", Message: fmt.Sprintf("unknown fetch_strategy %q", s.FetchStrategy)}
		}
		if s.FetchStrategy != StrategyRSS && s.ListSelectors.ListItem == "" {
			return &ValidationError{Field: "list_selectors", Message: "list_selectors.list_item is required for non-rss strategies"}
		}
	}
	if s.BaseURL != "" && !strings.HasSuffix(s.BaseURL, "/") {
		s.BaseURL += "/"
	}
	return nil
}
