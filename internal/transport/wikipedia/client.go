// Package wikipedia wraps the encyclopedia page-summary API used to
// enrich recognized landmarks. Enrichment is strictly best-effort: the
// client never returns an error, it degrades to defaults and logs.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/travellens-cloud/travellens/internal/domain/landmark"
	"github.com/travellens-cloud/travellens/internal/metrics"
)

// wikiPathMarker identifies a well-formed encyclopedia article link.
const wikiPathMarker = "/wiki/"

// Config holds the enrichment client settings.
type Config struct {
	SummaryBaseURL   string
	Timeout          time.Duration
	UserAgent        string
	PlaceholderImage string
	Logger           *zap.Logger
}

// Client fetches page summaries over HTTP.
type Client struct {
	summaryBase string
	userAgent   string
	placeholder string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates an enrichment client with a bounded request timeout.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		summaryBase: strings.TrimSuffix(cfg.SummaryBaseURL, "/"),
		userAgent:   cfg.UserAgent,
		placeholder: cfg.PlaceholderImage,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      cfg.Logger,
	}
}

// summaryResponse mirrors the fields of the page-summary payload we use.
type summaryResponse struct {
	Extract   string `json:"extract"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	Coordinates *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
}

// Enrich fetches summary data for the article behind wikiLink.
// An empty or malformed link skips the lookup; any request or parse
// failure logs a warning and falls back to defaults.
func (c *Client) Enrich(ctx context.Context, wikiLink string) landmark.Enrichment {
	defaults := landmark.Defaults(c.placeholder)

	title := pageTitle(wikiLink)
	if title == "" {
		metrics.EnrichmentLookupsTotal.WithLabelValues("skipped").Inc()
		return defaults
	}

	summary, err := c.fetchSummary(ctx, title)
	if err != nil {
		metrics.EnrichmentLookupsTotal.WithLabelValues("degraded").Inc()
		c.logger.Warn("enrichment degraded to defaults",
			zap.String("wiki_link", wikiLink),
			zap.Error(err),
		)
		return defaults
	}

	metrics.EnrichmentLookupsTotal.WithLabelValues("ok").Inc()

	enriched := defaults
	if summary.Extract != "" {
		enriched.Summary = summary.Extract
	}
	if summary.Thumbnail != nil && summary.Thumbnail.Source != "" {
		enriched.ImageURL = summary.Thumbnail.Source
	}
	if summary.Coordinates != nil {
		enriched.Coordinates = landmark.FormatCoordinates(
			summary.Coordinates.Latitude, summary.Coordinates.Longitude,
		)
	}
	return enriched
}

func (c *Client) fetchSummary(ctx context.Context, title string) (summaryResponse, error) {
	reqURL := c.summaryBase + "/" + url.PathEscape(title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return summaryResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return summaryResponse{}, fmt.Errorf("summary request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return summaryResponse{}, fmt.Errorf("summary endpoint returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return summaryResponse{}, fmt.Errorf("read response: %w", err)
	}

	var summary summaryResponse
	if err := json.Unmarshal(raw, &summary); err != nil {
		return summaryResponse{}, fmt.Errorf("unparsable summary: %w", err)
	}
	return summary, nil
}

// pageTitle extracts the article title from a wiki link. Returns "" for
// links that do not look like encyclopedia article URLs.
func pageTitle(wikiLink string) string {
	wikiLink = strings.TrimSpace(wikiLink)
	if wikiLink == "" {
		return ""
	}
	i := strings.Index(wikiLink, wikiPathMarker)
	if i < 0 {
		return ""
	}
	title := wikiLink[i+len(wikiPathMarker):]
	if j := strings.IndexAny(title, "?#"); j >= 0 {
		title = title[:j]
	}
	// Titles arrive percent-encoded in links; decode before re-escaping
	// so already-encoded characters are not doubly escaped.
	if decoded, err := url.PathUnescape(title); err == nil {
		title = decoded
	}
	return title
}
