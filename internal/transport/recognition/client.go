// Package recognition wraps the external image classification service.
//
// The service's response schema is not fixed: the landmark name, the
// reference link, and the confidence score each arrive under one of
// several known field spellings. The client normalizes them into a
// canonical landmark.Guess with a defined precedence order.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/travellens-cloud/travellens/internal/domain"
	"github.com/travellens-cloud/travellens/internal/domain/landmark"
	"github.com/travellens-cloud/travellens/internal/metrics"
)

// Field spellings accepted from the service, in precedence order.
var (
	nameFields       = []string{"landmarkName", "name", "landmark_name"}
	linkFields       = []string{"wikiLink", "wikipedialink", "wiki_link"}
	confidenceFields = []string{"score", "confidence"}
)

// uploadField is the multipart form field the service reads the image from.
const uploadField = "file"

// Config holds the recognition client settings.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	HealthPath string
	Logger     *zap.Logger
}

// Client calls the recognition service over HTTP.
type Client struct {
	endpoint   string
	healthURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a recognition client with a bounded request timeout.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	healthURL := ""
	if cfg.HealthPath != "" {
		base := strings.TrimSuffix(cfg.Endpoint, "/")
		if i := strings.Index(base, "://"); i >= 0 {
			if j := strings.Index(base[i+3:], "/"); j >= 0 {
				base = base[:i+3+j]
			}
		}
		healthURL = base + cfg.HealthPath
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		healthURL:  healthURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

// Recognize uploads the image and returns the normalized guess.
// Any transport failure, non-2xx status, unparsable body, or response
// missing every known name spelling maps to domain.ErrRecognitionFailed.
// The call is never retried.
func (c *Client) Recognize(
	ctx context.Context, image []byte, filename, contentType string,
) (landmark.Guess, error) {
	start := time.Now()

	guess, err := c.recognize(ctx, image, filename, contentType)

	duration := time.Since(start)
	if err != nil {
		metrics.RecognitionRequestsTotal.WithLabelValues("error").Inc()
		return landmark.Guess{}, err
	}
	metrics.RecognitionRequestsTotal.WithLabelValues("success").Inc()
	metrics.RecognitionRequestDuration.Observe(duration.Seconds())

	c.logger.Debug("landmark recognized",
		zap.String("name", guess.Name),
		zap.Duration("latency", duration),
	)
	return guess, nil
}

func (c *Client) recognize(
	ctx context.Context, image []byte, filename, contentType string,
) (landmark.Guess, error) {
	if filename == "" {
		filename = "upload.jpg"
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	body, formContentType, err := buildMultipart(image, filename, contentType)
	if err != nil {
		return landmark.Guess{}, fmt.Errorf("build upload: %w: %w", domain.ErrRecognitionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return landmark.Guess{}, fmt.Errorf("build request: %w: %w", domain.ErrRecognitionFailed, err)
	}
	req.Header.Set("Content-Type", formContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return landmark.Guess{}, fmt.Errorf("recognition request: %w: %w", domain.ErrRecognitionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return landmark.Guess{}, fmt.Errorf(
			"recognition service returned %d: %w", resp.StatusCode, domain.ErrRecognitionFailed,
		)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return landmark.Guess{}, fmt.Errorf("read response: %w: %w", domain.ErrRecognitionFailed, err)
	}

	return normalizeResponse(raw)
}

// HealthCheck GETs the service health endpoint, when one is configured.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.healthURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("recognition health check: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recognition health check returned %d", resp.StatusCode)
	}
	return nil
}

// buildMultipart assembles the upload form with an explicit part
// content type, matching what the service expects from browser uploads.
func buildMultipart(image []byte, filename, contentType string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, filename))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// normalizeResponse maps the known field spellings onto a Guess.
func normalizeResponse(raw []byte) (landmark.Guess, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return landmark.Guess{}, fmt.Errorf("unparsable response: %w: %w", domain.ErrRecognitionFailed, err)
	}

	name := firstString(payload, nameFields)
	if strings.TrimSpace(name) == "" {
		return landmark.Guess{}, fmt.Errorf(
			"response has no landmark name under any known field: %w", domain.ErrRecognitionFailed,
		)
	}

	link := firstString(payload, linkFields)
	confidence := firstNumber(payload, confidenceFields)

	return landmark.NewGuess(name, link, confidence)
}

// firstString returns the first non-empty string value among the keys.
func firstString(payload map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// firstNumber coerces the first present key to a float. Unparsable or
// absent values yield nil, never an error.
func firstNumber(payload map[string]any, keys []string) *float64 {
	for _, k := range keys {
		v, ok := payload[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return &n
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return &parsed
			}
		}
	}
	return nil
}
