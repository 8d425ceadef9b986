// Package generator is the gateway to the external text-generation
// service that produces a policy's initial HTML body. It is a thin,
// dependency-injected HTTP client: the generator itself is an opaque
// external collaborator (spec out of scope), but the call shape,
// timeout, and response normalization are this package's job.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout is the generator call timeout absent explicit config.
const DefaultTimeout = 100 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Retries is always 0: retry policy is the caller's (the lifecycle
	// controller's) job, not the gateway's.
}

// Client requests initial HTML content from the external generator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// New builds a Client with an injected *http.Client so callers control
// transport-level behavior (proxies, connection pooling, test doubles).
func New(httpClient *http.Client, cfg Config, logger *zap.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, baseURL: cfg.BaseURL, logger: logger}
}

// request is the outbound payload: a natural-language prompt describing
// what the generator should produce.
type request struct {
	Prompt string `json:"prompt"`
}

// response is the generator's expected reply shape.
type response struct {
	Response string `json:"response"`
}

// ErrUpstreamFailed is returned for any non-2xx or transport-level
// failure talking to the generator, mapped by the lifecycle controller
// to apperr.UpstreamGenerator.
var ErrUpstreamFailed = errors.New("generator: upstream request failed")

// GenerateInitialHTML requests the initial HTML body for a new OrgPolicy,
// built from the template content and the organization/department/
// category context, and normalizes the response.
func (c *Client) GenerateInitialHTML(ctx context.Context, templateHTML, organizationName, department, category string) (string, error) {
	prompt := buildPrompt(templateHTML, organizationName, department, category)

	body, err := json.Marshal(request{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal generator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)

	if err != nil {
		c.logger.Warn("generator call failed",
			zap.Error(err), zap.Duration("latency", latency))
		return "", fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("generator returned non-2xx",
			zap.Int("status", resp.StatusCode), zap.Duration("latency", latency))
		return "", fmt.Errorf("%w: status %d", ErrUpstreamFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generator response: %w", err)
	}

	var payload response
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode generator response: %w", err)
	}

	html := normalize(payload.Response)
	c.logger.Info("generator call succeeded",
		zap.Duration("latency", latency), zap.Int("html_length", len(html)))
	return html, nil
}

func buildPrompt(templateHTML, organizationName, department, category string) string {
	var b strings.Builder
	b.WriteString("Generate an HTML policy document")
	if organizationName != "" {
		fmt.Fprintf(&b, " for %s", organizationName)
	}
	if department != "" {
		fmt.Fprintf(&b, " in the %s department", department)
	}
	if category != "" {
		fmt.Fprintf(&b, " under the %s category", category)
	}
	b.WriteString(", based on the following starter template:\n\n")
	b.WriteString(templateHTML)
	return b.String()
}

// normalize strips surrounding quotes and markdown code fences the
// generator sometimes wraps its output in, and trims any leading
// narration down to the document's actual start, per spec.md §4.5.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"`)
	s = strings.TrimPrefix(s, "```html")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if idx := strings.Index(strings.ToUpper(s), "<!DOCTYPE HTML"); idx > 0 {
		s = s[idx:]
	}
	return s
}
