// Package analysis delegates repository debt analysis to the external
// analysis service and passes its report through untouched.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	apperrors "github.com/debtcheck/debtcheck/internal/errors"
	"github.com/debtcheck/debtcheck/internal/models"
)

const maxReportBytes = 16 << 20

// Client posts file trees to the analysis service. The service fetches blob
// contents itself, so it receives the caller's GitHub token in a header.
type Client struct {
	baseURL string
	client  *retryablehttp.Client
	demo    bool
}

// NewClient creates an analysis client. retryMax bounds transient-failure
// retries; demo requests a reduced, tokenless analysis from the service.
func NewClient(baseURL string, timeout time.Duration, retryMax int, demo bool) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	if timeout > 0 {
		rc.HTTPClient.Timeout = timeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  rc,
		demo:    demo,
	}
}

// Analyze sends the repository's file tree to the analysis service and
// returns the raw JSON report.
func (c *Client) Analyze(ctx context.Context, githubToken string, files []models.TreeFile) (json.RawMessage, error) {
	payload := models.AnalysisRequest{TreeFiles: files, Demo: c.demo}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if githubToken != "" {
		req.Header.Set("X-Github-Access-Token", githubToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperrors.ErrUpstreamStatus{Upstream: "analysis", Status: resp.StatusCode}
	}

	report, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis report: %w", err)
	}
	if !json.Valid(report) {
		return nil, fmt.Errorf("analysis service returned a malformed report")
	}
	return report, nil
}
