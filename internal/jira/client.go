// Package jira calls the Atlassian cloud REST API through the OAuth gateway:
// site discovery, project listing, JQL search and issue creation.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/debtcheck/debtcheck/internal/errors"
	"github.com/debtcheck/debtcheck/internal/models"
)

const (
	defaultBaseURL = "https://api.atlassian.com"
	maxBodyBytes   = 4 << 20
)

// Client calls the Atlassian cloud API for one request's access token.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Jira client against the Atlassian API gateway.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// AccessibleSites lists the Atlassian cloud sites the token can reach.
func (c *Client) AccessibleSites(ctx context.Context, token string) ([]models.JiraSite, error) {
	var sites []models.JiraSite
	if err := c.do(ctx, token, http.MethodGet, "/oauth/token/accessible-resources", nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// PrimarySite returns the first accessible site. Accounts without any site
// get an upstream 404 so the handler can distinguish "linked but siteless"
// from transport failures.
func (c *Client) PrimarySite(ctx context.Context, token string) (*models.JiraSite, error) {
	sites, err := c.AccessibleSites(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, &apperrors.ErrUpstreamStatus{Upstream: "atlassian", Status: http.StatusNotFound}
	}
	return &sites[0], nil
}

type projectSearchResponse struct {
	Values []models.JiraProject `json:"values"`
}

// ListProjects returns the projects of one cloud site.
func (c *Client) ListProjects(ctx context.Context, token, cloudID string) ([]models.JiraProject, error) {
	path := fmt.Sprintf("/ex/jira/%s/rest/api/3/project/search", cloudID)
	var resp projectSearchResponse
	if err := c.do(ctx, token, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
}

type searchResponse struct {
	Issues []struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
			Status  struct {
				Name string `json:"name"`
			} `json:"status"`
		} `json:"fields"`
	} `json:"issues"`
}

// SearchIssues runs a JQL search scoped to one project, newest first.
func (c *Client) SearchIssues(ctx context.Context, token, cloudID, projectKey string) ([]models.JiraIssue, error) {
	path := fmt.Sprintf("/ex/jira/%s/rest/api/3/search/jql", cloudID)
	body := searchRequest{
		JQL:        fmt.Sprintf("project = %q ORDER BY created DESC", projectKey),
		MaxResults: 50,
		Fields:     []string{"summary", "status"},
	}

	var resp searchResponse
	if err := c.do(ctx, token, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	issues := make([]models.JiraIssue, 0, len(resp.Issues))
	for _, it := range resp.Issues {
		issues = append(issues, models.JiraIssue{
			ID:      it.ID,
			Key:     it.Key,
			Summary: it.Fields.Summary,
			Status:  it.Fields.Status.Name,
		})
	}
	return issues, nil
}

// adfDocument wraps plain text in the Atlassian document format the v3 issue
// API requires for descriptions.
func adfDocument(text string) map[string]interface{} {
	return map[string]interface{}{
		"type":    "doc",
		"version": 1,
		"content": []map[string]interface{}{
			{
				"type": "paragraph",
				"content": []map[string]interface{}{
					{"type": "text", "text": text},
				},
			},
		},
	}
}

type createIssueResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// CreateIssue creates an issue in the given project and returns its key.
func (c *Client) CreateIssue(ctx context.Context, token, cloudID string, input models.CreateIssueInput) (*models.JiraIssue, error) {
	issueType := input.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	fields := map[string]interface{}{
		"project":   map[string]string{"key": input.ProjectKey},
		"summary":   input.Summary,
		"issuetype": map[string]string{"name": issueType},
	}
	if input.Description != "" {
		fields["description"] = adfDocument(input.Description)
	}

	path := fmt.Sprintf("/ex/jira/%s/rest/api/3/issue", cloudID)
	var resp createIssueResponse
	if err := c.do(ctx, token, http.MethodPost, path, map[string]interface{}{"fields": fields}, &resp); err != nil {
		return nil, err
	}

	return &models.JiraIssue{ID: resp.ID, Key: resp.Key, Summary: input.Summary}, nil
}

// do performs one authenticated API call with an optional JSON body.
func (c *Client) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("atlassian request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperrors.ErrUpstreamStatus{Upstream: "atlassian", Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read atlassian response: %w", err)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse atlassian response: %w", err)
	}
	return nil
}
