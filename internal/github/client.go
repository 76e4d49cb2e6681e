// Package github is a thin client for the GitHub REST API covering the
// endpoints DebtCheck consumes: the authenticated repository listing (with
// conditional requests), repository metadata/tree reads, and the issue/PR
// search used for health snapshots.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/debtcheck/debtcheck/internal/errors"
	"github.com/debtcheck/debtcheck/internal/models"
	"github.com/debtcheck/debtcheck/pkg/headers"
)

const maxBodyBytes = 4 << 20

// Client calls the GitHub REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the given API base URL (usually
// https://api.github.com) with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ListResult is the outcome of one repository-listing request.
type ListResult struct {
	// Status is the upstream HTTP status, 200 or 304.
	Status int
	// Repos is the parsed payload; nil on 304.
	Repos []models.RepoSummary
	// ETag is the validator from the response, when present.
	ETag string
	// LinkHasNext is the rel="next" signal from the Link header; nil when the
	// header was absent and the caller must fall back.
	LinkHasNext *bool
}

// ListRepos fetches one page of the authenticated user's repositories, sorted
// by push date. When etag is non-empty the request is conditional and a 304
// outcome means the caller's stored payload is still valid.
func (c *Client) ListRepos(ctx context.Context, token string, page, perPage int, etag string) (*ListResult, error) {
	url := fmt.Sprintf("%s/user/repos?per_page=%d&page=%d&sort=pushed", c.baseURL, perPage, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req, token)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return &ListResult{
			Status:      resp.StatusCode,
			ETag:        resp.Header.Get("ETag"),
			LinkHasNext: linkHasNext(resp.Header),
		}, nil

	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read github response: %w", err)
		}
		var repos []models.RepoSummary
		if err := json.Unmarshal(body, &repos); err != nil {
			return nil, fmt.Errorf("failed to parse github response: %w", err)
		}
		return &ListResult{
			Status:      resp.StatusCode,
			Repos:       repos,
			ETag:        resp.Header.Get("ETag"),
			LinkHasNext: linkHasNext(resp.Header),
		}, nil

	default:
		return nil, c.statusError(resp)
	}
}

func linkHasNext(h http.Header) *bool {
	hasNext, ok := headers.HasNextPage(h)
	if !ok {
		return nil
	}
	return &hasNext
}

// statusError maps a non-success response to the error taxonomy. Rate limits
// become RateLimitError with a cooldown; everything else is ErrUpstreamStatus.
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	rateLimited := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden &&
			(strings.Contains(string(body), "API rate limit exceeded") || headers.RateLimitRemaining(resp.Header) == 0))

	if rateLimited {
		return &apperrors.RateLimitError{
			RetryAfter: headers.RetryAfter(resp.Header, time.Now()),
			Message:    "API rate limit exceeded",
		}
	}

	return &apperrors.ErrUpstreamStatus{Upstream: "github", Status: resp.StatusCode}
}

func (c *Client) setAuthHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, token, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuthHeaders(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read github response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse github response: %w", err)
	}
	return nil
}

type repoMetadata struct {
	DefaultBranch string `json:"default_branch"`
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// FetchTree returns the blob entries of a repository's default-branch tree,
// recursively. Truncated trees return what GitHub sent; the analysis service
// works on a best-effort file list.
func (c *Client) FetchTree(ctx context.Context, token, owner, repo string) ([]models.TreeFile, error) {
	var meta repoMetadata
	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	if err := c.get(ctx, token, path, &meta); err != nil {
		return nil, err
	}
	branch := meta.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	var tree treeResponse
	path = fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, branch)
	if err := c.get(ctx, token, path, &tree); err != nil {
		return nil, err
	}

	files := make([]models.TreeFile, 0, len(tree.Tree))
	for _, node := range tree.Tree {
		if node.Type != "blob" {
			continue
		}
		files = append(files, models.TreeFile{Path: node.Path, URL: node.URL})
	}
	return files, nil
}

type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		CreatedAt time.Time `json:"created_at"`
	} `json:"items"`
}

// FetchHealth returns open issue/PR counts and oldest-open ages for one repo.
func (c *Client) FetchHealth(ctx context.Context, token, owner, repo string) (*models.RepoHealth, error) {
	issues, err := c.searchOldestOpen(ctx, token, owner, repo, "issue")
	if err != nil {
		return nil, err
	}
	prs, err := c.searchOldestOpen(ctx, token, owner, repo, "pr")
	if err != nil {
		return nil, err
	}

	health := &models.RepoHealth{
		Repo:             owner + "/" + repo,
		OpenIssues:       issues.TotalCount,
		OpenPullRequests: prs.TotalCount,
	}
	now := time.Now()
	if len(issues.Items) > 0 {
		health.OldestIssueDays = int(now.Sub(issues.Items[0].CreatedAt).Hours() / 24)
	}
	if len(prs.Items) > 0 {
		health.OldestPullReqDays = int(now.Sub(prs.Items[0].CreatedAt).Hours() / 24)
	}
	return health, nil
}

func (c *Client) searchOldestOpen(ctx context.Context, token, owner, repo, kind string) (*searchResponse, error) {
	query := fmt.Sprintf("repo:%s/%s+type:%s+state:open", owner, repo, kind)
	path := "/search/issues?q=" + query + "&sort=created&order=asc&per_page=" + strconv.Itoa(1)

	var out searchResponse
	if err := c.get(ctx, token, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
