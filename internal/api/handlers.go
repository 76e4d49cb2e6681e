package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/debtcheck/debtcheck/internal/errors"
	"github.com/debtcheck/debtcheck/internal/logging"
	"github.com/debtcheck/debtcheck/internal/models"
)

// writeError maps the error taxonomy onto HTTP statuses: token lifecycle
// failures are 401 with a machine-readable code, upstream failures are 502,
// rate limits are 429 with a Retry-After hint.
func (s *Server) writeError(c *gin.Context, endpoint string, err error) {
	ctx := c.Request.Context()

	var rl *apperrors.RateLimitError
	if errors.As(err, &rl) {
		retryAfter := int(rl.RetryAfter / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		s.metrics.RecordError("rate_limited", endpoint, c.Request.Method)
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       rl.Message,
			"retry_after": retryAfter,
		})
		return
	}

	var notLinked *apperrors.ErrNotLinked
	if errors.As(err, &notLinked) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": err.Error(),
			"code":  "not_linked",
		})
		return
	}

	var unavailable *apperrors.ErrRefreshUnavailable
	if errors.As(err, &unavailable) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": err.Error(),
			"code":  "refresh_unavailable",
		})
		return
	}

	var refreshFailed *apperrors.ErrRefreshFailed
	if errors.As(err, &refreshFailed) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": err.Error(),
			"code":  "reconnect_required",
		})
		return
	}

	var upstream *apperrors.ErrUpstreamStatus
	if errors.As(err, &upstream) {
		s.logger.WarnWithContext(ctx, "upstream call failed",
			"upstream", upstream.Upstream,
			"status", upstream.Status,
			"endpoint", endpoint,
		)
		s.metrics.RecordError("upstream_error", endpoint, c.Request.Method)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "upstream request failed",
			"status": upstream.Status,
		})
		return
	}

	s.logger.ErrorWithContext(ctx, "request failed", "endpoint", endpoint, "error", err.Error())
	s.metrics.RecordError("internal_error", endpoint, c.Request.Method)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// handleListRepos serves one page of the user's repositories through the cache.
func (s *Server) handleListRepos(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return
		}
		page = parsed
	}

	accessToken, _, err := s.deps.Tokens.EnsureFreshAccessToken(c.Request.Context(), userID, models.ProviderGitHub)
	if err != nil {
		s.writeError(c, "/api/github/repos", err)
		return
	}

	result, err := s.deps.Repos.FetchPage(c.Request.Context(), accessToken, userID, page)
	if err != nil {
		s.writeError(c, "/api/github/repos", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleProviderStatus reports the link state of both provider families.
func (s *Server) handleProviderStatus(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}
	c.JSON(http.StatusOK, s.deps.Tokens.Status(userID))
}

// handleDisconnect revokes and unlinks one provider family.
func (s *Server) handleDisconnect(provider models.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
			return
		}

		if err := s.deps.Tokens.Disconnect(c.Request.Context(), userID, provider); err != nil {
			s.writeError(c, "/api/"+string(provider), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// atlassianContext resolves a fresh token and the user's primary cloud site.
func (s *Server) atlassianContext(c *gin.Context, userID string) (string, *models.JiraSite, error) {
	accessToken, _, err := s.deps.Tokens.EnsureFreshAccessToken(c.Request.Context(), userID, models.ProviderAtlassian)
	if err != nil {
		return "", nil, err
	}
	site, err := s.deps.Jira.PrimarySite(c.Request.Context(), accessToken)
	if err != nil {
		return "", nil, err
	}
	return accessToken, site, nil
}

// handleJiraProjects lists the projects of the user's primary Jira site.
func (s *Server) handleJiraProjects(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	accessToken, site, err := s.atlassianContext(c, userID)
	if err != nil {
		s.writeError(c, "/api/jira/projects", err)
		return
	}

	projects, err := s.deps.Jira.ListProjects(c.Request.Context(), accessToken, site.ID)
	if err != nil {
		s.writeError(c, "/api/jira/projects", err)
		return
	}
	if projects == nil {
		projects = []models.JiraProject{}
	}

	c.JSON(http.StatusOK, gin.H{"site": site, "projects": projects})
}

// handleJiraIssues searches one project's issues, newest first.
func (s *Server) handleJiraIssues(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	projectKey := c.Query("project")
	if projectKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project query parameter is required"})
		return
	}

	accessToken, site, err := s.atlassianContext(c, userID)
	if err != nil {
		s.writeError(c, "/api/jira/issues", err)
		return
	}

	issues, err := s.deps.Jira.SearchIssues(c.Request.Context(), accessToken, site.ID, projectKey)
	if err != nil {
		s.writeError(c, "/api/jira/issues", err)
		return
	}
	if issues == nil {
		issues = []models.JiraIssue{}
	}

	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

// handleCreateJiraIssue creates an issue in the user's primary site.
func (s *Server) handleCreateJiraIssue(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	var input models.CreateIssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.ProjectKey == "" || input.Summary == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_key and summary are required"})
		return
	}

	accessToken, site, err := s.atlassianContext(c, userID)
	if err != nil {
		s.writeError(c, "/api/jira/issues", err)
		return
	}

	issue, err := s.deps.Jira.CreateIssue(c.Request.Context(), accessToken, site.ID, input)
	if err != nil {
		s.writeError(c, "/api/jira/issues", err)
		return
	}

	logging.NewAuditEvent(logging.JiraIssueCreate, "jira issue created", logging.StatusSuccess).
		WithUserID(userID).WithResource(issue.Key).Emit(s.logger)

	c.JSON(http.StatusCreated, issue)
}

// AnalyzeRequest identifies the repository to analyze.
type AnalyzeRequest struct {
	Owner string `json:"owner" binding:"required"`
	Repo  string `json:"repo" binding:"required"`
}

// handleAnalyze fetches the repository tree and delegates to the analysis
// service, passing its report through untouched.
func (s *Server) handleAnalyze(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, _, err := s.deps.Tokens.EnsureFreshAccessToken(c.Request.Context(), userID, models.ProviderGitHub)
	if err != nil {
		var notLinked *apperrors.ErrNotLinked
		if !(s.demo && errors.As(err, &notLinked)) {
			s.writeError(c, "/api/analyze", err)
			return
		}
		// Demo mode analyzes public repositories without a linked account.
		accessToken = ""
	}

	var files []models.TreeFile
	if accessToken != "" {
		files, err = s.deps.GitHub.FetchTree(c.Request.Context(), accessToken, req.Owner, req.Repo)
		if err != nil {
			s.writeError(c, "/api/analyze", err)
			return
		}
	}

	report, err := s.deps.Analysis.Analyze(c.Request.Context(), accessToken, files)
	if err != nil {
		s.writeError(c, "/api/analyze", err)
		return
	}

	logging.NewAuditEvent(logging.AnalysisRun, "analysis completed", logging.StatusSuccess).
		WithUserID(userID).WithResource(req.Owner + "/" + req.Repo).Emit(s.logger)

	c.Data(http.StatusOK, "application/json", report)
}

// handleRepoHealth reports open issue/PR counts and ages for one repository.
func (s *Server) handleRepoHealth(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	owner, repo := c.Query("owner"), c.Query("repo")
	if owner == "" || repo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner and repo query parameters are required"})
		return
	}

	accessToken, _, err := s.deps.Tokens.EnsureFreshAccessToken(c.Request.Context(), userID, models.ProviderGitHub)
	if err != nil {
		s.writeError(c, "/api/github/health", err)
		return
	}

	health, err := s.deps.GitHub.FetchHealth(c.Request.Context(), accessToken, owner, repo)
	if err != nil {
		s.writeError(c, "/api/github/health", err)
		return
	}

	c.JSON(http.StatusOK, health)
}

// LinkAccountRequest is the payload the auth frontend posts after an OAuth
// flow completes. Expiry is an absolute epoch; zero means the token never
// expires.
type LinkAccountRequest struct {
	UserID            string `json:"user_id" binding:"required"`
	Provider          string `json:"provider" binding:"required"`
	ProviderAccountID string `json:"provider_account_id"`
	AccessToken       string `json:"access_token" binding:"required"`
	RefreshToken      string `json:"refresh_token"`
	ExpiresAt         int64  `json:"expires_at"`
	Scope             string `json:"scope"`
	TokenType         string `json:"token_type"`
}

// handleLinkAccount upserts a linked provider account.
func (s *Server) handleLinkAccount(c *gin.Context) {
	var req LinkAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provider, err := models.NormalizeProvider(req.Provider)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc := &models.Account{
		ID:                uuid.New().String(),
		UserID:            req.UserID,
		Provider:          provider,
		ProviderAccountID: req.ProviderAccountID,
		AccessToken:       req.AccessToken,
		RefreshToken:      req.RefreshToken,
		Scope:             req.Scope,
		TokenType:         req.TokenType,
	}
	if req.ExpiresAt > 0 {
		expiresAt := req.ExpiresAt
		acc.ExpiresAt = &expiresAt
	}
	if existing, ok := s.deps.Store.GetAccount(req.UserID, provider); ok {
		acc.ID = existing.ID
	}

	if err := s.deps.Store.SetAccount(acc); err != nil {
		s.writeError(c, "/api/accounts/link", err)
		return
	}

	logging.NewAuditEvent(logging.AuthSuccess, "account linked", logging.StatusSuccess).
		WithUserID(req.UserID).WithProvider(string(provider)).Emit(s.logger)

	c.JSON(http.StatusOK, gin.H{"ok": true, "provider": provider})
}
