package jira

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/debtcheck/debtcheck/internal/errors"
	"github.com/debtcheck/debtcheck/internal/models"
)

func TestPrimarySite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token/accessible-resources", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"id":"cloud-1","url":"https://one.atlassian.net","name":"one"},
			{"id":"cloud-2","url":"https://two.atlassian.net","name":"two"}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	site, err := client.PrimarySite(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "cloud-1", site.ID, "first accessible site wins")
	assert.Equal(t, "one", site.Name)
}

func TestPrimarySite_NoSites(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.PrimarySite(context.Background(), "tok")
	require.Error(t, err)

	var up *apperrors.ErrUpstreamStatus
	require.ErrorAs(t, err, &up)
	assert.Equal(t, http.StatusNotFound, up.Status)
}

func TestListProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ex/jira/cloud-1/rest/api/3/project/search", r.URL.Path)
		w.Write([]byte(`{"values":[{"id":"10000","key":"DEBT","name":"Debt Tracking"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	projects, err := client.ListProjects(context.Background(), "tok", "cloud-1")
	require.NoError(t, err)

	require.Len(t, projects, 1)
	assert.Equal(t, "DEBT", projects[0].Key)
}

func TestSearchIssues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ex/jira/cloud-1/rest/api/3/search/jql", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req["jql"], `project = "DEBT"`)

		w.Write([]byte(`{"issues":[
			{"id":"1","key":"DEBT-7","fields":{"summary":"Refactor auth","status":{"name":"In Progress"}}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	issues, err := client.SearchIssues(context.Background(), "tok", "cloud-1", "DEBT")
	require.NoError(t, err)

	require.Len(t, issues, 1)
	assert.Equal(t, "DEBT-7", issues[0].Key)
	assert.Equal(t, "Refactor auth", issues[0].Summary)
	assert.Equal(t, "In Progress", issues[0].Status)
}

func TestCreateIssue(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ex/jira/cloud-1/rest/api/3/issue", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"10042","key":"DEBT-42"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	issue, err := client.CreateIssue(context.Background(), "tok", "cloud-1", models.CreateIssueInput{
		ProjectKey:  "DEBT",
		Summary:     "Remove dead code",
		Description: "Found by analysis",
	})
	require.NoError(t, err)
	assert.Equal(t, "DEBT-42", issue.Key)

	fields := gotBody["fields"].(map[string]interface{})
	assert.Equal(t, "Remove dead code", fields["summary"])
	assert.Equal(t, map[string]interface{}{"key": "DEBT"}, fields["project"])
	assert.Equal(t, map[string]interface{}{"name": "Task"}, fields["issuetype"], "issue type defaults to Task")

	desc := fields["description"].(map[string]interface{})
	assert.Equal(t, "doc", desc["type"], "description is wrapped in document format")
}

func TestUpstreamErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.ListProjects(context.Background(), "tok", "cloud-1")
	require.Error(t, err)

	var up *apperrors.ErrUpstreamStatus
	require.ErrorAs(t, err, &up)
	assert.Equal(t, "atlassian", up.Upstream)
	assert.Equal(t, http.StatusUnauthorized, up.Status)
}
