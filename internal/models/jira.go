package models

// JiraSite is an accessible Atlassian cloud site.
type JiraSite struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// JiraProject is a Jira project reachable by the linked account.
type JiraProject struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// JiraIssue is a single issue from a JQL search.
type JiraIssue struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status,omitempty"`
}

// CreateIssueInput describes a new Jira issue to create.
type CreateIssueInput struct {
	ProjectKey  string `json:"project_key"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	IssueType   string `json:"issue_type,omitempty"` // defaults to Task
}
