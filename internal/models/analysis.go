package models

// TreeFile is one blob reference handed to the analysis service.
type TreeFile struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// AnalysisRequest is the payload sent to the external analysis service.
type AnalysisRequest struct {
	TreeFiles []TreeFile `json:"tree_files"`
	Demo      bool       `json:"demo"`
}

// RepoHealth is an issue/PR health snapshot for one repository.
type RepoHealth struct {
	OpenIssues        int    `json:"open_issues"`
	OpenPullRequests  int    `json:"open_pull_requests"`
	OldestIssueDays   int    `json:"oldest_issue_days"`
	OldestPullReqDays int    `json:"oldest_pull_request_days"`
	Repo              string `json:"repo"`
}
