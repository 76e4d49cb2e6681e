package models

import "time"

// RepoSummary is a repository listing entry passed through from GitHub unmodified.
type RepoSummary struct {
	ID       int64      `json:"id"`
	FullName string     `json:"full_name"`
	Private  bool       `json:"private"`
	Language string     `json:"language,omitempty"`
	Owner    RepoOwner  `json:"owner"`
	PushedAt *time.Time `json:"pushed_at,omitempty"`
	HTMLURL  string     `json:"html_url"`
}

// RepoOwner identifies the owning user or organization.
type RepoOwner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// CacheEntry is the stored view of one repository listing page.
type CacheEntry struct {
	ETag      string        `json:"etag,omitempty"`
	Payload   []RepoSummary `json:"payload"`
	FetchedAt time.Time     `json:"fetched_at"`
	HasNext   bool          `json:"has_next"`
}

// PageSource labels how a page result was produced.
type PageSource string

const (
	// SourceCache means the stored entry was inside its freshness window.
	SourceCache PageSource = "cache"
	// SourceRevalidated means upstream confirmed the stored entry via 304.
	SourceRevalidated PageSource = "kv-304"
	// SourceUpstream means a full upstream fetch produced the payload.
	SourceUpstream PageSource = "github-200"
	// SourceStale means upstream failed and the stored entry was served as fallback.
	SourceStale PageSource = "kv-stale"
)

// PageResult is one served page of the repository listing.
type PageResult struct {
	Data    []RepoSummary `json:"data"`
	Stale   bool          `json:"stale"`
	Page    int           `json:"page"`
	HasNext bool          `json:"hasNext"`
	Source  PageSource    `json:"source"`
}
