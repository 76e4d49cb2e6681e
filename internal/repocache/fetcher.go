// Package repocache serves pages of a user's GitHub repository list through a
// TTL key-value store, revalidating with conditional requests and degrading to
// stale data when GitHub is unreachable.
package repocache

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/debtcheck/debtcheck/internal/cache"
	apperrors "github.com/debtcheck/debtcheck/internal/errors"
	"github.com/debtcheck/debtcheck/internal/github"
	"github.com/debtcheck/debtcheck/internal/logging"
	"github.com/debtcheck/debtcheck/internal/metrics"
	"github.com/debtcheck/debtcheck/internal/models"
)

// lister is the slice of the GitHub client the fetcher needs.
type lister interface {
	ListRepos(ctx context.Context, token string, page, perPage int, etag string) (*github.ListResult, error)
}

// Fetcher answers repository page requests from the store when fresh, and
// otherwise revalidates against GitHub with the stored ETag.
type Fetcher struct {
	store       cache.TTLStore
	github      lister
	logger      *logging.Logger
	metrics     *metrics.Metrics
	freshWindow time.Duration
	ttl         time.Duration
	pageSize    int
	now         func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// NewFetcher creates a page fetcher. freshWindow bounds how long a stored
// entry is served without revalidation; ttl bounds how long the store keeps
// it at all and must not be shorter than freshWindow.
func NewFetcher(store cache.TTLStore, gh lister, freshWindow, ttl time.Duration, pageSize int, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		store:       store,
		github:      gh,
		logger:      logging.NewLogger(),
		freshWindow: freshWindow,
		ttl:         ttl,
		pageSize:    pageSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPage returns one page of the user's repositories. The result's Source
// field reports how it was produced: from the fresh store, via a 304
// revalidation, from a full upstream response, or as a stale fallback after an
// upstream failure. Only a failure with no stored entry returns an error.
func (f *Fetcher) FetchPage(ctx context.Context, token, userID string, page int) (*models.PageResult, error) {
	if page < 1 {
		page = 1
	}
	key := cache.PageKey(userID, page, f.pageSize)

	entry, found, err := f.store.Get(ctx, key)
	if err != nil {
		// A broken store read degrades to an unconditional fetch.
		f.logger.WarnWithContext(ctx, "cache read failed", "key", key, "error", err.Error())
		found = false
	}

	now := f.now()
	if found && now.Sub(entry.FetchedAt) < f.freshWindow {
		return f.result(entry, page, models.SourceCache, false), nil
	}

	etag := ""
	if found {
		etag = entry.ETag
	}

	start := now
	res, ferr := f.github.ListRepos(ctx, token, page, f.pageSize, etag)
	f.recordUpstream(f.now().Sub(start))

	if ferr != nil {
		if found {
			f.logger.WarnWithContext(ctx, "github fetch failed, serving stale page",
				"user_id", userID, "page", page, "error", ferr.Error())
			return f.result(entry, page, models.SourceStale, true), nil
		}
		return nil, ferr
	}

	switch res.Status {
	case http.StatusNotModified:
		// Payload unchanged; refresh the entry's clock and pagination signal.
		if !found {
			// A 304 without a stored entry means the store expired between the
			// read and the response. Treat it as a miss and refetch without a
			// validator.
			return f.refetchUnconditional(ctx, token, userID, page, key)
		}
		if res.LinkHasNext != nil {
			entry.HasNext = *res.LinkHasNext
		}
		entry.FetchedAt = f.now()
		if res.ETag != "" {
			entry.ETag = res.ETag
		}
		f.persist(ctx, key, entry)
		return f.result(entry, page, models.SourceRevalidated, false), nil

	default: // 2xx
		entry = f.entryFromResponse(res)
		f.persist(ctx, key, entry)
		return f.result(entry, page, models.SourceUpstream, false), nil
	}
}

// refetchUnconditional covers the narrow 304-after-expiry race.
func (f *Fetcher) refetchUnconditional(ctx context.Context, token, userID string, page int, key string) (*models.PageResult, error) {
	res, err := f.github.ListRepos(ctx, token, page, f.pageSize, "")
	if err != nil {
		return nil, err
	}
	if res.Status == http.StatusNotModified {
		return nil, &apperrors.ErrUpstreamStatus{Upstream: "github", Status: res.Status}
	}
	entry := f.entryFromResponse(res)
	f.persist(ctx, key, entry)
	return f.result(entry, page, models.SourceUpstream, false), nil
}

func (f *Fetcher) entryFromResponse(res *github.ListResult) *models.CacheEntry {
	hasNext := len(res.Repos) == f.pageSize
	if res.LinkHasNext != nil {
		hasNext = *res.LinkHasNext
	}
	return &models.CacheEntry{
		ETag:      res.ETag,
		Payload:   res.Repos,
		FetchedAt: f.now(),
		HasNext:   hasNext,
	}
}

func (f *Fetcher) persist(ctx context.Context, key string, entry *models.CacheEntry) {
	if err := f.store.Set(ctx, key, entry, f.ttl); err != nil {
		f.logger.WarnWithContext(ctx, "cache write failed", "key", key, "error", err.Error())
	}
}

func (f *Fetcher) result(entry *models.CacheEntry, page int, source models.PageSource, stale bool) *models.PageResult {
	repos := entry.Payload
	if repos == nil {
		repos = []models.RepoSummary{}
	}

	hasNext := entry.HasNext
	if stale {
		// Stale pagination signals are unreliable; stop the pager here.
		hasNext = false
	}

	if f.metrics != nil {
		f.metrics.RecordCacheResult(string(source))
	}

	return &models.PageResult{
		Data:    repos,
		Stale:   stale,
		Page:    page,
		HasNext: hasNext,
		Source:  source,
	}
}

func (f *Fetcher) recordUpstream(d time.Duration) {
	if f.metrics != nil {
		f.metrics.RecordUpstreamLatency("github", d)
	}
}

// String describes the fetcher's tuning, for the doctor command.
func (f *Fetcher) String() string {
	return fmt.Sprintf("repocache(fresh=%s ttl=%s page=%d)", f.freshWindow, f.ttl, f.pageSize)
}
