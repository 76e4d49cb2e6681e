package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debtcheck/debtcheck/internal/models"
)

func TestPageKey(t *testing.T) {
	assert.Equal(t, "repos:user-1:2:30", PageKey("user-1", 2, 30))
	assert.NotEqual(t, PageKey("user-1", 2, 30), PageKey("user-1", 2, 50))
	assert.NotEqual(t, PageKey("user-1", 2, 30), PageKey("user-2", 2, 30))
}

func TestMemoryTTLStore_RoundTrip(t *testing.T) {
	s := NewMemoryTTLStore()
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	entry := &models.CacheEntry{
		ETag:      `"abc"`,
		Payload:   []models.RepoSummary{{ID: 1, FullName: "octo/repo"}},
		FetchedAt: time.Now(),
		HasNext:   true,
	}
	require.NoError(t, s.Set(ctx, "k", entry, time.Minute))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"abc"`, got.ETag)
	require.Len(t, got.Payload, 1)
	assert.Equal(t, "octo/repo", got.Payload[0].FullName)
	assert.True(t, got.HasNext)
}

func TestMemoryTTLStore_Expiry(t *testing.T) {
	s := NewMemoryTTLStore()
	defer s.Close()
	ctx := context.Background()

	entry := &models.CacheEntry{FetchedAt: time.Now()}
	require.NoError(t, s.Set(ctx, "k", entry, 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry past its TTL reads as a miss")
}

func TestMemoryTTLStore_OverwriteIsLastWriterWins(t *testing.T) {
	s := NewMemoryTTLStore()
	defer s.Close()
	ctx := context.Background()

	first := &models.CacheEntry{ETag: `"a"`, FetchedAt: time.Now()}
	second := &models.CacheEntry{ETag: `"b"`, FetchedAt: time.Now()}
	require.NoError(t, s.Set(ctx, "k", first, time.Minute))
	require.NoError(t, s.Set(ctx, "k", second, time.Minute))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"b"`, got.ETag)
}
