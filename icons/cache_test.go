package icons

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"service-dashboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	results map[string]models.IconResult
}

func newMemoryStore() *memoryStore {
	return &memoryStore{results: make(map[string]models.IconResult)}
}

func (m *memoryStore) GetIconResult(_ context.Context, url string) (*models.IconResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[url]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memoryStore) SaveIconResult(_ context.Context, r models.IconResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.URL] = r
	return nil
}

func TestCachingResolver(t *testing.T) {
	var probes atomic.Int32
	next := ResolverFunc(func(_ context.Context, url string) error {
		probes.Add(1)
		if url == "https://icons.test/github.svg" {
			return nil
		}
		return ErrStatus
	})
	store := newMemoryStore()
	cache := NewCachingResolver(next, store, time.Hour)

	ctx := context.Background()
	assert.NoError(t, cache.Resolve(ctx, "https://icons.test/github.svg"))
	assert.NoError(t, cache.Resolve(ctx, "https://icons.test/github.svg"))
	assert.True(t, errors.Is(cache.Resolve(ctx, "https://icons.test/nope.svg"), ErrStatus))
	assert.True(t, errors.Is(cache.Resolve(ctx, "https://icons.test/nope.svg"), ErrCachedFailure))
	assert.Equal(t, int32(2), probes.Load())

	saved, err := store.GetIconResult(ctx, "https://icons.test/nope.svg")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.False(t, saved.OK)
}

func TestCachingResolver_Expiry(t *testing.T) {
	var probes atomic.Int32
	next := ResolverFunc(func(context.Context, string) error {
		probes.Add(1)
		return nil
	})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCachingResolver(next, newMemoryStore(), time.Minute)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, cache.Resolve(ctx, "https://icons.test/a.svg"))
	now = now.Add(30 * time.Second)
	require.NoError(t, cache.Resolve(ctx, "https://icons.test/a.svg"))
	assert.Equal(t, int32(1), probes.Load())

	now = now.Add(time.Minute)
	require.NoError(t, cache.Resolve(ctx, "https://icons.test/a.svg"))
	assert.Equal(t, int32(2), probes.Load())
}

func TestCachingResolver_DoesNotCacheTimeouts(t *testing.T) {
	store := newMemoryStore()
	next := ResolverFunc(func(context.Context, string) error { return context.DeadlineExceeded })
	cache := NewCachingResolver(next, store, time.Hour)

	err := cache.Resolve(context.Background(), "https://icons.test/slow.svg")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	saved, err := store.GetIconResult(context.Background(), "https://icons.test/slow.svg")
	require.NoError(t, err)
	assert.Nil(t, saved)
}
