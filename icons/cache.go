package icons

import (
	"context"
	"errors"
	"time"

	"service-dashboard/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ResultStore persists icon probe outcomes
type ResultStore interface {
	// GetIconResult returns nil when url has never been probed.
	GetIconResult(ctx context.Context, url string) (*models.IconResult, error)
	SaveIconResult(ctx context.Context, result models.IconResult) error
}

// CachingResolver remembers probe outcomes for TTL and collapses
// concurrent probes of the same URL into one
type CachingResolver struct {
	next  Resolver
	store ResultStore
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group
}

// NewCachingResolver wraps next with a store-backed cache
func NewCachingResolver(next Resolver, store ResultStore, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		next:  next,
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Resolve answers from the store when a fresh result exists and probes otherwise
func (c *CachingResolver) Resolve(ctx context.Context, url string) error {
	cached, err := c.store.GetIconResult(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to read icon cache")
	} else if cached != nil && c.now().Sub(cached.CheckedAt) < c.ttl {
		if cached.OK {
			return nil
		}
		return ErrCachedFailure
	}

	v, _, _ := c.group.Do(url, func() (interface{}, error) {
		probeErr := c.next.Resolve(ctx, url)
		// Cancellations and timeouts say nothing about the icon itself
		if errors.Is(probeErr, context.Canceled) || errors.Is(probeErr, context.DeadlineExceeded) {
			return probeErr, nil
		}
		result := models.IconResult{URL: url, OK: probeErr == nil, CheckedAt: c.now().UTC()}
		if err := c.store.SaveIconResult(ctx, result); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Failed to save icon result")
		}
		return probeErr, nil
	})

	if v == nil {
		return nil
	}
	return v.(error)
}
