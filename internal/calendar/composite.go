package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CompositeProvider implements Provider with a fallback strategy
// Cache: FileCache while fresh
// Primary: usually NagerProvider (API), result written back to the cache
// Fallback: stale cache, then each fallback provider in order (built-in rules)
type CompositeProvider struct {
	primary   Provider
	fallbacks []Provider
	cache     *FileCache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewCompositeProvider creates a new CompositeProvider. cache may be nil.
func NewCompositeProvider(primary Provider, cache *FileCache, cacheTTL time.Duration, logger *zap.Logger, fallbacks ...Provider) *CompositeProvider {
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}
	return &CompositeProvider{
		primary:   primary,
		fallbacks: fallbacks,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Fetch returns the cached dataset while it is fresh and otherwise asks the
// primary provider
func (cp *CompositeProvider) Fetch(ctx context.Context, country string, years []int) ([]byte, error) {
	return cp.fetch(ctx, country, years, false)
}

// Refresh ignores a fresh cache and always asks the primary provider first
func (cp *CompositeProvider) Refresh(ctx context.Context, country string, years []int) ([]byte, error) {
	return cp.fetch(ctx, country, years, true)
}

func (cp *CompositeProvider) fetch(ctx context.Context, country string, years []int, force bool) ([]byte, error) {
	cached := cp.loadCache(country, years)
	if cached != nil && !force && time.Since(cached.FetchedAt) < cp.cacheTTL {
		cp.logger.Debug("Using cached dataset",
			zap.String("country", country),
			zap.Time("fetched_at", cached.FetchedAt))
		return cached.Data, nil
	}

	var (
		data []byte
		err  error
	)
	if r, ok := cp.primary.(refresher); ok && force {
		data, err = r.Refresh(ctx, country, years)
	} else {
		data, err = cp.primary.Fetch(ctx, country, years)
	}
	if err == nil {
		if saveErr := cp.saveCache(country, years, data); saveErr != nil {
			cp.logger.Warn("Failed to cache dataset", zap.Error(saveErr))
		}
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cp.logger.Warn("Primary provider failed, falling back",
		zap.String("country", country),
		zap.Error(err))

	if cached != nil {
		cp.logger.Info("Using stale cached dataset",
			zap.String("country", country),
			zap.Time("fetched_at", cached.FetchedAt))
		return cached.Data, nil
	}

	errs := []error{err}
	for _, fb := range cp.fallbacks {
		data, fbErr := fb.Fetch(ctx, country, years)
		if fbErr == nil {
			cp.logger.Info("Using fallback dataset", zap.String("country", country))
			return data, nil
		}
		errs = append(errs, fbErr)
	}

	return nil, fmt.Errorf("all providers failed: %w", multierr.Combine(errs...))
}

func (cp *CompositeProvider) loadCache(country string, years []int) *CachedDataset {
	if cp.cache == nil {
		return nil
	}
	cached, err := cp.cache.Load(country, years)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			cp.logger.Warn("Failed to load cached dataset", zap.Error(err))
		}
		return nil
	}
	return cached
}

func (cp *CompositeProvider) saveCache(country string, years []int, data []byte) error {
	if cp.cache == nil {
		return nil
	}
	return cp.cache.Save(country, years, data)
}
