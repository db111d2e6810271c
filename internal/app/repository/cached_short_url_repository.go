package repository

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sifan077/ShortURL/internal/app/cache"
	"github.com/sifan077/ShortURL/internal/app/model"
	infraPrometheus "github.com/sifan077/ShortURL/internal/infra/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachePolicy decides how long the decorator keeps what it learns.
type CachePolicy struct {
	KeyPrefix   string
	AbsoluteTTL time.Duration
	SlidingTTL  time.Duration
	NegativeTTL time.Duration
}

// DefaultCachePolicy keeps found records for up to 5 minutes (2 minutes idle)
// and misses for 30 seconds.
func DefaultCachePolicy() CachePolicy {
	return CachePolicy{
		KeyPrefix:   "short_url:",
		AbsoluteTTL: 5 * time.Minute,
		SlidingTTL:  2 * time.Minute,
		NegativeTTL: 30 * time.Second,
	}
}

func (p CachePolicy) positive() cache.Options {
	return cache.Options{AbsoluteTTL: p.AbsoluteTTL, SlidingTTL: p.SlidingTTL}
}

// CachedShortURLRepository decorates a ShortURLRepository with a cache-aside
// layer. It satisfies the same contract as the store it wraps.
//
// Cache failures never fail a call; they are logged and the store result
// is returned as is.
type CachedShortURLRepository struct {
	inner  ShortURLRepository
	cache  cache.Cache[model.ReadShortURL]
	policy CachePolicy
	logger *zap.Logger
	loads  singleflight.Group
	// updates counts overwrites; a load that overlaps one does not cache
	// what it read.
	updates atomic.Uint64
}

var _ ShortURLRepository = (*CachedShortURLRepository)(nil)

// NewCachedShortURLRepository wraps inner with c.
func NewCachedShortURLRepository(inner ShortURLRepository, c cache.Cache[model.ReadShortURL], policy CachePolicy, logger *zap.Logger) *CachedShortURLRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedShortURLRepository{
		inner:  inner,
		cache:  c,
		policy: policy,
		logger: logger,
	}
}

func (r *CachedShortURLRepository) key(id int64) string {
	return r.policy.KeyPrefix + strconv.FormatInt(id, 10)
}

// Add writes to the store and then caches the new record so the first read
// after creation is a hit.
func (r *CachedShortURLRepository) Add(ctx context.Context, longURL string) (int64, error) {
	id, err := r.inner.Add(ctx, longURL)
	if err != nil || id == 0 {
		return id, err
	}

	r.set(ctx, id, model.ReadShortURL{LongURL: longURL})
	r.logger.Debug("short url added and cached", zap.Int64("id", id))
	return id, nil
}

// GetByID serves from the cache when it can, including cached misses, and
// otherwise loads from the store once per id no matter how many callers
// are waiting.
func (r *CachedShortURLRepository) GetByID(ctx context.Context, id int64) (*model.ReadShortURL, error) {
	key := r.key(id)

	entry, ok, err := r.cache.TryGet(ctx, key)
	if err != nil {
		r.logger.Warn("cache read failed, falling back to store", zap.String("key", key), zap.Error(err))
	}
	if ok {
		if entry.Negative {
			infraPrometheus.CacheLookups.WithLabelValues(infraPrometheus.ResultNegativeHit).Inc()
			r.logger.Debug("negative cache hit", zap.Int64("id", id))
			return nil, ErrShortURLNotFound
		}
		infraPrometheus.CacheLookups.WithLabelValues(infraPrometheus.ResultHit).Inc()
		r.logger.Debug("cache hit", zap.Int64("id", id))
		view := entry.Value
		return &view, nil
	}

	infraPrometheus.CacheLookups.WithLabelValues(infraPrometheus.ResultMiss).Inc()
	r.logger.Debug("cache miss, fetching from store", zap.Int64("id", id))

	// The shared load must not fail for every waiter because the first
	// caller went away.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.loads.Do(key, func() (interface{}, error) {
		return r.load(loadCtx, id)
	})
	if err != nil {
		return nil, err
	}

	view := v.(model.ReadShortURL)
	return &view, nil
}

func (r *CachedShortURLRepository) load(ctx context.Context, id int64) (model.ReadShortURL, error) {
	gen := r.updates.Load()
	view, err := r.inner.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrShortURLNotFound) {
			key := r.key(id)
			if cacheErr := r.cache.SetNegative(ctx, key, r.policy.NegativeTTL); cacheErr != nil {
				r.logger.Warn("failed to cache missing short url", zap.String("key", key), zap.Error(cacheErr))
			}
			r.logger.Debug("short url not found in store, cached as missing",
				zap.Int64("id", id),
				zap.Duration("ttl", r.policy.NegativeTTL),
			)
		}
		return model.ReadShortURL{}, err
	}

	if r.updates.Load() != gen {
		r.logger.Debug("short url changed during load, not caching", zap.Int64("id", id))
		return *view, nil
	}
	r.set(ctx, id, *view)
	return *view, nil
}

// Update overwrites the store record and then the cached entry. A load that
// was already in flight is detached from later callers and will not cache
// its result. One that passed that check just before the overwrite can still
// land after it; its entry then lives until the sliding or absolute expiry.
func (r *CachedShortURLRepository) Update(ctx context.Context, update model.UpdateShortURL) error {
	if err := r.inner.Update(ctx, update); err != nil {
		return err
	}

	r.updates.Add(1)
	r.loads.Forget(r.key(update.ID))
	r.set(ctx, update.ID, model.ReadShortURL{LongURL: update.LongURL})
	r.logger.Debug("short url updated and cache refreshed", zap.Int64("id", update.ID))
	return nil
}

// IncrementClickCount increments in the store and drops the cached entry.
// The cached projection carries no click count, so there is nothing to
// rewrite in place.
func (r *CachedShortURLRepository) IncrementClickCount(ctx context.Context, id int64) error {
	if err := r.inner.IncrementClickCount(ctx, id); err != nil {
		return err
	}

	key := r.key(id)
	if err := r.cache.Remove(ctx, key); err != nil {
		r.logger.Warn("failed to invalidate cached short url", zap.String("key", key), zap.Error(err))
	}
	r.logger.Debug("click count incremented, cache invalidated", zap.Int64("id", id))
	return nil
}

func (r *CachedShortURLRepository) set(ctx context.Context, id int64, view model.ReadShortURL) {
	key := r.key(id)
	if err := r.cache.Set(ctx, key, view, r.policy.positive()); err != nil {
		r.logger.Warn("failed to cache short url", zap.String("key", key), zap.Error(err))
	}
}
