package repository

import (
	"context"
	"sync/atomic"
	"time"

	"carrental/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCacheRepository serves from the primary until it errors, then from
// the fallback, probing the primary again once per recovery interval.
type FailoverCacheRepository struct {
	primary   domain.CacheRepository
	fallback  domain.CacheRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverCacheRepository(primary, fallback domain.CacheRepository, logger *zerolog.Logger) *FailoverCacheRepository {
	return &FailoverCacheRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to the primary.
func (r *FailoverCacheRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverCacheRepository) observe(err error) {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary cache repository recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary cache repository failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverCacheRepository) GetBrands(ctx context.Context) ([]string, bool, error) {
	if r.usePrimary() {
		brands, ok, err := r.primary.GetBrands(ctx)
		r.observe(err)
		if err == nil {
			return brands, ok, nil
		}
	}
	return r.fallback.GetBrands(ctx)
}

func (r *FailoverCacheRepository) SetBrands(ctx context.Context, brands []string, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.SetBrands(ctx, brands, ttl)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetBrands(ctx, brands, ttl)
}

func (r *FailoverCacheRepository) InvalidateBrands(ctx context.Context) error {
	// the fallback may hold a copy from an earlier outage
	_ = r.fallback.InvalidateBrands(ctx)
	if r.usePrimary() {
		err := r.primary.InvalidateBrands(ctx)
		r.observe(err)
	}
	return nil
}

func (r *FailoverCacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
