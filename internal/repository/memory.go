package repository

import (
	"context"
	"sync"
	"time"
)

type MemoryCacheRepository struct {
	mu          sync.Mutex
	brands      []string
	brandsUntil time.Time
	rateLimits  map[string]*rateLimitEntry
	now         func() time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{
		rateLimits: make(map[string]*rateLimitEntry),
		now:        time.Now,
	}
}

func (r *MemoryCacheRepository) GetBrands(_ context.Context) ([]string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.brands == nil || r.now().After(r.brandsUntil) {
		return nil, false, nil
	}
	out := make([]string, len(r.brands))
	copy(out, r.brands)
	return out, true, nil
}

func (r *MemoryCacheRepository) SetBrands(_ context.Context, brands []string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brands = append([]string{}, brands...)
	r.brandsUntil = r.now().Add(ttl)
	return nil
}

func (r *MemoryCacheRepository) InvalidateBrands(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brands = nil
	return nil
}

func (r *MemoryCacheRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
